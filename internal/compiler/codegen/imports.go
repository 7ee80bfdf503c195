package codegen

import (
	"fmt"
	"go/types"
	"regexp"
	"sort"
	"strings"
)

// localNames are identifiers the generated adapters declare inside
// function bodies. Import aliases must not shadow them.
var localNames = regexp.MustCompile(`^(args|err|id|want|zero|v|ok|r|[ar][0-9]+)$`)

// importSet assigns deterministic aliases to the packages referenced by
// generated code.
type importSet struct {
	self    *types.Package // package the file is generated into, if scanned
	outPath string
	scope   *types.Scope // package scope names that aliases must avoid
	paths   map[string]*types.Package
	aliases map[string]string
}

func newImportSet(self *types.Package, outPath string, scope *types.Scope) *importSet {
	return &importSet{
		self:    self,
		outPath: outPath,
		scope:   scope,
		paths:   make(map[string]*types.Package),
	}
}

// collect is a types.Qualifier that records packages before aliases exist.
func (s *importSet) collect(p *types.Package) string {
	if s.local(p) {
		return ""
	}
	s.paths[p.Path()] = p
	return p.Name()
}

// add records a package that generated code refers to by name.
func (s *importSet) add(p *types.Package) {
	s.collect(p)
}

// resolve assigns aliases in import path order: the package name when it
// is free, otherwise the name followed by the smallest free number.
func (s *importSet) resolve() {
	s.aliases = map[string]string{"fmt": "fmt"}
	used := map[string]bool{"fmt": true}

	for _, path := range s.sortedPaths() {
		if path == "fmt" {
			continue
		}
		base := sanitize(s.paths[path].Name())
		alias := base
		for n := 2; used[alias] || s.reserved(alias); n++ {
			alias = fmt.Sprintf("%s%d", base, n)
		}
		used[alias] = true
		s.aliases[path] = alias
	}
}

// qualifier is the types.Qualifier used once aliases are resolved.
func (s *importSet) qualifier(p *types.Package) string {
	if s.local(p) {
		return ""
	}
	return s.aliases[p.Path()]
}

// specs returns the import lines, sorted by path.
func (s *importSet) specs() []string {
	paths := append(s.sortedPaths(), "fmt")
	sort.Strings(paths)

	var out []string
	seen := make(map[string]bool)
	for _, path := range paths {
		if seen[path] {
			continue
		}
		seen[path] = true
		alias := s.aliases[path]
		if alias == s.name(path) {
			out = append(out, fmt.Sprintf("%q", path))
		} else {
			out = append(out, fmt.Sprintf("%s %q", alias, path))
		}
	}
	return out
}

// name is the package name an unaliased import of path binds.
func (s *importSet) name(path string) string {
	if p, ok := s.paths[path]; ok {
		return p.Name()
	}
	return lastElem(path)
}

func (s *importSet) local(p *types.Package) bool {
	return p == nil || p == s.self || p.Path() == s.outPath
}

func (s *importSet) reserved(alias string) bool {
	if localNames.MatchString(alias) || strings.HasPrefix(alias, "bridge") || strings.HasPrefix(alias, "Bridge") {
		return true
	}
	if types.Universe.Lookup(alias) != nil {
		return true
	}
	return s.scope != nil && s.scope.Lookup(alias) != nil
}

func (s *importSet) sortedPaths() []string {
	paths := make([]string, 0, len(s.paths))
	for path := range s.paths {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "pkg"
	}
	return b.String()
}

func lastElem(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
