// Package loader produces type-checked packages for the element scanner.
//
// Files previously written by bridgegen are reduced to their package clause
// before type checking, so a stale registry that refers to a removed
// capability never prevents the package from loading.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/tools/go/packages"

	"github.com/democracycraft/bridge/contract"
)

// Package is a parsed and type-checked Go package.
type Package struct {
	Path  string // import path
	Name  string
	Dir   string
	Fset  *token.FileSet
	Files []*ast.File // sorted by file name
	Types *types.Package
	Info  *types.Info

	// Generated lists the bridgegen outputs that were skipped.
	Generated []string
}

// Filename returns the name of the file f was parsed from.
func (p *Package) Filename(f *ast.File) string {
	return p.Fset.Position(f.Package).Filename
}

// HasDirectives reports whether any file carries a bridge directive.
func (p *Package) HasDirectives() bool {
	for _, f := range p.Files {
		for _, group := range f.Comments {
			for _, c := range group.List {
				if strings.HasPrefix(c.Text, contract.DirectivePrefix) {
					return true
				}
			}
		}
	}
	return false
}

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo

// Load resolves patterns relative to dir and returns the matching packages
// sorted by import path. Any package error fails the whole load.
func Load(ctx context.Context, dir string, patterns ...string) ([]*Package, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}

	var mu sync.Mutex
	generated := make(map[string]bool)
	cfg := &packages.Config{
		Context: ctx,
		Mode:    loadMode,
		Dir:     dir,
		Tests:   false,
		ParseFile: func(fset *token.FileSet, filename string, src []byte) (*ast.File, error) {
			if isGenerated(src) {
				mu.Lock()
				generated[filename] = true
				mu.Unlock()
				return parser.ParseFile(fset, filename, src, parser.PackageClauseOnly|parser.ParseComments)
			}
			return parser.ParseFile(fset, filename, src, parser.AllErrors|parser.ParseComments)
		},
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	var loadErrs []error
	result := make([]*Package, 0, len(pkgs))
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			loadErrs = append(loadErrs, e)
		}
		if len(pkg.Errors) > 0 || pkg.Types == nil {
			continue
		}
		result = append(result, fromPackages(pkg, generated))
	}
	if len(loadErrs) > 0 {
		return nil, fmt.Errorf("failed to load packages: %w", errors.Join(loadErrs...))
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}

func fromPackages(pkg *packages.Package, generated map[string]bool) *Package {
	p := &Package{
		Path:  pkg.PkgPath,
		Name:  pkg.Name,
		Fset:  pkg.Fset,
		Types: pkg.Types,
		Info:  pkg.TypesInfo,
	}
	for _, f := range pkg.Syntax {
		name := p.Filename(f)
		if p.Dir == "" {
			p.Dir = filepath.Dir(name)
		}
		if generated[name] {
			p.Generated = append(p.Generated, name)
			continue
		}
		p.Files = append(p.Files, f)
	}
	p.sortFiles()
	sort.Strings(p.Generated)
	return p
}

// FromSource type-checks an in-memory package. Keys of files are file names.
// Imports are resolved from source.
func FromSource(path string, files map[string]string) (*Package, error) {
	fset := token.NewFileSet()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	p := &Package{Path: path, Fset: fset}
	var all []*ast.File
	for _, name := range names {
		src := []byte(files[name])
		mode := parser.AllErrors | parser.ParseComments
		gen := isGenerated(src)
		if gen {
			mode = parser.PackageClauseOnly | parser.ParseComments
		}
		f, err := parser.ParseFile(fset, name, src, mode)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		all = append(all, f)
		if gen {
			p.Generated = append(p.Generated, name)
			continue
		}
		p.Files = append(p.Files, f)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("package %s has no files", path)
	}

	p.Info = NewInfo()
	conf := types.Config{Importer: importer.ForCompiler(fset, "source", nil)}
	tpkg, err := conf.Check(path, fset, all, p.Info)
	if err != nil {
		return nil, fmt.Errorf("failed to type-check %s: %w", path, err)
	}
	p.Types = tpkg
	p.Name = tpkg.Name()
	p.Dir = filepath.Dir(names[0])
	return p, nil
}

// NewInfo allocates the type information the scanner reads.
func NewInfo() *types.Info {
	return &types.Info{
		Types: make(map[ast.Expr]types.TypeAndValue),
		Defs:  make(map[*ast.Ident]types.Object),
		Uses:  make(map[*ast.Ident]types.Object),
	}
}

func (p *Package) sortFiles() {
	sort.SliceStable(p.Files, func(i, j int) bool {
		return p.Filename(p.Files[i]) < p.Filename(p.Files[j])
	})
}

func isGenerated(src []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(src, " \t\r\n"), []byte(contract.GeneratedHeader))
}
