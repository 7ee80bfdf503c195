// Package codegen renders the capability registry of a scanned package as
// gofmt-formatted Go source.
//
// Output is a pure function of its input: entries are sorted by capability
// id, imports by path, and no timestamps are written.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"go/types"
	"sort"
	"strings"

	"github.com/democracycraft/bridge/compiler/errors"
	"github.com/democracycraft/bridge/contract"
	"github.com/democracycraft/bridge/internal/compiler/scanner"
	"github.com/democracycraft/bridge/internal/compiler/stamp"
)

// Options controls where the registry is generated.
type Options struct {
	// ImportPath of the package the file belongs to. Empty means the
	// scanned package itself.
	ImportPath string
	// PackageName of the generated file. Empty means the scanned package
	// name, or the last element of ImportPath.
	PackageName string
}

// Generator transforms a scan result into registry source
type Generator struct {
	buf     *bytes.Buffer
	indent  int
	opts    Options
	imports *importSet
}

// NewGenerator creates a new code generator
func NewGenerator(opts Options) *Generator {
	return &Generator{
		buf:  &bytes.Buffer{},
		opts: opts,
	}
}

// Generate renders the registry for res stamped with st. Elements are
// expected to have passed validation. Name conflicts with declarations of
// the target package are returned as diagnostics; a non-nil error means the
// generator itself failed.
func (g *Generator) Generate(res *scanner.Result, st stamp.Stamp) ([]byte, errors.List, error) {
	g.reset()

	pkg := res.Package.Types
	same := g.samePackage(res)
	pkgName := g.packageName(res)

	elements := append([]*scanner.Element(nil), res.Elements...)
	sort.SliceStable(elements, func(i, j int) bool { return elements[i].ID() < elements[j].ID() })
	anchors := append([]scanner.Anchor(nil), res.Anchors...)
	sort.SliceStable(anchors, func(i, j int) bool { return anchors[i].Name < anchors[j].Name })

	caps := capabilityNames(elements)
	anchorConsts := anchorNames(anchors)

	var scope *types.Scope
	self := pkg
	outPath := g.opts.ImportPath
	if same {
		scope = pkg.Scope()
		outPath = pkg.Path()
		if diags := conflicts(res, generatedNames(caps, anchorConsts)); len(diags) > 0 {
			return nil, diags, nil
		}
	} else {
		self = nil
	}

	g.imports = newImportSet(self, outPath, scope)
	for _, e := range elements {
		g.collect(e)
	}
	g.imports.resolve()

	g.writeLine("%s", contract.GeneratedHeader)
	g.writeLine("// Source: %s", pkg.Path())
	g.writeLine("")
	g.writeLine("package %s", pkgName)
	g.writeLine("")
	g.writeImports()
	g.writeStamp(st)
	g.writeAnchors(anchors, anchorConsts)
	g.writeCapabilityIDs(elements, caps)
	g.writeTypes()
	g.writeConstructor(elements, caps)
	g.writeMethods()
	g.writeHelpers()

	src, err := format.Source(g.buf.Bytes())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to format generated registry: %w\n%s", err, g.buf.String())
	}
	return src, nil, nil
}

func (g *Generator) samePackage(res *scanner.Result) bool {
	return g.opts.ImportPath == "" || g.opts.ImportPath == res.Package.Path
}

func (g *Generator) packageName(res *scanner.Result) string {
	if g.opts.PackageName != "" {
		return g.opts.PackageName
	}
	if g.samePackage(res) {
		return res.Package.Types.Name()
	}
	return sanitize(lastElem(g.opts.ImportPath))
}

// conflicts reports generated names that the scanned package already
// declares.
func conflicts(res *scanner.Result, names []string) errors.List {
	var diags errors.List
	scope := res.Package.Types.Scope()
	for _, name := range names {
		obj := scope.Lookup(name)
		if obj == nil {
			continue
		}
		p := res.Package.Fset.Position(obj.Pos())
		loc := errors.SourceLocation{File: p.Filename, Line: p.Line, Column: p.Column}
		diags = append(diags, errors.Errorf(errors.ErrGeneratedNameConflict, loc,
			"%s is declared by package %s and would be redeclared by the generated registry",
			name, res.Package.Types.Name()).WithElement(res.Package.Types.Name()+"."+name))
	}
	return diags
}

// collect records every package an element's adapter refers to.
func (g *Generator) collect(e *scanner.Element) {
	if obj := e.Object; obj.Pkg() != nil {
		g.imports.add(obj.Pkg())
	}
	for _, t := range e.Params() {
		types.TypeString(t, g.imports.collect)
	}
	for _, t := range e.Results() {
		types.TypeString(t, g.imports.collect)
	}
}

func (g *Generator) typeExpr(t types.Type) string {
	return types.TypeString(t, g.imports.qualifier)
}

func (g *Generator) qualified(obj types.Object) string {
	if q := g.imports.qualifier(obj.Pkg()); q != "" {
		return q + "." + obj.Name()
	}
	return obj.Name()
}

func (g *Generator) reset() {
	g.buf.Reset()
	g.indent = 0
	g.imports = nil
}

func (g *Generator) writeLine(format string, args ...interface{}) {
	if format == "" {
		g.buf.WriteString("\n")
		return
	}

	for i := 0; i < g.indent; i++ {
		g.buf.WriteString("\t")
	}

	if len(args) > 0 {
		g.buf.WriteString(fmt.Sprintf(format, args...))
	} else {
		g.buf.WriteString(format)
	}
	g.buf.WriteString("\n")
}

func (g *Generator) writeImports() {
	g.writeLine("import (")
	g.indent++

	// stdlib first, then everything else
	var stdlib, external []string
	for _, spec := range g.imports.specs() {
		path := spec[strings.Index(spec, `"`):]
		if strings.Contains(strings.SplitN(path, "/", 2)[0], ".") {
			external = append(external, spec)
		} else {
			stdlib = append(stdlib, spec)
		}
	}
	for _, spec := range stdlib {
		g.writeLine("%s", spec)
	}
	if len(stdlib) > 0 && len(external) > 0 {
		g.writeLine("")
	}
	for _, spec := range external {
		g.writeLine("%s", spec)
	}

	g.indent--
	g.writeLine(")")
	g.writeLine("")
}
