// Package scanner extracts bridge markers from a type-checked package.
//
// The scanner walks every file in file-name order and every declaration in
// position order. It records capability elements, api namespaces, anchor
// keys and declared protocol versions. A marker that cannot be honoured is
// reported as a diagnostic and never silently dropped.
package scanner

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"sort"

	"github.com/democracycraft/bridge/compiler/errors"
	"github.com/democracycraft/bridge/contract"
	"github.com/democracycraft/bridge/internal/compiler/loader"
)

// API is a type carrying an api directive.
type API struct {
	Namespace string
	Type      *types.TypeName
	Interface bool
	Location  errors.SourceLocation
}

// Anchor is a string constant marked as a shared key.
type Anchor struct {
	Name     string
	Value    string
	Location errors.SourceLocation
}

// DeclaredVersion is one version directive.
type DeclaredVersion struct {
	Value    int
	Location errors.SourceLocation
}

// Result is everything one scan found.
type Result struct {
	Package     *loader.Package
	Elements    []*Element
	APIs        []API
	Anchors     []Anchor
	Versions    []DeclaredVersion
	Diagnostics errors.List
}

// APIFor returns the api declared on the named type.
func (r *Result) APIFor(typeName string) (API, bool) {
	for _, api := range r.APIs {
		if api.Type.Name() == typeName {
			return api, true
		}
	}
	return API{}, false
}

type scanner struct {
	pkg      *loader.Package
	res      *Result
	apis     map[*types.TypeName]string
	consumed map[*ast.Comment]bool
}

// Scan walks pkg and returns its markers. It has no side effects beyond the
// diagnostics in the result.
func Scan(pkg *loader.Package) *Result {
	s := &scanner{
		pkg:      pkg,
		res:      &Result{Package: pkg},
		apis:     make(map[*types.TypeName]string),
		consumed: make(map[*ast.Comment]bool),
	}

	// Types first so methods can see the api namespace of their receiver.
	for _, f := range pkg.Files {
		s.scanPackageClause(f)
		for _, decl := range f.Decls {
			if gd, ok := decl.(*ast.GenDecl); ok {
				s.scanGenDecl(gd)
			}
		}
	}
	for _, f := range pkg.Files {
		for _, decl := range f.Decls {
			if fd, ok := decl.(*ast.FuncDecl); ok {
				s.scanFunc(fd)
			}
		}
	}
	s.reportDetached()

	s.sort()
	return s.res
}

func (s *scanner) scanPackageClause(f *ast.File) {
	for _, d := range s.versions(s.directives(f.Doc)) {
		s.unsupported(d, "package clause")
	}
}

func (s *scanner) scanGenDecl(gd *ast.GenDecl) {
	shared := s.versions(s.directives(gd.Doc))
	for _, spec := range gd.Specs {
		switch spec := spec.(type) {
		case *ast.TypeSpec:
			ds := append(append([]directive(nil), shared...), s.versions(s.directives(spec.Doc))...)
			s.scanTypeSpec(spec, ds)
		case *ast.ValueSpec:
			ds := append(append([]directive(nil), shared...), s.versions(s.directives(spec.Doc))...)
			s.scanValueSpec(gd.Tok, spec, ds)
		case *ast.ImportSpec:
			ds := append(append([]directive(nil), shared...), s.versions(s.directives(spec.Doc))...)
			for _, d := range ds {
				s.unsupportedKind(d, contract.KindImport, "import "+spec.Path.Value)
			}
		}
	}
}

func (s *scanner) scanTypeSpec(ts *ast.TypeSpec, ds []directive) {
	obj, ok := s.pkg.Info.Defs[ts.Name].(*types.TypeName)
	if !ok {
		return
	}
	iface, isInterface := obj.Type().Underlying().(*types.Interface)
	_, isStruct := obj.Type().Underlying().(*types.Struct)
	generic := ts.TypeParams != nil && ts.TypeParams.NumFields() > 0

	var caps []directive
	for _, d := range ds {
		switch d.name {
		case contract.API:
			s.scanAPI(d, obj, isStruct, isInterface)
		case contract.Anchor:
			s.report(errors.Errorf(errors.ErrInvalidAnchor, d.location,
				"anchor markers apply to string constants, not type %s", obj.Name()))
		case contract.Capability:
			caps = append(caps, d)
		}
	}

	if d, ok := s.single(caps, obj.Name()); ok {
		switch {
		case isInterface:
			s.unsupported(d, fmt.Sprintf("interface type %s (mark its methods instead)", obj.Name()))
		case generic:
			s.unsupported(d, "generic type "+obj.Name())
		default:
			if m, ok := s.marker(d); ok {
				e := &Element{
					Marker:    m,
					Kind:      contract.KindType,
					Name:      obj.Name(),
					Namespace: s.namespace(obj),
					Package:   s.pkg.Types,
					Object:    obj,
					Location:  s.loc(ts.Name.Pos()),
				}
				s.add(e, obj.Name())
			}
		}
	}

	switch t := ts.Type.(type) {
	case *ast.InterfaceType:
		s.scanInterfaceMethods(obj, t, iface, generic)
	case *ast.StructType:
		s.scanFields(obj, t)
	}
}

func (s *scanner) scanAPI(d directive, obj *types.TypeName, isStruct, isInterface bool) {
	if !isStruct && !isInterface {
		s.unsupported(d, fmt.Sprintf("type %s (api markers apply to struct or interface types)", obj.Name()))
		return
	}
	ns, err := parseNamespace(d)
	if err != nil {
		s.report(errors.Errorf(errors.ErrInvalidMarker, d.location, "%v", err))
		return
	}
	if prev, ok := s.apis[obj]; ok {
		s.report(errors.Errorf(errors.ErrInvalidMarker, d.location,
			"type %s already declares api %s", obj.Name(), prev))
		return
	}
	s.apis[obj] = ns
	s.res.APIs = append(s.res.APIs, API{
		Namespace: ns,
		Type:      obj,
		Interface: isInterface,
		Location:  d.location,
	})
}

func (s *scanner) scanInterfaceMethods(obj *types.TypeName, it *ast.InterfaceType, iface *types.Interface, generic bool) {
	for _, field := range it.Methods.List {
		ds := s.versions(s.directives(field.Doc))
		if len(ds) == 0 {
			continue
		}
		if len(field.Names) == 0 {
			for _, d := range ds {
				s.unsupported(d, "embedded element of interface "+obj.Name())
			}
			continue
		}
		name := field.Names[0]
		fn, ok := s.pkg.Info.Defs[name].(*types.Func)
		if !ok {
			continue
		}

		var caps []directive
		for _, d := range ds {
			switch d.name {
			case contract.Capability:
				caps = append(caps, d)
			case contract.Anchor:
				s.report(errors.Errorf(errors.ErrInvalidAnchor, d.location,
					"anchor markers apply to string constants, not method %s.%s", obj.Name(), name.Name))
			default:
				s.unsupported(d, fmt.Sprintf("interface method %s.%s", obj.Name(), name.Name))
			}
		}
		d, ok := s.single(caps, obj.Name()+"."+name.Name)
		if !ok {
			continue
		}
		switch {
		case generic:
			s.unsupported(d, fmt.Sprintf("method %s of generic interface %s", name.Name, obj.Name()))
			continue
		case iface != nil && !iface.IsMethodSet():
			s.unsupported(d, fmt.Sprintf("method %s of constraint interface %s", name.Name, obj.Name()))
			continue
		}
		m, ok := s.marker(d)
		if !ok {
			continue
		}
		e := &Element{
			Marker:    m,
			Kind:      contract.KindInterfaceMethod,
			Name:      name.Name,
			Receiver:  &Receiver{Type: obj, Interface: true},
			Namespace: s.namespace(obj),
			Package:   s.pkg.Types,
			Object:    fn,
			Signature: fn.Type().(*types.Signature),
			Location:  s.loc(name.Pos()),
		}
		s.add(e, s.memberName(obj, name.Name))
	}
}

func (s *scanner) scanFields(obj *types.TypeName, st *ast.StructType) {
	for _, field := range st.Fields.List {
		for _, d := range s.versions(s.directives(field.Doc)) {
			name := "embedded field"
			if len(field.Names) > 0 {
				name = "field " + field.Names[0].Name
			}
			s.unsupportedKind(d, contract.KindField, fmt.Sprintf("%s of struct %s", name, obj.Name()))
		}
	}
}

func (s *scanner) scanValueSpec(tok token.Token, vs *ast.ValueSpec, ds []directive) {
	kind := contract.KindVar
	if tok == token.CONST {
		kind = contract.KindConst
	}
	for _, d := range ds {
		if d.name != contract.Anchor {
			s.unsupportedKind(d, kind, fmt.Sprintf("%s %s", tok, vs.Names[0].Name))
			continue
		}
		if len(d.args) > 0 {
			s.report(errors.Errorf(errors.ErrInvalidMarker, d.location, "%s takes no arguments", d))
			continue
		}
		for _, name := range vs.Names {
			s.scanAnchor(d, kind, name)
		}
	}
}

func (s *scanner) scanAnchor(d directive, kind contract.DeclKind, name *ast.Ident) {
	if kind != contract.KindConst {
		s.report(errors.Errorf(errors.ErrInvalidAnchor, d.location,
			"anchor %s must be a constant, not a variable", name.Name))
		return
	}
	if name.Name == "_" {
		s.report(errors.Errorf(errors.ErrInvalidAnchor, d.location, "anchor constants must be named"))
		return
	}
	c, ok := s.pkg.Info.Defs[name].(*types.Const)
	if !ok {
		return
	}
	basic, ok := c.Type().Underlying().(*types.Basic)
	if !ok || basic.Info()&types.IsString == 0 || c.Val().Kind() != constant.String {
		s.report(errors.Errorf(errors.ErrInvalidAnchor, d.location,
			"anchor %s must be a string constant, found %s", name.Name, c.Type()))
		return
	}
	s.res.Anchors = append(s.res.Anchors, Anchor{
		Name:     name.Name,
		Value:    constant.StringVal(c.Val()),
		Location: s.loc(name.Pos()),
	})
}

func (s *scanner) scanFunc(fd *ast.FuncDecl) {
	ds := s.versions(s.directives(fd.Doc))
	if len(ds) == 0 {
		return
	}
	fn, ok := s.pkg.Info.Defs[fd.Name].(*types.Func)
	if !ok {
		return
	}

	var caps []directive
	for _, d := range ds {
		switch d.name {
		case contract.Capability:
			caps = append(caps, d)
		case contract.Anchor:
			s.report(errors.Errorf(errors.ErrInvalidAnchor, d.location,
				"anchor markers apply to string constants, not function %s", fd.Name.Name))
		default:
			s.unsupported(d, "function "+fd.Name.Name)
		}
	}
	d, ok := s.single(caps, fd.Name.Name)
	if !ok {
		return
	}

	sig := fn.Type().(*types.Signature)
	if sig.TypeParams().Len() > 0 {
		s.unsupported(d, "generic function "+fd.Name.Name)
		return
	}
	if sig.RecvTypeParams().Len() > 0 {
		s.unsupported(d, "method "+fd.Name.Name+" of a generic type")
		return
	}
	m, ok := s.marker(d)
	if !ok {
		return
	}

	e := &Element{
		Marker:    m,
		Kind:      contract.KindFunc,
		Name:      fd.Name.Name,
		Namespace: defaultNamespace(s.pkg.Types),
		Package:   s.pkg.Types,
		Object:    fn,
		Signature: sig,
		Location:  s.loc(fd.Name.Pos()),
	}
	name := fd.Name.Name
	if recv := sig.Recv(); recv != nil {
		rt := recv.Type()
		ptr, isPtr := rt.(*types.Pointer)
		if isPtr {
			rt = ptr.Elem()
		}
		named, ok := types.Unalias(rt).(*types.Named)
		if !ok {
			return
		}
		e.Kind = contract.KindMethod
		e.Receiver = &Receiver{Type: named.Obj(), Pointer: isPtr}
		e.Namespace = s.namespace(named.Obj())
		name = s.memberName(named.Obj(), fd.Name.Name)
	}
	s.add(e, name)
}

// versions records version directives and returns the rest.
func (s *scanner) versions(ds []directive) []directive {
	rest := ds[:0:0]
	for _, d := range ds {
		if d.name != contract.Version {
			rest = append(rest, d)
			continue
		}
		n, err := parseVersion(d)
		if err != nil {
			s.report(errors.Errorf(errors.ErrInvalidMarker, d.location, "%v", err))
			continue
		}
		s.res.Versions = append(s.res.Versions, DeclaredVersion{Value: n, Location: d.location})
	}
	return rest
}

// single returns the only capability directive of a declaration.
func (s *scanner) single(caps []directive, name string) (directive, bool) {
	switch len(caps) {
	case 0:
		return directive{}, false
	case 1:
		return caps[0], true
	}
	for _, d := range caps[1:] {
		s.report(errors.Errorf(errors.ErrInvalidMarker, d.location,
			"%s already carries a capability marker", name))
	}
	return directive{}, false
}

func (s *scanner) marker(d directive) (Marker, bool) {
	m, err := parseCapability(d)
	if err != nil {
		s.report(errors.Errorf(errors.ErrInvalidMarker, d.location, "%v", err))
		return m, false
	}
	return m, true
}

func (s *scanner) add(e *Element, derivedName string) {
	if !e.Marker.Explicit {
		e.Marker.ID = e.deriveID(derivedName)
	}
	s.res.Elements = append(s.res.Elements, e)
}

// namespace is the api namespace of a type, or the package default.
func (s *scanner) namespace(obj *types.TypeName) string {
	if ns, ok := s.apis[obj]; ok {
		return ns
	}
	return defaultNamespace(s.pkg.Types)
}

// memberName is the name used in derived ids: members of api types use the
// bare name, other members are qualified by their type.
func (s *scanner) memberName(owner *types.TypeName, name string) string {
	if _, ok := s.apis[owner]; ok {
		return name
	}
	return owner.Name() + "." + name
}

func (s *scanner) unsupported(d directive, what string) {
	s.report(errors.Errorf(errors.ErrUnsupportedDeclarationKind, d.location,
		"%s cannot be attached to %s", d, what))
}

func (s *scanner) unsupportedKind(d directive, kind contract.DeclKind, what string) {
	s.report(errors.Errorf(errors.ErrUnsupportedDeclarationKind, d.location,
		"%s cannot be attached to %s (%s declarations are not supported)", d, what, kind))
}

// reportDetached flags directives that are not part of any declaration's
// doc comment.
func (s *scanner) reportDetached() {
	for _, f := range s.pkg.Files {
		for _, group := range f.Comments {
			for _, c := range group.List {
				if _, _, ok := splitDirective(c.Text); !ok || s.consumed[c] {
					continue
				}
				s.report(errors.Errorf(errors.ErrInvalidMarker, s.loc(c.Pos()),
					"bridge marker is not attached to a declaration"))
			}
		}
	}
}

func (s *scanner) report(d errors.Diagnostic) {
	s.res.Diagnostics = append(s.res.Diagnostics, d)
}

func (s *scanner) loc(pos token.Pos) errors.SourceLocation {
	p := s.pkg.Fset.Position(pos)
	return errors.SourceLocation{File: p.Filename, Line: p.Line, Column: p.Column}
}

func (s *scanner) sort() {
	sort.SliceStable(s.res.Elements, func(i, j int) bool {
		return before(s.res.Elements[i].Location, s.res.Elements[j].Location)
	})
	sort.SliceStable(s.res.APIs, func(i, j int) bool {
		return before(s.res.APIs[i].Location, s.res.APIs[j].Location)
	})
	sort.SliceStable(s.res.Anchors, func(i, j int) bool {
		return before(s.res.Anchors[i].Location, s.res.Anchors[j].Location)
	})
	sort.SliceStable(s.res.Versions, func(i, j int) bool {
		return before(s.res.Versions[i].Location, s.res.Versions[j].Location)
	})
	s.res.Diagnostics = s.res.Diagnostics.Sorted()
}

func before(a, b errors.SourceLocation) bool {
	if a.File != b.File {
		return a.File < b.File
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Column < b.Column
}
