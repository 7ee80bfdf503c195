package scanner

import (
	"fmt"
	"go/types"
	"strings"

	"github.com/democracycraft/bridge/compiler/errors"
	"github.com/democracycraft/bridge/contract"
)

// Marker is a parsed capability directive.
type Marker struct {
	ID        string
	Explicit  bool // id written in the directive rather than derived
	Since     int  // 0 when the directive omits since
	Side      contract.Side
	Signature contract.SignaturePolicy
	Location  errors.SourceLocation
}

// MinProtocolVersion is the first protocol version the capability exists in.
func (m Marker) MinProtocolVersion() int {
	if m.Since == 0 {
		return contract.DefaultSince
	}
	return m.Since
}

// Stability reports whether the id was given or derived.
func (m Marker) Stability() contract.Stability {
	if m.Explicit {
		return contract.StableID
	}
	return contract.DerivedID
}

// Receiver is the type owning a method capability.
type Receiver struct {
	Type      *types.TypeName
	Pointer   bool
	Interface bool
}

// Name returns the receiver type name.
func (r *Receiver) Name() string {
	return r.Type.Name()
}

// Exported reports whether the receiver type is exported.
func (r *Receiver) Exported() bool {
	return r.Type.Exported()
}

// Element is one declaration carrying a capability marker.
type Element struct {
	Marker    Marker
	Kind      contract.DeclKind
	Name      string
	Receiver  *Receiver // methods and interface methods only
	Namespace string
	Package   *types.Package
	Object    types.Object
	Signature *types.Signature // nil for type capabilities
	Location  errors.SourceLocation
}

// ID returns the capability id, explicit or derived.
func (e *Element) ID() string {
	return e.Marker.ID
}

// Exported reports whether the declaration name is exported.
func (e *Element) Exported() bool {
	return e.Object.Exported()
}

// Ref renders the element the way it is written in Go source, qualified
// by package name: vote.Cast, (*vote.Service).Cast, vote.Ballots.Count.
func (e *Element) Ref() string {
	pkg := e.Package.Name()
	switch {
	case e.Receiver == nil:
		return pkg + "." + e.Name
	case e.Receiver.Pointer:
		return fmt.Sprintf("(*%s.%s).%s", pkg, e.Receiver.Name(), e.Name)
	default:
		return fmt.Sprintf("%s.%s.%s", pkg, e.Receiver.Name(), e.Name)
	}
}

// Params returns the declared parameter types, receiver excluded.
func (e *Element) Params() []types.Type {
	if e.Signature == nil {
		return nil
	}
	return tupleTypes(e.Signature.Params())
}

// Results returns the declared result types. A type capability yields a
// pointer to the type.
func (e *Element) Results() []types.Type {
	if e.Signature == nil {
		return []types.Type{types.NewPointer(e.Object.Type())}
	}
	return tupleTypes(e.Signature.Results())
}

// Variadic reports whether the last parameter is variadic.
func (e *Element) Variadic() bool {
	return e.Signature != nil && e.Signature.Variadic()
}

// ParamStrings renders parameter types qualified by import path, with a
// variadic last parameter written as ...T.
func (e *Element) ParamStrings() []string {
	params := e.Params()
	out := make([]string, len(params))
	for i, t := range params {
		if e.Variadic() && i == len(params)-1 {
			if s, ok := t.(*types.Slice); ok {
				out[i] = "..." + TypeString(s.Elem())
				continue
			}
		}
		out[i] = TypeString(t)
	}
	return out
}

// ResultStrings renders result types qualified by import path.
func (e *Element) ResultStrings() []string {
	results := e.Results()
	out := make([]string, len(results))
	for i, t := range results {
		out[i] = TypeString(t)
	}
	return out
}

// deriveID computes NS#name(params) or NS#name/arity.
func (e *Element) deriveID(name string) string {
	params := e.ParamStrings()
	if e.Marker.Signature == contract.SignatureArity {
		return fmt.Sprintf("%s#%s/%d", e.Namespace, name, len(params))
	}
	return fmt.Sprintf("%s#%s(%s)", e.Namespace, name, strings.Join(params, ","))
}

// TypeString renders t with every package qualified by its import path.
func TypeString(t types.Type) string {
	return types.TypeString(t, func(p *types.Package) string { return p.Path() })
}

func defaultNamespace(pkg *types.Package) string {
	return strings.ToUpper(pkg.Name())
}

func tupleTypes(t *types.Tuple) []types.Type {
	out := make([]types.Type, t.Len())
	for i := 0; i < t.Len(); i++ {
		out[i] = t.At(i).Type()
	}
	return out
}
