// Package validator checks scanned bridge markers before any code is
// generated. It never stops at the first problem: every violation found in
// the package is reported.
package validator

import (
	"fmt"
	"go/types"

	"github.com/democracycraft/bridge/compiler/errors"
	"github.com/democracycraft/bridge/contract"
	"github.com/democracycraft/bridge/internal/compiler/scanner"
)

// Options configures a validation run.
type Options struct {
	// ProtocolVersion is the protocol the build is stamped with.
	ProtocolVersion int
}

// Validator runs every rule over a scan result.
type Validator struct {
	opts  Options
	diags errors.List
}

// New creates a validator.
func New(opts Options) *Validator {
	return &Validator{opts: opts}
}

// Validate returns the diagnostics for res. The result is empty when the
// package may be generated.
func Validate(res *scanner.Result, opts Options) errors.List {
	return New(opts).Validate(res)
}

// Validate runs all rules.
func (v *Validator) Validate(res *scanner.Result) errors.List {
	v.diags = nil
	v.checkUniqueness(res.Elements)
	for _, e := range res.Elements {
		v.checkAccessibility(e)
		v.checkSince(e)
		v.checkSignaturePolicy(e)
	}
	v.checkDeclaredVersions(res.Versions)
	v.checkAnchors(res.Anchors)
	v.checkAPIs(res)
	return v.diags
}

// checkUniqueness reports one diagnostic per duplicated id. The first
// declaration is the primary location, the others are related.
func (v *Validator) checkUniqueness(elements []*scanner.Element) {
	groups := make(map[string][]*scanner.Element)
	var order []string
	for _, e := range elements {
		if _, seen := groups[e.ID()]; !seen {
			order = append(order, e.ID())
		}
		groups[e.ID()] = append(groups[e.ID()], e)
	}

	for _, id := range order {
		group := groups[id]
		if len(group) < 2 {
			continue
		}
		first := group[0]
		d := errors.Errorf(errors.ErrDuplicateCapability, first.Location,
			"capability id %q is declared %d times", id, len(group)).WithElement(first.Ref())
		for _, other := range group[1:] {
			d = d.WithRelated(errors.New(errors.ErrDuplicateCapability,
				fmt.Sprintf("%s also declares %q", other.Ref(), id), other.Location, errors.Info).
				WithElement(other.Ref()))
		}
		v.add(d)
	}
}

// checkAccessibility requires that generated code in another package could
// name the element and every type in its signature.
func (v *Validator) checkAccessibility(e *scanner.Element) {
	if e.Receiver != nil && !e.Receiver.Exported() {
		v.add(errors.Errorf(errors.ErrInaccessibleCapability, e.Location,
			"receiver type %s of %s is not exported", e.Receiver.Name(), e.Ref()).WithElement(e.Ref()))
		return
	}
	if !e.Exported() {
		v.add(errors.Errorf(errors.ErrInaccessibleCapability, e.Location,
			"%s %s is not exported", kindLabel(e), e.Name).WithElement(e.Ref()))
		return
	}
	if e.Signature == nil {
		return
	}

	check := func(role string, i int, t types.Type) {
		if name, ok := inaccessible(t); ok {
			v.add(errors.Errorf(errors.ErrInaccessibleCapability, e.Location,
				"%s %d of %s uses unexported type %s", role, i+1, e.Ref(), name).WithElement(e.Ref()))
		}
	}
	for i, t := range e.Params() {
		check("parameter", i, t)
	}
	for i, t := range e.Results() {
		check("result", i, t)
	}
}

func (v *Validator) checkSince(e *scanner.Element) {
	since := e.Marker.MinProtocolVersion()
	if since > v.opts.ProtocolVersion {
		v.add(errors.Errorf(errors.ErrVersionMismatch, e.Marker.Location,
			"capability %q requires protocol %d but the build is configured for protocol %d",
			e.ID(), since, v.opts.ProtocolVersion).WithElement(e.Ref()))
	}
}

func (v *Validator) checkSignaturePolicy(e *scanner.Element) {
	if e.Marker.Explicit || e.Marker.Signature != contract.SignatureArity {
		return
	}
	v.add(errors.Warnf(errors.WarnAritySignature, e.Marker.Location,
		"%s derives id %q from its arity only; changing a parameter type keeps the same id",
		e.Ref(), e.ID()).WithElement(e.Ref()))
}

// checkDeclaredVersions requires every version directive to agree with the
// configured protocol version.
func (v *Validator) checkDeclaredVersions(versions []scanner.DeclaredVersion) {
	for _, dv := range versions {
		if dv.Value != v.opts.ProtocolVersion {
			v.add(errors.Errorf(errors.ErrVersionMismatch, dv.Location,
				"package declares protocol version %d but the build is configured for protocol %d",
				dv.Value, v.opts.ProtocolVersion))
		}
	}
}

func (v *Validator) checkAnchors(anchors []scanner.Anchor) {
	byValue := make(map[string]scanner.Anchor)
	for _, a := range anchors {
		first, seen := byValue[a.Value]
		if !seen {
			byValue[a.Value] = a
			continue
		}
		v.add(errors.Errorf(errors.ErrDuplicateAnchor, a.Location,
			"anchor %s repeats the key %q of %s", a.Name, a.Value, first.Name).
			WithElement(a.Name).
			WithRelated(errors.New(errors.ErrDuplicateAnchor,
				fmt.Sprintf("%s first declares %q", first.Name, a.Value), first.Location, errors.Info).
				WithElement(first.Name)))
	}
}

func (v *Validator) checkAPIs(res *scanner.Result) {
	for _, api := range res.APIs {
		used := false
		for _, e := range res.Elements {
			if e.Object == api.Type || (e.Receiver != nil && e.Receiver.Type == api.Type) {
				used = true
				break
			}
		}
		if !used {
			v.add(errors.Warnf(errors.WarnEmptyAPI, api.Location,
				"api %s on %s exposes no capabilities", api.Namespace, api.Type.Name()).
				WithElement(api.Type.Name()))
		}
	}
}

func (v *Validator) add(d errors.Diagnostic) {
	v.diags = append(v.diags, d)
}

func kindLabel(e *scanner.Element) string {
	switch e.Kind {
	case contract.KindMethod, contract.KindInterfaceMethod:
		return "method"
	case contract.KindType:
		return "type"
	default:
		return "function"
	}
}

// inaccessible finds a type inside t that another package cannot name.
func inaccessible(t types.Type) (string, bool) {
	return walk(t, make(map[types.Type]bool))
}

func walk(t types.Type, seen map[types.Type]bool) (string, bool) {
	if seen[t] {
		return "", false
	}
	seen[t] = true

	switch t := t.(type) {
	case *types.Alias:
		if obj := t.Obj(); obj.Pkg() != nil && !obj.Exported() {
			return qualifiedName(obj), true
		}
		return walk(types.Unalias(t), seen)
	case *types.Named:
		if obj := t.Obj(); obj.Pkg() != nil && !obj.Exported() {
			return qualifiedName(obj), true
		}
		if args := t.TypeArgs(); args != nil {
			for i := 0; i < args.Len(); i++ {
				if name, ok := walk(args.At(i), seen); ok {
					return name, true
				}
			}
		}
		return "", false
	case *types.Pointer:
		return walk(t.Elem(), seen)
	case *types.Slice:
		return walk(t.Elem(), seen)
	case *types.Array:
		return walk(t.Elem(), seen)
	case *types.Chan:
		return walk(t.Elem(), seen)
	case *types.Map:
		if name, ok := walk(t.Key(), seen); ok {
			return name, true
		}
		return walk(t.Elem(), seen)
	case *types.Signature:
		for _, tuple := range []*types.Tuple{t.Params(), t.Results()} {
			for i := 0; i < tuple.Len(); i++ {
				if name, ok := walk(tuple.At(i).Type(), seen); ok {
					return name, true
				}
			}
		}
		return "", false
	case *types.Struct:
		for i := 0; i < t.NumFields(); i++ {
			f := t.Field(i)
			if !f.Exported() {
				return fmt.Sprintf("struct with unexported field %s", f.Name()), true
			}
			if name, ok := walk(f.Type(), seen); ok {
				return name, true
			}
		}
		return "", false
	case *types.Interface:
		for i := 0; i < t.NumMethods(); i++ {
			m := t.Method(i)
			if !m.Exported() {
				return fmt.Sprintf("interface with unexported method %s", m.Name()), true
			}
			if name, ok := walk(m.Type(), seen); ok {
				return name, true
			}
		}
		return "", false
	default:
		return "", false
	}
}

func qualifiedName(obj *types.TypeName) string {
	return obj.Pkg().Name() + "." + obj.Name()
}
