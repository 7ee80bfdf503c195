package codegen

import (
	"fmt"
	"go/types"
	"strconv"
	"strings"

	"github.com/democracycraft/bridge/contract"
	"github.com/democracycraft/bridge/internal/compiler/scanner"
	"github.com/democracycraft/bridge/internal/compiler/stamp"
)

func (g *Generator) writeStamp(st stamp.Stamp) {
	g.writeLine("// Protocol stamp of this build. The runtime descriptor carries the same values.")
	g.writeLine("const (")
	g.indent++
	g.writeLine("%s = %d", stamp.ConstProtocolVersion, st.ProtocolVersion)
	g.writeLine("%s = %q", stamp.ConstLibraryVersion, st.Version)
	g.writeLine("%s = %q", stamp.ConstFingerprint, st.Fingerprint)
	g.indent--
	g.writeLine(")")
	g.writeLine("")
}

func (g *Generator) writeAnchors(anchors []scanner.Anchor, names map[string]string) {
	if len(anchors) == 0 {
		return
	}
	g.writeLine("// Anchor keys shared by every bridge participant.")
	g.writeLine("const (")
	g.indent++
	for _, a := range anchors {
		g.writeLine("%s = %q", names[a.Name], a.Value)
	}
	g.indent--
	g.writeLine(")")
	g.writeLine("")
}

func (g *Generator) writeCapabilityIDs(elements []*scanner.Element, names map[string]string) {
	if len(elements) == 0 {
		return
	}
	g.writeLine("// Capability ids.")
	g.writeLine("const (")
	g.indent++
	for _, e := range elements {
		g.writeLine("%s = %q", names[e.ID()], e.ID())
	}
	g.indent--
	g.writeLine(")")
	g.writeLine("")
}

func (g *Generator) writeTypes() {
	g.writeLine("// %s describes one bridged capability.", nameSpec)
	g.writeLine("type %s struct {", nameSpec)
	g.indent++
	g.writeLine("ID            string")
	g.writeLine("Name          string")
	g.writeLine("Kind          string")
	g.writeLine("Namespace     string")
	g.writeLine("Params        []string")
	g.writeLine("Results       []string")
	g.writeLine("Side          string")
	g.writeLine("SinceProtocol int")
	g.writeLine("Stable        bool")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("// %s binds a capability to its declaration. Func holds the declaration", nameAdapter)
	g.writeLine("// itself; Invoke calls it with dynamically typed arguments, receiver first")
	g.writeLine("// for methods.")
	g.writeLine("type %s struct {", nameAdapter)
	g.indent++
	g.writeLine("Spec   %s", nameSpec)
	g.writeLine("Func   any")
	g.writeLine("Invoke func(args ...any) ([]any, error)")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("// %s resolves capabilities by id.", nameRegistry)
	g.writeLine("type %s struct {", nameRegistry)
	g.indent++
	g.writeLine("adapters map[string]%s", nameAdapter)
	g.writeLine("ids      []string")
	g.indent--
	g.writeLine("}")
	g.writeLine("")
}

func (g *Generator) writeConstructor(elements []*scanner.Element, names map[string]string) {
	g.writeLine("// %s returns a registry holding every capability of this build.", nameNew)
	g.writeLine("func %s() *%s {", nameNew, nameRegistry)
	g.indent++
	g.writeLine("r := &%s{", nameRegistry)
	g.indent++
	g.writeLine("adapters: make(map[string]%s, %d),", nameAdapter, len(elements))
	if len(elements) == 0 {
		g.writeLine("ids:      []string{},")
	} else {
		g.writeLine("ids: []string{")
		g.indent++
		for _, e := range elements {
			g.writeLine("%s,", names[e.ID()])
		}
		g.indent--
		g.writeLine("},")
	}
	g.indent--
	g.writeLine("}")
	for _, e := range elements {
		g.writeAdapter(e, names[e.ID()])
	}
	g.writeLine("return r")
	g.indent--
	g.writeLine("}")
	g.writeLine("")
}

func (g *Generator) writeAdapter(e *scanner.Element, constName string) {
	g.writeLine("r.adapters[%s] = %s{", constName, nameAdapter)
	g.indent++

	g.writeLine("Spec: %s{", nameSpec)
	g.indent++
	g.writeLine("ID: %s,", constName)
	g.writeLine("Name: %q,", e.Ref())
	g.writeLine("Kind: %q,", string(e.Kind))
	g.writeLine("Namespace: %q,", e.Namespace)
	g.writeLine("Params: %s,", stringSlice(e.ParamStrings()))
	g.writeLine("Results: %s,", stringSlice(e.ResultStrings()))
	g.writeLine("Side: %q,", string(e.Marker.Side))
	g.writeLine("SinceProtocol: %d,", e.Marker.MinProtocolVersion())
	g.writeLine("Stable: %t,", e.Marker.Explicit)
	g.indent--
	g.writeLine("},")

	if e.Kind == contract.KindType {
		g.writeTypeAdapter(e, constName)
	} else {
		g.writeFuncAdapter(e, constName)
	}

	g.indent--
	g.writeLine("}")
}

// writeTypeAdapter exposes a type capability as a constructor.
func (g *Generator) writeTypeAdapter(e *scanner.Element, constName string) {
	typ := g.qualified(e.Object)
	g.writeLine("Func: func() *%s { return new(%s) },", typ, typ)
	g.writeLine("Invoke: func(args ...any) ([]any, error) {")
	g.indent++
	g.writeLine("if err := %s(%s, args, 0); err != nil {", nameArity, constName)
	g.indent++
	g.writeLine("return nil, err")
	g.indent--
	g.writeLine("}")
	g.writeLine("return []any{new(%s)}, nil", typ)
	g.indent--
	g.writeLine("},")
}

func (g *Generator) writeFuncAdapter(e *scanner.Element, constName string) {
	fn := g.funcExpr(e)
	g.writeLine("Func: %s,", fn)

	params := g.invokeParams(e)
	g.writeLine("Invoke: func(args ...any) ([]any, error) {")
	g.indent++
	g.writeLine("if err := %s(%s, args, %d); err != nil {", nameArity, constName, len(params))
	g.indent++
	g.writeLine("return nil, err")
	g.indent--
	g.writeLine("}")

	callArgs := make([]string, len(params))
	for i, t := range params {
		g.writeLine("a%d, err := %s[%s](%s, args, %d, %q)", i, nameArg, g.typeExpr(t), constName, i, g.typeExpr(t))
		g.writeLine("if err != nil {")
		g.indent++
		g.writeLine("return nil, err")
		g.indent--
		g.writeLine("}")
		if i == 0 && nilableReceiver(e) {
			g.writeLine("if a0 == nil {")
			g.indent++
			g.writeLine(`return nil, fmt.Errorf("bridge: %%s receiver must not be nil", %s)`, constName)
			g.indent--
			g.writeLine("}")
		}
		callArgs[i] = fmt.Sprintf("a%d", i)
	}
	if e.Variadic() && len(callArgs) > 0 {
		callArgs[len(callArgs)-1] += "..."
	}
	call := fmt.Sprintf("%s(%s)", fn, strings.Join(callArgs, ", "))

	results := e.Results()
	if len(results) == 0 {
		g.writeLine("%s", call)
		g.writeLine("return []any{}, nil")
	} else {
		vars := make([]string, len(results))
		for i := range results {
			vars[i] = "r" + strconv.Itoa(i)
		}
		g.writeLine("%s := %s", strings.Join(vars, ", "), call)
		g.writeLine("return []any{%s}, nil", strings.Join(vars, ", "))
	}
	g.indent--
	g.writeLine("},")
}

// funcExpr is the Go expression denoting the declaration: a function
// value or a method expression.
func (g *Generator) funcExpr(e *scanner.Element) string {
	if e.Receiver == nil {
		return g.qualified(e.Object)
	}
	recv := g.qualified(e.Receiver.Type)
	if e.Receiver.Pointer {
		return fmt.Sprintf("(*%s).%s", recv, e.Name)
	}
	return fmt.Sprintf("%s.%s", recv, e.Name)
}

// nilableReceiver reports whether the receiver argument of e can be nil:
// pointer receivers and interface methods.
func nilableReceiver(e *scanner.Element) bool {
	return e.Receiver != nil && (e.Receiver.Pointer || e.Receiver.Interface)
}

// invokeParams lists the argument types Invoke expects, receiver first.
func (g *Generator) invokeParams(e *scanner.Element) []types.Type {
	var params []types.Type
	if e.Receiver != nil {
		recv := e.Receiver.Type.Type()
		if e.Receiver.Pointer {
			recv = types.NewPointer(recv)
		}
		params = append(params, recv)
	}
	return append(params, e.Params()...)
}

func (g *Generator) writeMethods() {
	g.writeLine("// Resolve returns the adapter registered under id.")
	g.writeLine("func (r *%s) Resolve(id string) (%s, bool) {", nameRegistry, nameAdapter)
	g.indent++
	g.writeLine("a, ok := r.adapters[id]")
	g.writeLine("return a, ok")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("// Spec returns the description of the capability registered under id.")
	g.writeLine("func (r *%s) Spec(id string) (%s, bool) {", nameRegistry, nameSpec)
	g.indent++
	g.writeLine("a, ok := r.adapters[id]")
	g.writeLine("return a.Spec, ok")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("// IDs returns every registered capability id in sorted order.")
	g.writeLine("func (r *%s) IDs() []string {", nameRegistry)
	g.indent++
	g.writeLine("return append([]string(nil), r.ids...)")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("// Len returns the number of registered capabilities.")
	g.writeLine("func (r *%s) Len() int {", nameRegistry)
	g.indent++
	g.writeLine("return len(r.ids)")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("// ProtocolVersion returns the protocol this registry was generated for.")
	g.writeLine("func (r *%s) ProtocolVersion() int {", nameRegistry)
	g.indent++
	g.writeLine("return %s", stamp.ConstProtocolVersion)
	g.indent--
	g.writeLine("}")
	g.writeLine("")
}

func (g *Generator) writeHelpers() {
	g.writeLine("func %s(id string, args []any, n int) error {", nameArity)
	g.indent++
	g.writeLine("if len(args) != n {")
	g.indent++
	g.writeLine("%s", `return fmt.Errorf("bridge: %s expects %d arguments, got %d", id, n, len(args))`)
	g.indent--
	g.writeLine("}")
	g.writeLine("return nil")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("func %s[T any](id string, args []any, i int, want string) (T, error) {", nameArg)
	g.indent++
	g.writeLine("var zero T")
	g.writeLine("if args[i] == nil {")
	g.indent++
	g.writeLine("return zero, nil")
	g.indent--
	g.writeLine("}")
	g.writeLine("v, ok := args[i].(T)")
	g.writeLine("if !ok {")
	g.indent++
	g.writeLine("%s", `return zero, fmt.Errorf("bridge: %s argument %d must be %s, got %T", id, i, want, args[i])`)
	g.indent--
	g.writeLine("}")
	g.writeLine("return v, nil")
	g.indent--
	g.writeLine("}")
}

func stringSlice(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return "[]string{" + strings.Join(quoted, ", ") + "}"
}
