package stamp

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/democracycraft/bridge/pkg/descriptor"
)

// Names of the stamp constants in a generated registry.
const (
	ConstProtocolVersion = "BridgeProtocolVersion"
	ConstLibraryVersion  = "BridgeLibraryVersion"
	ConstFingerprint     = "BridgeContractFingerprint"

	// CapabilityPrefix starts the name of every capability id constant.
	CapabilityPrefix = "BridgeCap"
)

// Mismatch is one field on which two renderings of a stamp disagree.
type Mismatch struct {
	Field string
	Want  string
	Got   string
	From  string // "registry" or "descriptor"
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s %s is %q, expected %q", m.From, m.Field, m.Got, m.Want)
}

// ReadRegistry extracts the stamp constants from generated Go source.
func ReadRegistry(src []byte) (Stamp, error) {
	f, err := parser.ParseFile(token.NewFileSet(), "registry.go", src, 0)
	if err != nil {
		return Stamp{}, fmt.Errorf("failed to parse registry: %w", err)
	}

	found := make(map[string]string)
	caps := 0
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.CONST {
			continue
		}
		for _, spec := range gd.Specs {
			vs := spec.(*ast.ValueSpec)
			for i, name := range vs.Names {
				if i >= len(vs.Values) {
					continue
				}
				lit, ok := vs.Values[i].(*ast.BasicLit)
				if !ok {
					continue
				}
				if strings.HasPrefix(name.Name, CapabilityPrefix) {
					caps++
				}
				switch name.Name {
				case ConstProtocolVersion, ConstLibraryVersion, ConstFingerprint:
					found[name.Name] = lit.Value
				}
			}
		}
	}

	s := Stamp{Capabilities: caps}
	raw, ok := found[ConstProtocolVersion]
	if !ok {
		return Stamp{}, fmt.Errorf("registry does not declare %s", ConstProtocolVersion)
	}
	if s.ProtocolVersion, err = strconv.Atoi(raw); err != nil {
		return Stamp{}, fmt.Errorf("registry %s is not an integer literal: %s", ConstProtocolVersion, raw)
	}
	for name, dst := range map[string]*string{ConstLibraryVersion: &s.Version, ConstFingerprint: &s.Fingerprint} {
		raw, ok := found[name]
		if !ok {
			return Stamp{}, fmt.Errorf("registry does not declare %s", name)
		}
		if *dst, err = strconv.Unquote(raw); err != nil {
			return Stamp{}, fmt.Errorf("registry %s is not a string literal: %s", name, raw)
		}
	}
	return s, nil
}

// Compare lists the fields on which the registry or descriptor differs from
// the expected stamp.
func Compare(want Stamp, registry Stamp, desc *descriptor.Descriptor) []Mismatch {
	var out []Mismatch
	check := func(from, field, want, got string) {
		if want != got {
			out = append(out, Mismatch{Field: field, Want: want, Got: got, From: from})
		}
	}
	check("registry", descriptor.KeyProtocolVersion, strconv.Itoa(want.ProtocolVersion), strconv.Itoa(registry.ProtocolVersion))
	check("registry", descriptor.KeyVersion, want.Version, registry.Version)
	check("registry", descriptor.KeyFingerprint, want.Fingerprint, registry.Fingerprint)
	check("registry", descriptor.KeyCapabilities, strconv.Itoa(want.Capabilities), strconv.Itoa(registry.Capabilities))
	check("descriptor", descriptor.KeyProtocolVersion, strconv.Itoa(want.ProtocolVersion), strconv.Itoa(desc.ProtocolVersion))
	check("descriptor", descriptor.KeyVersion, want.Version, desc.Version)
	check("descriptor", descriptor.KeyFingerprint, want.Fingerprint, desc.Fingerprint)
	check("descriptor", descriptor.KeyCapabilities, strconv.Itoa(want.Capabilities), strconv.Itoa(desc.Capabilities))
	return out
}

// CrossCheck compares committed artifacts with each other, taking the
// registry as the reference.
func CrossCheck(registrySrc []byte, desc *descriptor.Descriptor) ([]Mismatch, error) {
	reg, err := ReadRegistry(registrySrc)
	if err != nil {
		return nil, err
	}
	return Compare(reg, reg, desc), nil
}
