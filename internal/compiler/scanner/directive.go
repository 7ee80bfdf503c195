package scanner

import (
	"fmt"
	"go/ast"
	"strconv"
	"strings"

	"github.com/democracycraft/bridge/compiler/errors"
	"github.com/democracycraft/bridge/contract"
)

// directive is one parsed //bridge: comment line.
type directive struct {
	name     string
	args     []string
	location errors.SourceLocation
}

func (d directive) String() string {
	return contract.DirectivePrefix + d.name
}

// splitDirective breaks a comment into its directive name and arguments.
// ok is false when the comment is not a bridge directive.
func splitDirective(text string) (name string, args []string, ok bool) {
	rest, found := strings.CutPrefix(text, contract.DirectivePrefix)
	if !found {
		return "", nil, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", nil, true
	}
	return fields[0], fields[1:], true
}

// directives collects the bridge directives of the given comment groups and
// marks them consumed. Unknown directive names are reported and dropped.
func (s *scanner) directives(groups ...*ast.CommentGroup) []directive {
	var out []directive
	for _, g := range groups {
		if g == nil {
			continue
		}
		for _, c := range g.List {
			name, args, ok := splitDirective(c.Text)
			if !ok {
				continue
			}
			s.consumed[c] = true
			loc := s.loc(c.Pos())
			switch name {
			case contract.Capability, contract.API, contract.Anchor, contract.Version:
				out = append(out, directive{name: name, args: args, location: loc})
			case "":
				s.report(errors.Errorf(errors.ErrInvalidMarker, loc, "empty bridge directive"))
			default:
				s.report(errors.Errorf(errors.ErrInvalidMarker, loc, "unknown bridge directive %q", name))
			}
		}
	}
	return out
}

// parseCapability reads the key=value options of a capability directive.
func parseCapability(d directive) (Marker, error) {
	m := Marker{
		Side:      contract.SideFollowerToLeader,
		Signature: contract.SignatureFull,
		Location:  d.location,
	}
	seen := make(map[string]bool)
	for _, arg := range d.args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return m, fmt.Errorf("expected key=value, got %q", arg)
		}
		if seen[key] {
			return m, fmt.Errorf("option %q given more than once", key)
		}
		seen[key] = true
		if strings.HasPrefix(value, `"`) {
			unquoted, err := strconv.Unquote(value)
			if err != nil {
				return m, fmt.Errorf("malformed quoted value for %q: %s", key, value)
			}
			value = unquoted
		}

		switch key {
		case contract.OptionID:
			if strings.TrimSpace(value) == "" {
				return m, fmt.Errorf("id must not be empty")
			}
			m.ID = value
			m.Explicit = true
		case contract.OptionSince:
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return m, fmt.Errorf("since must be a positive integer, got %q", value)
			}
			m.Since = n
		case contract.OptionSide:
			switch side := contract.Side(value); side {
			case contract.SideFollowerToLeader, contract.SideLeaderInternal, contract.SideBoth:
				m.Side = side
			default:
				return m, fmt.Errorf("side must be one of follower, leader, both; got %q", value)
			}
		case contract.OptionSignature:
			switch policy := contract.SignaturePolicy(value); policy {
			case contract.SignatureFull, contract.SignatureArity:
				m.Signature = policy
			default:
				return m, fmt.Errorf("signature must be full or arity, got %q", value)
			}
		default:
			return m, fmt.Errorf("unknown option %q", key)
		}
	}
	return m, nil
}

// parseVersion reads the single integer argument of a version directive.
func parseVersion(d directive) (int, error) {
	if len(d.args) != 1 {
		return 0, fmt.Errorf("%s takes exactly one integer argument", d)
	}
	n, err := strconv.Atoi(d.args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s requires a positive integer, got %q", d, d.args[0])
	}
	return n, nil
}

// parseNamespace reads the namespace argument of an api directive.
func parseNamespace(d directive) (string, error) {
	if len(d.args) != 1 {
		return "", fmt.Errorf("%s takes exactly one namespace argument", d)
	}
	ns := d.args[0]
	if strings.ContainsAny(ns, "#()/") {
		return "", fmt.Errorf("namespace %q must not contain '#', '(', ')' or '/'", ns)
	}
	return ns, nil
}
