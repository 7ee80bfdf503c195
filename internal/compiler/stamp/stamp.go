// Package stamp computes the protocol stamp of a build. The stamp is created
// once and both the generated registry constants and the runtime descriptor
// are rendered from it.
package stamp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"github.com/democracycraft/bridge/contract"
	"github.com/democracycraft/bridge/internal/compiler/scanner"
	"github.com/democracycraft/bridge/pkg/descriptor"
)

// fingerprintSpace is the UUID namespace of contract fingerprints.
var fingerprintSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/democracycraft/bridge/contract"))

// Capability is the part of an element that identifies the contract.
type Capability struct {
	ID      string
	Kind    contract.DeclKind
	Params  []string
	Results []string
	Since   int
	Side    contract.Side
}

// Stamp is the protocol identity of one build.
type Stamp struct {
	ProtocolVersion int
	Version         string
	Fingerprint     string
	Capabilities    int
}

// FromElements extracts the fingerprint input of scanned elements.
func FromElements(elements []*scanner.Element) []Capability {
	caps := make([]Capability, len(elements))
	for i, e := range elements {
		caps[i] = Capability{
			ID:      e.ID(),
			Kind:    e.Kind,
			Params:  e.ParamStrings(),
			Results: e.ResultStrings(),
			Since:   e.Marker.MinProtocolVersion(),
			Side:    e.Marker.Side,
		}
	}
	return caps
}

// New validates the build inputs and computes the stamp.
func New(protocolVersion int, version string, caps []Capability) (Stamp, error) {
	if protocolVersion < 1 {
		return Stamp{}, fmt.Errorf("protocol version must be >= 1, got %d", protocolVersion)
	}
	if err := ValidateVersion(version); err != nil {
		return Stamp{}, err
	}
	return Stamp{
		ProtocolVersion: protocolVersion,
		Version:         version,
		Fingerprint:     Fingerprint(protocolVersion, caps),
		Capabilities:    len(caps),
	}, nil
}

// ValidateVersion accepts semantic versions with or without a leading v.
func ValidateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("version must not be empty")
	}
	if !semver.IsValid("v" + strings.TrimPrefix(version, "v")) {
		return fmt.Errorf("version %q is not a semantic version", version)
	}
	return nil
}

// Fingerprint is a name-based UUID over the protocol version and the sorted
// capability list. It does not depend on declaration order.
func Fingerprint(protocolVersion int, caps []Capability) string {
	lines := make([]string, len(caps))
	for i, c := range caps {
		lines[i] = fmt.Sprintf("%s|%s|%s|%s|%d|%s",
			c.ID, c.Kind, strings.Join(c.Params, ","), strings.Join(c.Results, ","), c.Since, c.Side)
	}
	sort.Strings(lines)

	var b strings.Builder
	fmt.Fprintf(&b, "protocol=%d\n", protocolVersion)
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return uuid.NewSHA1(fingerprintSpace, []byte(b.String())).String()
}

// Descriptor converts the stamp into its runtime descriptor.
func (s Stamp) Descriptor() *descriptor.Descriptor {
	return &descriptor.Descriptor{
		ProtocolVersion: s.ProtocolVersion,
		Version:         s.Version,
		Fingerprint:     s.Fingerprint,
		Capabilities:    s.Capabilities,
	}
}

// EncodeDescriptor renders the descriptor file.
func (s Stamp) EncodeDescriptor() []byte {
	return s.Descriptor().Encode(contract.GeneratedHeader)
}
