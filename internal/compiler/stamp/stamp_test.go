package stamp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/democracycraft/bridge/contract"
	"github.com/democracycraft/bridge/pkg/descriptor"
)

var voteCaps = []Capability{
	{ID: "vote.cast", Kind: contract.KindFunc, Params: []string{"string"}, Results: []string{"bool"}, Since: 1, Side: contract.SideFollowerToLeader},
	{ID: "vote.tally", Kind: contract.KindFunc, Results: []string{"map[string]int"}, Since: 2, Side: contract.SideLeaderInternal},
}

func TestNew(t *testing.T) {
	s, err := New(3, "1.4.0", voteCaps)
	require.NoError(t, err)
	assert.Equal(t, 3, s.ProtocolVersion)
	assert.Equal(t, "1.4.0", s.Version)
	assert.Equal(t, 2, s.Capabilities)
	assert.Len(t, s.Fingerprint, 36)
}

func TestNewRejectsInvalidInputs(t *testing.T) {
	_, err := New(0, "1.0.0", nil)
	assert.ErrorContains(t, err, "protocol version must be >= 1")

	_, err = New(1, "one", nil)
	assert.ErrorContains(t, err, "not a semantic version")

	_, err = New(1, "", nil)
	assert.Error(t, err)
}

func TestValidateVersion(t *testing.T) {
	for _, v := range []string{"1.0.0", "v2.3.4", "0.1.0-rc.1", "1.2.3+build.5"} {
		assert.NoError(t, ValidateVersion(v), v)
	}
	for _, v := range []string{"1.0.0.0", "latest", "v"} {
		assert.Error(t, ValidateVersion(v), v)
	}
}

func TestFingerprintIsOrderIndependent(t *testing.T) {
	reversed := []Capability{voteCaps[1], voteCaps[0]}
	assert.Equal(t, Fingerprint(3, voteCaps), Fingerprint(3, reversed))
}

func TestFingerprintChangesWithContract(t *testing.T) {
	base := Fingerprint(3, voteCaps)
	assert.NotEqual(t, base, Fingerprint(2, voteCaps))
	assert.NotEqual(t, base, Fingerprint(3, voteCaps[:1]))

	changed := append([]Capability(nil), voteCaps...)
	changed[0].Params = []string{"int"}
	assert.NotEqual(t, base, Fingerprint(3, changed))
}

func TestEncodeDescriptor(t *testing.T) {
	s, err := New(3, "1.4.0", voteCaps)
	require.NoError(t, err)

	out := string(s.EncodeDescriptor())
	assert.True(t, strings.HasPrefix(out, "# Code generated by bridgegen. DO NOT EDIT.\n"))
	assert.Contains(t, out, "\nprotocolVersion=3\n")
	assert.Contains(t, out, "\nversion=1.4.0\n")
	assert.Contains(t, out, "\ncapabilities=2\n")

	d, err := descriptor.Parse(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, s.Descriptor(), d)
}

const registrySrc = `// Code generated by bridgegen. DO NOT EDIT.

package vote

const (
	BridgeProtocolVersion     = 3
	BridgeLibraryVersion      = "1.4.0"
	BridgeContractFingerprint = "abc"
)

const (
	BridgeCapVoteCast  = "vote.cast"
	BridgeCapVoteTally = "vote.tally"
)

const BridgeAnchorLeaderKey = "democracy:leader"
`

func TestReadRegistry(t *testing.T) {
	s, err := ReadRegistry([]byte(registrySrc))
	require.NoError(t, err)
	assert.Equal(t, Stamp{ProtocolVersion: 3, Version: "1.4.0", Fingerprint: "abc", Capabilities: 2}, s)
}

func TestReadRegistryMissingConstant(t *testing.T) {
	_, err := ReadRegistry([]byte("package vote\n\nconst BridgeProtocolVersion = 1\n"))
	assert.ErrorContains(t, err, "does not declare")

	_, err = ReadRegistry([]byte("package vote\n\nconst X = 1\n"))
	assert.ErrorContains(t, err, ConstProtocolVersion)
}

func TestCompare(t *testing.T) {
	want := Stamp{ProtocolVersion: 3, Version: "1.4.0", Fingerprint: "abc", Capabilities: 2}
	assert.Empty(t, Compare(want, want, want.Descriptor()))

	desc := want.Descriptor()
	desc.ProtocolVersion = 2
	mismatches := Compare(want, want, desc)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "descriptor", mismatches[0].From)
	assert.Equal(t, descriptor.KeyProtocolVersion, mismatches[0].Field)
	assert.Equal(t, `descriptor protocolVersion is "2", expected "3"`, mismatches[0].String())
}

func TestCrossCheck(t *testing.T) {
	desc := &descriptor.Descriptor{ProtocolVersion: 3, Version: "1.4.0", Fingerprint: "abc", Capabilities: 2}
	mismatches, err := CrossCheck([]byte(registrySrc), desc)
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	desc.Fingerprint = "stale"
	mismatches, err = CrossCheck([]byte(registrySrc), desc)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, descriptor.KeyFingerprint, mismatches[0].Field)
}
