package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/democracycraft/bridge/compiler/errors"
	"github.com/democracycraft/bridge/contract"
	"github.com/democracycraft/bridge/internal/compiler/loader"
)

func scan(t *testing.T, files map[string]string) *Result {
	t.Helper()
	pkg, err := loader.FromSource("example.com/vote", files)
	require.NoError(t, err)
	return Scan(pkg)
}

func scanOne(t *testing.T, src string) *Result {
	t.Helper()
	return scan(t, map[string]string{"vote.go": src})
}

func ids(res *Result) []string {
	out := make([]string, len(res.Elements))
	for i, e := range res.Elements {
		out[i] = e.ID()
	}
	return out
}

func TestScanExplicitCapabilities(t *testing.T) {
	res := scanOne(t, `package vote

//bridge:capability id=vote.tally since=2 side=leader
func Tally() int { return 0 }

//bridge:capability id=vote.cast
func Cast(choice string) bool { return choice != "" }
`)
	require.Empty(t, res.Diagnostics)
	require.Len(t, res.Elements, 2)

	tally := res.Elements[0]
	assert.Equal(t, "vote.tally", tally.ID())
	assert.Equal(t, contract.KindFunc, tally.Kind)
	assert.Equal(t, 2, tally.Marker.MinProtocolVersion())
	assert.Equal(t, contract.SideLeaderInternal, tally.Marker.Side)
	assert.Equal(t, contract.StableID, tally.Marker.Stability())
	assert.Equal(t, "vote.Tally", tally.Ref())
	assert.Equal(t, 4, tally.Location.Line)

	cast := res.Elements[1]
	assert.Equal(t, "vote.cast", cast.ID())
	assert.Equal(t, contract.DefaultSince, cast.Marker.MinProtocolVersion())
	assert.Equal(t, contract.SideFollowerToLeader, cast.Marker.Side)
	assert.Equal(t, []string{"string"}, cast.ParamStrings())
	assert.Equal(t, []string{"bool"}, cast.ResultStrings())
}

func TestScanSourceOrderAcrossFiles(t *testing.T) {
	res := scan(t, map[string]string{
		"b.go": "package vote\n\n//bridge:capability id=b.first\nfunc B1() {}\n\n//bridge:capability id=b.second\nfunc B2() {}\n",
		"a.go": "package vote\n\n//bridge:capability id=a.only\nfunc A() {}\n",
	})
	require.Empty(t, res.Diagnostics)
	assert.Equal(t, []string{"a.only", "b.first", "b.second"}, ids(res))
}

func TestScanDerivedIDs(t *testing.T) {
	res := scanOne(t, `package vote

type Ballot struct{ Choice string }

//bridge:capability
func Cast(b Ballot, weight int) error { return nil }

//bridge:capability signature=arity
func Count(choices ...string) int { return len(choices) }

//bridge:api VOTES
type Service struct{}

//bridge:capability
func (s *Service) Open(name string) {}

type Plain struct{}

//bridge:capability
func (Plain) Close() {}

//bridge:capability
type Tally struct{}
`)
	require.Empty(t, res.Diagnostics)
	assert.Equal(t, []string{
		"VOTE#Cast(example.com/vote.Ballot,int)",
		"VOTE#Count/1",
		"VOTES#Open(string)",
		"VOTE#Plain.Close()",
		"VOTE#Tally()",
	}, ids(res))

	assert.Equal(t, contract.DerivedID, res.Elements[0].Marker.Stability())
	assert.Equal(t, []string{"...string"}, res.Elements[1].ParamStrings())
	assert.True(t, res.Elements[1].Variadic())

	open := res.Elements[2]
	assert.Equal(t, contract.KindMethod, open.Kind)
	assert.Equal(t, "(*vote.Service).Open", open.Ref())
	require.NotNil(t, open.Receiver)
	assert.True(t, open.Receiver.Pointer)

	assert.Equal(t, "vote.Plain.Close", res.Elements[3].Ref())

	tally := res.Elements[4]
	assert.Equal(t, contract.KindType, tally.Kind)
	assert.Equal(t, []string{"*example.com/vote.Tally"}, tally.ResultStrings())
}

func TestScanInterfaceMethods(t *testing.T) {
	res := scanOne(t, `package vote

//bridge:api LEDGER
type Ledger interface {
	//bridge:capability id=ledger.record
	Record(id string) error

	Size() int
}
`)
	require.Empty(t, res.Diagnostics)
	require.Len(t, res.Elements, 1)
	e := res.Elements[0]
	assert.Equal(t, contract.KindInterfaceMethod, e.Kind)
	assert.Equal(t, "vote.Ledger.Record", e.Ref())
	assert.Equal(t, "LEDGER", e.Namespace)
	assert.True(t, e.Receiver.Interface)

	require.Len(t, res.APIs, 1)
	api, ok := res.APIFor("Ledger")
	require.True(t, ok)
	assert.Equal(t, "LEDGER", api.Namespace)
	assert.True(t, api.Interface)
}

func TestScanUnsupportedKinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{
			name: "struct field",
			src:  "package vote\n\ntype S struct {\n\t//bridge:capability id=x\n\tF int\n}\n",
		},
		{
			name: "var",
			src:  "package vote\n\n//bridge:capability id=x\nvar V = 1\n",
		},
		{
			name: "const capability",
			src:  "package vote\n\n//bridge:capability id=x\nconst C = \"c\"\n",
		},
		{
			name: "generic function",
			src:  "package vote\n\n//bridge:capability id=x\nfunc G[T any](v T) T { return v }\n",
		},
		{
			name: "method of generic type",
			src:  "package vote\n\ntype Box[T any] struct{ v T }\n\n//bridge:capability id=x\nfunc (b *Box[T]) Get() T { return b.v }\n",
		},
		{
			name: "interface type",
			src:  "package vote\n\n//bridge:capability id=x\ntype I interface{ M() }\n",
		},
		{
			name: "api on function",
			src:  "package vote\n\n//bridge:api NS\nfunc F() {}\n",
		},
		{
			name: "api on non struct type",
			src:  "package vote\n\n//bridge:api NS\ntype Count int\n",
		},
		{
			name: "import",
			src:  "package vote\n\nimport (\n\t//bridge:capability id=x\n\t\"strings\"\n)\n\nvar _ = strings.ToUpper\n",
		},
		{
			name: "package clause",
			src:  "//bridge:capability id=x\npackage vote\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := scanOne(t, tt.src)
			assert.Empty(t, res.Elements)
			require.Len(t, res.Diagnostics, 1, res.Diagnostics.FormatForTerminal())
			assert.Equal(t, errors.ErrUnsupportedDeclarationKind, res.Diagnostics[0].Code)
			assert.Equal(t, errors.Error, res.Diagnostics[0].Severity)
		})
	}
}

func TestScanInvalidMarkers(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{
			name:    "unknown option",
			src:     "package vote\n\n//bridge:capability id=x color=red\nfunc F() {}\n",
			message: `unknown option "color"`,
		},
		{
			name:    "non integer since",
			src:     "package vote\n\n//bridge:capability id=x since=two\nfunc F() {}\n",
			message: "since must be a positive integer",
		},
		{
			name:    "unknown side",
			src:     "package vote\n\n//bridge:capability id=x side=sideways\nfunc F() {}\n",
			message: "side must be one of",
		},
		{
			name:    "empty id",
			src:     "package vote\n\n//bridge:capability id=\nfunc F() {}\n",
			message: "id must not be empty",
		},
		{
			name:    "unknown directive",
			src:     "package vote\n\n//bridge:capabilty id=x\nfunc F() {}\n",
			message: `unknown bridge directive "capabilty"`,
		},
		{
			name:    "detached",
			src:     "package vote\n\nfunc F() {\n\t//bridge:capability id=x\n}\n",
			message: "not attached to a declaration",
		},
		{
			name:    "two capabilities",
			src:     "package vote\n\n//bridge:capability id=x\n//bridge:capability id=y\nfunc F() {}\n",
			message: "already carries a capability marker",
		},
		{
			name:    "bad version",
			src:     "package vote\n\n//bridge:version zero\nfunc F() {}\n",
			message: "requires a positive integer",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := scanOne(t, tt.src)
			require.Len(t, res.Diagnostics, 1, res.Diagnostics.FormatForTerminal())
			assert.Equal(t, errors.ErrInvalidMarker, res.Diagnostics[0].Code)
			assert.Contains(t, res.Diagnostics[0].Message, tt.message)
		})
	}
}

func TestScanAnchors(t *testing.T) {
	res := scanOne(t, `package vote

//bridge:anchor
const LeaderKey = "democracy:leader"

//bridge:anchor
const (
	PluginKey  = "democracy:plugin"
	ChannelKey = "democracy:channel"
)

type Key string

//bridge:anchor
const TypedKey Key = "democracy:typed"
`)
	require.Empty(t, res.Diagnostics)
	require.Len(t, res.Anchors, 4)
	assert.Equal(t, Anchor{Name: "LeaderKey", Value: "democracy:leader", Location: res.Anchors[0].Location}, res.Anchors[0])
	assert.Equal(t, "PluginKey", res.Anchors[1].Name)
	assert.Equal(t, "ChannelKey", res.Anchors[2].Name)
	assert.Equal(t, "democracy:typed", res.Anchors[3].Value)
}

func TestScanInvalidAnchors(t *testing.T) {
	tests := map[string]string{
		"int constant": "package vote\n\n//bridge:anchor\nconst N = 3\n",
		"variable":     "package vote\n\n//bridge:anchor\nvar V = \"v\"\n",
		"function":     "package vote\n\n//bridge:anchor\nfunc F() {}\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			res := scanOne(t, src)
			assert.Empty(t, res.Anchors)
			require.Len(t, res.Diagnostics, 1)
			assert.Equal(t, errors.ErrInvalidAnchor, res.Diagnostics[0].Code)
		})
	}
}

func TestScanVersions(t *testing.T) {
	res := scanOne(t, `//bridge:version 3
package vote

//bridge:version 3
//bridge:capability id=vote.cast
func Cast() {}
`)
	require.Empty(t, res.Diagnostics)
	require.Len(t, res.Versions, 2)
	assert.Equal(t, 3, res.Versions[0].Value)
	assert.Equal(t, 1, res.Versions[0].Location.Line)
	assert.Len(t, res.Elements, 1)
}

func TestScanQuotedID(t *testing.T) {
	res := scanOne(t, "package vote\n\n//bridge:capability id=\"vote.cast\"\nfunc Cast() {}\n")
	require.Empty(t, res.Diagnostics)
	assert.Equal(t, []string{"vote.cast"}, ids(res))
}
