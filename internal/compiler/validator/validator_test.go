package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/democracycraft/bridge/compiler/errors"
	"github.com/democracycraft/bridge/internal/compiler/loader"
	"github.com/democracycraft/bridge/internal/compiler/scanner"
)

func validate(t *testing.T, protocol int, files map[string]string) errors.List {
	t.Helper()
	pkg, err := loader.FromSource("example.com/vote", files)
	require.NoError(t, err)
	res := scanner.Scan(pkg)
	require.Empty(t, res.Diagnostics, res.Diagnostics.FormatForTerminal())
	return Validate(res, Options{ProtocolVersion: protocol})
}

func validateOne(t *testing.T, protocol int, src string) errors.List {
	t.Helper()
	return validate(t, protocol, map[string]string{"vote.go": src})
}

func TestValidateCleanPackage(t *testing.T) {
	diags := validateOne(t, 3, `package vote

//bridge:capability id=vote.cast
func Cast(choice string) bool { return choice != "" }

//bridge:capability id=vote.tally
func Tally() map[string]int { return nil }
`)
	assert.Empty(t, diags)
}

func TestValidateDuplicateCapability(t *testing.T) {
	diags := validate(t, 1, map[string]string{
		"a.go": "package vote\n\n//bridge:capability id=vote.cast\nfunc Cast() {}\n",
		"b.go": "package vote\n\n//bridge:capability id=vote.cast\nfunc CastAgain() {}\n",
	})

	dups := diags.WithCode(errors.ErrDuplicateCapability)
	require.Len(t, dups, 1)
	assert.Len(t, diags, 1)

	d := dups[0]
	assert.Equal(t, errors.Error, d.Severity)
	assert.Equal(t, "vote.Cast", d.Element)
	assert.Equal(t, "a.go", d.Location.File)
	require.Len(t, d.Related, 1)
	assert.Equal(t, "vote.CastAgain", d.Related[0].Element)
	assert.Equal(t, "b.go", d.Related[0].Location.File)
}

func TestValidateDuplicateGroupOfThree(t *testing.T) {
	diags := validateOne(t, 1, `package vote

//bridge:capability id=x
func A() {}

//bridge:capability id=x
func B() {}

//bridge:capability id=x
func C() {}
`)
	dups := diags.WithCode(errors.ErrDuplicateCapability)
	require.Len(t, dups, 1)
	assert.Len(t, dups[0].Related, 2)
	assert.Contains(t, dups[0].Message, "declared 3 times")
}

func TestValidateDerivedIDsDoNotCollide(t *testing.T) {
	diags := validateOne(t, 1, `package vote

type A struct{}

//bridge:capability
func (A) Run() {}

type B struct{}

//bridge:capability
func (B) Run() {}
`)
	assert.Empty(t, diags)
}

func TestValidateSinceBoundary(t *testing.T) {
	src := `package vote

//bridge:capability id=vote.cast since=3
func Cast() {}
`
	assert.Empty(t, validateOne(t, 3, src))

	diags := validateOne(t, 2, src)
	require.Len(t, diags, 1)
	assert.Equal(t, errors.ErrVersionMismatch, diags[0].Code)
	assert.Equal(t, errors.PhaseValidator, diags[0].Phase)
	assert.Contains(t, diags[0].Message, "requires protocol 3")
}

func TestValidateDeclaredVersion(t *testing.T) {
	src := "//bridge:version 2\npackage vote\n\n//bridge:capability id=vote.cast\nfunc Cast() {}\n"

	assert.Empty(t, validateOne(t, 2, src))

	diags := validateOne(t, 3, src)
	require.Len(t, diags, 1)
	assert.Equal(t, errors.ErrVersionMismatch, diags[0].Code)
	assert.Contains(t, diags[0].Message, "declares protocol version 2")
}

func TestValidateConflictingDeclaredVersions(t *testing.T) {
	diags := validate(t, 1, map[string]string{
		"a.go": "//bridge:version 1\npackage vote\n",
		"b.go": "//bridge:version 4\npackage vote\n",
	})
	require.Len(t, diags, 1)
	assert.Equal(t, "b.go", diags[0].Location.File)
}

func TestValidateInaccessible(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{
			name:    "unexported function",
			src:     "package vote\n\n//bridge:capability id=x\nfunc cast() {}\n",
			message: "function cast is not exported",
		},
		{
			name:    "unexported receiver",
			src:     "package vote\n\ntype service struct{}\n\n//bridge:capability id=x\nfunc (s *service) Cast() {}\n",
			message: "receiver type service",
		},
		{
			name:    "unexported method",
			src:     "package vote\n\ntype Service struct{}\n\n//bridge:capability id=x\nfunc (s Service) cast() {}\n",
			message: "method cast is not exported",
		},
		{
			name:    "unexported type",
			src:     "package vote\n\n//bridge:capability id=x\ntype tally struct{}\n",
			message: "type tally is not exported",
		},
		{
			name:    "unexported parameter type",
			src:     "package vote\n\ntype ballot struct{}\n\n//bridge:capability id=x\nfunc Cast(b []*ballot) {}\n",
			message: "parameter 1 of vote.Cast uses unexported type vote.ballot",
		},
		{
			name:    "unexported result type",
			src:     "package vote\n\ntype result int\n\n//bridge:capability id=x\nfunc Tally() (int, map[string]result) { return 0, nil }\n",
			message: "result 2 of vote.Tally uses unexported type vote.result",
		},
		{
			name:    "anonymous struct with unexported field",
			src:     "package vote\n\n//bridge:capability id=x\nfunc Cast(b struct{ choice string }) {}\n",
			message: "unexported field choice",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := validateOne(t, 1, tt.src)
			require.Len(t, diags, 1, diags.FormatForTerminal())
			assert.Equal(t, errors.ErrInaccessibleCapability, diags[0].Code)
			assert.Contains(t, diags[0].Message, tt.message)
		})
	}
}

func TestValidateAccessibleSignatures(t *testing.T) {
	diags := validateOne(t, 1, `package vote

import "context"

type Ballot struct{ Choice string }

//bridge:capability id=x
func Cast(ctx context.Context, b *Ballot, opts ...func(*Ballot)) (chan<- Ballot, error) {
	return nil, nil
}
`)
	assert.Empty(t, diags)
}

func TestValidateDuplicateAnchor(t *testing.T) {
	diags := validateOne(t, 1, `package vote

//bridge:anchor
const (
	LeaderKey = "democracy:leader"
	OtherKey  = "democracy:leader"
)
`)
	require.Len(t, diags, 1)
	assert.Equal(t, errors.ErrDuplicateAnchor, diags[0].Code)
	assert.Equal(t, "OtherKey", diags[0].Element)
	require.Len(t, diags[0].Related, 1)
	assert.Equal(t, "LeaderKey", diags[0].Related[0].Element)
}

func TestValidateWarnings(t *testing.T) {
	diags := validateOne(t, 1, `package vote

//bridge:api EMPTY
type Unused struct{}

//bridge:capability signature=arity
func Count(a, b int) int { return a + b }
`)
	assert.False(t, diags.HasErrors())
	require.Len(t, diags.Warnings(), 2)
	assert.Len(t, diags.WithCode(errors.WarnAritySignature), 1)
	assert.Len(t, diags.WithCode(errors.WarnEmptyAPI), 1)
}

func TestValidateAPIWithTypeCapabilityIsNotEmpty(t *testing.T) {
	diags := validateOne(t, 1, `package vote

//bridge:api VOTES
//bridge:capability id=vote.service
type Service struct{}
`)
	assert.Empty(t, diags)
}
