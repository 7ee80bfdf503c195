package commands

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/democracycraft/bridge/internal/compiler/loader"
	"github.com/democracycraft/bridge/internal/compiler/pipeline"
	"github.com/democracycraft/bridge/pkg/descriptor"
)

const voteSrc = `package vote

//bridge:capability id=vote.cast
func Cast(choice string) bool { return choice != "" }

//bridge:capability id=vote.tally since=2
func Tally() int { return 0 }
`

// generateInto writes the artifacts of voteSrc into dir for protocol 3.
func generateInto(t *testing.T, dir string) {
	t.Helper()
	pkg, err := loader.FromSource("example.com/vote", map[string]string{"vote.go": voteSrc})
	require.NoError(t, err)
	_, err = pipeline.Run(context.Background(), pipeline.Unit{
		Package: pkg,
		Output: pipeline.Output{
			Dir:            dir,
			RegistryFile:   pipeline.DefaultRegistryFile,
			DescriptorFile: descriptor.DefaultFile,
		},
	}, pipeline.Options{ProtocolVersion: 3, Version: "1.2.0"})
	require.NoError(t, err)
}

func TestVerifyAgreeingArtifacts(t *testing.T) {
	dir := t.TempDir()
	generateInto(t, dir)
	cfgFile := writeConfig(t, t.TempDir(), "protocol_version: 3\n")

	stdout, _, err := execute(t, "verify", "--config", cfgFile, dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "DIRECTORY")
	assert.Contains(t, stdout, "1.2.0")
	assert.Contains(t, stdout, "1 package verified")
}

func TestVerifyFindsArtifactsUnderRoot(t *testing.T) {
	base := t.TempDir()
	generateInto(t, filepath.Join(base, "vote"))
	require.NoError(t, os.WriteFile(filepath.Join(base, "main.go"), []byte("package main\n"), 0o644))
	cfgFile := writeConfig(t, base, "protocol_version: 3\n")

	stdout, _, err := execute(t, "verify", "--config", cfgFile, "--json")
	require.NoError(t, err)

	var doc struct {
		Artifacts []struct {
			Dir      string `json:"dir"`
			Protocol int    `json:"protocolVersion"`
		} `json:"artifacts"`
		Diagnostics []json.RawMessage `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	require.Len(t, doc.Artifacts, 1)
	assert.Equal(t, filepath.Join(base, "vote"), doc.Artifacts[0].Dir)
	assert.Equal(t, 3, doc.Artifacts[0].Protocol)
	assert.Empty(t, doc.Diagnostics)
}

func TestVerifyDetectsDisagreement(t *testing.T) {
	dir := t.TempDir()
	generateInto(t, dir)

	path := filepath.Join(dir, descriptor.DefaultFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	edited := strings.Replace(string(data), "protocolVersion=3", "protocolVersion=2", 1)
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))

	stdout, _, err := execute(t, "verify", "--config", writeConfig(t, t.TempDir(), "strict: false\n"), dir)
	require.ErrorIs(t, err, errDisagreement)
	assert.Contains(t, stdout, "STAMP_DISAGREEMENT")
	assert.Contains(t, stdout, `descriptor protocolVersion is "2", expected "3"`)
}

func TestVerifyExpectProtocol(t *testing.T) {
	dir := t.TempDir()
	generateInto(t, dir)
	cfgFile := writeConfig(t, t.TempDir(), "strict: false\n")

	_, _, err := execute(t, "verify", "--config", cfgFile, "--expect-protocol", "3", dir)
	require.NoError(t, err)

	stdout, _, err := execute(t, "verify", "--config", cfgFile, "--expect-protocol", "4", dir)
	require.ErrorIs(t, err, errDisagreement)
	assert.Contains(t, stdout, "VERSION_MISMATCH")
}

func TestVerifyMissingDescriptor(t *testing.T) {
	dir := t.TempDir()
	generateInto(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, descriptor.DefaultFile)))

	stdout, _, err := execute(t, "verify", "--config", writeConfig(t, t.TempDir(), "strict: false\n"), dir)
	require.ErrorIs(t, err, errDisagreement)
	assert.Contains(t, stdout, "failed to open descriptor")
}
