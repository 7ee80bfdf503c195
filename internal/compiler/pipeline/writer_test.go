package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteArtifactsReplacesAsGroup(t *testing.T) {
	dir := t.TempDir()
	registry := filepath.Join(dir, "registry.go")
	desc := filepath.Join(dir, "bridge.properties")
	require.NoError(t, os.WriteFile(registry, []byte("old registry"), 0o644))

	written, err := writeArtifacts([]artifact{
		{path: registry, content: []byte("new registry")},
		{path: desc, content: []byte("new descriptor")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{registry, desc}, written)

	data, err := os.ReadFile(registry)
	require.NoError(t, err)
	assert.Equal(t, "new registry", string(data))
	assertNoTempFiles(t, dir)
}

func TestWriteArtifactsRollsBackOnFailedRename(t *testing.T) {
	dir := t.TempDir()
	registry := filepath.Join(dir, "registry.go")
	desc := filepath.Join(dir, "bridge.properties")
	newFile := filepath.Join(dir, "extra.go")
	require.NoError(t, os.WriteFile(registry, []byte("old registry"), 0o644))
	require.NoError(t, os.WriteFile(desc, []byte("old descriptor"), 0o644))

	rename = func(from, to string) error {
		if to == desc {
			return errors.New("disk full")
		}
		return os.Rename(from, to)
	}
	t.Cleanup(func() { rename = os.Rename })

	written, err := writeArtifacts([]artifact{
		{path: registry, content: []byte("new registry")},
		{path: newFile, content: []byte("package vote")},
		{path: desc, content: []byte("new descriptor")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, written)

	data, err := os.ReadFile(registry)
	require.NoError(t, err)
	assert.Equal(t, "old registry", string(data))
	data, err = os.ReadFile(desc)
	require.NoError(t, err)
	assert.Equal(t, "old descriptor", string(data))
	assert.NoFileExists(t, newFile)
	assertNoTempFiles(t, dir)
}

func TestRemoveGenerated(t *testing.T) {
	dir := t.TempDir()
	registry := filepath.Join(dir, DefaultRegistryFile)
	desc := filepath.Join(dir, "bridge.properties")
	own := filepath.Join(dir, "own.properties")
	require.NoError(t, os.WriteFile(registry, []byte("// Code generated by bridgegen. DO NOT EDIT.\n\npackage vote\n"), 0o644))
	require.NoError(t, os.WriteFile(desc, []byte("# Code generated by bridgegen. DO NOT EDIT.\nprotocolVersion=3\n"), 0o644))
	require.NoError(t, os.WriteFile(own, []byte("protocolVersion=3\n"), 0o644))

	removed, err := removeGenerated(registry, desc, own, filepath.Join(dir, "missing.go"))
	require.NoError(t, err)
	assert.Equal(t, []string{registry, desc}, removed)
	assert.NoFileExists(t, registry)
	assert.NoFileExists(t, desc)
	assert.FileExists(t, own)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
