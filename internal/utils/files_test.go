package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSourceDirs(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"main.go",
		"vote/vote.go",
		"vote/vote_test.go",
		"poll/poll_test.go",
		"ledger/store/store.go",
		"testdata/fixture.go",
		"vendor/x/x.go",
		"_examples/e.go",
		".cache/c.go",
		"docs/readme.md",
	} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("package x\n"), 0o644))
	}

	dirs, err := FindSourceDirs(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		root,
		filepath.Join(root, "ledger", "store"),
		filepath.Join(root, "vote"),
	}, dirs)
}

func TestIsSourceFile(t *testing.T) {
	assert.True(t, IsSourceFile("vote/vote.go"))
	assert.True(t, IsSourceFile("bridge_registry.gen.go"))
	assert.False(t, IsSourceFile("vote/vote_test.go"))
	assert.False(t, IsSourceFile("vote/.#vote.go"))
	assert.False(t, IsSourceFile("bridge.properties"))
}
