package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHasher_HashContent(t *testing.T) {
	hasher := NewFileHasher()

	tests := []struct {
		name     string
		content  []byte
		expected string
	}{
		{
			name:     "empty content",
			content:  []byte(""),
			expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:     "simple content",
			content:  []byte("hello world"),
			expected: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, hasher.HashContent(tt.content))
			assert.Equal(t, tt.expected, hasher.HashString(string(tt.content)))
		})
	}
}

func TestFileHasher_HashFile(t *testing.T) {
	hasher := NewFileHasher()
	path := filepath.Join(t.TempDir(), "bridge.properties")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	hash, err := hasher.HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, hasher.HashString("hello world"), hash)

	_, err = hasher.HashFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestFileHasher_Unchanged(t *testing.T) {
	hasher := NewFileHasher()
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge_registry.gen.go")

	same, err := hasher.Unchanged(path, []byte("package vote\n"))
	require.NoError(t, err)
	assert.False(t, same, "missing file")

	require.NoError(t, os.WriteFile(path, []byte("package vote\n"), 0o644))

	same, err = hasher.Unchanged(path, []byte("package vote\n"))
	require.NoError(t, err)
	assert.True(t, same)

	same, err = hasher.Unchanged(path, []byte("package ballot\n"))
	require.NoError(t, err)
	assert.False(t, same)
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "b94d27b9", ShortHash("hello world", 8))
	assert.Len(t, ShortHash("hello world", 0), 64)
	assert.Equal(t, ShortHash("vote.cast", 8), ShortHash("vote.cast", 8))
	assert.NotEqual(t, ShortHash("vote.cast", 8), ShortHash("vote.tally", 8))
}
