package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/democracycraft/bridge/contract"
	"github.com/democracycraft/bridge/internal/compiler/cache"
)

// rename is replaced in tests to simulate a failing filesystem.
var rename = os.Rename

// generatedPrefixes open every file bridgegen writes: the registry header
// and its rendering as a descriptor comment.
var generatedPrefixes = [][]byte{
	[]byte(contract.GeneratedHeader),
	[]byte("# " + strings.TrimPrefix(contract.GeneratedHeader, "// ")),
}

type artifact struct {
	path    string
	content []byte
}

// staged is an artifact written to a temporary file next to its target.
type staged struct {
	artifact
	tmp     string
	prev    []byte
	existed bool
}

// writeArtifacts replaces the artifacts as a group. Every changed file is
// first written to a temporary file in its directory; only when all of
// them are on disk are they renamed into place. If a rename fails, the
// files already replaced are restored. Files that already hold their
// content are left alone. It returns the paths that changed.
func writeArtifacts(artifacts []artifact) ([]string, error) {
	hasher := cache.NewFileHasher()
	var pending []*staged
	cleanup := func() {
		for _, s := range pending {
			if s.tmp != "" {
				os.Remove(s.tmp)
			}
		}
	}

	for _, a := range artifacts {
		same, err := hasher.Unchanged(a.path, a.content)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to read %s: %w", a.path, err)
		}
		if same {
			continue
		}
		s := &staged{artifact: a}
		pending = append(pending, s)
		if s.prev, err = os.ReadFile(a.path); err == nil {
			s.existed = true
		} else if !errors.Is(err, fs.ErrNotExist) {
			cleanup()
			return nil, fmt.Errorf("failed to read %s: %w", a.path, err)
		}
		if s.tmp, err = stage(a.path, a.content); err != nil {
			cleanup()
			return nil, err
		}
	}

	var written []string
	for i, s := range pending {
		if err := rename(s.tmp, s.path); err != nil {
			cleanup()
			if rerr := restore(pending[:i]); rerr != nil {
				err = errors.Join(err, rerr)
			}
			return nil, fmt.Errorf("failed to replace %s: %w", s.path, err)
		}
		s.tmp = ""
		written = append(written, s.path)
	}
	return written, nil
}

// stage writes content to a temporary file in the directory of path.
func stage(path string, content []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return tmp.Name(), nil
}

// restore puts back the previous content of replaced files, removing the
// ones that did not exist before.
func restore(replaced []*staged) error {
	var errs []error
	for _, s := range replaced {
		if !s.existed {
			if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if err := os.WriteFile(s.path, s.prev, 0o644); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// removeGenerated deletes the files among paths that bridgegen wrote.
// Files without the generated header are never touched. It returns the
// paths that were removed.
func removeGenerated(paths ...string) ([]string, error) {
	var removed []string
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if !generated(content) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove stale %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}

func generated(content []byte) bool {
	for _, prefix := range generatedPrefixes {
		if bytes.HasPrefix(content, prefix) {
			return true
		}
	}
	return false
}
