// Package vault extracts task records from a directory tree of markdown
// files and serves each file's frontmatter to the query engine's property
// filters.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotADirectory reports a vault path that exists but is not a directory.
var ErrNotADirectory = errors.New("vault path is not a directory")

// Vault is a directory tree of markdown documents. Task paths are relative to
// Dir with forward slashes, so they are stable across platforms and usable as
// property-lookup keys.
type Vault struct {
	// Dir is the vault root.
	Dir string
}

// Open validates the vault root.
func Open(dir string) (*Vault, error) {
	info, statErr := os.Stat(dir)
	if statErr != nil {
		return nil, fmt.Errorf("open vault: %w", statErr)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("open vault %s: %w", dir, ErrNotADirectory)
	}

	return &Vault{Dir: dir}, nil
}

// Files lists the markdown files under the vault root, relative slash paths,
// sorted by the walk order (lexical per directory). Hidden directories are
// skipped.
func (v *Vault) Files() ([]string, error) {
	var files []string

	walkErr := filepath.WalkDir(v.Dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			if path != v.Dir && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}

			return nil
		}

		if !strings.EqualFold(filepath.Ext(entry.Name()), ".md") {
			return nil
		}

		rel, relErr := filepath.Rel(v.Dir, path)
		if relErr != nil {
			return relErr
		}

		files = append(files, filepath.ToSlash(rel))

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk vault %s: %w", v.Dir, walkErr)
	}

	return files, nil
}

// ReadFile reads one document by its vault-relative path.
func (v *Vault) ReadFile(rel string) ([]byte, error) {
	data, readErr := os.ReadFile(filepath.Join(v.Dir, filepath.FromSlash(rel)))
	if readErr != nil {
		return nil, fmt.Errorf("read %s: %w", rel, readErr)
	}

	return data, nil
}
