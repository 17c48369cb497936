package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// header is the part of every document the loader reads before handing the
// body to a kind-specific decoder.
type header struct {
	Kind string `yaml:"kind"`
	ID   string `yaml:"id"`
}

// IsDefinitionFile reports whether path looks like a YAML definition file.
func IsDefinitionFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadDir reads every YAML file under dir into a new MemoryStore.
func LoadDir(ctx context.Context, dir string) (*MemoryStore, error) {
	store := NewMemoryStore()
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsDefinitionFile(path) {
			return nil
		}
		_, err = LoadFile(ctx, store, path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Dirs lists root and every directory below it, for watching a tree.
func Dirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}

// LoadFile saves every document in the file at path to repo and returns
// how many it saved.
func LoadFile(ctx context.Context, repo Repository, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n, err := Load(ctx, repo, f)
	if err != nil {
		return n, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// Load saves every document in a YAML stream to repo. Each document needs
// a kind and an id.
func Load(ctx context.Context, repo Repository, r io.Reader) (int, error) {
	dec := yaml.NewDecoder(r)
	n := 0
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("document %d: %w", n+1, err)
		}
		var h header
		if err := node.Decode(&h); err != nil {
			return n, fmt.Errorf("document %d: %w", n+1, err)
		}
		kind, err := ParseKind(h.Kind)
		if err != nil {
			return n, fmt.Errorf("document %d: %w", n+1, err)
		}
		body, err := yaml.Marshal(&node)
		if err != nil {
			return n, err
		}
		if err := repo.Save(ctx, Definition{Kind: kind, ID: h.ID, Body: body}); err != nil {
			return n, err
		}
		n++
	}
}
