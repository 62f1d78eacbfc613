package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/raphaelgruber/docforge/internal/models"
	"github.com/raphaelgruber/docforge/internal/parser"
	"github.com/raphaelgruber/docforge/internal/project"
)

// FileStore writes artifacts into the output directory of a project so that
// project.Load reads them back.
type FileStore struct {
	mu    sync.Mutex
	paths project.Paths
}

var _ Store = (*FileStore)(nil)

// NewFileStore stores artifacts under dir/output.
func NewFileStore(dir string) *FileStore {
	return &FileStore{paths: project.Paths{Root: dir}}
}

func (s *FileStore) outputDir() string {
	return filepath.Dir(s.paths.Docs())
}

// Save writes a, replacing an earlier artifact with the same title.
func (s *FileStore) Save(_ context.Context, a models.Artifact) error {
	rel, err := relPath(a)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := filepath.Join(s.outputDir(), filepath.FromSlash(rel))
	order, err := s.documentOrder(a, target)
	if err != nil {
		return err
	}
	data, err := encode(a, order)
	if err != nil {
		return fmt.Errorf("encode %s: %w", rel, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("save %s: %w", rel, err)
	}

	// Readers never see a partial file.
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("save %s: %w", rel, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("save %s: %w", rel, err)
	}
	return nil
}

// documentOrder keeps the order of a document being replaced and appends
// new documents after the existing ones.
func (s *FileStore) documentOrder(a models.Artifact, target string) (int, error) {
	if a.Variant != models.VariantTextDocument {
		return 0, nil
	}
	if data, err := os.ReadFile(target); err == nil {
		if doc, err := parser.ParseDocument(string(data)); err == nil && doc.Frontmatter.Order > 0 {
			return doc.Frontmatter.Order, nil
		}
	}

	entries, err := os.ReadDir(s.paths.Docs())
	if errors.Is(err, fs.ErrNotExist) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			n++
		}
	}
	return n + 1, nil
}

// List reads every stored artifact. project only fills the Project field.
func (s *FileStore) List(_ context.Context, projectName string) ([]models.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root := s.outputDir()
	var items []stored
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") || strings.HasSuffix(d.Name(), ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		item, err := decode(projectName, filepath.ToSlash(rel), data)
		if err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return sortStored(items), nil
}
