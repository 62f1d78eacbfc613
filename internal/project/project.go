// Package project loads a ProjectContext from a project directory.
//
// Layout:
//
//	project.yaml                  name, requirements, tech stack
//	input/*.csv                   raw feature tables, used when none are processed
//	processed/csv/*.csv           feature tables, one description per file
//	processed/images/ui/*         reference mockups
//	processed/images/diagram/*    existing diagrams
//	output/docs/*.md              generated documents (frontmatter + body)
//	output/diagrams/<kind>/*.json generated diagrams
//	output/prototype/index.html   generated prototype
package project

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/raphaelgruber/docforge/internal/models"
	"github.com/raphaelgruber/docforge/internal/parser"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the project metadata file name.
const ManifestFile = "project.yaml"

// ErrNoProject is returned when a directory has no manifest.
var ErrNoProject = errors.New("not a project directory")

// Manifest is the content of project.yaml.
type Manifest struct {
	Name         string              `yaml:"name"`
	Requirements models.Requirements `yaml:"requirements"`
	TechStack    string              `yaml:"tech_stack,omitempty"`
}

// Paths resolves the well-known locations inside a project directory.
type Paths struct {
	Root string
}

func (p Paths) Manifest() string      { return filepath.Join(p.Root, ManifestFile) }
func (p Paths) Input() string         { return filepath.Join(p.Root, "input") }
func (p Paths) CSV() string           { return filepath.Join(p.Root, "processed", "csv") }
func (p Paths) UIImages() string      { return filepath.Join(p.Root, "processed", "images", "ui") }
func (p Paths) DiagramImages() string { return filepath.Join(p.Root, "processed", "images", "diagram") }
func (p Paths) Docs() string          { return filepath.Join(p.Root, "output", "docs") }
func (p Paths) Diagrams() string      { return filepath.Join(p.Root, "output", "diagrams") }
func (p Paths) Prototype() string     { return filepath.Join(p.Root, "output", "prototype", "index.html") }

// Watched returns the directories whose changes affect the loaded context,
// including the diagram kind directories that exist now.
func (p Paths) Watched() []string {
	dirs := []string{p.Root, p.Input(), p.CSV(), p.UIImages(), p.DiagramImages(), p.Docs(), p.Diagrams()}
	kinds, _ := diagramKindDirs(p.Diagrams())
	for _, k := range kinds {
		dirs = append(dirs, filepath.Join(p.Diagrams(), k))
	}
	return dirs
}

// Create writes a manifest and the empty directory layout.
func Create(dir string, m Manifest) error {
	p := Paths{Root: dir}
	if _, err := os.Stat(p.Manifest()); err == nil {
		return fmt.Errorf("create project: %s already exists", p.Manifest())
	}
	for _, d := range []string{p.Input(), p.CSV(), p.UIImages(), p.DiagramImages(), p.Docs(), p.Diagrams(), filepath.Dir(p.Prototype())} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create project: %w", err)
		}
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return os.WriteFile(p.Manifest(), data, 0o644)
}

// Load reads the project in dir.
func Load(dir string) (*models.ProjectContext, error) {
	p := Paths{Root: dir}

	data, err := os.ReadFile(p.Manifest())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoProject, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestFile, err)
	}
	if m.Name == "" {
		m.Name = filepath.Base(filepath.Clean(dir))
	}

	pc := &models.ProjectContext{
		ProjectName:  m.Name,
		Requirements: m.Requirements,
		TechStack:    m.TechStack,
	}

	if pc.TabularDescriptions, err = readTables(p.CSV()); err != nil {
		return nil, err
	}
	// Raw uploads count until a processed copy exists.
	if len(pc.TabularDescriptions) == 0 {
		if pc.TabularDescriptions, err = readTables(p.Input()); err != nil {
			return nil, err
		}
	}
	if pc.ReferenceImages, err = listFiles(p.UIImages(), ""); err != nil {
		return nil, err
	}
	if pc.DiagramImages, err = listFiles(p.DiagramImages(), ""); err != nil {
		return nil, err
	}
	if err := loadDocs(p.Docs(), pc); err != nil {
		return nil, err
	}
	if err := loadDiagrams(p.Diagrams(), pc); err != nil {
		return nil, err
	}

	proto, err := os.ReadFile(p.Prototype())
	switch {
	case err == nil:
		pc.PrototypeCode = string(proto)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read prototype: %w", err)
	}
	return pc, nil
}

// listFiles returns the sorted regular files in dir with the given extension
// (any extension when ext is empty). A missing directory yields nothing.
func listFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if ext != "" && !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	slices.Sort(out)
	return out, nil
}

func readTables(dir string) ([]string, error) {
	files, err := listFiles(dir, ".csv")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read table: %w", err)
		}
		out = append(out, string(data))
	}
	return out, nil
}

type storedDoc struct {
	order int
	name  string
	doc   *parser.Document
}

func loadDocs(dir string, pc *models.ProjectContext) error {
	files, err := listFiles(dir, ".md")
	if err != nil {
		return err
	}

	docs := make([]storedDoc, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}
		doc, err := parser.ParseDocument(string(data))
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
		if doc.Title == "" {
			doc.Title = strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		}
		docs = append(docs, storedDoc{order: doc.Frontmatter.Order, name: filepath.Base(f), doc: doc})
	}

	slices.SortStableFunc(docs, func(a, b storedDoc) int {
		return cmp.Or(cmp.Compare(a.order, b.order), cmp.Compare(a.name, b.name))
	})
	for _, d := range docs {
		pc.GeneratedTextDocs.Set(d.doc.Title, d.doc.Body)
	}
	return nil
}

// loadDiagrams reads output/diagrams. Diagrams live in one directory per kind;
// files directly under dir have no kind.
func loadDiagrams(dir string, pc *models.ProjectContext) error {
	if err := loadDiagramFiles(dir, "", pc); err != nil {
		return err
	}
	kinds, err := diagramKindDirs(dir)
	if err != nil {
		return err
	}
	for _, kind := range kinds {
		if err := loadDiagramFiles(filepath.Join(dir, kind), kind, pc); err != nil {
			return err
		}
	}
	return nil
}

// diagramKindDirs returns the sorted kind directories below dir.
func diagramKindDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var kinds []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			kinds = append(kinds, e.Name())
		}
	}
	slices.Sort(kinds)
	return kinds, nil
}

func loadDiagramFiles(dir, kind string, pc *models.ProjectContext) error {
	files, err := listFiles(dir, ".json")
	if err != nil {
		return err
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read diagram: %w", err)
		}
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		if obj, ok := v.(map[string]any); ok {
			if n, ok := obj["diagramName"].(string); ok && n != "" {
				name = n
			}
		}
		if err := pc.MergeDiagram(models.DiagramKey(kind, name), v); err != nil {
			return err
		}
	}
	return nil
}
