package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raphaelgruber/docforge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manifest() Manifest {
	return Manifest{
		Name: "Demo",
		Requirements: models.Requirements{
			Input:    "Excel sheets",
			Output:   "web app",
			Features: map[string]string{"login": "user auth"},
			Further:  "none",
		},
		TechStack: "Go",
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_FullProject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Create(dir, manifest()))
	p := Paths{Root: dir}

	write(t, filepath.Join(p.CSV(), "b_users.csv"), "id,name\n1,Alice\n")
	write(t, filepath.Join(p.CSV(), "a_orders.csv"), "id,total\n")
	write(t, filepath.Join(p.CSV(), "notes.txt"), "ignored")
	write(t, filepath.Join(p.UIImages(), "login.png"), "png")
	write(t, filepath.Join(p.UIImages(), ".DS_Store"), "")
	write(t, filepath.Join(p.DiagramImages(), "legacy.jpg"), "jpg")
	write(t, filepath.Join(p.Docs(), "zz.md"), "---\ntitle: Overview\norder: 1\n---\n\nFirst.\n")
	write(t, filepath.Join(p.Docs(), "aa.md"), "---\ntitle: Data Model\norder: 2\n---\n\nSecond.\n")
	write(t, filepath.Join(p.Diagrams(), "domain.json"), `{"diagramName":"Domain","classes":[]}`)
	write(t, filepath.Join(p.Diagrams(), "flow.json"), `{"nodes":[]}`)
	write(t, filepath.Join(p.Diagrams(), "ClassDiagram", "domain.json"), `{"diagramName":"Domain","classes":[{"name":"User"}]}`)
	write(t, p.Prototype(), "<!DOCTYPE html><html></html>")

	pc, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "Demo", pc.ProjectName)
	assert.Equal(t, "Go", pc.TechStack)
	assert.Equal(t, map[string]string{"login": "user auth"}, pc.Requirements.Features)
	assert.Equal(t, []string{"id,total\n", "id,name\n1,Alice\n"}, pc.TabularDescriptions)
	assert.Equal(t, []string{filepath.Join(p.UIImages(), "login.png")}, pc.ReferenceImages)
	assert.Equal(t, []string{filepath.Join(p.DiagramImages(), "legacy.jpg")}, pc.DiagramImages)
	assert.Equal(t, []string{"Overview", "Data Model"}, pc.GeneratedTextDocs.Keys())
	assert.Equal(t, []string{"Domain", "flow", "ClassDiagram/Domain"}, pc.GeneratedDiagrams.Keys())
	assert.Equal(t, "<!DOCTYPE html><html></html>", pc.PrototypeCode)
	assert.True(t, pc.Ready())
}

func TestLoad_EmptyLayoutIsNotReady(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Create(dir, manifest()))

	pc, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, pc.TabularDescriptions)
	assert.False(t, pc.Ready())
}

func TestLoad_FallsBackToRawTables(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Create(dir, manifest()))
	p := Paths{Root: dir}
	write(t, filepath.Join(p.Input(), "raw.csv"), "id\n1\n")

	pc, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"id\n1\n"}, pc.TabularDescriptions)
	assert.True(t, pc.Ready())

	write(t, filepath.Join(p.CSV(), "clean.csv"), "id\n")
	pc, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"id\n"}, pc.TabularDescriptions, "processed tables win")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("no manifest", func(t *testing.T) {
		_, err := Load(t.TempDir())
		assert.ErrorIs(t, err, ErrNoProject)
	})

	t.Run("bad yaml", func(t *testing.T) {
		dir := t.TempDir()
		write(t, filepath.Join(dir, ManifestFile), "name: [oops")
		_, err := Load(dir)
		assert.Error(t, err)
	})

	t.Run("bad diagram json", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, Create(dir, manifest()))
		write(t, filepath.Join(Paths{Root: dir}.Diagrams(), "x.json"), "{")
		_, err := Load(dir)
		assert.ErrorContains(t, err, "x.json")
	})
}

func TestLoad_NameDefaultsToDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shop")
	m := manifest()
	m.Name = ""
	require.NoError(t, Create(dir, m))

	pc, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "shop", pc.ProjectName)
}

func TestCreate_RefusesExistingProject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Create(dir, manifest()))
	assert.Error(t, Create(dir, manifest()))
}

func TestWatcher_ReportsTableChanges(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Create(dir, manifest()))

	w, err := NewWatcher(dir, nil)
	require.NoError(t, err)
	defer w.Close()
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	changes := w.Watch(ctx)

	// Files outside the layout are ignored.
	write(t, filepath.Join(dir, "notes.txt"), "scratch")
	csv := filepath.Join(Paths{Root: dir}.CSV(), "users.csv")
	write(t, csv, "id\n")

	select {
	case path := <-changes:
		assert.Equal(t, csv, path)
	case <-ctx.Done():
		t.Fatal("no change reported")
	}
}
