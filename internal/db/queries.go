package db

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/docforge/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ArtifactRecord is the stored form of the latest version of an artifact.
type ArtifactRecord struct {
	ID          surrealmodels.RecordID `json:"id"`
	Project     string                 `json:"project"`
	Agent       string                 `json:"agent"`
	Variant     string                 `json:"variant"`
	DiagramKind *string                `json:"diagram_kind,omitempty"`
	Title       string                 `json:"title"`
	Content     string                 `json:"content"`
	Revisions   int                    `json:"revisions"`
	Created     time.Time              `json:"created"`
	Updated     time.Time              `json:"updated"`
}

// RevisionRecord is one saved version of an artifact.
type RevisionRecord struct {
	ID         surrealmodels.RecordID `json:"id"`
	ArtifactID string                 `json:"artifact_id"`
	Agent      string                 `json:"agent"`
	Content    string                 `json:"content"`
	Created    time.Time              `json:"created"`
}

// ArtifactKey is the record key of an artifact: one record per project,
// variant, diagram kind and title.
func ArtifactKey(project string, variant models.Variant, kind, title string) string {
	if kind == "" {
		return fmt.Sprintf("%s__%s__%s", models.Slugify(project), variant, models.Slugify(title))
	}
	return fmt.Sprintf("%s__%s__%s__%s", models.Slugify(project), variant, models.Slugify(kind), models.Slugify(title))
}

// QueryUpsertArtifact stores a as the latest version under its key and
// appends a revision.
func (c *Client) QueryUpsertArtifact(ctx context.Context, a models.Artifact) (*ArtifactRecord, error) {
	content, err := a.Content()
	if err != nil {
		return nil, err
	}
	var diagramKind *string
	if a.DiagramKind != "" {
		diagramKind = &a.DiagramKind
	}
	id := ArtifactKey(a.Project, a.Variant, a.DiagramKind, a.Title)

	// UPSERT with conditional created field (only set on insert)
	results, err := surrealdb.Query[[]ArtifactRecord](ctx, c.db, `
		UPSERT type::record("artifact", $id) SET
			project = $project,
			agent = $agent,
			variant = $variant,
			diagram_kind = $diagram_kind,
			title = $title,
			content = $content,
			revisions = IF revisions THEN revisions + 1 ELSE 1 END,
			created = IF created THEN created ELSE time::now() END,
			updated = time::now()
		RETURN AFTER
	`, map[string]any{
		"id":           id,
		"project":      a.Project,
		"agent":        a.Agent,
		"variant":      string(a.Variant),
		"diagram_kind": diagramKind,
		"title":        a.Title,
		"content":      content,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert artifact: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("upsert artifact: no result returned")
	}

	_, err = surrealdb.Query[any](ctx, c.db, `
		CREATE artifact_revision SET
			artifact = type::record("artifact", $id),
			artifact_id = $id,
			agent = $agent,
			content = $content
	`, map[string]any{"id": id, "agent": a.Agent, "content": content})
	if err != nil {
		return nil, fmt.Errorf("create revision: %w", wrapQueryError(err))
	}

	return &(*results)[0].Result[0], nil
}

// QueryGetArtifact retrieves an artifact by key.
func (c *Client) QueryGetArtifact(ctx context.Context, id string) (*ArtifactRecord, error) {
	results, err := surrealdb.Query[[]ArtifactRecord](ctx, c.db, `
		SELECT * FROM type::record("artifact", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("%w: artifact %s", ErrNotFound, id)
	}
	return &(*results)[0].Result[0], nil
}

// QueryListArtifacts returns the artifacts of a project in creation order.
// An empty variant lists all variants.
func (c *Client) QueryListArtifacts(ctx context.Context, project string, variant models.Variant) ([]ArtifactRecord, error) {
	sql := `SELECT * FROM artifact WHERE project = $project ORDER BY created ASC`
	vars := map[string]any{"project": project}
	if variant != "" {
		sql = `SELECT * FROM artifact WHERE project = $project AND variant = $variant ORDER BY created ASC`
		vars["variant"] = string(variant)
	}

	results, err := surrealdb.Query[[]ArtifactRecord](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []ArtifactRecord{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryListRevisions returns every saved version of an artifact, oldest first.
func (c *Client) QueryListRevisions(ctx context.Context, id string) ([]RevisionRecord, error) {
	results, err := surrealdb.Query[[]RevisionRecord](ctx, c.db, `
		SELECT id, artifact_id, agent, content, created FROM artifact_revision
		WHERE artifact_id = $id ORDER BY created ASC
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []RevisionRecord{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryDeleteProject deletes every artifact and revision of a project.
// Returns the number of artifacts removed (0 if none - idempotent).
func (c *Client) QueryDeleteProject(ctx context.Context, project string) (int, error) {
	vars := map[string]any{"project": project}
	if _, err := surrealdb.Query[any](ctx, c.db, `
		DELETE artifact_revision WHERE artifact.project = $project
	`, vars); err != nil {
		return 0, fmt.Errorf("delete revisions: %w", err)
	}

	// RETURN BEFORE returns deleted records
	results, err := surrealdb.Query[[]ArtifactRecord](ctx, c.db, `
		DELETE artifact WHERE project = $project RETURN BEFORE
	`, vars)
	if err != nil {
		return 0, fmt.Errorf("delete artifacts: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}
