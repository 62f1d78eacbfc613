package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/raphaelgruber/docforge/internal/db"
	"github.com/raphaelgruber/docforge/internal/models"
)

// DBStore keeps the latest version of every artifact in SurrealDB, plus its
// revision history.
type DBStore struct {
	client *db.Client
}

var _ Store = (*DBStore)(nil)

// NewDBStore wraps a connected client whose schema is initialized.
func NewDBStore(client *db.Client) *DBStore {
	return &DBStore{client: client}
}

// Save upserts a.
func (s *DBStore) Save(ctx context.Context, a models.Artifact) error {
	_, err := s.client.QueryUpsertArtifact(ctx, a)
	return err
}

// List returns the project's artifacts in creation order.
func (s *DBStore) List(ctx context.Context, project string) ([]models.Artifact, error) {
	recs, err := s.client.QueryListArtifacts(ctx, project, "")
	if err != nil {
		return nil, err
	}
	out := make([]models.Artifact, 0, len(recs))
	for _, r := range recs {
		a, err := fromRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func fromRecord(r db.ArtifactRecord) (models.Artifact, error) {
	a := models.Artifact{
		ID:        fmt.Sprint(r.ID.ID),
		Project:   r.Project,
		Agent:     r.Agent,
		Variant:   models.Variant(r.Variant),
		Title:     r.Title,
		CreatedAt: r.Created,
	}
	if r.DiagramKind != nil {
		a.DiagramKind = *r.DiagramKind
	}
	if a.Variant == models.VariantDiagram {
		if err := json.Unmarshal([]byte(r.Content), &a.JSON); err != nil {
			return a, fmt.Errorf("decode diagram %s: %w", r.Title, err)
		}
	} else {
		a.Body = r.Content
	}
	return a, nil
}
