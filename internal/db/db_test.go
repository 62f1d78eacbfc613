package db

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/raphaelgruber/docforge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *Client

// TestMain starts a SurrealDB container unless running with -short.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := container.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if testDB == nil {
		t.Skip("skipping integration test in short mode")
	}
	require.NoError(t, testDB.WipeData(context.Background()))
}

func TestArtifactKey(t *testing.T) {
	assert.Equal(t, "web-shop__text__login-spec", ArtifactKey("Web Shop", models.VariantTextDocument, "", "Login Spec"))
	assert.Equal(t, "demo__diagram__domain", ArtifactKey("demo", models.VariantDiagram, "", "Domain!"))
	assert.NotEqual(t,
		ArtifactKey("demo", models.VariantDiagram, "ClassDiagram", "Library System"),
		ArtifactKey("demo", models.VariantDiagram, "SequenceDiagram", "Library System"))
}

func TestUpsertArtifact_CountsRevisions(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	a := models.Artifact{
		Project: "demo",
		Agent:   "spec",
		Variant: models.VariantTextDocument,
		Title:   "Overview",
		Body:    "first",
	}
	rec, err := testDB.QueryUpsertArtifact(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Revisions)
	assert.Nil(t, rec.DiagramKind)

	a.Body = "second"
	rec, err = testDB.QueryUpsertArtifact(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Revisions)
	assert.Equal(t, "second", rec.Content)

	key := ArtifactKey("demo", models.VariantTextDocument, "", "Overview")
	got, err := testDB.QueryGetArtifact(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Content)

	revs, err := testDB.QueryListRevisions(ctx, key)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, "first", revs[0].Content)
	assert.Equal(t, "second", revs[1].Content)
}

func TestUpsertArtifact_DiagramStoredAsJSON(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	rec, err := testDB.QueryUpsertArtifact(ctx, models.Artifact{
		Project:     "demo",
		Agent:       "classes",
		Variant:     models.VariantDiagram,
		DiagramKind: "ClassDiagram",
		Title:       "Domain",
		JSON:        map[string]any{"diagramName": "Domain", "classes": []any{}},
	})
	require.NoError(t, err)
	require.NotNil(t, rec.DiagramKind)
	assert.Equal(t, "ClassDiagram", *rec.DiagramKind)
	assert.JSONEq(t, `{"diagramName":"Domain","classes":[]}`, rec.Content)
}

func TestListAndDeleteProject(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	for _, title := range []string{"One", "Two"} {
		_, err := testDB.QueryUpsertArtifact(ctx, models.Artifact{
			Project: "demo", Agent: "spec", Variant: models.VariantTextDocument, Title: title, Body: title,
		})
		require.NoError(t, err)
	}
	_, err := testDB.QueryUpsertArtifact(ctx, models.Artifact{
		Project: "other", Agent: "spec", Variant: models.VariantTextDocument, Title: "One", Body: "x",
	})
	require.NoError(t, err)

	recs, err := testDB.QueryListArtifacts(ctx, "demo", "")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "One", recs[0].Title)

	recs, err = testDB.QueryListArtifacts(ctx, "demo", models.VariantDiagram)
	require.NoError(t, err)
	assert.Empty(t, recs)

	n, err := testDB.QueryDeleteProject(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = testDB.QueryGetArtifact(ctx, ArtifactKey("demo", models.VariantTextDocument, "", "One"))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = testDB.QueryGetArtifact(ctx, ArtifactKey("other", models.VariantTextDocument, "", "One"))
	assert.NoError(t, err)
}
