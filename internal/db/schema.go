package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- ARTIFACT TABLE (latest version of every generated artifact)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS artifact SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS project ON artifact TYPE string;
    DEFINE FIELD IF NOT EXISTS agent ON artifact TYPE string;
    DEFINE FIELD IF NOT EXISTS variant ON artifact TYPE string ASSERT $value IN ["text", "diagram", "prototype"];
    DEFINE FIELD IF NOT EXISTS diagram_kind ON artifact TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS title ON artifact TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON artifact TYPE string;
    DEFINE FIELD IF NOT EXISTS revisions ON artifact TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS created ON artifact TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON artifact TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS artifact_project ON artifact FIELDS project;
    DEFINE INDEX IF NOT EXISTS artifact_unique ON artifact FIELDS project, variant, diagram_kind, title UNIQUE;

    -- ==========================================================================
    -- ARTIFACT_REVISION TABLE (every saved version, newest last)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS artifact_revision SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS artifact ON artifact_revision TYPE record<artifact>;
    DEFINE FIELD IF NOT EXISTS artifact_id ON artifact_revision TYPE string;
    DEFINE FIELD IF NOT EXISTS agent ON artifact_revision TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON artifact_revision TYPE string;
    DEFINE FIELD IF NOT EXISTS created ON artifact_revision TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS revision_artifact ON artifact_revision FIELDS artifact;
`
