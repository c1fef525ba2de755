package tracker

// DefaultTable is the metadata table name used when none is configured.
const DefaultTable = "schema_history"

// createSchemaSQL is the DDL for the history table; %s is the quoted table name.
const createSchemaSQL = `CREATE TABLE IF NOT EXISTS %s (
    installed_rank  BIGSERIAL,
    version         TEXT PRIMARY KEY,
    description     TEXT NOT NULL,
    script          TEXT NOT NULL,
    checksum        TEXT NOT NULL,
    installed_on    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    execution_ms    INTEGER NOT NULL DEFAULT 0,
    success         BOOLEAN NOT NULL
)`
