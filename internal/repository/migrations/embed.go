package migrations

import "embed"

// PostgresFS holds the PostgreSQL schema files.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// PostgresDir is the directory of PostgresFS holding the migrations.
const PostgresDir = "postgres"
