// Package migrations embeds the per-backend schema files so the analyzer
// ships as a single binary with no external SQL assets.
package migrations

import "embed"

//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
