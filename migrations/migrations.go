// Package migrations embeds the configuration store's schema files so the
// matchbook binary migrates itself without shipping SQL alongside.
package migrations

import "embed"

//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
