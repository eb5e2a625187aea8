package auth

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS exposes the embedded DDL for the users, session_tokens,
// and search_profiles tables so deployments can provision schema with their
// own migration runner.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
