// Package migrations embeds the numbered .sql files in this directory and
// applies any that haven't run yet. The teacher repo carries no migration
// tool of its own; this is the lightest runner that keeps a fresh database
// self-provisioning at startup.
package migrations

import (
	"context"
	"embed"
	"sort"

	"github.com/qhato/taxorders/pkg/database"
	"github.com/qhato/taxorders/pkg/logger"
)

//go:embed *.sql
var files embed.FS

// Run applies every .sql file in name order, recording applied filenames in
// schema_migrations so repeated calls (every process start) are no-ops.
func Run(ctx context.Context, db *database.DB) error {
	if _, err := db.Pool().Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return err
	}

	entries, err := files.ReadDir(".")
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		var exists bool
		if err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, name).Scan(&exists); err != nil {
			return err
		}
		if exists {
			continue
		}

		contents, err := files.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := db.Pool().Exec(ctx, string(contents)); err != nil {
			return err
		}
		if _, err := db.Pool().Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name); err != nil {
			return err
		}
		logger.WithField("migration", name).Info("applied migration")
	}
	return nil
}
