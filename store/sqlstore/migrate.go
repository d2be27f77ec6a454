package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"path"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/chaincashlabs/chaincash/internal/chainlog"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var migrateLog = chainlog.New("sqlstore.migrate")

// migrate applies every migration under migrations/ that hasn't run yet, in
// filename order, each in its own transaction.
func migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (name TEXT PRIMARY KEY)`); err != nil {
		return fmt.Errorf("sqlstore: create schema_migrations: %w", err)
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("sqlstore: read embedded migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var applied int
		if err := db.GetContext(ctx, &applied, `SELECT COUNT(1) FROM schema_migrations WHERE name = ?`, name); err != nil {
			return fmt.Errorf("sqlstore: check migration %s: %w", name, err)
		}
		if applied > 0 {
			continue
		}

		sqlBytes, err := migrationFS.ReadFile(path.Join("migrations", name))
		if err != nil {
			return fmt.Errorf("sqlstore: read migration %s: %w", name, err)
		}

		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("sqlstore: begin migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlstore: apply migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(name) VALUES (?)`, name); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlstore: record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("sqlstore: commit migration %s: %w", name, err)
		}
		migrateLog.Info("applied migration", "name", name)
	}
	return nil
}
