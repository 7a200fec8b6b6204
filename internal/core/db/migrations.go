package db

import (
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	embedded "github.com/folio-labs/matchbook/migrations"
)

/*
 * Schema migrations for the configuration store.
 *
 * The store owns three tables (templates, mapping_templates,
 * mapping_defaults) created by per-driver SQL files embedded in the
 * binary. The runner applies pending files in filename order, each inside
 * its own transaction together with its tracking row, and records a
 * SHA256 checksum per applied file. A checksum mismatch on a later run
 * means an applied file was edited after the fact and aborts before any
 * new migration executes.
 */

// MigrationStatus is one migration's tracked state, applied or pending.
type MigrationStatus struct {
	ID          string
	Checksum    string
	Applied     bool
	AppliedAt   *time.Time
	ExecutionMs int64
}

// migration is one embedded SQL file, checksummed at load.
type migration struct {
	ID       string
	Checksum string
	SQL      string
}

// MigrateUp applies every pending migration for the connection's driver.
// Safe to run repeatedly; applied migrations are skipped.
func MigrateUp(db *sqlx.DB) error {
	migrations, err := loadMigrations(db.DriverName())
	if err != nil {
		return err
	}
	if err := ensureTrackingTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	if err := verifyAppliedChecksums(db, migrations); err != nil {
		return fmt.Errorf("migration checksum validation failed: %w", err)
	}

	applied, err := appliedMigrationIDs(db)
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.ID] {
			continue
		}
		if err := applyOne(db, m); err != nil {
			return err
		}
	}
	return nil
}

// applyOne runs one migration and its tracking row in a single
// transaction, so a failed recording never leaves a half-applied state.
func applyOne(db *sqlx.DB, m migration) error {
	start := time.Now()

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %s: %w", m.ID, err)
	}

	// lib/pq rejects multiple statements per Exec; split on semicolons.
	for _, stmt := range strings.Split(m.SQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "--") {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
	}

	if err := recordMigration(tx, m, time.Since(start)); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.ID, err)
	}
	return nil
}

// MigrateStatus reports every known migration, applied and pending, in
// application order.
func MigrateStatus(db *sqlx.DB) ([]MigrationStatus, error) {
	migrations, err := loadMigrations(db.DriverName())
	if err != nil {
		return nil, err
	}
	if err := ensureTrackingTable(db); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.Queryx("SELECT migration_id, checksum, applied_at, execution_ms FROM migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]MigrationStatus)
	for rows.Next() {
		var status MigrationStatus
		if err := rows.Scan(&status.ID, &status.Checksum, &status.AppliedAt, &status.ExecutionMs); err != nil {
			return nil, err
		}
		status.Applied = true
		applied[status.ID] = status
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		if s, ok := applied[m.ID]; ok {
			statuses = append(statuses, s)
			continue
		}
		statuses = append(statuses, MigrationStatus{ID: m.ID, Checksum: m.Checksum})
	}
	return statuses, nil
}

// loadMigrations reads the embedded SQL files for one driver, checksums
// them and sorts by filename, which doubles as the application order.
func loadMigrations(driver string) ([]migration, error) {
	var fsys embed.FS
	var dir string
	switch driver {
	case "sqlite3":
		fsys, dir = embedded.SqliteMigrations, "sqlite"
	case "postgres":
		fsys, dir = embedded.PostgresMigrations, "postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	var migrations []migration
	err := fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}
		content, err := fsys.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		migrations = append(migrations, migration{
			ID:       filepath.Base(path),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
			SQL:      string(content),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse migrations: %w", err)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].ID < migrations[j].ID
	})
	return migrations, nil
}

// ensureTrackingTable creates the migrations table if missing. The shape
// must stay in sync with the definition in 001_initial_schema.sql.
func ensureTrackingTable(db *sqlx.DB) error {
	var createSQL string
	if db.DriverName() == "sqlite3" {
		createSQL = `
			CREATE TABLE IF NOT EXISTS migrations (
				migration_id TEXT PRIMARY KEY,
				checksum TEXT NOT NULL,
				applied_at TEXT NOT NULL,
				execution_ms INTEGER NOT NULL,
				CHECK (applied_at LIKE '____-__-__T__:__:__Z')
			)
		`
	} else {
		createSQL = `
			CREATE TABLE IF NOT EXISTS migrations (
				migration_id TEXT PRIMARY KEY,
				checksum TEXT NOT NULL,
				applied_at TIMESTAMP WITHOUT TIME ZONE NOT NULL,
				execution_ms INTEGER NOT NULL
			)
		`
	}
	_, err := db.Exec(createSQL)
	return err
}

// appliedMigrationIDs returns the set of already-applied migration IDs.
func appliedMigrationIDs(db *sqlx.DB) (map[string]bool, error) {
	rows, err := db.Queryx("SELECT migration_id FROM migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		applied[id] = true
	}
	return applied, nil
}

// verifyAppliedChecksums compares every applied migration's recorded
// checksum against the embedded file it came from.
func verifyAppliedChecksums(db *sqlx.DB, migrations []migration) error {
	expected := make(map[string]string, len(migrations))
	for _, m := range migrations {
		expected[m.ID] = m.Checksum
	}

	rows, err := db.Queryx("SELECT migration_id, checksum FROM migrations")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, recorded string
		if err := rows.Scan(&id, &recorded); err != nil {
			return err
		}
		want, ok := expected[id]
		if !ok {
			return fmt.Errorf("migration %s exists in database but not in embedded files", id)
		}
		if recorded != want {
			return fmt.Errorf("checksum mismatch for migration %s: expected %s, got %s", id, want, recorded)
		}
	}
	return nil
}

// recordMigration inserts the tracking row inside the migration's own
// transaction.
func recordMigration(tx *sqlx.Tx, m migration, duration time.Duration) error {
	now := time.Now().UTC()
	if tx.DriverName() == "sqlite3" {
		_, err := tx.Exec(
			"INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)",
			m.ID, m.Checksum, now.Format(time.RFC3339), duration.Milliseconds(),
		)
		return err
	}
	_, err := tx.Exec(
		"INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES ($1, $2, $3, $4)",
		m.ID, m.Checksum, now, duration.Milliseconds(),
	)
	return err
}
