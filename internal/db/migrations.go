package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type migration struct {
	version int
	name    string
	up      string
	down    string
}

// RunMigrations applies all pending migrations to the database at dbPath.
func RunMigrations(ctx context.Context, dbPath string) error {
	return runMigrate(ctx, dbPath, false)
}

// RollbackMigrations rolls back all applied migrations.
func RollbackMigrations(ctx context.Context, dbPath string) error {
	return runMigrate(ctx, dbPath, true)
}

// CurrentVersion returns the highest applied migration version.
func CurrentVersion(ctx context.Context, dbPath string) (int, error) {
	db, err := open(dbPath)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	if err := ensureVersionTable(ctx, db); err != nil {
		return 0, err
	}
	version, _, err := currentVersion(ctx, db)
	return version, err
}

func runMigrate(ctx context.Context, dbPath string, down bool) error {
	db, err := open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return migrate(ctx, db, down)
}

func ensureVersionTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			dirty INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	return nil
}

func currentVersion(ctx context.Context, db *sql.DB) (version int, dirty bool, err error) {
	var d int
	err = db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0), COALESCE(MAX(dirty), 0) FROM schema_migrations`,
	).Scan(&version, &d)
	if err != nil {
		return 0, false, fmt.Errorf("get current version: %w", err)
	}
	return version, d != 0, nil
}

// loadMigrations reads NNN_name.{up,down}.sql files in version order.
func loadMigrations() ([]*migration, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	byVersion := make(map[int]*migration)
	for _, entry := range entries {
		name := entry.Name()
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}

		m := byVersion[version]
		if m == nil {
			m = &migration{version: version}
			byVersion[version] = m
		}
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			m.up = string(content)
			m.name = strings.TrimSuffix(name, ".up.sql")
		case strings.HasSuffix(name, ".down.sql"):
			m.down = string(content)
		}
	}

	migrations := make([]*migration, 0, len(byVersion))
	for _, m := range byVersion {
		migrations = append(migrations, m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].version < migrations[j].version })
	return migrations, nil
}

func migrate(ctx context.Context, db *sql.DB, down bool) error {
	if err := ensureVersionTable(ctx, db); err != nil {
		return err
	}
	current, dirty, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d, manual intervention required", current)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	if down {
		for i := len(migrations) - 1; i >= 0; i-- {
			m := migrations[i]
			if m.version > current {
				continue
			}
			if m.down == "" {
				return fmt.Errorf("no down migration for version %d", m.version)
			}
			if err := step(ctx, db, m.version, m.down, `DELETE FROM schema_migrations WHERE version = ?`); err != nil {
				return fmt.Errorf("roll back %s: %w", m.name, err)
			}
		}
		return nil
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if m.up == "" {
			return fmt.Errorf("no up migration for version %d", m.version)
		}
		if err := step(ctx, db, m.version, m.up, `UPDATE schema_migrations SET dirty = 0 WHERE version = ?`); err != nil {
			return fmt.Errorf("apply %s: %w", m.name, err)
		}
	}
	return nil
}

// step marks version dirty, runs script, then finishes with the given statement.
// A failure leaves the version dirty.
func step(ctx context.Context, db *sql.DB, version int, script, finish string) error {
	if _, err := db.ExecContext(ctx, `INSERT OR REPLACE INTO schema_migrations (version, dirty) VALUES (?, 1)`, version); err != nil {
		return fmt.Errorf("mark version %d as dirty: %w", version, err)
	}
	if _, err := db.ExecContext(ctx, script); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, finish, version); err != nil {
		return fmt.Errorf("record version %d: %w", version, err)
	}
	return nil
}
