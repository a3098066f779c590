package store

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

// Reset rolls back every migration and reapplies them, leaving an empty store.
func (s *Store) Reset(ctx context.Context) error {
	if s.readOnly {
		return fmt.Errorf("reset: store opened read-only")
	}
	if err := migrate(ctx, s.db, true); err != nil {
		return err
	}
	return migrate(ctx, s.db, false)
}

func migrate(ctx context.Context, db *sql.DB, down bool) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			dirty INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	var dirty int
	err = db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0), COALESCE(MAX(dirty), 0) FROM schema_migrations`).Scan(&currentVersion, &dirty)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	if dirty != 0 {
		return fmt.Errorf("store is in dirty state at version %d, delete the file to recover", currentVersion)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	var versions []int
	for v := range migrations {
		versions = append(versions, v)
	}
	sort.Ints(versions)

	if down {
		sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	}

	for _, v := range versions {
		m := migrations[v]
		if down && v > currentVersion || !down && v <= currentVersion {
			continue
		}

		script := m.up
		if down {
			script = m.down
		}
		if script == "" {
			return fmt.Errorf("migration %d (%s) has no script for this direction", v, m.name)
		}

		if _, err := db.ExecContext(ctx, `INSERT OR REPLACE INTO schema_migrations (version, dirty) VALUES (?, 1)`, v); err != nil {
			return fmt.Errorf("mark version %d as dirty: %w", v, err)
		}

		if _, err := db.ExecContext(ctx, script); err != nil {
			return fmt.Errorf("run migration %d: %w", v, err)
		}

		if down {
			_, err = db.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = ?`, v)
		} else {
			_, err = db.ExecContext(ctx, `UPDATE schema_migrations SET dirty = 0 WHERE version = ?`, v)
		}
		if err != nil {
			return fmt.Errorf("record version %d: %w", v, err)
		}
	}

	return nil
}

func loadMigrations() (map[int]*migration, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	migrations := make(map[int]*migration)
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		var version int
		var suffix string
		if _, err := fmt.Sscanf(name, "%d_%s", &version, &suffix); err != nil {
			continue
		}

		if migrations[version] == nil {
			migrations[version] = &migration{version: version}
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}

		if strings.HasSuffix(name, ".up.sql") {
			migrations[version].up = string(content)
			migrations[version].name = strings.TrimSuffix(name, ".up.sql")
		} else if strings.HasSuffix(name, ".down.sql") {
			migrations[version].down = string(content)
		}
	}
	return migrations, nil
}

func isMissingTable(err error) bool {
	return strings.Contains(err.Error(), "no such table")
}
