// Package pipedb implements the process-wide pipeline database described in
// the engine's concurrency model: a store for recipe parameters and the
// keyword-alias translator, populated once at recipe start and read-only for
// the remainder of the run.
package pipedb

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DevMode selects the filesystem migrations source over the embedded one;
// useful when iterating on migrations/*.sql without recompiling.
var DevMode = false

func getMigrationsFS() (fs.FS, error) {
	if DevMode {
		return os.DirFS("internal/pipedb/migrations"), nil
	}
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("sub-filesystem for embedded migrations: %w", err)
	}
	return sub, nil
}

// DB wraps a pipeline-database connection. Safe for concurrent reads once
// populated; the engine itself never mutates it mid-recipe.
type DB struct {
	*sql.DB
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}
	return nil
}

// NewDB opens (creating if necessary) the pipeline database at path and
// ensures its schema is at the latest migration.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db := &DB{sqlDB}
	if err := applyPragmas(sqlDB); err != nil {
		return nil, err
	}

	var hasMigrationsTable bool
	err = sqlDB.QueryRow(`SELECT COUNT(*) > 0 FROM sqlite_master WHERE type='table' AND name='schema_migrations'`).Scan(&hasMigrationsTable)
	if err != nil {
		return nil, fmt.Errorf("check schema_migrations: %w", err)
	}
	if hasMigrationsTable {
		migFS, err := getMigrationsFS()
		if err != nil {
			return nil, err
		}
		if err := db.MigrateUp(migFS); err != nil {
			return nil, err
		}
		return db, nil
	}

	var tableCount int
	err = sqlDB.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'`).Scan(&tableCount)
	if err != nil {
		return nil, fmt.Errorf("count tables: %w", err)
	}
	if tableCount > 0 {
		return nil, fmt.Errorf("database %s has tables but no schema_migrations entry; refusing to touch an unmanaged database", path)
	}

	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("initialise schema: %w", err)
	}
	migFS, err := getMigrationsFS()
	if err != nil {
		return nil, err
	}
	latest, err := GetLatestMigrationVersion(migFS)
	if err != nil {
		return nil, err
	}
	if err := db.BaselineAtVersion(latest); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenDB opens a connection without running schema initialisation; callers
// manage migrations explicitly (used by the migrate CLI).
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := applyPragmas(sqlDB); err != nil {
		return nil, err
	}
	return &DB{sqlDB}, nil
}

// SetParam records a recipe parameter value; overwrites any prior value.
func (db *DB) SetParam(recipe, name, value string) error {
	_, err := db.Exec(`INSERT INTO pipeline_param (recipe_name, param_name, param_value) VALUES (?, ?, ?)
		ON CONFLICT(recipe_name, param_name) DO UPDATE SET param_value = excluded.param_value`, recipe, name, value)
	return err
}

// GetParam resolves a recipe parameter; ok is false if absent.
func (db *DB) GetParam(recipe, name string) (value string, ok bool, err error) {
	row := db.QueryRow(`SELECT param_value FROM pipeline_param WHERE recipe_name = ? AND param_name = ?`, recipe, name)
	err = row.Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// AllParams returns every parameter recorded for a recipe, keyed by name.
func (db *DB) AllParams(recipe string) (map[string]string, error) {
	rows, err := db.Query(`SELECT param_name, param_value FROM pipeline_param WHERE recipe_name = ?`, recipe)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SetAlias records a mapping from an abstract descriptor alias to a concrete
// FITS keyword string (see the descriptor naming translator).
func (db *DB) SetAlias(aliasName, fitsKeyword string) error {
	_, err := db.Exec(`INSERT INTO keyword_alias (alias_name, fits_keyword) VALUES (?, ?)
		ON CONFLICT(alias_name) DO UPDATE SET fits_keyword = excluded.fits_keyword`, aliasName, fitsKeyword)
	return err
}

// AllAliases returns the complete alias_name -> fits_keyword map.
func (db *DB) AllAliases() (map[string]string, error) {
	rows, err := db.Query(`SELECT alias_name, fits_keyword FROM keyword_alias`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// RecordRunStart logs the start of a recipe invocation for provenance audits.
func (db *DB) RecordRunStart(runID, recipe string, startedUnix int64) error {
	_, err := db.Exec(`INSERT INTO recipe_run (run_id, recipe_name, started_unix) VALUES (?, ?, ?)`, runID, recipe, startedUnix)
	return err
}

// RecordRunFinish closes out a previously-started run record.
func (db *DB) RecordRunFinish(runID string, finishedUnix int64, exitStatus int, productFile string) error {
	_, err := db.Exec(`UPDATE recipe_run SET finished_unix = ?, exit_status = ?, product_file = ? WHERE run_id = ?`,
		finishedUnix, exitStatus, productFile, runID)
	return err
}
