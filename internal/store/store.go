package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Suffix is appended to the distribution path to name its analysis file.
const Suffix = ".ana.db"

// analysisPragmas configure every connection to an analysis file. Ranks
// write their slices concurrently, so they wait on the lock instead of
// failing with SQLITE_BUSY.
var analysisPragmas = []string{
	"PRAGMA busy_timeout = 5000",
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
}

// migration upgrades an analysis file written by an older phasebeam.
type migration struct {
	version int
	stmt    string
}

// Analysis file layouts, keyed by PRAGMA user_version. Version 0 files
// predate the particle dump index, which inspect needs to read one slice
// without scanning the dump.
var migrations = []migration{
	{1, `CREATE INDEX IF NOT EXISTS idx_particles_slice ON particles(run, slice)`},
}

// currentSchemaVersion is the layout written by this build.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Store is an open analysis file.
type Store struct {
	db *sql.DB
}

// Open opens the analysis file at path, creating it with the current
// layout if needed. Each rank opens its own Store on the same path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open analysis file %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open analysis file %s: %w", path, err)
	}

	// one connection per rank; ranks serialize on the file lock
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare analysis file %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the analysis file.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// prepare configures the connection, creates the runs, slices and
// particles tables and brings the layout up to currentSchemaVersion.
func prepare(db *sql.DB) error {
	for _, p := range analysisPragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return migrate(db)
}

// migrate applies every migration newer than the file's user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read layout version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("upgrade layout to v%d: %w", m.version, err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("write layout version: %w", err)
	}
	return nil
}

// verifyPragma reports whether the connection runs with the expected
// pragma value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
