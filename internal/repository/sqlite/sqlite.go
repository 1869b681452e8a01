// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside the binary as a single file.
// No separate database server to install, configure, or manage. The default
// deployment of eventhub is a single process, which is exactly SQLite's sweet spot.
// Tests use ":memory:" for a throwaway database.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go translation
// of the SQLite C code.
//
// AGGREGATES IN A RELATIONAL STORE:
// An Event owns its likes, comments (with their likes) and ratings. Each
// collection is a child table with ON DELETE CASCADE back to events, and
// uniqueness ("one like per user per event") is a composite PRIMARY KEY, so
// the database itself refuses duplicates.
//
// Every mutation goes through mutateEvent/mutateAnnouncement/mutateUser:
// load the aggregate, let the service apply its change in Go, write the whole
// aggregate back, all inside ONE transaction. The pool is limited to a single
// connection, so a transaction holds the only connection and two mutations of
// the same aggregate can never interleave (the lost-update race of a naive
// find-then-save).
package sqlite

import (
	"context"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	// BLANK-ISH IMPORT:
	// Importing modernc.org/sqlite registers the "sqlite" driver with
	// database/sql at init time. We also use its Error type to detect
	// constraint violations, hence the named import instead of `_`.
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/eventhub/internal/repository"
)

var _ repository.Store = (*DB)(nil)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// foldFunc is the SQL name of a Unicode lower-case fold. SQLite's built-in
// lower() only folds ASCII, so "über" would not match "Über" and the store
// would disagree with repository.EventFilter.Matches, which uses
// strings.ToLower. Registration applies to every connection opened later.
const foldFunc = "fold"

func init() {
	msqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, fold)
}

func fold(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%s: unsupported argument type %T", foldFunc, v)
	}
}

// DB wraps a sqlx connection pool and provides the repository methods.
//
// WHY sqlx?
// The model structs already carry `db:"..."` tags. sqlx.Get/Select scan rows
// straight into those structs, which removes the long positional Scan() calls
// while keeping plain SQL.
type DB struct {
	conn *sqlx.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/eventhub.db"  → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// ONE CONNECTION:
	// Serializes every transaction (see package doc), and keeps ":memory:"
	// databases alive: each new connection to ":memory:" would otherwise
	// get its own empty database.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a writer commits (file databases only;
	// ":memory:" silently keeps its own journal mode).
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. The cascades from events to
	// their child tables depend on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate applies the embedded SQL files in migrations/ with golang-migrate.
// Applied versions are tracked in the schema_migrations table, so this is
// safe to run on every start.
//
// NOTE: we never call m.Close(): it would close db.conn, which we still own.
func (db *DB) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db.conn.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// withTx runs fn inside a transaction. The transaction is committed only if
// fn returns nil; any error (including a domain error from a service
// callback) rolls everything back.
func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op returning sql.ErrTxDone.
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
