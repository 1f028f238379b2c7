// Package sqlstore implements the catalog store and journal on SQL databases.
// Queries are built with goqu and executed through sqlx; PostgreSQL (lib/pq or
// pgx) and SQLite (modernc) are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"bookstudio/internal/catalog"
)

// Driver names a supported database driver.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverPGX      Driver = "pgx"
	DriverSQLite   Driver = "sqlite"
)

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite3"
)

var _ catalog.Store = (*Store)(nil)

// Store is a catalog.Store backed by a SQL database.
type Store struct {
	db      *sqlx.DB
	dialect string
	qb      goqu.DialectWrapper
	tracer  trace.Tracer
}

// Open connects to dsn with driver and verifies the connection.
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	var dialect string
	switch driver {
	case DriverPostgres, DriverPGX:
		dialect = dialectPostgres
	case DriverSQLite:
		dialect = dialectSQLite
		dsn = withSQLitePragmas(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if dialect == dialectSQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return New(db, dialect), nil
}

// New wraps an open database. dialect is "postgres" or "sqlite3".
func New(db *sqlx.DB, dialect string) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		qb:      goqu.Dialect(dialect),
		tracer:  otel.Tracer("bookstudio/sqlstore"),
	}
}

// DB exposes the underlying handle, for health checks.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Nationalities() catalog.Table[catalog.Nationality] {
	return &table[catalog.Nationality]{s: s, kind: catalog.KindNationality, name: "nationalities"}
}

func (s *Store) Genres() catalog.Table[catalog.Genre] {
	return &table[catalog.Genre]{s: s, kind: catalog.KindGenre, name: "genres"}
}

func (s *Store) Faculties() catalog.Table[catalog.Faculty] {
	return &table[catalog.Faculty]{s: s, kind: catalog.KindFaculty, name: "faculties"}
}

func (s *Store) Publishers() catalog.Table[catalog.Publisher] {
	return &table[catalog.Publisher]{s: s, kind: catalog.KindPublisher, name: "publishers"}
}

func (s *Store) Courses() catalog.Table[catalog.Course] {
	return &table[catalog.Course]{s: s, kind: catalog.KindCourse, name: "courses"}
}

func (s *Store) Authors() catalog.Table[catalog.Author] {
	return &table[catalog.Author]{s: s, kind: catalog.KindAuthor, name: "authors"}
}

func (s *Store) Books() catalog.Table[catalog.Book] {
	return &table[catalog.Book]{s: s, kind: catalog.KindBook, name: "books"}
}

func (s *Store) Locations() catalog.Table[catalog.Location] {
	return &locations{s: s}
}

func (s *Store) Students() catalog.Table[catalog.Student] {
	return &table[catalog.Student]{s: s, kind: catalog.KindStudent, name: "students"}
}

func (s *Store) Reservations() catalog.Table[catalog.Reservation] {
	return &table[catalog.Reservation]{s: s, kind: catalog.KindReservation, name: "reservations"}
}

// inTx runs fn in one read-committed transaction. Writers of the same record
// queue on its lock, so the last one to commit wins.
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", mapError(err))
	}
	return nil
}

// lockRow locks row id of table until tx ends. A missing row is
// catalog.ErrNotFound. SQLite runs on one connection, so its writers are
// already serialized.
func (s *Store) lockRow(ctx context.Context, tx *sqlx.Tx, table string, id int64) error {
	if s.dialect != dialectPostgres {
		return nil
	}
	query, args, err := s.qb.From(table).Select("id").
		Where(goqu.C("id").Eq(id)).
		ForUpdate(exp.Wait).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build lock: %w", err)
	}
	var locked int64
	if err := sqlx.GetContext(ctx, tx, &locked, query, args...); err != nil {
		return mapError(err)
	}
	return nil
}

// lockKey takes a transaction-scoped advisory lock on key, for rows that do
// not exist yet.
func (s *Store) lockKey(ctx context.Context, tx *sqlx.Tx, key string) error {
	if s.dialect != dialectPostgres {
		return nil
	}
	query, args, err := s.qb.Select(goqu.L("pg_advisory_xact_lock(hashtextextended(?, 0))", key)).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build advisory lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("advisory lock %s: %w", key, err)
	}
	return nil
}

// withSQLitePragmas turns on foreign keys and a busy timeout unless the DSN
// already sets pragmas.
func withSQLitePragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// isUniqueViolation reports whether err is a unique-key violation from any
// supported driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// mapError translates driver errors into catalog sentinels.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return catalog.ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", catalog.ErrDuplicate, err)
	}
	return err
}
