package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/cegidsync/cegidsync/internal/model"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// maxParams bounds the placeholders in one INSERT statement. SQLite's
// default limit is 32766 and Postgres' is 65535.
const maxParams = 30000

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// SQL is a Store backed by database/sql.
type SQL struct {
	db *sqlx.DB
}

var _ Store = (*SQL)(nil)

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*SQL, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q (expected %s or %s)", driver, DriverPostgres, DriverSQLite)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer at a time; avoids "database is locked" between the
		// unit of work and read-side queries.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", driver, err)
	}
	return &SQL{db: db}, nil
}

// NewSQL wraps an existing connection, e.g. one created by sqlmock.
func NewSQL(db *sql.DB, driver string) *SQL {
	return &SQL{db: sqlx.NewDb(db, driver)}
}

// DB exposes the underlying connection for migrations.
func (s *SQL) DB() *sql.DB { return s.db.DB }

// Driver returns the database/sql driver name.
func (s *SQL) Driver() string { return s.db.DriverName() }

// Close closes the connection pool.
func (s *SQL) Close() error { return s.db.Close() }

// Begin starts a unit of work.
func (s *SQL) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &sqlTx{tx: tx}, nil
}

// Count returns the number of rows in table.
func (s *SQL) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+quoteIdent(table)); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

type sqlTx struct {
	tx   *sqlx.Tx
	done bool
}

func (t *sqlTx) Clear(ctx context.Context, table string) (int64, error) {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM "+quoteIdent(table))
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete from %s: rows affected: %w", table, err)
	}
	return n, nil
}

func (t *sqlTx) Insert(ctx context.Context, table string, columns []string, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}
	if len(columns) == 0 {
		return fmt.Errorf("insert into %s: no columns", table)
	}

	perStmt := maxParams / len(columns)
	for start := 0; start < len(records); start += perStmt {
		end := min(start+perStmt, len(records))
		chunk := records[start:end]

		query, args := insertStatement(table, columns, chunk)
		if _, err := t.tx.ExecContext(ctx, t.tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return nil
}

func (t *sqlTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	t.done = true
	return nil
}

// Rollback is a no-op after Commit.
func (t *sqlTx) Rollback() error {
	if t.done {
		return nil
	}
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	t.done = true
	return nil
}

// insertStatement builds a multi-row INSERT with '?' placeholders.
func insertStatement(table string, columns []string, records []model.Record) (string, []any) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	row := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quoteIdent(table))
	b.WriteString(" (")
	b.WriteString(strings.Join(quoted, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(records)*len(columns))
	for i, rec := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(row)
		args = append(args, rec.Values(columns)...)
	}
	return b.String(), args
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
