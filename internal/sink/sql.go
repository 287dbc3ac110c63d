package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"tmdbtsv/internal/config"
	"tmdbtsv/internal/table"
)

// sqlSink is the shared implementation for SQLite, PostgreSQL and MySQL.
type sqlSink struct {
	driverName string
	db         *sql.DB
	dialect    dialect
	prefix     string
}

func openSQL(_ context.Context, driverName, dsn string, d dialect, prefix string) (*sqlSink, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)
	return &sqlSink{driverName: driverName, db: db, dialect: d, prefix: prefix}, nil
}

func openSQLite(ctx context.Context, cfg config.Sink) (*sqlSink, error) {
	s, err := openSQL(ctx, "sqlite", cfg.DSN, sqliteDialect, cfg.TablePrefix)
	if err != nil {
		return nil, err
	}
	// One connection keeps the pragmas in effect for every statement.
	s.db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			_ = s.db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	return s, nil
}

func (s *sqlSink) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqlSink) Load(ctx context.Context, t *table.Table) (int, error) {
	n, err := s.load(ctx, t)
	if err != nil {
		return 0, &LoadError{Relation: t.Name, Err: err}
	}
	return n, nil
}

func (s *sqlSink) load(ctx context.Context, t *table.Table) (int, error) {
	name := s.dialect.quote(s.prefix + t.Name)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return 0, fmt.Errorf("drop table: %w", err)
	}
	if len(t.Columns) == 0 {
		return 0, tx.Commit()
	}
	if _, err := tx.ExecContext(ctx, s.dialect.createTable(name, t.Columns)); err != nil {
		return 0, fmt.Errorf("create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.dialect.insert(name, t.Columns))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns))
	for i := range t.Rows {
		for j, col := range t.Columns {
			args[j] = sqlValue(t.Cell(i, col))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return t.Len(), nil
}

// sqlValue maps a cell to a driver argument. Null cells become SQL NULL.
func sqlValue(c table.Cell) any {
	if c.IsNull() {
		return nil
	}
	return c.Text
}

type dialect struct {
	quoteChar   string
	numberedArg bool
}

var (
	sqliteDialect   = dialect{quoteChar: `"`}
	postgresDialect = dialect{quoteChar: `"`, numberedArg: true}
	mysqlDialect    = dialect{quoteChar: "`"}
)

func (d dialect) quote(ident string) string {
	return d.quoteChar + strings.ReplaceAll(ident, d.quoteChar, d.quoteChar+d.quoteChar) + d.quoteChar
}

func (d dialect) placeholder(i int) string {
	if d.numberedArg {
		return fmt.Sprintf("$%d", i+1)
	}
	return "?"
}

func (d dialect) createTable(name string, columns []string) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = d.quote(col) + " TEXT"
	}
	return "CREATE TABLE " + name + " (" + strings.Join(defs, ", ") + ")"
}

func (d dialect) insert(name string, columns []string) string {
	cols := make([]string, len(columns))
	args := make([]string, len(columns))
	for i, col := range columns {
		cols[i] = d.quote(col)
		args[i] = d.placeholder(i)
	}
	return "INSERT INTO " + name + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(args, ", ") + ")"
}
