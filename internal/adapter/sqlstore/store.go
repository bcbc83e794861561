// Package sqlstore implements the entity store on PostgreSQL, MySQL and
// SQLite through sqlx.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"gitlab.com/testhub.net/internal/config"
	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/static/errs"
)

var _ secondary.Store = (*Store)(nil)

//go:embed schema/*.sql
var schemaFS embed.FS

var errReadOnly = errors.New("write attempted in a read-only view")

type dialect struct {
	driverName string
	bindType   int
	// rowLocks is false where SELECT ... FOR UPDATE is not understood.
	rowLocks bool
	// singleConn serialises every transaction on one connection.
	singleConn bool
	readOnlyTx bool
	schemaFile string
}

var dialects = map[string]dialect{
	config.DriverPostgres: {driverName: "postgres", bindType: sqlx.DOLLAR, rowLocks: true, readOnlyTx: true, schemaFile: "schema/postgres.sql"},
	config.DriverMySQL:    {driverName: "mysql", bindType: sqlx.QUESTION, rowLocks: true, readOnlyTx: true, schemaFile: "schema/mysql.sql"},
	config.DriverSQLite:   {driverName: "sqlite", bindType: sqlx.QUESTION, singleConn: true, schemaFile: "schema/sqlite.sql"},
}

type Store struct {
	db      *sqlx.DB
	dialect dialect
	schema  string
	logger  primary.Logger
	clock   func() time.Time

	mu   sync.Mutex
	last time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// Open connects to the database described by cfg and verifies the connection.
func Open(ctx context.Context, cfg *config.DatabaseConfig, logger primary.Logger, options ...Option) (*Store, error) {
	d, ok := dialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q: %w", cfg.Driver, errs.InvalidArgument)
	}

	dsn := cfg.Url
	if cfg.Driver == config.DriverMySQL {
		var err error
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Open(d.driverName, dsn)
	if err != nil {
		logger.Error("Failed to open database", "driver", cfg.Driver, "error", err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if d.singleConn {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		logger.Error("Failed to connect to database", "driver", cfg.Driver, "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if d.singleConn {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	schema := cfg.Schema
	if cfg.Driver == config.DriverSQLite {
		schema = ""
	}

	s := &Store{
		db:      db,
		dialect: d,
		schema:  schema,
		logger:  logger,
		clock:   time.Now,
	}
	for _, option := range options {
		option(s)
	}
	logger.Info("Database connected", "driver", cfg.Driver, "schema", schema)
	return s, nil
}

// mysqlDSN forces the settings the row mapping relies on.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// Migrate creates the schema and tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	raw, err := schemaFS.ReadFile(s.dialect.schemaFile)
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	if s.schema != "" {
		create := "CREATE SCHEMA IF NOT EXISTS " + s.schema
		if s.dialect.driverName == "mysql" {
			create = "CREATE DATABASE IF NOT EXISTS " + s.schema
		}
		if _, err := s.db.ExecContext(ctx, create); err != nil {
			s.logger.Error("Failed to create schema", "schema", s.schema, "error", err)
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	prefix := ""
	if s.schema != "" {
		prefix = s.schema + "."
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		stmt = strings.ReplaceAll(stmt, "{{schema}}", prefix)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.logger.Error("Failed to apply schema", "statement", stmt, "error", err)
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	s.logger.Info("Database schema is up to date", "driver", s.dialect.driverName)
	return nil
}

func (s *Store) InTx(ctx context.Context, fn func(tx secondary.Tx) error) error {
	return s.run(ctx, nil, false, fn)
}

func (s *Store) View(ctx context.Context, fn func(tx secondary.Tx) error) error {
	var opts *sql.TxOptions
	if s.dialect.readOnlyTx {
		opts = &sql.TxOptions{ReadOnly: true}
	}
	return s.run(ctx, opts, true, fn)
}

func (s *Store) run(ctx context.Context, opts *sql.TxOptions, readOnly bool, fn func(tx secondary.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return s.failed("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&sqlTx{tx: tx, store: s, readOnly: readOnly}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return s.failed("commit transaction", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// stamp returns a timestamp strictly after every one handed out before, at
// the microsecond precision every dialect keeps.
func (s *Store) stamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.clock().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *Store) rebind(query string) string {
	return sqlx.Rebind(s.dialect.bindType, query)
}

func (s *Store) failed(action string, err error) error {
	s.logger.Error("Failed to "+action, "error", err)
	return fmt.Errorf("failed to %s: %w", action, err)
}

func newID() uuid.UUID {
	return uuid.New()
}
