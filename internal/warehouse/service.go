// Package warehouse runs catalog statements against Redshift, Snowflake or
// Postgres over a single pinned connection.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"songplaydw/internal/catalog"
	"songplaydw/pkg/errors"
	"songplaydw/pkg/models"
)

// Service provides warehouse operations. Every method runs on the same
// connection, so statements observe each other's committed effects in order.
type Service struct {
	db        *sql.DB
	conn      *sql.Conn
	config    Config
	connected bool
}

// NewService creates a new warehouse service
func NewService(config Config) *Service {
	return &Service{config: config}
}

// Connect opens the database, checks it is reachable and pins one connection.
func (s *Service) Connect(ctx context.Context) error {
	if s.connected {
		return nil
	}

	dsn, err := s.config.DSN()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "Invalid connection settings").
			WithContext("dialect", s.config.Dialect)
	}

	db, err := sql.Open(s.config.DriverName(), dsn)
	if err != nil {
		return connectError(s.config, err)
	}
	if err := s.attach(ctx, db); err != nil {
		db.Close()
		return err
	}
	return nil
}

// NewWithDB wraps an already opened database.
func NewWithDB(ctx context.Context, db *sql.DB, config Config) (*Service, error) {
	s := NewService(config)
	if err := s.attach(ctx, db); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) attach(ctx context.Context, db *sql.DB) error {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		return connectError(s.config, err)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return connectError(s.config, err)
	}

	s.db = db
	s.conn = conn
	s.connected = true
	return nil
}

// Close releases the pinned connection and the database.
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}
	s.connected = false

	if err := s.conn.Close(); err != nil && err != sql.ErrConnDone {
		s.db.Close()
		return fmt.Errorf("failed to close connection: %w", err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Config returns the connection settings.
func (s *Service) Config() Config {
	return s.config
}

// Execer runs one statement.
type Execer interface {
	Exec(ctx context.Context, stmt catalog.Statement) error
}

// Exec runs one statement in its own transaction and commits it.
func (s *Service) Exec(ctx context.Context, stmt catalog.Statement) error {
	return s.Atomic(ctx, func(tx Execer) error {
		return tx.Exec(ctx, stmt)
	})
}

// Atomic runs fn inside one transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (s *Service) Atomic(ctx context.Context, fn func(tx Execer) error) error {
	if err := s.ensureConnected(); err != nil {
		return err
	}

	sqlTx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to begin transaction")
	}

	tx := &Tx{tx: sqlTx, config: s.config}
	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return errors.Wrap(err, errors.GetErrorCode(err), "Rollback failed after error").
				WithContext("rollback_error", rbErr.Error())
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to commit transaction")
	}
	return nil
}

// Count runs a single-scalar query and returns its value.
func (s *Service) Count(ctx context.Context, stmt catalog.Statement) (int64, error) {
	if err := s.ensureConnected(); err != nil {
		return 0, err
	}

	ctx, cancel := s.config.statementContext(ctx)
	defer cancel()

	var n int64
	if err := s.conn.QueryRowContext(ctx, stmt.SQL).Scan(&n); err != nil {
		if err == sql.ErrNoRows {
			return 0, errors.New(errors.ErrCodeNoResults, stmt.Name+" returned no rows").
				WithContext("table", stmt.Table)
		}
		return 0, statementError(stmt, err)
	}
	return n, nil
}

// CopyFrom streams rows into stmt.Table with COPY ... FROM STDIN. It needs the
// pgx driver and therefore a Redshift-compatible or Postgres engine.
func (s *Service) CopyFrom(ctx context.Context, stmt catalog.Statement, columns []string, src pgx.CopyFromSource) (int64, error) {
	if err := s.ensureConnected(); err != nil {
		return 0, err
	}
	if s.config.Dialect == models.DialectSnowflake {
		return 0, errors.New(errors.ErrCodeBulkLoadFailed, "Client-side copy is not available on snowflake").
			WithContext("table", stmt.Table)
	}

	// Unquoted identifiers in the DDL fold to lower case.
	folded := make([]string, len(columns))
	for i, c := range columns {
		folded[i] = strings.ToLower(c)
	}

	ctx, cancel := s.config.statementContext(ctx)
	defer cancel()

	var rows int64
	err := s.conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("client-side copy needs the pgx driver, got %T", driverConn)
		}
		var err error
		rows, err = c.Conn().CopyFrom(ctx, pgx.Identifier{stmt.Table}, folded, src)
		return err
	})
	if err != nil {
		return rows, statementError(stmt, err)
	}
	return rows, nil
}

func (s *Service) ensureConnected() error {
	if !s.connected {
		return errors.New(errors.ErrCodeNotConnected, "Not connected to the warehouse").
			WithSuggestions("Call Connect() before executing statements")
	}
	return nil
}

// Tx is an open transaction on the pinned connection.
type Tx struct {
	tx     *sql.Tx
	config Config
}

// Exec runs one statement inside the transaction.
func (t *Tx) Exec(ctx context.Context, stmt catalog.Statement) error {
	ctx, cancel := t.config.statementContext(ctx)
	defer cancel()

	if _, err := t.tx.ExecContext(ctx, stmt.SQL); err != nil {
		return statementError(stmt, err)
	}
	return nil
}

func (c Config) statementContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.StatementTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.StatementTimeout)
}
