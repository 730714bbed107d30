// ABOUTME: Dialect-translating data gateway: one Execute entry point over MySQL or SQLite
// ABOUTME: Opens the backend lazily on first use and normalizes results to one contract

package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// Options configures a Gateway.
type Options struct {
	// Backend is decided once, normally via SelectBackend.
	Backend Backend

	// MySQL holds connection parameters for the relational-server backend.
	MySQL MySQLOptions

	// SQLitePath is the embedded database file. Empty means DefaultSQLitePath().
	SQLitePath string

	Logger  *slog.Logger
	Metrics *Metrics
}

// Gateway routes every statement to the configured backend. It owns exactly one
// pool (MySQL) or one file handle (SQLite) for the life of the process.
type Gateway struct {
	backend Backend
	opts    Options
	logger  *slog.Logger
	metrics *Metrics

	mu   sync.Mutex
	conn *sqlx.DB
}

// Ensure Gateway implements Executor.
var _ Executor = (*Gateway)(nil)

// New creates a Gateway. No connection is made until the first Execute.
func New(opts Options) *Gateway {
	if opts.Backend == "" {
		opts.Backend = SelectBackend("", opts.SQLitePath)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		backend: opts.Backend,
		opts:    opts,
		logger:  logger.With("component", "db", "backend", string(opts.Backend)),
		metrics: opts.Metrics,
	}
}

// NewFromDB wraps an already-open pool. No schema bootstrap is performed; the
// caller owns the database's lifecycle up to Close.
func NewFromDB(backend Backend, sqlDB *sql.DB, opts Options) *Gateway {
	opts.Backend = backend
	g := New(opts)
	g.conn = sqlx.NewDb(sqlDB, driverName(backend))
	return g
}

// Backend returns the backend chosen at construction.
func (g *Gateway) Backend() Backend {
	return g.backend
}

// Execute runs one statement. Reads return Rows (never nil); writes return a
// WriteResult. Constraint violations are returned as *ConstraintError.
func (g *Gateway) Execute(ctx context.Context, query string, args ...any) (Result, error) {
	conn, err := g.handle(ctx)
	if err != nil {
		return Result{}, err
	}

	if g.backend == BackendSQLite {
		query = TranslateSQLite(query)
	}
	read := IsRead(query)

	started := time.Now()
	var res Result
	if read {
		res, err = queryRows(ctx, conn, query, args)
	} else {
		res, err = execWrite(ctx, conn, query, args)
	}
	err = classifyError(g.backend, err)
	g.metrics.observe(g.backend, read, started, err)

	if err != nil {
		g.logger.Debug("statement failed", "read", read, "error", err)
		if read {
			return Result{}, fmt.Errorf("querying: %w", err)
		}
		return Result{}, fmt.Errorf("executing: %w", err)
	}
	return res, nil
}

// DB returns the underlying pool, opening it if needed.
func (g *Gateway) DB(ctx context.Context) (*sql.DB, error) {
	conn, err := g.handle(ctx)
	if err != nil {
		return nil, err
	}
	return conn.DB, nil
}

// Ping checks the backend is reachable, opening it if needed.
func (g *Gateway) Ping(ctx context.Context) error {
	conn, err := g.handle(ctx)
	if err != nil {
		return err
	}
	return conn.PingContext(ctx)
}

// Close releases the pool or file handle. A later Execute reopens it.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn == nil {
		return nil
	}
	g.logger.Info("closing database")
	err := g.conn.Close()
	g.conn = nil
	return err
}

// handle returns the open connection, initializing the backend on first use.
// A failed initialization is not cached: the error goes to this caller and the
// next call starts over.
func (g *Gateway) handle(ctx context.Context) (*sqlx.DB, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.conn != nil {
		return g.conn, nil
	}

	var (
		conn *sqlx.DB
		err  error
	)
	switch g.backend {
	case BackendMySQL:
		conn, err = openMySQL(ctx, g.opts.MySQL)
	case BackendSQLite:
		conn, err = openSQLite(ctx, g.opts.SQLitePath, g.logger)
	default:
		err = fmt.Errorf("unknown backend %q", g.backend)
	}
	if err != nil {
		g.logger.Error("database initialization failed", "error", err)
		return nil, fmt.Errorf("opening %s backend: %w", g.backend, err)
	}

	g.conn = conn
	g.logger.Info("database ready")
	return conn, nil
}

func driverName(backend Backend) string {
	if backend == BackendSQLite {
		return "sqlite"
	}
	return "mysql"
}

// queryRows runs a read and collects every row as a Record.
func queryRows(ctx context.Context, conn *sqlx.DB, query string, args []any) (Result, error) {
	rows, err := conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		rec := make(map[string]any)
		if err := rows.MapScan(rec); err != nil {
			return Result{}, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, normalizeRecord(rec))
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}
	return Result{Rows: out}, nil
}

// execWrite runs a write and builds the WriteResult. InsertedID is only taken
// for INSERT/REPLACE: SQLite reports the connection's last rowid otherwise.
func execWrite(ctx context.Context, conn *sqlx.DB, query string, args []any) (Result, error) {
	res, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}

	wr := &WriteResult{}
	if affected, err := res.RowsAffected(); err == nil {
		wr.AffectedRows = affected
	}
	switch strings.ToUpper(leadingKeyword(query)) {
	case "INSERT", "REPLACE":
		if id, err := res.LastInsertId(); err == nil {
			wr.InsertedID = id
		}
	}
	return Result{Write: wr}, nil
}
