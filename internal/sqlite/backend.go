// Package sqlite implements the SQLite storage backend for wasteledger.
// All tables share one database file. Every write runs in an immediate
// transaction with a busy timeout, so several processes can share a data
// directory and still get unique, contiguous ids.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

var _ types.Store = (*Backend)(nil)

// Backend implements types.Store using SQLite as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB

	// ensured records tables already checked by EnsureTable since Attach.
	ensuredMu sync.Mutex
	ensured   map[string]bool

	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for load and persistence diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock sets the time source for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		ensured: make(map[string]bool),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// dsn builds the connection string: immediate transactions so writers take
// the database lock before reading the max id, a busy timeout matching the
// persist timeout, and WAL so readers do not block writers.
func dsn(path string, timeout time.Duration) string {
	q := url.Values{}
	q.Set("_txlock", "immediate")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", timeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	return path + "?" + q.Encode()
}

// Attach opens (creating if needed) DataDir/ledger.db and applies the
// schema. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	if config.DataDir == "" {
		config.DataDir = "."
	}
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(config.DataDir, dbFileName)
	db, err := sql.Open("sqlite", dsn(dbPath, config.GetPersistTimeout()))
	if err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}
	// One connection serializes this process's statements; the immediate
	// transaction lock serializes processes.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), config.GetPersistTimeout())
	defer cancel()
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	b.db = db
	b.config = config
	b.ensured = make(map[string]bool)
	b.attached = true
	b.logger.Debug("sqlite backend attached", "path", dbPath)
	return nil
}

// Detach closes the database. After Detach, all operations return
// ErrDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	return nil
}

// session validates the table name and returns the database handle and a
// context bounded by the persist timeout. The caller must call the returned
// release func, which also cancels the context.
func (b *Backend) session(table string) (*sql.DB, context.Context, func(), error) {
	if err := types.ValidateTableName(table); err != nil {
		return nil, nil, nil, fmt.Errorf("%q: %w", table, err)
	}
	return b.acquire()
}

// acquire is session for operations that span every table.
func (b *Backend) acquire() (*sql.DB, context.Context, func(), error) {
	b.mu.RLock()
	if !b.attached {
		b.mu.RUnlock()
		return nil, nil, nil, types.ErrDetached
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.config.GetPersistTimeout())
	release := func() {
		cancel()
		b.mu.RUnlock()
	}
	return b.db, ctx, release, nil
}

func (b *Backend) timestamp() string {
	return b.now().UTC().Format(types.TimeFormat)
}
