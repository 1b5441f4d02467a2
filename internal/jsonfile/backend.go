// Package jsonfile implements the JSON-file storage backend for wasteledger.
// Each table lives in its own <table>.json file holding a JSON array of
// records. Tables are loaded on first use and kept in memory as a
// write-through mirror; every mutation rewrites the whole file atomically.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

var _ types.Store = (*Backend)(nil)

// Backend implements types.Store on top of one JSON file per table.
// It assumes a single owning process; use the sqlite backend when several
// processes write the same data directory.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	tables   map[string]*table

	logger    *slog.Logger
	now       func() time.Time
	writeTemp func(path string, data []byte) (string, error)
}

// table is the resident state of one table. mu serializes writers and lets
// readers proceed concurrently between writes.
type table struct {
	name    string
	path    string
	mu      sync.RWMutex
	records []types.Record
	maxID   int64
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

// NewBackend creates a new JSON-file backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		tables:    make(map[string]*table),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		writeTemp: writeTempFile,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist and removes temp files left by an
// interrupted write. Tables are loaded lazily.
// Returns ErrAlreadyAttached if already attached.
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

	removed, err := removeStaleTemps(config.DataDir)
	if err != nil {
		return fmt.Errorf("remove stale temp files: %w", err)
	}
	for _, name := range removed {
		b.logger.Warn("removed temp file from interrupted write", "path", name)
	}

	b.config = config
	b.tables = make(map[string]*table)
	b.attached = true
	return nil
}

// Detach releases the in-memory tables. After Detach, all operations
// return ErrDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	b.tables = make(map[string]*table)
	return nil
}

// EnsureTable loads the named table if it is not resident yet. A corrupt
// table file is moved aside, the table starts empty, and the returned
// *types.CorruptDataError reports it. Only the call that loaded the table
// can return that warning.
func (b *Backend) EnsureTable(name string) error {
	_, warn, err := b.lookup(name)
	if err != nil {
		return err
	}
	if warn != nil {
		return warn
	}
	return nil
}

// Add stores a new record and persists the table before returning.
func (b *Backend) Add(tableName string, record types.Record) (types.Record, error) {
	rec, err := types.NormalizeRecord(record)
	if err != nil {
		return nil, err
	}
	t, _, err := b.lookup(tableName)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.maxID + 1
	rec[types.FieldID] = float64(id)
	rec[types.FieldCreatedAt] = b.timestamp()
	delete(rec, types.FieldUpdatedAt)

	prevMax := t.maxID
	t.records = append(t.records, rec)
	t.maxID = id

	if err := b.persist(t); err != nil {
		t.records[len(t.records)-1] = nil
		t.records = t.records[:len(t.records)-1]
		t.maxID = prevMax
		return nil, &types.PersistenceError{Table: t.name, Op: "add", Err: err}
	}

	b.logger.Debug("record added", "table", t.name, "id", id)
	return rec.Clone(), nil
}

// Update merges patch into the record with the given id and persists the
// table. Returns ErrNotFound without touching the table when the id is
// unknown.
func (b *Backend) Update(tableName string, id int64, patch types.Record) (types.Record, error) {
	p, err := types.NormalizeRecord(patch)
	if err != nil {
		return nil, err
	}
	t, _, err := b.lookup(tableName)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%s id %d: %w", t.name, id, types.ErrNotFound)
	}

	old := t.records[i]
	updated := old.Clone()
	updated.Merge(p)
	updated[types.FieldUpdatedAt] = b.timestamp()
	t.records[i] = updated

	if err := b.persist(t); err != nil {
		t.records[i] = old
		return nil, &types.PersistenceError{Table: t.name, Op: "update", Err: err}
	}

	b.logger.Debug("record updated", "table", t.name, "id", id)
	return updated.Clone(), nil
}

// Get returns the record with the given id.
func (b *Backend) Get(tableName string, id int64) (types.Record, error) {
	t, _, err := b.lookup(tableName)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	i := t.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%s id %d: %w", t.name, id, types.ErrNotFound)
	}
	return t.records[i].Clone(), nil
}

// Query returns copies of the records matching filter in insertion order.
func (b *Backend) Query(tableName string, filter types.Filter) ([]types.Record, error) {
	f, err := filter.Normalize()
	if err != nil {
		return nil, err
	}
	t, _, err := b.lookup(tableName)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]types.Record, 0, len(t.records))
	for _, rec := range t.records {
		if f.Matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

// Tables returns the names of resident tables in sorted order.
func (b *Backend) Tables() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrDetached
	}
	names := make([]string, 0, len(b.tables))
	for name := range b.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// lookup returns the resident table, loading it on first use. The warning
// is non-nil only for the call that loaded a corrupt file.
func (b *Backend) lookup(name string) (*table, *types.CorruptDataError, error) {
	if err := types.ValidateTableName(name); err != nil {
		return nil, nil, fmt.Errorf("%q: %w", name, err)
	}

	b.mu.RLock()
	if !b.attached {
		b.mu.RUnlock()
		return nil, nil, types.ErrDetached
	}
	t, ok := b.tables[name]
	b.mu.RUnlock()
	if ok {
		return t, nil, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil, nil, types.ErrDetached
	}
	if t, ok := b.tables[name]; ok {
		return t, nil, nil
	}

	t, warn, err := b.load(name)
	if err != nil {
		return nil, nil, err
	}
	b.tables[name] = t
	return t, warn, nil
}

// load reads a table from disk. A file that cannot be read is an error and
// the table stays unloaded; a file that cannot be decoded is moved aside.
// The caller must hold b.mu.
func (b *Backend) load(name string) (*table, *types.CorruptDataError, error) {
	t := &table{name: name, path: tablePath(b.config.DataDir, name)}

	data, err := readTableFile(t.path)
	if err != nil {
		return nil, nil, &types.PersistenceError{Table: name, Op: "load", Err: err}
	}
	records, err := decodeTable(t.path, data)
	if err != nil {
		warn := &types.CorruptDataError{Table: name, Path: t.path, Err: err}
		aside := fmt.Sprintf("%s.corrupt-%d", t.path, b.now().UnixNano())
		if rerr := os.Rename(t.path, aside); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			b.logger.Warn("could not move corrupt table file aside", "table", name, "path", t.path, "error", rerr)
		} else if rerr == nil {
			b.logger.Warn("moved corrupt table file aside", "table", name, "path", aside)
		}
		b.logger.Warn("table data is corrupt, starting empty", "table", name, "error", err)
		return t, warn, nil
	}

	t.records = records
	for _, rec := range records {
		if id := rec.ID(); id > t.maxID {
			t.maxID = id
		}
	}
	b.logger.Debug("table loaded", "table", name, "records", len(records))
	return t, nil, nil
}

// persist writes the table file within the configured timeout. On timeout
// the in-flight write is abandoned and never replaces the table file.
// The caller must hold t.mu for writing.
func (b *Backend) persist(t *table) error {
	data, err := encodeTable(t.records)
	if err != nil {
		return err
	}

	w := &tableWrite{path: t.path, data: data, writeTemp: b.writeTemp}
	done := make(chan error, 1)
	go func() { done <- w.run() }()

	ctx, cancel := context.WithTimeout(context.Background(), b.config.GetPersistTimeout())
	defer cancel()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if !w.abandon() {
			return <-done
		}
		b.logger.Warn("table write timed out", "table", t.name, "timeout", b.config.GetPersistTimeout())
		return fmt.Errorf("writing %s: %w", t.path, ctx.Err())
	}
}

func (b *Backend) timestamp() string {
	return b.now().UTC().Format(types.TimeFormat)
}

// indexOf returns the position of the record with the given id, or -1.
func (t *table) indexOf(id int64) int {
	for i, rec := range t.records {
		if rec.ID() == id {
			return i
		}
	}
	return -1
}
