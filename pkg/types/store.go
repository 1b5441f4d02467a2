package types

import "errors"

// Store provides durable, queryable storage for records grouped into named
// tables. Callers attach to a backend, operate on tables by name, and detach
// when done. All methods are safe for concurrent use.
type Store interface {
	// Attach connects the store to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached
	// if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, table operations return ErrDetached.
	Detach() error

	// EnsureTable makes the named table resident, loading it from durable
	// storage on first use. A missing table is created empty. An unreadable
	// table is also started empty and reported once as a *CorruptDataError;
	// the table is usable after that warning.
	EnsureTable(name string) error

	// Add stores a new record. The store assigns id (max existing id + 1)
	// and created_at, overwriting any caller-supplied values, and returns
	// the stored record.
	Add(table string, record Record) (Record, error)

	// Update merges patch into the record with the given id and refreshes
	// updated_at. Keys not mentioned in patch are kept; id and created_at in
	// patch are ignored. Returns ErrNotFound if no record has that id.
	Update(table string, id int64, patch Record) (Record, error)

	// Get returns the record with the given id or ErrNotFound.
	Get(table string, id int64) (Record, error)

	// Query returns every record matching all filter entries by exact
	// equality, in insertion order. An empty filter matches every record;
	// a filter key missing from a record is a mismatch.
	Query(table string, filter Filter) ([]Record, error)

	// Tables returns the names of resident tables in sorted order.
	Tables() ([]string, error)
}

// Store lifecycle errors.
var (
	ErrDetached        = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Table operation errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidTable  = errors.New("invalid table name")
	ErrInvalidData   = errors.New("invalid record data")
	ErrInvalidFilter = errors.New("invalid filter value")
	ErrPersistence   = errors.New("persistence failed")
	ErrCorruptData   = errors.New("table data is corrupt")
)
