package types

import "fmt"

// PersistenceError reports a failed table read or write. After a failed
// write the in-memory table has been restored to its state before the
// operation. It matches ErrPersistence under errors.Is and unwraps to the
// underlying I/O error.
type PersistenceError struct {
	Table string
	Op    string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: storage: %v", e.Op, e.Table, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is reports whether target is ErrPersistence.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// CorruptDataError is the warning returned when a table's stored data could
// not be parsed. The table has been started empty and remains usable.
type CorruptDataError struct {
	Table string
	Path  string
	Err   error
}

func (e *CorruptDataError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("table %s: corrupt data: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("table %s: corrupt data in %s: %v", e.Table, e.Path, e.Err)
}

func (e *CorruptDataError) Unwrap() error { return e.Err }

// Is reports whether target is ErrCorruptData.
func (e *CorruptDataError) Is(target error) bool { return target == ErrCorruptData }
