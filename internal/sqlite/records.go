package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

// EnsureTable registers the table and checks its stored rows. Rows that do
// not decode to a record are reported once per Attach as a
// *types.CorruptDataError; queries skip them.
func (b *Backend) EnsureTable(name string) error {
	db, ctx, release, err := b.session(name)
	if err != nil {
		return err
	}
	defer release()

	if _, err := db.ExecContext(ctx, sqlRegisterTable, name); err != nil {
		return fmt.Errorf("register table %s: %w", name, err)
	}

	b.ensuredMu.Lock()
	defer b.ensuredMu.Unlock()
	if b.ensured[name] {
		return nil
	}

	rows, err := db.QueryContext(ctx, sqlSelectTable, name)
	if err != nil {
		return fmt.Errorf("load table %s: %w", name, err)
	}
	defer rows.Close()

	var bad []int64
	count := 0
	for rows.Next() {
		var id int64
		var data string
		if err := rows.Scan(&id, &data); err != nil {
			return fmt.Errorf("scan %s: %w", name, err)
		}
		if _, err := decodeRecord(data); err != nil {
			bad = append(bad, id)
			continue
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load table %s: %w", name, err)
	}

	b.ensured[name] = true
	b.logger.Debug("table loaded", "table", name, "records", count)
	if len(bad) > 0 {
		b.logger.Warn("table has undecodable rows", "table", name, "ids", bad)
		return &types.CorruptDataError{
			Table: name,
			Err:   fmt.Errorf("%d undecodable rows, ids %v", len(bad), bad),
		}
	}
	return nil
}

// Add stores a new record with id = max id + 1 inside one immediate
// transaction.
func (b *Backend) Add(table string, record types.Record) (types.Record, error) {
	rec, err := types.NormalizeRecord(record)
	if err != nil {
		return nil, err
	}
	db, ctx, release, err := b.session(table)
	if err != nil {
		return nil, err
	}
	defer release()

	persistErr := func(err error) error {
		return &types.PersistenceError{Table: table, Op: "add", Err: err}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr(err)
	}
	defer tx.Rollback()

	var maxID int64
	if err := tx.QueryRowContext(ctx, sqlMaxID, table).Scan(&maxID); err != nil {
		return nil, persistErr(err)
	}
	id := maxID + 1
	rec[types.FieldID] = float64(id)
	rec[types.FieldCreatedAt] = b.timestamp()
	delete(rec, types.FieldUpdatedAt)

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	if _, err := tx.ExecContext(ctx, sqlRegisterTable, table); err != nil {
		return nil, persistErr(err)
	}
	if _, err := tx.ExecContext(ctx, sqlInsertRecord, table, id, string(data)); err != nil {
		return nil, persistErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, persistErr(err)
	}

	b.logger.Debug("record added", "table", table, "id", id)
	return rec, nil
}

// Update merges patch into the stored record inside one immediate
// transaction.
func (b *Backend) Update(table string, id int64, patch types.Record) (types.Record, error) {
	p, err := types.NormalizeRecord(patch)
	if err != nil {
		return nil, err
	}
	db, ctx, release, err := b.session(table)
	if err != nil {
		return nil, err
	}
	defer release()

	persistErr := func(err error) error {
		return &types.PersistenceError{Table: table, Op: "update", Err: err}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr(err)
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx, sqlSelectRecord, table, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s id %d: %w", table, id, types.ErrNotFound)
	}
	if err != nil {
		return nil, persistErr(err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, &types.CorruptDataError{Table: table, Err: fmt.Errorf("id %d: %w", id, err)}
	}

	rec.Merge(p)
	rec[types.FieldUpdatedAt] = b.timestamp()

	out, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	if _, err := tx.ExecContext(ctx, sqlUpdateRecord, string(out), table, id); err != nil {
		return nil, persistErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, persistErr(err)
	}

	b.logger.Debug("record updated", "table", table, "id", id)
	return rec, nil
}

// Get returns the record with the given id.
func (b *Backend) Get(table string, id int64) (types.Record, error) {
	db, ctx, release, err := b.session(table)
	if err != nil {
		return nil, err
	}
	defer release()

	var data string
	err = db.QueryRowContext(ctx, sqlSelectRecord, table, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s id %d: %w", table, id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s id %d: %w", table, id, err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, &types.CorruptDataError{Table: table, Err: fmt.Errorf("id %d: %w", id, err)}
	}
	return rec, nil
}

// Query returns the records matching filter in id order, which is insertion
// order because ids only grow.
func (b *Backend) Query(table string, filter types.Filter) ([]types.Record, error) {
	f, err := filter.Normalize()
	if err != nil {
		return nil, err
	}
	db, ctx, release, err := b.session(table)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx, sqlSelectTable, table)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	out := []types.Record{}
	for rows.Next() {
		var id int64
		var data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			b.logger.Warn("skipping undecodable row", "table", table, "id", id, "error", err)
			continue
		}
		if f.Matches(rec) {
			out = append(out, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	return out, nil
}

// Tables returns every table that has been ensured or written, sorted.
func (b *Backend) Tables() ([]string, error) {
	db, ctx, release, err := b.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx, sqlListTables)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// decodeRecord parses a stored row. Rows must be JSON objects with a valid id.
func decodeRecord(data string) (types.Record, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("row is not an object")
	}
	rec := types.Record(obj)
	if rec.ID() == 0 {
		return nil, errors.New("row has no valid id")
	}
	return rec, nil
}
