// Package storetest holds the behavioral contract every types.Store backend
// must satisfy. Backend packages call Run from their own tests.
package storetest

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

// Factory returns a new, unattached store.
type Factory func() types.Store

// Run executes the contract suite against stores produced by newStore,
// attached with the given backend name.
func Run(t *testing.T, backend string, newStore Factory) {
	h := harness{backend: backend, newStore: newStore}

	t.Run("sequential adds assign 1..n", h.testSequentialIDs)
	t.Run("concurrent adds assign unique contiguous ids", h.testConcurrentAdds)
	t.Run("tables assign ids independently", h.testIndependentTables)
	t.Run("add sets created_at and ignores caller id", h.testAddReservedFields)
	t.Run("update merges and refreshes updated_at", h.testUpdateMerges)
	t.Run("update on missing id returns ErrNotFound", h.testUpdateMissing)
	t.Run("update cannot change id", h.testUpdateIgnoresID)
	t.Run("records survive reattach", h.testRoundTrip)
	t.Run("query preserves insertion order and filters", h.testQuery)
	t.Run("query with unknown key matches nothing", h.testQueryMissingKey)
	t.Run("get returns ErrNotFound for missing id", h.testGetMissing)
	t.Run("ensure table is idempotent", h.testEnsureTableIdempotent)
	t.Run("returned records are copies", h.testCopies)
	t.Run("invalid table names are rejected", h.testInvalidTable)
	t.Run("detached store rejects operations", h.testDetached)
	t.Run("attach twice fails", h.testAttachTwice)
	t.Run("family status scenario", h.testFamilyScenario)
	t.Run("concurrent readers and writers", h.testReadersAndWriters)
}

type harness struct {
	backend  string
	newStore Factory
}

func (h harness) config(dir string) types.Config {
	return types.Config{Backend: h.backend, DataDir: dir}
}

// open attaches a fresh store to a new temp directory.
func (h harness) open(t *testing.T) (types.Store, string) {
	t.Helper()
	dir := t.TempDir()
	return h.attach(t, dir), dir
}

func (h harness) attach(t *testing.T, dir string) types.Store {
	t.Helper()
	s := h.newStore()
	require.NoError(t, s.Attach(h.config(dir)))
	t.Cleanup(func() { s.Detach() })
	return s
}

func (h harness) testSequentialIDs(t *testing.T) {
	s, _ := h.open(t)

	const n = 25
	for i := 1; i <= n; i++ {
		rec, err := s.Add(types.FamiliesTable, types.Record{"family_name": fmt.Sprintf("family-%d", i)})
		require.NoError(t, err)
		assert.Equal(t, int64(i), rec.ID())
	}

	all, err := s.Query(types.FamiliesTable, nil)
	require.NoError(t, err)
	require.Len(t, all, n)
	for i, rec := range all {
		assert.Equal(t, int64(i+1), rec.ID())
	}
}

func (h harness) testConcurrentAdds(t *testing.T) {
	s, _ := h.open(t)

	const n = 64
	ids := make(chan int64, n)
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := s.Add(types.CollectionsTable, types.Record{"worker": i})
			if err != nil {
				errs <- err
				return
			}
			ids <- rec.ID()
		}(i)
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := make(map[int64]bool, n)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	require.Len(t, seen, n)
	for i := int64(1); i <= n; i++ {
		assert.True(t, seen[i], "missing id %d", i)
	}

	all, err := s.Query(types.CollectionsTable, nil)
	require.NoError(t, err)
	assert.Len(t, all, n)
}

func (h harness) testIndependentTables(t *testing.T) {
	s, _ := h.open(t)

	for i := 0; i < 3; i++ {
		_, err := s.Add(types.WorkersTable, types.Record{"name": "w"})
		require.NoError(t, err)
	}
	rec, err := s.Add(types.VehiclesTable, types.Record{"plate": "MH12AB1234"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID())
}

func (h harness) testAddReservedFields(t *testing.T) {
	s, _ := h.open(t)

	before := time.Now().Add(-time.Second)
	rec, err := s.Add(types.WorkersTable, types.Record{
		"id":         42,
		"updated_at": "yesterday",
		"name":       "Meena",
		"shift":      "morning",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), rec.ID())
	assert.NotContains(t, rec, types.FieldUpdatedAt)
	created, err := time.Parse(types.TimeFormat, rec.Text(types.FieldCreatedAt))
	require.NoError(t, err)
	assert.True(t, created.After(before), "created_at %v should be recent", created)
	assert.Equal(t, "Meena", rec["name"])
}

func (h harness) testUpdateMerges(t *testing.T) {
	s, _ := h.open(t)

	rec, err := s.Add(types.RewardsFinesTable, types.Record{
		"family_id": 7,
		"kind":      "fine",
		"amount":    250,
		"status":    "issued",
	})
	require.NoError(t, err)

	updated, err := s.Update(types.RewardsFinesTable, rec.ID(), types.Record{
		"status":     "paid",
		"paid_via":   "upi",
		"created_at": "1999-01-01T00:00:00Z",
	})
	require.NoError(t, err)

	assert.Equal(t, "paid", updated["status"])
	assert.Equal(t, "upi", updated["paid_via"])
	assert.Equal(t, float64(250), updated["amount"], "untouched fields are kept")
	assert.Equal(t, rec[types.FieldCreatedAt], updated[types.FieldCreatedAt], "created_at is immutable")
	_, err = time.Parse(types.TimeFormat, updated.Text(types.FieldUpdatedAt))
	require.NoError(t, err)

	got, err := s.Get(types.RewardsFinesTable, rec.ID())
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func (h harness) testUpdateMissing(t *testing.T) {
	s, _ := h.open(t)

	_, err := s.Add(types.FamiliesTable, types.Record{"family_name": "Iyer"})
	require.NoError(t, err)
	before, err := s.Query(types.FamiliesTable, nil)
	require.NoError(t, err)

	_, err = s.Update(types.FamiliesTable, 99, types.Record{"status": "suspended"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNotFound))
	assert.False(t, errors.Is(err, types.ErrPersistence))

	after, err := s.Query(types.FamiliesTable, nil)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func (h harness) testUpdateIgnoresID(t *testing.T) {
	s, _ := h.open(t)

	rec, err := s.Add(types.FamiliesTable, types.Record{"family_name": "Das"})
	require.NoError(t, err)

	updated, err := s.Update(types.FamiliesTable, rec.ID(), types.Record{"id": 999})
	require.NoError(t, err)
	assert.Equal(t, rec.ID(), updated.ID())

	_, err = s.Get(types.FamiliesTable, 999)
	assert.True(t, errors.Is(err, types.ErrNotFound))

	next, err := s.Add(types.FamiliesTable, types.Record{"family_name": "Sen"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.ID())
}

func (h harness) testRoundTrip(t *testing.T) {
	s, dir := h.open(t)

	stored, err := s.Add(types.CommunityReportsTable, types.Record{
		"reporter":   "anonymous",
		"location":   map[string]any{"lat": 18.52, "lng": 73.85},
		"categories": []string{"dumping", "burning"},
		"urgent":     true,
		"photos":     0,
	})
	require.NoError(t, err)
	stored, err = s.Update(types.CommunityReportsTable, stored.ID(), types.Record{"status": "assigned"})
	require.NoError(t, err)
	require.NoError(t, s.Detach())

	reopened := h.attach(t, dir)
	got, err := reopened.Query(types.CommunityReportsTable, types.Filter{"id": stored.ID()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stored, got[0])

	next, err := reopened.Add(types.CommunityReportsTable, types.Record{"reporter": "ward office"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.ID(), "id sequence continues after reattach")
}

func (h harness) testQuery(t *testing.T) {
	s, _ := h.open(t)

	statuses := []string{"active", "inactive", "active", "", "active"}
	for i, st := range statuses {
		rec := types.Record{"name": fmt.Sprintf("worker-%d", i), "ward": i % 2}
		if st != "" {
			rec[types.FieldStatus] = st
		}
		_, err := s.Add(types.WorkersTable, rec)
		require.NoError(t, err)
	}

	all, err := s.Query(types.WorkersTable, types.Filter{})
	require.NoError(t, err)
	require.Len(t, all, len(statuses))
	for i, rec := range all {
		assert.Equal(t, fmt.Sprintf("worker-%d", i), rec["name"])
	}

	active, err := s.Query(types.WorkersTable, types.Filter{types.FieldStatus: "active"})
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, []int64{1, 3, 5}, ids(active))

	both, err := s.Query(types.WorkersTable, types.Filter{types.FieldStatus: "active", "ward": 0})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 5}, ids(both))

	odd, err := s.Query(types.WorkersTable, types.Filter{types.FieldStatus: "active", "ward": 1})
	require.NoError(t, err)
	assert.Empty(t, odd)

	empty, err := s.Query(types.TreatmentReportsTable, nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func (h harness) testQueryMissingKey(t *testing.T) {
	s, _ := h.open(t)

	_, err := s.Add(types.SafetyKitsTable, types.Record{"worker_id": 1})
	require.NoError(t, err)
	_, err = s.Add(types.SafetyKitsTable, types.Record{"worker_id": 2, "verified": nil})
	require.NoError(t, err)

	got, err := s.Query(types.SafetyKitsTable, types.Filter{"verified": nil})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(got), "absent key is a mismatch, not a wildcard")
}

func (h harness) testGetMissing(t *testing.T) {
	s, _ := h.open(t)

	_, err := s.Get(types.VehiclesTable, 1)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func (h harness) testEnsureTableIdempotent(t *testing.T) {
	s, _ := h.open(t)

	require.NoError(t, s.EnsureTable(types.TrainingRecordsTable))
	_, err := s.Add(types.TrainingRecordsTable, types.Record{"module": "segregation", "status": "completed"})
	require.NoError(t, err)

	require.NoError(t, s.EnsureTable(types.TrainingRecordsTable))
	require.NoError(t, s.EnsureTable(types.TrainingRecordsTable))

	all, err := s.Query(types.TrainingRecordsTable, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	names, err := s.Tables()
	require.NoError(t, err)
	assert.Contains(t, names, types.TrainingRecordsTable)
}

func (h harness) testCopies(t *testing.T) {
	s, _ := h.open(t)

	rec, err := s.Add(types.CollectionRoutesTable, types.Record{"stops": []string{"a", "b"}})
	require.NoError(t, err)
	rec["stops"].([]any)[0] = "mutated"
	rec["extra"] = true

	all, err := s.Query(types.CollectionRoutesTable, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []any{"a", "b"}, all[0]["stops"])
	assert.NotContains(t, all[0], "extra")
}

func (h harness) testInvalidTable(t *testing.T) {
	s, _ := h.open(t)

	for _, name := range []string{"", "..", "a/b"} {
		_, err := s.Add(name, types.Record{})
		assert.True(t, errors.Is(err, types.ErrInvalidTable), "Add(%q): %v", name, err)
		_, err = s.Query(name, nil)
		assert.True(t, errors.Is(err, types.ErrInvalidTable), "Query(%q): %v", name, err)
		assert.True(t, errors.Is(s.EnsureTable(name), types.ErrInvalidTable))
	}
}

func (h harness) testDetached(t *testing.T) {
	s := h.newStore()

	_, err := s.Add(types.FamiliesTable, types.Record{})
	assert.True(t, errors.Is(err, types.ErrDetached))

	s = h.attach(t, t.TempDir())
	require.NoError(t, s.Detach())
	require.NoError(t, s.Detach(), "detach is idempotent")

	_, err = s.Query(types.FamiliesTable, nil)
	assert.True(t, errors.Is(err, types.ErrDetached))
	_, err = s.Update(types.FamiliesTable, 1, types.Record{})
	assert.True(t, errors.Is(err, types.ErrDetached))
	assert.True(t, errors.Is(s.EnsureTable(types.FamiliesTable), types.ErrDetached))
	_, err = s.Tables()
	assert.True(t, errors.Is(err, types.ErrDetached))
}

func (h harness) testAttachTwice(t *testing.T) {
	s, dir := h.open(t)
	assert.True(t, errors.Is(s.Attach(h.config(dir)), types.ErrAlreadyAttached))
}

func (h harness) testFamilyScenario(t *testing.T) {
	s, _ := h.open(t)

	rec, err := s.Add("families", types.Record{"family_name": "Rao", "status": "active"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID())
	assert.Equal(t, "Rao", rec["family_name"])
	assert.Equal(t, "active", rec["status"])
	assert.NotEmpty(t, rec.Text(types.FieldCreatedAt))
	assert.Len(t, rec, 4)

	_, err = s.Update("families", 1, types.Record{"status": "suspended"})
	require.NoError(t, err)

	got, err := s.Query("families", types.Filter{"status": "suspended"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID())

	active, err := s.Query("families", types.Filter{"status": "active"})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func (h harness) testReadersAndWriters(t *testing.T) {
	s, _ := h.open(t)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := s.Add(types.TreatmentReportsTable, types.Record{"tonnes": 1.5}); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			recs, err := s.Query(types.TreatmentReportsTable, nil)
			if err != nil {
				errs <- err
				return
			}
			for i, rec := range recs {
				if rec.ID() != int64(i+1) {
					errs <- fmt.Errorf("reader saw id %d at position %d", rec.ID(), i)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func ids(recs []types.Record) []int64 {
	out := make([]int64, len(recs))
	for i, r := range recs {
		out[i] = r.ID()
	}
	return out
}
