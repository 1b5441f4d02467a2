package qrpayload

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

var now = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func TestHouseholdRoundTrip(t *testing.T) {
	p := Household(12, "Rao", "14 MG Road", now)
	s, err := p.Encode()
	require.NoError(t, err)

	got := Parse(s)
	assert.Equal(t, p, got)
	assert.Equal(t, TypeHousehold, got.Type)
	assert.Equal(t, "2026-03-01T09:30:00Z", got.GeneratedAt)

	_, err = uuid.Parse(got.Code)
	assert.NoError(t, err)
}

func TestWorkerPayloadOmitsHouseholdFields(t *testing.T) {
	s, err := Worker(3, "Meena", now).Encode()
	require.NoError(t, err)
	assert.NotContains(t, s, "family_id")
	assert.Contains(t, s, `"worker_name":"Meena"`)
}

func TestCodesAreUnique(t *testing.T) {
	a := Worker(1, "a", now)
	b := Worker(1, "a", now)
	assert.NotEqual(t, a.Code, b.Code)
}

func TestParseUnknown(t *testing.T) {
	for _, in := range []string{"FAMILY-12", `[1, 2]`, `"household"`, ""} {
		got := Parse(in)
		assert.Equal(t, TypeUnknown, got.Type)
		assert.Equal(t, in, got.Data)
	}
}

func TestParseObjectWithoutType(t *testing.T) {
	got := Parse(`{"family_id": 3, "family_name": "Rao"}`)
	assert.Empty(t, got.Type)
	assert.Equal(t, int64(3), got.FamilyID)
	assert.Equal(t, "Rao", got.FamilyName)
	assert.Empty(t, got.Data)
}

func TestFromRecord(t *testing.T) {
	fam := types.Record{"id": float64(4), "family_name": "Iyer", "address": "Ward 7"}
	p, err := FromRecord(types.FamiliesTable, fam, now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), p.FamilyID)
	assert.Equal(t, "Iyer", p.FamilyName)
	assert.Equal(t, "Ward 7", p.Address)

	w := types.Record{
		"id":               float64(9),
		"worker_name":      "Meena",
		"worker_id_number": "WK-0009",
		"job_type":         "Collector",
		"status":           "active",
	}
	p, err = FromRecord(types.WorkersTable, w, now)
	require.NoError(t, err)
	assert.Equal(t, TypeWorker, p.Type)
	assert.Equal(t, int64(9), p.WorkerID)
	assert.Equal(t, "Meena", p.WorkerName)

	_, err = FromRecord(types.VehiclesTable, types.Record{"id": float64(1)}, now)
	assert.Error(t, err)
}
