package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRecord(t *testing.T) {
	in := Record{
		"family_name": "Rao",
		"members":     4,
		"active":      true,
		"tags":        []string{"ward-3", "priority"},
		"address":     map[string]string{"street": "MG Road"},
	}

	got, err := NormalizeRecord(in)
	require.NoError(t, err)

	assert.Equal(t, "Rao", got["family_name"])
	assert.Equal(t, float64(4), got["members"])
	assert.Equal(t, true, got["active"])
	assert.Equal(t, []any{"ward-3", "priority"}, got["tags"])
	assert.Equal(t, map[string]any{"street": "MG Road"}, got["address"])

	// The input is left untouched.
	assert.Equal(t, 4, in["members"])
}

func TestNormalizeRecordNil(t *testing.T) {
	got, err := NormalizeRecord(nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestNormalizeRecordRejectsUnencodable(t *testing.T) {
	_, err := NormalizeRecord(Record{"callback": func() {}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidData))
}

func TestFilterNormalize(t *testing.T) {
	f, err := Filter{"id": 1, "status": "active"}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, float64(1), f["id"])

	empty, err := Filter{}.Normalize()
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = Filter{"ch": make(chan int)}.Normalize()
	assert.True(t, errors.Is(err, ErrInvalidFilter))
}

func TestFilterMatches(t *testing.T) {
	rec, err := NormalizeRecord(Record{"id": 3, "status": "active", "ward": 7, "note": nil})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches", nil, true},
		{"single match", Filter{"status": "active"}, true},
		{"numeric match", Filter{"ward": 7}, true},
		{"and semantics", Filter{"status": "active", "ward": 7}, true},
		{"one mismatch fails", Filter{"status": "active", "ward": 8}, false},
		{"missing key fails", Filter{"zone": "north"}, false},
		{"explicit null matches stored null", Filter{"note": nil}, true},
		{"case sensitive values", Filter{"status": "Active"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tt.filter.Normalize()
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Matches(rec))
		})
	}
}

func TestRecordID(t *testing.T) {
	tests := []struct {
		value any
		want  int64
	}{
		{float64(12), 12},
		{12, 12},
		{int64(12), 12},
		{json.Number("12"), 12},
		{1.5, 0},
		{-2, 0},
		{"12", 0},
		{nil, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%T(%v)", tt.value, tt.value), func(t *testing.T) {
			assert.Equal(t, tt.want, Record{"id": tt.value}.ID())
		})
	}
	assert.Equal(t, int64(0), Record{}.ID())
}

func TestRecordMergeKeepsReservedFields(t *testing.T) {
	rec := Record{"id": float64(1), "created_at": "t0", "status": "active", "ward": float64(3)}
	rec.Merge(Record{"id": float64(999), "created_at": "t9", "status": "suspended", "reason": "unpaid"})

	assert.Equal(t, float64(1), rec["id"])
	assert.Equal(t, "t0", rec["created_at"])
	assert.Equal(t, "suspended", rec["status"])
	assert.Equal(t, "unpaid", rec["reason"])
	assert.Equal(t, float64(3), rec["ward"], "keys absent from the patch are kept")
}

func TestRecordCloneIsDeep(t *testing.T) {
	orig := Record{
		"tags":    []any{"a"},
		"address": map[string]any{"city": "Pune"},
	}
	cp := orig.Clone()
	cp["tags"].([]any)[0] = "b"
	cp["address"].(map[string]any)["city"] = "Nagpur"
	cp["extra"] = true

	assert.Equal(t, "a", orig["tags"].([]any)[0])
	assert.Equal(t, "Pune", orig["address"].(map[string]any)["city"])
	assert.NotContains(t, orig, "extra")
	assert.Nil(t, Record(nil).Clone())
}

func TestRecordText(t *testing.T) {
	rec := Record{"name": "Asha", "age": float64(30)}
	assert.Equal(t, "Asha", rec.Text("name"))
	assert.Equal(t, "", rec.Text("age"))
	assert.Equal(t, "", rec.Text("missing"))
}
