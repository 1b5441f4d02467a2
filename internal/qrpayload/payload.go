// Package qrpayload builds and parses the JSON payloads printed on
// household and worker identity codes. Rendering the payload as an image is
// left to the caller.
package qrpayload

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

// Payload types.
const (
	TypeHousehold = "household"
	TypeWorker    = "worker"
	TypeUnknown   = "unknown"
)

// Payload is the content encoded in an identity code. Household payloads
// carry FamilyID, FamilyName and Address; worker payloads carry WorkerID and
// WorkerName. Code is a unique identifier for the issued code.
type Payload struct {
	Type        string `json:"type"`
	FamilyID    int64  `json:"family_id,omitempty"`
	FamilyName  string `json:"family_name,omitempty"`
	Address     string `json:"address,omitempty"`
	WorkerID    int64  `json:"worker_id,omitempty"`
	WorkerName  string `json:"worker_name,omitempty"`
	Code        string `json:"code,omitempty"`
	GeneratedAt string `json:"generated_at,omitempty"`

	// Data holds the raw input when Parse could not decode it.
	Data string `json:"data,omitempty"`
}

// newCode returns a time-ordered UUID, falling back to a random one.
func newCode() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Household returns the payload for a family.
func Household(familyID int64, familyName, address string, now time.Time) Payload {
	return Payload{
		Type:        TypeHousehold,
		FamilyID:    familyID,
		FamilyName:  familyName,
		Address:     address,
		Code:        newCode(),
		GeneratedAt: now.UTC().Format(types.TimeFormat),
	}
}

// Worker returns the payload for a waste worker.
func Worker(workerID int64, workerName string, now time.Time) Payload {
	return Payload{
		Type:        TypeWorker,
		WorkerID:    workerID,
		WorkerName:  workerName,
		Code:        newCode(),
		GeneratedAt: now.UTC().Format(types.TimeFormat),
	}
}

// FromRecord builds the payload for a record of the families or workers
// table. Families use family_name and address; workers use worker_name.
func FromRecord(table string, rec types.Record, now time.Time) (Payload, error) {
	switch table {
	case types.FamiliesTable:
		return Household(rec.ID(), rec.Text("family_name"), rec.Text("address"), now), nil
	case types.WorkersTable:
		return Worker(rec.ID(), rec.Text("worker_name"), now), nil
	default:
		return Payload{}, fmt.Errorf("no identity code for table %q", table)
	}
}

// Encode renders the payload as compact JSON.
func (p Payload) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(data), nil
}

// Parse decodes a scanned payload. Any JSON object decodes, with Type left
// as found; other input comes back as an unknown payload carrying the raw
// text.
func Parse(s string) Payload {
	var p Payload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return Payload{Type: TypeUnknown, Data: s}
	}
	return p
}
