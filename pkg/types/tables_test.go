package types

import (
	"errors"
	"testing"
)

func TestValidateTableName(t *testing.T) {
	valid := append([]string{"Families", "training_records.json", "a-b"}, StandardTableNames...)
	for _, name := range valid {
		if err := ValidateTableName(name); err != nil {
			t.Errorf("ValidateTableName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", ".", "..", "a/b", `a\b`, "../families", "nul\x00"}
	for _, name := range invalid {
		if err := ValidateTableName(name); !errors.Is(err, ErrInvalidTable) {
			t.Errorf("ValidateTableName(%q) = %v, want ErrInvalidTable", name, err)
		}
	}
}

func TestErrorTypesMatchSentinels(t *testing.T) {
	cause := errors.New("disk full")
	pe := &PersistenceError{Table: "families", Op: "add", Err: cause}
	if !errors.Is(pe, ErrPersistence) {
		t.Error("PersistenceError should match ErrPersistence")
	}
	if !errors.Is(pe, cause) {
		t.Error("PersistenceError should unwrap to its cause")
	}
	if errors.Is(pe, ErrCorruptData) {
		t.Error("PersistenceError must not match ErrCorruptData")
	}

	ce := &CorruptDataError{Table: "workers", Path: "/data/workers.json", Err: cause}
	if !errors.Is(ce, ErrCorruptData) {
		t.Error("CorruptDataError should match ErrCorruptData")
	}
	var target *CorruptDataError
	if !errors.As(error(ce), &target) || target.Table != "workers" {
		t.Error("errors.As should recover the CorruptDataError")
	}
}
