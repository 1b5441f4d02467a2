package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

// codedError carries the process exit code for a failed command.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func userError(err error) error { return &codedError{code: exitUserError, err: err} }
func sysError(err error) error  { return &codedError{code: exitSysError, err: err} }

// exitCode maps a command error to a process exit code. Errors without an
// explicit code are classified by their sentinel.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	return classify(err)
}

// classify treats bad input as a user error and everything else,
// persistence and corrupt storage included, as a system error.
func classify(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrInvalidTable),
		errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrInvalidFilter),
		errors.Is(err, types.ErrBackendEmpty),
		errors.Is(err, types.ErrBackendUnknown),
		errors.Is(err, types.ErrTimeoutInvalid):
		return exitUserError
	default:
		return exitSysError
	}
}

// storeError wraps a store error with an operation label and its exit code.
func storeError(op string, err error) error {
	return &codedError{code: classify(err), err: fmt.Errorf("%s: %w", op, err)}
}

// parseID parses a positive record id.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, userError(fmt.Errorf("invalid id %q: must be a positive integer", s))
	}
	return id, nil
}

// parseAssignments turns key=value arguments into a record. A value that is
// valid JSON keeps its JSON type; anything else is a string.
func parseAssignments(args []string) (types.Record, error) {
	rec := types.Record{}
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, userError(fmt.Errorf("invalid field %q: expected key=value", arg))
		}
		rec[key] = parseValue(raw)
	}
	return rec, nil
}

func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// writeJSON prints v as indented JSON followed by a newline.
func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("encode output: %w", err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
