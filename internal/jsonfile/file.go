package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

// tableFileExt is appended to the table name to form its file name.
const tableFileExt = ".json"

// errWriteAbandoned is returned by a write whose caller gave up waiting.
var errWriteAbandoned = errors.New("write abandoned after timeout")

func tablePath(dataDir, name string) string {
	return filepath.Join(dataDir, name+tableFileExt)
}

// tempPattern is the os.CreateTemp pattern for a table file. Temp files are
// hidden and live next to the table file so the final rename stays on one
// filesystem.
func tempPattern(path string) string {
	return "." + filepath.Base(path) + "-*.tmp"
}

// readTableFile returns the raw content of a table file. A missing file
// reads as empty.
func readTableFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// decodeTable parses table file content. Blank content is an empty table.
// Anything else that is not an array of objects with unique positive ids is
// an error, which callers treat as corruption.
func decodeTable(path string, data []byte) ([]types.Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	records := make([]types.Record, 0, len(raw))
	seen := make(map[int64]bool, len(raw))
	for i, obj := range raw {
		if obj == nil {
			return nil, fmt.Errorf("decoding %s: entry %d is not an object", path, i)
		}
		rec := types.Record(obj)
		id := rec.ID()
		if id == 0 {
			return nil, fmt.Errorf("decoding %s: entry %d has no valid id", path, i)
		}
		if seen[id] {
			return nil, fmt.Errorf("decoding %s: duplicate id %d", path, id)
		}
		seen[id] = true
		records = append(records, rec)
	}
	return records, nil
}

// encodeTable renders records as an indented JSON array.
func encodeTable(records []types.Record) ([]byte, error) {
	if records == nil {
		records = []types.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding table: %w", err)
	}
	return append(data, '\n'), nil
}

// writeTempFile writes data to a new temp file beside path and fsyncs it.
// It returns the temp file name; the caller renames or removes it.
func writeTempFile(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), tempPattern(path))
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return tmpName, nil
}

// tableWrite is one temp-write-then-rename of a table file. The caller may
// abandon it after a timeout; an abandoned write removes its temp file
// instead of renaming it, so the table file only ever changes when the
// caller saw success.
type tableWrite struct {
	path      string
	data      []byte
	writeTemp func(path string, data []byte) (string, error)

	mu        sync.Mutex
	abandoned bool
	committed bool
}

func (w *tableWrite) run() error {
	tmpName, err := w.writeTemp(w.path, w.data)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.abandoned {
		os.Remove(tmpName)
		return errWriteAbandoned
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	w.committed = true
	return nil
}

// abandon marks the write as abandoned. It returns false when the rename
// already happened, in which case the write counts as successful.
func (w *tableWrite) abandon() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.committed {
		return false
	}
	w.abandoned = true
	return true
}

// removeStaleTemps deletes temp files left behind by an interrupted write.
// It returns the names it removed.
func removeStaleTemps(dataDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, ".*"+tableFileExt+"-*.tmp"))
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, err
		}
		removed = append(removed, m)
	}
	return removed, nil
}
