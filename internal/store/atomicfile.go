package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// writeAtomicJSON serializes v to path using the temp-file-then-rename
// discipline required by the specification: compute in memory, write to
// "<path>.tmp", copy the existing "<path>" to "<path>.bak" if present,
// then atomically rename "<path>.tmp" -> "<path>". The prior version is
// retained as "<path>.bak" until the next successful write.
func writeAtomicJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp %s: %w", tmp, err)
	}

	if _, err := os.Stat(path); err == nil {
		bak := path + ".bak"
		existing, readErr := os.ReadFile(path)
		if readErr == nil {
			if err := os.WriteFile(bak, existing, 0o644); err != nil {
				return fmt.Errorf("backup %s: %w", path, err)
			}
		}
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

// readJSONWithFallback loads v from path, falling back to path+".bak" if
// the primary is missing or fails to unmarshal. If both are unreadable it
// returns ErrCorrupt so the caller can translate it into the fatal,
// batch-halting CorruptStateError.
func readJSONWithFallback(path string, v any) error {
	if data, err := os.ReadFile(path); err == nil {
		if jsonErr := json.Unmarshal(data, v); jsonErr == nil {
			return nil
		}
	}

	bak := path + ".bak"
	if data, err := os.ReadFile(bak); err == nil {
		if jsonErr := json.Unmarshal(data, v); jsonErr == nil {
			return nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if _, err := os.Stat(bak); os.IsNotExist(err) {
			// Neither file has ever been written: not corruption, just a
			// fresh store. Leave v at its zero value.
			return errNotExist
		}
	}

	return fmt.Errorf("%w: both %s and %s are unreadable", ErrCorrupt, path, bak)
}

var errNotExist = fmt.Errorf("state file does not exist yet")
