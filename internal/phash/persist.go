package phash

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rawblock/realty-pipeline/pkg/models"
)

// manifestDoc is the on-disk shape for every registered hash entry in
// the index (all properties), keyed by image ID for stable diffing
// across runs.
type manifestDoc struct {
	SchemaVersion int                        `json:"schema_version"`
	Entries       map[string]models.HashEntry `json:"entries"`
}

// Save persists every entry currently registered in idx to path using
// the same write-temp-then-rename discipline as the state store, so a
// crash mid-write never corrupts the hash manifest that future runs
// reload to avoid re-downloading and re-hashing unchanged photos.
func (idx *Index) Save(path string) error {
	doc := manifestDoc{SchemaVersion: 1, Entries: map[string]models.HashEntry{}}
	for _, e := range idx.Entries() {
		doc.Entries[e.ImageID] = models.HashEntry{
			ImageID: e.ImageID,
			PHash:   e.Hash.PHash,
			DHash:   e.Hash.DHash,
			Address: e.Address,
			Source:  e.Source,
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal hash manifest %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp %s: %w", tmp, err)
	}
	if existing, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+".bak", existing, 0o644); err != nil {
			return fmt.Errorf("backup %s: %w", path, err)
		}
	}
	return os.Rename(tmp, path)
}

// Load rebuilds an index from a manifest previously written by Save.
// A missing file is not an error -- it means no photos have been hashed
// yet.
func Load(path string, threshold int) (*Index, error) {
	idx := NewIndex(threshold)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read hash manifest %s: %w", path, err)
	}

	var doc manifestDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse hash manifest %s: %w", path, err)
	}
	for _, he := range doc.Entries {
		idx.Register(Entry{
			ImageID: he.ImageID,
			Hash:    Hash{PHash: he.PHash, DHash: he.DHash},
			Address: he.Address,
			Source:  he.Source,
		})
	}
	return idx, nil
}
