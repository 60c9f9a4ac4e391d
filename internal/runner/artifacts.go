package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rawblock/realty-pipeline/pkg/models"
)

// batchArtifacts accumulates the per-run output files the specification
// names beyond the ranked CSV: the image manifest and the field-lineage
// records, both gathered from goroutines running concurrently over the
// batch, hence the mutex.
type batchArtifacts struct {
	mu        sync.Mutex
	manifests []models.ImageManifest
	lineage   []models.LineageEntry
}

// addManifest records one property's image manifest, skipping manifests
// with neither a new photo nor a rejected duplicate so the output file
// only lists properties whose extraction handled images.
func (b *batchArtifacts) addManifest(m models.ImageManifest) {
	if m.TotalDownloaded == 0 && m.DuplicatesRejected == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.manifests = append(b.manifests, m)
}

// addLineage records every (address, field) -> provenance pair for one
// property's finished run.
func (b *batchArtifacts) addLineage(address string, prov map[string]models.FieldProvenance) {
	if len(prov) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for field, p := range prov {
		b.lineage = append(b.lineage, models.LineageEntry{Address: address, Field: field, Prov: p})
	}
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
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
