package validate

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/rawblock/realty-pipeline/pkg/models"
)

// RoundTrip marshals p to JSON and unmarshals it back into a fresh
// Property, then deep-compares the two modulo each field's
// FetchedAt timestamp (which the store is allowed to refresh on a
// metadata-only rerun without that counting as a round-trip failure).
func RoundTrip(p *models.Property) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal for round-trip: %w", err)
	}

	var reloaded models.Property
	if err := json.Unmarshal(data, &reloaded); err != nil {
		return fmt.Errorf("unmarshal for round-trip: %w", err)
	}

	zeroTimestamps(p)
	zeroTimestamps(&reloaded)

	if !reflect.DeepEqual(p, &reloaded) {
		return fmt.Errorf("round-trip mismatch: saved and reloaded records differ")
	}
	return nil
}

func zeroTimestamps(p *models.Property) {
	for k, prov := range p.Provenance {
		prov.FetchedAt = zeroTime
		p.Provenance[k] = prov
	}
}

var zeroTime = (&models.FieldProvenance{}).FetchedAt
