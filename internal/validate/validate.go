// Package validate implements the pre-spawn gate for the visual
// assessment phases and the cross-layer contract checks the
// specification names: enrichment-schema coverage, round-trip
// save/load equality, and provenance completeness. It is the only
// component allowed to refuse a phase on grounds other than the
// phase orchestrator's own prerequisite table.
package validate

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/rawblock/realty-pipeline/pkg/models"
)

// BlockedError is returned by PreSpawnGate when a phase should not run;
// its message always has the "BLOCKED: <reason>" shape the specification
// requires the orchestrator to log verbatim.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("BLOCKED: %s", e.Reason)
}

// PreSpawnGate confirms the image folder exists with at least one image
// and that year_built/lot_sqft context fields are present, before
// allowing P2A_exterior or P2B_interior to run.
func PreSpawnGate(imageFolder string, imageCount int, p *models.Property) error {
	info, err := os.Stat(imageFolder)
	if err != nil || !info.IsDir() {
		return &BlockedError{Reason: "image folder does not exist"}
	}
	if imageCount < 1 {
		return &BlockedError{Reason: "image count is zero"}
	}
	if p.YearBuilt == 0 {
		return &BlockedError{Reason: "year_built missing"}
	}
	if p.LotSqft == 0 {
		return &BlockedError{Reason: "lot_sqft missing"}
	}
	return nil
}

var structValidator = validator.New()

// TypeContracts runs the struct-tag enum validation declared on
// Property (sewer_type/solar_status/orientation oneof constraints),
// enforcing that these fields are never populated with a value outside
// their declared enum across a layer boundary.
func TypeContracts(p *models.Property) error {
	if err := structValidator.Struct(p); err != nil {
		return fmt.Errorf("type contract violation: %w", err)
	}
	return nil
}

// knownFields enumerates every JSON field name the Property struct
// declares a home for; anything an extractor surfaces outside this set
// lands in Extras and is reported as an orphan by SchemaCoverage.
var knownFields = map[string]bool{
	"full_address": true, "street": true, "city": true, "state": true, "zip": true,
	"price": true, "beds": true, "baths": true, "sqft": true, "price_per_sqft": true,
	"description": true, "hoa_fee": true, "hoa_fee_known": true,
	"lot_sqft": true, "year_built": true, "garage_spaces": true, "has_pool": true, "livable_sqft": true,
	"sewer_type": true, "solar_status": true, "school_rating": true, "safety_score": true,
	"walkability": true, "distance_to_grocery_miles": true, "distance_to_highway_miles": true,
	"orientation": true, "commute_minutes": true, "monthly_cost": true, "monthly_cost_breakdown": true,
	"roof_age": true, "hvac_age": true, "pool_equipment_age": true, "visual": true,
	"kill_switch_verdict": true, "kill_switch_severity": true, "kill_switch_failures": true,
	"score_section_a": true, "score_section_b": true, "score_section_c": true,
	"total_score": true, "tier": true,
}

// assessorInputFields are surfaced by AssessorAPI but have no declared
// Property field of their own -- they are intermediate inputs the cost
// phase consumes to compute monthly_cost_breakdown.PropertyTax, not
// first-class record fields, so SchemaCoverage does not flag them as
// orphans even though they live in Extras.
var assessorInputFields = map[string]bool{
	"annual_property_tax": true, "assessed_value": true, "effective_tax_rate": true,
}

// SchemaCoverage reports every key in p.Extras that is neither a known
// Property field nor an assessor input as an orphan -- a field an
// extractor surfaced with no declared target on Property.
// Orphans are never fatal; callers log them for later schema review.
func SchemaCoverage(p *models.Property) []string {
	var orphans []string
	for k := range p.Extras {
		if !knownFields[k] && !assessorInputFields[k] {
			orphans = append(orphans, k)
		}
	}
	return orphans
}

// ProvenancePopulated reports any field present in p.Provenance whose
// confidence is zero or whose source ID is empty -- a populated field
// with no real provenance record, violating the specification's
// requirement that every non-default field be attributable.
func ProvenancePopulated(p *models.Property) []string {
	var missing []string
	for field, prov := range p.Provenance {
		if prov.SourceID == "" || prov.Confidence == 0 {
			missing = append(missing, field)
		}
	}
	return missing
}
