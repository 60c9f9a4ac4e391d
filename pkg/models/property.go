// Package models holds the shared data types that flow between every
// pipeline component: the canonical Property record, its provenance map,
// and the enums that back its research fields.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// SewerType enumerates the known sewer configurations for a property.
type SewerType string

const (
	SewerCity    SewerType = "city"
	SewerSeptic  SewerType = "septic"
	SewerUnknown SewerType = "unknown"
)

// SolarStatus enumerates the known solar-panel ownership states.
type SolarStatus string

const (
	SolarOwned   SolarStatus = "owned"
	SolarLeased  SolarStatus = "leased"
	SolarNone    SolarStatus = "none"
	SolarUnknown SolarStatus = "unknown"
)

// Orientation enumerates the compass orientation of a lot's backyard/rear exposure.
type Orientation string

const (
	OrientationN       Orientation = "N"
	OrientationNE      Orientation = "NE"
	OrientationE       Orientation = "E"
	OrientationSE      Orientation = "SE"
	OrientationS       Orientation = "S"
	OrientationSW      Orientation = "SW"
	OrientationW       Orientation = "W"
	OrientationNW      Orientation = "NW"
	OrientationUnknown Orientation = "unknown"
)

// Tier is the final classification bucket assigned by the scorer.
type Tier string

const (
	TierUnicorn   Tier = "UNICORN"
	TierContender Tier = "CONTENDER"
	TierPass      Tier = "PASS"
	TierFailed    Tier = "FAILED"
)

// Verdict is the kill-switch evaluator's outcome.
type Verdict string

const (
	VerdictPass    Verdict = "PASS"
	VerdictWarning Verdict = "WARNING"
	VerdictFail    Verdict = "FAIL"
)

// MonthlyCostBreakdown decomposes the P05_cost phase's estimate.
type MonthlyCostBreakdown struct {
	PrincipalInterest float64 `json:"principal_interest"`
	PropertyTax       float64 `json:"property_tax"`
	Insurance         float64 `json:"insurance"`
	HOA               float64 `json:"hoa"`
	Utilities         float64 `json:"utilities"`
}

// VisualScores holds the seven 1-10 scores produced by the out-of-scope
// vision assessor during P2B_interior.
type VisualScores struct {
	Kitchen    float64 `json:"kitchen"`
	Master     float64 `json:"master"`
	Light      float64 `json:"light"`
	Ceilings   float64 `json:"ceilings"`
	Fireplace  float64 `json:"fireplace"`
	Laundry    float64 `json:"laundry"`
	Aesthetics float64 `json:"aesthetics"`
}

// Property is the canonical record for a single candidate address. It is
// the union of listing, records-authoritative, research, and derived
// fields described in the specification's data model.
type Property struct {
	// Identity
	FullAddress string `json:"full_address"`
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	Zip         string `json:"zip"`

	// Listing (externally supplied)
	Price        float64 `json:"price"`
	Beds         int     `json:"beds"`
	Baths        float64 `json:"baths"`
	Sqft         int     `json:"sqft"`
	PricePerSqft float64 `json:"price_per_sqft"`
	Description  string  `json:"description,omitempty"`
	HOAFee       float64 `json:"hoa_fee"`
	HOAFeeKnown  bool    `json:"hoa_fee_known"`

	// Records-authoritative (county)
	LotSqft      int  `json:"lot_sqft"`
	YearBuilt    int  `json:"year_built"`
	GarageSpaces int  `json:"garage_spaces"`
	HasPool      bool `json:"has_pool"`
	LivableSqft  int  `json:"livable_sqft"`

	// Research / enriched
	SewerType              SewerType            `json:"sewer_type" validate:"omitempty,oneof=city septic unknown"`
	SolarStatus             SolarStatus          `json:"solar_status" validate:"omitempty,oneof=owned leased none unknown"`
	SchoolRating            float64              `json:"school_rating"`
	SafetyScore             float64              `json:"safety_score"`
	Walkability             float64              `json:"walkability"`
	DistanceToGroceryMiles  float64              `json:"distance_to_grocery_miles"`
	DistanceToHighwayMiles  float64              `json:"distance_to_highway_miles"`
	Orientation             Orientation          `json:"orientation" validate:"omitempty,oneof=N NE E SE S SW W NW unknown"`
	CommuteMinutes          int                  `json:"commute_minutes"`
	MonthlyCost             float64              `json:"monthly_cost"`
	MonthlyCostBreakdown    MonthlyCostBreakdown `json:"monthly_cost_breakdown"`
	RoofAge                 int                  `json:"roof_age"`
	HVACAge                 int                  `json:"hvac_age"`
	PoolEquipmentAge        int                  `json:"pool_equipment_age"`
	Visual                  VisualScores         `json:"visual"`

	// Derived (written only by killswitch/scorer)
	KillSwitchVerdict  Verdict  `json:"kill_switch_verdict,omitempty"`
	KillSwitchSeverity float64  `json:"kill_switch_severity"`
	KillSwitchFailures []string `json:"kill_switch_failures,omitempty"`
	ScoreSectionA      float64  `json:"score_section_a"`
	ScoreSectionB      float64  `json:"score_section_b"`
	ScoreSectionC      float64  `json:"score_section_c"`
	TotalScore         float64  `json:"total_score"`
	Tier               Tier     `json:"tier,omitempty"`
	DefaultsUsed       int      `json:"defaults_used"`
	DataQuality        float64  `json:"data_quality"`

	// Provenance: one entry per populated field, keyed by the Property's
	// own JSON field name.
	Provenance map[string]FieldProvenance `json:"provenance,omitempty"`

	// Extras captures any field surfaced by an extractor with no declared
	// target — logged as an orphan by the validator but never discarded.
	Extras map[string]any `json:"extras,omitempty"`
}

var whitespaceRe = regexp.MustCompile(`\s+`)
var trailingPunctRe = regexp.MustCompile(`[.,;:]+$`)

// NormalizeAddress upper-cases, collapses internal whitespace, and strips
// trailing punctuation, producing the canonical key used everywhere a
// property is addressed by string.
func NormalizeAddress(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = trailingPunctRe.ReplaceAllString(s, "")
	return s
}

// AddressHash returns the short, stable digest of a normalized address used
// to name the property's content-addressed image folder.
func AddressHash(normalizedAddress string) string {
	sum := sha256.Sum256([]byte(normalizedAddress))
	return hex.EncodeToString(sum[:])[:16]
}
