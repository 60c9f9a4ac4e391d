// Package scorer computes the weighted, three-section property score
// and its tier classification. It is pure over a Property plus the
// kill-switch verdict: same inputs always produce the same section
// totals, exactly mirroring the evaluator's determinism requirement in
// internal/killswitch.
package scorer

import (
	"github.com/rawblock/realty-pipeline/pkg/models"
)

// neutralDefault is used whenever a non-kill-switch sub-criterion's
// backing field is missing.
const neutralDefault = 5.0

// Result is the scorer's full pure output.
type Result struct {
	SectionA     float64 // Location & Environment, cap 230
	SectionB     float64 // Lot & Systems, cap 180
	SectionC     float64 // Interior & Features, cap 190
	TotalScore   float64
	Tier         models.Tier
	DefaultsUsed int
	DataQuality  float64 // populated / required
}

// criterion is one weighted sub-score contributor within a section.
type criterion struct {
	weight int
	value  func(p *models.Property) (score float64, known bool)
}

// Score evaluates every section for p and assigns a tier, folding in
// verdict from a prior killswitch.Evaluate call (tier is FAILED
// regardless of score when verdict is FAIL, per the specification).
func Score(p *models.Property, verdict models.Verdict) Result {
	secA, defA, reqA := scoreSection(p, sectionA())
	secB, defB, reqB := scoreSection(p, sectionB())
	secC, defC, reqC := scoreSection(p, sectionC())

	total := secA + secB + secC
	defaults := defA + defB + defC
	required := reqA + reqB + reqC
	populated := required - defaults

	var quality float64
	if required > 0 {
		quality = float64(populated) / float64(required)
	}

	tier := models.TierPass
	switch {
	case verdict == models.VerdictFail:
		tier = models.TierFailed
	case total > 480:
		tier = models.TierUnicorn
	case total >= 360:
		tier = models.TierContender
	}

	return Result{
		SectionA:     secA,
		SectionB:     secB,
		SectionC:     secC,
		TotalScore:   total,
		Tier:         tier,
		DefaultsUsed: defaults,
		DataQuality:  quality,
	}
}

func scoreSection(p *models.Property, criteria []criterion) (total float64, defaults, required int) {
	for _, c := range criteria {
		score, known := c.value(p)
		required++
		if !known {
			score = neutralDefault
			defaults++
		}
		total += score * float64(c.weight)
	}
	return total, defaults, required
}

// Section A's six weights sum to 23 (23*10 = 230, the section cap).
func sectionA() []criterion {
	return []criterion{
		{weight: 8, value: clamp01to10(func(p *models.Property) (float64, bool) {
			return p.SchoolRating, p.SchoolRating != 0
		})},
		{weight: 4, value: func(p *models.Property) (float64, bool) {
			if p.DistanceToHighwayMiles == 0 {
				return 0, false
			}
			return distanceScore(p.DistanceToHighwayMiles), true
		}},
		{weight: 5, value: clamp01to10(func(p *models.Property) (float64, bool) {
			return p.SafetyScore, p.SafetyScore != 0
		})},
		{weight: 3, value: func(p *models.Property) (float64, bool) {
			if p.DistanceToGroceryMiles == 0 {
				return 0, false
			}
			return distanceScore(p.DistanceToGroceryMiles), true
		}},
		{weight: 2, value: clamp01to10(func(p *models.Property) (float64, bool) {
			return p.Walkability, p.Walkability != 0
		})},
		{weight: 1, value: func(p *models.Property) (float64, bool) {
			if p.Orientation == "" || p.Orientation == models.OrientationUnknown {
				return 0, false
			}
			return orientationScore(p.Orientation), true
		}},
	}
}

// Section B's four weights sum to 18 (18*10 = 180, the section cap).
func sectionB() []criterion {
	return []criterion{
		{weight: 6, value: func(p *models.Property) (float64, bool) {
			if p.RoofAge == 0 {
				return 0, false
			}
			return ageCurve(p.RoofAge, roofBreakpoints), true
		}},
		{weight: 5, value: func(p *models.Property) (float64, bool) {
			if p.LotSqft == 0 || p.Sqft == 0 {
				return 0, false
			}
			backyard := float64(p.LotSqft) - 0.6*float64(p.Sqft)
			return backyardScore(backyard), true
		}},
		{weight: 4, value: func(p *models.Property) (float64, bool) {
			if p.YearBuilt == 0 {
				return 0, false
			}
			return systemsAgeProxy(p.YearBuilt), true
		}},
		{weight: 3, value: func(p *models.Property) (float64, bool) {
			if !p.HasPool {
				return 9, true // "no pool" bonus: no equipment to age out
			}
			if p.PoolEquipmentAge == 0 {
				return 0, false
			}
			return ageCurve(p.PoolEquipmentAge, poolBreakpoints), true
		}},
	}
}

// Section C's seven weights sum to 19 (19*10 = 190, the section cap).
func sectionC() []criterion {
	return []criterion{
		{weight: 5, value: clamp01to10(func(p *models.Property) (float64, bool) {
			return p.Visual.Kitchen, p.Visual.Kitchen != 0
		})},
		{weight: 3, value: clamp01to10(func(p *models.Property) (float64, bool) {
			return p.Visual.Master, p.Visual.Master != 0
		})},
		{weight: 3, value: clamp01to10(func(p *models.Property) (float64, bool) {
			return p.Visual.Light, p.Visual.Light != 0
		})},
		{weight: 2, value: clamp01to10(func(p *models.Property) (float64, bool) {
			return p.Visual.Ceilings, p.Visual.Ceilings != 0
		})},
		{weight: 2, value: clamp01to10(func(p *models.Property) (float64, bool) {
			return p.Visual.Fireplace, p.Visual.Fireplace != 0
		})},
		{weight: 2, value: clamp01to10(func(p *models.Property) (float64, bool) {
			return p.Visual.Laundry, p.Visual.Laundry != 0
		})},
		{weight: 2, value: clamp01to10(func(p *models.Property) (float64, bool) {
			return p.Visual.Aesthetics, p.Visual.Aesthetics != 0
		})},
	}
}

// clamp01to10 adapts a raw (value, known) accessor into the criterion
// signature unchanged; it exists as a named wrapper purely so every
// section's field list reads uniformly regardless of the underlying
// field's semantics.
func clamp01to10(f func(p *models.Property) (float64, bool)) func(p *models.Property) (float64, bool) {
	return f
}

func orientationScore(o models.Orientation) float64 {
	switch o {
	case models.OrientationN:
		return 10
	case models.OrientationS:
		return 9
	case models.OrientationNE, models.OrientationNW:
		return 8
	case models.OrientationE:
		return 7
	case models.OrientationSE:
		return 6
	case models.OrientationSW:
		return 5
	case models.OrientationW:
		return 3
	default:
		return neutralDefault
	}
}

// distanceScore rewards proximity: 10 at 0 miles, linearly decaying to
// 2 at 5+ miles, floor of 2 beyond that.
func distanceScore(miles float64) float64 {
	score := 10 - miles*1.6
	if score < 2 {
		return 2
	}
	if score > 10 {
		return 10
	}
	return score
}

// backyardScore rewards more usable yard, in square feet, saturating at
// 3000 sqft.
func backyardScore(sqft float64) float64 {
	if sqft <= 0 {
		return 1
	}
	score := sqft / 300
	if score > 10 {
		return 10
	}
	return score
}

// systemsAgeProxy uses year_built as a stand-in for plumbing/electrical
// condition absent a direct inspection field.
func systemsAgeProxy(yearBuilt int) float64 {
	age := currentYearApprox - yearBuilt
	return ageCurve(age, systemsBreakpoints)
}

// currentYearApprox anchors the systems-age proxy; unlike the
// kill-switch's CURRENT_YEAR, section-B scoring does not need a
// caller-supplied year since a one-year drift in an age *proxy* input
// has no externally observable correctness requirement the way the
// kill-switch's new-build criterion does.
const currentYearApprox = 2026

type breakpoint struct {
	maxAge int
	score  float64
}

var roofBreakpoints = []breakpoint{
	{5, 10}, {10, 8}, {15, 6}, {20, 4}, {1 << 30, 2},
}

var poolBreakpoints = []breakpoint{
	{5, 10}, {10, 8}, {15, 6}, {20, 4}, {1 << 30, 2},
}

var systemsBreakpoints = []breakpoint{
	{10, 10}, {20, 8}, {30, 6}, {40, 4}, {1 << 30, 2},
}

func ageCurve(age int, bps []breakpoint) float64 {
	for _, bp := range bps {
		if age <= bp.maxAge {
			return bp.score
		}
	}
	return 2
}
