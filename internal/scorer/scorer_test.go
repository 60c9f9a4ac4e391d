package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rawblock/realty-pipeline/pkg/models"
)

func maxedProperty() *models.Property {
	return &models.Property{
		SchoolRating:           10,
		SafetyScore:            10,
		Walkability:            10,
		DistanceToHighwayMiles: 0.1,
		DistanceToGroceryMiles: 0.1,
		Orientation:            models.OrientationN,
		RoofAge:                1,
		LotSqft:                10000,
		Sqft:                   2000, // backyard = 10000 - 1200 = 8800 -> capped at 10
		YearBuilt:              2020,
		HasPool:                false,
		Visual: models.VisualScores{
			Kitchen: 10, Master: 10, Light: 10, Ceilings: 10,
			Fireplace: 10, Laundry: 10, Aesthetics: 10,
		},
	}
}

func TestFullyPopulatedPropertyScoresUnicorn(t *testing.T) {
	res := Score(maxedProperty(), models.VerdictPass)
	assert.Equal(t, 0, res.DefaultsUsed)
	assert.Equal(t, 1.0, res.DataQuality)
	assert.Equal(t, models.TierUnicorn, res.Tier)
	assert.Greater(t, res.TotalScore, 480.0)
}

func TestKillSwitchFailOverridesScoreToFailedTier(t *testing.T) {
	res := Score(maxedProperty(), models.VerdictFail)
	assert.Equal(t, models.TierFailed, res.Tier)
}

func TestEmptyPropertyUsesNeutralDefaultsExceptNoPoolBonus(t *testing.T) {
	res := Score(&models.Property{}, models.VerdictPass)
	assert.Greater(t, res.DefaultsUsed, 0)
	// 16 of the 17 criteria default; the pool criterion is known
	// (HasPool false earns the no-pool bonus), so quality is 1/17.
	assert.Equal(t, 1.0/17, res.DataQuality)
	// every other criterion defaulted to 5.0, so sections A and C total
	// weight_sum * 5.0, exactly half their caps; section B is
	// 15*5.0 + 3*9.0 = 102 because of the no-pool bonus.
	assert.InDelta(t, 115.0, res.SectionA, 0.001)
	assert.InDelta(t, 102.0, res.SectionB, 0.001)
	assert.InDelta(t, 95.0, res.SectionC, 0.001)
}

func TestContenderTierBoundary(t *testing.T) {
	p := &models.Property{}
	res := Score(p, models.VerdictPass)
	// empty property totals 312 (115+102+95), below the 360 contender floor
	assert.Equal(t, models.TierPass, res.Tier)
}

func TestOrientationScoreTable(t *testing.T) {
	assert.Equal(t, 10.0, orientationScore(models.OrientationN))
	assert.Equal(t, 9.0, orientationScore(models.OrientationS))
	assert.Equal(t, 8.0, orientationScore(models.OrientationNE))
	assert.Equal(t, 8.0, orientationScore(models.OrientationNW))
	assert.Equal(t, 7.0, orientationScore(models.OrientationE))
	assert.Equal(t, 6.0, orientationScore(models.OrientationSE))
	assert.Equal(t, 5.0, orientationScore(models.OrientationSW))
	assert.Equal(t, 3.0, orientationScore(models.OrientationW))
}

func TestAgeCurveBreakpoints(t *testing.T) {
	assert.Equal(t, 10.0, ageCurve(5, roofBreakpoints))
	assert.Equal(t, 8.0, ageCurve(10, roofBreakpoints))
	assert.Equal(t, 6.0, ageCurve(15, roofBreakpoints))
	assert.Equal(t, 4.0, ageCurve(20, roofBreakpoints))
	assert.Equal(t, 2.0, ageCurve(21, roofBreakpoints))
}

func TestNoPoolReceivesBonusNotDefault(t *testing.T) {
	p := &models.Property{HasPool: false}
	res := Score(p, models.VerdictPass)
	// pool criterion contributes 3*9=27 instead of defaulting, so it is
	// not counted among DefaultsUsed.
	assert.Less(t, res.DefaultsUsed, 17) // 17 = total criteria count across sections
}

func TestTotalScoreIsSumOfSections(t *testing.T) {
	res := Score(maxedProperty(), models.VerdictPass)
	assert.InDelta(t, res.SectionA+res.SectionB+res.SectionC, res.TotalScore, 0.001)
}
