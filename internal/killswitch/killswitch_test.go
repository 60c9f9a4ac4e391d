package killswitch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rawblock/realty-pipeline/pkg/models"
)

func baseline() *models.Property {
	return &models.Property{
		HOAFee:       0,
		HOAFeeKnown:  true,
		Beds:         4,
		Baths:        2.0,
		SewerType:    models.SewerCity,
		YearBuilt:    1999,
		GarageSpaces: 2,
		LotSqft:      9000,
	}
}

func TestS1AllPass(t *testing.T) {
	p := baseline()
	res := Evaluate(p, Config{UnknownHOAFailsHard: true}, 2024)
	assert.Equal(t, models.VerdictPass, res.Verdict)
	assert.Equal(t, 0.0, res.Severity)
	assert.Empty(t, res.Failures)
}

func TestS2NonzeroHOAFailsHard(t *testing.T) {
	p := baseline()
	p.HOAFee = 200
	res := Evaluate(p, Config{UnknownHOAFailsHard: true}, 2024)
	assert.Equal(t, models.VerdictFail, res.Verdict)
	assert.Contains(t, res.Failures, "hoa_fee_nonzero")
}

func TestS3SepticAndNewBuildFailsSoft(t *testing.T) {
	p := baseline()
	p.SewerType = models.SewerSeptic
	p.YearBuilt = 2024
	res := Evaluate(p, Config{UnknownHOAFailsHard: true}, 2024)
	assert.Equal(t, 4.5, res.Severity)
	assert.Equal(t, models.VerdictFail, res.Verdict)
}

func TestS4SepticOnlyWarns(t *testing.T) {
	p := baseline()
	p.SewerType = models.SewerSeptic
	res := Evaluate(p, Config{UnknownHOAFailsHard: true}, 2024)
	assert.Equal(t, 2.5, res.Severity)
	assert.Equal(t, models.VerdictWarning, res.Verdict)
}

func TestBedsBelowMinimumFailsHard(t *testing.T) {
	p := baseline()
	p.Beds = 3
	res := Evaluate(p, Config{UnknownHOAFailsHard: true}, 2024)
	assert.Equal(t, models.VerdictFail, res.Verdict)
	assert.Contains(t, res.Failures, "beds_below_minimum")
}

func TestBathsBelowMinimumFailsHard(t *testing.T) {
	p := baseline()
	p.Baths = 1.5
	res := Evaluate(p, Config{UnknownHOAFailsHard: true}, 2024)
	assert.Equal(t, models.VerdictFail, res.Verdict)
	assert.Contains(t, res.Failures, "baths_below_minimum")
}

func TestUnknownHOAFailsHardWhenConfigured(t *testing.T) {
	p := baseline()
	p.HOAFeeKnown = false
	res := Evaluate(p, Config{UnknownHOAFailsHard: true}, 2024)
	assert.Equal(t, models.VerdictFail, res.Verdict)
	assert.Contains(t, res.Failures, "hoa_fee_unknown")
}

func TestUnknownHOAPassesWhenConfiguredLenient(t *testing.T) {
	p := baseline()
	p.HOAFeeKnown = false
	res := Evaluate(p, Config{UnknownHOAFailsHard: false}, 2024)
	assert.Equal(t, models.VerdictPass, res.Verdict)
}

func TestMissingSoftDataRecordedNotPenalized(t *testing.T) {
	p := baseline()
	p.LotSqft = 0
	res := Evaluate(p, Config{UnknownHOAFailsHard: true}, 2024)
	assert.Equal(t, models.VerdictPass, res.Verdict)
	assert.Contains(t, res.MissingData, "lot_sqft_out_of_range")
}

func TestEvaluateIsPure(t *testing.T) {
	p := baseline()
	p.SewerType = models.SewerSeptic
	a := Evaluate(p, Config{UnknownHOAFailsHard: true}, 2024)
	b := Evaluate(p, Config{UnknownHOAFailsHard: true}, 2024)
	assert.Equal(t, a, b)
}
