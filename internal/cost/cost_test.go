package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rawblock/realty-pipeline/internal/config"
	"github.com/rawblock/realty-pipeline/pkg/models"
)

func testConfig() config.CostConfig {
	return config.CostConfig{
		DownPaymentPct:    0.20,
		AnnualInterestPct: 0.06,
		LoanTermYears:     30,
		InsuranceRatePct:  0.0035,
		DefaultTaxRatePct: 0.02,
		MonthlyUtilities:  200,
	}
}

func TestEstimateUsesAssessorTaxFigureWhenPresent(t *testing.T) {
	p := &models.Property{Price: 400000, Extras: map[string]any{"annual_property_tax": 6000.0}}
	Estimate(p, testConfig())
	assert.InDelta(t, 500.0, p.MonthlyCostBreakdown.PropertyTax, 0.01)
}

func TestEstimateFallsBackToDefaultRateWithoutAssessor(t *testing.T) {
	p := &models.Property{Price: 400000}
	Estimate(p, testConfig())
	assert.InDelta(t, 400000*0.02/12, p.MonthlyCostBreakdown.PropertyTax, 0.01)
}

func TestEstimateUsesAssessedValueOverPriceWhenPresent(t *testing.T) {
	p := &models.Property{Price: 400000, Extras: map[string]any{"assessed_value": 350000.0}}
	Estimate(p, testConfig())
	assert.InDelta(t, 350000*0.02/12, p.MonthlyCostBreakdown.PropertyTax, 0.01)
}

func TestEstimateIncludesHOAAndUtilities(t *testing.T) {
	p := &models.Property{Price: 300000, HOAFee: 150}
	Estimate(p, testConfig())
	assert.Equal(t, 150.0, p.MonthlyCostBreakdown.HOA)
	assert.Equal(t, 200.0, p.MonthlyCostBreakdown.Utilities)
}

func TestEstimateTotalIsSumOfBreakdown(t *testing.T) {
	p := &models.Property{Price: 350000, HOAFee: 100}
	Estimate(p, testConfig())
	b := p.MonthlyCostBreakdown
	assert.InDelta(t, b.PrincipalInterest+b.PropertyTax+b.Insurance+b.HOA+b.Utilities, p.MonthlyCost, 0.01)
}

func TestMonthlyPaymentZeroInterestIsStraightLine(t *testing.T) {
	got := monthlyPayment(360000, 0, 30)
	assert.InDelta(t, 360000.0/360, got, 0.001)
}

func TestMonthlyPaymentPositiveForTypicalLoan(t *testing.T) {
	got := monthlyPayment(320000, 0.065, 30)
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 320000.0)
}
