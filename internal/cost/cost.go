// Package cost implements the P05_cost phase's monthly-cost estimate: a
// standard fixed-rate amortization for principal/interest plus property
// tax, insurance, HOA, and a flat utilities estimate. It is a pure
// function over Property and Config, with no network calls, which is why
// P05_cost's prerequisite table marks it as not requiring a blocking
// collaborator the way P1_listing or P1_map do.
package cost

import (
	"math"

	"github.com/rawblock/realty-pipeline/internal/config"
	"github.com/rawblock/realty-pipeline/pkg/models"
)

// Estimate computes p's MonthlyCostBreakdown and MonthlyCost in place,
// using the assessor's annual_property_tax extra when present (landed in
// p.Extras by the field merger, since it has no declared struct field)
// and otherwise the rate-times-base estimate monthlyPropertyTax describes.
func Estimate(p *models.Property, cfg config.CostConfig) {
	loanAmount := p.Price * (1 - cfg.DownPaymentPct)
	p.MonthlyCostBreakdown.PrincipalInterest = monthlyPayment(loanAmount, cfg.AnnualInterestPct, cfg.LoanTermYears)
	p.MonthlyCostBreakdown.PropertyTax = monthlyPropertyTax(p, cfg)
	p.MonthlyCostBreakdown.Insurance = p.Price * cfg.InsuranceRatePct / 12
	p.MonthlyCostBreakdown.HOA = p.HOAFee
	p.MonthlyCostBreakdown.Utilities = cfg.MonthlyUtilities

	b := p.MonthlyCostBreakdown
	p.MonthlyCost = b.PrincipalInterest + b.PropertyTax + b.Insurance + b.HOA + b.Utilities
}

// monthlyPayment is the textbook fixed-rate amortization formula. A zero
// interest rate (never expected in practice, but cheap to guard) falls
// back to a straight-line principal split so the function never divides
// by zero.
func monthlyPayment(principal, annualRatePct float64, termYears int) float64 {
	n := float64(termYears * 12)
	if n <= 0 {
		return 0
	}
	r := annualRatePct / 12
	if r == 0 {
		return principal / n
	}
	factor := math.Pow(1+r, n)
	return principal * r * factor / (factor - 1)
}

// monthlyPropertyTax prefers the assessor's annual figure (surfaced via
// Extras since it has no first-class field on Property) over an
// estimate. Without it, the estimate is assessed_value (or price when
// that is absent) times effective_tax_rate (or the configured default
// rate when that is absent).
func monthlyPropertyTax(p *models.Property, cfg config.CostConfig) float64 {
	if annual, ok := extraFloat(p, "annual_property_tax"); ok {
		return annual / 12
	}
	base := p.Price
	if assessed, ok := extraFloat(p, "assessed_value"); ok && assessed > 0 {
		base = assessed
	}
	rate := cfg.DefaultTaxRatePct
	if effective, ok := extraFloat(p, "effective_tax_rate"); ok && effective > 0 {
		rate = effective
	}
	return base * rate / 12
}

func extraFloat(p *models.Property, key string) (float64, bool) {
	if p.Extras == nil {
		return 0, false
	}
	v, ok := p.Extras[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
