package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// AssessorAPI queries the tax assessor's cost/valuation endpoint used by
// P05_cost to seed the monthly cost breakdown's property-tax component.
// It is a distinct extractor from CountyRecords because many
// jurisdictions split parcel characteristics and assessed valuation
// across two separate public services with different auth and rate
// limits.
type AssessorAPI struct {
	cfg    Config
	client *http.Client
	apiKey string
}

func NewAssessorAPI(cfg Config, apiKey string) *AssessorAPI {
	return &AssessorAPI{cfg: cfg, client: newStealthClient(cfg), apiKey: apiKey}
}

func (e *AssessorAPI) Name() string { return "assessor_api" }

type assessmentResponse struct {
	AssessedValue    float64 `json:"assessed_value"`
	AnnualTax        float64 `json:"annual_tax"`
	EffectiveTaxRate float64 `json:"effective_tax_rate"`
}

func (e *AssessorAPI) Extract(ctx context.Context, t Target) ExtractResult {
	res := ExtractResult{SourceName: e.Name(), Fields: map[string]any{}, AttemptedAt: time.Now()}

	url := fmt.Sprintf("%s/assessments/%s?api_key=%s", e.cfg.BaseURL, t.ParcelID, e.apiKey)
	body, status, blocker, err := fetchWithRetry(ctx, e.client, url, e.cfg.logger())
	if err != nil {
		res.Status = status
		res.Blocker = blocker
		return res
	}

	var assessment assessmentResponse
	if err := json.Unmarshal(body, &assessment); err != nil {
		res.Status = StatusPartial
		return res
	}

	res.Fields["annual_property_tax"] = assessment.AnnualTax
	res.Fields["assessed_value"] = assessment.AssessedValue
	res.Fields["effective_tax_rate"] = assessment.EffectiveTaxRate
	res.Status = StatusOK
	return res
}
