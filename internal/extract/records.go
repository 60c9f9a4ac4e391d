package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CountyRecords queries the county assessor's parcel-lookup endpoint for
// the records-authoritative fields (lot_sqft, year_built, garage_spaces,
// has_pool, livable_sqft) used by P0_county. Unlike the listing
// extractors it expects structured JSON, not HTML to scrape, since
// public records portals typically expose a parcel API.
type CountyRecords struct {
	cfg    Config
	client *http.Client
}

func NewCountyRecords(cfg Config) *CountyRecords {
	return &CountyRecords{cfg: cfg, client: newStealthClient(cfg)}
}

func (e *CountyRecords) Name() string { return "county_records" }

type parcelResponse struct {
	LotSqft      int  `json:"lot_sqft"`
	YearBuilt    int  `json:"year_built"`
	GarageSpaces int  `json:"garage_spaces"`
	HasPool      bool `json:"has_pool"`
	LivableSqft  int  `json:"livable_sqft"`
}

func (e *CountyRecords) Extract(ctx context.Context, t Target) ExtractResult {
	res := ExtractResult{SourceName: e.Name(), Fields: map[string]any{}, AttemptedAt: time.Now()}

	url := fmt.Sprintf("%s/parcels/%s", e.cfg.BaseURL, t.ParcelID)
	body, status, blocker, err := fetchWithRetry(ctx, e.client, url, e.cfg.logger())
	if err != nil {
		res.Status = status
		res.Blocker = blocker
		return res
	}

	var parcel parcelResponse
	if err := json.Unmarshal(body, &parcel); err != nil {
		res.Status = StatusPartial
		return res
	}

	res.Fields["lot_sqft"] = parcel.LotSqft
	res.Fields["year_built"] = parcel.YearBuilt
	res.Fields["garage_spaces"] = parcel.GarageSpaces
	res.Fields["has_pool"] = parcel.HasPool
	res.Fields["livable_sqft"] = parcel.LivableSqft
	res.Status = StatusOK
	return res
}
