package extractorch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rawblock/realty-pipeline/internal/extract"
	"github.com/rawblock/realty-pipeline/pkg/models"
)

func TestRollupStatusFailedWithNoSuccess(t *testing.T) {
	assert.Equal(t, StatusFailed, rollupStatus(false, &models.Property{}))
}

func TestRollupStatusOKWhenAllCriticalFieldsPresent(t *testing.T) {
	p := &models.Property{Provenance: map[string]models.FieldProvenance{
		"hoa_fee":    {},
		"beds":       {},
		"sewer_type": {},
	}}
	assert.Equal(t, StatusOK, rollupStatus(true, p))
}

func TestRollupStatusPartialWhenSomeCriticalFieldsMissing(t *testing.T) {
	p := &models.Property{Provenance: map[string]models.FieldProvenance{
		"hoa_fee": {},
	}}
	assert.Equal(t, StatusPartial, rollupStatus(true, p))
}

func TestFieldUpdatesFromClassifiesCountySources(t *testing.T) {
	r := extract.ExtractResult{Fields: map[string]any{"lot_sqft": 9000}}
	updates := fieldUpdatesFrom(r, "county_records")
	assert.Len(t, updates, 1)
	assert.Equal(t, models.SourceCounty, updates[0].Source)
}

func TestFieldUpdatesFromClassifiesListingSources(t *testing.T) {
	r := extract.ExtractResult{Fields: map[string]any{"price": 500000.0}}
	updates := fieldUpdatesFrom(r, "listing_a")
	assert.Len(t, updates, 1)
	assert.Equal(t, models.SourceListing, updates[0].Source)
}

func TestBlockerFromMapsCaptchaAndRateLimit(t *testing.T) {
	captcha := extract.ExtractResult{Status: extract.StatusBlocked, Blocker: "captcha", AttemptedAt: time.Now()}
	assert.Equal(t, "captcha", string(blockerFrom(captcha)))

	rateLimited := extract.ExtractResult{Status: extract.StatusBlocked, Blocker: "rate_limited", AttemptedAt: time.Now()}
	assert.Equal(t, "rate_limited", string(blockerFrom(rateLimited)))
}
