package external

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/realty-pipeline/pkg/models"
)

func TestFakeVisionAssessorRequiresPhotos(t *testing.T) {
	f := NewFakeVisionAssessor()
	_, err := f.AssessPhotos(context.Background(), nil)
	assert.Error(t, err)
}

func TestFakeVisionAssessorReturnsFixedScores(t *testing.T) {
	f := NewFakeVisionAssessor()
	scores, err := f.AssessPhotos(context.Background(), []string{"a.png"})
	require.NoError(t, err)
	assert.Equal(t, 7.0, scores.Kitchen)
}

func TestFakeCountyRecordsClientLooksUpByNormalizedAddress(t *testing.T) {
	f := NewFakeCountyRecordsClient()
	f.Records["1 MAIN ST"] = CountyRecord{LotSqft: 9000}

	rec, err := f.LookupParcel(context.Background(), "1 main st.")
	require.NoError(t, err)
	assert.Equal(t, 9000, rec.LotSqft)
}

func TestFakeReportRendererProducesNonEmptyOutput(t *testing.T) {
	r := &FakeReportRenderer{}
	out, err := r.Render(context.Background(), &models.Property{FullAddress: "1 MAIN ST", Tier: models.TierPass})
	require.NoError(t, err)
	assert.Contains(t, string(out), "1 MAIN ST")
}
