package external

import (
	"context"
	"fmt"

	"github.com/rawblock/realty-pipeline/pkg/models"
)

// FakeVisionAssessor returns its fixed score set for any non-empty photo
// list, whatever the number of photos, and an error for an empty one.
type FakeVisionAssessor struct {
	Scores models.VisualScores
}

func NewFakeVisionAssessor() *FakeVisionAssessor {
	return &FakeVisionAssessor{Scores: models.VisualScores{
		Kitchen: 7, Master: 7, Light: 7, Ceilings: 7, Fireplace: 7, Laundry: 7, Aesthetics: 7,
	}}
}

func (f *FakeVisionAssessor) AssessPhotos(_ context.Context, imagePaths []string) (models.VisualScores, error) {
	if len(imagePaths) == 0 {
		return models.VisualScores{}, fmt.Errorf("no photos supplied")
	}
	return f.Scores, nil
}

// FakeCountyRecordsClient serves canned parcel records keyed by
// normalized address, for deterministic P0_county testing.
type FakeCountyRecordsClient struct {
	Records map[string]CountyRecord
}

func NewFakeCountyRecordsClient() *FakeCountyRecordsClient {
	return &FakeCountyRecordsClient{Records: map[string]CountyRecord{}}
}

func (f *FakeCountyRecordsClient) LookupParcel(_ context.Context, address string) (CountyRecord, error) {
	rec, ok := f.Records[models.NormalizeAddress(address)]
	if !ok {
		return CountyRecord{}, fmt.Errorf("no parcel record for %s", address)
	}
	return rec, nil
}

// FakeMapClient returns fixed geospatial figures regardless of the
// coordinates supplied, letting P1_map tests assert on wiring rather
// than on a real routing provider's numbers.
type FakeMapClient struct {
	Commute     int
	Distance    float64
	Walkability float64
}

func NewFakeMapClient() *FakeMapClient {
	return &FakeMapClient{Commute: 25, Distance: 2.0, Walkability: 6.5}
}

func (f *FakeMapClient) Geocode(_ context.Context, address string) (Coordinates, error) {
	return Coordinates{Lat: 30.0, Lng: -97.0}, nil
}

func (f *FakeMapClient) CommuteMinutes(_ context.Context, from, to Coordinates) (int, error) {
	return f.Commute, nil
}

func (f *FakeMapClient) DistanceMiles(_ context.Context, from Coordinates, toPOIKind string) (float64, error) {
	return f.Distance, nil
}

func (f *FakeMapClient) WalkabilityScore(_ context.Context, coords Coordinates) (float64, error) {
	return f.Walkability, nil
}

// FakeReportRenderer renders a minimal deterministic text report,
// sufficient for P4_report tests to assert the phase ran and produced
// non-empty bytes without depending on a real templating engine.
type FakeReportRenderer struct{}

func (f *FakeReportRenderer) Render(_ context.Context, p *models.Property) ([]byte, error) {
	return []byte(fmt.Sprintf("%s: tier=%s score=%.1f\n", p.FullAddress, p.Tier, p.TotalScore)), nil
}
