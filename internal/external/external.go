// Package external declares the out-of-process collaborators the phase
// orchestrator dispatches to: the vision assessor (P2B_interior), the
// county records API (P0_county -- a thin interface over
// internal/extract.Extractor for phases that need a single blocking
// call rather than the full extraction orchestrator), the map/geocoding
// service (P1_map), and the report templater (P4_report). Interfaces
// only: concrete network clients live in internal/extract and
// cmd/pipeline wiring; this package exists so the phase orchestrator
// can be tested against fakes without touching the network.
package external

import (
	"context"

	"github.com/rawblock/realty-pipeline/pkg/models"
)

// VisionAssessor scores a property's photos against the seven visual
// criteria during P2B_interior.
type VisionAssessor interface {
	AssessPhotos(ctx context.Context, imagePaths []string) (models.VisualScores, error)
}

// CountyRecordsClient resolves a property's parcel ID to its
// records-authoritative fields during P0_county.
type CountyRecordsClient interface {
	LookupParcel(ctx context.Context, address string) (CountyRecord, error)
}

// CountyRecord is the subset of parcel data P0_county needs.
type CountyRecord struct {
	ParcelID     string
	LotSqft      int
	YearBuilt    int
	GarageSpaces int
	HasPool      bool
	LivableSqft  int
}

// MapClient resolves commute time, distance-to-amenity, and walkability
// figures during P1_map. Implemented by a real geocoding/routing
// provider.
type MapClient interface {
	Geocode(ctx context.Context, address string) (Coordinates, error)
	CommuteMinutes(ctx context.Context, from Coordinates, to Coordinates) (int, error)
	DistanceMiles(ctx context.Context, from Coordinates, toPOIKind string) (float64, error)
	WalkabilityScore(ctx context.Context, coords Coordinates) (float64, error)
}

// Coordinates is a simple lat/long pair, deliberately not pulling in a
// geospatial library since the pipeline only ever treats it as an
// opaque token to pass back into the same provider's other calls.
type Coordinates struct {
	Lat float64
	Lng float64
}

// ReportRenderer produces the human-facing report artifact during
// P4_report from a fully-scored property.
type ReportRenderer interface {
	Render(ctx context.Context, p *models.Property) ([]byte, error)
}
