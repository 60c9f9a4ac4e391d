package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rawblock/realty-pipeline/internal/config"
	"github.com/rawblock/realty-pipeline/internal/cost"
	"github.com/rawblock/realty-pipeline/internal/extract"
	"github.com/rawblock/realty-pipeline/internal/extractorch"
	"github.com/rawblock/realty-pipeline/internal/phase"
	"github.com/rawblock/realty-pipeline/internal/store"
	"github.com/rawblock/realty-pipeline/pkg/models"
)

// buildPhaseRunners wires each phase's Runner. P0_county and P1_listing
// share one underlying network attempt: extractorch.Orchestrator fans
// out to every configured source (county records, assessor API, both
// listing sites) in one RunProperty call, since they are all
// breaker-gated HTTP fetches for the same address. The P0_county runner
// triggers that fetch and re-reads the merged record back out of the
// store; P1_listing's runner only validates that the listing-origin
// fields it needs landed on the record, rather than re-fetching them.
// In --fakes mode there is no live extractorch, so P0_county instead
// seeds fields from the deterministic county fake.
func buildPhaseRunners(useFakes bool, orch *extractorch.Orchestrator, st *store.Store, ext *externalCollaborators, costCfg config.CostConfig, imagesRoot, reportsDir string, artifacts *batchArtifacts) map[models.PhaseID]phase.Runner {
	return map[models.PhaseID]phase.Runner{
		models.PhaseCounty:    countyRunner(useFakes, orch, st, ext, artifacts),
		models.PhaseCost:      costRunner(costCfg),
		models.PhaseListing:   listingValidationRunner(),
		models.PhaseMap:       mapRunner(ext),
		models.PhaseExterior:  exteriorRunner(),
		models.PhaseInterior:  interiorRunner(ext, imagesRoot),
		models.PhaseSynthesis: synthesisRunner(),
		models.PhaseReport:    reportRunner(ext, reportsDir),
	}
}

func countyRunner(useFakes bool, orch *extractorch.Orchestrator, st *store.Store, ext *externalCollaborators, artifacts *batchArtifacts) phase.Runner {
	return func(ctx context.Context, p *models.Property) error {
		if useFakes {
			rec, err := ext.county.LookupParcel(ctx, p.FullAddress)
			if err != nil {
				return fmt.Errorf("county lookup: %w", err)
			}
			p.LotSqft = rec.LotSqft
			p.YearBuilt = rec.YearBuilt
			p.GarageSpaces = rec.GarageSpaces
			p.HasPool = rec.HasPool
			p.LivableSqft = rec.LivableSqft
			return nil
		}

		addrHash := models.AddressHash(p.FullAddress)
		outcome := orch.RunProperty(ctx, extract.Target{
			Address:  p.FullAddress,
			ParcelID: addrHash,
			URL:      "https://listings.example.invalid/listing/" + addrHash,
		})
		artifacts.addManifest(outcome.Manifest)
		if outcome.Status == extractorch.StatusFailed {
			return fmt.Errorf("extraction failed for %s: %v", p.FullAddress, outcome.Errors)
		}

		if merged := st.GetEnrichment(p.FullAddress); merged != nil {
			*p = *merged
		}
		return nil
	}
}

func costRunner(cfg config.CostConfig) phase.Runner {
	return func(_ context.Context, p *models.Property) error {
		cost.Estimate(p, cfg)
		return nil
	}
}

// listingValidationRunner confirms a price landed on the record (either
// from the input CSV row or from the county phase's shared extractorch
// fetch), without performing any extraction of its own. It checks price
// only; beds, baths and hoa_fee are not checked.
func listingValidationRunner() phase.Runner {
	return func(_ context.Context, p *models.Property) error {
		if p.Price <= 0 {
			return fmt.Errorf("listing validation: no price populated for %s", p.FullAddress)
		}
		return nil
	}
}

func mapRunner(ext *externalCollaborators) phase.Runner {
	return func(ctx context.Context, p *models.Property) error {
		coords, err := ext.mapSvc.Geocode(ctx, p.FullAddress)
		if err != nil {
			return fmt.Errorf("geocode: %w", err)
		}
		commute, err := ext.mapSvc.CommuteMinutes(ctx, coords, coords)
		if err != nil {
			return fmt.Errorf("commute minutes: %w", err)
		}
		grocery, err := ext.mapSvc.DistanceMiles(ctx, coords, "grocery")
		if err != nil {
			return fmt.Errorf("distance to grocery: %w", err)
		}
		highway, err := ext.mapSvc.DistanceMiles(ctx, coords, "highway")
		if err != nil {
			return fmt.Errorf("distance to highway: %w", err)
		}
		walk, err := ext.mapSvc.WalkabilityScore(ctx, coords)
		if err != nil {
			return fmt.Errorf("walkability: %w", err)
		}
		p.CommuteMinutes = commute
		p.DistanceToGroceryMiles = grocery
		p.DistanceToHighwayMiles = highway
		p.Walkability = walk
		return nil
	}
}

// exteriorRunner has no work of its own: exterior photos are already
// downloaded and deduplicated as part of P0_county's shared extractorch
// fetch, so this phase exists purely as the prerequisite gate P2B
// depends on and the pre-spawn validator checkpoints against.
func exteriorRunner() phase.Runner {
	return func(_ context.Context, _ *models.Property) error { return nil }
}

func interiorRunner(ext *externalCollaborators, imagesRoot string) phase.Runner {
	return func(ctx context.Context, p *models.Property) error {
		folder := filepath.Join(imagesRoot, models.AddressHash(p.FullAddress))
		paths, err := imagePaths(folder)
		if err != nil {
			return fmt.Errorf("list images: %w", err)
		}
		scores, err := ext.vision.AssessPhotos(ctx, paths)
		if err != nil {
			return fmt.Errorf("assess photos: %w", err)
		}
		p.Visual = scores
		return nil
	}
}

func imagePaths(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, filepath.Join(folder, e.Name()))
		}
	}
	return out, nil
}

// synthesisRunner does nothing itself: the orchestrator runs the
// kill-switch evaluator and scorer inline ahead of every P3_synthesis
// runner invocation, so by the time this is called p is already scored.
func synthesisRunner() phase.Runner {
	return func(_ context.Context, _ *models.Property) error { return nil }
}

func reportRunner(ext *externalCollaborators, reportsDir string) phase.Runner {
	return func(ctx context.Context, p *models.Property) error {
		out, err := ext.report.Render(ctx, p)
		if err != nil {
			return fmt.Errorf("render report: %w", err)
		}
		if err := os.MkdirAll(reportsDir, 0o755); err != nil {
			return fmt.Errorf("mkdir reports dir: %w", err)
		}
		path := filepath.Join(reportsDir, models.AddressHash(p.FullAddress)+".txt")
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		return nil
	}
}
