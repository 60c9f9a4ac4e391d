// Package runner wires every core package (state store, breaker
// registry, extraction sources, the extraction orchestrator, the
// deterministic external fakes, the phase orchestrator, and CSV I/O)
// into the single entry point cmd/pipeline calls, and turns the result
// into the specification's RunSummary, its image-manifest, lineage, and
// address-index output files, and exit-code classification.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/rawblock/realty-pipeline/internal/config"
	"github.com/rawblock/realty-pipeline/internal/csvio"
	"github.com/rawblock/realty-pipeline/internal/external"
	"github.com/rawblock/realty-pipeline/internal/killswitch"
	"github.com/rawblock/realty-pipeline/internal/phase"
	"github.com/rawblock/realty-pipeline/internal/phash"
	"github.com/rawblock/realty-pipeline/internal/store"
	"github.com/rawblock/realty-pipeline/pkg/models"
)

// testScopeCap is how many properties --test limits a run to, whether
// the scope came from explicit addresses or --all.
const testScopeCap = 5

// Options carries one invocation's resolved configuration and CLI
// intent into Run.
type Options struct {
	Config    *config.Config
	Log       *zap.Logger
	Addresses []string // used unless All is set
	All       bool
	Test      bool // cap the run to the first testScopeCap properties
	Fakes     bool // use the deterministic in-memory external collaborators instead of live extraction
	Fresh     bool
}

// Run drives every requested address through the phase orchestrator and
// returns the batch's RunSummary. Per-property failures are recorded in
// the summary and never abort the batch. Run returns an error before any
// property is touched for a corrupt or unwritable state store (including
// the hash index), an empty source list (live mode with nothing
// configured), or an address list that cannot be resolved (for example
// an unreadable input CSV).
func Run(ctx context.Context, opts Options) (*models.RunSummary, error) {
	cfg := opts.Config
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.Store.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %v", errCorruptState, err)
	}
	st, err := store.Open(cfg.Store.DataDir, cfg.Store.LockExpiry, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptState, err)
	}

	breakers := buildBreakerRegistry(cfg.Circuit)
	sources := buildExtractionSources(cfg, log)
	if !opts.Fakes && len(sources) == 0 {
		return nil, errNoSources
	}

	hashIndexPath := filepath.Join(cfg.Store.DataDir, "hash_index.json")
	globalIdx, err := phash.Load(hashIndexPath, cfg.Extraction.HammingThreshold)
	if err != nil {
		return nil, fmt.Errorf("%w: load hash index: %v", errCorruptState, err)
	}

	extOrch := buildExtractorch(cfg, sources, breakers, st, log, globalIdx)
	ext := buildExternalCollaborators()

	addresses, err := resolveAddresses(opts, st, ext)
	if err != nil {
		return nil, fmt.Errorf("resolve addresses: %w", err)
	}

	if opts.Fresh {
		for _, addr := range addresses {
			if err := st.ResetCheckpoints(addr); err != nil {
				return nil, fmt.Errorf("%w: reset checkpoints for %s: %v", errCorruptState, addr, err)
			}
		}
	}

	artifacts := &batchArtifacts{}
	runners := buildPhaseRunners(opts.Fakes, extOrch, st, ext, cfg.Cost, cfg.Store.ImagesDir, cfg.Store.ReportsDir, artifacts)
	mode := phase.ModeLenient
	if cfg.Strict {
		mode = phase.ModeStrict
	}
	skip := make([]models.PhaseID, 0, len(cfg.SkipPhases))
	for _, s := range cfg.SkipPhases {
		skip = append(skip, models.PhaseID(s))
	}

	orch := phase.New(phase.Config{
		Store:       st,
		Log:         log,
		Mode:        mode,
		SkipPhases:  skip,
		KillSwitch:  killswitch.Config{UnknownHOAFailsHard: cfg.KillSwitch.UnknownHOAFailsHard},
		CurrentYear: time.Now().Year(),
		ImagesRoot:  cfg.Store.ImagesDir,
	}, runners)

	summary := &models.RunSummary{TierCounts: map[models.Tier]int{}, StartedAt: time.Now()}
	if err := runBatch(ctx, orch, st, addresses, cfg.Extraction.PropertyConcurrency, log, artifacts); err != nil {
		return nil, err
	}
	summary.FinishedAt = time.Now()

	if err := globalIdx.Save(hashIndexPath); err != nil {
		log.Error("failed to persist global hash index", zap.Error(err))
	}
	if err := writeRankedCSV(cfg.OutputCSV, st, addresses, summary); err != nil {
		log.Error("failed to write ranked CSV", zap.Error(err))
	}
	if err := writeBatchArtifacts(cfg.Store.DataDir, addresses, artifacts); err != nil {
		log.Error("failed to write batch artifact files", zap.Error(err))
	}
	return summary, nil
}

func runBatch(ctx context.Context, orch *phase.Orchestrator, st *store.Store, addresses []string, concurrency int, log *zap.Logger, artifacts *batchArtifacts) error {
	if concurrency <= 0 {
		concurrency = 3
	}
	sem := semaphore.NewWeighted(int64(concurrency))
	g, ctx := errgroup.WithContext(ctx)

	for _, addr := range addresses {
		addr := addr
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		g.Go(func() error {
			defer sem.Release(1)
			if err := orch.RunProperty(ctx, addr, "pipeline-cli"); err != nil {
				log.Warn("property run finished with an error", zap.String("address", addr), zap.Error(err))
			}
			if p := st.GetEnrichment(addr); p != nil {
				artifacts.addLineage(addr, p.Provenance)
			}
			return nil
		})
	}
	return g.Wait()
}

// resolveAddresses returns the normalized address list for this run and,
// when Fakes is set, seeds the fake county-records client with a
// deterministic record per address so P0_county has something to return
// instead of always erroring "no parcel record". When Test is set and no
// explicit address/--all scope was given, the properties CSV is read the
// same way --all does but capped at the first testScopeCap rows;
// combined with --all or an explicit address list, Test simply caps
// whatever was already resolved.
func resolveAddresses(opts Options, st *store.Store, ext *externalCollaborators) ([]string, error) {
	var addresses []string

	readFromCSV := opts.All || (opts.Test && len(opts.Addresses) == 0)
	if readFromCSV {
		f, err := os.Open(opts.Config.InputCSV)
		if err != nil {
			return nil, fmt.Errorf("open input csv %s: %w", opts.Config.InputCSV, err)
		}
		defer f.Close()

		reader, err := csvio.NewPropertyReader(f)
		if err != nil {
			return nil, fmt.Errorf("new csv reader: %w", err)
		}
		for {
			if opts.Test && len(addresses) >= testScopeCap {
				break
			}
			row, err := reader.Next()
			if err != nil {
				break
			}
			prop := row.ToProperty()
			if existing := st.GetEnrichment(prop.FullAddress); existing == nil {
				if err := st.UpsertEnrichment(prop); err != nil {
					return nil, fmt.Errorf("seed enrichment for %s: %w", prop.FullAddress, err)
				}
			}
			addresses = append(addresses, prop.FullAddress)
		}
	} else {
		addresses = make([]string, len(opts.Addresses))
		for i, a := range opts.Addresses {
			addresses[i] = models.NormalizeAddress(a)
		}
		if opts.Test && len(addresses) > testScopeCap {
			addresses = addresses[:testScopeCap]
		}
	}

	if opts.Fakes {
		for _, addr := range addresses {
			ext.county.Records[addr] = external.CountyRecord{
				LotSqft: 9000, YearBuilt: 2005, GarageSpaces: 2, HasPool: false, LivableSqft: 2200,
			}
		}
	}

	return addresses, nil
}

func writeRankedCSV(path string, st *store.Store, addresses []string, summary *models.RunSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create ranked csv %s: %w", path, err)
	}
	defer f.Close()

	w := csvio.NewRankedWriter(f)
	for _, addr := range addresses {
		summary.Attempted++
		p := st.GetEnrichment(addr)
		if p == nil {
			summary.Skipped++
			continue
		}
		if p.Tier == models.TierFailed || p.Tier == "" {
			if p.Tier == models.TierFailed {
				summary.Failed++
			} else {
				summary.Skipped++
			}
		} else {
			summary.Completed++
		}
		summary.TierCounts[p.Tier]++

		if err := w.WriteRow(csvio.RankedRecordFromProperty(p)); err != nil {
			return fmt.Errorf("write ranked row for %s: %w", addr, err)
		}
	}
	return nil
}

// writeBatchArtifacts persists the three supporting output files the
// specification names beyond the ranked CSV: the aggregated image
// manifest, the field-lineage records, and an address_hash -> address
// lookup covering every property this run touched (the same hash that
// names each property's image folder).
func writeBatchArtifacts(dataDir string, addresses []string, artifacts *batchArtifacts) error {
	addressIndex := make(map[string]string, len(addresses))
	for _, addr := range addresses {
		addressIndex[models.AddressHash(addr)] = addr
	}

	if err := writeJSONFile(filepath.Join(dataDir, "image_manifest.json"), artifacts.manifests); err != nil {
		return fmt.Errorf("write image manifest: %w", err)
	}
	if err := writeJSONFile(filepath.Join(dataDir, "lineage.json"), artifacts.lineage); err != nil {
		return fmt.Errorf("write lineage: %w", err)
	}
	if err := writeJSONFile(filepath.Join(dataDir, "address_index.json"), addressIndex); err != nil {
		return fmt.Errorf("write address index: %w", err)
	}
	return nil
}
