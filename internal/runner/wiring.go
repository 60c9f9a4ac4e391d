package runner

import (
	"time"

	"go.uber.org/zap"

	"github.com/rawblock/realty-pipeline/internal/breaker"
	"github.com/rawblock/realty-pipeline/internal/config"
	"github.com/rawblock/realty-pipeline/internal/extract"
	"github.com/rawblock/realty-pipeline/internal/extractorch"
	"github.com/rawblock/realty-pipeline/internal/external"
	"github.com/rawblock/realty-pipeline/internal/phash"
	"github.com/rawblock/realty-pipeline/internal/store"
)

// buildBreakerRegistry applies the configured failure threshold and
// cooldown/idle windows to every source the registry lazily creates,
// keeping the per-source rate-limit figures at breaker.DefaultConfig's
// values since the specification only calls out the circuit thresholds
// as operator-tunable.
func buildBreakerRegistry(cfg config.CircuitConfig) *breaker.Registry {
	def := breaker.DefaultConfig()
	return breaker.NewRegistry(breaker.Config{
		FailureThreshold: orDefault(cfg.FailureThreshold, def.FailureThreshold),
		CooldownPeriod:   orDefaultDuration(cfg.CooldownPeriod, def.CooldownPeriod),
		SessionIdleReset: orDefaultDuration(cfg.SessionIdleReset, def.SessionIdleReset),
		RequestsPerSec:   def.RequestsPerSec,
		Burst:            def.Burst,
		DailyCap:         def.DailyCap,
	})
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

// buildExtractionSources constructs the four live scraping/records
// extractors. In --fakes mode these are still built (so go.mod's HTTP
// stack stays exercised by internal/extract's own tests) but the
// orchestrator built over them is never reached: P0_county's runner goes
// straight to the deterministic FakeCountyRecordsClient instead.
func buildExtractionSources(cfg *config.Config, log *zap.Logger) []extract.Extractor {
	base := extract.Config{
		RequestTimeout: cfg.Extraction.RequestTimeout,
		ProxyURL:       cfg.ProxyURL,
		Log:            log,
	}
	listingCfg := base
	listingCfg.BaseURL = cfg.ListingBaseURL
	recordsCfg := base
	recordsCfg.BaseURL = cfg.RecordsBaseURL

	return []extract.Extractor{
		extract.NewCountyRecords(recordsCfg),
		extract.NewAssessorAPI(recordsCfg, cfg.RecordsAPIToken),
		extract.NewListingSiteA(listingCfg),
		extract.NewListingSiteB(listingCfg),
	}
}

func buildExtractorch(cfg *config.Config, sources []extract.Extractor, breakers *breaker.Registry, st *store.Store, log *zap.Logger, idx *phash.Index) *extractorch.Orchestrator {
	return extractorch.New(extractorch.Config{
		PropertyConcurrency: cfg.Extraction.PropertyConcurrency,
		MaxImageDimension:   cfg.Extraction.MaxImageDimension,
		HammingThreshold:    cfg.Extraction.HammingThreshold,
		ImagesRoot:          cfg.Store.ImagesDir,
	}, sources, breakers, st, log, idx)
}

// externalCollaborators bundles the four out-of-scope collaborators the
// phase runners call into. This repository ships only deterministic
// fakes for all four (per the specification's §4.11: real
// implementations are explicitly out of scope), so these are built the
// same way whether or not --fakes was passed.
type externalCollaborators struct {
	vision  *external.FakeVisionAssessor
	county  *external.FakeCountyRecordsClient
	mapSvc  *external.FakeMapClient
	report  *external.FakeReportRenderer
}

func buildExternalCollaborators() *externalCollaborators {
	return &externalCollaborators{
		vision: external.NewFakeVisionAssessor(),
		county: external.NewFakeCountyRecordsClient(),
		mapSvc: external.NewFakeMapClient(),
		report: &external.FakeReportRenderer{},
	}
}
