// Package extractorch implements the Extraction Orchestrator: fans out
// to every enabled source for one property, downloads and deduplicates
// photos, merges returned fields under the store's precedence rules,
// and rolls the whole attempt up into a single ok/partial/failed
// status. Grounded on the teacher's worker-pool dispatch shape
// (bounded concurrency via a semaphore, one unit of work per
// goroutine, errors collected rather than aborting the batch).
package extractorch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/rawblock/realty-pipeline/internal/breaker"
	"github.com/rawblock/realty-pipeline/internal/extract"
	"github.com/rawblock/realty-pipeline/internal/phash"
	"github.com/rawblock/realty-pipeline/internal/store"
	"github.com/rawblock/realty-pipeline/pkg/models"
)

// Status mirrors the specification's per-property rollup outcome.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// killSwitchCriticalFields gates the ok/partial/failed rollup: at least
// one of these must be populated for the attempt to count as anything
// better than failed.
var killSwitchCriticalFields = []string{"hoa_fee", "beds", "sewer_type"}

// Config tunes the orchestrator's concurrency and photo handling.
type Config struct {
	PropertyConcurrency int
	MaxImageDimension   int
	HammingThreshold    int
	ImagesRoot          string // root directory images are written under
}

// Orchestrator drives extraction across every enabled source for a
// batch of properties.
type Orchestrator struct {
	cfg         Config
	sources     []extract.Extractor
	breakers    *breaker.Registry
	st          *store.Store
	log         *zap.Logger
	propertySem *semaphore.Weighted
	idx         *phash.Index
}

// New builds an Orchestrator over the given sources in priority order.
// idx is the single HashIndex shared across every property in the batch
// (and, via the caller, across batches): the specification models
// HashIndex as one global structure so a duplicate photo reused across
// two different listings is caught, not just a duplicate within one
// property's own gallery. The caller owns loading it before the run and
// persisting it after.
func New(cfg Config, sources []extract.Extractor, breakers *breaker.Registry, st *store.Store, log *zap.Logger, idx *phash.Index) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PropertyConcurrency <= 0 {
		cfg.PropertyConcurrency = 3
	}
	if idx == nil {
		idx = phash.NewIndex(cfg.HammingThreshold)
	}
	return &Orchestrator{
		cfg:         cfg,
		sources:     sources,
		breakers:    breakers,
		st:          st,
		log:         log,
		propertySem: semaphore.NewWeighted(int64(cfg.PropertyConcurrency)),
		idx:         idx,
	}
}

// Outcome is one property's finished extraction attempt.
type Outcome struct {
	Address  string
	Status   Status
	Manifest models.ImageManifest
	Errors   []error
}

// RunBatch processes every target concurrently, bounded by
// cfg.PropertyConcurrency, returning one Outcome per property in
// input order.
func (o *Orchestrator) RunBatch(ctx context.Context, targets []extract.Target) ([]Outcome, error) {
	outcomes := make([]Outcome, len(targets))
	g, ctx := errgroup.WithContext(ctx)

	for i, t := range targets {
		i, t := i, t
		if err := o.propertySem.Acquire(ctx, 1); err != nil {
			return outcomes, err
		}
		g.Go(func() error {
			defer o.propertySem.Release(1)
			outcomes[i] = o.RunProperty(ctx, t)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// RunProperty runs every enabled, non-open-circuit source for one
// property serially (sources within a property are never parallelized,
// to avoid the multi-tab fingerprint a concurrent burst against one
// source would present), merging fields and deduplicating photos as it
// goes.
func (o *Orchestrator) RunProperty(ctx context.Context, t extract.Target) Outcome {
	addr := models.NormalizeAddress(t.Address)
	addrHash := models.AddressHash(addr)
	folder := filepath.Join(o.cfg.ImagesRoot, addrHash)

	merger := store.NewMerger(o.log)
	prop := o.st.GetEnrichment(addr)
	if prop == nil {
		prop = &models.Property{FullAddress: addr}
	}

	manifest := models.ImageManifest{Address: addr, AddressHash: addrHash}
	var errs []error
	anySourceSucceeded := false

	for _, src := range o.sources {
		b := o.breakers.Get(src.Name())
		if b.State() == breaker.StateOpen {
			o.log.Info("skipping source, circuit open", zap.String("source", src.Name()), zap.String("address", addr))
			continue
		}
		if err := b.Allow(ctx); err != nil {
			o.log.Info("source not allowed", zap.String("source", src.Name()), zap.Error(err))
			continue
		}

		result := src.Extract(ctx, t)
		success := result.Status == extract.StatusOK || result.Status == extract.StatusPartial
		b.Report(success, blockerFrom(result))
		if !success {
			errs = append(errs, fmt.Errorf("%s: %s", src.Name(), result.Status))
			continue
		}
		anySourceSucceeded = true

		updates := fieldUpdatesFrom(result, src.Name())
		merger.Apply(prop, updates, time.Now())

		for _, img := range result.Images {
			seq := manifest.TotalDownloaded + manifest.DuplicatesRejected + 1
			rec, dup, err := o.processImage(folder, addr, src.Name(), seq, img, o.idx)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if dup {
				manifest.DuplicatesRejected++
				continue
			}
			manifest.Images = append(manifest.Images, rec)
			manifest.TotalDownloaded++
		}
	}

	for _, c := range merger.Conflicts {
		o.log.Info("field conflict on merge",
			zap.String("address", c.Address), zap.String("field", c.Field),
			zap.String("resolution", c.Resolution))
	}

	if err := o.st.UpsertEnrichment(prop); err != nil {
		errs = append(errs, fmt.Errorf("upsert enrichment: %w", err))
	}

	status := rollupStatus(anySourceSucceeded, prop)
	return Outcome{Address: addr, Status: status, Manifest: manifest, Errors: errs}
}

func blockerFrom(r extract.ExtractResult) breaker.HardBlocker {
	switch r.Status {
	case extract.StatusBlocked:
		if r.Blocker == "captcha" {
			return breaker.BlockerCaptcha
		}
		return breaker.BlockerRateLimited
	default:
		return breaker.BlockerNone
	}
}

func fieldUpdatesFrom(r extract.ExtractResult, sourceName string) []store.FieldUpdate {
	kind := models.SourceListing
	if sourceName == "county_records" || sourceName == "assessor_api" {
		kind = models.SourceCounty
	}

	updates := make([]store.FieldUpdate, 0, len(r.Fields))
	for field, value := range r.Fields {
		updates = append(updates, store.FieldUpdate{
			Field:      field,
			Value:      value,
			Source:     kind,
			SourceID:   sourceName,
			Confidence: 1.0,
		})
	}
	return updates
}

// processImage downloads (already downloaded, in r.Images), hashes,
// checks for duplicates scoped to this property first, and if new,
// re-encodes it as PNG (downscaled to MaxImageDimension when larger,
// which also drops any EXIF metadata), writes it atomically to folder
// and registers its hash.
func (o *Orchestrator) processImage(folder, address, source string, seq int, img extract.ImagePayload, idx *phash.Index) (models.ImageRecord, bool, error) {
	h, err := phash.Compute(img.Bytes, o.cfg.MaxImageDimension)
	if err != nil {
		return models.ImageRecord{}, false, fmt.Errorf("hash image from %s: %w", source, err)
	}

	if _, dup := idx.IsDuplicateScoped(h, address); dup {
		return models.ImageRecord{}, true, nil
	}

	decoded, err := imaging.Decode(bytes.NewReader(img.Bytes))
	if err != nil {
		return models.ImageRecord{}, false, fmt.Errorf("decode image from %s: %w", source, err)
	}
	if maxDim := o.cfg.MaxImageDimension; maxDim > 0 {
		if b := decoded.Bounds(); b.Dx() > maxDim || b.Dy() > maxDim {
			decoded = imaging.Fit(decoded, maxDim, maxDim, imaging.Lanczos)
		}
	}
	var pngBuf bytes.Buffer
	if err := imaging.Encode(&pngBuf, decoded, imaging.PNG); err != nil {
		return models.ImageRecord{}, false, fmt.Errorf("encode png from %s: %w", source, err)
	}

	imageID := uuid.NewString()
	bytesPath := filepath.Join(folder, fmt.Sprintf("%d_%s.png", seq, source))
	if err := writeAtomicImage(bytesPath, pngBuf.Bytes()); err != nil {
		return models.ImageRecord{}, false, fmt.Errorf("write image: %w", err)
	}

	idx.Register(phash.Entry{ImageID: imageID, Hash: h, Address: address, Source: source})

	return models.ImageRecord{
		ImageID:         imageID,
		PerceptualHash:  h.PHash,
		DifferenceHash:  h.DHash,
		PropertyAddress: address,
		Source:          source,
		BytesPath:       bytesPath,
		FetchedAt:       time.Now(),
	}, false, nil
}

func writeAtomicImage(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// rollupStatus implements the specification's ok/partial/failed rule:
// ok requires at least one source to have succeeded AND every
// kill-switch-critical field to be present; partial requires some
// fields populated; otherwise failed.
func rollupStatus(anySourceSucceeded bool, p *models.Property) Status {
	if !anySourceSucceeded {
		return StatusFailed
	}

	populated := 0
	for _, f := range killSwitchCriticalFields {
		if _, ok := p.Provenance[f]; ok {
			populated++
		}
	}

	switch {
	case populated == len(killSwitchCriticalFields):
		return StatusOK
	case populated > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}
