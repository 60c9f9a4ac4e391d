// Package phase implements the Phase Orchestrator: a per-property state
// machine over the eight PhaseIds, enforcing the prerequisite table,
// writing a checkpoint before and after every phase, and recovering
// from a crash by resuming at the first non-terminal phase on restart.
package phase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rawblock/realty-pipeline/internal/killswitch"
	"github.com/rawblock/realty-pipeline/internal/scorer"
	"github.com/rawblock/realty-pipeline/internal/store"
	"github.com/rawblock/realty-pipeline/internal/validate"
	"github.com/rawblock/realty-pipeline/pkg/models"
)

// Mode controls how the orchestrator reacts to an unmet prerequisite.
type Mode string

const (
	ModeStrict  Mode = "strict"
	ModeLenient Mode = "lenient"
)

// Runner executes the work of a single phase for one property, mutating
// the Property passed to it (the enrichment record, already loaded from
// the store by the time Runner is invoked) and returning an error to
// mark the phase failed.
type Runner func(ctx context.Context, p *models.Property) error

// prerequisite evaluates whether phase may run, given the work item's
// current phase_status map and the enrichment record gathered so far.
// ok=false with a non-empty reason means "not ready
// yet, not a failure" (lenient skip); fatal=true means the orchestrator
// should abort the whole property in strict mode.
type prerequisite struct {
	check func(item *models.WorkItem, p *models.Property) (ok bool, reason string)
	fatal bool
}

func prerequisites() map[models.PhaseID]prerequisite {
	complete := func(id models.PhaseID) func(item *models.WorkItem, p *models.Property) (bool, string) {
		return func(item *models.WorkItem, _ *models.Property) (bool, string) {
			if item.PhaseStatus[id] == models.StatusComplete {
				return true, ""
			}
			return false, fmt.Sprintf("%s not complete", id)
		}
	}
	notFailed := func(id models.PhaseID) func(item *models.WorkItem, p *models.Property) (bool, string) {
		return func(item *models.WorkItem, _ *models.Property) (bool, string) {
			if item.PhaseStatus[id] != models.StatusFailed {
				return true, ""
			}
			return false, fmt.Sprintf("%s failed", id)
		}
	}

	return map[models.PhaseID]prerequisite{
		models.PhaseCounty: {
			check: func(item *models.WorkItem, p *models.Property) (bool, string) { return true, "" },
			fatal: true,
		},
		models.PhaseCost: {check: complete(models.PhaseCounty), fatal: false},
		models.PhaseListing: {check: notFailed(models.PhaseCounty), fatal: false},
		models.PhaseMap:     {check: notFailed(models.PhaseCounty), fatal: false},
		models.PhaseExterior: {
			check: func(item *models.WorkItem, p *models.Property) (bool, string) {
				if item.PhaseStatus[models.PhaseListing] != models.StatusComplete {
					return false, "P1_listing not complete"
				}
				return true, ""
			},
			fatal: true,
		},
		models.PhaseInterior: {check: complete(models.PhaseExterior), fatal: false},
		models.PhaseSynthesis: {
			check: func(item *models.WorkItem, p *models.Property) (bool, string) {
				if item.PhaseStatus[models.PhaseCounty] != models.StatusComplete {
					return false, "P0_county not complete"
				}
				listingOK := item.PhaseStatus[models.PhaseListing] == models.StatusComplete
				mapOK := item.PhaseStatus[models.PhaseMap] == models.StatusComplete
				if !listingOK && !mapOK {
					return false, "neither P1_listing nor P1_map complete"
				}
				return true, ""
			},
			fatal: false,
		},
		models.PhaseReport: {check: complete(models.PhaseSynthesis), fatal: true},
	}
}

// Orchestrator drives every registered phase's Runner for a batch of
// properties against the shared state store.
type Orchestrator struct {
	st          *store.Store
	log         *zap.Logger
	mode        Mode
	runners     map[models.PhaseID]Runner
	skip        map[models.PhaseID]bool
	killCfg     killswitch.Config
	currentYear int
	imagesRoot  string
}

// Config wires the orchestrator's dependencies and behavior flags.
type Config struct {
	Store       *store.Store
	Log         *zap.Logger
	Mode        Mode
	SkipPhases  []models.PhaseID
	KillSwitch  killswitch.Config
	CurrentYear int
	ImagesRoot  string
}

// New builds an Orchestrator with every phase runner registered.
func New(cfg Config, runners map[models.PhaseID]Runner) *Orchestrator {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	skip := map[models.PhaseID]bool{}
	for _, id := range cfg.SkipPhases {
		skip[id] = true
	}
	return &Orchestrator{
		st:          cfg.Store,
		log:         log,
		mode:        cfg.Mode,
		runners:     runners,
		skip:        skip,
		killCfg:     cfg.KillSwitch,
		currentYear: cfg.CurrentYear,
		imagesRoot:  cfg.ImagesRoot,
	}
}

// ErrAborted is returned by RunProperty when a fatal prerequisite fails
// in strict mode.
type ErrAborted struct {
	Phase  models.PhaseID
	Reason string
}

func (e *ErrAborted) Error() string {
	return fmt.Sprintf("aborted at %s: %s", e.Phase, e.Reason)
}

// RunProperty drives address through every phase in canonical order,
// acquiring the state store's lock for the duration, honoring
// crash-recovery resume (the store itself already reset any stale
// in_progress phase back to pending on load), and the three-strikes
// permanent-skip rule.
func (o *Orchestrator) RunProperty(ctx context.Context, address, owner string) error {
	ok, err := o.st.AcquireLock(address, owner)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("property %s is locked by another worker", address)
	}
	defer o.st.ReleaseLock(address, owner)

	item := o.st.GetOrCreateWorkItem(address)
	prereqs := prerequisites()

	remaining := pendingPhases(item)
	for len(remaining) > 0 {
		if len(remaining) >= 2 && remaining[0] == models.PhaseListing && contains(remaining, models.PhaseMap) {
			if err := o.runConcurrentP1(ctx, address, item, prereqs); err != nil {
				return err
			}
			remaining = pendingPhases(item)
			continue
		}

		id := remaining[0]
		if err := o.runOne(ctx, address, id, item, prereqs); err != nil {
			return err
		}
		remaining = pendingPhases(item)
	}

	return nil
}

func (o *Orchestrator) runConcurrentP1(ctx context.Context, address string, item *models.WorkItem, prereqs map[models.PhaseID]prerequisite) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.runOne(ctx, address, models.PhaseListing, item, prereqs) })
	g.Go(func() error { return o.runOne(ctx, address, models.PhaseMap, item, prereqs) })
	return g.Wait()
}

func (o *Orchestrator) runOne(ctx context.Context, address string, id models.PhaseID, item *models.WorkItem, prereqs map[models.PhaseID]prerequisite) error {
	if item.PhaseStatus[id] == models.StatusComplete || item.PhaseStatus[id] == models.StatusSkipped {
		return nil
	}
	if item.RetryCount[id] >= models.MaxRetries {
		return o.st.CommitPhase(address, id, models.StatusSkipped)
	}
	if o.skip[id] {
		o.log.Info("phase skipped by configuration", zap.String("address", address), zap.String("phase", string(id)))
		return o.st.CommitPhase(address, id, models.StatusSkipped)
	}

	prop := o.st.GetEnrichment(address)
	if prop == nil {
		prop = &models.Property{FullAddress: address}
	}

	pre, hasPre := prereqs[id]
	if hasPre {
		ok, reason := pre.check(item, prop)
		if !ok {
			if pre.fatal && o.mode == ModeStrict {
				return &ErrAborted{Phase: id, Reason: reason}
			}
			o.log.Info("phase skipped, prerequisite unmet", zap.String("address", address), zap.String("phase", string(id)), zap.String("reason", reason))
			return o.st.CommitPhase(address, id, models.StatusSkipped)
		}
	}

	if id == models.PhaseExterior || id == models.PhaseInterior {
		if err := o.preSpawnGate(address, id, prop); err != nil {
			o.log.Warn("phase blocked by pre-spawn validator", zap.String("address", address), zap.String("phase", string(id)), zap.Error(err))
			return o.st.CommitPhase(address, id, models.StatusSkipped)
		}
	}

	if err := o.st.CommitPhase(address, id, models.StatusInProgress); err != nil {
		return fmt.Errorf("commit in_progress for %s: %w", id, err)
	}

	runner, ok := o.runners[id]
	if !ok {
		return fmt.Errorf("no runner registered for phase %s", id)
	}

	if id == models.PhaseSynthesis {
		o.runSynthesis(prop)
	}

	runErr := runner(ctx, prop)

	if contractErr := validate.TypeContracts(prop); contractErr != nil {
		o.log.Warn("type contract violation", zap.String("address", address), zap.String("phase", string(id)), zap.Error(contractErr))
	}

	if upsertErr := o.st.UpsertEnrichment(prop); upsertErr != nil {
		o.log.Error("failed to persist enrichment after phase", zap.String("address", address), zap.Error(upsertErr))
	} else {
		if orphans := validate.SchemaCoverage(prop); len(orphans) > 0 {
			o.log.Info("schema coverage orphans", zap.String("address", address), zap.Strings("fields", orphans))
		}
		if missing := validate.ProvenancePopulated(prop); len(missing) > 0 {
			o.log.Info("fields missing provenance", zap.String("address", address), zap.Strings("fields", missing))
		}
	}

	if runErr != nil {
		o.log.Warn("phase failed", zap.String("address", address), zap.String("phase", string(id)), zap.Error(runErr))
		return o.st.CommitPhase(address, id, models.StatusFailed)
	}
	return o.st.CommitPhase(address, id, models.StatusComplete)
}

// runSynthesis runs the kill-switch evaluator and scorer directly
// (they are pure functions, not external collaborators, so they are
// invoked inline rather than through a registered Runner) before the
// phase's own Runner (if any) does further bookkeeping.
func (o *Orchestrator) runSynthesis(p *models.Property) {
	ksResult := killswitch.Evaluate(p, o.killCfg, o.currentYear)
	p.KillSwitchVerdict = ksResult.Verdict
	p.KillSwitchSeverity = ksResult.Severity
	p.KillSwitchFailures = ksResult.Failures

	scoreResult := scorer.Score(p, ksResult.Verdict)
	p.ScoreSectionA = scoreResult.SectionA
	p.ScoreSectionB = scoreResult.SectionB
	p.ScoreSectionC = scoreResult.SectionC
	p.TotalScore = scoreResult.TotalScore
	p.Tier = scoreResult.Tier
	p.DefaultsUsed = scoreResult.DefaultsUsed
	p.DataQuality = scoreResult.DataQuality
}

func (o *Orchestrator) preSpawnGate(address string, id models.PhaseID, p *models.Property) error {
	folder := filepath.Join(o.imagesRoot, models.AddressHash(address))
	count := countImages(folder)
	return validate.PreSpawnGate(folder, count, p)
}

// countImages returns the number of regular files directly inside dir,
// tolerating a missing directory by returning 0 (the pre-spawn gate
// itself reports the missing-folder case distinctly).
func countImages(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}

func pendingPhases(item *models.WorkItem) []models.PhaseID {
	var out []models.PhaseID
	for _, id := range models.Phases {
		switch item.PhaseStatus[id] {
		case models.StatusComplete, models.StatusSkipped:
			continue
		default:
			out = append(out, id)
		}
	}
	return out
}

func contains(ids []models.PhaseID, target models.PhaseID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
