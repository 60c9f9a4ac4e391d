package phase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/realty-pipeline/internal/killswitch"
	"github.com/rawblock/realty-pipeline/internal/store"
	"github.com/rawblock/realty-pipeline/pkg/models"
)

func okRunner(setFields func(p *models.Property)) Runner {
	return func(_ context.Context, p *models.Property) error {
		if setFields != nil {
			setFields(p)
		}
		return nil
	}
}

func allOKRunners() map[models.PhaseID]Runner {
	return map[models.PhaseID]Runner{
		models.PhaseCounty: okRunner(func(p *models.Property) {
			p.LotSqft = 9000
			p.YearBuilt = 1999
			p.GarageSpaces = 2
		}),
		models.PhaseCost:     okRunner(nil),
		models.PhaseListing:  okRunner(func(p *models.Property) { p.Beds = 4 }),
		models.PhaseMap:      okRunner(nil),
		models.PhaseExterior: okRunner(nil),
		models.PhaseInterior: okRunner(nil),
		models.PhaseSynthesis: okRunner(func(p *models.Property) {
			p.HOAFeeKnown = true
			p.Baths = 2.0
			p.SewerType = models.SewerCity
		}),
		models.PhaseReport: okRunner(nil),
	}
}

func newTestOrchestrator(t *testing.T, runners map[models.PhaseID]Runner, mode Mode) (*Orchestrator, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir(), 30*time.Minute, nil)
	require.NoError(t, err)

	orch := New(Config{
		Store:       st,
		Mode:        mode,
		KillSwitch:  killswitch.Config{UnknownHOAFailsHard: true},
		CurrentYear: 2026,
		ImagesRoot:  t.TempDir(),
	}, runners)
	return orch, st
}

func TestRunPropertyCompletesReadyPhasesAndGateSkipsExterior(t *testing.T) {
	orch, st := newTestOrchestrator(t, allOKRunners(), ModeLenient)

	err := orch.RunProperty(context.Background(), "1 main st", "worker-1")
	require.NoError(t, err)

	item := st.GetOrCreateWorkItem("1 main st")
	assert.Equal(t, models.StatusSkipped, item.PhaseStatus[models.PhaseExterior]) // no images folder -> blocked by pre-spawn gate
	assert.Equal(t, models.StatusComplete, item.PhaseStatus[models.PhaseCounty])
	assert.Equal(t, models.StatusComplete, item.PhaseStatus[models.PhaseListing])
	assert.Equal(t, models.StatusComplete, item.PhaseStatus[models.PhaseMap])
}

func TestRunPropertySkipsPhaseOnConfiguredSkipList(t *testing.T) {
	runners := allOKRunners()
	st, err := store.Open(t.TempDir(), 30*time.Minute, nil)
	require.NoError(t, err)

	orch := New(Config{
		Store:       st,
		Mode:        ModeLenient,
		SkipPhases:  []models.PhaseID{models.PhaseCost},
		KillSwitch:  killswitch.Config{UnknownHOAFailsHard: true},
		CurrentYear: 2026,
		ImagesRoot:  t.TempDir(),
	}, runners)

	require.NoError(t, orch.RunProperty(context.Background(), "1 main st", "worker-1"))

	item := st.GetOrCreateWorkItem("1 main st")
	assert.Equal(t, models.StatusSkipped, item.PhaseStatus[models.PhaseCost])
}

func TestRunPropertyAbortsInStrictModeOnFatalPrerequisite(t *testing.T) {
	runners := allOKRunners()
	runners[models.PhaseCounty] = func(_ context.Context, p *models.Property) error {
		return assertErr
	}

	orch, _ := newTestOrchestrator(t, runners, ModeStrict)
	err := orch.RunProperty(context.Background(), "1 main st", "worker-1")
	require.Error(t, err)
	_, isAborted := err.(*ErrAborted)
	assert.True(t, isAborted)
}

func TestPermanentSkipAfterThreeFailures(t *testing.T) {
	runners := allOKRunners()
	runners[models.PhaseCounty] = func(_ context.Context, p *models.Property) error {
		return assertErr
	}

	orch, st := newTestOrchestrator(t, runners, ModeLenient)
	require.NoError(t, orch.RunProperty(context.Background(), "1 main st", "worker-1"))
	require.NoError(t, orch.RunProperty(context.Background(), "1 main st", "worker-1"))
	require.NoError(t, orch.RunProperty(context.Background(), "1 main st", "worker-1"))

	item := st.GetOrCreateWorkItem("1 main st")
	assert.Equal(t, 3, item.RetryCount[models.PhaseCounty])

	require.NoError(t, orch.RunProperty(context.Background(), "1 main st", "worker-1"))
	item = st.GetOrCreateWorkItem("1 main st")
	assert.Equal(t, models.StatusSkipped, item.PhaseStatus[models.PhaseCounty])
}

var assertErr = fmtErrorf("runner failure")

func fmtErrorf(msg string) error {
	return &simpleError{msg}
}

type simpleError struct{ msg string }

func (e *simpleError) Error() string { return e.msg }
