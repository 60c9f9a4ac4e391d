package breaker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		FailureThreshold: 3,
		CooldownPeriod:   50 * time.Millisecond,
		SessionIdleReset: time.Hour,
		RequestsPerSec:   1000,
		Burst:            1000,
	}
}

func TestSourceStartsClosed(t *testing.T) {
	s := NewSource("listing_a", testConfig())
	assert.Equal(t, StateClosed, s.State())
}

func TestSourceOpensAfterConsecutiveFailures(t *testing.T) {
	s := NewSource("listing_a", testConfig())
	for i := 0; i < 3; i++ {
		s.Report(false, BlockerNone)
	}
	assert.Equal(t, StateOpen, s.State())
}

func TestSourceOpensImmediatelyOnHardBlocker(t *testing.T) {
	s := NewSource("listing_a", testConfig())
	s.Report(true, BlockerNone) // one success shouldn't matter
	s.Report(false, BlockerCaptcha)
	assert.Equal(t, StateOpen, s.State())
	assert.Equal(t, 1, s.SkippedBlocked())
}

func TestSourceHalfOpenAfterCooldown(t *testing.T) {
	cfg := testConfig()
	s := NewSource("listing_a", cfg)
	for i := 0; i < cfg.FailureThreshold; i++ {
		s.Report(false, BlockerNone)
	}
	require.Equal(t, StateOpen, s.State())

	err := s.Allow(context.Background())
	require.ErrorIs(t, err, ErrCircuitOpen)

	time.Sleep(cfg.CooldownPeriod + 20*time.Millisecond)
	assert.Equal(t, StateHalfOpen, s.State())
}

func TestSourceRecoversToClosedOnProbeSuccess(t *testing.T) {
	cfg := testConfig()
	s := NewSource("listing_a", cfg)
	for i := 0; i < cfg.FailureThreshold; i++ {
		s.Report(false, BlockerNone)
	}
	time.Sleep(cfg.CooldownPeriod + 20*time.Millisecond)
	require.Equal(t, StateHalfOpen, s.State())

	s.Report(true, BlockerNone)
	assert.Equal(t, StateClosed, s.State())
}

func TestDailyCapBlocksAllow(t *testing.T) {
	cfg := testConfig()
	cfg.DailyCap = 2
	s := NewSource("assessor_api", cfg)

	ctx := context.Background()
	require.NoError(t, s.Allow(ctx))
	require.NoError(t, s.Allow(ctx))
	assert.ErrorIs(t, s.Allow(ctx), ErrDailyCapReached)
}

func TestRegistryReusesSourceByName(t *testing.T) {
	reg := NewRegistry(testConfig())
	a := reg.Get("county")
	b := reg.Get("county")
	assert.Same(t, a, b)
	assert.Len(t, reg.Snapshot(), 1)
}
