// Package breaker tracks per-source health: a circuit breaker that trips
// on repeated failures or a single hard blocker (captcha, rate_limited),
// and a token-bucket rate limiter bounding request fanout per source.
// The rate limiter keeps the teacher's per-IP token bucket shape from
// internal/api/ratelimit.go -- refill-by-elapsed-time, burst capacity,
// idle cleanup -- but swaps the hand-rolled bucket map for
// golang.org/x/time/rate, and swaps "per IP" for "per source", since
// here the caller is the one rate-limited party, not many inbound
// clients.
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// StateName mirrors models.CircuitStateName for external reporting
// without importing pkg/models into this package's core logic.
type StateName string

const (
	StateClosed   StateName = "closed"
	StateOpen     StateName = "open"
	StateHalfOpen StateName = "half_open"
)

// HardBlocker classifies a failure that should trip the breaker
// immediately regardless of the consecutive-failure count -- a captcha
// challenge or an explicit rate_limited response means continuing to
// hammer the source is actively counterproductive.
type HardBlocker string

const (
	BlockerNone        HardBlocker = ""
	BlockerCaptcha     HardBlocker = "captcha"
	BlockerRateLimited HardBlocker = "rate_limited"
)

// Config tunes one source's breaker and limiter.
type Config struct {
	FailureThreshold int           // consecutive failures before opening
	CooldownPeriod   time.Duration // open -> half_open delay
	SessionIdleReset time.Duration // no activity for this long resets counters
	RequestsPerSec   float64       // token bucket refill rate
	Burst            int           // token bucket capacity
	DailyCap         int           // 0 disables the daily cap
}

// DefaultConfig matches the specification's stated defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 3,
		CooldownPeriod:   30 * time.Minute,
		SessionIdleReset: 30 * time.Minute,
		RequestsPerSec:   1,
		Burst:            2,
		DailyCap:         0,
	}
}

// Source guards one extraction source (a listing site, the county
// records portal, the assessor API) with an independent breaker and
// limiter, so one source tripping never throttles another.
type Source struct {
	name string
	cfg  Config

	cb  *gobreaker.CircuitBreaker
	lim *rate.Limiter

	mu               sync.Mutex
	lastActivity     time.Time
	dailyCount       int
	dailyWindowStart time.Time
	skippedBlocked   int
}

// NewSource builds a breaker+limiter pair for a named source.
func NewSource(name string, cfg Config) *Source {
	now := time.Now()
	s := &Source{
		name:             name,
		cfg:              cfg,
		lim:              rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		lastActivity:     now,
		dailyWindowStart: now,
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1, // half-open allows exactly one probe request
		Interval:    0, // never reset the closed-state failure count on a timer; only ReadyToTrip does
		Timeout:     cfg.CooldownPeriod,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.FailureThreshold)
		},
	}
	s.cb = gobreaker.NewCircuitBreaker(settings)
	return s
}

// Allow reports whether a request to this source may proceed right now:
// the breaker must be closed or half-open-probing, the rate limiter must
// have a token available, and the daily cap (if set) must not be
// exhausted. It does not consume a token by itself seeing a forbidden
// state; ctx lets callers bound how long they'll wait for a token.
func (s *Source) Allow(ctx context.Context) error {
	s.mu.Lock()
	s.maybeResetForIdle()
	if s.cfg.DailyCap > 0 && s.dailyCount >= s.cfg.DailyCap {
		s.mu.Unlock()
		return ErrDailyCapReached
	}
	s.mu.Unlock()

	if s.cb.State() == gobreaker.StateOpen {
		return ErrCircuitOpen
	}

	if err := s.lim.Wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.lastActivity = time.Now()
	s.dailyCount++
	s.mu.Unlock()
	return nil
}

// Report records the outcome of a request this source just attempted.
// blocker, when non-empty, trips the breaker immediately irrespective of
// the consecutive-failure threshold: a captcha or rate_limited response
// is reported as FailureThreshold consecutive failures in one shot so
// gobreaker's own ReadyToTrip opens the circuit on this single call.
func (s *Source) Report(success bool, blocker HardBlocker) {
	if blocker != BlockerNone {
		s.mu.Lock()
		s.skippedBlocked++
		s.mu.Unlock()

		for i := 0; i < s.cfg.FailureThreshold && s.cb.State() != gobreaker.StateOpen; i++ {
			_, _ = s.cb.Execute(func() (any, error) { return nil, ErrHardBlocker })
		}
		return
	}

	_, _ = s.cb.Execute(func() (any, error) {
		if !success {
			return nil, ErrSoftFailure
		}
		return nil, nil
	})
}

func (s *Source) maybeResetForIdle() {
	if s.cfg.SessionIdleReset <= 0 {
		return
	}
	now := time.Now()
	if now.Sub(s.lastActivity) > s.cfg.SessionIdleReset {
		s.dailyCount = 0
		s.dailyWindowStart = now
	}
}

// State returns the breaker's current externally-visible state name.
func (s *Source) State() StateName {
	switch s.cb.State() {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// SkippedBlocked returns how many requests were abandoned due to a hard
// blocker since this Source was constructed.
func (s *Source) SkippedBlocked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skippedBlocked
}

// Name returns the source's identifier, as given to NewSource.
func (s *Source) Name() string { return s.name }
