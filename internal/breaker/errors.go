package breaker

import "errors"

var (
	// ErrCircuitOpen is returned by Allow when a source's breaker is open.
	ErrCircuitOpen = errors.New("breaker: circuit open")
	// ErrDailyCapReached is returned by Allow when a source's daily request
	// cap has been exhausted since the last idle-window reset.
	ErrDailyCapReached = errors.New("breaker: daily cap reached")
	// ErrSoftFailure marks an ordinary request failure inside gobreaker's
	// Execute, counted toward ConsecutiveFailures.
	ErrSoftFailure = errors.New("breaker: soft failure")
	// ErrHardBlocker marks a captcha/rate_limited response inside
	// gobreaker's Execute.
	ErrHardBlocker = errors.New("breaker: hard blocker")
)
