// Package perr defines the error taxonomy shared across the pipeline:
// Blocker, Transient, Permanent (per-property and per-source), and Fatal.
// Call sites wrap one of the sentinel values below with eris.Wrap so the
// taxonomy survives errors.Is while still carrying a stack trace and
// call-site context.
package perr

import "github.com/rotisserie/eris"

// Sentinel taxonomy values. Every error that crosses a source or phase
// boundary wraps one of these so callers can classify it with errors.Is
// without string matching.
var (
	// ErrBlocker is recoverable by the circuit breaker: captcha,
	// rate-limiting, or a network timeout mid-request.
	ErrBlocker = eris.New("blocker")

	// ErrTransient should be retried locally: 5xx, connection reset, a
	// single 429 that hasn't yet tripped the breaker.
	ErrTransient = eris.New("transient")

	// ErrPermanentProperty is recorded and the batch continues with the
	// next property: 404/delisted, schema-parse failure.
	ErrPermanentProperty = eris.New("permanent_property")

	// ErrPermanentSource opens the circuit for a source: repeated
	// captchas, missing configuration.
	ErrPermanentSource = eris.New("permanent_source")

	// ErrFatal aborts the whole batch before any further property is
	// touched: corrupt state with no usable backup, missing input CSV.
	ErrFatal = eris.New("fatal")
)

// Blocker wraps err as a Blocker-class error.
func Blocker(err error, msg string) error { return eris.Wrap(joinSentinel(ErrBlocker, err), msg) }

// Transient wraps err as a Transient-class error.
func Transient(err error, msg string) error {
	return eris.Wrap(joinSentinel(ErrTransient, err), msg)
}

// PermanentProperty wraps err as a per-property Permanent-class error.
func PermanentProperty(err error, msg string) error {
	return eris.Wrap(joinSentinel(ErrPermanentProperty, err), msg)
}

// PermanentSource wraps err as a per-source Permanent-class error.
func PermanentSource(err error, msg string) error {
	return eris.Wrap(joinSentinel(ErrPermanentSource, err), msg)
}

// Fatal wraps err as a Fatal-class error.
func Fatal(err error, msg string) error { return eris.Wrap(joinSentinel(ErrFatal, err), msg) }

// joinSentinel pairs the classifying sentinel with the underlying cause so
// errors.Is(result, sentinel) succeeds and the original cause is still in
// the chain for logging.
func joinSentinel(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return &classified{sentinel: sentinel, cause: cause}
}

type classified struct {
	sentinel error
	cause    error
}

func (c *classified) Error() string { return c.cause.Error() }
func (c *classified) Unwrap() []error {
	return []error{c.sentinel, c.cause}
}
