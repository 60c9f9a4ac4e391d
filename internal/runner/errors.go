package runner

import "errors"

// errCorruptState and errNoSources are wrapped (via fmt.Errorf's %w or
// errors.Join) into whatever error Run returns, so the CLI driver can
// classify the failure into the specification's exit codes without the
// runner package needing to know about os.Exit at all.
var (
	errCorruptState = errors.New("state store corrupt")
	errNoSources    = errors.New("no extraction sources configured")
)

// IsCorruptState reports whether err (or anything it wraps) is the
// state-store-corrupt sentinel, mapping to exit code 2.
func IsCorruptState(err error) bool { return errors.Is(err, errCorruptState) }

// IsNoSources reports whether err (or anything it wraps) is the
// no-sources-available sentinel, mapping to exit code 3.
func IsNoSources(err error) bool { return errors.Is(err, errNoSources) }
