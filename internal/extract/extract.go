// Package extract defines the Extractor contract and its concrete
// per-source implementations. Each extractor owns one HTTP client, one
// base config, and wraps its outbound calls the way the teacher's
// bitcoin.Client wrapped JSON-RPC calls: a typed Config, a constructor
// that builds the HTTP client (it makes no network call), and thin
// wrapper methods translating the source's native response shape
// into this package's ExtractResult.
package extract

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Status is the per-source outcome of one extraction attempt.
type Status string

const (
	StatusOK           Status = "ok"
	StatusPartial      Status = "partial"
	StatusNotFound     Status = "not_found"
	StatusBlocked      Status = "blocked"
	StatusTransientErr Status = "transient_error"
	StatusFatalErr     Status = "fatal_error"
)

// ImagePayload is one undecoded image fetched from a source, paired with
// the URL it came from for manifest bookkeeping.
type ImagePayload struct {
	URL   string
	Bytes []byte
}

// ExtractResult is what every Extractor.Extract call returns: any fields
// the source contributed (keyed by the Property's JSON field name, so
// internal/store's Merger can apply them directly), any photos it
// fetched, and the outcome status that drove it.
type ExtractResult struct {
	SourceName  string
	Fields      map[string]any
	Images      []ImagePayload
	Status      Status
	Blocker     string // "captcha", "rate_limited", or "" -- maps to breaker.HardBlocker
	AttemptedAt time.Time
}

// Target identifies the property an extractor is being asked to fetch
// data for; it carries whatever identifiers each source needs (a listing
// URL, a parcel ID, an address) rather than the full Property, keeping
// extractors decoupled from the rest of the enrichment record.
type Target struct {
	Address  string
	ParcelID string
	URL      string
}

// Extractor is implemented by every concrete source integration.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, t Target) ExtractResult
}

// Config is shared by every concrete extractor: request timeout,
// optional upstream proxy, and the logger each wraps its lifecycle
// events with, mirroring the teacher's bitcoin.Config{Host,User,Pass}
// shape generalized past a single RPC endpoint.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	ProxyURL       string
	Log            *zap.Logger
}

func (c Config) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}
