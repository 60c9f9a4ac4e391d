package models

import "time"

// SourceKind ranks where a field's value came from. Higher values win on
// merge, per the precedence rule in the specification: manual research >
// county > listing > default.
type SourceKind int

const (
	SourceDefault SourceKind = iota
	SourceListing
	SourceCounty
	SourceManual
)

// FieldProvenance records where a field's current value came from, when it
// was fetched, and how confident the source was. One entry exists per
// populated field on a Property, keyed by the field's JSON name.
type FieldProvenance struct {
	SourceID   string     `json:"source_id"`
	Kind       SourceKind `json:"kind"`
	FetchedAt  time.Time  `json:"fetched_at"`
	Confidence float64    `json:"confidence"`
}

// ConflictRecord is appended whenever a later source disagrees with an
// existing, higher-or-equal precedence value instead of silently
// overwriting it.
type ConflictRecord struct {
	Address        string     `json:"address"`
	Field          string     `json:"field"`
	ExistingValue  any        `json:"existing_value"`
	ExistingSource SourceKind `json:"existing_source"`
	IncomingValue  any        `json:"incoming_value"`
	IncomingSource SourceKind `json:"incoming_source"`
	Resolution     string     `json:"resolution"` // "kept_existing" | "overwrote"
	At             time.Time  `json:"at"`
}

// LineageEntry is the exported shape of a (address, field) -> provenance
// pair used for the field-lineage JSON output file named in the external
// interfaces section.
type LineageEntry struct {
	Address string          `json:"address"`
	Field   string          `json:"field"`
	Prov    FieldProvenance `json:"provenance"`
}
