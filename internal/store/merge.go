package store

import (
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/rawblock/realty-pipeline/pkg/models"
)

// FieldUpdate is one incoming value an extractor or research phase wants
// to apply to a property's enrichment record.
type FieldUpdate struct {
	Field      string
	Value      any
	Source     models.SourceKind
	SourceID   string
	Confidence float64
}

// Merger applies precedence rules (manual > county > listing > default)
// to a set of incoming field updates against an existing property record,
// logging a ConflictRecord whenever a later source disagrees with an
// existing value instead of silently overwriting it. It is the single
// place merge semantics live; its caller is the extraction orchestrator
// (listing/county fields).
type Merger struct {
	log       *zap.Logger
	Conflicts []models.ConflictRecord
}

// NewMerger returns a Merger ready to accumulate conflicts in its
// Conflicts slice.
func NewMerger(log *zap.Logger) *Merger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Merger{log: log}
}

// Apply merges updates into p in place, updating p.Provenance for every
// field it writes. Manual-research values already on the record are preserved unless
// the incoming update is itself manual (or the field has never been set).
func (m *Merger) Apply(p *models.Property, updates []FieldUpdate, now time.Time) {
	if p.Provenance == nil {
		p.Provenance = map[string]models.FieldProvenance{}
	}

	for _, u := range updates {
		existing, had := p.Provenance[u.Field]

		if had && existing.Kind > u.Source {
			// Existing value outranks the incoming one: keep it, but
			// record the disagreement if the values actually differ.
			if !valuesEqual(p, u.Field, u.Value) {
				m.Conflicts = append(m.Conflicts, models.ConflictRecord{
					Address:        p.FullAddress,
					Field:          u.Field,
					ExistingSource: existing.Kind,
					IncomingValue:  u.Value,
					IncomingSource: u.Source,
					Resolution:     "kept_existing",
					At:             now,
				})
			}
			continue
		}

		if had && existing.Kind == u.Source && !valuesEqual(p, u.Field, u.Value) {
			// Same precedence tier disagreeing with itself (e.g. two
			// listing sources): newer wins but still logged.
			m.Conflicts = append(m.Conflicts, models.ConflictRecord{
				Address:        p.FullAddress,
				Field:          u.Field,
				ExistingSource: existing.Kind,
				IncomingValue:  u.Value,
				IncomingSource: u.Source,
				Resolution:     "overwrote",
				At:             now,
			})
		}

		setField(p, u.Field, u.Value)
		p.Provenance[u.Field] = models.FieldProvenance{
			SourceID:   u.SourceID,
			Kind:       u.Source,
			FetchedAt:  now,
			Confidence: u.Confidence,
		}
	}
}

// valuesEqual compares the field's current value on p against incoming,
// using reflection so Merger stays agnostic to Property's concrete shape.
func valuesEqual(p *models.Property, field string, incoming any) bool {
	v := reflect.ValueOf(p).Elem().FieldByNameFunc(func(n string) bool { return jsonNameMatches(p, n, field) })
	if !v.IsValid() {
		return false
	}
	return reflect.DeepEqual(v.Interface(), incoming)
}

func setField(p *models.Property, field string, value any) {
	v := reflect.ValueOf(p).Elem()
	fv := v.FieldByNameFunc(func(n string) bool { return jsonNameMatches(p, n, field) })
	if !fv.IsValid() || !fv.CanSet() {
		if p.Extras == nil {
			p.Extras = map[string]any{}
		}
		p.Extras[field] = value
		return
	}
	val := reflect.ValueOf(value)
	if val.IsValid() && val.Type().AssignableTo(fv.Type()) {
		fv.Set(val)
		return
	}
	if val.IsValid() && val.Type().ConvertibleTo(fv.Type()) {
		fv.Set(val.Convert(fv.Type()))
	}
}

// jsonNameMatches is a small helper avoiding a struct-tag cache for what
// is, in practice, a handful of fields per merge call.
func jsonNameMatches(p *models.Property, fieldName, jsonField string) bool {
	t := reflect.TypeOf(*p)
	sf, ok := t.FieldByName(fieldName)
	if !ok {
		return false
	}
	tag := sf.Tag.Get("json")
	if tag == "" {
		return false
	}
	name := tag
	for i, c := range tag {
		if c == ',' {
			name = tag[:i]
			break
		}
	}
	return name == jsonField
}
