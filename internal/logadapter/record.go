// Package logadapter maps arbitrary structured log key-values onto
// measurements.
//
// A Record accumulates keyed values through the Sink interface (one
// method per value kind). Keys in the reserved tag-eligible set become
// tags; everything else is folded into fields, so low-cardinality
// classifiers stay indexable while free-form values do not explode the
// tag space.
//
// Record is the general-purpose form: unlike models.Measurement, which
// encodes in insertion order, a Record encodes lexicographically by key.
// The two ordering contracts are intentional and must not be mixed.
package logadapter

import (
	"sort"
	"strings"
	"time"

	"github.com/tsforge/relay/pkg/models"
)

// DefaultTagKeys is the reserved set of keys that remain tags. Everything
// else an adapter sees is folded into fields.
var DefaultTagKeys = []string{"category", "origin", "thread", "source"}

// Sink receives structured key-value pairs, one method per value kind.
type Sink interface {
	String(key, val string)
	Int64(key string, val int64)
	Float64(key string, val float64)
	Bool(key string, val bool)
	// Unit records a key that carries presence but no payload.
	Unit(key string)
	// None records an explicitly absent value. Implementations may drop it.
	None(key string)
}

// Record accumulates tags and fields from a Sink stream.
type Record struct {
	tagEligible map[string]struct{}
	tags        []models.Tag
	fields      []models.Field
}

var _ Sink = (*Record)(nil)

// NewRecord returns a Record using DefaultTagKeys.
func NewRecord() *Record {
	return NewRecordWithTagKeys(DefaultTagKeys)
}

// NewRecordWithTagKeys returns a Record with a custom tag-eligible set.
func NewRecordWithTagKeys(keys []string) *Record {
	eligible := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		eligible[k] = struct{}{}
	}
	return &Record{tagEligible: eligible}
}

// AddTag records key=val as a tag when key is tag-eligible, and folds it
// into a string field otherwise. Tag values are sanitized to valid UTF-8
// with NUL bytes removed, per the writer's collaborator contract.
func (r *Record) AddTag(key, val string) {
	if _, ok := r.tagEligible[key]; !ok {
		r.AddField(key, models.String(val))
		return
	}
	val = strings.ToValidUTF8(strings.ReplaceAll(val, "\x00", ""), "")
	r.tags = append(r.tags, models.Tag{Key: key, Value: val})
}

// AddField records key=val as a field.
func (r *Record) AddField(key string, val models.Value) {
	r.fields = append(r.fields, models.Field{Key: key, Value: val})
}

// String implements Sink. String values route through the tag-eligibility
// check; all other kinds are always fields.
func (r *Record) String(key, val string) { r.AddTag(key, val) }

// Int64 implements Sink.
func (r *Record) Int64(key string, val int64) { r.AddField(key, models.Integer(val)) }

// Float64 implements Sink.
func (r *Record) Float64(key string, val float64) { r.AddField(key, models.Float(val)) }

// Bool implements Sink.
func (r *Record) Bool(key string, val bool) { r.AddField(key, models.Boolean(val)) }

// Unit implements Sink. Presence-only keys become boolean true fields.
func (r *Record) Unit(key string) { r.AddField(key, models.Boolean(true)) }

// None implements Sink. Absent values are dropped.
func (r *Record) None(key string) {}

// Tags returns the accumulated tags in arrival order.
func (r *Record) Tags() []models.Tag { return r.tags }

// Fields returns the accumulated fields in arrival order.
func (r *Record) Fields() []models.Field { return r.fields }

// ToMeasurement builds a measurement named name from the record, stamped
// with the current time. Tags and fields are emitted in lexicographic
// key order; equal keys keep their arrival order.
func (r *Record) ToMeasurement(name string) *models.Measurement {
	m := models.WithCapacity(name, len(r.tags), len(r.fields))

	tags := append([]models.Tag(nil), r.tags...)
	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Key < tags[j].Key })
	for _, t := range tags {
		m.AddTag(t.Key, t.Value)
	}

	fields := append([]models.Field(nil), r.fields...)
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })
	for _, f := range fields {
		m.AddField(f.Key, f.Value)
	}

	return m.SetTimestamp(time.Now().UnixNano())
}
