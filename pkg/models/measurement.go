// Package models defines the telemetry record types shared by the
// encoder, the batching writer, and the collaborator packages.
package models

// Tag is one indexed string attribute of a measurement.
type Tag struct {
	Key   string
	Value string
}

// Field is one typed value attribute of a measurement.
type Field struct {
	Key   string
	Value Value
}

// Measurement is a single telemetry record: a series name, ordered tags,
// ordered fields, and an optional nanosecond timestamp.
//
// Tags and fields are plain pair slices, not maps: the wire encoding emits
// them in insertion order, and duplicate keys are allowed unless replaced
// through SetTag. A Measurement is built on one goroutine, handed to the
// writer by pointer, and must not be mutated after Send.
type Measurement struct {
	Key    string
	Tags   []Tag
	Fields []Field

	timestamp    int64
	hasTimestamp bool
}

// New returns a Measurement for the given series name.
func New(key string) *Measurement {
	return &Measurement{Key: key}
}

// WithCapacity returns a Measurement with tag and field storage
// preallocated, for callers on hot paths that know their shape.
func WithCapacity(key string, nTags, nFields int) *Measurement {
	return &Measurement{
		Key:    key,
		Tags:   make([]Tag, 0, nTags),
		Fields: make([]Field, 0, nFields),
	}
}

// AddTag appends a tag, preserving insertion order. Returns m for chaining.
func (m *Measurement) AddTag(key, value string) *Measurement {
	m.Tags = append(m.Tags, Tag{Key: key, Value: value})
	return m
}

// AddField appends a field, preserving insertion order. Returns m for
// chaining.
func (m *Measurement) AddField(key string, value Value) *Measurement {
	m.Fields = append(m.Fields, Field{Key: key, Value: value})
	return m
}

// SetTag replaces the first tag with the given key in place, or appends
// when no tag matches.
func (m *Measurement) SetTag(key, value string) *Measurement {
	for i := range m.Tags {
		if m.Tags[i].Key == key {
			m.Tags[i].Value = value
			return m
		}
	}
	return m.AddTag(key, value)
}

// SetTimestamp sets the timestamp in nanoseconds since the epoch.
func (m *Measurement) SetTimestamp(ns int64) *Measurement {
	m.timestamp = ns
	m.hasTimestamp = true
	return m
}

// Timestamp returns the timestamp and whether one has been set.
func (m *Measurement) Timestamp() (int64, bool) {
	return m.timestamp, m.hasTimestamp
}

// GetTag returns the value of the first tag with the given key.
func (m *Measurement) GetTag(key string) (string, bool) {
	for i := range m.Tags {
		if m.Tags[i].Key == key {
			return m.Tags[i].Value, true
		}
	}
	return "", false
}

// GetField returns the value of the first field with the given key.
func (m *Measurement) GetField(key string) (Value, bool) {
	for i := range m.Fields {
		if m.Fields[i].Key == key {
			return m.Fields[i].Value, true
		}
	}
	return Value{}, false
}
