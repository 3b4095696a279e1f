package models

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasurementBuilder(t *testing.T) {
	m := New("test").
		AddTag("one", "a").
		AddTag("two", "b").
		AddField("three", Integer(2)).
		AddField("four", Float(1.2345)).
		AddField("five", String("d")).
		AddField("six", Boolean(true)).
		SetTimestamp(1)

	assert.Equal(t, "test", m.Key)

	v, ok := m.GetTag("one")
	require.True(t, ok)
	assert.Equal(t, "a", v)

	f, ok := m.GetField("three")
	require.True(t, ok)
	assert.True(t, f.Equal(Integer(2)))

	ts, ok := m.Timestamp()
	require.True(t, ok)
	assert.Equal(t, int64(1), ts)

	_, ok = New("empty").Timestamp()
	assert.False(t, ok)
}

func TestMeasurementInsertionOrder(t *testing.T) {
	m := New("test").
		AddTag("z", "1").
		AddTag("a", "2").
		AddField("z", Integer(1)).
		AddField("a", Integer(2))

	// Pair slices keep insertion order, never key order.
	assert.Equal(t, "z", m.Tags[0].Key)
	assert.Equal(t, "a", m.Tags[1].Key)
	assert.Equal(t, "z", m.Fields[0].Key)
	assert.Equal(t, "a", m.Fields[1].Key)
}

func TestMeasurementSetTagReplacesFirst(t *testing.T) {
	m := New("test").
		AddTag("color", "red").
		AddTag("color", "blue")

	m.SetTag("color", "green")

	assert.Equal(t, []Tag{{"color", "green"}, {"color", "blue"}}, m.Tags)

	// Missing key appends.
	m.SetTag("mood", "playful")
	v, ok := m.GetTag("mood")
	require.True(t, ok)
	assert.Equal(t, "playful", v)
}

func TestMeasurementDuplicateTagsAllowed(t *testing.T) {
	m := New("test").AddTag("a", "1").AddTag("a", "2")
	require.Len(t, m.Tags, 2)

	v, ok := m.GetTag("a")
	require.True(t, ok)
	assert.Equal(t, "1", v, "lookup returns the first match")
}

func TestValueKinds(t *testing.T) {
	u := uuid.New()
	d := decimal.RequireFromString("1.25")

	tests := []struct {
		name string
		v    Value
		kind ValueKind
	}{
		{"string", String("x"), KindString},
		{"integer", Integer(7), KindInteger},
		{"float", Float(2.5), KindFloat},
		{"boolean", Boolean(true), KindBoolean},
		{"decimal", Decimal(d), KindDecimal},
		{"uuid", UUID(u), KindUUID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.v.Kind())
			assert.True(t, tt.v.Equal(tt.v))
		})
	}

	assert.False(t, Integer(1).Equal(Float(1)))
	assert.True(t, Decimal(d).Equal(Decimal(decimal.RequireFromString("1.250"))))
}

func TestDecimalFromFloatNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		v := DecimalFromFloat(f)
		assert.Equal(t, KindDecimal, v.Kind())
		assert.True(t, v.Dec().IsZero())
	}

	assert.Equal(t, "1.5", DecimalFromFloat(1.5).Dec().String())
}

type recordingVisitor struct {
	kind ValueKind
}

func (r *recordingVisitor) VisitString(string)           { r.kind = KindString }
func (r *recordingVisitor) VisitInteger(int64)           { r.kind = KindInteger }
func (r *recordingVisitor) VisitFloat(float64)           { r.kind = KindFloat }
func (r *recordingVisitor) VisitBoolean(bool)            { r.kind = KindBoolean }
func (r *recordingVisitor) VisitDecimal(decimal.Decimal) { r.kind = KindDecimal }
func (r *recordingVisitor) VisitUUID(uuid.UUID)          { r.kind = KindUUID }

func TestValueVisitDispatch(t *testing.T) {
	values := []Value{
		String("s"), Integer(1), Float(1.5), Boolean(false),
		Decimal(decimal.Decimal{}), UUID(uuid.Nil),
	}
	for _, v := range values {
		var rec recordingVisitor
		v.Visit(&rec)
		assert.Equal(t, v.Kind(), rec.kind)
	}
}
