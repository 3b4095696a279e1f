package logadapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsforge/relay/pkg/models"
)

func TestRecordTagFolding(t *testing.T) {
	r := NewRecord()
	r.String("category", "ERRO")   // tag-eligible
	r.String("origin", "gateway")  // tag-eligible
	r.String("path", "/api/write") // folded into a field

	assert.Equal(t, []models.Tag{
		{Key: "category", Value: "ERRO"},
		{Key: "origin", Value: "gateway"},
	}, r.Tags())

	require.Len(t, r.Fields(), 1)
	assert.Equal(t, "path", r.Fields()[0].Key)
	assert.True(t, r.Fields()[0].Value.Equal(models.String("/api/write")))
}

func TestRecordSinkKinds(t *testing.T) {
	r := NewRecord()
	r.Int64("count", 3)
	r.Float64("ratio", 0.5)
	r.Bool("ok", false)
	r.Unit("seen")
	r.None("missing")

	fields := r.Fields()
	require.Len(t, fields, 4, "None values are dropped")

	byKey := map[string]models.Value{}
	for _, f := range fields {
		byKey[f.Key] = f.Value
	}
	assert.True(t, byKey["count"].Equal(models.Integer(3)))
	assert.True(t, byKey["ratio"].Equal(models.Float(0.5)))
	assert.True(t, byKey["ok"].Equal(models.Boolean(false)))
	assert.True(t, byKey["seen"].Equal(models.Boolean(true)))
}

func TestRecordTagValueSanitized(t *testing.T) {
	r := NewRecord()
	r.String("category", "a\x00b\xffc")

	require.Len(t, r.Tags(), 1)
	assert.Equal(t, "abc", r.Tags()[0].Value, "NUL and invalid UTF-8 removed")
}

func TestRecordCustomTagKeys(t *testing.T) {
	r := NewRecordWithTagKeys([]string{"exchange", "ticker"})
	r.String("exchange", "plnx")
	r.String("category", "ERRO") // not eligible under the custom set

	require.Len(t, r.Tags(), 1)
	assert.Equal(t, "exchange", r.Tags()[0].Key)
	require.Len(t, r.Fields(), 1)
	assert.Equal(t, "category", r.Fields()[0].Key)
}

func TestToMeasurementSortsByKey(t *testing.T) {
	r := NewRecord()
	r.String("thread", "worker-1")
	r.String("category", "NOTC")
	r.Int64("zebra", 1)
	r.Int64("alpha", 2)

	before := time.Now().UnixNano()
	m := r.ToMeasurement("app_log")
	after := time.Now().UnixNano()

	assert.Equal(t, "app_log", m.Key)

	// Lexicographic key order, unlike models.Measurement's insertion
	// order.
	assert.Equal(t, "category", m.Tags[0].Key)
	assert.Equal(t, "thread", m.Tags[1].Key)
	assert.Equal(t, "alpha", m.Fields[0].Key)
	assert.Equal(t, "zebra", m.Fields[1].Key)

	ts, ok := m.Timestamp()
	require.True(t, ok)
	assert.GreaterOrEqual(t, ts, before)
	assert.LessOrEqual(t, ts, after)

	// Converting again must not disturb the record.
	again := r.ToMeasurement("app_log")
	assert.Equal(t, m.Tags, again.Tags)
	assert.Equal(t, m.Fields, again.Fields)
}
