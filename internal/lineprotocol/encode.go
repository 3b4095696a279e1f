// Package lineprotocol serializes measurements into InfluxDB Line
// Protocol text.
//
// Line Protocol Format:
//
//	measurement[,tag_key=tag_value...] field_key=field_value[,field_key=field_value...] [timestamp]
//
// Examples:
//
//	cpu,host=server01,region=us-west usage_idle=90.5,usage_system=2.1 1609459200000000000
//	http_requests,method=GET,status=200 count=1i
//	event,origin=gateway msg="disk full" 1609459200000000000
//
// Two escaping regimes apply. Identifiers (the measurement key, tag keys,
// field keys) have space, comma, and double-quote removed outright. Tag
// values have space and comma backslash-escaped. String field values are
// double-quoted with embedded quotes escaped; a quote that is already
// escaped in the input is left alone, so encoding is idempotent for
// string fields that round-trip.
//
// Encoding is total: it cannot fail. Non-finite floats are normalized to
// a literal 0.0 instead of producing unparseable output.
package lineprotocol

import (
	"math"
	"strconv"
	"strings"

	"github.com/tsforge/relay/pkg/models"
)

// AppendMeasurement appends one encoded line (without a trailing newline)
// to dst and returns the extended slice. It allocates only to grow dst,
// so a caller reusing its buffer across calls amortizes to zero
// allocations.
func AppendMeasurement(dst []byte, m *models.Measurement) []byte {
	dst = appendIdent(dst, m.Key)

	for i := range m.Tags {
		dst = append(dst, ',')
		dst = appendIdent(dst, m.Tags[i].Key)
		dst = append(dst, '=')
		dst = appendTagValue(dst, m.Tags[i].Value)
	}

	for i := range m.Fields {
		if i == 0 {
			dst = append(dst, ' ')
		} else {
			dst = append(dst, ',')
		}
		dst = appendIdent(dst, m.Fields[i].Key)
		dst = append(dst, '=')
		dst = appendFieldValue(dst, m.Fields[i].Value)
	}

	if ts, ok := m.Timestamp(); ok {
		dst = append(dst, ' ')
		dst = strconv.AppendInt(dst, ts, 10)
	}

	return dst
}

// appendIdent appends s with the identifier regime applied: space, comma,
// and double-quote are removed, not escaped.
func appendIdent(dst []byte, s string) []byte {
	if !strings.ContainsAny(s, " ,\"") {
		return append(dst, s...)
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', ',', '"':
		default:
			dst = append(dst, s[i])
		}
	}
	return dst
}

// appendTagValue appends s with space and comma backslash-escaped.
// Double-quotes pass through unchanged in tag values.
func appendTagValue(dst []byte, s string) []byte {
	if !strings.ContainsAny(s, " ,") {
		return append(dst, s...)
	}
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == ',' {
			dst = append(dst, '\\')
		}
		dst = append(dst, s[i])
	}
	return dst
}

// appendStringField appends s double-quoted. A bare double-quote gains a
// backslash; one already preceded by a backslash is kept as-is, which
// keeps re-encoding of pre-escaped strings from doubling the escape.
func appendStringField(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' && (i == 0 || s[i-1] != '\\') {
			dst = append(dst, '\\')
		}
		dst = append(dst, s[i])
	}
	return append(dst, '"')
}

func appendFieldValue(dst []byte, v models.Value) []byte {
	switch v.Kind() {
	case models.KindString:
		return appendStringField(dst, v.Str())

	case models.KindInteger:
		dst = strconv.AppendInt(dst, v.Int(), 10)
		return append(dst, 'i')

	case models.KindFloat:
		f := v.Flt()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return append(dst, "0.0"...)
		}
		return strconv.AppendFloat(dst, f, 'f', -1, 64)

	case models.KindBoolean:
		if v.Bool() {
			return append(dst, 't')
		}
		return append(dst, 'f')

	case models.KindDecimal:
		// shopspring decimals are always finite; no 0.0 fallback needed.
		return append(dst, v.Dec().String()...)

	case models.KindUUID:
		dst = append(dst, '"')
		dst = append(dst, v.UUIDValue().String()...)
		return append(dst, '"')

	default:
		return append(dst, "0.0"...)
	}
}
