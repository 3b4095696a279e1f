package models

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValueKind discriminates the variants of Value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindInteger
	KindFloat
	KindBoolean
	KindDecimal
	KindUUID
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindDecimal:
		return "decimal"
	case KindUUID:
		return "uuid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a tagged union over the field value types the wire format
// supports. The zero Value is an empty string.
type Value struct {
	kind ValueKind
	str  string
	num  int64
	flt  float64
	b    bool
	dec  decimal.Decimal
	id   uuid.UUID
}

// String wraps s as a string field value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Integer wraps i as a 64-bit signed integer field value.
func Integer(i int64) Value { return Value{kind: KindInteger, num: i} }

// Float wraps f as a 64-bit float field value.
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }

// Boolean wraps b as a boolean field value.
func Boolean(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Decimal wraps d as an exact decimal field value.
func Decimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, dec: d} }

// DecimalFromFloat converts f to an exact decimal field value. Non-finite
// inputs have no decimal representation and become zero.
func DecimalFromFloat(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{kind: KindDecimal}
	}
	return Value{kind: KindDecimal, dec: decimal.NewFromFloat(f)}
}

// UUID wraps u as a UUID field value.
func UUID(u uuid.UUID) Value { return Value{kind: KindUUID, id: u} }

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

// Str returns the string payload. Valid only for KindString.
func (v Value) Str() string { return v.str }

// Int returns the integer payload. Valid only for KindInteger.
func (v Value) Int() int64 { return v.num }

// Flt returns the float payload. Valid only for KindFloat.
func (v Value) Flt() float64 { return v.flt }

// Bool returns the boolean payload. Valid only for KindBoolean.
func (v Value) Bool() bool { return v.b }

// Dec returns the decimal payload. Valid only for KindDecimal.
func (v Value) Dec() decimal.Decimal { return v.dec }

// UUIDValue returns the UUID payload. Valid only for KindUUID.
func (v Value) UUIDValue() uuid.UUID { return v.id }

// Equal reports whether v and o hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindInteger:
		return v.num == o.num
	case KindFloat:
		return v.flt == o.flt
	case KindBoolean:
		return v.b == o.b
	case KindDecimal:
		return v.dec.Equal(o.dec)
	case KindUUID:
		return v.id == o.id
	default:
		return false
	}
}

// GoString renders the value for diagnostics, not for the wire.
func (v Value) GoString() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("String(%q)", v.str)
	case KindInteger:
		return fmt.Sprintf("Integer(%d)", v.num)
	case KindFloat:
		return fmt.Sprintf("Float(%g)", v.flt)
	case KindBoolean:
		return fmt.Sprintf("Boolean(%t)", v.b)
	case KindDecimal:
		return fmt.Sprintf("Decimal(%s)", v.dec.String())
	case KindUUID:
		return fmt.Sprintf("UUID(%s)", v.id.String())
	default:
		return "Value(?)"
	}
}

// Visitor receives exactly one callback per Value variant.
type Visitor interface {
	VisitString(s string)
	VisitInteger(i int64)
	VisitFloat(f float64)
	VisitBoolean(b bool)
	VisitDecimal(d decimal.Decimal)
	VisitUUID(u uuid.UUID)
}

// Visit dispatches v to the matching Visitor method.
func (v Value) Visit(vis Visitor) {
	switch v.kind {
	case KindString:
		vis.VisitString(v.str)
	case KindInteger:
		vis.VisitInteger(v.num)
	case KindFloat:
		vis.VisitFloat(v.flt)
	case KindBoolean:
		vis.VisitBoolean(v.b)
	case KindDecimal:
		vis.VisitDecimal(v.dec)
	case KindUUID:
		vis.VisitUUID(v.id)
	}
}
