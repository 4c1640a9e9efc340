// Package value defines the GFF field value types: the inline scalars, the
// lazy [SimpleValueRef] handle a [token.Token] carries before a caller asks
// the reader to materialize it, and the indirect value shapes (ResRef,
// LocString) that live in the field_data pool.
package value

import (
	"fmt"
	"math"

	"github.com/bearlytools/gff/field"
	"github.com/bearlytools/gff/pool"
)

func float32bits(f float32) uint32 { return math.Float32bits(f) }

// NoStrRef is the sentinel StrRef value meaning "no external TLK
// reference; use the internal per-language text set".
const NoStrRef uint32 = 0xFFFFFFFF

// ResRef is a resource reference: a short identifier (typically ASCII,
// typically <=16 bytes) naming a game resource. The format allows up to
// 255 bytes since the length prefix is a single byte.
type ResRef string

// MaxResRefLen is the largest ResRef the 1-byte length prefix can encode.
const MaxResRefLen = 255

// Substring is one (language, gender) -> text entry of a LocString's
// internal form.
type Substring struct {
	Language uint32
	Gender   uint32
	Text     string
}

// PackID packs a (language, gender) pair into the wire id using the
// corrected formula `(language << 1) | gender` (gender in bit 0). The
// source implementation unpacks this inconsistently in one code path
// (gender = id % 2, language = id >> 2); this implementation uses the
// consistent inverse everywhere: gender = id & 1, language = id >> 1.
func PackID(language, gender uint32) uint32 {
	return (language << 1) | (gender & 1)
}

// UnpackID is the inverse of PackID.
func UnpackID(id uint32) (language, gender uint32) {
	return id >> 1, id & 1
}

// LocString is a localized string value: an external TLK reference and/or
// a set of per-(language,gender) texts. Per the format, StrRef ==
// [NoStrRef] means "no external reference", and both forms may coexist on
// the wire (readers should not assume one implies the absence of the
// other; this implementation preserves both as read).
type LocString struct {
	StrRef  uint32
	Strings []Substring
}

// HasExternalRef reports whether StrRef points at an out-of-band TLK entry
// rather than being the "none" sentinel.
func (l LocString) HasExternalRef() bool {
	return l.StrRef != NoStrRef
}

// SimpleValueRef is the lazy handle a tokenizer emits for a field's value:
// either an inline scalar decoded eagerly (cheap, no pool seek needed) or a
// typed offset into field_data that the caller materializes on demand via
// the reader. It deliberately does not expose the raw offset as a bare
// uint32 so that callers can't hand a field_data offset to, say, the
// structs pool by mistake.
type SimpleValueRef struct {
	Type field.Type

	// Inline holds the decoded value for codes 0-5, 8 (field.IsInline).
	Inline InlineValue

	// Indirect holds the field_data byte offset for codes 6, 7, 9-13
	// (field.IsIndirect). Zero value when Type is an inline code.
	Indirect pool.DataOffset
}

// InlineValue is the decoded form of an inline scalar. Exactly one field is
// meaningful, selected by the owning SimpleValueRef.Type.
type InlineValue struct {
	Byte  uint8
	Char  int8
	Word  uint16
	Short int16
	Dword uint32
	Int   int32
	Float float32
}

// AsUint32 returns the inline value reinterpreted as a raw u32, useful for
// encoders that just need the 4-byte wire pattern regardless of signedness.
func (v InlineValue) AsUint32(t field.Type) (uint32, error) {
	switch t {
	case field.Byte:
		return uint32(v.Byte), nil
	case field.Char:
		return uint32(uint8(v.Char)), nil
	case field.Word:
		return uint32(v.Word), nil
	case field.Short:
		return uint32(uint16(v.Short)), nil
	case field.Dword:
		return v.Dword, nil
	case field.Int:
		return uint32(v.Int), nil
	case field.Float:
		return float32bits(v.Float), nil
	}
	return 0, fmt.Errorf("value: %s is not an inline type", t)
}
