// Package field details the field type codes used by the GFF wire format.
package field

//go:generate stringer -type=Type -linecomment

// Type is the one-byte (stored as a little-endian u32 on the wire) tag that
// identifies what kind of value a field holds.
type Type uint32

const (
	Byte      Type = 0  // BYTE
	Char      Type = 1  // CHAR
	Word      Type = 2  // WORD
	Short     Type = 3  // SHORT
	Dword     Type = 4  // DWORD
	Int       Type = 5  // INT
	Dword64   Type = 6  // DWORD64
	Int64     Type = 7  // INT64
	Float     Type = 8  // FLOAT
	Double    Type = 9  // DOUBLE
	String    Type = 10 // CEXOSTRING
	ResRef    Type = 11 // RESREF
	LocString Type = 12 // CEXOLOCSTRING
	Void      Type = 13 // VOID
	Struct    Type = 14 // STRUCT
	List      Type = 15 // LIST
)

// Max is the highest valid field type code. Anything above this is unknown.
const Max = List

// String returns the name of the type without relying on go:generate having
// been run, since this repository cannot invoke the Go toolchain to produce
// a stringer file.
func (t Type) String() string {
	switch t {
	case Byte:
		return "BYTE"
	case Char:
		return "CHAR"
	case Word:
		return "WORD"
	case Short:
		return "SHORT"
	case Dword:
		return "DWORD"
	case Int:
		return "INT"
	case Dword64:
		return "DWORD64"
	case Int64:
		return "INT64"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case String:
		return "CEXOSTRING"
	case ResRef:
		return "RESREF"
	case LocString:
		return "CEXOLOCSTRING"
	case Void:
		return "VOID"
	case Struct:
		return "STRUCT"
	case List:
		return "LIST"
	}
	return "UNKNOWN"
}

// Valid reports whether t is one of the 16 field type codes defined by the
// format. Anything else is an UnknownValue condition at the tokenizer layer.
func Valid(t Type) bool {
	return t <= Max
}

// IsInline reports whether the field's 4-byte wire slot holds the value
// itself (codes 0-5, 8) rather than a handle into another pool.
func IsInline(t Type) bool {
	switch t {
	case Byte, Char, Word, Short, Dword, Int, Float:
		return true
	}
	return false
}

// IsIndirect reports whether the field's 4-byte wire slot holds a byte
// offset into the field_data pool (codes 6, 7, 9-13).
func IsIndirect(t Type) bool {
	switch t {
	case Dword64, Int64, Double, String, ResRef, LocString, Void:
		return true
	}
	return false
}

// IsStruct reports whether the field's 4-byte wire slot holds a struct
// index (code 14).
func IsStruct(t Type) bool {
	return t == Struct
}

// IsList reports whether the field's 4-byte wire slot holds a byte offset
// into the list_indices pool (code 15).
func IsList(t Type) bool {
	return t == List
}
