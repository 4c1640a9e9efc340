// Package pool defines the typed index wrappers used to address the six
// GFF pools (structs, fields, labels, field_data, field_indices,
// list_indices). Each type erases to a plain uint32 at the I/O boundary but
// prevents one pool's offset from being handed to another pool's reader by
// accident, a common bug class in hand-rolled binary codecs.
package pool

// Stride of each fixed-width record, in bytes.
const (
	StructStride = 12
	FieldStride  = 12
	LabelStride  = 16
)

// StructIndex is a logical index (not a byte offset) into the structs pool.
type StructIndex uint32

// Offset returns the byte offset of this struct's 12-byte record from the
// start of the structs pool.
func (i StructIndex) Offset() int64 {
	return int64(i) * StructStride
}

// FieldIndex is a logical index (not a byte offset) into the fields pool.
type FieldIndex uint32

// Offset returns the byte offset of this field's 12-byte record from the
// start of the fields pool.
func (i FieldIndex) Offset() int64 {
	return int64(i) * FieldStride
}

// LabelIndex is a logical index (not a byte offset) into the labels pool.
type LabelIndex uint32

// Offset returns the byte offset of this label's 16-byte slot from the
// start of the labels pool.
func (i LabelIndex) Offset() int64 {
	return int64(i) * LabelStride
}

// DataOffset is a byte offset into the field_data pool, where indirect
// scalar, string, resref, locstring and void payloads live.
type DataOffset uint32

// FieldIndicesCursor walks the field_indices pool, which holds flat runs of
// u32 struct-field indices referenced by multi-field structs. It carries a
// base byte offset plus an element ordinal so the n-th entry in a run can be
// addressed, and advanced by one element, without recomputing the base.
type FieldIndicesCursor struct {
	Base    uint32
	Ordinal uint32
}

// Offset returns the absolute byte offset of the cursor's current element.
func (c FieldIndicesCursor) Offset() int64 {
	return int64(c.Base) + int64(c.Ordinal)*4
}

// Next returns the cursor advanced by one element.
func (c FieldIndicesCursor) Next() FieldIndicesCursor {
	return FieldIndicesCursor{Base: c.Base, Ordinal: c.Ordinal + 1}
}

// ListIndicesCursor walks the list_indices pool the same way, except each
// list is prefixed by a u32 length, so element 0 of the list lives 4 bytes
// past Base rather than at Base.
type ListIndicesCursor struct {
	Base    uint32
	Ordinal uint32
}

// Offset returns the absolute byte offset of the cursor's current element
// (the struct index), skipping the list's length prefix.
func (c ListIndicesCursor) Offset() int64 {
	return int64(c.Base) + 4 + int64(c.Ordinal)*4
}

// Next returns the cursor advanced by one element.
func (c ListIndicesCursor) Next() ListIndicesCursor {
	return ListIndicesCursor{Base: c.Base, Ordinal: c.Ordinal + 1}
}

// LengthOffset returns the absolute byte offset of the list's u32 length
// prefix.
func (c ListIndicesCursor) LengthOffset() int64 {
	return int64(c.Base)
}
