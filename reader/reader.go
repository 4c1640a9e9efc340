// Package reader implements random-access field materialization and the
// pull-style tokenizer over a seekable GFF stream. The two are split in
// spec §4 as separate concerns sharing one cursor: Reader knows how to
// find and decode one pool record or payload at a time; Tokenizer drives
// Reader through the struct/field/list tree in depth-first order without
// ever building that tree in memory.
package reader

import (
	"bytes"
	"fmt"
	"io"

	"github.com/bearlytools/gff"
	"github.com/bearlytools/gff/field"
	"github.com/bearlytools/gff/gffenc"
	"github.com/bearlytools/gff/internal/binary"
	"github.com/bearlytools/gff/pool"
	"github.com/bearlytools/gff/value"
)

// Reader gives random access to the pools of one GFF stream. It holds no
// tree state of its own; a Tokenizer (see NewTokenizer) drives it.
type Reader struct {
	rs    io.ReadSeeker
	hdr   gff.Header
	codec gffenc.Codec
	trap  gffenc.Trap
}

// Option configures a Reader constructed by Open.
type Option func(*Reader)

// WithCodec overrides the default UTF-8 codec used to decode String and
// LocString payloads (ResRef is always raw bytes; see spec on character
// encoding scope).
func WithCodec(c gffenc.Codec) Option {
	return func(r *Reader) { r.codec = c }
}

// WithTrap selects strict or lossy decode behavior for the active codec.
func WithTrap(t gffenc.Trap) Option {
	return func(r *Reader) { r.trap = t }
}

// Open reads the 56-byte header from rs and returns a Reader positioned to
// materialize any pool record by index or offset. rs must support Seek
// since pool access is random, not sequential.
func Open(rs io.ReadSeeker, opts ...Option) (*Reader, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("reader: seeking to start: %w", err)
	}
	hdr, err := gff.ReadHeader(rs)
	if err != nil {
		return nil, err
	}
	r := &Reader{rs: rs, hdr: hdr, codec: gffenc.UTF8, trap: gffenc.Strict}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Header returns the file's parsed prologue.
func (r *Reader) Header() gff.Header { return r.hdr }

// NewTokenizer returns a fresh Tokenizer walking this file's root struct.
func (r *Reader) NewTokenizer() *Tokenizer {
	return &Tokenizer{r: r, next: stateRoot}
}

func (r *Reader) seek(off int64) error {
	_, err := r.rs.Seek(off, io.SeekStart)
	return err
}

// readStructRecord reads the 12-byte record at the given pool index:
// tag, a field-count-dependent offset/field-index, and the field count.
func (r *Reader) readStructRecord(idx pool.StructIndex) (tag, dataOrOffset, fieldCount uint32, err error) {
	if err = r.seek(int64(r.hdr.Structs.Offset) + idx.Offset()); err != nil {
		return
	}
	if tag, err = binary.GetBuffer[uint32](r.rs); err != nil {
		return
	}
	if dataOrOffset, err = binary.GetBuffer[uint32](r.rs); err != nil {
		return
	}
	fieldCount, err = binary.GetBuffer[uint32](r.rs)
	return
}

// readFieldRecord reads the 12-byte record at the given pool index: the
// type tag, the label index, and the 4-byte inline/offset payload.
func (r *Reader) readFieldRecord(idx pool.FieldIndex) (typeTag uint32, label pool.LabelIndex, data [4]byte, err error) {
	if err = r.seek(int64(r.hdr.Fields.Offset) + idx.Offset()); err != nil {
		return
	}
	if typeTag, err = binary.GetBuffer[uint32](r.rs); err != nil {
		return
	}
	var li uint32
	if li, err = binary.GetBuffer[uint32](r.rs); err != nil {
		return
	}
	label = pool.LabelIndex(li)
	_, err = io.ReadFull(r.rs, data[:])
	return
}

// ReadLabel resolves a label index to its text, trimming the fixed 16-byte
// slot at its first NUL. It saves and restores the stream's cursor so it
// can be called mid-tokenization without disturbing the tokenizer.
func (r *Reader) ReadLabel(idx pool.LabelIndex) (string, error) {
	cur, err := r.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", fmt.Errorf("reader: saving cursor: %w", err)
	}
	defer r.rs.Seek(cur, io.SeekStart)

	if err := r.seek(int64(r.hdr.Labels.Offset) + idx.Offset()); err != nil {
		return "", err
	}
	var buf [pool.LabelStride]byte
	if _, err := io.ReadFull(r.rs, buf[:]); err != nil {
		return "", fmt.Errorf("reader: reading label %d: %w", idx, err)
	}
	if i := bytes.IndexByte(buf[:], 0); i >= 0 {
		return string(buf[:i]), nil
	}
	return string(buf[:]), nil
}

func (r *Reader) readFieldIndicesEntry(c pool.FieldIndicesCursor) (pool.FieldIndex, error) {
	if err := r.seek(int64(r.hdr.FieldIndices.Offset) + c.Offset()); err != nil {
		return 0, err
	}
	v, err := binary.GetBuffer[uint32](r.rs)
	return pool.FieldIndex(v), err
}

func (r *Reader) readListLength(base uint32) (uint32, error) {
	if err := r.seek(int64(r.hdr.ListIndices.Offset) + int64(base)); err != nil {
		return 0, err
	}
	return binary.GetBuffer[uint32](r.rs)
}

func (r *Reader) readListEntry(c pool.ListIndicesCursor) (pool.StructIndex, error) {
	if err := r.seek(int64(r.hdr.ListIndices.Offset) + c.Offset()); err != nil {
		return 0, err
	}
	v, err := binary.GetBuffer[uint32](r.rs)
	return pool.StructIndex(v), err
}

// ReadU64 decodes a DWORD64 payload at the given field_data offset.
func (r *Reader) ReadU64(off pool.DataOffset) (uint64, error) {
	if err := r.seek(int64(r.hdr.FieldData.Offset) + int64(off)); err != nil {
		return 0, err
	}
	return binary.GetBuffer[uint64](r.rs)
}

// ReadI64 decodes an INT64 payload at the given field_data offset.
func (r *Reader) ReadI64(off pool.DataOffset) (int64, error) {
	if err := r.seek(int64(r.hdr.FieldData.Offset) + int64(off)); err != nil {
		return 0, err
	}
	return binary.GetBuffer[int64](r.rs)
}

// ReadF64 decodes a DOUBLE payload at the given field_data offset.
func (r *Reader) ReadF64(off pool.DataOffset) (float64, error) {
	bits, err := r.ReadU64(off)
	if err != nil {
		return 0, err
	}
	return doubleFromBits(bits), nil
}

// ReadString decodes a CExoString payload: a u32 length followed by that
// many bytes, run through the active codec.
func (r *Reader) ReadString(off pool.DataOffset) (string, error) {
	b, err := r.readLengthPrefixed(off)
	if err != nil {
		return "", fmt.Errorf("reader: reading string at %d: %w", off, err)
	}
	return r.codec.Decode(b, r.trap)
}

// ReadResRef decodes a ResRef payload: a u8 length followed by that many
// raw bytes. ResRef is never run through the pluggable codec; it is
// conventionally short ASCII and the format treats it as opaque bytes.
func (r *Reader) ReadResRef(off pool.DataOffset) (value.ResRef, error) {
	if err := r.seek(int64(r.hdr.FieldData.Offset) + int64(off)); err != nil {
		return "", err
	}
	n, err := binary.GetBuffer[uint8](r.rs)
	if err != nil {
		return "", fmt.Errorf("reader: reading resref length at %d: %w", off, err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.rs, buf); err != nil {
		return "", fmt.Errorf("reader: reading resref bytes at %d: %w", off, err)
	}
	return value.ResRef(buf), nil
}

// ReadByteBuf decodes a Void payload: a u32 length followed by that many
// raw, uninterpreted bytes.
func (r *Reader) ReadByteBuf(off pool.DataOffset) ([]byte, error) {
	b, err := r.readLengthPrefixed(off)
	if err != nil {
		return nil, fmt.Errorf("reader: reading byte buffer at %d: %w", off, err)
	}
	return b, nil
}

func (r *Reader) readLengthPrefixed(off pool.DataOffset) ([]byte, error) {
	if err := r.seek(int64(r.hdr.FieldData.Offset) + int64(off)); err != nil {
		return nil, err
	}
	n, err := binary.GetBuffer[uint32](r.rs)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	_, err = io.ReadFull(r.rs, buf)
	return buf, err
}

// ReadLocString decodes a CExoLocString payload: total_size, an external
// StrRef, a substring count, then that many (id, length, text) entries.
// total_size is read but not validated against the bytes actually
// consumed; a writer-side bug that miscomputes it does not stop the
// reader from recovering the substrings that follow.
func (r *Reader) ReadLocString(off pool.DataOffset) (value.LocString, error) {
	if err := r.seek(int64(r.hdr.FieldData.Offset) + int64(off)); err != nil {
		return value.LocString{}, err
	}
	if _, err := binary.GetBuffer[uint32](r.rs); err != nil { // total_size, unvalidated
		return value.LocString{}, fmt.Errorf("reader: reading locstring total_size at %d: %w", off, err)
	}
	strRef, err := binary.GetBuffer[uint32](r.rs)
	if err != nil {
		return value.LocString{}, fmt.Errorf("reader: reading locstring strref at %d: %w", off, err)
	}
	count, err := binary.GetBuffer[uint32](r.rs)
	if err != nil {
		return value.LocString{}, fmt.Errorf("reader: reading locstring substring count at %d: %w", off, err)
	}
	out := value.LocString{StrRef: strRef, Strings: make([]value.Substring, 0, count)}
	for i := uint32(0); i < count; i++ {
		id, err := binary.GetBuffer[uint32](r.rs)
		if err != nil {
			return value.LocString{}, fmt.Errorf("reader: reading locstring substring %d id: %w", i, err)
		}
		n, err := binary.GetBuffer[uint32](r.rs)
		if err != nil {
			return value.LocString{}, fmt.Errorf("reader: reading locstring substring %d length: %w", i, err)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r.rs, buf); err != nil {
			return value.LocString{}, fmt.Errorf("reader: reading locstring substring %d text: %w", i, err)
		}
		text, err := r.codec.Decode(buf, r.trap)
		if err != nil {
			return value.LocString{}, err
		}
		lang, gender := value.UnpackID(id)
		out.Strings = append(out.Strings, value.Substring{Language: lang, Gender: gender, Text: text})
	}
	return out, nil
}

// Materialize resolves a lazy value reference to a concrete Go value. The
// concrete type depends on ref.Type: uint8/int8/uint16/int16/uint32/int32/
// float32 for inline codes, uint64/int64/float64/string/value.ResRef/
// value.LocString/[]byte for indirect codes. Struct and List codes are not
// valid here; they are expanded as further tokens, not materialized.
func (r *Reader) Materialize(ref value.SimpleValueRef) (any, error) {
	switch ref.Type {
	case field.Byte:
		return ref.Inline.Byte, nil
	case field.Char:
		return ref.Inline.Char, nil
	case field.Word:
		return ref.Inline.Word, nil
	case field.Short:
		return ref.Inline.Short, nil
	case field.Dword:
		return ref.Inline.Dword, nil
	case field.Int:
		return ref.Inline.Int, nil
	case field.Float:
		return ref.Inline.Float, nil
	case field.Dword64:
		return r.ReadU64(ref.Indirect)
	case field.Int64:
		return r.ReadI64(ref.Indirect)
	case field.Double:
		return r.ReadF64(ref.Indirect)
	case field.String:
		return r.ReadString(ref.Indirect)
	case field.ResRef:
		return r.ReadResRef(ref.Indirect)
	case field.LocString:
		return r.ReadLocString(ref.Indirect)
	case field.Void:
		return r.ReadByteBuf(ref.Indirect)
	}
	return nil, fmt.Errorf("reader: %s cannot be materialized directly", ref.Type)
}
