// Package writer implements the assembling GFF writer: callers drive a
// small event API (begin/end struct, field, begin/end list, begin/end
// item) and the writer accumulates an intermediate representation,
// resolving cross-pool byte offsets only once the whole tree is known,
// then emits the six pools and header in a single pass.
package writer

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/bearlytools/gff"
	"github.com/bearlytools/gff/field"
	"github.com/bearlytools/gff/gffenc"
	"github.com/bearlytools/gff/internal/binary"
	"github.com/bearlytools/gff/value"
)

type structVariant uint8

const (
	svNoFields structVariant = iota
	svOneField
	svMultiField
)

// structRecord is the in-memory form of one structs-pool entry before byte
// offsets into field_indices are known.
type structRecord struct {
	variant  structVariant
	fieldIdx uint32 // svOneField: index into fieldsIR; svMultiField: index into fieldListsIR
}

type fieldVariant uint8

const (
	fvSimple fieldVariant = iota
	fvStruct
	fvList
)

// fieldRecord is the in-memory form of one fields-pool entry. structIdx and
// listIdx are already final (structsIR/listsIR are append-only, so an
// index assigned at Begin time never changes); only field_data offsets
// baked into `inline` for indirect simple values are final the same way,
// since field_data is also append-only.
type fieldRecord struct {
	variant   fieldVariant
	labelIdx  uint32
	typeTag   uint32
	inline    [4]byte
	structIdx uint32
	listIdx   uint32
}

// pendingCompound tracks one open begin-struct/begin-root/begin-item scope:
// the structsIR slot reserved for it, the field count the caller declared,
// and the fieldsIR indices gathered as Field/FieldStruct/FieldList calls
// arrive.
type pendingCompound struct {
	index      uint32
	fieldCount int
	fieldIdxs  []uint32
}

// pendingList tracks one open begin-list scope.
type pendingList struct {
	listIdx   uint32
	length    int
	itemsSeen int
}

// Writer assembles a GFF file from a stream of structural events. It is
// single-shot: once Finalize returns (successfully or not), the Writer
// must be discarded.
type Writer struct {
	structsIR []structRecord
	fieldsIR  []fieldRecord

	labels     [][16]byte
	labelIndex map[[16]byte]uint32

	fieldData []byte

	fieldListsIR [][]uint32 // one entry per multi-field struct, each a run of fieldsIR indices
	listsIR      [][]uint32 // one entry per list, each a run of structsIR indices

	codec gffenc.Codec

	stack     []*pendingCompound
	listStack []*pendingList

	pendingListIdx    uint32
	havePendingList   bool
	pendingStructIdx  uint32
	havePendingStruct bool

	rootIndex uint32
	haveRoot  bool

	done bool
	err  error
}

// Option configures a Writer constructed by New.
type Option func(*Writer)

// WithCodec overrides the default UTF-8 codec used to encode String and
// LocString payloads.
func WithCodec(c gffenc.Codec) Option {
	return func(w *Writer) { w.codec = c }
}

// New returns a Writer ready to accept a BeginRoot call.
func New(opts ...Option) *Writer {
	w := &Writer{
		labelIndex: make(map[[16]byte]uint32),
		codec:      gffenc.UTF8,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *Writer) fail(err error) error {
	if w.err == nil {
		w.err = err
	}
	return err
}

func (w *Writer) checkAlive() error {
	if w.done {
		return fmt.Errorf("writer: use after Finalize")
	}
	if w.err != nil {
		return fmt.Errorf("writer: already failed: %w", w.err)
	}
	return nil
}

// reserveStruct appends a placeholder structsIR entry and returns its
// index, the slot BeginRoot/BeginStruct/BeginItem will finalize on End.
func (w *Writer) reserveStruct() uint32 {
	idx := uint32(len(w.structsIR))
	w.structsIR = append(w.structsIR, structRecord{})
	return idx
}

func (w *Writer) pushCompound(index uint32, fieldCount int) {
	w.stack = append(w.stack, &pendingCompound{index: index, fieldCount: fieldCount})
}

func (w *Writer) topCompound() *pendingCompound {
	if len(w.stack) == 0 {
		return nil
	}
	return w.stack[len(w.stack)-1]
}

func (w *Writer) popCompound() (*pendingCompound, error) {
	if len(w.stack) == 0 {
		return nil, fmt.Errorf("writer: End called with no open struct")
	}
	top := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	if len(top.fieldIdxs) != top.fieldCount {
		return nil, fmt.Errorf("writer: struct declared %d fields, got %d", top.fieldCount, len(top.fieldIdxs))
	}
	var rec structRecord
	switch {
	case top.fieldCount == 0:
		rec = structRecord{variant: svNoFields}
	case top.fieldCount == 1:
		rec = structRecord{variant: svOneField, fieldIdx: top.fieldIdxs[0]}
	default:
		listIdx := uint32(len(w.fieldListsIR))
		w.fieldListsIR = append(w.fieldListsIR, top.fieldIdxs)
		rec = structRecord{variant: svMultiField, fieldIdx: listIdx}
	}
	w.structsIR[top.index] = rec
	return top, nil
}

func (w *Writer) addFieldToCurrent(fieldIdx uint32) error {
	top := w.topCompound()
	if top == nil {
		return fmt.Errorf("writer: field declared with no open struct")
	}
	if len(top.fieldIdxs) >= top.fieldCount {
		return fmt.Errorf("writer: struct declared %d fields, exceeded on field %d", top.fieldCount, len(top.fieldIdxs)+1)
	}
	top.fieldIdxs = append(top.fieldIdxs, fieldIdx)
	return nil
}

// BeginRoot opens the file's single root struct, declaring how many
// direct fields it will carry.
func (w *Writer) BeginRoot(fieldCount int) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	if w.haveRoot {
		return w.fail(fmt.Errorf("writer: BeginRoot called twice"))
	}
	idx := w.reserveStruct()
	w.rootIndex = idx
	w.haveRoot = true
	w.pushCompound(idx, fieldCount)
	return nil
}

// EndRoot closes the root struct. It must be the Writer's final event
// before Finalize.
func (w *Writer) EndRoot() error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	if _, err := w.popCompound(); err != nil {
		return w.fail(err)
	}
	return nil
}

// FieldStruct declares a struct-typed field under the currently open
// compound. The caller must follow with BeginStruct/EndStruct before any
// further Field*/Begin* call at this nesting level.
func (w *Writer) FieldStruct(label string) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	labelIdx, err := w.internLabel(label)
	if err != nil {
		return w.fail(err)
	}
	structIdx := w.reserveStruct()
	fieldIdx := uint32(len(w.fieldsIR))
	w.fieldsIR = append(w.fieldsIR, fieldRecord{variant: fvStruct, labelIdx: labelIdx, structIdx: structIdx})
	if err := w.addFieldToCurrent(fieldIdx); err != nil {
		return w.fail(err)
	}
	w.pendingStructIdx = structIdx
	w.havePendingStruct = true
	return nil
}

// BeginStruct opens the struct most recently declared by FieldStruct.
func (w *Writer) BeginStruct(fieldCount int) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	if !w.havePendingStruct {
		return w.fail(fmt.Errorf("writer: BeginStruct called without a preceding FieldStruct"))
	}
	idx := w.pendingStructIdx
	w.havePendingStruct = false
	w.pushCompound(idx, fieldCount)
	return nil
}

// EndStruct closes a struct opened by BeginStruct.
func (w *Writer) EndStruct() error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	if _, err := w.popCompound(); err != nil {
		return w.fail(err)
	}
	return nil
}

// FieldList declares a list-typed field under the currently open compound.
// The caller must follow with BeginList/EndList.
func (w *Writer) FieldList(label string) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	labelIdx, err := w.internLabel(label)
	if err != nil {
		return w.fail(err)
	}
	listIdx := uint32(len(w.listsIR))
	w.listsIR = append(w.listsIR, nil)
	fieldIdx := uint32(len(w.fieldsIR))
	w.fieldsIR = append(w.fieldsIR, fieldRecord{variant: fvList, labelIdx: labelIdx, listIdx: listIdx})
	if err := w.addFieldToCurrent(fieldIdx); err != nil {
		return w.fail(err)
	}
	w.pendingListIdx = listIdx
	w.havePendingList = true
	return nil
}

// BeginList opens the list most recently declared by FieldList, declaring
// its final element count up front.
func (w *Writer) BeginList(length int) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	if !w.havePendingList {
		return w.fail(fmt.Errorf("writer: BeginList called without a preceding FieldList"))
	}
	idx := w.pendingListIdx
	w.havePendingList = false
	w.listStack = append(w.listStack, &pendingList{listIdx: idx, length: length})
	return nil
}

// BeginItem opens the next item in the innermost open list, declaring how
// many direct fields this item's struct will carry.
func (w *Writer) BeginItem(fieldCount int) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	if len(w.listStack) == 0 {
		return w.fail(fmt.Errorf("writer: BeginItem called with no open list"))
	}
	top := w.listStack[len(w.listStack)-1]
	if top.itemsSeen >= top.length {
		return w.fail(fmt.Errorf("writer: list declared %d items, exceeded on item %d", top.length, top.itemsSeen+1))
	}
	idx := w.reserveStruct()
	w.listsIR[top.listIdx] = append(w.listsIR[top.listIdx], idx)
	top.itemsSeen++
	w.pushCompound(idx, fieldCount)
	return nil
}

// EndItem closes an item opened by BeginItem.
func (w *Writer) EndItem() error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	if _, err := w.popCompound(); err != nil {
		return w.fail(err)
	}
	return nil
}

// EndList closes a list opened by BeginList.
func (w *Writer) EndList() error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	if len(w.listStack) == 0 {
		return w.fail(fmt.Errorf("writer: EndList called with no open list"))
	}
	top := w.listStack[len(w.listStack)-1]
	w.listStack = w.listStack[:len(w.listStack)-1]
	if top.itemsSeen != top.length {
		return w.fail(fmt.Errorf("writer: list declared %d items, got %d", top.length, top.itemsSeen))
	}
	return nil
}

// Field writes a non-struct, non-list field under the currently open
// compound. v's concrete Go type selects the wire field type:
// uint8/int8/uint16/int16/uint32/int32/float32 for inline codes,
// uint64/int64/float64/string/value.ResRef/value.LocString/[]byte for
// indirect codes.
func (w *Writer) Field(label string, v any) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	labelIdx, err := w.internLabel(label)
	if err != nil {
		return w.fail(err)
	}
	typeTag, inline, err := w.encodeSimpleValue(v)
	if err != nil {
		return w.fail(err)
	}
	fieldIdx := uint32(len(w.fieldsIR))
	w.fieldsIR = append(w.fieldsIR, fieldRecord{variant: fvSimple, labelIdx: labelIdx, typeTag: typeTag, inline: inline})
	if err := w.addFieldToCurrent(fieldIdx); err != nil {
		return w.fail(err)
	}
	return nil
}

func (w *Writer) internLabel(label string) (uint32, error) {
	if len(label) > 16 {
		return 0, &gff.LabelTooLongError{Len: len(label)}
	}
	var key [16]byte
	copy(key[:], label)
	if idx, ok := w.labelIndex[key]; ok {
		return idx, nil
	}
	idx := uint32(len(w.labels))
	w.labels = append(w.labels, key)
	w.labelIndex[key] = idx
	return idx, nil
}

func (w *Writer) appendFieldData(b []byte) uint32 {
	off := uint32(len(w.fieldData))
	w.fieldData = append(w.fieldData, b...)
	return off
}

// encodeSimpleValue turns an application value into a field type tag and
// its 4-byte wire slot, appending to field_data for indirect types.
func (w *Writer) encodeSimpleValue(v any) (typeTag uint32, inline [4]byte, err error) {
	switch x := v.(type) {
	case uint8:
		inline[0] = x
		return uint32(field.Byte), inline, nil
	case int8:
		inline[0] = byte(x)
		return uint32(field.Char), inline, nil
	case uint16:
		binary.Put(inline[0:2], x)
		return uint32(field.Word), inline, nil
	case int16:
		binary.Put(inline[0:2], x)
		return uint32(field.Short), inline, nil
	case uint32:
		binary.Put(inline[:], x)
		return uint32(field.Dword), inline, nil
	case int32:
		binary.Put(inline[:], x)
		return uint32(field.Int), inline, nil
	case float32:
		binary.Put(inline[:], math32bits(x))
		return uint32(field.Float), inline, nil

	case uint64:
		var buf [8]byte
		binary.Put(buf[:], x)
		off := w.appendFieldData(buf[:])
		binary.Put(inline[:], off)
		return uint32(field.Dword64), inline, nil
	case int64:
		var buf [8]byte
		binary.Put(buf[:], x)
		off := w.appendFieldData(buf[:])
		binary.Put(inline[:], off)
		return uint32(field.Int64), inline, nil
	case float64:
		var buf [8]byte
		binary.Put(buf[:], math64bits(x))
		off := w.appendFieldData(buf[:])
		binary.Put(inline[:], off)
		return uint32(field.Double), inline, nil

	case string:
		enc, err := w.codec.Encode(x)
		if err != nil {
			return 0, inline, err
		}
		var lenBuf [4]byte
		binary.Put(lenBuf[:], uint32(len(enc)))
		off := w.appendFieldData(lenBuf[:])
		w.appendFieldData(enc)
		binary.Put(inline[:], off)
		return uint32(field.String), inline, nil

	case value.ResRef:
		if len(x) > value.MaxResRefLen {
			return 0, inline, w.fail(&gffResRefTooLongError{len(x)})
		}
		off := w.appendFieldData([]byte{byte(len(x))})
		w.appendFieldData([]byte(x))
		binary.Put(inline[:], off)
		return uint32(field.ResRef), inline, nil

	case []byte:
		var lenBuf [4]byte
		binary.Put(lenBuf[:], uint32(len(x)))
		off := w.appendFieldData(lenBuf[:])
		w.appendFieldData(x)
		binary.Put(inline[:], off)
		return uint32(field.Void), inline, nil

	case value.LocString:
		off, err := w.encodeLocString(x)
		if err != nil {
			return 0, inline, err
		}
		binary.Put(inline[:], off)
		return uint32(field.LocString), inline, nil
	}
	return 0, inline, fmt.Errorf("writer: unsupported field value type %T", v)
}

func (w *Writer) encodeLocString(l value.LocString) (uint32, error) {
	var body bytes.Buffer
	if err := binary.PutBuffer(&body, l.StrRef); err != nil {
		return 0, err
	}
	if err := binary.PutBuffer(&body, uint32(len(l.Strings))); err != nil {
		return 0, err
	}
	for _, s := range l.Strings {
		enc, err := w.codec.Encode(s.Text)
		if err != nil {
			return 0, err
		}
		id := value.PackID(s.Language, s.Gender)
		if err := binary.PutBuffer(&body, id); err != nil {
			return 0, err
		}
		if err := binary.PutBuffer(&body, uint32(len(enc))); err != nil {
			return 0, err
		}
		body.Write(enc)
	}
	var header [4]byte
	binary.Put(header[:], uint32(body.Len()))
	off := w.appendFieldData(header[:])
	w.appendFieldData(body.Bytes())
	return off, nil
}

type gffResRefTooLongError struct{ n int }

func (e *gffResRefTooLongError) Error() string {
	return fmt.Sprintf("writer: resref of %d bytes exceeds the 255-byte limit", e.n)
}

func (e *gffResRefTooLongError) Unwrap() error { return gff.ErrResRefTooLong }

func math32bits(f float32) uint32 { return math.Float32bits(f) }
func math64bits(f float64) uint64 { return math.Float64bits(f) }

// Finalize resolves field_indices/list_indices byte offsets, lays out the
// six pools, and writes the header and pools to w. It consumes the
// Writer; no further event calls are valid afterward.
func (w *Writer) Finalize(out io.Writer, sig gff.Signature, ver gff.Version) (int, error) {
	if err := w.checkAlive(); err != nil {
		return 0, err
	}
	if len(w.stack) != 0 || len(w.listStack) != 0 {
		return 0, w.fail(fmt.Errorf("writer: Finalize called with %d open struct(s) and %d open list(s)", len(w.stack), len(w.listStack)))
	}
	w.done = true

	fieldListOffsets := make([]uint32, len(w.fieldListsIR)+1)
	for i, run := range w.fieldListsIR {
		fieldListOffsets[i+1] = fieldListOffsets[i] + uint32(len(run))*4
	}
	listOffsets := make([]uint32, len(w.listsIR)+1)
	for i, run := range w.listsIR {
		listOffsets[i+1] = listOffsets[i] + uint32(len(run)+1)*4
	}

	structsBuf := make([]byte, len(w.structsIR)*12)
	for i, rec := range w.structsIR {
		b := structsBuf[i*12 : i*12+12]
		binary.Put(b[0:4], uint32(0)) // tag: this implementation always writes 0
		switch rec.variant {
		case svNoFields:
			binary.Put(b[4:8], uint32(0))
			binary.Put(b[8:12], uint32(0))
		case svOneField:
			binary.Put(b[4:8], rec.fieldIdx)
			binary.Put(b[8:12], uint32(1))
		case svMultiField:
			binary.Put(b[4:8], fieldListOffsets[rec.fieldIdx])
			binary.Put(b[8:12], uint32(len(w.fieldListsIR[rec.fieldIdx])))
		}
	}

	fieldsBuf := make([]byte, len(w.fieldsIR)*12)
	for i, rec := range w.fieldsIR {
		b := fieldsBuf[i*12 : i*12+12]
		switch rec.variant {
		case fvSimple:
			binary.Put(b[0:4], rec.typeTag)
			binary.Put(b[4:8], rec.labelIdx)
			copy(b[8:12], rec.inline[:])
		case fvStruct:
			binary.Put(b[0:4], uint32(field.Struct))
			binary.Put(b[4:8], rec.labelIdx)
			binary.Put(b[8:12], rec.structIdx)
		case fvList:
			binary.Put(b[0:4], uint32(field.List))
			binary.Put(b[4:8], rec.labelIdx)
			binary.Put(b[8:12], listOffsets[rec.listIdx])
		}
	}

	labelsBuf := make([]byte, len(w.labels)*16)
	for i, l := range w.labels {
		copy(labelsBuf[i*16:i*16+16], l[:])
	}

	fieldIndicesBuf := make([]byte, fieldListOffsets[len(fieldListOffsets)-1])
	for i, run := range w.fieldListsIR {
		base := fieldListOffsets[i]
		for j, fi := range run {
			binary.Put(fieldIndicesBuf[base+uint32(j)*4:base+uint32(j)*4+4], fi)
		}
	}

	listIndicesBuf := make([]byte, listOffsets[len(listOffsets)-1])
	for i, run := range w.listsIR {
		base := listOffsets[i]
		binary.Put(listIndicesBuf[base:base+4], uint32(len(run)))
		for j, si := range run {
			off := base + 4 + uint32(j)*4
			binary.Put(listIndicesBuf[off:off+4], si)
		}
	}

	hdr := gff.Header{Signature: sig, Version: ver}
	off := uint32(gff.HeaderSize)
	hdr.Structs = gff.Section{Offset: off, Count: uint32(len(w.structsIR))}
	off += uint32(len(structsBuf))
	hdr.Fields = gff.Section{Offset: off, Count: uint32(len(w.fieldsIR))}
	off += uint32(len(fieldsBuf))
	hdr.Labels = gff.Section{Offset: off, Count: uint32(len(w.labels))}
	off += uint32(len(labelsBuf))
	hdr.FieldData = gff.Section{Offset: off, Count: uint32(len(w.fieldData))}
	off += uint32(len(w.fieldData))
	hdr.FieldIndices = gff.Section{Offset: off, Count: uint32(len(fieldIndicesBuf))}
	off += uint32(len(fieldIndicesBuf))
	hdr.ListIndices = gff.Section{Offset: off, Count: uint32(len(listIndicesBuf))}

	written := 0
	n, err := hdr.Write(out)
	written += n
	if err != nil {
		return written, err
	}
	for _, buf := range [][]byte{structsBuf, fieldsBuf, labelsBuf, w.fieldData, fieldIndicesBuf, listIndicesBuf} {
		n, err := out.Write(buf)
		written += n
		if err != nil {
			return written, fmt.Errorf("writer: writing pool: %w", err)
		}
	}
	return written, nil
}
