package reader

import (
	"fmt"

	"github.com/bearlytools/gff"
	"github.com/bearlytools/gff/field"
	"github.com/bearlytools/gff/internal/binary"
	"github.com/bearlytools/gff/pool"
	"github.com/bearlytools/gff/token"
	"github.com/bearlytools/gff/value"
)

// stateFn is one transition of the tokenizer's structural state machine:
// it performs one bounded read against the Reader, produces exactly one
// Token, and returns the state to resume from on the next call (nil means
// the walk is finished). The shape follows a continuation-passing style
// lexer: each compound's "what to do when this closes" is captured as the
// `after` stateFn threaded into the state that opened it.
type stateFn func(tz *Tokenizer) (token.Token, stateFn, error)

// Tokenizer walks one GFF file's struct/field/list tree in depth-first,
// pre-order fashion, emitting one Token per NextToken call without ever
// materializing the tree itself. It holds no allocation proportional to
// the file's total field count; its state is a small stack of closures
// proportional only to current nesting depth.
type Tokenizer struct {
	r      *Reader
	next   stateFn
	peeked *token.Token
	done   bool
}

// NextToken returns the next token in the walk, or gff.ErrParsingFinished
// once the root struct's closing token has been returned.
func (tz *Tokenizer) NextToken() (token.Token, error) {
	if tz.peeked != nil {
		t := *tz.peeked
		tz.peeked = nil
		return t, nil
	}
	if tz.done {
		return token.Token{}, gff.ErrParsingFinished
	}
	t, next, err := tz.next(tz)
	if err != nil {
		tz.done = true
		return token.Token{}, err
	}
	if next == nil {
		tz.done = true
	} else {
		tz.next = next
	}
	return t, nil
}

// Peek returns the next token without consuming it.
func (tz *Tokenizer) Peek() (token.Token, error) {
	if tz.peeked != nil {
		return *tz.peeked, nil
	}
	t, err := tz.NextToken()
	if err != nil {
		return token.Token{}, err
	}
	tz.peeked = &t
	return t, nil
}

// SkipSubtree consumes and discards tokens until the compound opened by
// open (a Root/Struct/List/Item-Begin token just returned by NextToken)
// has been fully closed. Useful for a caller that only wants to look at a
// handful of top-level fields and skip the rest of a large struct or list.
func (tz *Tokenizer) SkipSubtree(open token.Token) error {
	if !open.Kind.IsOpen() {
		return fmt.Errorf("reader: SkipSubtree called with non-opening token %s", open.Kind)
	}
	depth := 1
	for depth > 0 {
		t, err := tz.NextToken()
		if err != nil {
			return err
		}
		switch {
		case t.Kind.IsOpen():
			depth++
		case t.Kind.IsClose():
			depth--
		}
	}
	return nil
}

// stateRoot is the tokenizer's entry point: the root struct is struct
// index 0, with no parent to return to once it closes.
func stateRoot(tz *Tokenizer) (token.Token, stateFn, error) {
	return enterCompound(tz.r, 0, token.RootBegin, 0, nil)
}

// enterCompound reads the struct record at si, emits its Begin token, and
// picks the next state based on the format's field-count asymmetry: zero
// fields means no field data to walk, one field stores the field index
// directly, two or more means the record holds a byte offset into
// field_indices. afterEnd is resumed once the matching End token for this
// compound has been emitted.
func enterCompound(r *Reader, si pool.StructIndex, kind token.Kind, itemIndex uint32, afterEnd stateFn) (token.Token, stateFn, error) {
	tag, dataOrOffset, fieldCount, err := r.readStructRecord(si)
	if err != nil {
		return token.Token{}, nil, fmt.Errorf("reader: reading struct %d: %w", si, err)
	}
	t := token.Token{Kind: kind, Tag: tag, FieldCount: fieldCount}
	if kind == token.ItemBegin {
		t.Index = itemIndex
	}

	end := endKindFor(kind)
	var next stateFn
	switch {
	case fieldCount == 0:
		next = stateEnd(end, afterEnd)
	case fieldCount == 1:
		next = stateReadLabel(pool.FieldIndex(dataOrOffset), stateEnd(end, afterEnd))
	default:
		cur := pool.FieldIndicesCursor{Base: dataOrOffset}
		next = stateReadFields(cur, fieldCount, stateEnd(end, afterEnd))
	}
	return t, next, nil
}

func endKindFor(open token.Kind) token.Kind {
	switch open {
	case token.RootBegin:
		return token.RootEnd
	case token.StructBegin:
		return token.StructEnd
	case token.ItemBegin:
		return token.ItemEnd
	}
	panic(fmt.Sprintf("reader: %s has no matching end kind", open))
}

func stateEnd(kind token.Kind, after stateFn) stateFn {
	return func(tz *Tokenizer) (token.Token, stateFn, error) {
		return token.Token{Kind: kind}, after, nil
	}
}

// stateReadFields walks a multi-field struct's run in field_indices.
// "Delegate to parent" (spec §4.D step 6, remaining == 0) is implemented
// as a direct tail call into `after` rather than an extra empty poll.
func stateReadFields(cur pool.FieldIndicesCursor, remaining uint32, after stateFn) stateFn {
	return func(tz *Tokenizer) (token.Token, stateFn, error) {
		if remaining == 0 {
			return after(tz)
		}
		fi, err := tz.r.readFieldIndicesEntry(cur)
		if err != nil {
			return token.Token{}, nil, fmt.Errorf("reader: reading field_indices entry: %w", err)
		}
		continuation := stateReadFields(cur.Next(), remaining-1, after)
		return stateReadLabel(fi, continuation)(tz)
	}
}

func stateReadLabel(fi pool.FieldIndex, after stateFn) stateFn {
	return func(tz *Tokenizer) (token.Token, stateFn, error) {
		typeTag, labelIdx, data, err := tz.r.readFieldRecord(fi)
		if err != nil {
			return token.Token{}, nil, fmt.Errorf("reader: reading field %d: %w", fi, err)
		}
		t := token.Token{Kind: token.Label, LabelIndex: labelIdx}
		return t, stateField(typeTag, data, after), nil
	}
}

// stateField dispatches on a field's type tag once its label has been
// emitted: a Struct tag enters a nested compound, a List tag emits
// ListBegin and walks items, anything else emits a Value token directly.
// Unknown type tags (outside 0-15) fail eagerly here rather than being
// deferred to Materialize, per this implementation's validation policy.
func stateField(typeTag uint32, data [4]byte, after stateFn) stateFn {
	return func(tz *Tokenizer) (token.Token, stateFn, error) {
		switch {
		case typeTag == uint32(field.Struct):
			idx := pool.StructIndex(binary.Get[uint32](data[:]))
			return enterCompound(tz.r, idx, token.StructBegin, 0, after)

		case typeTag == uint32(field.List):
			offset := binary.Get[uint32](data[:])
			count, err := tz.r.readListLength(offset)
			if err != nil {
				return token.Token{}, nil, fmt.Errorf("reader: reading list length: %w", err)
			}
			t := token.Token{Kind: token.ListBegin, Count: count}
			cur := pool.ListIndicesCursor{Base: offset}
			return t, stateItems(cur, count, after), nil

		default:
			ft := field.Type(typeTag)
			if !field.Valid(ft) {
				return token.Token{}, nil, gff.NewUnknownValueError(typeTag, data)
			}
			ref := value.SimpleValueRef{Type: ft}
			if field.IsInline(ft) {
				ref.Inline = decodeInline(ft, data)
			} else {
				ref.Indirect = pool.DataOffset(binary.Get[uint32](data[:]))
			}
			return token.Token{Kind: token.Value, Value: ref}, after, nil
		}
	}
}

// stateItems walks a list's entries in list_indices, each of which is a
// struct index materialized as an Item compound.
func stateItems(cur pool.ListIndicesCursor, remaining uint32, after stateFn) stateFn {
	return func(tz *Tokenizer) (token.Token, stateFn, error) {
		if remaining == 0 {
			return token.Token{Kind: token.ListEnd}, after, nil
		}
		si, err := tz.r.readListEntry(cur)
		if err != nil {
			return token.Token{}, nil, fmt.Errorf("reader: reading list entry: %w", err)
		}
		ordinal := cur.Ordinal
		continuation := stateItems(cur.Next(), remaining-1, after)
		return enterCompound(tz.r, si, token.ItemBegin, ordinal, continuation)
	}
}

func decodeInline(t field.Type, data [4]byte) value.InlineValue {
	var v value.InlineValue
	switch t {
	case field.Byte:
		v.Byte = data[0]
	case field.Char:
		v.Char = int8(data[0])
	case field.Word:
		v.Word = binary.Get[uint16](data[0:2])
	case field.Short:
		v.Short = binary.Get[int16](data[0:2])
	case field.Dword:
		v.Dword = binary.Get[uint32](data[:])
	case field.Int:
		v.Int = binary.Get[int32](data[:])
	case field.Float:
		v.Float = float32FromBits(binary.Get[uint32](data[:]))
	}
	return v
}
