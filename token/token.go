// Package token defines the event alphabet the GFF tokenizer emits: a
// depth-first, pre-order walk of the logical struct/field/list tree
// described by spec §4.D, without materializing a full in-memory tree.
package token

import (
	"fmt"

	"github.com/bearlytools/gff/pool"
	"github.com/bearlytools/gff/value"
)

// Kind identifies which of the tokenizer's events a Token carries.
type Kind uint8

const (
	RootBegin Kind = iota
	RootEnd
	StructBegin
	StructEnd
	ListBegin
	ListEnd
	ItemBegin
	ItemEnd
	Label
	Value
)

func (k Kind) String() string {
	switch k {
	case RootBegin:
		return "RootBegin"
	case RootEnd:
		return "RootEnd"
	case StructBegin:
		return "StructBegin"
	case StructEnd:
		return "StructEnd"
	case ListBegin:
		return "ListBegin"
	case ListEnd:
		return "ListEnd"
	case ItemBegin:
		return "ItemBegin"
	case ItemEnd:
		return "ItemEnd"
	case Label:
		return "Label"
	case Value:
		return "Value"
	}
	return "Unknown"
}

// IsOpen reports whether k opens a compound (RootBegin, StructBegin,
// ListBegin, ItemBegin). Used by skip-subtree depth tracking.
func (k Kind) IsOpen() bool {
	switch k {
	case RootBegin, StructBegin, ListBegin, ItemBegin:
		return true
	}
	return false
}

// IsClose reports whether k closes a compound opened by the Kind named in
// its doc comment above.
func (k Kind) IsClose() bool {
	switch k {
	case RootEnd, StructEnd, ListEnd, ItemEnd:
		return true
	}
	return false
}

// Token is one event in the tokenizer's depth-first walk. Only the fields
// relevant to Kind are meaningful; see the grammar in spec §4.D:
//
//	Root   = RootBegin Field* RootEnd
//	Struct = StructBegin Field* StructEnd
//	Item   = ItemBegin Field* ItemEnd
//	Field  = Label (Value | Struct | List)
//	List   = ListBegin Item* ListEnd
type Token struct {
	Kind Kind

	// Tag and FieldCount are set on RootBegin, StructBegin and ItemBegin.
	Tag        uint32
	FieldCount uint32

	// Index is the item's ordinal within its containing list, set only on
	// ItemBegin.
	Index uint32

	// Count is the list's element count, set only on ListBegin.
	Count uint32

	// LabelIndex identifies the field name's slot in the labels pool, set only
	// on Label tokens. Resolve it to text via Reader.ReadLabel.
	LabelIndex pool.LabelIndex

	// Value carries the field's value reference, set only on Value
	// tokens. Resolve it via Reader.Materialize.
	Value value.SimpleValueRef
}

func (t Token) String() string {
	switch t.Kind {
	case RootBegin, StructBegin:
		return fmt.Sprintf("%s{tag:%d, fields:%d}", t.Kind, t.Tag, t.FieldCount)
	case ItemBegin:
		return fmt.Sprintf("%s{tag:%d, fields:%d, index:%d}", t.Kind, t.Tag, t.FieldCount, t.Index)
	case ListBegin:
		return fmt.Sprintf("%s(%d)", t.Kind, t.Count)
	case Label:
		return fmt.Sprintf("Label(%d)", t.LabelIndex)
	case Value:
		return fmt.Sprintf("Value(%s)", t.Value.Type)
	default:
		return t.Kind.String()
	}
}
