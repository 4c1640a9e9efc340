package writer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/kylelemons/godebug/pretty"

	"github.com/bearlytools/gff"
	"github.com/bearlytools/gff/reader"
	"github.com/bearlytools/gff/token"
	"github.com/bearlytools/gff/value"
)

// buildSample writes a small but structurally complete tree: a root
// carrying one field of every simple field type except Word (carried by
// the nested struct) and LocString (exercised separately in
// TestLocStringRoundTrip), a nested struct field with two Word fields, and
// a list field whose two items carry no fields. This covers the 0- and
// 2+-field structs-pool variants; the 1-field variant is not in this
// sample.
func buildSample(t *testing.T) []byte {
	t.Helper()
	w := New()

	if err := w.BeginRoot(14); err != nil {
		t.Fatalf("BeginRoot: %v", err)
	}
	if err := w.Field("HitPoints", int32(45)); err != nil {
		t.Fatalf("Field HitPoints: %v", err)
	}
	if err := w.Field("Name", "Aribeth"); err != nil {
		t.Fatalf("Field Name: %v", err)
	}
	if err := w.Field("Level", uint8(20)); err != nil {
		t.Fatalf("Field Level: %v", err)
	}
	if err := w.Field("Alignment", int8(-5)); err != nil {
		t.Fatalf("Field Alignment: %v", err)
	}
	if err := w.Field("Bonus", int16(-1000)); err != nil {
		t.Fatalf("Field Bonus: %v", err)
	}
	if err := w.Field("Flags", uint32(0xDEADBEEF)); err != nil {
		t.Fatalf("Field Flags: %v", err)
	}
	if err := w.Field("Scale", float32(3.5)); err != nil {
		t.Fatalf("Field Scale: %v", err)
	}
	if err := w.Field("XPTotal", uint64(0x1122334455667788)); err != nil {
		t.Fatalf("Field XPTotal: %v", err)
	}
	if err := w.Field("GoldEarned", int64(-123456789012345)); err != nil {
		t.Fatalf("Field GoldEarned: %v", err)
	}
	if err := w.Field("CombatRating", float64(2.718281828)); err != nil {
		t.Fatalf("Field CombatRating: %v", err)
	}
	if err := w.Field("Tag", value.ResRef("nw_item001")); err != nil {
		t.Fatalf("Field Tag: %v", err)
	}
	if err := w.Field("VarTable", []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE}); err != nil {
		t.Fatalf("Field VarTable: %v", err)
	}
	if err := w.FieldStruct("Appearance"); err != nil {
		t.Fatalf("FieldStruct: %v", err)
	}
	if err := w.BeginStruct(2); err != nil {
		t.Fatalf("BeginStruct: %v", err)
	}
	if err := w.Field("Body", uint16(7)); err != nil {
		t.Fatalf("Field Body: %v", err)
	}
	if err := w.Field("Head", uint16(3)); err != nil {
		t.Fatalf("Field Head: %v", err)
	}
	if err := w.EndStruct(); err != nil {
		t.Fatalf("EndStruct: %v", err)
	}
	if err := w.FieldList("ItemList"); err != nil {
		t.Fatalf("FieldList: %v", err)
	}
	if err := w.BeginList(2); err != nil {
		t.Fatalf("BeginList: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := w.BeginItem(0); err != nil {
			t.Fatalf("BeginItem %d: %v", i, err)
		}
		if err := w.EndItem(); err != nil {
			t.Fatalf("EndItem %d: %v", i, err)
		}
	}
	if err := w.EndList(); err != nil {
		t.Fatalf("EndList: %v", err)
	}
	if err := w.EndRoot(); err != nil {
		t.Fatalf("EndRoot: %v", err)
	}

	var buf bytes.Buffer
	if _, err := w.Finalize(&buf, gff.SigCreature, gff.DefaultVersion); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return buf.Bytes()
}

func TestRoundTripTokenBalance(t *testing.T) {
	data := buildSample(t)
	r, err := reader.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reader.Open: %v", err)
	}
	if r.Header().Signature != gff.SigCreature {
		t.Errorf("signature = %q, want %q", r.Header().Signature, gff.SigCreature)
	}

	tz := r.NewTokenizer()
	depth := 0
	count := 0
	for {
		tok, err := tz.NextToken()
		if err != nil {
			break
		}
		count++
		switch {
		case tok.Kind.IsOpen():
			depth++
		case tok.Kind.IsClose():
			depth--
		}
		if depth < 0 {
			t.Fatalf("token stream closed more compounds than it opened")
		}
	}
	if depth != 0 {
		t.Fatalf("token stream ended with depth %d, want 0 (every Begin must have a matching End)", depth)
	}
	if count == 0 {
		t.Fatalf("expected at least one token")
	}
}

func TestRoundTripValues(t *testing.T) {
	data := buildSample(t)
	r, err := reader.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reader.Open: %v", err)
	}
	tz := r.NewTokenizer()

	expectKind := func(want token.Kind) token.Token {
		t.Helper()
		tok, err := tz.NextToken()
		if err != nil {
			t.Fatalf("NextToken: %v", err)
		}
		if tok.Kind != want {
			t.Fatalf("token kind = %s, want %s", tok.Kind, want)
		}
		return tok
	}

	root := expectKind(token.RootBegin)
	if root.FieldCount != 14 {
		t.Fatalf("root field count = %d, want 14", root.FieldCount)
	}

	// HitPoints
	lbl := expectKind(token.Label)
	name, err := r.ReadLabel(lbl.LabelIndex)
	if err != nil {
		t.Fatalf("ReadLabel: %v", err)
	}
	if name != "HitPoints" {
		t.Fatalf("label = %q, want HitPoints", name)
	}
	val := expectKind(token.Value)
	mv, err := r.Materialize(val.Value)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if mv.(int32) != 45 {
		t.Fatalf("HitPoints = %v, want 45", mv)
	}

	// Name
	lbl = expectKind(token.Label)
	if name, _ = r.ReadLabel(lbl.LabelIndex); name != "Name" {
		t.Fatalf("label = %q, want Name", name)
	}
	val = expectKind(token.Value)
	mv, err = r.Materialize(val.Value)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if mv.(string) != "Aribeth" {
		t.Fatalf("Name = %v, want Aribeth", mv)
	}

	checkField := func(label string, want any) {
		t.Helper()
		lbl := expectKind(token.Label)
		if name, err := r.ReadLabel(lbl.LabelIndex); err != nil || name != label {
			t.Fatalf("ReadLabel: got %q, %v, want %q", name, err, label)
		}
		val := expectKind(token.Value)
		got, err := r.Materialize(val.Value)
		if err != nil {
			t.Fatalf("Materialize %s: %v", label, err)
		}
		if got != want {
			t.Fatalf("%s = %#v, want %#v", label, got, want)
		}
	}

	checkField("Level", uint8(20))
	checkField("Alignment", int8(-5))
	checkField("Bonus", int16(-1000))
	checkField("Flags", uint32(0xDEADBEEF))
	checkField("Scale", float32(3.5))
	checkField("XPTotal", uint64(0x1122334455667788))
	checkField("GoldEarned", int64(-123456789012345))
	checkField("CombatRating", float64(2.718281828))
	checkField("Tag", value.ResRef("nw_item001"))

	// VarTable ([]byte / Void) isn't comparable with ==, so it gets its own
	// block instead of going through checkField.
	lbl = expectKind(token.Label)
	if name, _ = r.ReadLabel(lbl.LabelIndex); name != "VarTable" {
		t.Fatalf("label = %q, want VarTable", name)
	}
	val = expectKind(token.Value)
	mv, err = r.Materialize(val.Value)
	if err != nil {
		t.Fatalf("Materialize VarTable: %v", err)
	}
	if got := mv.([]byte); !bytes.Equal(got, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE}) {
		t.Fatalf("VarTable = %x, want aabbccddee", got)
	}

	// Appearance (nested struct)
	lbl = expectKind(token.Label)
	if name, _ = r.ReadLabel(lbl.LabelIndex); name != "Appearance" {
		t.Fatalf("label = %q, want Appearance", name)
	}
	sb := expectKind(token.StructBegin)
	if sb.FieldCount != 2 {
		t.Fatalf("Appearance field count = %d, want 2", sb.FieldCount)
	}
	expectKind(token.Label)
	expectKind(token.Value)
	expectKind(token.Label)
	expectKind(token.Value)
	expectKind(token.StructEnd)

	// ItemList
	lbl = expectKind(token.Label)
	if name, _ = r.ReadLabel(lbl.LabelIndex); name != "ItemList" {
		t.Fatalf("label = %q, want ItemList", name)
	}
	lb := expectKind(token.ListBegin)
	if lb.Count != 2 {
		t.Fatalf("ItemList count = %d, want 2", lb.Count)
	}
	for i := 0; i < 2; i++ {
		ib := expectKind(token.ItemBegin)
		if ib.Index != uint32(i) {
			t.Fatalf("item index = %d, want %d", ib.Index, i)
		}
		if ib.FieldCount != 0 {
			t.Fatalf("item field count = %d, want 0", ib.FieldCount)
		}
		expectKind(token.ItemEnd)
	}
	expectKind(token.ListEnd)
	expectKind(token.RootEnd)
}

func TestSkipSubtree(t *testing.T) {
	data := buildSample(t)
	r, err := reader.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reader.Open: %v", err)
	}
	tz := r.NewTokenizer()

	root, err := tz.NextToken()
	if err != nil || root.Kind != token.RootBegin {
		t.Fatalf("NextToken: %v, %v", root, err)
	}
	// Skip HitPoints.
	if _, err := tz.NextToken(); err != nil { // Label
		t.Fatalf("NextToken: %v", err)
	}
	if _, err := tz.NextToken(); err != nil { // Value
		t.Fatalf("NextToken: %v", err)
	}
	// Skip Name.
	if _, err := tz.NextToken(); err != nil {
		t.Fatalf("NextToken: %v", err)
	}
	if _, err := tz.NextToken(); err != nil {
		t.Fatalf("NextToken: %v", err)
	}
	// Skip the ten simple fields from Level through VarTable, one Label
	// and one Value token each.
	for i := 0; i < 20; i++ {
		if _, err := tz.NextToken(); err != nil {
			t.Fatalf("NextToken: %v", err)
		}
	}
	// Skip the Appearance label, then the whole nested struct subtree.
	if _, err := tz.NextToken(); err != nil {
		t.Fatalf("NextToken: %v", err)
	}
	open, err := tz.NextToken()
	if err != nil || open.Kind != token.StructBegin {
		t.Fatalf("expected StructBegin, got %v, %v", open, err)
	}
	if err := tz.SkipSubtree(open); err != nil {
		t.Fatalf("SkipSubtree: %v", err)
	}
	// Next should be the ItemList label, proving the skip landed exactly
	// past the nested struct's matching StructEnd.
	lbl, err := tz.NextToken()
	if err != nil || lbl.Kind != token.Label {
		t.Fatalf("expected Label after skip, got %v, %v", lbl, err)
	}
	name, err := r.ReadLabel(lbl.LabelIndex)
	if err != nil {
		t.Fatalf("ReadLabel: %v", err)
	}
	if name != "ItemList" {
		t.Fatalf("label after skip = %q, want ItemList", name)
	}
}

func TestEmptyRoot(t *testing.T) {
	w := New()
	if err := w.BeginRoot(0); err != nil {
		t.Fatalf("BeginRoot: %v", err)
	}
	if err := w.EndRoot(); err != nil {
		t.Fatalf("EndRoot: %v", err)
	}
	var buf bytes.Buffer
	if _, err := w.Finalize(&buf, gff.SigModuleInfo, gff.DefaultVersion); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	r, err := reader.Open(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reader.Open: %v", err)
	}
	tz := r.NewTokenizer()
	root, err := tz.NextToken()
	if err != nil || root.Kind != token.RootBegin || root.FieldCount != 0 {
		t.Fatalf("root = %v, %v, want RootBegin with 0 fields", root, err)
	}
	end, err := tz.NextToken()
	if err != nil || end.Kind != token.RootEnd {
		t.Fatalf("end = %v, %v, want RootEnd", end, err)
	}
	if _, err := tz.NextToken(); !errors.Is(err, gff.ErrParsingFinished) {
		t.Fatalf("NextToken after RootEnd = %v, want ErrParsingFinished", err)
	}
}

func TestLabelTooLong(t *testing.T) {
	w := New()
	if err := w.BeginRoot(1); err != nil {
		t.Fatalf("BeginRoot: %v", err)
	}
	err := w.Field("ThisLabelIsWayTooLongForTheFixedSlot", uint8(1))
	if err == nil {
		t.Fatalf("Field with an oversized label should fail")
	}
}

func TestLocStringRoundTrip(t *testing.T) {
	w := New()
	if err := w.BeginRoot(1); err != nil {
		t.Fatalf("BeginRoot: %v", err)
	}
	ls := value.LocString{
		StrRef: value.NoStrRef,
		Strings: []value.Substring{
			{Language: 0, Gender: 0, Text: "Hello"},
			{Language: 0, Gender: 1, Text: "Hello (feminine)"},
		},
	}
	if err := w.Field("Greeting", ls); err != nil {
		t.Fatalf("Field LocString: %v", err)
	}
	if err := w.EndRoot(); err != nil {
		t.Fatalf("EndRoot: %v", err)
	}
	var buf bytes.Buffer
	if _, err := w.Finalize(&buf, gff.SigDialog, gff.DefaultVersion); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	r, err := reader.Open(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reader.Open: %v", err)
	}
	tz := r.NewTokenizer()
	tz.NextToken() // RootBegin
	tz.NextToken() // Label
	val, err := tz.NextToken()
	if err != nil {
		t.Fatalf("NextToken: %v", err)
	}
	got, err := r.Materialize(val.Value)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	gotLS, ok := got.(value.LocString)
	if !ok {
		t.Fatalf("Materialize returned %T, want value.LocString", got)
	}
	if gotLS.HasExternalRef() {
		t.Errorf("HasExternalRef() = true, want false (NoStrRef sentinel)")
	}
	if len(gotLS.Strings) != 2 {
		t.Fatalf("got %d substrings, want 2", len(gotLS.Strings))
	}
	if gotLS.Strings[1].Gender != 1 || gotLS.Strings[1].Text != "Hello (feminine)" {
		t.Errorf("substring[1] = %+v, want gender 1, text %q", gotLS.Strings[1], "Hello (feminine)")
	}
	if diff := pretty.Compare(ls.Strings, gotLS.Strings); diff != "" {
		t.Errorf("substrings round trip mismatch:\n%s", diff)
	}
}

// TestUnknownFieldType corrupts a valid stream's single field record to
// carry a type tag outside the 0-15 range and checks that the tokenizer
// surfaces it as an UnknownValueError rather than silently materializing
// garbage.
func TestUnknownFieldType(t *testing.T) {
	w := New()
	if err := w.BeginRoot(1); err != nil {
		t.Fatalf("BeginRoot: %v", err)
	}
	if err := w.Field("Only", uint8(1)); err != nil {
		t.Fatalf("Field: %v", err)
	}
	if err := w.EndRoot(); err != nil {
		t.Fatalf("EndRoot: %v", err)
	}
	var buf bytes.Buffer
	if _, err := w.Finalize(&buf, gff.SigCreature, gff.DefaultVersion); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	data := buf.Bytes()

	r, err := reader.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reader.Open: %v", err)
	}
	fieldsOff := r.Header().Fields.Offset
	data[fieldsOff] = 99 // low byte of the record's little-endian type tag; 99 is outside the 0-15 range

	r, err = reader.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reader.Open: %v", err)
	}
	tz := r.NewTokenizer()
	if _, err := tz.NextToken(); err != nil { // RootBegin
		t.Fatalf("NextToken: %v", err)
	}
	if _, err := tz.NextToken(); err != nil { // Label
		t.Fatalf("NextToken: %v", err)
	}
	_, err = tz.NextToken() // Value, should fail
	if err == nil {
		t.Fatalf("NextToken with corrupted type tag should fail")
	}
	var uve *gff.UnknownValueError
	if !errors.As(err, &uve) {
		t.Fatalf("error = %v, want *gff.UnknownValueError", err)
	}
	if uve.Tag != 99 {
		t.Errorf("UnknownValueError.Tag = %d, want 99", uve.Tag)
	}
}
