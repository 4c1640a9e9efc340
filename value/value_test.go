package value

import (
	"testing"

	"github.com/bearlytools/gff/field"
)

func TestPackUnpackID(t *testing.T) {
	cases := []struct {
		language, gender uint32
	}{
		{0, 0},
		{0, 1},
		{1, 0},
		{128, 1}, // Korean, female
		{131, 0}, // Japanese, male
	}
	for _, c := range cases {
		id := PackID(c.language, c.gender)
		gotLang, gotGender := UnpackID(id)
		if gotLang != c.language || gotGender != c.gender {
			t.Errorf("PackID(%d,%d)=%d, UnpackID=(%d,%d), want (%d,%d)",
				c.language, c.gender, id, gotLang, gotGender, c.language, c.gender)
		}
	}
}

func TestPackIDGenderIsLowBit(t *testing.T) {
	// Gender occupies bit 0 of the packed id, so language 2, gender 1 and
	// language 5, gender 0 pack to distinct ids (5 and 10).
	a := PackID(2, 1)
	b := PackID(5, 0)
	if a&1 != 1 || b&1 != 0 {
		t.Fatalf("PackID(2,1)=%d, PackID(5,0)=%d: gender is not in the low bit", a, b)
	}
	if a == b {
		t.Fatalf("PackID(2,1) and PackID(5,0) collided: both %d", a)
	}
}

func TestHasExternalRef(t *testing.T) {
	ls := LocString{StrRef: NoStrRef}
	if ls.HasExternalRef() {
		t.Errorf("HasExternalRef() = true for NoStrRef sentinel")
	}
	ls.StrRef = 42
	if !ls.HasExternalRef() {
		t.Errorf("HasExternalRef() = false for a real StrRef")
	}
}

func TestInlineValueAsUint32(t *testing.T) {
	v := InlineValue{Float: 1.0}
	got, err := v.AsUint32(field.Float)
	if err != nil {
		t.Fatalf("AsUint32: %v", err)
	}
	if got != 0x3F800000 {
		t.Errorf("AsUint32(Float 1.0) = %#x, want 0x3f800000", got)
	}

	if _, err := v.AsUint32(field.Struct); err == nil {
		t.Errorf("AsUint32(Struct) should error, Struct is not an inline type")
	}
}
