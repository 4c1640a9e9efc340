// Package gff reads and writes BioWare's Generic File Format: the binary
// container Aurora-engine titles (Neverwinter Nights, The Witcher) and
// NWN2 use for area descriptions, creature templates, dialogs, journals,
// module information and save files.
//
// The format is a typed, tagged, reference-rich tree of named fields
// grouped into structs, stored as six indexed sections with cross
// references by byte offset and element index. This package implements
// the on-disk layout (Header, Section), the pull-style [reader.Tokenizer]
// (in the reader subpackage) and the assembling [writer.Writer] (in the
// writer subpackage). It does not implement data binding to application
// structs, character-encoding policy beyond the pluggable [gffenc.Codec],
// or interpretation of specific signatures like "ARE " or "UTC ".
package gff

import (
	"fmt"
	"io"

	"github.com/bearlytools/gff/internal/binary"
)

// HeaderSize is the fixed size, in bytes, of the GFF prologue.
const HeaderSize = 56

// Signature is the four-byte file-type tag at the start of every GFF file,
// e.g. "IFO " for module information or "ARE " for an area.
type Signature [4]byte

func (s Signature) String() string { return string(s[:]) }

// NewSignature builds a Signature from a string, padding with spaces or
// truncating to exactly 4 bytes the way BioWare's tools do.
func NewSignature(s string) Signature {
	var sig Signature
	for i := range sig {
		if i < len(s) {
			sig[i] = s[i]
		} else {
			sig[i] = ' '
		}
	}
	return sig
}

// Named signatures recognized by convenience, per the format's closed set
// of known BioWare file types. Unrecognized signatures round-trip verbatim
// through [Signature] without needing a name here.
var (
	SigArea             = NewSignature("ARE ")
	SigModuleInfo       = NewSignature("IFO ")
	SigGameInstance     = NewSignature("GIT ")
	SigGameInstComments = NewSignature("GIC ")
	SigCreature         = NewSignature("UTC ")
	SigDialog           = NewSignature("DLG ")
	SigDoor             = NewSignature("UTD ")
	SigEncounter        = NewSignature("UTE ")
	SigItem             = NewSignature("UTI ")
	SigPlaceable        = NewSignature("UTP ")
	SigSoundSettings    = NewSignature("UTS ")
	SigStore            = NewSignature("UTM ")
	SigTrigger          = NewSignature("UTT ")
	SigWaypoint         = NewSignature("UTW ")
	SigJournal          = NewSignature("JRL ")
	SigFaction          = NewSignature("FAC ")
	SigItemPalette      = NewSignature("ITP ")
	SigPlaceablePalette = NewSignature("PTM ")
	SigTilesetPalette   = NewSignature("PTT ")
	SigCharacter        = NewSignature("BIC ")
)

// Version is the four-byte format version tag, e.g. "V3.2".
type Version [4]byte

func (v Version) String() string { return string(v[:]) }

// NewVersion builds a Version from a string the same way NewSignature does.
func NewVersion(s string) Version {
	var v Version
	for i := range v {
		if i < len(s) {
			v[i] = s[i]
		} else {
			v[i] = ' '
		}
	}
	return v
}

// DefaultVersion is the version stamped on newly constructed headers.
var DefaultVersion = NewVersion("V3.2")

// Section describes one of the six pools: where it starts and how big it
// is. Count is an element count for structs/fields/labels, but a byte
// count for field_data/field_indices/list_indices; callers are expected to
// know which regime applies to the section they're looking at (see
// [Header] field docs).
type Section struct {
	Offset uint32
	Count  uint32
}

func readSection(r io.Reader) (Section, error) {
	off, err := binary.GetBuffer[uint32](r)
	if err != nil {
		return Section{}, fmt.Errorf("gff: reading section offset: %w", err)
	}
	cnt, err := binary.GetBuffer[uint32](r)
	if err != nil {
		return Section{}, fmt.Errorf("gff: reading section count: %w", err)
	}
	return Section{Offset: off, Count: cnt}, nil
}

func (s Section) write(w io.Writer) (int, error) {
	var buf [8]byte
	binary.Put(buf[0:4], s.Offset)
	binary.Put(buf[4:8], s.Count)
	return w.Write(buf[:])
}

// Header is the fixed 56-byte prologue of a GFF file: a signature, a
// version, and six section descriptors in a fixed order.
type Header struct {
	Signature Signature
	Version   Version

	Structs      Section // element count, stride 12
	Fields       Section // element count, stride 12
	Labels       Section // element count, stride 16
	FieldData    Section // byte count
	FieldIndices Section // byte count
	ListIndices  Section // byte count
}

// NewHeader builds a header for an empty file of the given signature, with
// [DefaultVersion] and all sections zeroed.
func NewHeader(sig Signature) Header {
	return Header{Signature: sig, Version: DefaultVersion}
}

// ReadHeader consumes the fixed 56-byte prologue from r. It does not
// validate the section descriptors against the underlying stream's
// length; callers who seek into a section do so at their own risk, same as
// [io.Seeker] in general. This matches the format's own "implementations
// may defer bounds checks to first use" contract.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	if _, err := io.ReadFull(r, h.Signature[:]); err != nil {
		return Header{}, fmt.Errorf("gff: reading signature: %w", err)
	}
	if _, err := io.ReadFull(r, h.Version[:]); err != nil {
		return Header{}, fmt.Errorf("gff: reading version: %w", err)
	}
	var err error
	if h.Structs, err = readSection(r); err != nil {
		return Header{}, err
	}
	if h.Fields, err = readSection(r); err != nil {
		return Header{}, err
	}
	if h.Labels, err = readSection(r); err != nil {
		return Header{}, err
	}
	if h.FieldData, err = readSection(r); err != nil {
		return Header{}, err
	}
	if h.FieldIndices, err = readSection(r); err != nil {
		return Header{}, err
	}
	if h.ListIndices, err = readSection(r); err != nil {
		return Header{}, err
	}
	return h, nil
}

// Write emits the 56-byte prologue to w.
func (h Header) Write(w io.Writer) (int, error) {
	written := 0
	if n, err := w.Write(h.Signature[:]); err != nil {
		return written + n, fmt.Errorf("gff: writing signature: %w", err)
	} else {
		written += n
	}
	if n, err := w.Write(h.Version[:]); err != nil {
		return written + n, fmt.Errorf("gff: writing version: %w", err)
	} else {
		written += n
	}
	for _, s := range []Section{h.Structs, h.Fields, h.Labels, h.FieldData, h.FieldIndices, h.ListIndices} {
		n, err := s.write(w)
		written += n
		if err != nil {
			return written, fmt.Errorf("gff: writing section: %w", err)
		}
	}
	return written, nil
}

// TokenCountLowerBound returns max(2*(structCount+listCount), fieldCount),
// a cheap lower bound on how many tokens a full tokenization of this file
// will yield. Useful as an iterator size hint and to bound allocator
// growth in a consumer building its own tree from the token stream.
func TokenCountLowerBound(structCount, listCount, fieldCount uint32) uint32 {
	a := 2 * (structCount + listCount)
	if a > fieldCount {
		return a
	}
	return fieldCount
}
