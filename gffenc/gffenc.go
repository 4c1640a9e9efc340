// Package gffenc provides the pluggable character-encoding plumbing that
// the GFF core depends on for String and LocString payloads (ResRef bytes
// are passed through raw and never reach a Codec). The core
// never interprets bytes itself; it hands raw byte runs to a Codec and
// gets a string back (or vice versa on write).
package gffenc

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// Trap controls what happens when a byte run cannot be decoded cleanly
// under the active Codec.
type Trap int

const (
	// Strict fails the decode with an Error when undecodable bytes are found.
	Strict Trap = iota
	// Replace substitutes the Unicode replacement character and succeeds.
	Replace
)

// Codec decodes and encodes the raw byte runs GFF stores for String
// payloads and LocString substrings.
type Codec interface {
	// Name identifies the codec, mostly useful for error messages.
	Name() string
	Decode(b []byte, trap Trap) (string, error)
	Encode(s string) ([]byte, error)
}

// Error reports a decode/encode failure for a specific Codec.
type Error struct {
	Codec string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gffenc: %s: %s", e.Codec, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UTF8 is the default codec, matching the format's most common modern
// usage (re-saved files from community tooling write UTF-8).
var UTF8 Codec = utf8Codec{}

type utf8Codec struct{}

func (utf8Codec) Name() string { return "UTF-8" }

func (utf8Codec) Decode(b []byte, trap Trap) (string, error) {
	if trap == Strict && !utf8.Valid(b) {
		return "", &Error{Codec: "UTF-8", Err: fmt.Errorf("invalid UTF-8 byte sequence")}
	}
	// Converting through []rune substitutes utf8.RuneError for each bad
	// byte, which is exactly the Replace behavior.
	return string([]rune(string(b))), nil
}

func (utf8Codec) Encode(s string) ([]byte, error) {
	return []byte(s), nil
}

// xtextCodec adapts a golang.org/x/text/encoding.Encoding (used for the
// single- and multi-byte legacy codepages BioWare's localized clients wrote
// strings in) to the Codec interface.
type xtextCodec struct {
	name string
	enc  encoding.Encoding
}

func (c xtextCodec) Name() string { return c.name }

func (c xtextCodec) Decode(b []byte, trap Trap) (string, error) {
	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", &Error{Codec: c.name, Err: err}
	}
	if trap == Strict && containsReplacementChar(out) {
		return "", &Error{Codec: c.name, Err: fmt.Errorf("unmappable byte sequence")}
	}
	return string(out), nil
}

func (c xtextCodec) Encode(s string) ([]byte, error) {
	out, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, &Error{Codec: c.name, Err: err}
	}
	return out, nil
}

func containsReplacementChar(b []byte) bool {
	s := string(b)
	for _, r := range s {
		if r == utf8.RuneError {
			return true
		}
	}
	return false
}

// GFF language codes, per the format's LocString substring id packing.
const (
	LangEnglish            = 0
	LangFrench             = 1
	LangGerman             = 2
	LangItalian            = 3
	LangSpanish            = 4
	LangPolish             = 5
	LangKorean             = 128
	LangChineseTraditional = 129
	LangChineseSimplified  = 130
	LangJapanese           = 131
)

var byLanguage = map[uint32]Codec{
	LangEnglish: xtextCodec{name: "windows-1252", enc: charmap.Windows1252},
	LangFrench:  xtextCodec{name: "windows-1252", enc: charmap.Windows1252},
	LangGerman:  xtextCodec{name: "windows-1252", enc: charmap.Windows1252},
	LangItalian: xtextCodec{name: "windows-1252", enc: charmap.Windows1252},
	LangSpanish: xtextCodec{name: "windows-1252", enc: charmap.Windows1252},
	// Polish needs the Central European codepage, not Windows-1252.
	LangPolish:             xtextCodec{name: "windows-1250", enc: charmap.Windows1250},
	LangKorean:             xtextCodec{name: "euc-kr", enc: korean.EUCKR},
	LangChineseTraditional: xtextCodec{name: "big5", enc: traditionalchinese.Big5},
	LangChineseSimplified:  xtextCodec{name: "gbk", enc: simplifiedchinese.GBK},
	LangJapanese:           xtextCodec{name: "shift-jis", enc: japanese.ShiftJIS},
}

// ForLanguage returns the legacy codepage codec BioWare's localized clients
// used for the given GFF language code. Unknown codes fall back to UTF8,
// matching how modern tooling re-saves these files regardless of the
// original client's codepage.
func ForLanguage(code uint32) Codec {
	if c, ok := byLanguage[code]; ok {
		return c
	}
	return UTF8
}
