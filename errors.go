package gff

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the reader, tokenizer and writer. Callers
// should use errors.Is/errors.As against these rather than matching error
// strings.
var (
	// ErrParsingFinished signals end-of-stream from a [reader.Tokenizer]'s
	// NextToken. It is a soft condition, not a failure: iterator-style
	// consumers convert it to normal loop termination.
	ErrParsingFinished = errors.New("gff: parsing finished")

	// ErrLabelTooLong is returned by the writer when a caller-supplied
	// label exceeds the 16-byte fixed width. See [LabelTooLongError] for
	// the variant that carries the offending length.
	ErrLabelTooLong = errors.New("gff: label too long")

	// ErrResRefTooLong is returned when a ResRef payload exceeds 255 bytes,
	// the maximum the 1-byte length prefix can express.
	ErrResRefTooLong = errors.New("gff: resref too long")
)

// UnknownValueError reports a field type tag outside the 0-15 range
// encountered during tokenization, carrying the raw tag and the 4-byte
// inline payload for diagnostics.
type UnknownValueError struct {
	Tag   uint32
	Value [4]byte
}

func (e *UnknownValueError) Error() string {
	return fmt.Sprintf("gff: unknown field type %d (raw value %x)", e.Tag, e.Value)
}

// NewUnknownValueError builds an UnknownValueError, tolerating tags that
// happen to be valid field.Type values too (the caller already knows it
// isn't one; this type doesn't re-check).
func NewUnknownValueError(tag uint32, value [4]byte) error {
	return &UnknownValueError{Tag: tag, Value: value}
}

// LabelTooLongError reports the exact length of an oversized label,
// wrapping [ErrLabelTooLong] so errors.Is still matches.
type LabelTooLongError struct {
	Len int
}

func (e *LabelTooLongError) Error() string {
	return fmt.Sprintf("gff: label of %d bytes exceeds the 16-byte limit", e.Len)
}

func (e *LabelTooLongError) Unwrap() error { return ErrLabelTooLong }

// UnexpectedTokenError is raised by callers implementing schema-driven
// consumption on top of the tokenizer, when the token observed doesn't
// match what the schema expected. The core tokenizer never raises this
// itself; it is exported for binding layers built on top of this package.
type UnexpectedTokenError struct {
	Expected string
	Actual   string
}

func (e *UnexpectedTokenError) Error() string {
	return fmt.Sprintf("gff: expected %s, got %s", e.Expected, e.Actual)
}
