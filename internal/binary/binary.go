// Package binary replaces the encoding/binary package in the standard library for little endian encoding using generics.
package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/exp/constraints"
)

var Enc = binary.LittleEndian

// Get gets any Uint size from a []byte slice.
func Get[T constraints.Integer](b []byte) T {
	_ = b[len(b)-1] // bounds check hint to compiler; see golang.org/issue/14808

	var r T // This is only used for type detction.
	switch any(r).(type) {
	case int8:
		return T(int8(b[0]))
	case int16:
		return T(int16(uint16(b[0]) | uint16(b[1])<<8))
	case int32:
		return T(int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24))
	case int64:
		return T(int64(uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
			uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56))
	case uint8:
		return T(uint8(b[0]))
	case uint16:
		return T(uint16(b[0]) | uint16(b[1])<<8)
	case uint32:
		return T(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
	case uint64:
		return T(uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
			uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56)
	}
	panic(fmt.Sprintf("unsupported type that passed the type constraint %T", r))
}

// Put puts any Uint size into a []byte slice.
func Put[T constraints.Integer](b []byte, v T) {
	switch x := any(v).(type) {
	case int8:
		b[0] = byte(x)
	case uint8:
		b[0] = byte(x)
	case int16:
		binary.LittleEndian.PutUint16(b, uint16(x))
	case uint16:
		binary.LittleEndian.PutUint16(b, x)
	case int32:
		binary.LittleEndian.PutUint32(b, uint32(x))
	case uint32:
		binary.LittleEndian.PutUint32(b, x)
	case int64:
		binary.LittleEndian.PutUint64(b, uint64(x))
	case uint64:
		binary.LittleEndian.PutUint64(b, x)
	default:
		panic(fmt.Sprintf("unsupported type that passed the type constraint %T", v))
	}
}

// GetBuffer reads exactly enough bytes from r to decode a T and returns it.
// The read uses an explicit zero-filled stack buffer rather than growing a
// slice without initialization, unlike some legacy hand-rolled codecs.
func GetBuffer[T constraints.Integer](r io.Reader) (T, error) {
	var zero T
	var buf [8]byte
	size := 0
	switch any(zero).(type) {
	case int8, uint8:
		size = 1
	case int16, uint16:
		size = 2
	case int32, uint32:
		size = 4
	case int64, uint64:
		size = 8
	default:
		return zero, fmt.Errorf("binary.GetBuffer: unsupported type %T", zero)
	}
	if _, err := io.ReadFull(r, buf[:size]); err != nil {
		return zero, err
	}
	return Get[T](buf[:size]), nil
}

// PutBuffer encodes an integer into the passed Buffer.
func PutBuffer[T constraints.Integer](buff *bytes.Buffer, v T) error {
	var size int
	switch any(v).(type) {
	case int8, uint8:
		size = 1
	case int16, uint16:
		size = 2
	case int32, uint32:
		size = 4
	case int64, uint64:
		size = 8
	default:
		return fmt.Errorf("binary.PutBuffer: unsupported type %T", v)
	}

	b := make([]byte, size)
	Put(b, v)
	_, err := buff.Write(b)
	return err
}
