// Package codec implements the little-endian wire primitives used by the
// on-chain program: fixed-width integers, length-prefixed UTF-8 strings,
// and length-prefixed byte lists.
package codec

import (
	"encoding/binary"
	"fmt"
)

// DecodeError reports a malformed or truncated buffer. Offset is the cursor
// position at which decoding failed.
type DecodeError struct {
	Offset int
	Want   int
	Have   int
	What   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at offset %d: need %d bytes, have %d", e.What, e.Offset, e.Want, e.Have)
}

// AppendU32 appends v in little-endian order.
func AppendU32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

// AppendU64 appends v in little-endian order.
func AppendU64(b []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(b, v)
}

// AppendI64 appends v as its two's-complement little-endian encoding.
func AppendI64(b []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(b, uint64(v))
}

// AppendI32 appends v as its two's-complement little-endian encoding.
func AppendI32(b []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(b, uint32(v))
}

// AppendString appends a u32 byte-length prefix followed by the raw UTF-8
// bytes of s.
func AppendString(b []byte, s string) []byte {
	b = AppendU32(b, uint32(len(s)))
	return append(b, s...)
}

// AppendU8List appends a u32 length prefix followed by the raw bytes.
func AppendU8List(b []byte, list []uint8) []byte {
	b = AppendU32(b, uint32(len(list)))
	return append(b, list...)
}

// Reader consumes wire-format fields from a byte slice, advancing an offset.
// Every Read method fails with a *DecodeError once the buffer is exhausted;
// subsequent calls keep failing at the same offset.
type Reader struct {
	data []byte
	off  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the current cursor position.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

func (r *Reader) take(n int, what string) ([]byte, error) {
	if r.Remaining() < n {
		return nil, &DecodeError{Offset: r.off, Want: n, Have: r.Remaining(), What: what}
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1, "u8")
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadU8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4, "u32")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8, "u64")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadBytes reads exactly n raw bytes. The returned slice is a copy.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.take(n, "bytes")
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadString reads a u32 length prefix followed by that many UTF-8 bytes.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n), "string body")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadU8List reads a u32 length prefix followed by that many raw bytes.
func (r *Reader) ReadU8List() ([]uint8, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(int(n))
}
