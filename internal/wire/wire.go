// Package wire implements the fixed-size, little-endian scalar codec that
// underlies every request and response frame: bounded readers/writers,
// length-prefixed UTF-8 strings, and epoch-relative timestamps.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
	"time"
)

// ErrShortBuffer is returned by any Reader method that would need to read
// past the end of the underlying buffer. Dispatch maps this to the
// invalid_parameters response code.
var ErrShortBuffer = errors.New("wire: short buffer")

// DefaultEpoch is the epoch timestamps are relative to unless a node is
// configured with a different one.
var DefaultEpoch = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

// Reader walks a byte slice and decodes scalar values from it in the wire
// format described in spec §4.1. It never panics; short reads are reported
// through ErrShortBuffer.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential decoding. buf is not copied; callers
// must not mutate it while the Reader is in use.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int {
	return len(r.buf) - r.pos
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.Len() < n {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.take(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadString decodes a u16 byte-length prefix followed by that many raw
// UTF-8 bytes (no null terminator). The returned string copies the bytes so
// it stays valid after the underlying buffer is reused.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadU16()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadTimestamp decodes a u64 millisecond count relative to epoch.
func (r *Reader) ReadTimestamp(epoch time.Time) (time.Time, error) {
	ms, err := r.ReadU64()
	if err != nil {
		return time.Time{}, err
	}
	return epoch.Add(time.Duration(ms) * time.Millisecond), nil
}

// ReadCount decodes the u16 element-count prefix of a list.
func (r *Reader) ReadCount() (uint16, error) {
	return r.ReadU16()
}

// Writer appends scalar values to an internal byte buffer in the wire
// format described in spec §4.1.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated payload.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) WriteU8(v uint8)  { w.buf = append(w.buf, v) }
func (w *Writer) WriteI8(v int8)   { w.WriteU8(uint8(v)) }

func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }

func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }
func (w *Writer) WriteF64(v float64) { w.WriteU64(math.Float64bits(v)) }

// WriteString encodes a u16 byte-length prefix followed by the raw UTF-8
// bytes of s. Strings longer than 65535 bytes are truncated to that length;
// handlers are expected to validate string length before this point (see
// internal/validate).
func (w *Writer) WriteString(s string) {
	b := []byte(s)
	if len(b) > math.MaxUint16 {
		b = b[:math.MaxUint16]
	}
	w.WriteU16(uint16(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteTimestamp encodes t as a u64 millisecond count relative to epoch.
func (w *Writer) WriteTimestamp(t time.Time, epoch time.Time) {
	ms := t.Sub(epoch).Milliseconds()
	if ms < 0 {
		ms = 0
	}
	w.WriteU64(uint64(ms))
}

// WriteCount encodes the u16 element-count prefix of a list.
func (w *Writer) WriteCount(n int) {
	w.WriteU16(uint16(n))
}
