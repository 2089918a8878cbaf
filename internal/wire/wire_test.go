package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScalarRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteBool(true)
	w.WriteU8(0xAB)
	w.WriteI16(-7)
	w.WriteU32(123456)
	w.WriteI64(-123456789)
	w.WriteF32(1.5)
	w.WriteF64(2.25)

	r := NewReader(w.Bytes())

	b, err := r.ReadBool()
	require.NoError(t, err)
	require.True(t, b)

	u8, err := r.ReadU8()
	require.NoError(t, err)
	require.EqualValues(t, 0xAB, u8)

	i16, err := r.ReadI16()
	require.NoError(t, err)
	require.EqualValues(t, -7, i16)

	u32, err := r.ReadU32()
	require.NoError(t, err)
	require.EqualValues(t, 123456, u32)

	i64, err := r.ReadI64()
	require.NoError(t, err)
	require.EqualValues(t, -123456789, i64)

	f32, err := r.ReadF32()
	require.NoError(t, err)
	require.Equal(t, float32(1.5), f32)

	f64, err := r.ReadF64()
	require.NoError(t, err)
	require.Equal(t, 2.25, f64)

	require.Zero(t, r.Len())
}

func TestStringRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteString("hello, world")
	r := NewReader(w.Bytes())

	s, err := r.ReadString()
	require.NoError(t, err)
	require.Equal(t, "hello, world", s)
}

func TestTimestampRoundTrip(t *testing.T) {
	epoch := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	at := epoch.Add(90 * time.Second)

	w := NewWriter()
	w.WriteTimestamp(at, epoch)
	r := NewReader(w.Bytes())

	got, err := r.ReadTimestamp(epoch)
	require.NoError(t, err)
	require.True(t, got.Equal(at))
}

func TestWriteTimestampClampsBeforeEpoch(t *testing.T) {
	epoch := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	before := epoch.Add(-time.Hour)

	w := NewWriter()
	w.WriteTimestamp(before, epoch)
	r := NewReader(w.Bytes())

	got, err := r.ReadTimestamp(epoch)
	require.NoError(t, err)
	require.True(t, got.Equal(epoch))
}

func TestReadPastEndReturnsErrShortBuffer(t *testing.T) {
	r := NewReader([]byte{0x01})
	_, err := r.ReadU32()
	require.ErrorIs(t, err, ErrShortBuffer)
}

func TestReadStringPastEndReturnsErrShortBuffer(t *testing.T) {
	w := NewWriter()
	w.WriteU16(10)
	r := NewReader(w.Bytes())
	_, err := r.ReadString()
	require.ErrorIs(t, err, ErrShortBuffer)
}

func TestCountRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteCount(3)
	r := NewReader(w.Bytes())
	n, err := r.ReadCount()
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}
