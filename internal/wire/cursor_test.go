package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorReadU8TooShort(t *testing.T) {
	c := NewCursor(nil)
	_, err := c.ReadU8()
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestCursorReadU16(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02})
	v, err := c.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), v)
	assert.Equal(t, 2, c.Offset())
}

func TestCursorReadU32LE(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x00, 0x00, 0x00})
	v, err := c.ReadU32LE()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v)
}

func TestCursorReadBytesExactFit(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3})
	b, err := c.ReadBytes(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
	assert.Equal(t, 0, c.Remaining())
}

func TestCursorReadBytesOverrun(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3})
	_, err := c.ReadBytes(4)
	require.ErrorIs(t, err, ErrOutOfBounds)
	// atomic-parse: offset must not have moved on failure.
	assert.Equal(t, 0, c.Offset())
}

func TestCursorSkipNeverPassesLen(t *testing.T) {
	c := NewCursor(make([]byte, 4))
	require.NoError(t, c.Skip(4))
	require.ErrorIs(t, c.Skip(1), ErrOutOfBounds)
}

func TestWriterZeroLengthWriteAtFullBuffer(t *testing.T) {
	// DESIGN.md Open Question 1: a zero-length write into a full
	// buffer (off == len) must succeed under the strict '>' rule.
	w := NewWriter(make([]byte, 2))
	require.NoError(t, w.WriteU16(0xAAAA))
	require.NoError(t, w.WriteBytes(nil))
	require.Error(t, w.WriteU8(1))
}

func TestWriterReadBackRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	w := NewWriter(buf)
	require.NoError(t, w.WriteU32(0xDEADBEEF))
	require.NoError(t, w.WriteU16(0x1234))
	c := NewCursor(w.Bytes())
	v1, err := c.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), v1)
	v2, err := c.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v2)
}
