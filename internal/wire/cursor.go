// Package wire implements the single bounds-checked buffer cursor that
// every protocol decoder in internal/protocols is written against.
package wire

import (
	"encoding/binary"
	"errors"
)

// ErrOutOfBounds is returned whenever a read or write would move the
// cursor past the end of the logical buffer. No read or write ever
// touches memory before this check: the cursor's safety proof is the
// safety proof of every decoder built on top of it.
var ErrOutOfBounds = errors.New("wire: out of bounds")

// Cursor is a bounds-checked reader over a byte buffer with an
// offset. It never indexes into buf without first checking that the
// access fits within len(buf).
type Cursor struct {
	buf []byte
	off int
}

// NewCursor wraps buf for reading starting at offset 0.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Offset returns the current read position.
func (c *Cursor) Offset() int { return c.off }

// Len returns the logical length of the underlying buffer.
func (c *Cursor) Len() int { return len(c.buf) }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.off }

// Bytes returns the full underlying buffer (for recomputing checksums
// over already-read regions; callers must not retain it past the
// packet's lifetime).
func (c *Cursor) Bytes() []byte { return c.buf }

func (c *Cursor) fits(n int) bool {
	return c.off+n <= len(c.buf)
}

// ReadU8 reads one byte and advances the cursor by 1.
func (c *Cursor) ReadU8() (uint8, error) {
	if !c.fits(1) {
		return 0, ErrOutOfBounds
	}
	v := c.buf[c.off]
	c.off++
	return v, nil
}

// ReadU16 reads a big-endian uint16 and advances the cursor by 2.
func (c *Cursor) ReadU16() (uint16, error) {
	if !c.fits(2) {
		return 0, ErrOutOfBounds
	}
	v := binary.BigEndian.Uint16(c.buf[c.off : c.off+2])
	c.off += 2
	return v, nil
}

// ReadU32 reads a big-endian uint32 and advances the cursor by 4.
func (c *Cursor) ReadU32() (uint32, error) {
	if !c.fits(4) {
		return 0, ErrOutOfBounds
	}
	v := binary.BigEndian.Uint32(c.buf[c.off : c.off+4])
	c.off += 4
	return v, nil
}

// ReadU64 reads a big-endian uint64 and advances the cursor by 8.
func (c *Cursor) ReadU64() (uint64, error) {
	if !c.fits(8) {
		return 0, ErrOutOfBounds
	}
	v := binary.BigEndian.Uint64(c.buf[c.off : c.off+8])
	c.off += 8
	return v, nil
}

// ReadU16LE reads a little-endian uint16 and advances the cursor by 2.
// Provided for wire formats that are little-endian on the wire; the
// event file envelope is encoded and decoded with encoding/binary
// directly, not through Cursor.
func (c *Cursor) ReadU16LE() (uint16, error) {
	if !c.fits(2) {
		return 0, ErrOutOfBounds
	}
	v := binary.LittleEndian.Uint16(c.buf[c.off : c.off+2])
	c.off += 2
	return v, nil
}

// ReadU32LE reads a little-endian uint32 and advances the cursor by 4.
func (c *Cursor) ReadU32LE() (uint32, error) {
	if !c.fits(4) {
		return 0, ErrOutOfBounds
	}
	v := binary.LittleEndian.Uint32(c.buf[c.off : c.off+4])
	c.off += 4
	return v, nil
}

// ReadBytes returns a non-owning view of the next n bytes and advances
// the cursor by n. The returned slice aliases the cursor's buffer.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 || !c.fits(n) {
		return nil, ErrOutOfBounds
	}
	v := c.buf[c.off : c.off+n]
	c.off += n
	return v, nil
}

// PeekBytes returns a non-owning view of the next n bytes without
// advancing the cursor.
func (c *Cursor) PeekBytes(n int) ([]byte, error) {
	if n < 0 || !c.fits(n) {
		return nil, ErrOutOfBounds
	}
	return c.buf[c.off : c.off+n], nil
}

// Skip advances the cursor by n bytes without reading them.
func (c *Cursor) Skip(n int) error {
	if n < 0 || !c.fits(n) {
		return ErrOutOfBounds
	}
	c.off += n
	return nil
}

// Rewind resets the cursor to a previously observed offset. No decoder
// in internal/protocols calls it; IPv4 recomputes its checksum over
// Bytes() instead.
func (c *Cursor) Rewind(off int) error {
	if off < 0 || off > len(c.buf) {
		return ErrOutOfBounds
	}
	c.off = off
	return nil
}

// Writer is the companion writer used by tools and by encoders paired
// with decoders in round-trip tests (§8). Writes fail when they would
// push off past len(buf); a zero-length write at off == len succeeds
// (see DESIGN.md's resolution of the packet_assert_length ambiguity).
type Writer struct {
	buf []byte
	off int
}

// NewWriter wraps buf for writing starting at offset 0. The caller
// must size buf to the maximum expected output; Writer never grows it.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Bytes returns the written prefix of the buffer.
func (w *Writer) Bytes() []byte { return w.buf[:w.off] }

// Offset returns the current write position.
func (w *Writer) Offset() int { return w.off }

func (w *Writer) fits(n int) bool {
	return w.off+n > len(w.buf)
}

// WriteU8 writes one byte and advances the cursor by 1.
func (w *Writer) WriteU8(v uint8) error {
	if w.fits(1) {
		return ErrOutOfBounds
	}
	w.buf[w.off] = v
	w.off++
	return nil
}

// WriteU16 writes a big-endian uint16 and advances the cursor by 2.
func (w *Writer) WriteU16(v uint16) error {
	if w.fits(2) {
		return ErrOutOfBounds
	}
	binary.BigEndian.PutUint16(w.buf[w.off:w.off+2], v)
	w.off += 2
	return nil
}

// WriteU32 writes a big-endian uint32 and advances the cursor by 4.
func (w *Writer) WriteU32(v uint32) error {
	if w.fits(4) {
		return ErrOutOfBounds
	}
	binary.BigEndian.PutUint32(w.buf[w.off:w.off+4], v)
	w.off += 4
	return nil
}

// WriteU64 writes a big-endian uint64 and advances the cursor by 8.
func (w *Writer) WriteU64(v uint64) error {
	if w.fits(8) {
		return ErrOutOfBounds
	}
	binary.BigEndian.PutUint64(w.buf[w.off:w.off+8], v)
	w.off += 8
	return nil
}

// WriteBytes copies b into the buffer and advances the cursor by
// len(b).
func (w *Writer) WriteBytes(b []byte) error {
	if w.fits(len(b)) {
		return ErrOutOfBounds
	}
	copy(w.buf[w.off:w.off+len(b)], b)
	w.off += len(b)
	return nil
}
