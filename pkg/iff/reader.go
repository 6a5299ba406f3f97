// Package iff reads the length-delimited, tag-dispatched records of the
// IFF-style container used by LightWave objects.
//
// All numbers are big-endian. Records are a 4-byte tag, a 4-byte (top-level)
// or 2-byte (nested) length and a payload padded to an even size.
package iff

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Tag is a 4-byte ASCII record code such as "PNTS".
type Tag string

// LengthWidth is the size in bytes of a record length field.
type LengthWidth int

const (
	// Long lengths frame top-level records.
	Long LengthWidth = 4
	// Short lengths frame sub-records nested inside another payload.
	Short LengthWidth = 2
)

// HeaderSize returns the number of bytes taken by a record's tag and length.
func (w LengthWidth) HeaderSize() int {
	return 4 + int(w)
}

// Reader is a cursor over an in-memory byte view. A Reader never reads past
// the end of its view, so a record payload decoder handed a bounded Reader
// cannot consume bytes of the following record.
type Reader struct {
	data []byte
	off  int
	base int64
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the absolute offset of the cursor in the outermost stream.
func (r *Reader) Offset() int64 {
	return r.base + int64(r.off)
}

// Pos returns the cursor position relative to the start of this view.
func (r *Reader) Pos() int {
	return r.off
}

// Len returns the number of unread bytes in the view.
func (r *Reader) Len() int {
	return len(r.data) - r.off
}

// Size returns the total size of the view.
func (r *Reader) Size() int {
	return len(r.data)
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, truncated(n, r.Len())
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// skipPad consumes the pad byte that follows an odd-sized field, if present.
func (r *Reader) skipPad(size int) {
	if size%2 == 1 && r.Len() > 0 {
		r.off++
	}
}

// Bytes reads n raw bytes. The returned slice aliases the underlying data.
func (r *Reader) Bytes(n int) ([]byte, error) {
	return r.take(n)
}

// Rest consumes and returns everything left in the view.
func (r *Reader) Rest() []byte {
	b := r.data[r.off:]
	r.off = len(r.data)
	return b
}

// U1 reads an unsigned byte.
func (r *Reader) U1() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U2 reads an unsigned 16-bit integer.
func (r *Reader) U2() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// I2 reads a signed 16-bit integer.
func (r *Reader) I2() (int16, error) {
	v, err := r.U2()
	return int16(v), err
}

// U4 reads an unsigned 32-bit integer.
func (r *Reader) U4() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// F4 reads an IEEE 754 single precision float.
func (r *Reader) F4() (float32, error) {
	v, err := r.U4()
	return math.Float32frombits(v), err
}

// Vec12 reads three floats.
func (r *Reader) Vec12() (mgl32.Vec3, error) {
	var v mgl32.Vec3
	for i := range v {
		f, err := r.F4()
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

// ID4 reads a 4-byte tag code.
func (r *Reader) ID4() (Tag, error) {
	b, err := r.take(4)
	if err != nil {
		return "", err
	}
	return Tag(b), nil
}

// VX reads a variable-width index. Indices below 0xFF00 are stored in two
// bytes; larger ones are stored in four bytes with a leading 0xFF marker,
// which is masked off the result.
func (r *Reader) VX() (uint32, error) {
	if r.Len() < 1 {
		return 0, truncated(2, r.Len())
	}
	if r.data[r.off] == 0xFF {
		v, err := r.U4()
		return v & 0x00FFFFFF, err
	}
	v, err := r.U2()
	return uint32(v), err
}

// S0 reads a null-terminated string padded to an even byte count and
// returns its raw bytes without the terminator.
func (r *Reader) S0() ([]byte, error) {
	rest := r.data[r.off:]
	n := bytes.IndexByte(rest, 0)
	if n < 0 {
		return nil, Malformed("unterminated string of %d bytes", len(rest))
	}
	s := rest[:n]
	r.off += n + 1
	r.skipPad(n + 1)
	return s, nil
}

// Chunk is one framed record. Body is bounded to exactly Length bytes.
type Chunk struct {
	Tag    Tag
	Length uint32
	// Offset is the absolute offset of the record's tag.
	Offset int64
	Body   *Reader
}

// Next frames the record at the cursor. Whatever the caller later reads
// from the returned Body, the Reader is already positioned at the end of
// the record (plus its pad byte), so unread trailing fields and unknown
// records are skipped without desynchronising the stream.
func (r *Reader) Next(width LengthWidth) (Chunk, error) {
	c := Chunk{Offset: r.Offset()}
	if r.Len() < width.HeaderSize() {
		return c, truncated(width.HeaderSize(), r.Len())
	}
	c.Tag, _ = r.ID4()
	if width == Short {
		n, _ := r.U2()
		c.Length = uint32(n)
	} else {
		c.Length, _ = r.U4()
	}
	if uint64(c.Length) > uint64(r.Len()) {
		return c, truncated(int(c.Length), r.Len())
	}
	start := r.off
	r.off += int(c.Length)
	r.skipPad(int(c.Length))
	c.Body = &Reader{
		data: r.data[start : start+int(c.Length)],
		base: r.base + int64(start),
	}
	return c, nil
}

// Each frames records until the view is exhausted and calls fn for each.
func (r *Reader) Each(width LengthWidth, fn func(Chunk) error) error {
	for r.Len() > 0 {
		c, err := r.Next(width)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}
