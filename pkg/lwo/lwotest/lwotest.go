// Package lwotest builds LWO2 byte streams for tests.
package lwotest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Payload accumulates big-endian fields of a record body.
type Payload struct {
	buf bytes.Buffer
}

// P returns an empty payload.
func P() *Payload { return &Payload{} }

func (p *Payload) U1(v uint8) *Payload {
	p.buf.WriteByte(v)
	return p
}

func (p *Payload) U2(v uint16) *Payload {
	binary.Write(&p.buf, binary.BigEndian, v)
	return p
}

func (p *Payload) I2(v int16) *Payload {
	binary.Write(&p.buf, binary.BigEndian, v)
	return p
}

func (p *Payload) U4(v uint32) *Payload {
	binary.Write(&p.buf, binary.BigEndian, v)
	return p
}

func (p *Payload) F4(v ...float32) *Payload {
	for _, f := range v {
		binary.Write(&p.buf, binary.BigEndian, math.Float32bits(f))
	}
	return p
}

// ID4 writes a 4-byte code.
func (p *Payload) ID4(tag string) *Payload {
	p.buf.WriteString(tag)
	return p
}

// VX writes a variable-width index.
func (p *Payload) VX(v uint32) *Payload {
	if v < 0xFF00 {
		return p.U2(uint16(v))
	}
	return p.U4(v | 0xFF000000)
}

// S0 writes a null-terminated string padded to an even length.
func (p *Payload) S0(s string) *Payload {
	p.buf.WriteString(s)
	p.buf.WriteByte(0)
	if len(s)%2 == 0 {
		p.buf.WriteByte(0)
	}
	return p
}

// Raw appends b unchanged.
func (p *Payload) Raw(b ...[]byte) *Payload {
	for _, x := range b {
		p.buf.Write(x)
	}
	return p
}

func (p *Payload) Bytes() []byte { return p.buf.Bytes() }

func frame(tag string, long bool, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(tag)
	if long {
		binary.Write(&buf, binary.BigEndian, uint32(len(payload)))
	} else {
		binary.Write(&buf, binary.BigEndian, uint16(len(payload)))
	}
	buf.Write(payload)
	if len(payload)%2 == 1 {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// Chunk frames a top-level record with a 4-byte length.
func Chunk(tag string, payload []byte) []byte { return frame(tag, true, payload) }

// Sub frames a nested record with a 2-byte length.
func Sub(tag string, payload []byte) []byte { return frame(tag, false, payload) }

// MapEntry is one value of a continuous vertex map.
type MapEntry struct {
	Point  uint32
	Values []float32
}

// DiscEntry is one value of a discontinuous vertex map.
type DiscEntry struct {
	Point, Polygon uint32
	Values         []float32
}

// Builder accumulates top-level records of an LWO2 object.
type Builder struct {
	kind    string
	records bytes.Buffer
}

// New returns a builder for an LWO2 form.
func New() *Builder { return &Builder{kind: "LWO2"} }

// FormType overrides the form type written by Bytes.
func (b *Builder) FormType(kind string) *Builder {
	b.kind = kind
	return b
}

// Record appends an arbitrary top-level record.
func (b *Builder) Record(tag string, payload []byte) *Builder {
	b.records.Write(Chunk(tag, payload))
	return b
}

// Layer appends a layer header with a zero pivot and no parent.
func (b *Builder) Layer(number uint16, name string) *Builder {
	return b.Record("LAYR", P().U2(number).U2(0).F4(0, 0, 0).S0(name).Bytes())
}

// Points appends a point list.
func (b *Builder) Points(pts ...[3]float32) *Builder {
	p := P()
	for _, pt := range pts {
		p.F4(pt[0], pt[1], pt[2])
	}
	return b.Record("PNTS", p.Bytes())
}

// Polygons appends a polygon list of the given kind.
func (b *Builder) Polygons(kind string, polys ...[]uint32) *Builder {
	p := P().ID4(kind)
	for _, poly := range polys {
		p.U2(uint16(len(poly)))
		for _, idx := range poly {
			p.VX(idx)
		}
	}
	return b.Record("POLS", p.Bytes())
}

// Faces appends a FACE polygon list.
func (b *Builder) Faces(polys ...[]uint32) *Builder { return b.Polygons("FACE", polys...) }

// Tags appends a tag string table.
func (b *Builder) Tags(names ...string) *Builder {
	p := P()
	for _, n := range names {
		p.S0(n)
	}
	return b.Record("TAGS", p.Bytes())
}

// PolygonTags appends a polygon tag map; pairs are (polygon, tag).
func (b *Builder) PolygonTags(kind string, pairs ...[2]uint32) *Builder {
	p := P().ID4(kind)
	for _, pair := range pairs {
		p.VX(pair[0]).U2(uint16(pair[1]))
	}
	return b.Record("PTAG", p.Bytes())
}

// SurfaceTags appends a SURF polygon tag map.
func (b *Builder) SurfaceTags(pairs ...[2]uint32) *Builder {
	return b.PolygonTags("SURF", pairs...)
}

// VMap appends a continuous vertex map.
func (b *Builder) VMap(kind string, dim uint16, name string, entries ...MapEntry) *Builder {
	p := P().ID4(kind).U2(dim).S0(name)
	for _, e := range entries {
		p.VX(e.Point).F4(e.Values...)
	}
	return b.Record("VMAP", p.Bytes())
}

// VMad appends a discontinuous vertex map.
func (b *Builder) VMad(kind string, dim uint16, name string, entries ...DiscEntry) *Builder {
	p := P().ID4(kind).U2(dim).S0(name)
	for _, e := range entries {
		p.VX(e.Point).VX(e.Polygon).F4(e.Values...)
	}
	return b.Record("VMAD", p.Bytes())
}

// Surface appends a surface definition with the given framed sub-records.
func (b *Builder) Surface(name, source string, params ...[]byte) *Builder {
	return b.Record("SURF", P().S0(name).S0(source).Raw(params...).Bytes())
}

// Clip appends an image clip with the given framed sub-records.
func (b *Builder) Clip(index uint32, attrs ...[]byte) *Builder {
	return b.Record("CLIP", P().U4(index).Raw(attrs...).Bytes())
}

// Bytes returns the complete FORM.
func (b *Builder) Bytes() []byte {
	return Chunk("FORM", P().ID4(b.kind).Raw(b.records.Bytes()).Bytes())
}

// Block frames a texture block of the given kind. header holds framed
// header sub-records; attrs the framed body attributes.
func Block(kind, ordinal string, header [][]byte, attrs ...[]byte) []byte {
	h := Sub(kind, P().S0(ordinal).Raw(header...).Bytes())
	return Sub("BLOK", P().Raw(h).Raw(attrs...).Bytes())
}

// UVImageMap frames an enabled color IMAP block projecting clip through the
// named UV map.
func UVImageMap(ordinal string, clip uint32, uvmap string) []byte {
	header := [][]byte{
		Sub("CHAN", P().ID4("COLR").Bytes()),
		Sub("ENAB", P().U2(1).Bytes()),
	}
	return Block("IMAP", ordinal, header,
		Sub("PROJ", P().U2(5).Bytes()),
		Sub("IMAG", P().VX(clip).Bytes()),
		Sub("VMAP", P().S0(uvmap).Bytes()),
	)
}
