// Package lwo decodes LightWave LWO2 object files into an ordered list of
// typed records.
package lwo

import (
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/Faultbox/lwo2mesh/pkg/encoding"
	"github.com/Faultbox/lwo2mesh/pkg/iff"
)

// LWO format errors.
var (
	ErrInvalidMagic      = errors.Wrap(iff.ErrMalformedField, "invalid LWO magic: expected 'FORM'")
	ErrUnsupportedFormat = errors.Wrap(iff.ErrMalformedField, "unsupported object format: expected 'LWO2'")
)

const (
	formTag  iff.Tag = "FORM"
	formLWO2 iff.Tag = "LWO2"
)

// Record is one decoded top-level record.
type Record interface {
	Tag() iff.Tag
}

// Unknown is a record, at any nesting level, whose tag is not modelled.
// Data holds the raw payload.
type Unknown struct {
	ID   iff.Tag
	Data []byte
}

// Tag returns the record's 4-byte code.
func (u *Unknown) Tag() iff.Tag { return u.ID }

// Object represents a decoded LWO2 file.
type Object struct {
	// Records lists the top-level records in file order.
	Records []Record
	// Offsets holds the absolute byte offset of each record's tag,
	// parallel to Records.
	Offsets []int64
}

// Offset returns the byte offset of the i-th record, or 0 when the object
// was assembled without offsets.
func (o *Object) Offset(i int) int64 {
	if i < len(o.Offsets) {
		return o.Offsets[i]
	}
	return 0
}

// Unknown returns the top-level records whose tags were not recognised.
func (o *Object) Unknown() []*Unknown {
	var out []*Unknown
	for _, rec := range o.Records {
		if u, ok := rec.(*Unknown); ok {
			out = append(out, u)
		}
	}
	return out
}

// Options configures decoding.
type Options struct {
	// Codepage decodes name strings. The zero value passes bytes through.
	Codepage encoding.Codepage
}

// Decode parses LWO2 data from a byte slice.
func Decode(data []byte) (*Object, error) {
	return DecodeWith(data, Options{})
}

// DecodeFile parses an LWO2 file from disk.
func DecodeFile(path string, opts Options) (*Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading LWO file")
	}
	return DecodeWith(data, opts)
}

// DecodeWith parses LWO2 data using opts.
func DecodeWith(data []byte, opts Options) (*Object, error) {
	r := iff.NewReader(data)
	if r.Len() >= 4 {
		if magic, _ := iff.NewReader(data[:4]).ID4(); magic != formTag {
			return nil, ErrInvalidMagic
		}
	}

	form, err := r.Next(iff.Long)
	if err != nil {
		return nil, iff.Within(err, "form", 0)
	}
	kind, err := form.Body.ID4()
	if err != nil {
		return nil, iff.Within(err, "form", form.Offset)
	}
	if kind != formLWO2 {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "got %q", kind)
	}

	d := &decoder{cp: opts.Codepage}
	obj := &Object{}
	err = form.Body.Each(iff.Long, func(c iff.Chunk) error {
		rec, err := d.record(c)
		if err != nil {
			return err
		}
		obj.Records = append(obj.Records, rec)
		obj.Offsets = append(obj.Offsets, c.Offset)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// decoder carries state shared by every record decode function.
type decoder struct {
	cp encoding.Codepage
}

// str reads an even-padded name string and converts it to UTF-8.
func (d *decoder) str(r *iff.Reader) (string, error) {
	b, err := r.S0()
	if err != nil {
		return "", err
	}
	return d.cp.Decode(b), nil
}

func (d *decoder) record(c iff.Chunk) (Record, error) {
	entry, ok := topLevel[c.Tag]
	if !ok {
		return &Unknown{ID: c.Tag, Data: c.Body.Rest()}, nil
	}
	rec, err := entry.decode(d, c)
	if err != nil {
		return nil, iff.Within(err, entry.name, c.Offset)
	}
	return rec, nil
}

// Top-level record tags.
const (
	TagLayer         iff.Tag = "LAYR"
	TagPoints        iff.Tag = "PNTS"
	TagPolygons      iff.Tag = "POLS"
	TagVertexMap     iff.Tag = "VMAP"
	TagDiscVertexMap iff.Tag = "VMAD"
	TagPolygonTags   iff.Tag = "PTAG"
	TagSurface       iff.Tag = "SURF"
	TagClip          iff.Tag = "CLIP"
	TagTagStrings    iff.Tag = "TAGS"
	TagBoundingBox   iff.Tag = "BBOX"
	TagEnvelope      iff.Tag = "ENVL"
)

// RecordName returns the name a top-level tag uses in error paths.
// Unmodelled tags use their lower-cased code.
func RecordName(tag iff.Tag) string {
	if entry, ok := topLevel[tag]; ok {
		return entry.name
	}
	return strings.ToLower(strings.TrimSpace(string(tag)))
}

// recordEntry names a record kind for error paths and binds its decoder.
type recordEntry[T any] struct {
	name   string
	decode func(d *decoder, c iff.Chunk) (T, error)
}

var topLevel map[iff.Tag]recordEntry[Record]

func init() {
	topLevel = map[iff.Tag]recordEntry[Record]{
		TagLayer:         {"layer", decodeLayer},
		TagPoints:        {"points", decodePoints},
		TagPolygons:      {"polygons", decodePolygons},
		TagVertexMap:     {"vmap", decodeVertexMap},
		TagDiscVertexMap: {"vmad", decodeDiscVertexMap},
		TagPolygonTags:   {"ptag", decodePolygonTags},
		TagSurface:       {"surface", decodeSurface},
		TagClip:          {"clip", decodeClip},
		TagTagStrings:    {"tags", decodeTagStrings},
		TagBoundingBox:   {"bbox", decodeBoundingBox},
		TagEnvelope:      {"envelope", decodeEnvelope},
	}
}

// subRecords decodes a list of short-framed sub-records with table,
// keeping unrecognised tags as *Unknown.
func subRecords[T any](d *decoder, r *iff.Reader, table map[iff.Tag]recordEntry[T], unknown func(*Unknown) T) ([]T, error) {
	var out []T
	err := r.Each(iff.Short, func(c iff.Chunk) error {
		entry, ok := table[c.Tag]
		if !ok {
			out = append(out, unknown(&Unknown{ID: c.Tag, Data: c.Body.Rest()}))
			return nil
		}
		v, err := entry.decode(d, c)
		if err != nil {
			return iff.Within(err, entry.name, c.Offset)
		}
		out = append(out, v)
		return nil
	})
	return out, err
}
