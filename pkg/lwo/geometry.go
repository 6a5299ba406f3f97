package lwo

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lwo2mesh/pkg/iff"
)

// Polygon list kinds.
const (
	PolygonFace     iff.Tag = "FACE"
	PolygonPatch    iff.Tag = "PTCH"
	PolygonCurve    iff.Tag = "CURV"
	PolygonMetaball iff.Tag = "MBAL"
	PolygonBone     iff.Tag = "BONE"
)

// Vertex map kinds.
const (
	MapUV     iff.Tag = "TXUV"
	MapWeight iff.Tag = "WGHT"
	MapPick   iff.Tag = "PICK"
	MapMorph  iff.Tag = "MORF"
	MapRGB    iff.Tag = "RGB "
	MapRGBA   iff.Tag = "RGBA"
)

// Polygon tag map kinds.
const (
	PolygonTagSurface   iff.Tag = "SURF"
	PolygonTagPart      iff.Tag = "PART"
	PolygonTagSmoothing iff.Tag = "SMGP"
	PolygonTagColor     iff.Tag = "COLR"
)

// Layer starts a new layer; every geometry record up to the next Layer
// belongs to it.
type Layer struct {
	Number    uint16
	Flags     uint16
	Pivot     mgl32.Vec3
	Name      string
	Parent    uint16
	HasParent bool
}

// Tag returns TagLayer.
func (*Layer) Tag() iff.Tag { return TagLayer }

// Hidden reports whether the layer is flagged as hidden.
func (l *Layer) Hidden() bool { return l.Flags&1 != 0 }

func decodeLayer(d *decoder, c iff.Chunk) (Record, error) {
	r := c.Body
	l := &Layer{}
	var err error
	if l.Number, err = r.U2(); err != nil {
		return nil, err
	}
	if l.Flags, err = r.U2(); err != nil {
		return nil, err
	}
	if l.Pivot, err = r.Vec12(); err != nil {
		return nil, err
	}
	if l.Name, err = d.str(r); err != nil {
		return nil, err
	}
	// Parent is optional.
	if r.Len() >= 2 {
		l.Parent, _ = r.U2()
		l.HasParent = true
	}
	return l, nil
}

// PointList holds the point positions of the current layer.
type PointList struct {
	Points []mgl32.Vec3
}

// Tag returns TagPoints.
func (*PointList) Tag() iff.Tag { return TagPoints }

func decodePoints(_ *decoder, c iff.Chunk) (Record, error) {
	r := c.Body
	if r.Len()%12 != 0 {
		return nil, iff.Malformed("point list length %d is not a multiple of 12", r.Len())
	}
	pl := &PointList{Points: make([]mgl32.Vec3, r.Len()/12)}
	for i := range pl.Points {
		pl.Points[i], _ = r.Vec12()
	}
	return pl, nil
}

// BoundingBox holds the extents of the current layer.
type BoundingBox struct {
	Min, Max mgl32.Vec3
}

// Tag returns TagBoundingBox.
func (*BoundingBox) Tag() iff.Tag { return TagBoundingBox }

func decodeBoundingBox(_ *decoder, c iff.Chunk) (Record, error) {
	bb := &BoundingBox{}
	var err error
	if bb.Min, err = c.Body.Vec12(); err != nil {
		return nil, err
	}
	if bb.Max, err = c.Body.Vec12(); err != nil {
		return nil, err
	}
	return bb, nil
}

// Polygon is an ordered list of point indices.
type Polygon struct {
	// Flags holds the top six bits of the vertex count word.
	Flags  uint16
	Points []uint32
}

// PolygonList holds the polygons of the current layer.
type PolygonList struct {
	Kind     iff.Tag
	Polygons []Polygon
}

// Tag returns TagPolygons.
func (*PolygonList) Tag() iff.Tag { return TagPolygons }

func decodePolygons(_ *decoder, c iff.Chunk) (Record, error) {
	r := c.Body
	kind, err := r.ID4()
	if err != nil {
		return nil, err
	}
	pl := &PolygonList{Kind: kind}
	for r.Len() > 0 {
		word, err := r.U2()
		if err != nil {
			return nil, err
		}
		poly := Polygon{
			Flags:  word >> 10,
			Points: make([]uint32, word&0x03FF),
		}
		for i := range poly.Points {
			if poly.Points[i], err = r.VX(); err != nil {
				return nil, err
			}
		}
		pl.Polygons = append(pl.Polygons, poly)
	}
	return pl, nil
}

// VertexMapEntry is one value of a continuous vertex map.
type VertexMapEntry struct {
	Point  uint32
	Values []float32
}

// VertexMap associates values with points, independent of the polygons
// that use them.
type VertexMap struct {
	Kind      iff.Tag
	Dimension uint16
	Name      string
	Entries   []VertexMapEntry
}

// Tag returns TagVertexMap.
func (*VertexMap) Tag() iff.Tag { return TagVertexMap }

func decodeVertexMap(d *decoder, c iff.Chunk) (Record, error) {
	r := c.Body
	vm := &VertexMap{}
	var err error
	if vm.Kind, vm.Dimension, vm.Name, err = d.mapHeader(r); err != nil {
		return nil, err
	}
	for r.Len() > 0 {
		var e VertexMapEntry
		if e.Point, err = r.VX(); err != nil {
			return nil, err
		}
		if e.Values, err = floats(r, int(vm.Dimension)); err != nil {
			return nil, err
		}
		vm.Entries = append(vm.Entries, e)
	}
	return vm, nil
}

// DiscontinuousVertexMapEntry is one per-polygon value of a discontinuous
// vertex map.
type DiscontinuousVertexMapEntry struct {
	Point   uint32
	Polygon uint32
	Values  []float32
}

// DiscontinuousVertexMap overrides values for a point on specific polygons.
type DiscontinuousVertexMap struct {
	Kind      iff.Tag
	Dimension uint16
	Name      string
	Entries   []DiscontinuousVertexMapEntry
}

// Tag returns TagDiscVertexMap.
func (*DiscontinuousVertexMap) Tag() iff.Tag { return TagDiscVertexMap }

func decodeDiscVertexMap(d *decoder, c iff.Chunk) (Record, error) {
	r := c.Body
	vm := &DiscontinuousVertexMap{}
	var err error
	if vm.Kind, vm.Dimension, vm.Name, err = d.mapHeader(r); err != nil {
		return nil, err
	}
	for r.Len() > 0 {
		var e DiscontinuousVertexMapEntry
		if e.Point, err = r.VX(); err != nil {
			return nil, err
		}
		if e.Polygon, err = r.VX(); err != nil {
			return nil, err
		}
		if e.Values, err = floats(r, int(vm.Dimension)); err != nil {
			return nil, err
		}
		vm.Entries = append(vm.Entries, e)
	}
	return vm, nil
}

func (d *decoder) mapHeader(r *iff.Reader) (kind iff.Tag, dim uint16, name string, err error) {
	if kind, err = r.ID4(); err != nil {
		return
	}
	if dim, err = r.U2(); err != nil {
		return
	}
	if kind == MapUV && dim != 2 {
		err = iff.Malformed("%s map has dimension %d, want 2", kind, dim)
		return
	}
	name, err = d.str(r)
	return
}

func floats(r *iff.Reader, n int) ([]float32, error) {
	out := make([]float32, n)
	for i := range out {
		v, err := r.F4()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// PolygonTag assigns a tag to one polygon.
type PolygonTag struct {
	Polygon uint32
	Tag     uint16
}

// PolygonTagMap assigns tags of one kind to polygons of the current layer.
// For PolygonTagSurface the tag indexes the TagStrings table.
type PolygonTagMap struct {
	Kind     iff.Tag
	Mappings []PolygonTag
}

// Tag returns TagPolygonTags.
func (*PolygonTagMap) Tag() iff.Tag { return TagPolygonTags }

func decodePolygonTags(_ *decoder, c iff.Chunk) (Record, error) {
	r := c.Body
	kind, err := r.ID4()
	if err != nil {
		return nil, err
	}
	pt := &PolygonTagMap{Kind: kind}
	for r.Len() > 0 {
		var m PolygonTag
		if m.Polygon, err = r.VX(); err != nil {
			return nil, err
		}
		if m.Tag, err = r.U2(); err != nil {
			return nil, err
		}
		pt.Mappings = append(pt.Mappings, m)
	}
	return pt, nil
}

// TagStrings lists the tag names referenced by polygon tag maps, in file
// order. Surface names resolve to their index in this table.
type TagStrings struct {
	Names []string
}

// Tag returns TagTagStrings.
func (*TagStrings) Tag() iff.Tag { return TagTagStrings }

// Index returns the position of name in the table, or -1.
func (ts *TagStrings) Index(name string) int {
	for i, n := range ts.Names {
		if n == name {
			return i
		}
	}
	return -1
}

func decodeTagStrings(d *decoder, c iff.Chunk) (Record, error) {
	ts := &TagStrings{}
	for c.Body.Len() > 0 {
		name, err := d.str(c.Body)
		if err != nil {
			return nil, err
		}
		ts.Names = append(ts.Names, name)
	}
	return ts, nil
}
