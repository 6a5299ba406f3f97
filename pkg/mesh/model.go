// Package mesh reconstructs per-material indexed triangle surfaces from a
// decoded LWO2 object.
package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lwo2mesh/pkg/lwo"
)

// Model is the renderer-agnostic geometry and material description of one
// object.
type Model struct {
	Layers []*Layer
	// Materials is keyed by tag string index, the id polygon tag maps use.
	Materials map[uint16]*Material
	Clips     map[uint32]*Clip
	Envelopes map[uint32]*lwo.Envelope
	// Unknown lists top-level records that were decoded but not modelled.
	Unknown []*lwo.Unknown
}

// Layer is one reconstructed layer.
type Layer struct {
	ID        uint16
	Parent    uint16
	HasParent bool
	Name      string
	Pivot     mgl32.Vec3
	Hidden    bool
	// Bounds is nil when the layer carries no bounding box record.
	Bounds *lwo.BoundingBox

	Surfaces []*Surface

	// Polygon lists other than faces (patches, curves, metaballs, bones)
	// and polygon tag maps other than surface assignments are kept as
	// decoded; they are not triangulated.
	Polygons []*lwo.PolygonList
	Tags     []*lwo.PolygonTagMap
}

// Surface is the triangle mesh of one material within a layer.
type Surface struct {
	MaterialID uint16
	// UVChannels names the vertex maps that fill Vertex.UV, in order.
	UVChannels []string
	// WeightMap names the vertex map that fills Vertex.Weight, if any.
	WeightMap string

	Vertices []Vertex
	Indices  []uint32

	// Incomplete counts, per channel name, the output vertices whose value
	// was missing and replaced by a default.
	Incomplete map[string]int
}

// TriangleCount returns the number of triangles in the surface.
func (s *Surface) TriangleCount() int {
	return len(s.Indices) / 3
}

// Vertex is one deduplicated output vertex.
type Vertex struct {
	Position mgl32.Vec3
	UV       []UVSet
	Weight   float32
}

// UVSet is a texture coordinate; Valid is false when no vertex map had a
// value and Coord holds the zero default.
type UVSet struct {
	Coord mgl32.Vec2
	Valid bool
}
