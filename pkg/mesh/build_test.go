package mesh

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/lwo2mesh/pkg/iff"
	"github.com/Faultbox/lwo2mesh/pkg/lwo"
	lt "github.com/Faultbox/lwo2mesh/pkg/lwo/lwotest"
)

var quad = [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}

func build(t *testing.T, data []byte, opts Options) *Model {
	t.Helper()
	obj, err := lwo.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	m, err := Build(obj, opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return m
}

func buildErr(t *testing.T, data []byte) error {
	t.Helper()
	obj, err := lwo.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	_, err = Build(obj, Options{})
	return err
}

// uvMaterial returns a surface definition whose color texture samples the
// named UV map.
func uvMaterial(b *lt.Builder, name, uvmap string) *lt.Builder {
	return b.Surface(name, "", lt.UVImageMap("\x80", 0, uvmap))
}

func TestBuild_EndToEnd(t *testing.T) {
	data := lt.New().
		Tags("mat").
		Surface("mat", "").
		Layer(0, "").
		Points([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}).
		Faces([]uint32{0, 1, 2}).
		SurfaceTags([2]uint32{0, 0}).
		Bytes()

	m := build(t, data, Options{})

	if len(m.Layers) != 1 {
		t.Fatalf("expected 1 layer, got %d", len(m.Layers))
	}
	layer := m.Layers[0]
	if layer.Name != "layer_0" {
		t.Errorf("expected default name layer_0, got %q", layer.Name)
	}
	if len(layer.Surfaces) != 1 {
		t.Fatalf("expected 1 surface, got %d", len(layer.Surfaces))
	}
	s := layer.Surfaces[0]
	if s.MaterialID != 0 {
		t.Errorf("expected material 0, got %d", s.MaterialID)
	}
	if len(s.Vertices) != 3 || s.TriangleCount() != 1 {
		t.Fatalf("expected 3 vertices and 1 triangle, got %d and %d", len(s.Vertices), s.TriangleCount())
	}
	want := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	for i, idx := range s.Indices {
		if s.Vertices[idx].Position != want[i] {
			t.Errorf("corner %d: expected %v, got %v", i, want[i], s.Vertices[idx].Position)
		}
	}
	if m.Materials[0] == nil || m.Materials[0].Name != "mat" {
		t.Errorf("expected material mat, got %+v", m.Materials[0])
	}
}

func TestBuild_ReverseWinding(t *testing.T) {
	data := lt.New().
		Layer(1, "body").
		Points([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}).
		Faces([]uint32{0, 1, 2}).
		Bytes()

	s := build(t, data, Options{Winding: WindingReverse}).Layers[0].Surfaces[0]

	want := []mgl32.Vec3{{0, 0, 0}, {0, 1, 0}, {1, 0, 0}}
	for i, idx := range s.Indices {
		if s.Vertices[idx].Position != want[i] {
			t.Errorf("corner %d: expected %v, got %v", i, want[i], s.Vertices[idx].Position)
		}
	}
}

func TestBuild_DedupCollapse(t *testing.T) {
	polys := make([][]uint32, 10)
	for i := range polys {
		polys[i] = []uint32{0, 1, 2}
	}
	b := lt.New().Tags("mat")
	data := uvMaterial(b, "mat", "uv").
		Layer(0, "").
		Points(quad[:3]...).
		Faces(polys...).
		VMap("TXUV", 2, "uv",
			lt.MapEntry{Point: 0, Values: []float32{0, 0}},
			lt.MapEntry{Point: 1, Values: []float32{1, 0}},
			lt.MapEntry{Point: 2, Values: []float32{1, 1}},
		).
		Bytes()

	s := build(t, data, Options{}).Layers[0].Surfaces[0]

	if len(s.Vertices) != 3 {
		t.Errorf("expected 3 vertices, got %d", len(s.Vertices))
	}
	if len(s.Indices) != 30 {
		t.Errorf("expected 30 indices, got %d", len(s.Indices))
	}
	if len(s.Incomplete) != 0 {
		t.Errorf("expected no incomplete attributes, got %v", s.Incomplete)
	}
}

func TestBuild_DedupSplitsSeams(t *testing.T) {
	b := lt.New().Tags("mat")
	data := uvMaterial(b, "mat", "uv").
		Layer(0, "").
		Points(quad...).
		Faces([]uint32{0, 1, 2}, []uint32{0, 2, 3}).
		VMap("TXUV", 2, "uv",
			lt.MapEntry{Point: 0, Values: []float32{0, 0}},
			lt.MapEntry{Point: 1, Values: []float32{1, 0}},
			lt.MapEntry{Point: 2, Values: []float32{1, 1}},
			lt.MapEntry{Point: 3, Values: []float32{0, 1}},
		).
		VMad("TXUV", 2, "uv", lt.DiscEntry{Point: 0, Polygon: 1, Values: []float32{0.5, 0.5}}).
		Bytes()

	s := build(t, data, Options{}).Layers[0].Surfaces[0]

	if len(s.Vertices) != 5 {
		t.Fatalf("expected 5 vertices, got %d", len(s.Vertices))
	}
	var atOrigin []UVSet
	for _, v := range s.Vertices {
		if v.Position == (mgl32.Vec3{0, 0, 0}) {
			atOrigin = append(atOrigin, v.UV[0])
		}
	}
	if len(atOrigin) != 2 {
		t.Fatalf("expected point 0 to yield 2 vertices, got %d", len(atOrigin))
	}
	if atOrigin[0].Coord != (mgl32.Vec2{0, 0}) || atOrigin[1].Coord != (mgl32.Vec2{0.5, 0.5}) {
		t.Errorf("unexpected seam coordinates %v", atOrigin)
	}
}

func TestBuild_FallbackResolution(t *testing.T) {
	b := lt.New().Tags("mat")
	data := uvMaterial(b, "mat", "uv").
		Layer(0, "").
		Points(quad[:3]...).
		Faces([]uint32{0, 1, 2}).
		VMap("TXUV", 2, "uv",
			lt.MapEntry{Point: 0, Values: []float32{0.1, 0.2}},
			lt.MapEntry{Point: 1, Values: []float32{0.3, 0.4}},
		).
		VMad("TXUV", 2, "uv", lt.DiscEntry{Point: 1, Polygon: 0, Values: []float32{0.9, 0.9}}).
		Bytes()

	s := build(t, data, Options{}).Layers[0].Surfaces[0]

	if len(s.Vertices) != 3 {
		t.Fatalf("expected 3 vertices, got %d", len(s.Vertices))
	}
	tests := []struct {
		corner int
		want   UVSet
	}{
		{0, UVSet{Coord: mgl32.Vec2{0.1, 0.2}, Valid: true}},
		{1, UVSet{Coord: mgl32.Vec2{0.9, 0.9}, Valid: true}},
		{2, UVSet{}},
	}
	for _, tt := range tests {
		if got := s.Vertices[s.Indices[tt.corner]].UV[0]; got != tt.want {
			t.Errorf("corner %d: expected %+v, got %+v", tt.corner, tt.want, got)
		}
	}
	if s.Incomplete["uv"] != 1 {
		t.Errorf("expected 1 incomplete uv, got %d", s.Incomplete["uv"])
	}
}

func TestBuild_MaterialGrouping(t *testing.T) {
	data := lt.New().
		Tags("A", "B").
		Surface("A", "").
		Surface("B", "").
		Layer(0, "").
		Points(quad...).
		Faces([]uint32{0, 1, 2}, []uint32{0, 2, 3}, []uint32{1, 2, 3}).
		SurfaceTags([2]uint32{0, 0}, [2]uint32{1, 0}, [2]uint32{2, 1}).
		Bytes()

	surfaces := build(t, data, Options{}).Layers[0].Surfaces

	if len(surfaces) != 2 {
		t.Fatalf("expected 2 surfaces, got %d", len(surfaces))
	}
	want := map[uint16]int{0: 2, 1: 1}
	for _, s := range surfaces {
		if s.TriangleCount() != want[s.MaterialID] {
			t.Errorf("material %d: expected %d triangles, got %d", s.MaterialID, want[s.MaterialID], s.TriangleCount())
		}
		if len(s.Indices) != 3*s.TriangleCount() {
			t.Errorf("material %d: %d indices for %d triangles", s.MaterialID, len(s.Indices), s.TriangleCount())
		}
	}
}

func TestBuild_PolygonsDefaultToMaterialZero(t *testing.T) {
	data := lt.New().
		Tags("A", "B").
		Layer(0, "").
		Points(quad...).
		Faces([]uint32{0, 1, 2}, []uint32{0, 2, 3}).
		SurfaceTags([2]uint32{1, 1}).
		Bytes()

	surfaces := build(t, data, Options{}).Layers[0].Surfaces

	if len(surfaces) != 2 || surfaces[0].MaterialID != 0 || surfaces[1].MaterialID != 1 {
		t.Errorf("unexpected surfaces %+v", surfaces)
	}
}

func TestBuild_DegenerateAndOtherPolygons(t *testing.T) {
	data := lt.New().
		Layer(0, "").
		Points(quad...).
		Faces([]uint32{0, 1}, []uint32{0, 1, 2, 3}).
		Polygons("CURV", []uint32{0, 1, 2}).
		PolygonTags("PART", [2]uint32{0, 0}).
		Record("BBOX", lt.P().F4(0, 0, 0, 1, 1, 0).Bytes()).
		Bytes()

	layer := build(t, data, Options{}).Layers[0]

	if len(layer.Surfaces) != 1 || layer.Surfaces[0].TriangleCount() != 2 {
		t.Fatalf("expected one surface with 2 triangles, got %+v", layer.Surfaces)
	}
	if len(layer.Polygons) != 1 || layer.Polygons[0].Kind != lwo.PolygonCurve {
		t.Errorf("expected curve list to be kept, got %+v", layer.Polygons)
	}
	if len(layer.Tags) != 1 || layer.Tags[0].Kind != lwo.PolygonTagPart {
		t.Errorf("expected part tags to be kept, got %+v", layer.Tags)
	}
	if layer.Bounds == nil || layer.Bounds.Max != (mgl32.Vec3{1, 1, 0}) {
		t.Errorf("unexpected bounds %+v", layer.Bounds)
	}
}

func TestBuild_Layers(t *testing.T) {
	parented := lt.P().U2(2).U2(1).F4(1, 2, 3).S0("child").U2(1)
	data := lt.New().
		Layer(1, "root").
		Points(quad[:3]...).
		Faces([]uint32{0, 1, 2}).
		Record("LAYR", parented.Bytes()).
		Bytes()

	layers := build(t, data, Options{}).Layers

	if len(layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(layers))
	}
	if layers[0].Name != "root" || layers[0].HasParent {
		t.Errorf("unexpected first layer %+v", layers[0])
	}
	child := layers[1]
	if child.ID != 2 || !child.HasParent || child.Parent != 1 || !child.Hidden {
		t.Errorf("unexpected child layer %+v", child)
	}
	if child.Pivot != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("unexpected pivot %v", child.Pivot)
	}
	if len(child.Surfaces) != 0 {
		t.Errorf("expected empty layer to have no surfaces, got %d", len(child.Surfaces))
	}
}

func TestBuild_Weights(t *testing.T) {
	data := lt.New().
		Layer(0, "").
		Points(quad[:3]...).
		Faces([]uint32{0, 1, 2}).
		VMap("WGHT", 1, "first", lt.MapEntry{Point: 0, Values: []float32{0.25}}).
		VMap("WGHT", 1, "second",
			lt.MapEntry{Point: 0, Values: []float32{0.5}},
			lt.MapEntry{Point: 1, Values: []float32{1}},
		).
		Bytes()

	tests := []struct {
		name       string
		weightMap  string
		wantMap    string
		wantFirst  float32
		incomplete int
	}{
		{"first map by default", "", "first", 0.25, 2},
		{"configured map", "second", "second", 0.5, 1},
		{"missing configured map", "nope", "first", 0.25, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := build(t, data, Options{WeightMap: tt.weightMap}).Layers[0].Surfaces[0]
			if s.WeightMap != tt.wantMap {
				t.Errorf("expected weight map %q, got %q", tt.wantMap, s.WeightMap)
			}
			if w := s.Vertices[s.Indices[0]].Weight; w != tt.wantFirst {
				t.Errorf("expected weight %v, got %v", tt.wantFirst, w)
			}
			if s.Incomplete[tt.wantMap] != tt.incomplete {
				t.Errorf("expected %d incomplete weights, got %d", tt.incomplete, s.Incomplete[tt.wantMap])
			}
		})
	}
}

func TestBuild_NoWeightMaps(t *testing.T) {
	data := lt.New().
		Layer(0, "").
		Points(quad[:3]...).
		Faces([]uint32{0, 1, 2}).
		Bytes()

	s := build(t, data, Options{}).Layers[0].Surfaces[0]
	if s.WeightMap != "" || len(s.Incomplete) != 0 {
		t.Errorf("expected no weight diagnostics, got %q %v", s.WeightMap, s.Incomplete)
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
		path string
	}{
		{
			"geometry before layer",
			lt.New().Points(quad...).Bytes(),
			iff.ErrUnresolvedReference,
			"points",
		},
		{
			"surface missing from tag table",
			lt.New().Tags("a").Surface("b", "").Bytes(),
			iff.ErrUnresolvedReference,
			"surface",
		},
		{
			"point out of range",
			lt.New().Layer(0, "").Points(quad[:2]...).Faces([]uint32{0, 1, 2}).Bytes(),
			iff.ErrUnresolvedReference,
			"layer/polygons",
		},
		{
			"vertex map point out of range",
			lt.New().Layer(0, "").Points(quad[:1]...).
				VMap("TXUV", 2, "uv", lt.MapEntry{Point: 4, Values: []float32{0, 0}}).Bytes(),
			iff.ErrUnresolvedReference,
			"layer/vmap",
		},
		{
			"discontinuous map polygon out of range",
			lt.New().Layer(0, "").Points(quad[:3]...).Faces([]uint32{0, 1, 2}).
				VMad("TXUV", 2, "uv", lt.DiscEntry{Point: 0, Polygon: 1, Values: []float32{0, 0}}).Bytes(),
			iff.ErrUnresolvedReference,
			"layer/vmad",
		},
		{
			"surface tag polygon out of range",
			lt.New().Tags("a").Layer(0, "").Points(quad[:3]...).Faces([]uint32{0, 1, 2}).
				SurfaceTags([2]uint32{3, 0}).Bytes(),
			iff.ErrUnresolvedReference,
			"layer/ptag",
		},
		{
			"surface tag beyond tag table",
			lt.New().Tags("a").Layer(0, "").Points(quad[:3]...).Faces([]uint32{0, 1, 2}).
				SurfaceTags([2]uint32{0, 1}).Bytes(),
			iff.ErrUnresolvedReference,
			"layer/ptag",
		},
		{
			"undefined image clip",
			lt.New().Tags("a").Surface("a", "", lt.UVImageMap("\x80", 7, "uv")).Bytes(),
			iff.ErrUnresolvedReference,
			"surface",
		},
		{
			"clip references undefined clip",
			lt.New().Clip(1, lt.Sub("XREF", lt.P().U4(9).S0("other").Bytes())).Bytes(),
			iff.ErrUnresolvedReference,
			"clip",
		},
		{
			"second point list",
			lt.New().Layer(0, "").Points(quad...).Points(quad...).Bytes(),
			iff.ErrMalformedField,
			"layer/points",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := buildErr(t, tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			var re *iff.RecordError
			if !errors.As(err, &re) {
				t.Fatalf("expected a record error, got %T: %v", err, err)
			}
			if got := strings.Join(re.Path, "/"); got != tt.path {
				t.Errorf("expected path %q, got %q", tt.path, got)
			}
		})
	}
}

func TestBuild_ErrorOffset(t *testing.T) {
	// The stray point list follows the 12-byte form header and a 10-byte
	// TAGS record.
	err := buildErr(t, lt.New().Tags("a").Points(quad...).Bytes())

	var re *iff.RecordError
	if !errors.As(err, &re) {
		t.Fatalf("expected a record error, got %v", err)
	}
	if re.Offset != 22 {
		t.Errorf("expected offset 22, got %d", re.Offset)
	}
}

func TestBuild_TagIndexBeyondMaterialRange(t *testing.T) {
	names := make([]string, 1<<16+1)
	for i := range names {
		names[i] = fmt.Sprintf("s%d", i)
	}
	data := lt.New().Tags(names...).Surface(names[1<<16], "").Bytes()

	err := buildErr(t, data)
	if !errors.Is(err, iff.ErrMalformedField) {
		t.Errorf("expected malformed field, got %v", err)
	}
}

func TestBuild_IncompleteDiagnostic(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	b := lt.New().Tags("mat")
	data := uvMaterial(b, "mat", "uv").
		Record("ZZZZ", []byte{1, 2, 3, 4}).
		Layer(0, "body").
		Points(quad[:3]...).
		Faces([]uint32{0, 1, 2}).
		Bytes()

	m := build(t, data, Options{Logger: zap.New(core)})

	if got := m.Layers[0].Surfaces[0].Incomplete["uv"]; got != 3 {
		t.Errorf("expected 3 incomplete uvs, got %d", got)
	}
	warn := logs.FilterMessage("incomplete vertex attributes").All()
	if len(warn) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warn))
	}
	ctx := warn[0].ContextMap()
	if ctx["channel"] != "uv" || ctx["count"] != int64(3) || ctx["layer"] != "body" {
		t.Errorf("unexpected warning fields %v", ctx)
	}
	if ctx["percent"] != float64(100) {
		t.Errorf("expected 100 percent incomplete, got %v", ctx["percent"])
	}
	if logs.FilterMessage("unknown record").Len() != 1 {
		t.Error("expected unknown record to be logged")
	}
	if len(m.Unknown) != 1 || m.Unknown[0].ID != "ZZZZ" {
		t.Errorf("unexpected unknown records %+v", m.Unknown)
	}
}
