package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/lwo2mesh/pkg/iff"
	"github.com/Faultbox/lwo2mesh/pkg/lwo"
)

type polyPoint struct {
	polygon, point uint32
}

// channel is one named vertex map of a layer, merged from its continuous
// and discontinuous records.
type channel struct {
	name       string
	continuous map[uint32][]float32
	perPolygon map[polyPoint][]float32
}

func newChannel(name string) *channel {
	return &channel{
		name:       name,
		continuous: make(map[uint32][]float32),
		perPolygon: make(map[polyPoint][]float32),
	}
}

// lookup resolves the value for point on polygon. A per-polygon entry takes
// precedence over the point's continuous entry.
func (c *channel) lookup(polygon, point uint32) ([]float32, bool) {
	if v, ok := c.perPolygon[polyPoint{polygon, point}]; ok {
		return v, true
	}
	v, ok := c.continuous[point]
	return v, ok
}

// channelSet holds the vertex maps of one kind in first-seen order.
type channelSet struct {
	byName map[string]*channel
	order  []string
}

func (s *channelSet) get(name string) *channel {
	if s.byName == nil {
		s.byName = make(map[string]*channel)
	}
	c, ok := s.byName[name]
	if !ok {
		c = newChannel(name)
		s.byName[name] = c
		s.order = append(s.order, name)
	}
	return c
}

func (s *channelSet) find(name string) *channel {
	return s.byName[name]
}

// layerState accumulates the records of the open layer.
type layerState struct {
	header *lwo.Layer
	offset int64
	// offsets locates the layer's records for error paths.
	offsets map[lwo.Record]int64

	points    []mgl32.Vec3
	hasPoints bool
	faces     []lwo.Polygon
	faceList  *lwo.PolygonList
	other     []*lwo.PolygonList

	vmaps []*lwo.VertexMap
	vmads []*lwo.DiscontinuousVertexMap

	surfaceTags []*lwo.PolygonTagMap
	otherTags   []*lwo.PolygonTagMap
	bounds      *lwo.BoundingBox
}

func newLayerState(header *lwo.Layer, offset int64) *layerState {
	return &layerState{header: header, offset: offset, offsets: make(map[lwo.Record]int64)}
}

func (l *layerState) add(rec lwo.Record, offset int64) error {
	l.offsets[rec] = offset
	switch rec := rec.(type) {
	case *lwo.PointList:
		if l.hasPoints {
			return iff.Malformed("layer %d has more than one point list", l.header.Number)
		}
		l.points, l.hasPoints = rec.Points, true
	case *lwo.PolygonList:
		if rec.Kind != lwo.PolygonFace {
			l.other = append(l.other, rec)
			return nil
		}
		if l.faceList != nil {
			return iff.Malformed("layer %d has more than one face list", l.header.Number)
		}
		l.faces, l.faceList = rec.Polygons, rec
	case *lwo.VertexMap:
		l.vmaps = append(l.vmaps, rec)
	case *lwo.DiscontinuousVertexMap:
		l.vmads = append(l.vmads, rec)
	case *lwo.PolygonTagMap:
		if rec.Kind == lwo.PolygonTagSurface {
			l.surfaceTags = append(l.surfaceTags, rec)
		} else {
			l.otherTags = append(l.otherTags, rec)
		}
	case *lwo.BoundingBox:
		l.bounds = rec
	}
	return nil
}

// polygonCount is the bound for polygon-keyed references: the face list,
// or the largest other polygon list when the layer has no faces.
func (l *layerState) polygonCount() int {
	if l.faceList != nil {
		return len(l.faces)
	}
	n := 0
	for _, pl := range l.other {
		n = max(n, len(pl.Polygons))
	}
	return n
}

// within locates err at rec inside the layer.
func (l *layerState) within(err error, rec lwo.Record) error {
	return iff.Within(err, lwo.RecordName(rec.Tag()), l.offsets[rec])
}

// locate prefixes err with the layer's own record path.
func (l *layerState) locate(err error) error {
	return iff.Within(err, lwo.RecordName(lwo.TagLayer), l.offset)
}

func checkPolygons(pl *lwo.PolygonList, np uint32) error {
	for i, poly := range pl.Polygons {
		for _, p := range poly.Points {
			if p >= np {
				return iff.Unresolved("%s polygon %d references point %d of %d", pl.Kind, i, p, np)
			}
		}
	}
	return nil
}

// validate checks every point and polygon reference of the layer.
func (l *layerState) validate(tagCount int) error {
	np, npoly := uint32(len(l.points)), uint32(l.polygonCount())
	if l.faceList != nil {
		if err := checkPolygons(l.faceList, np); err != nil {
			return l.within(err, l.faceList)
		}
	}
	for _, pl := range l.other {
		if err := checkPolygons(pl, np); err != nil {
			return l.within(err, pl)
		}
	}
	for _, vm := range l.vmaps {
		for _, e := range vm.Entries {
			if e.Point >= np {
				return l.within(iff.Unresolved("vertex map %q references point %d of %d", vm.Name, e.Point, np), vm)
			}
		}
	}
	for _, vm := range l.vmads {
		for _, e := range vm.Entries {
			if e.Point >= np {
				return l.within(iff.Unresolved("vertex map %q references point %d of %d", vm.Name, e.Point, np), vm)
			}
			if e.Polygon >= npoly {
				return l.within(iff.Unresolved("vertex map %q references polygon %d of %d", vm.Name, e.Polygon, npoly), vm)
			}
		}
	}
	for _, pt := range l.surfaceTags {
		for _, m := range pt.Mappings {
			if m.Polygon >= npoly {
				return l.within(iff.Unresolved("surface tag references polygon %d of %d", m.Polygon, npoly), pt)
			}
			if int(m.Tag) >= tagCount {
				return l.within(iff.Unresolved("surface tag %d is not in the tag table of %d names", m.Tag, tagCount), pt)
			}
		}
	}
	return nil
}

// channels merges the layer's vertex maps of kind by name.
func (l *layerState) channels(kind iff.Tag) *channelSet {
	set := &channelSet{}
	for _, vm := range l.vmaps {
		if vm.Kind != kind {
			continue
		}
		c := set.get(vm.Name)
		for _, e := range vm.Entries {
			c.continuous[e.Point] = e.Values
		}
	}
	for _, vm := range l.vmads {
		if vm.Kind != kind {
			continue
		}
		c := set.get(vm.Name)
		for _, e := range vm.Entries {
			c.perPolygon[polyPoint{e.Polygon, e.Point}] = e.Values
		}
	}
	return set
}

// materialGroups returns, for each material id in order of first use, the
// indices of the faces assigned to it. Unassigned faces use material 0.
func (l *layerState) materialGroups() (order []uint16, groups map[uint16][]uint32) {
	assigned := make(map[uint32]uint16)
	for _, pt := range l.surfaceTags {
		for _, m := range pt.Mappings {
			assigned[m.Polygon] = m.Tag
		}
	}
	groups = make(map[uint16][]uint32)
	for i := range l.faces {
		id := assigned[uint32(i)]
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], uint32(i))
	}
	return order, groups
}

func (l *layerState) name() string {
	if l.header.Name != "" {
		return l.header.Name
	}
	return fmt.Sprintf("layer_%d", l.header.Number)
}

// flush closes the layer and reconstructs its surfaces.
func (b *builder) flush(l *layerState) (*Layer, error) {
	out := &Layer{
		ID:        l.header.Number,
		Parent:    l.header.Parent,
		HasParent: l.header.HasParent,
		Name:      l.name(),
		Pivot:     l.header.Pivot,
		Hidden:    l.header.Hidden(),
		Bounds:    l.bounds,
		Polygons:  l.other,
		Tags:      l.otherTags,
	}
	log := b.log.With(zap.String("layer", out.Name))

	if err := l.validate(len(b.tags)); err != nil {
		return nil, err
	}
	for _, pl := range l.other {
		log.Debug("polygon list kept without triangulation",
			zap.String("kind", string(pl.Kind)), zap.Int("polygons", len(pl.Polygons)))
	}
	for _, vm := range l.vmaps {
		if vm.Kind != lwo.MapUV && vm.Kind != lwo.MapWeight {
			log.Debug("vertex map kind not reconstructed",
				zap.String("kind", string(vm.Kind)), zap.String("name", vm.Name))
		}
	}

	uvs := l.channels(lwo.MapUV)
	weights := l.channels(lwo.MapWeight)
	var weight *channel
	if b.opts.WeightMap != "" {
		weight = weights.find(b.opts.WeightMap)
	}
	if weight == nil && len(weights.order) > 0 {
		weight = weights.find(weights.order[0])
	}

	order, groups := l.materialGroups()
	for _, id := range order {
		sb := b.newSurface(l, id, uvs, weight, log)
		for _, pi := range groups[id] {
			poly := l.faces[pi]
			if len(poly.Points) < 3 {
				log.Debug("degenerate polygon skipped",
					zap.Uint32("polygon", pi), zap.Int("points", len(poly.Points)))
				continue
			}
			fan(poly.Points, b.opts.Winding, func(a, c, d uint32) {
				sb.visit(pi, a)
				sb.visit(pi, c)
				sb.visit(pi, d)
			})
		}
		if len(sb.surface.Indices) == 0 {
			continue
		}
		sb.report()
		out.Surfaces = append(out.Surfaces, sb.surface)
	}

	log.Debug("layer reconstructed",
		zap.Uint16("id", out.ID),
		zap.Int("points", len(l.points)),
		zap.Int("faces", len(l.faces)),
		zap.Int("surfaces", len(out.Surfaces)))
	return out, nil
}
