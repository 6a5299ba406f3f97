package mesh

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// surfaceBuilder fills one output surface. It owns its deduplication index.
type surfaceBuilder struct {
	surface  *Surface
	index    *vertexIndex
	points   []mgl32.Vec3
	uvs      []*channel
	weight   *channel
	scratch  []UVSet
	log      *zap.Logger
	material uint16
}

func (b *builder) newSurface(l *layerState, id uint16, uvs *channelSet, weight *channel, log *zap.Logger) *surfaceBuilder {
	sb := &surfaceBuilder{
		surface: &Surface{
			MaterialID: id,
			Incomplete: make(map[string]int),
		},
		index:    newVertexIndex(),
		points:   l.points,
		weight:   weight,
		log:      log.With(zap.Uint16("material", id)),
		material: id,
	}
	mat, ok := b.model.Materials[id]
	if !ok {
		sb.log.Debug("material has no surface definition")
	} else {
		sb.surface.UVChannels = mat.UVChannels()
	}
	for _, name := range sb.surface.UVChannels {
		c := uvs.find(name)
		if c == nil {
			// Every vertex of the surface will be counted incomplete.
			c = newChannel(name)
		}
		sb.uvs = append(sb.uvs, c)
	}
	if weight != nil {
		sb.surface.WeightMap = weight.name
	}
	sb.scratch = make([]UVSet, len(sb.uvs))
	return sb
}

// visit resolves the attributes of point as used by polygon and appends the
// index of the matching output vertex.
func (sb *surfaceBuilder) visit(polygon, point uint32) {
	for i, c := range sb.uvs {
		if v, ok := c.lookup(polygon, point); ok {
			sb.scratch[i] = UVSet{Coord: mgl32.Vec2{v[0], v[1]}, Valid: true}
		} else {
			sb.scratch[i] = UVSet{}
		}
	}
	var w float32
	wOK := true
	if sb.weight != nil {
		var v []float32
		if v, wOK = sb.weight.lookup(polygon, point); wOK && len(v) > 0 {
			w = v[0]
		}
	}

	next := uint32(len(sb.surface.Vertices))
	idx, added := sb.index.slot(point, sb.material, sb.scratch, w, next)
	if added {
		uv := make([]UVSet, len(sb.scratch))
		copy(uv, sb.scratch)
		for i, set := range uv {
			if !set.Valid {
				sb.surface.Incomplete[sb.uvs[i].name]++
			}
		}
		if !wOK {
			sb.surface.Incomplete[sb.weight.name]++
		}
		sb.surface.Vertices = append(sb.surface.Vertices, Vertex{
			Position: sb.points[point],
			UV:       uv,
			Weight:   w,
		})
	}
	sb.surface.Indices = append(sb.surface.Indices, idx)
}

// report logs the incomplete attribute counts of the finished surface.
func (sb *surfaceBuilder) report() {
	total := sb.index.Len()
	for name, n := range sb.surface.Incomplete {
		sb.log.Warn("incomplete vertex attributes",
			zap.String("channel", name),
			zap.Int("count", n),
			zap.Float64("percent", float64(n)/float64(total)*100))
	}
}
