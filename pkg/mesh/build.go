package mesh

import (
	"math"

	"go.uber.org/zap"

	"github.com/Faultbox/lwo2mesh/pkg/iff"
	"github.com/Faultbox/lwo2mesh/pkg/lwo"
)

// Options configures reconstruction.
type Options struct {
	// Logger receives diagnostics. Nil discards them.
	Logger  *zap.Logger
	Winding Winding
	// WeightMap selects the weight vertex map by name. When empty, or when
	// a layer has no map of that name, the layer's first weight map is used.
	WeightMap string
}

type state int

const (
	stateIdle state = iota
	stateLayerOpen
	stateDone
)

type builder struct {
	opts  Options
	log   *zap.Logger
	model *Model
	tags  []string
	// offsets locates every top-level record for error paths.
	offsets map[lwo.Record]int64

	state state
	layer *layerState
}

// Build reconstructs obj. Global tables (tag strings, surfaces, clips and
// envelopes) are collected first, so their position in the record stream
// does not matter; geometry records are then reduced layer by layer.
func Build(obj *lwo.Object, opts Options) (*Model, error) {
	b := &builder{
		opts: opts,
		log:  opts.Logger,
		model: &Model{
			Materials: make(map[uint16]*Material),
			Envelopes: make(map[uint32]*lwo.Envelope),
		},
		offsets: make(map[lwo.Record]int64, len(obj.Records)),
	}
	for i, rec := range obj.Records {
		b.offsets[rec] = obj.Offset(i)
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	if err := b.collect(obj.Records); err != nil {
		return nil, err
	}
	for _, rec := range obj.Records {
		if err := b.step(rec); err != nil {
			return nil, err
		}
	}
	if err := b.finish(); err != nil {
		return nil, err
	}
	return b.model, nil
}

// collect builds the global tables.
func (b *builder) collect(records []lwo.Record) error {
	var (
		surfaces []*lwo.SurfaceDefinition
		clips    []*lwo.ImageClip
	)
	for _, rec := range records {
		switch rec := rec.(type) {
		case *lwo.TagStrings:
			b.tags = append(b.tags, rec.Names...)
		case *lwo.SurfaceDefinition:
			surfaces = append(surfaces, rec)
		case *lwo.ImageClip:
			clips = append(clips, rec)
		case *lwo.Envelope:
			b.model.Envelopes[rec.Index] = rec
		case *lwo.Unknown:
			b.log.Debug("unknown record", zap.String("tag", string(rec.ID)), zap.Int("size", len(rec.Data)))
			b.model.Unknown = append(b.model.Unknown, rec)
		}
	}

	var err error
	if b.model.Clips, err = resolveClips(clips, b.offsets); err != nil {
		return err
	}
	tags := &lwo.TagStrings{Names: b.tags}
	for _, def := range surfaces {
		m, err := b.material(tags, def)
		if err != nil {
			return iff.Within(err, lwo.RecordName(lwo.TagSurface), b.offsets[def])
		}
		b.model.Materials[m.ID] = m
	}
	return nil
}

func (b *builder) material(tags *lwo.TagStrings, def *lwo.SurfaceDefinition) (*Material, error) {
	idx := tags.Index(def.Name)
	if idx < 0 {
		return nil, iff.Unresolved("surface %q is not in the tag table", def.Name)
	}
	if idx > math.MaxUint16 {
		return nil, iff.Malformed("surface %q has tag index %d, beyond the polygon tag range", def.Name, idx)
	}
	return resolveMaterial(uint16(idx), def, b.model.Clips)
}

// step advances the layer state machine by one record.
func (b *builder) step(rec lwo.Record) error {
	switch rec := rec.(type) {
	case *lwo.Layer:
		if b.state == stateLayerOpen {
			if err := b.closeLayer(); err != nil {
				return err
			}
		}
		b.layer = newLayerState(rec, b.offsets[rec])
		b.state = stateLayerOpen
	case *lwo.PointList, *lwo.PolygonList, *lwo.VertexMap, *lwo.DiscontinuousVertexMap,
		*lwo.PolygonTagMap, *lwo.BoundingBox:
		name, off := lwo.RecordName(rec.Tag()), b.offsets[rec]
		if b.state != stateLayerOpen {
			return iff.Within(iff.Unresolved("%s record before any layer header", rec.Tag()), name, off)
		}
		if err := b.layer.add(rec, off); err != nil {
			return b.layer.locate(iff.Within(err, name, off))
		}
	}
	return nil
}

func (b *builder) closeLayer() error {
	l, err := b.flush(b.layer)
	if err != nil {
		return b.layer.locate(err)
	}
	b.model.Layers = append(b.model.Layers, l)
	b.layer = nil
	return nil
}

func (b *builder) finish() error {
	if b.state == stateLayerOpen {
		if err := b.closeLayer(); err != nil {
			return err
		}
	}
	b.state = stateDone
	return nil
}
