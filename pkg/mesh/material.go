package mesh

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/Faultbox/lwo2mesh/pkg/iff"
	"github.com/Faultbox/lwo2mesh/pkg/lwo"
)

// Shading is a scalar shading value. Envelope 0 means static.
type Shading struct {
	Value    float32
	Envelope uint32
}

// Material describes one surface definition for a rendering collaborator.
type Material struct {
	ID     uint16
	Name   string
	Source string

	Color         mgl32.Vec3
	ColorEnvelope uint32
	// Values holds scalar parameters keyed by their sub-record tag
	// (lwo.ParamDiffuse, lwo.ParamSpecular, ...).
	Values         map[iff.Tag]Shading
	Sides          lwo.Sidedness
	SmoothingAngle float32
	ReflectionMode lwo.ReflectionMode
	ReflectionClip *Clip
	RefractionMode lwo.ReflectionMode
	RefractionClip *Clip

	Textures []*TextureLayer
	Unknown  []*lwo.Unknown
}

// Value returns the scalar parameter stored under tag.
func (m *Material) Value(tag iff.Tag) (Shading, bool) {
	v, ok := m.Values[tag]
	return v, ok
}

// UVChannels returns the distinct UV map names sampled by the material's
// enabled UV-projected image textures, in block order.
func (m *Material) UVChannels() []string {
	var names []string
	seen := make(map[string]bool)
	for _, t := range m.Textures {
		if t.Kind != lwo.BlockImageMap || t.Projection != lwo.ProjectionUV || !t.Enabled || t.UVMap == "" {
			continue
		}
		if !seen[t.UVMap] {
			seen[t.UVMap] = true
			names = append(names, t.UVMap)
		}
	}
	return names
}

// TextureLayer is one texture block of a material.
type TextureLayer struct {
	Kind    iff.Tag
	Ordinal string
	Channel lwo.TextureChannel
	Enabled bool
	Negate  bool

	Opacity      lwo.OpacityMode
	OpacityValue float32

	Projection lwo.ProjectionMode
	Axis       lwo.Axis
	// UVMap is the source vertex map of a UV-projected texture.
	UVMap string
	// Clip is nil when the block references no image.
	Clip *Clip

	WrapWidth, WrapHeight    lwo.WrapMode
	WrapAmountW, WrapAmountH float32
	// Amplitude scales bump textures.
	Amplitude float32

	Antialiasing         bool
	AntialiasingStrength float32
	PixelBlending        bool

	// Transform maps object space into texture space; it is the identity
	// for blocks without a texture mapping.
	Transform mgl32.Mat4
	Coords    lwo.CoordSystem

	// Algorithm names the plugin of procedural and shader blocks.
	Algorithm string
}

func resolveMaterial(id uint16, def *lwo.SurfaceDefinition, clips map[uint32]*Clip) (*Material, error) {
	m := &Material{
		ID:     id,
		Name:   def.Name,
		Source: def.Source,
		Values: make(map[iff.Tag]Shading),
		Sides:  lwo.SingleSided,
	}
	for _, p := range def.Params {
		switch p := p.(type) {
		case *lwo.ColorParam:
			m.Color, m.ColorEnvelope = p.Color, p.Envelope
		case *lwo.ValueParam:
			m.Values[p.ID] = Shading{Value: p.Value, Envelope: p.Envelope}
		case *lwo.SidednessParam:
			m.Sides = p.Sides
		case *lwo.SmoothingAngleParam:
			m.SmoothingAngle = p.Angle
		case *lwo.ReflectionOptionsParam:
			if p.ID == lwo.ParamRefractionOpts {
				m.RefractionMode = p.Mode
			} else {
				m.ReflectionMode = p.Mode
			}
		case *lwo.ImageParam:
			c, err := lookupClip(clips, p.Clip)
			if err != nil {
				return nil, errors.Wrapf(err, "surface %q", def.Name)
			}
			if p.ID == lwo.ParamRefractionImage {
				m.RefractionClip = c
			} else {
				m.ReflectionClip = c
			}
		case *lwo.Block:
			t, err := resolveTexture(p, clips)
			if err != nil {
				return nil, errors.Wrapf(err, "surface %q block %q", def.Name, p.Kind)
			}
			m.Textures = append(m.Textures, t)
		case *lwo.Unknown:
			m.Unknown = append(m.Unknown, p)
		}
	}
	return m, nil
}

func resolveTexture(b *lwo.Block, clips map[uint32]*Clip) (*TextureLayer, error) {
	t := &TextureLayer{
		Kind:         b.Kind,
		Ordinal:      b.Ordinal,
		Channel:      lwo.ChannelColor,
		Enabled:      true,
		OpacityValue: 1,
		Transform:    mgl32.Ident4(),
	}
	for _, a := range b.Header {
		switch a := a.(type) {
		case *lwo.ChannelAttr:
			t.Channel = a.Channel
		case *lwo.FlagAttr:
			if a.ID == lwo.HeaderNegative {
				t.Negate = a.Enabled
			} else {
				t.Enabled = a.Enabled
			}
		case *lwo.OpacityAttr:
			t.Opacity, t.OpacityValue = a.Mode, a.Value
		case *lwo.AxisAttr:
			t.Axis = a.Axis
		}
	}
	for _, a := range b.Attrs {
		switch a := a.(type) {
		case *lwo.TextureMapping:
			t.Transform = a.Matrix()
			t.Coords = a.Coords
		case *lwo.ProjectionAttr:
			t.Projection = a.Mode
		case *lwo.AxisAttr:
			t.Axis = a.Axis
		case *lwo.ImageParam:
			c, err := lookupClip(clips, a.Clip)
			if err != nil {
				return nil, err
			}
			t.Clip = c
		case *lwo.WrapAttr:
			t.WrapWidth, t.WrapHeight = a.Width, a.Height
		case *lwo.ValueParam:
			switch a.ID {
			case lwo.AttrWrapWidth:
				t.WrapAmountW = a.Value
			case lwo.AttrWrapHeight:
				t.WrapAmountH = a.Value
			case lwo.AttrAmplitude:
				t.Amplitude = a.Value
			}
		case *lwo.UVMapAttr:
			t.UVMap = a.Name
		case *lwo.AntialiasingAttr:
			t.Antialiasing, t.AntialiasingStrength = a.Enabled, a.Strength
		case *lwo.FlagAttr:
			if a.ID == lwo.AttrPixelBlending {
				t.PixelBlending = a.Enabled
			}
		case *lwo.FunctionAttr:
			t.Algorithm = a.Algorithm
		}
	}
	return t, nil
}

// lookupClip resolves a clip reference; id 0 means no image.
func lookupClip(clips map[uint32]*Clip, id uint32) (*Clip, error) {
	if id == 0 {
		return nil, nil
	}
	c, ok := clips[id]
	if !ok {
		return nil, iff.Unresolved("image clip %d is not defined", id)
	}
	return c, nil
}
