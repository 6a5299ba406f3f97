package lwo

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lwo2mesh/pkg/iff"
)

// Surface sub-record tags.
const (
	ParamColor           iff.Tag = "COLR"
	ParamDiffuse         iff.Tag = "DIFF"
	ParamLuminosity      iff.Tag = "LUMI"
	ParamSpecular        iff.Tag = "SPEC"
	ParamReflection      iff.Tag = "REFL"
	ParamTransparency    iff.Tag = "TRAN"
	ParamTranslucency    iff.Tag = "TRNL"
	ParamGlossiness      iff.Tag = "GLOS"
	ParamSharpness       iff.Tag = "SHRP"
	ParamBump            iff.Tag = "BUMP"
	ParamRefractiveIndex iff.Tag = "RIND"
	ParamRefractionBlur  iff.Tag = "TBLR"
	ParamColorHighlights iff.Tag = "CLRH"
	ParamColorFilter     iff.Tag = "CLRF"
	ParamAdditiveTransp  iff.Tag = "ADTR"
	ParamSidedness       iff.Tag = "SIDE"
	ParamSmoothingAngle  iff.Tag = "SMAN"
	ParamReflectionOpts  iff.Tag = "RFOP"
	ParamReflectionImage iff.Tag = "RIMG"
	ParamRefractionOpts  iff.Tag = "TROP"
	ParamRefractionImage iff.Tag = "TIMG"
	ParamBlock           iff.Tag = "BLOK"
)

// SurfaceDefinition describes one named material.
type SurfaceDefinition struct {
	Name   string
	Source string
	Params []SurfaceParam
}

// Tag returns TagSurface.
func (*SurfaceDefinition) Tag() iff.Tag { return TagSurface }

// Blocks returns the texture blocks of the surface in file order.
func (s *SurfaceDefinition) Blocks() []*Block {
	var out []*Block
	for _, p := range s.Params {
		if b, ok := p.(*Block); ok {
			out = append(out, b)
		}
	}
	return out
}

// Param returns the first parameter with the given tag, or nil.
func (s *SurfaceDefinition) Param(tag iff.Tag) SurfaceParam {
	for _, p := range s.Params {
		if p.Tag() == tag {
			return p
		}
	}
	return nil
}

// SurfaceParam is a sub-record of a surface definition.
type SurfaceParam interface {
	Tag() iff.Tag
}

// ColorParam is a base color with an optional envelope.
type ColorParam struct {
	Color    mgl32.Vec3
	Envelope uint32
}

// Tag returns ParamColor.
func (*ColorParam) Tag() iff.Tag { return ParamColor }

// ValueParam is a scalar shading value with an optional envelope. Envelope
// 0 means the value is static.
type ValueParam struct {
	ID       iff.Tag
	Value    float32
	Envelope uint32
}

// Tag returns the parameter's code.
func (p *ValueParam) Tag() iff.Tag { return p.ID }

// Sidedness selects which polygon sides are rendered.
type Sidedness uint16

const (
	SingleSided Sidedness = 1
	DoubleSided Sidedness = 3
)

// SidednessParam holds a surface's sidedness.
type SidednessParam struct {
	Sides Sidedness
}

// Tag returns ParamSidedness.
func (*SidednessParam) Tag() iff.Tag { return ParamSidedness }

// SmoothingAngleParam is the maximum angle, in radians, between smoothed
// polygons.
type SmoothingAngleParam struct {
	Angle float32
}

// Tag returns ParamSmoothingAngle.
func (*SmoothingAngleParam) Tag() iff.Tag { return ParamSmoothingAngle }

// ReflectionMode selects how reflections or refractions are computed.
type ReflectionMode uint16

const (
	ReflectBackdrop ReflectionMode = iota
	ReflectRaytraceBackdrop
	ReflectSphericalMap
	ReflectRaytraceSphericalMap
)

// ReflectionOptionsParam holds RFOP or TROP.
type ReflectionOptionsParam struct {
	ID   iff.Tag
	Mode ReflectionMode
}

// Tag returns the parameter's code.
func (p *ReflectionOptionsParam) Tag() iff.Tag { return p.ID }

// ImageParam references an image clip, as RIMG, TIMG or a block's IMAG.
type ImageParam struct {
	ID   iff.Tag
	Clip uint32
}

// Tag returns the parameter's code.
func (p *ImageParam) Tag() iff.Tag { return p.ID }

var surfaceParams map[iff.Tag]recordEntry[SurfaceParam]

func init() {
	value := func(name string) recordEntry[SurfaceParam] {
		return recordEntry[SurfaceParam]{name, func(_ *decoder, c iff.Chunk) (SurfaceParam, error) {
			p, err := decodeValueParam(c)
			if err != nil {
				return nil, err
			}
			return p, nil
		}}
	}
	surfaceParams = map[iff.Tag]recordEntry[SurfaceParam]{
		ParamColor:           {"color", decodeColorParam},
		ParamDiffuse:         value("diffuse"),
		ParamLuminosity:      value("luminosity"),
		ParamSpecular:        value("specular"),
		ParamReflection:      value("reflection"),
		ParamTransparency:    value("transparency"),
		ParamTranslucency:    value("translucency"),
		ParamGlossiness:      value("glossiness"),
		ParamSharpness:       value("sharpness"),
		ParamBump:            value("bump"),
		ParamRefractiveIndex: value("refractive-index"),
		ParamRefractionBlur:  value("refraction-blur"),
		ParamColorHighlights: value("color-highlights"),
		ParamColorFilter:     value("color-filter"),
		ParamAdditiveTransp:  value("additive-transparency"),
		ParamSidedness:       {"sidedness", decodeSidedness},
		ParamSmoothingAngle:  {"smoothing-angle", decodeSmoothingAngle},
		ParamReflectionOpts:  {"reflection-options", decodeReflectionOptions},
		ParamRefractionOpts:  {"refraction-options", decodeReflectionOptions},
		ParamReflectionImage: {"reflection-image", decodeImageParam},
		ParamRefractionImage: {"refraction-image", decodeImageParam},
		ParamBlock:           {"block", decodeBlock},
	}
}

func decodeSurface(d *decoder, c iff.Chunk) (Record, error) {
	r := c.Body
	s := &SurfaceDefinition{}
	var err error
	if s.Name, err = d.str(r); err != nil {
		return nil, err
	}
	if s.Source, err = d.str(r); err != nil {
		return nil, err
	}
	// The body is bounded to the declared length, so what remains after
	// the two padded strings is exactly the sub-record list.
	s.Params, err = subRecords(d, r, surfaceParams, func(u *Unknown) SurfaceParam { return u })
	if err != nil {
		return nil, err
	}
	return s, nil
}

func decodeColorParam(_ *decoder, c iff.Chunk) (SurfaceParam, error) {
	p := &ColorParam{}
	var err error
	if p.Color, err = c.Body.Vec12(); err != nil {
		return nil, err
	}
	if p.Envelope, err = c.Body.VX(); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeValueParam(c iff.Chunk) (*ValueParam, error) {
	p := &ValueParam{ID: c.Tag}
	var err error
	if p.Value, err = c.Body.F4(); err != nil {
		return nil, err
	}
	if p.Envelope, err = c.Body.VX(); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeSidedness(_ *decoder, c iff.Chunk) (SurfaceParam, error) {
	v, err := c.Body.U2()
	if err != nil {
		return nil, err
	}
	if s := Sidedness(v); s != SingleSided && s != DoubleSided {
		return nil, iff.Malformed("unknown sidedness %d", v)
	}
	return &SidednessParam{Sides: Sidedness(v)}, nil
}

func decodeSmoothingAngle(_ *decoder, c iff.Chunk) (SurfaceParam, error) {
	v, err := c.Body.F4()
	if err != nil {
		return nil, err
	}
	return &SmoothingAngleParam{Angle: v}, nil
}

func decodeReflectionOptions(_ *decoder, c iff.Chunk) (SurfaceParam, error) {
	v, err := c.Body.U2()
	if err != nil {
		return nil, err
	}
	if v > uint16(ReflectRaytraceSphericalMap) {
		return nil, iff.Malformed("unknown reflection mode %d", v)
	}
	return &ReflectionOptionsParam{ID: c.Tag, Mode: ReflectionMode(v)}, nil
}

func decodeImageParam(_ *decoder, c iff.Chunk) (SurfaceParam, error) {
	v, err := c.Body.VX()
	if err != nil {
		return nil, err
	}
	return &ImageParam{ID: c.Tag, Clip: v}, nil
}
