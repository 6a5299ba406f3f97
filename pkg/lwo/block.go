package lwo

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lwo2mesh/pkg/iff"
)

// Texture block kinds.
const (
	BlockImageMap   iff.Tag = "IMAP"
	BlockProcedural iff.Tag = "PROC"
	BlockGradient   iff.Tag = "GRAD"
	BlockShader     iff.Tag = "SHDR"
)

// Block header sub-record tags.
const (
	HeaderChannel  iff.Tag = "CHAN"
	HeaderEnable   iff.Tag = "ENAB"
	HeaderOpacity  iff.Tag = "OPAC"
	HeaderAxis     iff.Tag = "AXIS"
	HeaderNegative iff.Tag = "NEGA"
)

// Block attribute tags.
const (
	AttrTextureMapping iff.Tag = "TMAP"
	AttrProjection     iff.Tag = "PROJ"
	AttrAxis           iff.Tag = "AXIS"
	AttrImage          iff.Tag = "IMAG"
	AttrWrap           iff.Tag = "WRAP"
	AttrWrapWidth      iff.Tag = "WRPW"
	AttrWrapHeight     iff.Tag = "WRPH"
	AttrUVMap          iff.Tag = "VMAP"
	AttrAntialiasing   iff.Tag = "AAST"
	AttrPixelBlending  iff.Tag = "PIXB"
	AttrAmplitude      iff.Tag = "TAMP"
	AttrFunction       iff.Tag = "FUNC"
)

// Texture mapping sub-record tags.
const (
	MappingCenter    iff.Tag = "CNTR"
	MappingSize      iff.Tag = "SIZE"
	MappingRotation  iff.Tag = "ROTA"
	MappingReference iff.Tag = "OREF"
	MappingFalloff   iff.Tag = "FALL"
	MappingCoords    iff.Tag = "CSYS"
)

// Block is a texture layer of a surface.
type Block struct {
	// Kind is the header code: BlockImageMap, BlockProcedural, BlockGradient
	// or BlockShader.
	Kind    iff.Tag
	Ordinal string
	Header  []BlockAttr
	Attrs   []BlockAttr
}

// Tag returns ParamBlock.
func (*Block) Tag() iff.Tag { return ParamBlock }

// BlockAttr is a sub-record of a block header or of a block body.
type BlockAttr interface {
	Tag() iff.Tag
}

// Attr returns the first block body attribute with the given tag, or nil.
func (b *Block) Attr(tag iff.Tag) BlockAttr {
	for _, a := range b.Attrs {
		if a.Tag() == tag {
			return a
		}
	}
	return nil
}

// HeaderAttr returns the first header attribute with the given tag, or nil.
func (b *Block) HeaderAttr(tag iff.Tag) BlockAttr {
	for _, a := range b.Header {
		if a.Tag() == tag {
			return a
		}
	}
	return nil
}

// TextureChannel names the shading value a block modulates.
type TextureChannel iff.Tag

const (
	ChannelColor           TextureChannel = "COLR"
	ChannelDiffuse         TextureChannel = "DIFF"
	ChannelLuminosity      TextureChannel = "LUMI"
	ChannelSpecular        TextureChannel = "SPEC"
	ChannelGlossiness      TextureChannel = "GLOS"
	ChannelReflection      TextureChannel = "REFL"
	ChannelTransparency    TextureChannel = "TRAN"
	ChannelRefractiveIndex TextureChannel = "RIND"
	ChannelTranslucency    TextureChannel = "TRNL"
	ChannelBump            TextureChannel = "BUMP"
)

func (c TextureChannel) valid() bool {
	switch c {
	case ChannelColor, ChannelDiffuse, ChannelLuminosity, ChannelSpecular, ChannelGlossiness,
		ChannelReflection, ChannelTransparency, ChannelRefractiveIndex, ChannelTranslucency, ChannelBump:
		return true
	}
	return false
}

// ChannelAttr selects the channel a block applies to.
type ChannelAttr struct {
	Channel TextureChannel
}

// Tag returns HeaderChannel.
func (*ChannelAttr) Tag() iff.Tag { return HeaderChannel }

// FlagAttr is a boolean header or body attribute such as ENAB, NEGA or PIXB.
type FlagAttr struct {
	ID      iff.Tag
	Enabled bool
}

// Tag returns the attribute's code.
func (a *FlagAttr) Tag() iff.Tag { return a.ID }

// OpacityMode selects how a block is composited over the layers below it.
type OpacityMode uint16

const (
	OpacityNormal OpacityMode = iota
	OpacitySubtractive
	OpacityDifference
	OpacityMultiply
	OpacityDivide
	OpacityAlpha
	OpacityDisplacement
	OpacityAdditive
)

// OpacityAttr holds a block's compositing mode and opacity.
type OpacityAttr struct {
	Mode     OpacityMode
	Value    float32
	Envelope uint32
}

// Tag returns HeaderOpacity.
func (*OpacityAttr) Tag() iff.Tag { return HeaderOpacity }

// Axis is X, Y or Z.
type Axis uint16

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// AxisAttr holds a displacement axis (header) or major projection axis
// (body).
type AxisAttr struct {
	Axis Axis
}

// Tag returns AttrAxis.
func (*AxisAttr) Tag() iff.Tag { return AttrAxis }

// ProjectionMode selects how texture coordinates are generated.
type ProjectionMode uint16

const (
	ProjectionPlanar ProjectionMode = iota
	ProjectionCylindrical
	ProjectionSpherical
	ProjectionCubic
	ProjectionFront
	ProjectionUV
)

// String returns a human-readable projection name.
func (p ProjectionMode) String() string {
	switch p {
	case ProjectionPlanar:
		return "Planar"
	case ProjectionCylindrical:
		return "Cylindrical"
	case ProjectionSpherical:
		return "Spherical"
	case ProjectionCubic:
		return "Cubic"
	case ProjectionFront:
		return "Front"
	case ProjectionUV:
		return "UV"
	default:
		return "Unknown"
	}
}

// ProjectionAttr holds a block's projection mode.
type ProjectionAttr struct {
	Mode ProjectionMode
}

// Tag returns AttrProjection.
func (*ProjectionAttr) Tag() iff.Tag { return AttrProjection }

// WrapMode selects how an image repeats outside its unit square.
type WrapMode uint16

const (
	WrapReset WrapMode = iota
	WrapRepeat
	WrapMirror
	WrapEdge
)

// WrapAttr holds the horizontal and vertical wrap modes of an image block.
type WrapAttr struct {
	Width, Height WrapMode
}

// Tag returns AttrWrap.
func (*WrapAttr) Tag() iff.Tag { return AttrWrap }

// UVMapAttr names the TXUV vertex map a UV-projected block samples.
type UVMapAttr struct {
	Name string
}

// Tag returns AttrUVMap.
func (*UVMapAttr) Tag() iff.Tag { return AttrUVMap }

// AntialiasingAttr holds image antialiasing settings.
type AntialiasingAttr struct {
	Enabled  bool
	Strength float32
}

// Tag returns AttrAntialiasing.
func (*AntialiasingAttr) Tag() iff.Tag { return AttrAntialiasing }

// FunctionAttr names the algorithm of a procedural or shader block. Data is
// the plugin's opaque parameter blob.
type FunctionAttr struct {
	Algorithm string
	Data      []byte
}

// Tag returns AttrFunction.
func (*FunctionAttr) Tag() iff.Tag { return AttrFunction }

// VectorEnvelope is a vector with an optional envelope.
type VectorEnvelope struct {
	Vector   mgl32.Vec3
	Envelope uint32
}

// CoordSystem selects the space a texture mapping is expressed in.
type CoordSystem uint16

const (
	CoordsObject CoordSystem = iota
	CoordsWorld
)

// TextureMapping positions a texture in object or world space.
type TextureMapping struct {
	Center          VectorEnvelope
	Size            VectorEnvelope
	Rotation        VectorEnvelope
	ReferenceObject string
	FalloffType     uint16
	Falloff         VectorEnvelope
	Coords          CoordSystem
	Unknown         []*Unknown
}

// Tag returns AttrTextureMapping.
func (*TextureMapping) Tag() iff.Tag { return AttrTextureMapping }

// Matrix returns the transform from object (or world) space into texture
// space: translate by -Center, undo the heading/pitch/bank rotation, then
// divide by Size. Zero size components are treated as 1.
func (m *TextureMapping) Matrix() mgl32.Mat4 {
	size := m.Size.Vector
	for i := range size {
		if size[i] == 0 {
			size[i] = 1
		}
	}
	h, p, b := m.Rotation.Vector[0], m.Rotation.Vector[1], m.Rotation.Vector[2]
	rot := mgl32.HomogRotate3DY(h).Mul4(mgl32.HomogRotate3DX(p)).Mul4(mgl32.HomogRotate3DZ(b))
	c := m.Center.Vector
	return mgl32.Scale3D(1/size[0], 1/size[1], 1/size[2]).
		Mul4(rot.Transpose()).
		Mul4(mgl32.Translate3D(-c[0], -c[1], -c[2]))
}

var (
	blockHeaderAttrs map[iff.Tag]recordEntry[BlockAttr]
	blockAttrs       map[iff.Tag]recordEntry[BlockAttr]
	mappingAttrs     map[iff.Tag]recordEntry[func(*TextureMapping)]
)

func init() {
	blockHeaderAttrs = map[iff.Tag]recordEntry[BlockAttr]{
		HeaderChannel:  {"channel", decodeChannel},
		HeaderEnable:   {"enable", decodeFlag},
		HeaderOpacity:  {"opacity", decodeOpacity},
		HeaderAxis:     {"axis", decodeAxis},
		HeaderNegative: {"negative", decodeFlag},
	}
	blockAttrs = map[iff.Tag]recordEntry[BlockAttr]{
		AttrTextureMapping: {"texture-mapping", decodeTextureMapping},
		AttrProjection:     {"projection", decodeProjection},
		AttrAxis:           {"axis", decodeAxis},
		AttrImage:          {"image", decodeBlockImage},
		AttrWrap:           {"wrap", decodeWrap},
		AttrWrapWidth:      {"wrap-width", decodeBlockValue},
		AttrWrapHeight:     {"wrap-height", decodeBlockValue},
		AttrUVMap:          {"uv-map", decodeUVMap},
		AttrAntialiasing:   {"antialiasing", decodeAntialiasing},
		AttrPixelBlending:  {"pixel-blending", decodeFlag},
		AttrAmplitude:      {"amplitude", decodeBlockValue},
		AttrFunction:       {"function", decodeFunction},
	}
	vector := func(set func(*TextureMapping, VectorEnvelope)) func(*decoder, iff.Chunk) (func(*TextureMapping), error) {
		return func(_ *decoder, c iff.Chunk) (func(*TextureMapping), error) {
			v, err := decodeVectorEnvelope(c.Body)
			if err != nil {
				return nil, err
			}
			return func(m *TextureMapping) { set(m, v) }, nil
		}
	}
	mappingAttrs = map[iff.Tag]recordEntry[func(*TextureMapping)]{
		MappingCenter:    {"center", vector(func(m *TextureMapping, v VectorEnvelope) { m.Center = v })},
		MappingSize:      {"size", vector(func(m *TextureMapping, v VectorEnvelope) { m.Size = v })},
		MappingRotation:  {"rotation", vector(func(m *TextureMapping, v VectorEnvelope) { m.Rotation = v })},
		MappingReference: {"reference-object", decodeReferenceObject},
		MappingFalloff:   {"falloff", decodeFalloff},
		MappingCoords:    {"coordinate-system", decodeCoordSystem},
	}
}

// decodeBlock reads the block header sub-record (its tag is the block kind)
// followed by the flat list of block attributes.
func decodeBlock(d *decoder, c iff.Chunk) (SurfaceParam, error) {
	r := c.Body
	header, err := r.Next(iff.Short)
	if err != nil {
		return nil, iff.Within(err, "header", r.Offset())
	}
	b := &Block{Kind: header.Tag}
	ordinal, err := header.Body.S0()
	if err != nil {
		return nil, iff.Within(err, "header", header.Offset)
	}
	b.Ordinal = string(ordinal)
	b.Header, err = subRecords(d, header.Body, blockHeaderAttrs, func(u *Unknown) BlockAttr { return u })
	if err != nil {
		return nil, iff.Within(err, "header", header.Offset)
	}
	b.Attrs, err = subRecords(d, r, blockAttrs, func(u *Unknown) BlockAttr { return u })
	if err != nil {
		return nil, err
	}
	return b, nil
}

func decodeChannel(_ *decoder, c iff.Chunk) (BlockAttr, error) {
	tag, err := c.Body.ID4()
	if err != nil {
		return nil, err
	}
	ch := TextureChannel(tag)
	if !ch.valid() {
		return nil, iff.Malformed("unknown texture channel %q", tag)
	}
	return &ChannelAttr{Channel: ch}, nil
}

func decodeFlag(_ *decoder, c iff.Chunk) (BlockAttr, error) {
	v, err := c.Body.U2()
	if err != nil {
		return nil, err
	}
	return &FlagAttr{ID: c.Tag, Enabled: v&1 != 0}, nil
}

func decodeOpacity(_ *decoder, c iff.Chunk) (BlockAttr, error) {
	r := c.Body
	mode, err := r.U2()
	if err != nil {
		return nil, err
	}
	if mode > uint16(OpacityAdditive) {
		return nil, iff.Malformed("unknown opacity mode %d", mode)
	}
	a := &OpacityAttr{Mode: OpacityMode(mode)}
	if a.Value, err = r.F4(); err != nil {
		return nil, err
	}
	if a.Envelope, err = r.VX(); err != nil {
		return nil, err
	}
	return a, nil
}

func decodeAxis(_ *decoder, c iff.Chunk) (BlockAttr, error) {
	v, err := c.Body.U2()
	if err != nil {
		return nil, err
	}
	if v > uint16(AxisZ) {
		return nil, iff.Malformed("unknown axis %d", v)
	}
	return &AxisAttr{Axis: Axis(v)}, nil
}

func decodeProjection(_ *decoder, c iff.Chunk) (BlockAttr, error) {
	v, err := c.Body.U2()
	if err != nil {
		return nil, err
	}
	if v > uint16(ProjectionUV) {
		return nil, iff.Malformed("unknown projection mode %d", v)
	}
	return &ProjectionAttr{Mode: ProjectionMode(v)}, nil
}

func decodeBlockImage(_ *decoder, c iff.Chunk) (BlockAttr, error) {
	v, err := c.Body.VX()
	if err != nil {
		return nil, err
	}
	return &ImageParam{ID: c.Tag, Clip: v}, nil
}

func decodeWrap(_ *decoder, c iff.Chunk) (BlockAttr, error) {
	var modes [2]WrapMode
	for i := range modes {
		v, err := c.Body.U2()
		if err != nil {
			return nil, err
		}
		if v > uint16(WrapEdge) {
			return nil, iff.Malformed("unknown wrap mode %d", v)
		}
		modes[i] = WrapMode(v)
	}
	return &WrapAttr{Width: modes[0], Height: modes[1]}, nil
}

func decodeBlockValue(_ *decoder, c iff.Chunk) (BlockAttr, error) {
	p, err := decodeValueParam(c)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func decodeUVMap(d *decoder, c iff.Chunk) (BlockAttr, error) {
	name, err := d.str(c.Body)
	if err != nil {
		return nil, err
	}
	return &UVMapAttr{Name: name}, nil
}

func decodeAntialiasing(_ *decoder, c iff.Chunk) (BlockAttr, error) {
	flags, err := c.Body.U2()
	if err != nil {
		return nil, err
	}
	strength, err := c.Body.F4()
	if err != nil {
		return nil, err
	}
	return &AntialiasingAttr{Enabled: flags&1 != 0, Strength: strength}, nil
}

func decodeFunction(d *decoder, c iff.Chunk) (BlockAttr, error) {
	name, err := d.str(c.Body)
	if err != nil {
		return nil, err
	}
	return &FunctionAttr{Algorithm: name, Data: c.Body.Rest()}, nil
}

func decodeTextureMapping(d *decoder, c iff.Chunk) (BlockAttr, error) {
	m := &TextureMapping{Size: VectorEnvelope{Vector: mgl32.Vec3{1, 1, 1}}}
	setters, err := subRecords(d, c.Body, mappingAttrs, func(u *Unknown) func(*TextureMapping) {
		return func(m *TextureMapping) { m.Unknown = append(m.Unknown, u) }
	})
	if err != nil {
		return nil, err
	}
	for _, set := range setters {
		set(m)
	}
	return m, nil
}

func decodeVectorEnvelope(r *iff.Reader) (VectorEnvelope, error) {
	var v VectorEnvelope
	var err error
	if v.Vector, err = r.Vec12(); err != nil {
		return v, err
	}
	v.Envelope, err = r.VX()
	return v, err
}

func decodeReferenceObject(d *decoder, c iff.Chunk) (func(*TextureMapping), error) {
	name, err := d.str(c.Body)
	if err != nil {
		return nil, err
	}
	return func(m *TextureMapping) { m.ReferenceObject = name }, nil
}

func decodeFalloff(_ *decoder, c iff.Chunk) (func(*TextureMapping), error) {
	kind, err := c.Body.U2()
	if err != nil {
		return nil, err
	}
	v, err := decodeVectorEnvelope(c.Body)
	if err != nil {
		return nil, err
	}
	return func(m *TextureMapping) {
		m.FalloffType = kind
		m.Falloff = v
	}, nil
}

func decodeCoordSystem(_ *decoder, c iff.Chunk) (func(*TextureMapping), error) {
	v, err := c.Body.U2()
	if err != nil {
		return nil, err
	}
	if v > uint16(CoordsWorld) {
		return nil, iff.Malformed("unknown coordinate system %d", v)
	}
	return func(m *TextureMapping) { m.Coords = CoordSystem(v) }, nil
}
