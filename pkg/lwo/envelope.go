package lwo

import "github.com/Faultbox/lwo2mesh/pkg/iff"

// Envelope sub-record tags.
const (
	EnvelopeTypeTag iff.Tag = "TYPE"
	EnvelopePre     iff.Tag = "PRE "
	EnvelopePost    iff.Tag = "POST"
	EnvelopeKey     iff.Tag = "KEY "
	EnvelopeSpan    iff.Tag = "SPAN"
	EnvelopeName    iff.Tag = "NAME"
)

// Envelope is an animation curve referenced by index from shading values.
type Envelope struct {
	Index uint32
	Attrs []EnvelopeAttr
}

// Tag returns TagEnvelope.
func (*Envelope) Tag() iff.Tag { return TagEnvelope }

// Keys returns the envelope's keyframes in file order.
func (e *Envelope) Keys() []*Key {
	var keys []*Key
	for _, a := range e.Attrs {
		if k, ok := a.(*Key); ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// EnvelopeAttr is a sub-record of an envelope.
type EnvelopeAttr interface {
	Tag() iff.Tag
}

// UserFormat is the unit an envelope is displayed in.
type UserFormat uint8

const (
	FormatFloat    UserFormat = 2
	FormatDistance UserFormat = 3
	FormatPercent  UserFormat = 4
	FormatAngle    UserFormat = 5
)

// EnvelopeKind identifies the component of a predefined envelope triple.
type EnvelopeKind uint8

const (
	KindPositionX EnvelopeKind = iota + 1
	KindPositionY
	KindPositionZ
	KindHeading
	KindPitch
	KindBank
	KindScaleX
	KindScaleY
	KindScaleZ
	KindColorR
	KindColorG
	KindColorB
	KindFalloffX
	KindFalloffY
	KindFalloffZ
)

// EnvelopeType records the display format and component of an envelope.
type EnvelopeType struct {
	Format UserFormat
	Kind   EnvelopeKind
}

// Tag returns EnvelopeTypeTag.
func (*EnvelopeType) Tag() iff.Tag { return EnvelopeTypeTag }

// EndBehavior selects what an envelope does before its first or after its
// last key.
type EndBehavior uint16

const (
	BehaviorReset EndBehavior = iota
	BehaviorConstant
	BehaviorRepeat
	BehaviorOscillate
	BehaviorOffsetRepeat
	BehaviorLinear
)

// Behavior holds a PRE or POST end behaviour.
type Behavior struct {
	ID       iff.Tag
	Behavior EndBehavior
}

// Tag returns the attribute's code.
func (b *Behavior) Tag() iff.Tag { return b.ID }

// Key is one keyframe.
type Key struct {
	Time  float32
	Value float32
}

// Tag returns EnvelopeKey.
func (*Key) Tag() iff.Tag { return EnvelopeKey }

// Span curve kinds.
const (
	SpanTCB     iff.Tag = "TCB "
	SpanHermite iff.Tag = "HERM"
	SpanBezier  iff.Tag = "BEZI"
	SpanBezier2 iff.Tag = "BEZ2"
	SpanLinear  iff.Tag = "LINE"
	SpanStepped iff.Tag = "STEP"
)

// Span describes the curve leading into the preceding key.
type Span struct {
	Kind   iff.Tag
	Params []float32
}

// Tag returns EnvelopeSpan.
func (*Span) Tag() iff.Tag { return EnvelopeSpan }

// EnvelopeNameAttr is the envelope's display name.
type EnvelopeNameAttr struct {
	Name string
}

// Tag returns EnvelopeName.
func (*EnvelopeNameAttr) Tag() iff.Tag { return EnvelopeName }

var envelopeAttrs map[iff.Tag]recordEntry[EnvelopeAttr]

func init() {
	envelopeAttrs = map[iff.Tag]recordEntry[EnvelopeAttr]{
		EnvelopeTypeTag: {"type", decodeEnvelopeType},
		EnvelopePre:     {"pre", decodeBehavior},
		EnvelopePost:    {"post", decodeBehavior},
		EnvelopeKey:     {"key", decodeKey},
		EnvelopeSpan:    {"span", decodeSpan},
		EnvelopeName:    {"name", decodeEnvelopeName},
	}
}

func decodeEnvelope(d *decoder, c iff.Chunk) (Record, error) {
	env := &Envelope{}
	var err error
	if env.Index, err = c.Body.VX(); err != nil {
		return nil, err
	}
	env.Attrs, err = subRecords(d, c.Body, envelopeAttrs, func(u *Unknown) EnvelopeAttr { return u })
	if err != nil {
		return nil, err
	}
	return env, nil
}

func decodeEnvelopeType(_ *decoder, c iff.Chunk) (EnvelopeAttr, error) {
	format, err := c.Body.U1()
	if err != nil {
		return nil, err
	}
	kind, err := c.Body.U1()
	if err != nil {
		return nil, err
	}
	if format < uint8(FormatFloat) || format > uint8(FormatAngle) {
		return nil, iff.Malformed("unknown envelope user format %d", format)
	}
	if kind < uint8(KindPositionX) || kind > uint8(KindFalloffZ) {
		return nil, iff.Malformed("unknown envelope kind %d", kind)
	}
	return &EnvelopeType{Format: UserFormat(format), Kind: EnvelopeKind(kind)}, nil
}

func decodeBehavior(_ *decoder, c iff.Chunk) (EnvelopeAttr, error) {
	v, err := c.Body.U2()
	if err != nil {
		return nil, err
	}
	if v > uint16(BehaviorLinear) {
		return nil, iff.Malformed("unknown end behavior %d", v)
	}
	return &Behavior{ID: c.Tag, Behavior: EndBehavior(v)}, nil
}

func decodeKey(_ *decoder, c iff.Chunk) (EnvelopeAttr, error) {
	k := &Key{}
	var err error
	if k.Time, err = c.Body.F4(); err != nil {
		return nil, err
	}
	if k.Value, err = c.Body.F4(); err != nil {
		return nil, err
	}
	return k, nil
}

func decodeSpan(_ *decoder, c iff.Chunk) (EnvelopeAttr, error) {
	kind, err := c.Body.ID4()
	if err != nil {
		return nil, err
	}
	switch kind {
	case SpanTCB, SpanHermite, SpanBezier, SpanBezier2, SpanLinear, SpanStepped:
	default:
		return nil, iff.Malformed("unknown span kind %q", kind)
	}
	if c.Body.Len()%4 != 0 {
		return nil, iff.Malformed("span parameters of %d bytes", c.Body.Len())
	}
	params, err := floats(c.Body, c.Body.Len()/4)
	if err != nil {
		return nil, err
	}
	return &Span{Kind: kind, Params: params}, nil
}

func decodeEnvelopeName(d *decoder, c iff.Chunk) (EnvelopeAttr, error) {
	name, err := d.str(c.Body)
	if err != nil {
		return nil, err
	}
	return &EnvelopeNameAttr{Name: name}, nil
}
