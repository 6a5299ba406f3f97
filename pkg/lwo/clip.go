package lwo

import "github.com/Faultbox/lwo2mesh/pkg/iff"

// Clip sub-record tags.
const (
	ClipStill     iff.Tag = "STIL"
	ClipSequence  iff.Tag = "ISEQ"
	ClipReference iff.Tag = "XREF"
	ClipTiming    iff.Tag = "TIME"
)

// ImageClip names an external image source. The first attribute is the
// source kind (still, sequence or reference); the rest modify it.
type ImageClip struct {
	Index uint32
	Attrs []ClipAttr
}

// Tag returns TagClip.
func (*ImageClip) Tag() iff.Tag { return TagClip }

// Source returns the clip's source attribute, or nil if it has none.
func (c *ImageClip) Source() ClipAttr {
	for _, a := range c.Attrs {
		switch a.(type) {
		case *StillImage, *ImageSequence, *ClipRef:
			return a
		}
	}
	return nil
}

// ClipAttr is a sub-record of an image clip.
type ClipAttr interface {
	Tag() iff.Tag
}

// StillImage is a single image file.
type StillImage struct {
	Path string
}

// Tag returns ClipStill.
func (*StillImage) Tag() iff.Tag { return ClipStill }

// ImageSequence is a numbered series of image files named
// Prefix + zero-padded frame number + Suffix.
type ImageSequence struct {
	Digits uint8
	Flags  uint8
	Offset int16
	Start  int16
	End    int16
	Prefix string
	Suffix string
}

// Tag returns ClipSequence.
func (*ImageSequence) Tag() iff.Tag { return ClipSequence }

// Looping reports whether the sequence loops.
func (s *ImageSequence) Looping() bool { return s.Flags&1 != 0 }

// ClipRef makes a clip an instance of another clip.
type ClipRef struct {
	Index uint32
	Name  string
}

// Tag returns ClipReference.
func (*ClipRef) Tag() iff.Tag { return ClipReference }

// ClipTime holds the playback timing of an animated clip.
type ClipTime struct {
	Start     float32
	Duration  float32
	FrameRate float32
}

// Tag returns ClipTiming.
func (*ClipTime) Tag() iff.Tag { return ClipTiming }

var clipAttrs map[iff.Tag]recordEntry[ClipAttr]

func init() {
	clipAttrs = map[iff.Tag]recordEntry[ClipAttr]{
		ClipStill:     {"still", decodeStill},
		ClipSequence:  {"sequence", decodeSequence},
		ClipReference: {"reference", decodeClipRef},
		ClipTiming:    {"time", decodeClipTime},
	}
}

func decodeClip(d *decoder, c iff.Chunk) (Record, error) {
	clip := &ImageClip{}
	var err error
	if clip.Index, err = c.Body.U4(); err != nil {
		return nil, err
	}
	clip.Attrs, err = subRecords(d, c.Body, clipAttrs, func(u *Unknown) ClipAttr { return u })
	if err != nil {
		return nil, err
	}
	return clip, nil
}

func decodeStill(d *decoder, c iff.Chunk) (ClipAttr, error) {
	path, err := d.str(c.Body)
	if err != nil {
		return nil, err
	}
	return &StillImage{Path: path}, nil
}

func decodeSequence(d *decoder, c iff.Chunk) (ClipAttr, error) {
	r := c.Body
	s := &ImageSequence{}
	var err error
	if s.Digits, err = r.U1(); err != nil {
		return nil, err
	}
	if s.Flags, err = r.U1(); err != nil {
		return nil, err
	}
	if s.Offset, err = r.I2(); err != nil {
		return nil, err
	}
	if _, err = r.U2(); err != nil { // reserved
		return nil, err
	}
	if s.Start, err = r.I2(); err != nil {
		return nil, err
	}
	if s.End, err = r.I2(); err != nil {
		return nil, err
	}
	if s.Prefix, err = d.str(r); err != nil {
		return nil, err
	}
	if s.Suffix, err = d.str(r); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeClipRef(d *decoder, c iff.Chunk) (ClipAttr, error) {
	ref := &ClipRef{}
	var err error
	if ref.Index, err = c.Body.U4(); err != nil {
		return nil, err
	}
	if ref.Name, err = d.str(c.Body); err != nil {
		return nil, err
	}
	return ref, nil
}

func decodeClipTime(_ *decoder, c iff.Chunk) (ClipAttr, error) {
	t := &ClipTime{}
	var err error
	if t.Start, err = c.Body.F4(); err != nil {
		return nil, err
	}
	if t.Duration, err = c.Body.F4(); err != nil {
		return nil, err
	}
	if t.FrameRate, err = c.Body.F4(); err != nil {
		return nil, err
	}
	return t, nil
}
