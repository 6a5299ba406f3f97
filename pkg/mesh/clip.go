package mesh

import (
	"fmt"

	"github.com/Faultbox/lwo2mesh/pkg/encoding"
	"github.com/Faultbox/lwo2mesh/pkg/iff"
	"github.com/Faultbox/lwo2mesh/pkg/lwo"
)

// maxClipRefDepth bounds cross-reference chains between clips.
const maxClipRefDepth = 8

// Clip is an image clip resolved to the external paths it names. Image data
// is never opened.
type Clip struct {
	ID uint32
	// Paths holds one entry for a still image and one per frame for a
	// sequence, with separators normalised to "/".
	Paths []string
	// Sequence is true for animated clips.
	Sequence  bool
	Looping   bool
	FrameRate float32
	// Ref is the id of the clip this one instances, or 0.
	Ref uint32
}

// resolveClips resolves every clip definition. Failures are located with
// offsets, which may be nil.
func resolveClips(defs []*lwo.ImageClip, offsets map[lwo.Record]int64) (map[uint32]*Clip, error) {
	byID := make(map[uint32]*lwo.ImageClip, len(defs))
	for _, def := range defs {
		byID[def.Index] = def
	}
	clips := make(map[uint32]*Clip, len(defs))
	for _, def := range defs {
		c, err := resolveClip(def, byID, 0)
		if err != nil {
			return nil, iff.Within(err, lwo.RecordName(lwo.TagClip), offsets[def])
		}
		clips[def.Index] = c
	}
	return clips, nil
}

func resolveClip(def *lwo.ImageClip, byID map[uint32]*lwo.ImageClip, depth int) (*Clip, error) {
	c := &Clip{ID: def.Index}
	for _, a := range def.Attrs {
		if t, ok := a.(*lwo.ClipTime); ok {
			c.FrameRate = t.FrameRate
		}
	}
	switch src := def.Source().(type) {
	case *lwo.StillImage:
		c.Paths = []string{encoding.NormalizePath(src.Path)}
	case *lwo.ImageSequence:
		c.Sequence = true
		c.Looping = src.Looping()
		prefix := encoding.NormalizePath(src.Prefix)
		for i := src.Start; i < src.End; i++ {
			c.Paths = append(c.Paths, fmt.Sprintf("%s%0*d%s", prefix, int(src.Digits), i, src.Suffix))
		}
	case *lwo.ClipRef:
		if depth >= maxClipRefDepth {
			return nil, iff.Malformed("clip %d: reference chain deeper than %d", def.Index, maxClipRefDepth)
		}
		target, ok := byID[src.Index]
		if !ok {
			return nil, iff.Unresolved("clip %d references undefined clip %d", def.Index, src.Index)
		}
		ref, err := resolveClip(target, byID, depth+1)
		if err != nil {
			return nil, err
		}
		c.Ref = src.Index
		c.Paths = ref.Paths
		c.Sequence = ref.Sequence
		c.Looping = ref.Looping
		if c.FrameRate == 0 {
			c.FrameRate = ref.FrameRate
		}
	}
	return c, nil
}
