package mesh

import (
	"strings"

	"github.com/pkg/errors"
)

// Winding selects the vertex order of emitted triangles.
type Winding int

const (
	// WindingPreserve keeps the stored polygon order: (p0, pi, pi+1).
	// Triangles stay clockwise when seen from the front, as LightWave
	// stores them.
	WindingPreserve Winding = iota
	// WindingReverse flips every triangle: (p0, pi+1, pi), for consumers
	// that treat counter-clockwise as front facing.
	WindingReverse
)

// String returns the configuration name of w.
func (w Winding) String() string {
	if w == WindingReverse {
		return "reverse"
	}
	return "preserve"
}

// ParseWinding parses "preserve" (or "") and "reverse".
func ParseWinding(s string) (Winding, error) {
	switch strings.ToLower(s) {
	case "", "preserve":
		return WindingPreserve, nil
	case "reverse":
		return WindingReverse, nil
	}
	return 0, errors.Errorf("unknown winding %q", s)
}

// fan decomposes a convex polygon into len(points)-2 triangles sharing
// points[0], calling emit once per triangle.
func fan(points []uint32, w Winding, emit func(a, b, c uint32)) {
	for i := 1; i+1 < len(points); i++ {
		if w == WindingReverse {
			emit(points[0], points[i+1], points[i])
		} else {
			emit(points[0], points[i], points[i+1])
		}
	}
}
