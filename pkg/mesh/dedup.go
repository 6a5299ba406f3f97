package mesh

import (
	"encoding/binary"
	"math"
)

// vertexIndex maps a full vertex attribute tuple to its output slot. Keys
// compare float bits, so two values are the same vertex only if they are
// bit-identical.
type vertexIndex struct {
	slots map[string]uint32
	key   []byte
}

func newVertexIndex() *vertexIndex {
	return &vertexIndex{slots: make(map[string]uint32)}
}

// slot returns the output index for the tuple. If the tuple is new, next is
// recorded as its slot and added is true.
func (vi *vertexIndex) slot(point uint32, material uint16, uv []UVSet, weight float32, next uint32) (idx uint32, added bool) {
	k := vi.key[:0]
	k = binary.BigEndian.AppendUint32(k, point)
	k = binary.BigEndian.AppendUint16(k, material)
	for _, set := range uv {
		if !set.Valid {
			k = append(k, 0)
			continue
		}
		k = append(k, 1)
		k = binary.BigEndian.AppendUint32(k, math.Float32bits(set.Coord[0]))
		k = binary.BigEndian.AppendUint32(k, math.Float32bits(set.Coord[1]))
	}
	k = binary.BigEndian.AppendUint32(k, math.Float32bits(weight))
	vi.key = k

	if idx, ok := vi.slots[string(k)]; ok {
		return idx, false
	}
	vi.slots[string(k)] = next
	return next, true
}

// Len returns the number of distinct tuples seen.
func (vi *vertexIndex) Len() int {
	return len(vi.slots)
}
