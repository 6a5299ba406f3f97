package pipeline

// Summary aggregates the results of a batch.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Layers    int
	Surfaces  int
	Triangles int
	// Incomplete sums the incomplete attribute counts of every surface.
	Incomplete int
	// Unknown counts top-level records that were not modelled.
	Unknown int
}

// Summarize aggregates results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Err != nil || r.Model == nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.Unknown += len(r.Model.Unknown)
		for _, l := range r.Model.Layers {
			s.Layers++
			for _, surf := range l.Surfaces {
				s.Surfaces++
				s.Triangles += surf.TriangleCount()
				for _, n := range surf.Incomplete {
					s.Incomplete += n
				}
			}
		}
	}
	return s
}
