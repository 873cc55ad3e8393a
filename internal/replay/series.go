// Package replay implements the race replay engine: a virtual clock over
// recorded GPS positions, a derived event timeline, and live score
// evaluation. The engine is passive and single-threaded; the caller drives
// it with Tick and control calls, serialized externally.
package replay

import "sort"

// Sample is one recorded position for one entity.
type Sample struct {
	T   float64
	Lat float64
	Lon float64
}

// Position is a point returned by interpolated lookup.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FramePosition is one entity's position within a frame.
type FramePosition struct {
	Entity int     `json:"r"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// Frame is the wire/load form: all positions sampled at one timestamp.
// The store re-indexes frames per entity at construction; frames are not
// retained.
type Frame struct {
	T         float64         `json:"t"`
	Positions []FramePosition `json:"p"`
}

// Store holds per-entity time-ascending position series and answers
// point-in-time interpolated lookups.
type Store struct {
	series map[int][]Sample
}

// NewStore re-indexes the given frames into per-entity series. Frames are
// expected in ascending time order (the exporter guarantees it); the series
// are sorted anyway so an unordered file still loads correctly.
func NewStore(frames []Frame) *Store {
	s := &Store{series: make(map[int][]Sample)}
	for _, f := range frames {
		for _, p := range f.Positions {
			s.series[p.Entity] = append(s.series[p.Entity], Sample{T: f.T, Lat: p.Lat, Lon: p.Lon})
		}
	}
	for id, samples := range s.series {
		sort.SliceStable(samples, func(i, j int) bool { return samples[i].T < samples[j].T })
		s.series[id] = samples
	}
	return s
}

// Entities returns the IDs of all entities with at least one sample, in
// ascending order.
func (s *Store) Entities() []int {
	ids := make([]int, 0, len(s.series))
	for id := range s.series {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// FirstSampleTime returns the time of the entity's earliest sample.
func (s *Store) FirstSampleTime(entity int) (float64, bool) {
	samples := s.series[entity]
	if len(samples) == 0 {
		return 0, false
	}
	return samples[0].T, true
}

// At returns the entity's interpolated position at time t. The second
// return is false when the entity has no samples yet (unknown entity, or t
// before its first sample). At or after the last sample the last position
// is returned unchanged; there is no extrapolation.
func (s *Store) At(entity int, t float64) (Position, bool) {
	samples := s.series[entity]
	if len(samples) == 0 || t < samples[0].T {
		return Position{}, false
	}
	last := samples[len(samples)-1]
	if t >= last.T {
		return Position{Lat: last.Lat, Lon: last.Lon}, true
	}

	// First index with samples[i].T > t; the bracket is (i-1, i).
	i := sort.Search(len(samples), func(i int) bool { return samples[i].T > t })
	p1, p2 := samples[i-1], samples[i]
	if p2.T == p1.T {
		// Duplicate timestamps: short-circuit to the earlier sample.
		return Position{Lat: p1.Lat, Lon: p1.Lon}, true
	}
	frac := (t - p1.T) / (p2.T - p1.T)
	return Position{
		Lat: p1.Lat + (p2.Lat-p1.Lat)*frac,
		Lon: p1.Lon + (p2.Lon-p1.Lon)*frac,
	}, true
}
