package store

// Stats is a snapshot of a Store's counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

// Requests is the number of lookups, hits plus misses.
func (s Stats) Requests() uint64 {
	return s.Hits + s.Misses
}

// HitRate is the share of lookups that hit. It is 1 when there were none.
func (s Stats) HitRate() float64 {
	req := s.Requests()
	if req == 0 {
		return 1
	}
	return float64(s.Hits) / float64(req)
}

// MissRate is the share of lookups that missed. It is 0 when there were none.
func (s Stats) MissRate() float64 {
	req := s.Requests()
	if req == 0 {
		return 0
	}
	return float64(s.Misses) / float64(req)
}
