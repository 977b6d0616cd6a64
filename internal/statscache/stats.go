package statscache

// Stats is a snapshot of one cache's counters.
//
//	Hits      reads served from a fresh entry
//	Misses    reads that found the entry empty or expired
//	Refreshes successful producer calls
//	Failures  producer calls that returned an error
//
// Misses exceed Refreshes + Failures when concurrent readers shared a flight.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Refreshes uint64 `json:"refreshes"`
	Failures  uint64 `json:"failures"`
}

// HitRatio returns Hits / (Hits + Misses), or 0 before any read.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
