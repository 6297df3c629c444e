package series

import (
	"sort"
	"time"
)

// Kind classifies a Location.
type Kind int

const (
	OutOfRange Kind = iota
	ExactMatch
	Bracket
)

func (k Kind) String() string {
	switch k {
	case ExactMatch:
		return "exact"
	case Bracket:
		return "bracket"
	default:
		return "out-of-range"
	}
}

// Location is where a query time falls in the series. For ExactMatch only
// Lower is meaningful; for Bracket, Lower and Upper are consecutive indices.
type Location struct {
	Kind  Kind
	Lower int
	Upper int
}

// Weight returns (t - lower) / (upper - lower) for a bracket, 0 otherwise.
func (s *Series) Weight(loc Location, t time.Time) float64 {
	if loc.Kind != Bracket {
		return 0
	}
	lo := s.snaps[loc.Lower].ValidTime()
	hi := s.snaps[loc.Upper].ValidTime()
	return float64(t.Sub(lo)) / float64(hi.Sub(lo))
}

// Locate finds the snapshot equal to t, or the pair strictly around it.
// Times before the first snapshot or at/after the last without an exact
// match are out of range.
func (s *Series) Locate(t time.Time) Location {
	// First index whose time is not before t.
	i := sort.Search(len(s.snaps), func(i int) bool {
		return !s.snaps[i].ValidTime().Before(t)
	})
	if i < len(s.snaps) && s.snaps[i].ValidTime().Equal(t) {
		return Location{Kind: ExactMatch, Lower: i, Upper: i}
	}
	if i == 0 || i == len(s.snaps) {
		return Location{Kind: OutOfRange}
	}
	return Location{Kind: Bracket, Lower: i - 1, Upper: i}
}
