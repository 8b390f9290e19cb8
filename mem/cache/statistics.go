package cache

import (
	"fmt"
	"io"

	"github.com/sarchlab/avdcache/mem/mem"
)

// Statistics holds the access counters of a cache.
type Statistics struct {
	Reads       uint64 `json:"reads"`
	ReadMisses  uint64 `json:"read_misses"`
	Writes      uint64 `json:"writes"`
	WriteMisses uint64 `json:"write_misses"`
}

// Record counts one access.
func (s *Statistics) Record(accessType mem.AccessType, hit bool) {
	switch accessType {
	case mem.Read:
		s.Reads++
		if !hit {
			s.ReadMisses++
		}
	case mem.Write:
		s.Writes++
		if !hit {
			s.WriteMisses++
		}
	default:
		panic(fmt.Sprintf("unknown access type %d", int(accessType)))
	}
}

// Accesses returns the number of reads and writes.
func (s Statistics) Accesses() uint64 {
	return s.Reads + s.Writes
}

// Misses returns the number of read and write misses.
func (s Statistics) Misses() uint64 {
	return s.ReadMisses + s.WriteMisses
}

// Hits returns the number of accesses that hit.
func (s Statistics) Hits() uint64 {
	return s.Accesses() - s.Misses()
}

// MissRatio returns the percentage of accesses that missed. The ratio is
// undefined, and ok is false, when nothing has been accessed.
func (s Statistics) MissRatio() (ratio float64, ok bool) {
	accesses := s.Accesses()
	if accesses == 0 {
		return 0, false
	}

	return 100 * float64(s.Misses()) / float64(accesses), true
}

// WriteReport writes the statistics in the layout of the end-of-run report.
func WriteReport(w io.Writer, title string, s Statistics) error {
	ratio := "no accesses"
	if r, ok := s.MissRatio(); ok {
		ratio = fmt.Sprintf("%.6g%%", r)
	}

	_, err := fmt.Fprintf(w,
		"%s statistics:\n"+
			"  Writes: %d\n"+
			"  Write Misses: %d\n"+
			"  Reads: %d\n"+
			"  Read Misses: %d\n"+
			"  Misses: %d\n"+
			"  Accesses: %d\n"+
			"  Miss Ratio: %s\n",
		title,
		s.Writes, s.WriteMisses, s.Reads, s.ReadMisses,
		s.Misses(), s.Accesses(), ratio)

	return err
}
