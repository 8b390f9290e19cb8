package datarecording

import "github.com/sarchlab/avdcache/mem/cache"

// StatisticsTable is the table that RecordStatistics writes to.
const StatisticsTable = "cache_statistics"

// StatisticsEntry is one row of the statistics table. MissRatio is -1 when
// HasRatio is false.
type StatisticsEntry struct {
	RunID       string
	Level       string
	Reads       uint64
	ReadMisses  uint64
	Writes      uint64
	WriteMisses uint64
	Misses      uint64
	Accesses    uint64
	MissRatio   float64
	HasRatio    bool
}

// NewStatisticsEntry converts the counters of one level of a run into a row.
func NewStatisticsEntry(
	runID, level string,
	s cache.Statistics,
) StatisticsEntry {
	ratio, ok := s.MissRatio()
	if !ok {
		ratio = -1
	}

	return StatisticsEntry{
		RunID:       runID,
		Level:       level,
		Reads:       s.Reads,
		ReadMisses:  s.ReadMisses,
		Writes:      s.Writes,
		WriteMisses: s.WriteMisses,
		Misses:      s.Misses(),
		Accesses:    s.Accesses(),
		MissRatio:   ratio,
		HasRatio:    ok,
	}
}

// RecordStatistics buffers the counters of one level of a run. The table is
// created on first use.
func RecordStatistics(
	recorder DataRecorder,
	runID, level string,
	s cache.Statistics,
) {
	recorder.CreateTable(StatisticsTable, StatisticsEntry{})
	recorder.InsertData(StatisticsTable, NewStatisticsEntry(runID, level, s))
}
