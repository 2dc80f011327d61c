package pipeline

import "time"

// RunStats tracks aggregate counters and byte totals across a batch run.
type RunStats struct {
	BatchID       string
	Total         int
	Converted     int
	Failed        int
	Skipped       int
	Deleted       int
	Quarantined   int
	CleanupErrors int
	InputBytes    int64 // Sources of converted tasks.
	OutputBytes   int64 // Outputs of converted tasks.
	Elapsed       time.Duration
}

// OK reports whether every discovered file converted and cleanup had no
// errors.
func (s *RunStats) OK() bool {
	return s.Failed == 0 && s.Skipped == 0 && s.CleanupErrors == 0
}

// SizeDelta returns output minus input bytes. DDS -> PNG normally grows.
func (s *RunStats) SizeDelta() int64 {
	return s.OutputBytes - s.InputBytes
}
