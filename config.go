package fts

import "time"

// Config holds the tunables documented in spec.md §6. All fields have
// sane defaults via DefaultConfig; the zero value of Config is not
// meant to be used directly.
type Config struct {
	SegmentMaxBytes   int64         // seal threshold for a segment's data file
	FlushBytes        int           // buffer flush threshold (bytes)
	FlushInterval     time.Duration // buffer age flush threshold
	MergeDeletedRatio float64       // segment compaction trigger
	BM25K1            float64
	BM25B             float64
	TopK              int
}

// DefaultConfig returns the configuration spec.md documents as default.
func DefaultConfig() Config {
	return Config{
		SegmentMaxBytes:   50 << 20,
		FlushBytes:        1 << 20,
		FlushInterval:     5 * time.Second,
		MergeDeletedRatio: 0.30,
		BM25K1:            1.2,
		BM25B:             0.75,
		TopK:              10,
	}
}
