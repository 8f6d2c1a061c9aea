package transformer

import "sync/atomic"

// Stats holds cross-goroutine counters updated by the transform stages.
// All fields are updated atomically; a single Stats value is shared by the
// expander workers of a run and read by the coordinator for the end-of-run
// summary.
type Stats struct {
	Referenced  atomic.Int64 // referenced records considered for expansion
	Unavailable atomic.Int64 // references that were stubs only (not hydrated)
	Retweets    atomic.Int64 // records carrying a retweeted reference
	Quotes      atomic.Int64 // records carrying a quoted reference
	Replies     atomic.Int64 // records that are replies
}

var noStats Stats

// stats returns the expander's Stats sink, or a shared discard sink when
// none was configured.
func (e *Expander) stats() *Stats {
	if e.Stats != nil {
		return e.Stats
	}
	return &noStats
}
