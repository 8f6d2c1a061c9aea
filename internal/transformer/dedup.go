package transformer

import (
	"errors"

	"github.com/zeebo/xxh3"
)

// ErrSeenLimit is returned by SeenSet.Mark when the configured identifier
// bound is exceeded. The run fails rather than silently dropping dedup
// coverage.
var ErrSeenLimit = errors.New("transformer: seen-identifier set exceeded configured limit")

// SeenSet tracks which primary-row identifiers have already been emitted in
// this run. Identifiers are stored as 64-bit xxh3 hashes, bounding the cost
// to 8 bytes per distinct id; for very large, highly duplicated inputs this
// set is the run's dominant memory cost. The set is run-scoped: created at
// run start, discarded at run end, never persisted.
//
// SeenSet is not safe for concurrent use; the coordinator applies Mark in
// input order on a single goroutine, which also keeps dedup deterministic.
type SeenSet struct {
	ids   map[uint64]struct{}
	limit int
}

// NewSeenSet creates an empty set. limit bounds the number of distinct
// identifiers (0 means unbounded).
func NewSeenSet(limit int) *SeenSet {
	return &SeenSet{ids: make(map[uint64]struct{}), limit: limit}
}

// Mark records the identifier and reports whether it was already present.
// Marking is idempotent and monotonic: once an identifier is marked it
// stays marked for the rest of the run.
func (s *SeenSet) Mark(id string) (dup bool, err error) {
	h := xxh3.HashString(id)
	if _, ok := s.ids[h]; ok {
		return true, nil
	}
	if s.limit > 0 && len(s.ids) >= s.limit {
		return false, ErrSeenLimit
	}
	s.ids[h] = struct{}{}
	return false, nil
}

// Len reports the number of distinct identifiers marked so far.
func (s *SeenSet) Len() int {
	return len(s.ids)
}
