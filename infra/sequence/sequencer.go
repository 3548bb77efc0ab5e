package sequence

import "sync/atomic"

// Sequencer generates strictly monotonic sequence numbers. It is explicit
// per-instance state: independent engines carry independent sequencers, so
// books stay isolated and replay is deterministic.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer. Fresh start uses 0; after journal replay the
// caller resumes from the last replayed sequence.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset sets the sequencer. Only used after replay or snapshot restore.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}
