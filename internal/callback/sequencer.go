package callback

import "sync/atomic"

// Sequencer hands out strictly increasing sequence numbers.
//
// Producers use one Sequencer per listener (or one shared across listeners;
// either satisfies the ordering precondition) to build callback ID runs that
// never overlap. Safe for concurrent use.
type Sequencer struct {
	seq atomic.Int64
}

// NewSequencer creates a sequencer whose first Next returns 1.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// NewSequencerAt creates a sequencer that resumes after start.
func NewSequencerAt(start int64) *Sequencer {
	s := &Sequencer{}
	s.seq.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequencer) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last sequence number handed out.
func (s *Sequencer) Current() int64 {
	return s.seq.Load()
}

// Run reserves n consecutive sequence numbers and returns them as IDs of
// the given kind.
func (s *Sequencer) Run(n int, kind Kind) IDs {
	if n <= 0 {
		return nil
	}
	last := s.seq.Add(int64(n))
	ids := make(IDs, n)
	for i := range ids {
		ids[i] = ID{Seq: last - int64(n-1-i), Kind: kind}
	}
	return ids
}
