package lmsclient

import "sync/atomic"

// Sequencer tags outgoing requests so that only the most recently dispatched
// one is applied. Callers take a number with Next before sending and check
// Latest when the response arrives.
type Sequencer struct {
	latest atomic.Uint64
}

// Next returns a new sequence number, superseding every earlier one.
func (s *Sequencer) Next() uint64 {
	return s.latest.Add(1)
}

// Latest reports whether seq is still the most recent number handed out.
func (s *Sequencer) Latest(seq uint64) bool {
	return s.latest.Load() == seq
}
