package scope

import "sync/atomic"

// Sampler selects one in Rate events for logging.
//
// It uses a shared atomic counter with modulo selection, so concurrent
// scopes of the same Elider spread the sampled events between them without
// a random number generator.
//
// Thread Safety: All methods are safe for concurrent calls.
type Sampler struct {
	rate uint64
	pos  atomic.Uint64

	total   atomic.Uint64
	sampled atomic.Uint64
}

// SamplerStats is a snapshot of sampler counters.
type SamplerStats struct {
	Total   uint64
	Sampled uint64
	Skipped uint64
}

// NewSampler returns a sampler selecting one in rate events. A rate of 0
// or 1 selects every event.
func NewSampler(rate uint64) *Sampler {
	if rate == 0 {
		rate = 1
	}
	return &Sampler{rate: rate}
}

// ShouldSample reports whether the current event should be logged.
func (s *Sampler) ShouldSample() bool {
	s.total.Add(1)
	if s.rate > 1 && s.pos.Add(1)%s.rate != 0 {
		return false
	}
	s.sampled.Add(1)
	return true
}

// Rate returns the effective sampling rate.
func (s *Sampler) Rate() uint64 {
	return s.rate
}

// Stats returns a copy of the sampler counters.
func (s *Sampler) Stats() SamplerStats {
	// Load sampled first: every sampled event bumped total before it.
	sampled := s.sampled.Load()
	total := s.total.Load()
	return SamplerStats{
		Total:   total,
		Sampled: sampled,
		Skipped: total - sampled,
	}
}
