package services

import "yuva/server/internal/db"

// subscriptionSlot holds a view's single live subscription. Each begin starts
// a new generation; callbacks tagged with an older generation are stale and
// must be dropped. Callers hold the view's mutex around every method.
type subscriptionSlot struct {
	gen   uint64
	sub   db.Subscription
	ready chan struct{}
}

// begin starts a new generation and hands back the subscription it replaces.
func (s *subscriptionSlot) begin() (uint64, db.Subscription) {
	s.gen++
	prev := s.sub
	s.sub = nil
	s.ready = make(chan struct{})
	return s.gen, prev
}

// attach records sub for gen. It reports false when gen is already stale,
// in which case the caller cancels sub itself.
func (s *subscriptionSlot) attach(gen uint64, sub db.Subscription) bool {
	if gen != s.gen {
		return false
	}
	s.sub = sub
	return true
}

func (s *subscriptionSlot) current(gen uint64) bool {
	return gen == s.gen
}

// markReady closes the ready channel of the current generation once.
func (s *subscriptionSlot) markReady() {
	if s.ready == nil {
		return
	}
	select {
	case <-s.ready:
	default:
		close(s.ready)
	}
}

// end invalidates the current generation and returns its subscription.
func (s *subscriptionSlot) end() db.Subscription {
	s.gen++
	prev := s.sub
	s.sub = nil
	return prev
}
