package docstore

import "sync"

// Subscription is a latest-wins stream: a slow reader only ever sees the
// newest undelivered value. C is closed after Close.
type Subscription[T any] struct {
	ch chan T

	mu      sync.Mutex
	closed  bool
	onClose func()
}

func NewSubscription[T any](onClose func()) *Subscription[T] {
	return &Subscription[T]{ch: make(chan T, 1), onClose: onClose}
}

func (s *Subscription[T]) C() <-chan T { return s.ch }

// Offer never blocks. It replaces any value the reader has not taken yet.
func (s *Subscription[T]) Offer(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- v:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- v:
	default:
	}
}

func (s *Subscription[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	fn := s.onClose
	s.onClose = nil
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Subscription[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
