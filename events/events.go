// Package events provides the bounded publish/subscribe primitives used to
// hand client events to a presentation layer.
//
// Publishing never blocks: a subscriber that does not keep up loses the
// oldest items of its buffer instead of stalling the publisher.
package events

import (
	"sync"

	"git.sr.ht/~kx/kxirc/metrics"
)

// Feed broadcasts every published item to all current subscribers, each
// through its own buffer of fixed size.
type Feed[T any] struct {
	name string
	size int

	mu     sync.Mutex
	subs   map[chan T]struct{}
	closed bool
}

// NewFeed returns a feed whose subscribers buffer up to size items. The name
// labels dropped-item metrics.
func NewFeed[T any](name string, size int) *Feed[T] {
	if size < 1 {
		size = 1
	}
	return &Feed[T]{
		name: name,
		size: size,
		subs: map[chan T]struct{}{},
	}
}

// Subscribe returns a channel receiving items published from now on, and a
// function to stop receiving them. The channel is closed by either cancel or
// Close.
func (f *Feed[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, f.size)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	f.subs[ch] = struct{}{}

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[ch]; ok {
			delete(f.subs, ch)
			close(ch)
		}
	}
}

// Publish hands v to every subscriber, dropping the oldest buffered item of
// those whose buffer is full.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for ch := range f.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		select {
		case <-ch:
			metrics.FeedDrops.WithLabelValues(f.name).Inc()
		default:
		}
		select {
		case ch <- v:
		default:
			// the subscriber drained and refilled concurrently; v is the
			// item lost.
			metrics.FeedDrops.WithLabelValues(f.name).Inc()
		}
	}
}

// Close closes every subscriber channel. Later publications are discarded
// and later subscriptions receive a closed channel.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for ch := range f.subs {
		close(ch)
	}
	f.subs = nil
}

// Value holds a single current value. Subscribers only ever see the latest
// one: intermediate values set while they were not reading are skipped.
type Value[T any] struct {
	mu     sync.Mutex
	v      T
	subs   map[chan T]struct{}
	closed bool
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		v:    initial,
		subs: map[chan T]struct{}{},
	}
}

// Get returns the current value.
func (s *Value[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v
}

// Set replaces the current value and notifies subscribers.
func (s *Value[T]) Set(v T) {
	s.Update(func(T) (T, bool) {
		return v, true
	})
}

// Update atomically replaces the current value by fn's result if fn
// returns true, and reports whether it did.
func (s *Value[T]) Update(fn func(old T) (T, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := fn(s.v)
	if !ok {
		return false
	}
	s.v = v
	if s.closed {
		return true
	}
	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
	return true
}

// Subscribe returns a channel that immediately holds the current value and
// then receives each new one, and a function to unsubscribe.
func (s *Value[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	ch <- s.v
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

// Close closes every subscriber channel. The value can still be read and
// updated.
func (s *Value[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}
