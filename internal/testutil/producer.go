package testutil

import (
	"context"
	"sync"
	"sync/atomic"
)

// CountingProducer is a cache producer that records how often it runs.
//
// Values are returned in order; once exhausted the last value repeats. When
// Gate is non-nil every call blocks until the gate is closed, which lets
// tests pile up concurrent callers behind one in-flight computation.
//
// Thread-safety: all methods are safe for concurrent use.
type CountingProducer[T any] struct {
	mu     sync.Mutex
	values []T
	errs   []error
	idx    int
	calls  atomic.Int64

	// Gate, when set, blocks each call until closed.
	Gate chan struct{}

	// Started receives one signal per call once the call is running.
	Started chan struct{}
}

// NewCountingProducer creates a producer returning values in order.
func NewCountingProducer[T any](values ...T) *CountingProducer[T] {
	return &CountingProducer[T]{values: values}
}

// FailNext makes the next call return err instead of a value.
func (p *CountingProducer[T]) FailNext(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, err)
}

// Produce implements the producer signature expected by statscache.
func (p *CountingProducer[T]) Produce(ctx context.Context) (T, error) {
	p.calls.Add(1)
	if p.Started != nil {
		p.Started <- struct{}{}
	}
	if p.Gate != nil {
		<-p.Gate
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var zero T
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return zero, err
	}
	if len(p.values) == 0 {
		return zero, nil
	}
	v := p.values[p.idx]
	if p.idx < len(p.values)-1 {
		p.idx++
	}
	return v, nil
}

// Calls returns how many times Produce has been invoked.
func (p *CountingProducer[T]) Calls() int64 {
	return p.calls.Load()
}
