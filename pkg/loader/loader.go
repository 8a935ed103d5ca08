package loader

import (
	"context"
	"sync"
)

// BatchFunc resolves a set of distinct keys in one bulk lookup. Keys with no
// backing row are simply absent from the returned map. It runs while the
// loader's lock is held and must not call back into the same loader, a
// re-entrant Load or Prime deadlocks.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Thunk returns the value for one requested key, forcing the pending batch on
// first use.
type Thunk[V any] func() (V, error)

// Loader coalesces individual Load calls into bulk lookups and caches the
// results for its lifetime. A Loader lives for a single request and must not
// be shared across requests, otherwise one user's cache leaks into another's.
type Loader[K comparable, V any] struct {
	batch BatchFunc[K, V]

	mu      sync.Mutex
	pending []K
	queued  map[K]bool
	results map[K]result[V]
}

type result[V any] struct {
	value V
	err   error
}

func New[K comparable, V any](batch BatchFunc[K, V]) *Loader[K, V] {
	return &Loader[K, V]{
		batch:   batch,
		queued:  make(map[K]bool),
		results: make(map[K]result[V]),
	}
}

// Load enqueues key and returns a thunk. Everything enqueued before the first
// thunk of the batch runs is resolved by exactly one call to the batch
// function. A key with no match resolves to the zero value and a nil error; a
// failed batch delivers its error to every caller of that batch.
func (l *Loader[K, V]) Load(ctx context.Context, key K) Thunk[V] {
	l.enqueue(key)

	return func() (V, error) {
		return l.resolve(ctx, key)
	}
}

// Prime enqueues keys without demanding their values yet, so later Load calls
// for the same keys join one batch. List resolvers use it to announce every
// key of a page up front.
func (l *Loader[K, V]) Prime(keys ...K) {
	for _, key := range keys {
		l.enqueue(key)
	}
}

func (l *Loader[K, V]) enqueue(key K) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, done := l.results[key]; done || l.queued[key] {
		return
	}

	l.queued[key] = true
	l.pending = append(l.pending, key)
}

func (l *Loader[K, V]) resolve(ctx context.Context, key K) (V, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if res, done := l.results[key]; done {
		return res.value, res.err
	}

	keys := l.pending
	l.pending = nil

	values, err := l.batch(ctx, keys)
	for _, k := range keys {
		delete(l.queued, k)
		if err != nil {
			var zero V
			l.results[k] = result[V]{value: zero, err: err}
			continue
		}
		l.results[k] = result[V]{value: values[k]}
	}

	res := l.results[key]
	return res.value, res.err
}
