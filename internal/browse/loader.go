package browse

import (
	"context"
	"errors"
	"sync"

	"github.com/noah-isme/gema-classroom/pkg/lmsclient"
)

// ErrStale indicates a response that arrived after a newer request was sent.
var ErrStale = errors.New("response superseded by a newer request")

// Loader fetches a page once per key. The key holds everything the page
// depends on, such as role, filters and page number. When requests overlap,
// only the last one dispatched is kept.
type Loader[K comparable, T any] struct {
	fetch func(context.Context, K) (T, error)
	seq   lmsclient.Sequencer

	mu     sync.Mutex
	key    K
	value  T
	loaded bool
}

// NewLoader builds a loader around fetch.
func NewLoader[K comparable, T any](fetch func(context.Context, K) (T, error)) *Loader[K, T] {
	return &Loader[K, T]{fetch: fetch}
}

// Load returns the page for key, fetching only when key differs from the last
// loaded one. A response overtaken by a later call returns ErrStale and is
// dropped.
func (l *Loader[K, T]) Load(ctx context.Context, key K) (T, error) {
	l.mu.Lock()
	if l.loaded && l.key == key {
		value := l.value
		l.mu.Unlock()
		return value, nil
	}
	l.mu.Unlock()

	seq := l.seq.Next()
	value, err := l.fetch(ctx, key)

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.seq.Latest(seq) {
		var zero T
		return zero, ErrStale
	}
	if err != nil {
		var zero T
		return zero, err
	}
	l.key = key
	l.value = value
	l.loaded = true
	return value, nil
}

// Invalidate forces the next Load to fetch, for example after a write.
func (l *Loader[K, T]) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = false
}
