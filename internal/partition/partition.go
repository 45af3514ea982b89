package partition

import (
	"hash/fnv"
)

// Lanes routes entries into a fixed number of ordered lanes by key.
// Entries sharing a key always land in the same lane, in insertion order.
// Lanes is not safe for concurrent use.
type Lanes[T any] struct {
	lanes [][]T
}

// New returns Lanes with n lanes; n below one is treated as one.
func New[T any](n int) *Lanes[T] {
	if n < 1 {
		n = 1
	}
	return &Lanes[T]{lanes: make([][]T, n)}
}

// Index returns the lane a key is routed to.
func (l *Lanes[T]) Index(key string) int {
	if len(l.lanes) == 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(l.lanes)))
}

func (l *Lanes[T]) Add(key string, e T) {
	i := l.Index(key)
	l.lanes[i] = append(l.lanes[i], e)
}

// Drain returns the non-empty lanes and clears them.
func (l *Lanes[T]) Drain() [][]T {
	out := make([][]T, 0, len(l.lanes))
	for i, es := range l.lanes {
		if len(es) > 0 {
			out = append(out, es)
		}
		l.lanes[i] = nil
	}
	return out
}
