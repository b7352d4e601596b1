package selection

import "container/heap"

// BoundedQueue keeps the k best items pushed into it according to better.
// Pushing is O(log k); the worst retained item sits at the heap root so it
// can be evicted in place.
type BoundedQueue[T any] struct {
	k      int
	better func(a, b T) bool
	h      *worstFirst[T]
}

// NewBoundedQueue returns a queue retaining at most k items. better(a, b)
// reports whether a ranks strictly ahead of b and must define a total order
// for results to be deterministic.
func NewBoundedQueue[T any](k int, better func(a, b T) bool) *BoundedQueue[T] {
	return &BoundedQueue[T]{k: k, better: better, h: &worstFirst[T]{better: better}}
}

// Push offers v to the queue. It returns false when v was not retained.
func (q *BoundedQueue[T]) Push(v T) bool {
	if q.k <= 0 {
		return false
	}
	if q.h.Len() < q.k {
		heap.Push(q.h, v)
		return true
	}
	if !q.better(v, q.h.items[0]) {
		return false
	}
	q.h.items[0] = v
	heap.Fix(q.h, 0)
	return true
}

// Len returns the number of retained items.
func (q *BoundedQueue[T]) Len() int { return q.h.Len() }

// Drain removes every item and returns them best first.
func (q *BoundedQueue[T]) Drain() []T {
	out := make([]T, q.h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(q.h).(T)
	}
	return out
}

type worstFirst[T any] struct {
	items  []T
	better func(a, b T) bool
}

func (w worstFirst[T]) Len() int           { return len(w.items) }
func (w worstFirst[T]) Less(i, j int) bool { return w.better(w.items[j], w.items[i]) }
func (w worstFirst[T]) Swap(i, j int)      { w.items[i], w.items[j] = w.items[j], w.items[i] }

func (w *worstFirst[T]) Push(x any) { w.items = append(w.items, x.(T)) }

func (w *worstFirst[T]) Pop() any {
	old := w.items
	n := len(old)
	v := old[n-1]
	w.items = old[:n-1]
	return v
}
