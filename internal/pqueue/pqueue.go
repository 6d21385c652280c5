// Package pqueue provides a generic binary-heap priority queue.
//
// The ordering is injected at construction time, so the same structure
// serves as a max-queue or a min-queue:
//
//	creditors := pqueue.New(func(a, b Party) bool { return a.Balance > b.Balance })
//	debtors := pqueue.New(func(a, b Party) bool { return a.Balance < b.Balance })
package pqueue

// Queue is a binary heap over a resizable slice, 0-indexed, with the parent
// of i at (i-1)/2 and its children at 2i+1 and 2i+2.
// The zero value is not usable; construct with New.
type Queue[T any] struct {
	items  []T
	before func(a, b T) bool
}

// New creates an empty queue. before must be a strict ordering: it reports
// whether a is more extreme than b and returns false for equal entries.
func New[T any](before func(a, b T) bool) *Queue[T] {
	return &Queue[T]{before: before}
}

// Insert adds an entry and restores heap order in O(log n).
func (q *Queue[T]) Insert(entry T) {
	q.items = append(q.items, entry)
	q.bubbleUp(len(q.items) - 1)
}

// Extract removes and returns the most extreme entry. On an empty queue it
// returns the zero value and false.
func (q *Queue[T]) Extract() (T, bool) {
	var zero T
	n := len(q.items)
	if n == 0 {
		return zero, false
	}

	top := q.items[0]
	last := n - 1
	q.items[0] = q.items[last]
	q.items[last] = zero // drop the reference held by the backing array
	q.items = q.items[:last]
	if last > 0 {
		q.bubbleDown(0)
	}
	return top, true
}

// Peek returns the most extreme entry without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

// IsEmpty reports whether the queue holds no entries.
func (q *Queue[T]) IsEmpty() bool {
	return len(q.items) == 0
}

// Len returns the number of entries.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

func (q *Queue[T]) bubbleUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.before(q.items[i], q.items[parent]) {
			return
		}
		q.items[i], q.items[parent] = q.items[parent], q.items[i]
		i = parent
	}
}

// bubbleDown sinks the entry at i. On a tie between the two children the
// left one wins: the right child is only adopted when strictly more extreme.
func (q *Queue[T]) bubbleDown(i int) {
	n := len(q.items)
	for {
		left, right := 2*i+1, 2*i+2
		pick := i

		if left < n && q.before(q.items[left], q.items[pick]) {
			pick = left
		}
		if right < n && q.before(q.items[right], q.items[pick]) {
			pick = right
		}
		if pick == i {
			return
		}

		q.items[i], q.items[pick] = q.items[pick], q.items[i]
		i = pick
	}
}
