package ppq

import "container/list"

// Token identifies an element previously pushed onto a Queue, so that it
// can be retracted before it is popped. A Token is only valid for the
// Queue that produced it.
type Token[V any] struct {
	priority int
	elem     *list.Element
}

// Queue is a priority-partitioned FIFO ready queue: one FIFO sub-queue per
// observed integer priority, drained according to the weighted
// round-robin sequence produced by a Generator. Queue is not safe for
// concurrent use; the scheduler that owns it runs single-threaded.
type Queue[V any] struct {
	sub      map[int]*list.List
	nonEmpty int
	size     int
	gen      *Generator
}

// New returns an empty Queue.
func New[V any]() *Queue[V] {
	return &Queue[V]{
		sub: make(map[int]*list.List),
		gen: NewGenerator(),
	}
}

// Push admits v at the given priority, returning a Token that can later be
// passed to Remove to retract v before it is popped.
func (q *Queue[V]) Push(v V, priority int) *Token[V] {
	q.gen.NotifyPriorityExists(priority)

	l, ok := q.sub[priority]
	if !ok {
		l = list.New()
		q.sub[priority] = l
	}
	if l.Len() == 0 {
		q.nonEmpty++
	}
	elem := l.PushBack(v)
	q.size++
	return &Token[V]{priority: priority, elem: elem}
}

// Remove retracts a previously pushed element identified by tok. It is a
// no-op if tok is nil. Remove exists to support the instruction merger:
// when two pending instructions are fused, the superseded instructions
// must be pulled back out of the ready queue before the fused replacement
// is admitted.
func (q *Queue[V]) Remove(tok *Token[V]) {
	if tok == nil {
		return
	}
	l, ok := q.sub[tok.priority]
	if !ok {
		return
	}
	l.Remove(tok.elem)
	q.size--
	if l.Len() == 0 {
		q.nonEmpty--
	}
}

// Pop selects the highest-priority eligible element per the generator's
// sequence and removes it from its sub-queue. It returns false if the
// queue is empty. Pop terminates because at least one sub-queue is
// non-empty whenever Empty reports false, and the generator visits every
// priority in the window within one cycle.
func (q *Queue[V]) Pop() (V, bool) {
	var zero V
	if q.nonEmpty == 0 {
		return zero, false
	}
	for {
		p := q.gen.Next()
		l, ok := q.sub[p]
		if !ok || l.Len() == 0 {
			continue
		}
		front := l.Front()
		l.Remove(front)
		q.size--
		if l.Len() == 0 {
			q.nonEmpty--
		}
		return front.Value.(V), true
	}
}

// Empty reports whether any sub-queue holds an element. It is O(1).
func (q *Queue[V]) Empty() bool {
	return q.nonEmpty == 0
}

// Len returns the total number of elements across all sub-queues.
func (q *Queue[V]) Len() int {
	return q.size
}
