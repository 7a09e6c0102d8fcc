package scheduler

import (
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/require"
)

func set(cs ...string) mapset.Set[string] {
	return mapset.NewThreadUnsafeSet(cs...)
}

func task(payload string, reads, writes mapset.Set[string], priority int) Task[string] {
	return Task[string]{Payload: payload, Reads: reads, Writes: writes, Priority: priority}
}

func mustDequeue(t *testing.T, q *TaskQueue[string]) Task[string] {
	t.Helper()
	tk, ok := q.Dequeue()
	require.True(t, ok, "expected a runnable task")
	return tk
}

// S1 - FIFO at equal priority, no conflicts.
func TestFIFOEqualPriorityNoConflicts(t *testing.T) {
	q := New[string]()
	require.NoError(t, q.Enqueue(task("t1", nil, nil, 0)))
	require.NoError(t, q.Enqueue(task("t2", nil, nil, 0)))

	require.Equal(t, "t1", mustDequeue(t, q).Payload)
	require.Equal(t, "t2", mustDequeue(t, q).Payload)
	require.True(t, q.IsEmpty())
}

// S2 - priority ordering.
func TestPriorityOrdering(t *testing.T) {
	q := New[string]()
	require.NoError(t, q.Enqueue(task("t1", nil, nil, 0)))
	require.NoError(t, q.Enqueue(task("t2", nil, nil, 1)))
	require.NoError(t, q.Enqueue(task("t3", nil, nil, 0)))

	first := mustDequeue(t, q)
	require.Equal(t, "t2", first.Payload, "highest priority must come first")

	rest := map[string]bool{mustDequeue(t, q).Payload.(string): true}
	rest[mustDequeue(t, q).Payload.(string)] = true
	require.True(t, rest["t1"] && rest["t3"])
}

// S3 - read-after-write ordering beats priority.
func TestReadAfterWriteOrdering(t *testing.T) {
	q := New[string]()
	require.NoError(t, q.Enqueue(task("writer", nil, set("c"), 0)))
	require.NoError(t, q.Enqueue(task("reader", set("c"), nil, 5)))

	require.Equal(t, "writer", mustDequeue(t, q).Payload)
	require.Equal(t, "reader", mustDequeue(t, q).Payload)
}

// S4 - write-after-write ordering. w2 outranks w1 on priority alone, so
// this only passes if the WAW edge from w1 to w2 is actually enforced.
func TestWriteAfterWriteOrdering(t *testing.T) {
	q := New[string]()
	require.NoError(t, q.Enqueue(task("w1", nil, set("c"), 0)))
	require.NoError(t, q.Enqueue(task("w2", nil, set("c"), 5)))
	require.NoError(t, q.Enqueue(task("r", set("c"), nil, 0)))

	require.Equal(t, "w1", mustDequeue(t, q).Payload)
	require.Equal(t, "w2", mustDequeue(t, q).Payload)
	require.Equal(t, "r", mustDequeue(t, q).Payload)
}

// S5 - independent priorities interleave, higher strictly precedes lower
// within a cycle.
func TestIndependentPrioritiesInterleave(t *testing.T) {
	q := New[string]()
	require.NoError(t, q.Enqueue(task("t1", nil, nil, 0)))
	require.NoError(t, q.Enqueue(task("t2", nil, nil, 2)))
	require.NoError(t, q.Enqueue(task("t3", nil, nil, 0)))
	require.NoError(t, q.Enqueue(task("t4", nil, nil, 2)))

	first := mustDequeue(t, q).Payload.(string)
	second := mustDequeue(t, q).Payload.(string)
	require.Contains(t, []string{"t2", "t4"}, first)
	require.Contains(t, []string{"t2", "t4"}, second)
}

func TestEmptyDequeueReturnsNone(t *testing.T) {
	q := New[string]()
	_, ok := q.Dequeue()
	require.False(t, ok)
	require.True(t, q.IsEmpty())
}

// Invariant 4: progress. Any live eligible instruction must eventually be
// returned.
func TestProgressNeverStarvesAnEligibleTask(t *testing.T) {
	q := New[string]()
	for i := 0; i < 50; i++ {
		require.NoError(t, q.Enqueue(task("t", nil, nil, i%3)))
	}
	count := 0
	for !q.IsEmpty() {
		_, ok := q.Dequeue()
		require.True(t, ok)
		count++
	}
	require.Equal(t, 50, count)
}

type concatRewriter struct{}

func (concatRewriter) IsOfInterest(t Task[string]) bool {
	return true
}

func (concatRewriter) MaybeRewrite(first, second Task[string]) (Task[string], bool) {
	merged := first.Payload.(string) + "+" + second.Payload.(string)
	return Task[string]{
		Payload:  merged,
		Reads:    first.Reads.Union(second.Reads).Difference(first.Writes),
		Writes:   first.Writes.Union(second.Writes),
		Priority: second.Priority,
	}, true
}

// S6 - merge.
func TestMergeFusesWriterAndReader(t *testing.T) {
	q := New[string]()
	q.RegisterRewriter(concatRewriter{})

	require.NoError(t, q.Enqueue(task("t1", nil, set("c"), 0)))
	require.NoError(t, q.Enqueue(task("t2", set("c"), nil, 0)))

	tk := mustDequeue(t, q)
	require.Equal(t, "t1+t2", tk.Payload)

	_, ok := q.Dequeue()
	require.False(t, ok)
}

func TestMergeDoesNotFireWhenRewriterDeclines(t *testing.T) {
	q := New[string]()
	q.RegisterRewriter(declineRewriter{})

	require.NoError(t, q.Enqueue(task("t1", nil, set("c"), 0)))
	require.NoError(t, q.Enqueue(task("t2", set("c"), nil, 0)))

	require.Equal(t, "t1", mustDequeue(t, q).Payload)
	require.Equal(t, "t2", mustDequeue(t, q).Payload)
}

type declineRewriter struct{}

func (declineRewriter) IsOfInterest(Task[string]) bool { return true }
func (declineRewriter) MaybeRewrite(first, second Task[string]) (Task[string], bool) {
	return Task[string]{}, false
}

// A merged instruction must inherit the union of its inputs' ancestors so
// that a pending dependency of either input still blocks it (open question
// #1: union, never drop, the ancestor edges).
func TestMergeInheritsUnionOfAncestors(t *testing.T) {
	q := New[string]()

	require.NoError(t, q.Enqueue(task("blocker", nil, set("b"), 0)))
	// Registered after blocker, so blocker is outside the rewriter's
	// interest set and only t1 and t2 can be fused.
	q.RegisterRewriter(concatRewriter{})
	require.NoError(t, q.Enqueue(task("t1", set("b"), set("c"), 0)))
	require.NoError(t, q.Enqueue(task("t2", set("c"), nil, 0)))

	// t1 depends on blocker, so the merged t1+t2 must too: blocker first.
	require.Equal(t, "blocker", mustDequeue(t, q).Payload)
	require.Equal(t, "t1+t2", mustDequeue(t, q).Payload)
	_, ok := q.Dequeue()
	require.False(t, ok)
}

func TestRecentlyCompletedTracksDequeues(t *testing.T) {
	q := New[string](WithAuditCacheSize[string](2))
	require.NoError(t, q.Enqueue(task("t1", nil, nil, 0)))
	require.NoError(t, q.Enqueue(task("t2", nil, nil, 0)))
	require.NoError(t, q.Enqueue(task("t3", nil, nil, 0)))

	mustDequeue(t, q)
	mustDequeue(t, q)
	mustDequeue(t, q)

	require.Len(t, q.RecentlyCompleted(), 2)
}
