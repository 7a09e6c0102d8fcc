package scheduler

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/log"

	"github.com/unshacled/editor/common/ppq"
)

// ppqToken is the ready-queue admission token for an instruction, typed to
// the instruction pointer it guards so Remove can retract exactly the
// element that was pushed.
type ppqToken[C comparable] = ppq.Token[*instruction[C]]

// TaskQueue is the top-level scheduler. It owns every live instruction,
// the latest-writer map used to derive dependency edges, the ready queue,
// and the instruction merger. A TaskQueue is not safe for concurrent use;
// it is designed to be driven from a single consumer goroutine per the
// scheduler's cooperative, single-threaded model.
type TaskQueue[C comparable] struct {
	nextID       instructionID
	instructions map[instructionID]*instruction[C]
	latestWriter map[C]instructionID

	ready  *ppq.Queue[*instruction[C]]
	merger *merger[C]

	audit *completionAudit
}

// Option configures a TaskQueue at construction time.
type Option[C comparable] func(*TaskQueue[C])

// WithAuditCacheSize bounds the number of recently completed instructions
// kept around for diagnostics (see RecentlyCompleted). The default is 256;
// a size of 0 disables the audit trail entirely.
func WithAuditCacheSize[C comparable](n int) Option[C] {
	return func(q *TaskQueue[C]) {
		q.audit = newCompletionAudit(n)
	}
}

// New returns an empty TaskQueue.
func New[C comparable](opts ...Option[C]) *TaskQueue[C] {
	q := &TaskQueue[C]{
		instructions: make(map[instructionID]*instruction[C]),
		latestWriter: make(map[C]instructionID),
		ready:        ppq.New[*instruction[C]](),
		merger:       newMerger[C](),
		audit:        newCompletionAudit(256),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// RegisterRewriter adds r to the instruction merger. It may be called at
// any time; rewriters are never removed and immediately participate in
// merge decisions for instructions introduced afterward.
func (q *TaskQueue[C]) RegisterRewriter(r Rewriter[C]) {
	q.merger.register(r)
}

// IsEmpty reports whether the ready queue holds no instructions. Because
// enqueue always maintains dependency edges before admitting an eligible
// instruction, an empty ready queue implies no live instruction remains
// blocked on an ancestor that will never complete.
func (q *TaskQueue[C]) IsEmpty() bool {
	return q.ready.Empty()
}

// Enqueue wraps task in a new instruction, wires it into the dependency
// graph via the latest-writer map, admits it to the ready queue if it has
// no unmet dependencies, and offers the merger a chance to fuse it with an
// existing instruction. It fails only if a component in task's read or
// write set cannot be used as a map key; in that case queue state is left
// unchanged.
func (q *TaskQueue[C]) Enqueue(task Task[C]) error {
	if err := validateComponents(task); err != nil {
		return err
	}

	if task.Reads == nil {
		task.Reads = mapset.NewThreadUnsafeSet[C]()
	}
	if task.Writes == nil {
		task.Writes = mapset.NewThreadUnsafeSet[C]()
	}

	id := q.nextID
	q.nextID++
	instr := newInstruction(id, task)
	q.instructions[id] = instr

	var touchedWriters []*instruction[C]
	for c := range task.Reads.Iter() {
		if wid, ok := q.latestWriter[c]; ok {
			if writer, ok := q.instructions[wid]; ok && writer.id != instr.id {
				instr.addDependency(writer)
				touchedWriters = append(touchedWriters, writer)
			}
		}
	}
	for c := range task.Writes.Iter() {
		if wid, ok := q.latestWriter[c]; ok {
			if prior, ok := q.instructions[wid]; ok && prior.id != instr.id {
				// WAW: instr must not dequeue before the writer it
				// overwrites in the latest-writer map. Adding the edge
				// only adds instr to prior's dependents; prior's
				// existing dependents are untouched.
				instr.addDependency(prior)
			}
		}
		q.latestWriter[c] = instr.id
	}

	if instr.eligible() {
		q.admit(instr)
	}
	q.merger.introduceInstruction(instr)

	// Offer a merge for every writer this instruction just became a
	// dependent of: its D^-1 just grew, which is exactly the precondition
	// candidate discovery looks for.
	for _, w := range touchedWriters {
		q.attemptMerge(w)
	}

	log.Debug("scheduler: enqueued task", "id", id, "priority", task.Priority, "eligible", instr.eligible())

	return nil
}

// Dequeue selects and returns the highest-priority eligible task, or
// ok=false if none is ready. The returned task is considered done from the
// scheduler's perspective the instant it is returned: its dependents are
// released before the caller ever executes it. The scheduler does not
// await execution.
func (q *TaskQueue[C]) Dequeue() (task Task[C], ok bool) {
	instr, ok := q.ready.Pop()
	if !ok {
		return task, false
	}
	instr.token = nil
	q.complete(instr)
	return instr.task, true
}

// admit pushes instr onto the ready queue and records the returned token so
// it can be retracted later if instr is superseded by a merge.
func (q *TaskQueue[C]) admit(instr *instruction[C]) {
	instr.token = q.ready.Push(instr, instr.task.Priority)
}

// retract removes instr from the ready queue if it is currently admitted.
func (q *TaskQueue[C]) retract(instr *instruction[C]) {
	if instr.token == nil {
		return
	}
	q.ready.Remove(instr.token)
	instr.token = nil
}

// complete severs instr from the graph: the merger is notified, every
// dependent loses instr as an ancestor (cascading admission for any that
// become eligible), and any latest-writer entry still pointing at instr is
// cleared. instr is then unreachable and may be garbage collected.
func (q *TaskQueue[C]) complete(instr *instruction[C]) {
	q.merger.completeInstruction(instr)

	for _, dependent := range instr.dependents {
		delete(dependent.deps, instr.id)
		if dependent.eligible() {
			q.admit(dependent)
		}
	}
	instr.dependents = nil

	for c := range instr.task.Writes.Iter() {
		if q.latestWriter[c] == instr.id {
			delete(q.latestWriter, c)
		}
	}

	delete(q.instructions, instr.id)
	if q.audit != nil {
		q.audit.record(instr.id, instr.task.Priority)
	}

	log.Debug("scheduler: completed instruction", "id", instr.id)
}

// attemptMerge offers writer to the merger as the candidate "first" of a
// read-after-write pair. If a fusion is accepted, the superseded pair is
// retracted from the ready queue and the graph, and the fused instruction
// takes their place.
func (q *TaskQueue[C]) attemptMerge(writer *instruction[C]) {
	result, ok := q.merger.merge(writer, q.allocID)
	if !ok {
		return
	}

	first, second, merged := result.first, result.second, result.merged

	q.retract(first)
	q.retract(second)

	for c := range first.task.Writes.Iter() {
		if q.latestWriter[c] == first.id {
			q.latestWriter[c] = merged.id
		}
	}
	for c := range second.task.Writes.Iter() {
		if q.latestWriter[c] == second.id {
			q.latestWriter[c] = merged.id
		}
	}

	delete(q.instructions, first.id)
	delete(q.instructions, second.id)
	q.instructions[merged.id] = merged

	if merged.eligible() {
		q.admit(merged)
	}

	log.Info("scheduler: merged instructions", "first", first.id, "second", second.id, "merged", merged.id)
}

func (q *TaskQueue[C]) allocID() instructionID {
	id := q.nextID
	q.nextID++
	return id
}

// RecentlyCompleted returns the instruction IDs (handles minted at enqueue,
// or at merge time for a fused instruction) completed most recently, newest first, for debugging and tests. It is
// purely observational and bounded by the audit cache size.
func (q *TaskQueue[C]) RecentlyCompleted() []int {
	if q.audit == nil {
		return nil
	}
	return q.audit.recent()
}
