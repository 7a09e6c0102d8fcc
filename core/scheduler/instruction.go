package scheduler

// instructionID is a handle into the scheduler's instruction arena. It keys
// the TaskQueue's instruction table and each instruction's deps and
// dependents maps. Those maps hold *instruction values, so two live
// instructions joined by an edge point at each other. Completion is
// O(|D^-1|): severing an instruction just walks its dependents.
type instructionID int

// instruction is the scheduler's internal wrapper around a task. deps is
// D(I): the set of instructions that must complete before I is eligible.
// dependents is D^-1(I): the set of instructions that depend on I. The two
// sets are mutual inverses for every pair of live instructions.
type instruction[C comparable] struct {
	id         instructionID
	task       Task[C]
	deps       map[instructionID]*instruction[C]
	dependents map[instructionID]*instruction[C]

	// token is non-nil while the instruction is admitted to the ready
	// queue (eligible, not yet dequeued or superseded).
	token *ppqToken[C]
}

func newInstruction[C comparable](id instructionID, task Task[C]) *instruction[C] {
	return &instruction[C]{
		id:         id,
		task:       task,
		deps:       make(map[instructionID]*instruction[C]),
		dependents: make(map[instructionID]*instruction[C]),
	}
}

// eligible reports whether the instruction has no unmet dependencies.
func (i *instruction[C]) eligible() bool {
	return len(i.deps) == 0
}

// addDependency records that i must wait for ancestor to complete.
func (i *instruction[C]) addDependency(ancestor *instruction[C]) {
	i.deps[ancestor.id] = ancestor
	ancestor.dependents[i.id] = i
}
