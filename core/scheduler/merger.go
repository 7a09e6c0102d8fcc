package scheduler

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// rewriterState pairs a registered rewriter with its interest set: the
// subset of currently pending instructions whose tasks the rewriter has
// declared interesting.
type rewriterState[C comparable] struct {
	rewriter Rewriter[C]
	interest map[instructionID]*instruction[C]
}

// merger is the instruction merger (IM). It never mutates the dependency
// graph itself beyond what effecting a merge requires; the TaskQueue is
// responsible for keeping the ready queue and latest-writer map in sync
// with whatever the merger decides.
type merger[C comparable] struct {
	rewriters []*rewriterState[C]
}

func newMerger[C comparable]() *merger[C] {
	return &merger[C]{}
}

func (m *merger[C]) register(r Rewriter[C]) {
	m.rewriters = append(m.rewriters, &rewriterState[C]{
		rewriter: r,
		interest: make(map[instructionID]*instruction[C]),
	})
}

// introduceInstruction adds i to the interest set of every rewriter whose
// IsOfInterest predicate holds for i's task.
func (m *merger[C]) introduceInstruction(i *instruction[C]) {
	for _, rs := range m.rewriters {
		if rs.rewriter.IsOfInterest(i.task) {
			rs.interest[i.id] = i
		}
	}
}

// completeInstruction removes i from every interest set.
func (m *merger[C]) completeInstruction(i *instruction[C]) {
	for _, rs := range m.rewriters {
		delete(rs.interest, i.id)
	}
}

// mergeOutcome describes a successful one-step fusion: first and second
// are the superseded instructions, merged is their replacement.
type mergeOutcome[C comparable] struct {
	first, second, merged *instruction[C]
}

// merge attempts a one-step merge of writer with one of its dependents.
// allocID mints the handle for the fused instruction if one is produced.
// merge is a pure offer: declining never affects correctness, only misses
// an opportunity the caller was free to take.
//
// Candidate discovery is read-after-write only: for each rewriter that has
// writer in its interest set, every dependent J that the same rewriter is
// also interested in, and that passes canMergeRAW, is a candidate. The
// first rewriter/candidate pair (in ascending dependent-ID order, for
// determinism) whose MaybeRewrite accepts wins.
func (m *merger[C]) merge(writer *instruction[C], allocID func() instructionID) (mergeOutcome[C], bool) {
	dependents := sortedDependents(writer)

	for _, rs := range m.rewriters {
		if _, interested := rs.interest[writer.id]; !interested {
			continue
		}
		for _, second := range dependents {
			if _, interested := rs.interest[second.id]; !interested {
				continue
			}
			if !intersects(second.task.Reads, writer.task.Writes) {
				// write-after-write dependent only; not a RAW candidate
				continue
			}
			if !canMergeRAW(writer, second) {
				continue
			}
			fused, ok := rs.rewriter.MaybeRewrite(writer.task, second.task)
			if !ok {
				continue
			}
			merged := newInstruction(allocID(), fused)
			m.effectMerge(writer, second, merged)
			return mergeOutcome[C]{first: writer, second: second, merged: merged}, true
		}
	}
	return mergeOutcome[C]{}, false
}

// effectMerge rewires the dependency graph so merged stands in for the
// pair (first, second): merged inherits the union of their ancestors (the
// only safe choice when either input was not itself eligible), and every
// instruction that depended on first or second now depends on merged
// instead. first and second are removed from every interest set.
func (m *merger[C]) effectMerge(first, second, merged *instruction[C]) {
	for _, ancestor := range first.deps {
		if ancestor.id == second.id {
			continue
		}
		delete(ancestor.dependents, first.id)
		ancestor.dependents[merged.id] = merged
		merged.deps[ancestor.id] = ancestor
	}
	for _, ancestor := range second.deps {
		if ancestor.id == first.id {
			continue
		}
		delete(ancestor.dependents, second.id)
		if _, already := merged.deps[ancestor.id]; already {
			continue
		}
		ancestor.dependents[merged.id] = merged
		merged.deps[ancestor.id] = ancestor
	}

	for _, dependent := range first.dependents {
		if dependent.id == second.id {
			continue
		}
		delete(dependent.deps, first.id)
		dependent.deps[merged.id] = merged
		merged.dependents[dependent.id] = dependent
	}
	for _, dependent := range second.dependents {
		if dependent.id == first.id {
			continue
		}
		delete(dependent.deps, second.id)
		dependent.deps[merged.id] = merged
		merged.dependents[dependent.id] = dependent
	}

	for _, rs := range m.rewriters {
		delete(rs.interest, first.id)
		delete(rs.interest, second.id)
	}
	m.introduceInstruction(merged)
}

// canMergeRAW is the merge safety predicate. It holds iff, for every K
// depending on first other than second: K does not read anything second
// writes, and K is not itself an ancestor of second. The first condition
// stops a merge from making second a successor of a reader that must see
// the pre-merge value of whatever second writes; the second stops the
// merge from making second both an ancestor and a descendant of itself.
func canMergeRAW[C comparable](first, second *instruction[C]) bool {
	for _, k := range first.dependents {
		if k.id == second.id {
			continue
		}
		if intersects(k.task.Reads, second.task.Writes) {
			return false
		}
		if _, isAncestor := second.deps[k.id]; isAncestor {
			return false
		}
	}
	return true
}

func intersects[C comparable](a, b mapset.Set[C]) bool {
	for c := range a.Iter() {
		if b.Contains(c) {
			return true
		}
	}
	return false
}

// sortedDependents returns i's dependents ordered by ascending instruction
// ID, giving merge candidate selection a deterministic order.
func sortedDependents[C comparable](i *instruction[C]) []*instruction[C] {
	out := make([]*instruction[C], 0, len(i.dependents))
	for _, d := range i.dependents {
		out = append(out, d)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].id < out[b].id })
	return out
}
