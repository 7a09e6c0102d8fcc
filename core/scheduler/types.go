// Package scheduler implements the data-flow task scheduler that sits
// between the editor's producers (tools, commands, background analyses)
// and the single consumer that executes mutations against the shared
// SHACL model. It tracks read/write dependencies between pending tasks,
// serves them out in priority order, and opportunistically fuses
// compatible task pairs via registered rewriters.
//
// The scheduler is intentionally single-threaded and cooperative: every
// exported method runs to completion on the caller's goroutine and never
// blocks. Callers that need concurrency must serialize their own access.
package scheduler

import mapset "github.com/deckarep/golang-set/v2"

// Task is a unit of work submitted by a producer. Payload is opaque to the
// scheduler; Reads and Writes name the components of the shared model the
// task touches, and Priority favors the task in the ready queue. A Task
// must not be mutated after it is enqueued.
type Task[C comparable] struct {
	Payload  any
	Reads    mapset.Set[C]
	Writes   mapset.Set[C]
	Priority int
}

// Rewriter offers fused replacements for compatible pending task pairs.
// Both methods must be pure: same arguments in, same result out, no
// observable side effects. IsOfInterest is consulted for every
// instruction introduced to the scheduler, so it should be cheap.
type Rewriter[C comparable] interface {
	// IsOfInterest reports whether the rewriter wants to be considered for
	// merges involving a pending instruction wrapping t.
	IsOfInterest(t Task[C]) bool

	// MaybeRewrite receives an ordered pair, writer then reader, and
	// either returns a fused task equivalent to executing both in that
	// order, or ok=false to decline.
	MaybeRewrite(first, second Task[C]) (fused Task[C], ok bool)
}
