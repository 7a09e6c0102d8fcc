package scheduler

import "errors"

// ErrInvalidArgument is returned by Enqueue when a task's read or write
// set contains a component identifier that cannot be used as a map key
// (for example, an interface value wrapping a slice or a map). Queue
// state is left unchanged when this error is returned.
var ErrInvalidArgument = errors.New("scheduler: invalid component identifier")
