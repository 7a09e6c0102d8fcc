// Package ppq implements the priority-partitioned ready queue used by the
// task scheduler: a family of per-priority FIFO sub-queues served by a
// deterministic, restartable priority generator.
package ppq

// Generator produces a deterministic, weighted round-robin sequence of
// priorities. It favours higher priorities while still guaranteeing that
// the lowest observed priority is serviced at least once per cycle.
//
// The sequence is defined entirely by the rolling window [min, max] and a
// pair of cursors, current and frontier. Generator holds no reference to
// the queues it serves; Queue calls Next to decide which sub-queue to
// drain next.
type Generator struct {
	min, max          int
	current, frontier int
}

// NewGenerator returns a Generator in its initial all-zero state: min, max,
// current and frontier all start at 0, matching the bounds of a queue that
// has only ever seen priority 0.
func NewGenerator() *Generator {
	return &Generator{}
}

// NotifyPriorityExists widens the generator's window to include p. If p is
// a new maximum the generator restarts its cycle at p: higher priorities
// always take precedence over any progress already made draining the
// previous window.
func (g *Generator) NotifyPriorityExists(p int) {
	if p < g.min {
		g.min = p
	}
	if p > g.max {
		g.max = p
		g.current = g.max
		g.frontier = g.max
	}
}

// Next returns the next priority in the sequence and advances the
// generator's internal state. For priorities min..max one full cycle
// emits priority i exactly i-min+1 times, so the cycle length is
// (max-min+1)(max-min+2)/2.
func (g *Generator) Next() int {
	p := g.current
	if g.current > g.frontier {
		g.current--
	} else {
		if g.frontier > g.min {
			g.frontier--
		} else {
			g.frontier = g.max
		}
		g.current = g.max
	}
	return p
}

// Window reports the generator's current [min, max] bounds, mainly useful
// for computing an upper bound on how many calls to Next a caller must make
// before every priority in the window has been offered at least once.
func (g *Generator) Window() (min, max int) {
	return g.min, g.max
}

// CycleLength returns the number of calls to Next that constitute one full
// cycle over the current window, i.e. the bound referenced by the
// scheduler's priority-liveness property.
func (g *Generator) CycleLength() int {
	span := g.max - g.min + 1
	return span * (span + 1) / 2
}
