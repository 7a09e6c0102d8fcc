package scheduler

import (
	"fmt"
	"strings"

	"github.com/heimdalr/dag"
)

// DependencyGraph is a point-in-time export of the live dependency graph,
// suitable for visualization or offline analysis. It is built fresh on
// every call and never retained by the TaskQueue.
type DependencyGraph struct {
	*dag.DAG
}

// ExportDependencyGraph snapshots the current instruction graph: one
// vertex per pending instruction (holding its instruction handle), one edge
// per ancestor -> dependent dependency.
func (q *TaskQueue[C]) ExportDependencyGraph() (DependencyGraph, error) {
	d := DependencyGraph{dag.NewDAG()}
	ids := make(map[instructionID]string, len(q.instructions))

	vertexID := func(i *instruction[C]) (string, error) {
		if v, ok := ids[i.id]; ok {
			return v, nil
		}
		v, err := d.AddVertex(int(i.id))
		if err != nil {
			return "", err
		}
		ids[i.id] = v
		return v, nil
	}

	for _, i := range q.instructions {
		if _, err := vertexID(i); err != nil {
			return d, err
		}
	}
	for _, i := range q.instructions {
		dstID, err := vertexID(i)
		if err != nil {
			return d, err
		}
		for _, ancestor := range i.deps {
			srcID, err := vertexID(ancestor)
			if err != nil {
				return d, err
			}
			if err := d.AddEdge(srcID, dstID); err != nil {
				return d, fmt.Errorf("scheduler: export dependency graph: %w", err)
			}
		}
	}
	return d, nil
}

// LongestChain returns the longest ancestor-to-descendant chain currently
// in the graph, as the sequence of instruction IDs from root to leaf, and
// its length. It is a cheap proxy for how many sequential dequeues a
// producer's most-delayed task is still behind.
func (g DependencyGraph) LongestChain() ([]int, int) {
	vertices := g.GetVertices()
	depth := make(map[string]int, len(vertices))
	prev := make(map[string]string, len(vertices))

	order := topoOrder(g.DAG)

	best, bestLen := "", 0
	for _, v := range order {
		parents, _ := g.GetParents(v)
		d := 1
		for p := range parents {
			if depth[p]+1 > d {
				d = depth[p] + 1
				prev[v] = p
			}
		}
		depth[v] = d
		if d > bestLen {
			bestLen = d
			best = v
		}
	}

	var chain []int
	for v := best; v != ""; {
		id := vertices[v].(int)
		chain = append([]int{id}, chain...)
		p, ok := prev[v]
		if !ok {
			break
		}
		v = p
	}
	return chain, bestLen
}

// Describe renders a one-line human-readable summary of the longest chain,
// e.g. for logging during debugging sessions.
func (g DependencyGraph) Describe() string {
	chain, length := g.LongestChain()
	strs := make([]string, len(chain))
	for i, id := range chain {
		strs[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("longest chain (%d): %s", length, strings.Join(strs, "->"))
}

// topoOrder returns the DAG's vertex IDs in an order where every vertex
// appears after all of its ancestors, via repeated Kahn-style peeling.
func topoOrder(d *dag.DAG) []string {
	vertices := d.GetVertices()
	remaining := make(map[string]int, len(vertices))
	for v := range vertices {
		parents, _ := d.GetParents(v)
		remaining[v] = len(parents)
	}

	var order []string
	for len(order) < len(vertices) {
		progressed := false
		for v, n := range remaining {
			if n != 0 {
				continue
			}
			order = append(order, v)
			delete(remaining, v)
			children, _ := d.GetChildren(v)
			for c := range children {
				remaining[c]--
			}
			progressed = true
		}
		if !progressed {
			break // cycle; should be unreachable for a live scheduler graph
		}
	}
	return order
}
