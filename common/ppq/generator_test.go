package ppq

import "testing"

func TestGeneratorStartsAllZero(t *testing.T) {
	g := NewGenerator()
	min, max := g.Window()
	if min != 0 || max != 0 {
		t.Fatalf("expected zero window, got [%d,%d]", min, max)
	}
	if g.Next() != 0 {
		t.Fatalf("expected first priority to be 0")
	}
}

func TestGeneratorSingleLevelAlwaysReturnsThatLevel(t *testing.T) {
	g := NewGenerator()
	g.NotifyPriorityExists(0)
	for i := 0; i < 10; i++ {
		if p := g.Next(); p != 0 {
			t.Fatalf("call %d: expected 0, got %d", i, p)
		}
	}
}

func TestGeneratorRestartsOnNewMax(t *testing.T) {
	g := NewGenerator()
	g.NotifyPriorityExists(0)
	g.Next()
	g.NotifyPriorityExists(3)
	if p := g.Next(); p != 3 {
		t.Fatalf("expected generator to restart at the new max 3, got %d", p)
	}
}

// Hand-traced reference sequence for window [0,2]: priority 2 appears 3
// times, 1 appears twice, 0 once per cycle (cycle length 6), interleaved
// rather than grouped.
func TestGeneratorCycleForThreeLevels(t *testing.T) {
	g := NewGenerator()
	g.NotifyPriorityExists(0)
	g.NotifyPriorityExists(1)
	g.NotifyPriorityExists(2)

	want := []int{2, 2, 1, 2, 1, 0}
	for i, w := range want {
		if p := g.Next(); p != w {
			t.Fatalf("call %d: want %d, got %d", i, w, p)
		}
	}
	if g.CycleLength() != 6 {
		t.Fatalf("expected cycle length 6, got %d", g.CycleLength())
	}
	// And it repeats.
	for i, w := range want {
		if p := g.Next(); p != w {
			t.Fatalf("second cycle, call %d: want %d, got %d", i, w, p)
		}
	}
}

func TestGeneratorEveryLevelServicedWithinOneCycle(t *testing.T) {
	g := NewGenerator()
	for p := 0; p < 5; p++ {
		g.NotifyPriorityExists(p)
	}
	seen := make(map[int]bool)
	for i := 0; i < g.CycleLength(); i++ {
		seen[g.Next()] = true
	}
	for p := 0; p < 5; p++ {
		if !seen[p] {
			t.Fatalf("priority %d not serviced within one cycle", p)
		}
	}
}
