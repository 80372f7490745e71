package game

import (
	"math/rand"
	"testing"

	"pushme-server/internal/grid"
)

func TestHazardResetSeedsOneCell(t *testing.T) {
	h := NewHazard(25, DefaultSpreadChance, rand.New(rand.NewSource(1)))
	h.Set(grid.Position{X: 1, Y: 1}, grid.Position{X: 2, Y: 2})
	h.Reset()
	if h.Len() != 1 {
		t.Fatalf("len after reset = %d, want 1", h.Len())
	}
	if !grid.InBounds(h.Cells()[0], 25) {
		t.Errorf("seed out of bounds: %v", h.Cells()[0])
	}
}

func TestHazardSetDropsOutOfBounds(t *testing.T) {
	h := NewHazard(5, DefaultSpreadChance, rand.New(rand.NewSource(1)))
	h.Set(grid.Position{X: -1, Y: 0}, grid.Position{X: 5, Y: 5}, grid.Position{X: 4, Y: 4})
	if h.Len() != 1 || !h.Contains(grid.Position{X: 4, Y: 4}) {
		t.Errorf("cells = %v", h.Cells())
	}
}

func TestHazardSpreadCertain(t *testing.T) {
	h := NewHazard(25, 1, rand.New(rand.NewSource(1)))
	h.Set(grid.Position{X: 5, Y: 5})

	added := h.Spread()
	if len(added) != 4 || h.Len() != 5 {
		t.Fatalf("first generation added %d, len %d", len(added), h.Len())
	}

	// second generation: the diamond of radius 2 has 13 cells; shared
	// neighbours must only be counted once
	added = h.Spread()
	if len(added) != 8 {
		t.Errorf("second generation added %d, want 8", len(added))
	}
	if h.Len() != 13 {
		t.Errorf("len = %d, want 13", h.Len())
	}
	seen := make(map[grid.Position]bool)
	for _, p := range added {
		if seen[p] {
			t.Errorf("cell %v added twice", p)
		}
		seen[p] = true
	}
}

func TestHazardSpreadNever(t *testing.T) {
	h := NewHazard(25, 0, rand.New(rand.NewSource(1)))
	h.Set(grid.Position{X: 5, Y: 5})
	if added := h.Spread(); len(added) != 0 {
		t.Errorf("zero chance added %v", added)
	}
}

func TestHazardSpreadStaysInBounds(t *testing.T) {
	h := NewHazard(5, 1, rand.New(rand.NewSource(1)))
	h.Set(grid.Position{X: 0, Y: 0})
	added := h.Spread()
	if len(added) != 2 {
		t.Fatalf("corner spread added %v, want 2 cells", added)
	}
	for _, p := range added {
		if !grid.InBounds(p, 5) {
			t.Errorf("spread out of bounds: %v", p)
		}
	}
}

func TestHazardSpreadOnlyTouchesNeighbours(t *testing.T) {
	h := NewHazard(25, DefaultSpreadChance, rand.New(rand.NewSource(99)))
	h.Set(grid.Position{X: 12, Y: 12})
	for i := 0; i < 5; i++ {
		before := h.Cells()
		for _, p := range h.Spread() {
			adjacent := false
			for _, b := range before {
				if grid.Manhattan(p, b) == 1 {
					adjacent = true
					break
				}
			}
			if !adjacent {
				t.Fatalf("cell %v not adjacent to previous generation", p)
			}
		}
	}
}

func TestHazardExtinguish(t *testing.T) {
	h := NewHazard(10, DefaultSpreadChance, rand.New(rand.NewSource(1)))
	a, b := grid.Position{X: 1, Y: 1}, grid.Position{X: 2, Y: 2}
	h.Set(a, b)

	if removed, cleared := h.Extinguish(grid.Position{X: 9, Y: 9}); removed || cleared {
		t.Error("extinguishing a cold cell should do nothing")
	}
	if removed, cleared := h.Extinguish(a); !removed || cleared {
		t.Errorf("first extinguish = %v, %v", removed, cleared)
	}
	if removed, cleared := h.Extinguish(b); !removed || !cleared {
		t.Errorf("last extinguish = %v, %v", removed, cleared)
	}
}

func TestCenterBlock(t *testing.T) {
	cells := CenterBlock(25)
	if len(cells) != 9 {
		t.Fatalf("len = %d", len(cells))
	}
	for _, p := range cells {
		if grid.Chebyshev(p, grid.Position{X: 12, Y: 12}) > 1 {
			t.Errorf("cell %v outside centre block", p)
		}
	}
}
