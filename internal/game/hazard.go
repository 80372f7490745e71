package game

import (
	"math/rand"
	"sort"

	"pushme-server/internal/grid"
)

// DefaultSpreadChance is the per-neighbour probability used by Spread
const DefaultSpreadChance = 0.5

// Hazard owns the set of burning cells for one session
type Hazard struct {
	size   int
	chance float64
	rng    *rand.Rand
	cells  map[grid.Position]struct{}
}

// NewHazard creates an empty hazard set for a size×size board
func NewHazard(size int, chance float64, rng *rand.Rand) *Hazard {
	return &Hazard{
		size:   size,
		chance: chance,
		rng:    rng,
		cells:  make(map[grid.Position]struct{}),
	}
}

// Contains reports whether p is burning
func (h *Hazard) Contains(p grid.Position) bool {
	_, ok := h.cells[p]
	return ok
}

// Len returns the number of burning cells
func (h *Hazard) Len() int {
	return len(h.cells)
}

// Cells returns the burning cells in row-major order
func (h *Hazard) Cells() []grid.Position {
	out := make([]grid.Position, 0, len(h.cells))
	for p := range h.cells {
		out = append(out, p)
	}
	sortPositions(out)
	return out
}

// Set replaces the whole set. Out-of-bounds cells are ignored.
func (h *Hazard) Set(cells ...grid.Position) {
	h.cells = make(map[grid.Position]struct{}, len(cells))
	for _, p := range cells {
		if grid.InBounds(p, h.size) {
			h.cells[p] = struct{}{}
		}
	}
}

// Reset clears the set and seeds exactly one random cell
func (h *Hazard) Reset() {
	h.Set(grid.Position{X: h.rng.Intn(h.size), Y: h.rng.Intn(h.size)})
}

// Spread grows the set by one generation and returns the newly burning
// cells. Each source cell tries its four neighbours independently; a cell
// claimed earlier in the same generation is not added twice.
func (h *Hazard) Spread() []grid.Position {
	sources := h.Cells()
	claimed := make(map[grid.Position]struct{})
	var added []grid.Position
	for _, src := range sources {
		for _, d := range grid.Orthogonal {
			n := src.Add(d)
			if !grid.InBounds(n, h.size) || h.Contains(n) {
				continue
			}
			if _, ok := claimed[n]; ok {
				continue
			}
			if h.rng.Float64() >= h.chance {
				continue
			}
			claimed[n] = struct{}{}
			added = append(added, n)
		}
	}
	for _, p := range added {
		h.cells[p] = struct{}{}
	}
	return added
}

// Extinguish removes p. cleared is true when that removal emptied the set.
func (h *Hazard) Extinguish(p grid.Position) (removed, cleared bool) {
	if !h.Contains(p) {
		return false, false
	}
	delete(h.cells, p)
	return true, len(h.cells) == 0
}

func sortPositions(ps []grid.Position) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Y != ps[j].Y {
			return ps[i].Y < ps[j].Y
		}
		return ps[i].X < ps[j].X
	})
}

// CenterBlock returns the 3×3 block of cells around the board centre
func CenterBlock(size int) []grid.Position {
	c := size / 2
	out := make([]grid.Position, 0, 9)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			out = append(out, grid.Position{X: c + dx, Y: c + dy})
		}
	}
	return out
}
