package game

import (
	"errors"
	"math/rand"
	"testing"

	"pushme-server/internal/grid"
)

func newTestPhysics(size int) (*Physics, map[string]*Entity, *Hazard) {
	rng := rand.New(rand.NewSource(7))
	entities := make(map[string]*Entity)
	hazard := NewHazard(size, DefaultSpreadChance, rng)
	return NewPhysics(size, entities, hazard, rng), entities, hazard
}

func TestClampBounce(t *testing.T) {
	p, _, _ := newTestPhysics(25)
	tests := []struct {
		in, want grid.Position
	}{
		{grid.Position{X: -1, Y: 5}, grid.Position{X: 1, Y: 5}},
		{grid.Position{X: 25, Y: 5}, grid.Position{X: 23, Y: 5}},
		{grid.Position{X: 3, Y: -4}, grid.Position{X: 3, Y: 1}},
		{grid.Position{X: 30, Y: 30}, grid.Position{X: 23, Y: 23}},
		{grid.Position{X: 0, Y: 24}, grid.Position{X: 0, Y: 24}},
	}
	for _, tt := range tests {
		if got := p.ClampBounce(tt.in); got != tt.want {
			t.Errorf("ClampBounce(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestKnockbackZeroPower(t *testing.T) {
	p, _, _ := newTestPhysics(25)
	for _, d := range grid.Orthogonal {
		origin := grid.Position{X: 0, Y: 24}
		kb := p.ComputeKnockback(origin, d, 0)
		if kb.Position != origin || kb.Died {
			t.Errorf("zero power along %v = %+v", d, kb)
		}
	}
}

func TestKnockbackMidGrid(t *testing.T) {
	p, _, _ := newTestPhysics(25)
	kb := p.ComputeKnockback(grid.Position{X: 10, Y: 10}, grid.Direction{DY: 1}, 4)
	if kb.Position != (grid.Position{X: 10, Y: 14}) {
		t.Errorf("got %v, want (10,14)", kb.Position)
	}
}

func TestKnockbackBouncesOffEdge(t *testing.T) {
	p, _, _ := newTestPhysics(25)
	tests := []struct {
		origin grid.Position
		dir    grid.Direction
		power  int
		want   grid.Position
	}{
		// raw 26, edge 24, overshoot 2
		{grid.Position{X: 23, Y: 5}, grid.Direction{DX: 1}, 3, grid.Position{X: 22, Y: 5}},
		// raw -2, edge 0, overshoot 2
		{grid.Position{X: 5, Y: 1}, grid.Direction{DY: -1}, 3, grid.Position{X: 5, Y: 2}},
		// from the edge itself the full power comes back
		{grid.Position{X: 24, Y: 5}, grid.Direction{DX: 1}, 6, grid.Position{X: 18, Y: 5}},
		// diagonal, both axes bounce independently
		{grid.Position{X: 23, Y: 1}, grid.Direction{DX: 1, DY: -1}, 3, grid.Position{X: 22, Y: 2}},
	}
	for _, tt := range tests {
		kb := p.ComputeKnockback(tt.origin, tt.dir, tt.power)
		if kb.Position != tt.want {
			t.Errorf("knockback(%v, %v, %d) = %v, want %v", tt.origin, tt.dir, tt.power, kb.Position, tt.want)
		}
	}
}

func TestKnockbackStaysWithinPower(t *testing.T) {
	const size = 25
	p, _, _ := newTestPhysics(size)
	for x := 0; x < size; x++ {
		for _, d := range grid.Orthogonal {
			for power := 0; power <= MaxPunchPower; power++ {
				origin := grid.Position{X: x, Y: x}
				kb := p.ComputeKnockback(origin, d, power)
				if !grid.InBounds(kb.Position, size) {
					t.Fatalf("knockback left the board: %v", kb.Position)
				}
				if dist := grid.Manhattan(origin, kb.Position); dist > power {
					t.Fatalf("knockback(%v, %v, %d) travelled %d", origin, d, power, dist)
				}
			}
		}
	}
}

func TestKnockbackIntoHazard(t *testing.T) {
	p, _, hazard := newTestPhysics(25)
	hazard.Set(grid.Position{X: 13, Y: 10})
	kb := p.ComputeKnockback(grid.Position{X: 10, Y: 10}, grid.Direction{DX: 1}, 3)
	if !kb.Died {
		t.Error("landing on hazard should report death")
	}
}

func TestIsOccupiedCountsGhosts(t *testing.T) {
	p, entities, _ := newTestPhysics(10)
	g := NewEntity("g", Human, grid.Position{X: 2, Y: 2}, "")
	g.Alive = false
	entities["g"] = g

	if !p.IsOccupied(grid.Position{X: 2, Y: 2}, "") {
		t.Error("ghost should occupy its cell")
	}
	if p.IsOccupied(grid.Position{X: 2, Y: 2}, "g") {
		t.Error("excluded id should not count")
	}
	if p.AliveAt(grid.Position{X: 2, Y: 2}, "") != nil {
		t.Error("AliveAt should skip ghosts")
	}
}

func TestEntityAtPrefersLiving(t *testing.T) {
	p, entities, _ := newTestPhysics(10)
	pos := grid.Position{X: 4, Y: 4}
	g := NewEntity("a", Human, pos, "")
	g.Alive = false
	entities["a"] = g
	entities["b"] = NewEntity("b", Human, pos, "")

	if e := p.EntityAt(pos, ""); e == nil || e.ID != "b" {
		t.Errorf("EntityAt = %v, want living b", e)
	}
}

func TestFindSafeSpawnKeepsDistance(t *testing.T) {
	p, entities, hazard := newTestPhysics(25)
	hazard.Set(grid.Position{X: 12, Y: 12}, grid.Position{X: 3, Y: 20})
	entities["x"] = NewEntity("x", Human, grid.Position{X: 0, Y: 0}, "")

	for i := 0; i < 50; i++ {
		pos, err := p.FindSafeSpawn()
		if err != nil {
			t.Fatal(err)
		}
		for _, h := range hazard.Cells() {
			if grid.Manhattan(pos, h) < safeSpawnRange {
				t.Fatalf("spawn %v too close to hazard %v", pos, h)
			}
		}
		if pos == (grid.Position{}) {
			t.Fatal("spawn on occupied cell")
		}
	}
}

func TestFindSafeSpawnFailsWhenBoardIsUnsafe(t *testing.T) {
	p, _, hazard := newTestPhysics(25)
	// every cell is within distance 2 of a multiple-of-3 lattice point
	var cells []grid.Position
	for y := 0; y < 25; y += 3 {
		for x := 0; x < 25; x += 3 {
			cells = append(cells, grid.Position{X: x, Y: y})
		}
	}
	hazard.Set(cells...)

	if _, err := p.FindSafeSpawn(); !errors.Is(err, ErrNoSafeSpawn) {
		t.Errorf("expected ErrNoSafeSpawn, got %v", err)
	}
}
