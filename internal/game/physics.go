package game

import (
	"errors"
	"math/rand"
	"sort"

	"pushme-server/internal/grid"
)

const (
	spawnAttempts  = 100
	safeSpawnRange = 3 // minimum Manhattan distance from any hazard cell
)

// ErrNoSafeSpawn is returned when the spawn search exhausts its budget
var ErrNoSafeSpawn = errors.New("no safe spawn cell")

// Knockback is the outcome of a forced displacement
type Knockback struct {
	Position grid.Position
	Died     bool
}

// Physics answers spatial queries over a world's entity table and hazard
// set. It holds references only; the World mutates what it reads.
type Physics struct {
	size     int
	entities map[string]*Entity
	hazard   *Hazard
	rng      *rand.Rand
}

// NewPhysics creates a Physics bound to the given table and hazard set
func NewPhysics(size int, entities map[string]*Entity, hazard *Hazard, rng *rand.Rand) *Physics {
	return &Physics{size: size, entities: entities, hazard: hazard, rng: rng}
}

// ClampBounce pulls an out-of-range axis to the second cell from that edge
func (p *Physics) ClampBounce(pos grid.Position) grid.Position {
	return grid.Position{X: p.bounceAxis(pos.X), Y: p.bounceAxis(pos.Y)}
}

func (p *Physics) bounceAxis(v int) int {
	switch {
	case v < 0:
		return 1
	case v >= p.size:
		return p.size - 2
	}
	return v
}

// IsOccupied reports whether any other entity, ghost or not, stands on pos
func (p *Physics) IsOccupied(pos grid.Position, excludingID string) bool {
	for id, e := range p.entities {
		if id != excludingID && e.Position == pos {
			return true
		}
	}
	return false
}

// AliveAt returns the living entity on pos other than excludingID, if any
func (p *Physics) AliveAt(pos grid.Position, excludingID string) *Entity {
	for id, e := range p.entities {
		if id != excludingID && e.Alive && e.Position == pos {
			return e
		}
	}
	return nil
}

// EntityAt returns an entity on pos other than excludingID. A living
// entity wins over ghosts; among ghosts the lowest id wins.
func (p *Physics) EntityAt(pos grid.Position, excludingID string) *Entity {
	if e := p.AliveAt(pos, excludingID); e != nil {
		return e
	}
	var ghosts []*Entity
	for id, e := range p.entities {
		if id != excludingID && e.Position == pos {
			ghosts = append(ghosts, e)
		}
	}
	if len(ghosts) == 0 {
		return nil
	}
	sort.Slice(ghosts, func(i, j int) bool { return ghosts[i].ID < ghosts[j].ID })
	return ghosts[0]
}

// FindSafeSpawn samples random cells until one is unoccupied and at least
// safeSpawnRange away from every hazard cell
func (p *Physics) FindSafeSpawn() (grid.Position, error) {
	hazards := p.hazard.Cells()
	for i := 0; i < spawnAttempts; i++ {
		c := grid.Position{X: p.rng.Intn(p.size), Y: p.rng.Intn(p.size)}
		if p.nearHazard(c, hazards) || p.IsOccupied(c, "") {
			continue
		}
		return c, nil
	}
	return grid.Position{}, ErrNoSafeSpawn
}

func (p *Physics) nearHazard(c grid.Position, hazards []grid.Position) bool {
	for _, h := range hazards {
		if grid.Manhattan(c, h) < safeSpawnRange {
			return true
		}
	}
	return false
}

// ComputeKnockback displaces origin by dir·power. An axis that leaves the
// board stops at the edge and travels back by the distance it overshot.
func (p *Physics) ComputeKnockback(origin grid.Position, dir grid.Direction, power int) Knockback {
	last := p.size - 1
	rawX := origin.X + dir.DX*power
	rawY := origin.Y + dir.DY*power

	edgeX := grid.Clamp(rawX, 0, last)
	edgeY := grid.Clamp(rawY, 0, last)
	overX := absInt(rawX - edgeX)
	overY := absInt(rawY - edgeY)

	final := grid.Position{
		X: grid.Clamp(edgeX-dir.DX*overX, 0, last),
		Y: grid.Clamp(edgeY-dir.DY*overY, 0, last),
	}
	return Knockback{Position: final, Died: p.hazard.Contains(final)}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
