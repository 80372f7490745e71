package grid

import "fmt"

// Position is a cell coordinate on the board
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p moved one step along d
func (p Position) Add(d Direction) Position {
	return Position{X: p.X + d.DX, Y: p.Y + d.DY}
}

// Sub returns p moved one step against d
func (p Position) Sub(d Direction) Position {
	return Position{X: p.X - d.DX, Y: p.Y - d.DY}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Direction is a step vector with each axis in {-1, 0, 1}
type Direction struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// Up is the facing every entity starts with
var Up = Direction{DX: 0, DY: -1}

// Orthogonal lists the four unit directions in a fixed order
var Orthogonal = [4]Direction{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// IsZero reports whether d has no component
func (d Direction) IsZero() bool {
	return d.DX == 0 && d.DY == 0
}

// IsUnit reports whether exactly one axis is ±1 and the other is 0
func (d Direction) IsUnit() bool {
	ax, ay := abs(d.DX), abs(d.DY)
	return ax+ay == 1
}

// IsStep reports whether d is a non-zero king move (diagonals allowed)
func (d Direction) IsStep() bool {
	return !d.IsZero() && abs(d.DX) <= 1 && abs(d.DY) <= 1
}

// Neg returns the opposite direction
func (d Direction) Neg() Direction {
	return Direction{DX: -d.DX, DY: -d.DY}
}

// Toward returns the per-axis sign step from a to b
func Toward(a, b Position) Direction {
	return Direction{DX: sign(b.X - a.X), DY: sign(b.Y - a.Y)}
}

// CellKind classifies a coordinate
type CellKind int

const (
	Empty CellKind = iota
	Wall
	Hazard
)

func (k CellKind) String() string {
	switch k {
	case Wall:
		return "wall"
	case Hazard:
		return "hazard"
	default:
		return "empty"
	}
}

// HazardSet answers membership queries for burning cells
type HazardSet interface {
	Contains(p Position) bool
}

// InBounds reports whether p lies on a size×size board
func InBounds(p Position, size int) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < size && p.Y < size
}

// Classify maps a coordinate to Wall, Hazard or Empty. A nil hazard set
// means no cell burns.
func Classify(p Position, size int, hazards HazardSet) CellKind {
	if !InBounds(p, size) {
		return Wall
	}
	if hazards != nil && hazards.Contains(p) {
		return Hazard
	}
	return Empty
}

// Manhattan returns |dx| + |dy|
func Manhattan(a, b Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// Chebyshev returns max(|dx|, |dy|)
func Chebyshev(a, b Position) int {
	dx, dy := abs(a.X-b.X), abs(a.Y-b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// Clamp restricts v to [lo, hi]
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
