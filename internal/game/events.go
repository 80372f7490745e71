package game

import "pushme-server/internal/grid"

// EventKind tags a world change notification
type EventKind int

const (
	EventChanged       EventKind = iota // entity state changed
	EventDied                           // entity went from alive to dead
	EventRemoved                        // entity left the table
	EventWallHit                        // puncher hit the board edge
	EventExtinguished                   // ghost put out a hazard cell
	EventSpread                         // hazard grew
	EventHazardCleared                  // last hazard cell was put out
)

func (k EventKind) String() string {
	switch k {
	case EventChanged:
		return "changed"
	case EventDied:
		return "died"
	case EventRemoved:
		return "removed"
	case EventWallHit:
		return "wall_hit"
	case EventExtinguished:
		return "extinguished"
	case EventSpread:
		return "spread"
	case EventHazardCleared:
		return "hazard_cleared"
	}
	return "unknown"
}

// Event is one change notification. ID is empty for board-level events.
type Event struct {
	Kind EventKind
	ID   string
	Pos  grid.Position
}
