package game

import (
	"time"

	"pushme-server/internal/grid"
	"pushme-server/internal/protocol"
)

const (
	BasePunchPower  = 3
	StepsPerBonus   = 6 // movement steps per +1 punch power
	MaxPunchBonus   = 3
	MaxPunchPower   = BasePunchPower + MaxPunchBonus
	DefaultFlagTime = 100 * time.Millisecond
)

// Kind selects who drives an entity
type Kind int

const (
	Human Kind = iota
	Bot
)

func (k Kind) String() string {
	if k == Bot {
		return "bot"
	}
	return "human"
}

// Entity is a player or bot on the board. Alive == false means ghost.
type Entity struct {
	ID              string
	Kind            Kind
	Position        grid.Position
	Skin            string
	Facing          grid.Direction
	Alive           bool
	Punching        bool
	PunchDirection  grid.Direction
	KnockedBack     bool
	StepsSincePunch int
	Score           int

	punchUntil     time.Time
	knockbackUntil time.Time
	respawnAt      time.Time // zero unless waiting to respawn
}

// NewEntity creates a living entity facing up
func NewEntity(id string, kind Kind, pos grid.Position, skin string) *Entity {
	return &Entity{
		ID:       id,
		Kind:     kind,
		Position: pos,
		Skin:     skin,
		Facing:   grid.Up,
		Alive:    true,
	}
}

// IsBot reports whether the entity is AI driven
func (e *Entity) IsBot() bool {
	return e.Kind == Bot
}

// PunchPower returns the knockback distance of the next punch
func (e *Entity) PunchPower() int {
	bonus := e.StepsSincePunch / StepsPerBonus
	if bonus > MaxPunchBonus {
		bonus = MaxPunchBonus
	}
	return BasePunchPower + bonus
}

// ToState converts to the wire form
func (e *Entity) ToState() protocol.EntityState {
	return protocol.EntityState{
		ID:             e.ID,
		X:              e.Position.X,
		Y:              e.Position.Y,
		Skin:           e.Skin,
		Facing:         e.Facing,
		Alive:          e.Alive,
		Bot:            e.IsBot(),
		Punching:       e.Punching,
		PunchDirection: e.PunchDirection,
		KnockedBack:    e.KnockedBack,
		Score:          e.Score,
	}
}
