package game

import "time"

// DeathPolicy decides what dying means for one kind of entity
type DeathPolicy int

const (
	// BecomeGhost keeps the entity on the board as a spectator
	BecomeGhost DeathPolicy = iota
	// RespawnNow moves the entity to a fresh safe cell at once
	RespawnNow
	// RespawnLater ghosts the entity and revives it after a delay
	RespawnLater
	// RemoveEntity deletes the entity from the world
	RemoveEntity
)

// Rules holds the per-kind death policies of a world
type Rules struct {
	Human        DeathPolicy
	Bot          DeathPolicy
	RespawnDelay time.Duration
}

// ArenaRules: humans ghost, bots are removed
func ArenaRules() Rules {
	return Rules{Human: BecomeGhost, Bot: RemoveEntity}
}

// LobbyRules: humans respawn at once, bots after delay
func LobbyRules(delay time.Duration) Rules {
	return Rules{Human: RespawnNow, Bot: RespawnLater, RespawnDelay: delay}
}

func (r Rules) policyFor(k Kind) DeathPolicy {
	if k == Bot {
		return r.Bot
	}
	return r.Human
}
