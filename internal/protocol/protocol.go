package protocol

import (
	"encoding/json"

	"pushme-server/internal/grid"
)

// Client -> Server message types
const (
	MsgJoin     = "join"
	MsgMove     = "move"
	MsgPunch    = "punch"
	MsgReady    = "ready"     // toggle readiness (lobby)
	MsgLeave    = "leave"
	MsgEndRound = "end_round" // force the arena round to end
)

// Server -> Client message types
const (
	MsgWelcome  = "welcome"
	MsgState    = "state"
	MsgRound    = "round"
	MsgRejected = "rejected"
	MsgEffect   = "effect"
	MsgReadySet = "ready_set"
	MsgHandoff  = "handoff"
	MsgError    = "error"
)

// Rejection reasons
const (
	RejectNoSkin      = "NoSkinAvailable"
	RejectNoSafeSpawn = "NoSafeSpawn"
	RejectBadTicket   = "InvalidTicket"
	RejectDuplicate   = "DuplicateIdentity"
)

// Round phases carried by RoundMsg
const (
	PhaseIdle     = "idle"
	PhaseActive   = "active"
	PhaseRoundEnd = "round_end"
)

// Side effect kinds carried by EffectMsg
const (
	EffectWallHit    = "wall_hit"
	EffectExtinguish = "extinguish"
	EffectSpread     = "spread"
	EffectDeath      = "death"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMsg asks to enter a session. Ticket carries a prior identity,
// skin and score issued by this server.
type JoinMsg struct {
	Session string `json:"session,omitempty" jsonschema:"enum=lobby,enum=arena"`
	Skin    string `json:"skin,omitempty"`
	Ticket  string `json:"ticket,omitempty"`
}

// DirectionMsg is the payload of move and punch
type DirectionMsg struct {
	DX int `json:"dx" jsonschema:"minimum=-1,maximum=1"`
	DY int `json:"dy" jsonschema:"minimum=-1,maximum=1"`
}

// Direction converts the payload to a grid direction
func (m DirectionMsg) Direction() grid.Direction {
	return grid.Direction{DX: m.DX, DY: m.DY}
}

// EntityState is the wire form of one entity
type EntityState struct {
	ID             string         `json:"id"`
	X              int            `json:"x"`
	Y              int            `json:"y"`
	Skin           string         `json:"skin"`
	Facing         grid.Direction `json:"facing"`
	Alive          bool           `json:"alive"`
	Bot            bool           `json:"bot"`
	Punching       bool           `json:"punching"`
	PunchDirection grid.Direction `json:"punchDir"`
	KnockedBack    bool           `json:"knockedBack"`
	Score          int            `json:"score"`
}

// GameState is the full state broadcast
type GameState struct {
	Session  string          `json:"session"`
	Phase    string          `json:"phase"`
	Entities []EntityState   `json:"entities"`
	Hazards  []grid.Position `json:"hazards"`
	Updated  []string        `json:"updated,omitempty"`
	Ready    int             `json:"ready"`
	Tick     uint64          `json:"tick"`
}

// WelcomeMsg is sent to an identity when it enters a session
type WelcomeMsg struct {
	ID       string `json:"id"`
	Session  string `json:"session"`
	Skin     string `json:"skin"`
	Score    int    `json:"score"`
	GridSize int    `json:"gridSize"`
	Ticket   string `json:"ticket,omitempty"`
}

// ScoreEntry is one human's result at round end
type ScoreEntry struct {
	ID       string `json:"id"`
	Skin     string `json:"skin"`
	Survived bool   `json:"survived"`
	Award    int    `json:"award"`
	Score    int    `json:"score"`
}

// RoundMsg announces a round phase change
type RoundMsg struct {
	Phase  string       `json:"phase"`
	Reason string       `json:"reason,omitempty"`
	Scores []ScoreEntry `json:"scores,omitempty"`
}

// RejectedMsg is sent once before a forced disconnect
type RejectedMsg struct {
	Reason string `json:"reason"`
	Msg    string `json:"msg,omitempty"`
}

// EffectMsg is a presentation hint (sound, particles)
type EffectMsg struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// ReadySetMsg reports readiness in the lobby
type ReadySetMsg struct {
	Ready  int `json:"ready"`
	Humans int `json:"humans"`
}

// HandoffMsg tells an identity it was moved to another session
type HandoffMsg struct {
	To     string `json:"to"`
	Skin   string `json:"skin"`
	Score  int    `json:"score"`
	Ticket string `json:"ticket,omitempty"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}
