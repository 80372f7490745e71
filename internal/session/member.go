package session

import (
	"pushme-server/internal/protocol"
	"pushme-server/internal/results"
)

// Member delivers outbound traffic to one connected identity
type Member interface {
	SendJSON(msg interface{})
	SendState(frames *protocol.StateFrames)
	// Attach routes the identity's future commands to s. It returns false
	// when the connection is already gone.
	Attach(s *Session) bool
	// Close forces a disconnect after queued messages are written
	Close()
}

// TicketIssuer signs a portable record of an identity's skin and score
type TicketIssuer interface {
	Issue(id, skin string, score int) (string, error)
}

// Recorder receives completed arena rounds
type Recorder interface {
	Track(r results.Round)
}

// JoinRequest asks a session to admit an identity
type JoinRequest struct {
	ID     string
	Skin   string // preferred; any free skin is used otherwise
	Score  int    // carried over from a previous session
	Member Member
}

// Transfer is an identity in flight between sessions
type Transfer struct {
	ID     string
	Skin   string
	Score  int
	Member Member
}

func (t Transfer) request() JoinRequest {
	return JoinRequest{ID: t.ID, Skin: t.Skin, Score: t.Score, Member: t.Member}
}
