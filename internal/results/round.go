package results

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Participant is one human's outcome in a finished round
type Participant struct {
	ID       string `json:"id"`
	Skin     string `json:"skin"`
	Survived bool   `json:"survived"`
	Award    int    `json:"award"`
	Score    int    `json:"score"`
}

// Round is a completed arena round
type Round struct {
	ID           int64         `json:"id"`
	Session      string        `json:"session"`
	Reason       string        `json:"reason"`
	StartedAt    time.Time     `json:"startedAt"`
	EndedAt      time.Time     `json:"endedAt"`
	Participants []Participant `json:"participants"`
}

// Store persists round history
type Store interface {
	SaveRounds(ctx context.Context, rounds []Round) error
	// RecentRounds returns up to limit rounds, newest first
	RecentRounds(ctx context.Context, limit int) ([]Round, error)
	Close() error
}

// ErrUnknownBackend is returned by Open for an unsupported store type
var ErrUnknownBackend = errors.New("unknown results backend")

// Open creates the store named by dbType. An empty type or "memory"
// keeps history in process.
func Open(dbType, path, url string) (Store, error) {
	switch dbType {
	case "", "memory":
		return NewMemoryStore(DefaultMemoryLimit), nil
	case "sqlite":
		return OpenSQLite(path)
	case "postgres":
		return NewPostgresStore(url)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, dbType)
	}
}
