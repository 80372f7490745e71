package server

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTicketTTL is how long an issued ticket stays valid
const DefaultTicketTTL = 24 * time.Hour

// ErrInvalidTicket is returned for tickets that fail verification
var ErrInvalidTicket = errors.New("invalid ticket")

// Ticket is the identity a client carries between sessions and reconnects
type Ticket struct {
	ID    string
	Skin  string
	Score int
}

// Tickets signs and verifies identity tickets
type Tickets struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTickets creates a signer. An empty secret generates a random one,
// so tickets do not survive a restart.
func NewTickets(secret string, ttl time.Duration) (*Tickets, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate ticket secret: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}
	return &Tickets{secret: key, ttl: ttl, now: time.Now}, nil
}

// Issue signs id, skin and score
func (t *Tickets) Issue(id, skin string, score int) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"sub":   id,
		"skin":  skin,
		"score": score,
		"iat":   now.Unix(),
		"exp":   now.Add(t.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify checks a ticket's signature and expiry
func (t *Tickets) Verify(tokenStr string) (Ticket, error) {
	token, err := jwt.Parse(tokenStr, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return Ticket{}, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Ticket{}, ErrInvalidTicket
	}
	id, _ := claims["sub"].(string)
	skin, _ := claims["skin"].(string)
	score, ok := claims["score"].(float64)
	if id == "" || !ok {
		return Ticket{}, fmt.Errorf("%w: missing claims", ErrInvalidTicket)
	}
	return Ticket{ID: id, Skin: skin, Score: int(score)}, nil
}
