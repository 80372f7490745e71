package session

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Coordinator runs a lobby and an arena session and moves identities
// between them at round boundaries. New connections enter the lobby.
type Coordinator struct {
	lobby *Session
	arena *Session
	log   *zap.SugaredLogger
	wg    sync.WaitGroup
}

// NewCoordinator creates both sessions and wires their hand-offs
func NewCoordinator(lobbyCfg, arenaCfg Config, deps Deps) *Coordinator {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop().Sugar()
	}
	lobbyCfg.Kind = Lobby
	arenaCfg.Kind = Arena
	c := &Coordinator{
		lobby: New(lobbyCfg, deps),
		arena: New(arenaCfg, deps),
		log:   deps.Logger.Named("coordinator"),
	}
	c.lobby.SetHandoff(c.transfer(c.arena))
	c.arena.SetHandoff(c.transfer(c.lobby))
	return c
}

// transfer returns a hand-off function delivering into dst. Delivery runs
// on its own goroutine so neither session loop ever waits on the other.
func (c *Coordinator) transfer(dst *Session) func([]Transfer) {
	return func(ts []Transfer) {
		c.log.Infow("hand-off", "to", dst.Kind(), "identities", len(ts))
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			dst.Admit(ts)
		}()
	}
}

// Run runs both session loops until ctx is cancelled
func (c *Coordinator) Run(ctx context.Context) {
	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.lobby.Run(ctx)
	}()
	go func() {
		defer c.wg.Done()
		c.arena.Run(ctx)
	}()
	<-ctx.Done()
	c.wg.Wait()
}

// Lobby returns the entry session
func (c *Coordinator) Lobby() *Session { return c.lobby }

// Arena returns the round session
func (c *Coordinator) Arena() *Session { return c.arena }

// Session returns the session of the given kind
func (c *Coordinator) Session(k Kind) *Session {
	if k == Arena {
		return c.arena
	}
	return c.lobby
}
