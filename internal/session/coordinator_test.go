package session

import (
	"context"
	"testing"
	"time"

	"pushme-server/internal/game"
	"pushme-server/internal/protocol"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCoordinatorLobbyToArena(t *testing.T) {
	c := NewCoordinator(
		Config{GridSize: 25, StaticHazard: game.CenterBlock(25), Seed: 1, SpreadChance: 0.5},
		Config{GridSize: 25, Seed: 2, SpreadChance: 0.5, HazardInterval: time.Hour},
		Deps{},
	)
	if c.Lobby().Kind() != Lobby || c.Arena().Kind() != Arena {
		t.Fatal("coordinator should own one lobby and one arena")
	}
	if c.Session(Arena) != c.Arena() || c.Session(Lobby) != c.Lobby() {
		t.Fatal("Session lookup mismatch")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	a, b := &mockMember{}, &mockMember{}
	c.Lobby().Join(JoinRequest{ID: "a", Member: a})
	c.Lobby().Join(JoinRequest{ID: "b", Member: b})
	c.Lobby().Ready("a")
	c.Lobby().Ready("b")

	waitFor(t, "arena admission", func() bool {
		gs, err := c.Arena().Snapshot(context.Background())
		return err == nil && len(gs.Entities) == 2
	})

	gs, _ := c.Lobby().Snapshot(context.Background())
	if len(gs.Entities) != 0 {
		t.Errorf("lobby should be empty after hand-off, has %d", len(gs.Entities))
	}
	waitFor(t, "arena welcome", func() bool {
		for _, env := range a.of(protocol.MsgWelcome) {
			if env.Data.(protocol.WelcomeMsg).Session == "arena" {
				return true
			}
		}
		return false
	})

	// forced end returns both to the lobby with scores intact
	c.Arena().EndRound()
	waitFor(t, "return to lobby", func() bool {
		gs, err := c.Lobby().Snapshot(context.Background())
		return err == nil && len(gs.Entities) == 2
	})

	cancel()
	<-done
	if !a.isClosed() || !b.isClosed() {
		t.Error("members should be closed on shutdown")
	}
}
