package game

import (
	"testing"

	"pushme-server/internal/grid"
)

func TestBotPunchesAdjacentHuman(t *testing.T) {
	w, _ := newTestWorld(t, 25, ArenaRules())
	b := place(w, "bot", Bot, 5, 5)
	h := place(w, "h", Human, 6, 6)

	if !w.Think("bot") {
		t.Fatal("bot should act")
	}
	if !b.Punching || b.PunchDirection != (grid.Direction{DX: 1, DY: 1}) {
		t.Errorf("bot should punch diagonally, got %+v", b)
	}
	if h.Position != (grid.Position{X: 9, Y: 9}) {
		t.Errorf("human knocked to %v, want (9,9)", h.Position)
	}
}

func TestBotStepsTowardNearest(t *testing.T) {
	w, _ := newTestWorld(t, 25, ArenaRules())
	b := place(w, "bot", Bot, 5, 5)
	place(w, "near", Human, 9, 7)
	place(w, "far", Human, 0, 20)

	w.Think("bot")
	if b.Position != (grid.Position{X: 6, Y: 6}) {
		t.Errorf("bot at %v, want (6,6)", b.Position)
	}
}

func TestBotIgnoresGhostsAndIdles(t *testing.T) {
	w, _ := newTestWorld(t, 25, ArenaRules())
	b := place(w, "bot", Bot, 5, 5)
	g := place(w, "g", Human, 8, 5)
	g.Alive = false

	if w.Think("bot") {
		t.Error("bot with no living humans should idle")
	}
	if b.Position != (grid.Position{X: 5, Y: 5}) {
		t.Errorf("idle bot moved to %v", b.Position)
	}
}

func TestThinkIgnoresHumansAndDeadBots(t *testing.T) {
	w, _ := newTestWorld(t, 25, ArenaRules())
	place(w, "h", Human, 1, 1)
	d := place(w, "bot", Bot, 5, 5)
	d.Alive = false

	if w.Think("h") || w.Think("bot") {
		t.Error("only living bots think")
	}
}
