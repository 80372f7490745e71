package game

import "pushme-server/internal/grid"

// DefaultBotSkin is the display tag shared by every bot
const DefaultBotSkin = "🤖"

// Think runs one decision cycle for a living bot: punch the nearest living
// human when it is within one king move, otherwise step toward it. Bots
// with nobody to chase stay idle. It reports whether the bot acted.
func (w *World) Think(id string) bool {
	b := w.entities[id]
	if b == nil || !b.IsBot() || !b.Alive {
		return false
	}
	target := w.nearestHuman(b.Position)
	if target == nil {
		return false
	}
	dir := grid.Toward(b.Position, target.Position)
	if grid.Chebyshev(b.Position, target.Position) <= 1 {
		return w.Punch(id, dir)
	}
	return w.Move(id, dir)
}

// ThinkAll runs Think for every bot in id order
func (w *World) ThinkAll() {
	for _, b := range w.Bots() {
		// an earlier bot's punch may have removed this one
		if w.entities[b.ID] == b {
			w.Think(b.ID)
		}
	}
}

func (w *World) nearestHuman(from grid.Position) *Entity {
	var best *Entity
	bestDist := 0
	for _, h := range w.AliveHumans() {
		d := grid.Manhattan(from, h.Position)
		if best == nil || d < bestDist {
			best, bestDist = h, d
		}
	}
	return best
}
