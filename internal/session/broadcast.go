package session

import (
	"pushme-server/internal/game"
	"pushme-server/internal/protocol"
)

// flush publishes pending world changes, if any
func (s *Session) flush() {
	events := s.world.Drain()
	if len(events) == 0 {
		return
	}
	s.publish(events)
}

// flushForced publishes a snapshot even when nothing changed
func (s *Session) flushForced() {
	s.publish(s.world.Drain())
}

func (s *Session) publish(events []game.Event) {
	var updated []string
	seen := make(map[string]bool)
	cleared, humanLost := false, false

	for _, ev := range events {
		if ev.ID != "" && !seen[ev.ID] {
			seen[ev.ID] = true
			updated = append(updated, ev.ID)
		}
		switch ev.Kind {
		case game.EventWallHit:
			s.effect(protocol.EffectWallHit, ev)
		case game.EventExtinguished:
			s.effect(protocol.EffectExtinguish, ev)
		case game.EventSpread:
			s.effect(protocol.EffectSpread, ev)
		case game.EventDied:
			s.effect(protocol.EffectDeath, ev)
			if e := s.world.Entity(ev.ID); e != nil && !e.IsBot() {
				humanLost = true
			}
		case game.EventHazardCleared:
			cleared = true
		}
	}

	s.tick++
	s.broadcastState(updated)
	s.checkRoundEnd(cleared, humanLost)
}

func (s *Session) checkRoundEnd(cleared, humanLost bool) {
	if s.cfg.Kind != Arena || s.state != Active {
		return
	}
	switch {
	case cleared:
		s.endRound(ReasonHazardCleared)
	case humanLost && len(s.world.AliveHumans()) <= 1:
		s.endRound(ReasonLastStanding)
	}
}

func (s *Session) snapshot(updated []string) protocol.GameState {
	entities := s.world.Entities()
	states := make([]protocol.EntityState, 0, len(entities))
	for _, e := range entities {
		states = append(states, e.ToState())
	}
	return protocol.GameState{
		Session:  string(s.cfg.Kind),
		Phase:    s.state.String(),
		Entities: states,
		Hazards:  s.world.Hazard().Cells(),
		Updated:  updated,
		Ready:    len(s.ready),
		Tick:     s.tick,
	}
}

func (s *Session) broadcastState(updated []string) {
	if len(s.members) == 0 {
		return
	}
	gs := s.snapshot(updated)
	frames, err := protocol.EncodeState(&gs)
	if err != nil {
		s.log.Errorw("encode state", "err", err)
		return
	}
	for _, m := range s.members {
		m.SendState(frames)
	}
	s.metrics.IncBroadcast()
}

func (s *Session) broadcast(env protocol.Envelope) {
	for _, m := range s.members {
		m.SendJSON(env)
	}
}

func (s *Session) effect(kind string, ev game.Event) {
	s.broadcast(protocol.Envelope{T: protocol.MsgEffect, Data: protocol.EffectMsg{
		Kind: kind,
		ID:   ev.ID,
		X:    ev.Pos.X,
		Y:    ev.Pos.Y,
	}})
}
