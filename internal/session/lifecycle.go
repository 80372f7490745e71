package session

import (
	"errors"
	"fmt"
	"time"

	"pushme-server/internal/game"
	"pushme-server/internal/protocol"
	"pushme-server/internal/results"
)

// Round end reasons
const (
	ReasonHazardCleared = "hazard_cleared"
	ReasonLastStanding  = "last_standing"
	ReasonAllReady      = "all_ready"
	ReasonForced        = "forced"
	ReasonAbandoned     = "abandoned"
)

// ErrNoSkinAvailable means every skin in the pool is worn by a human
var ErrNoSkinAvailable = errors.New("no skin available")

func (s *Session) applyJoin(req JoinRequest) {
	if s.world.Entity(req.ID) != nil {
		s.log.Warnw("duplicate join", "id", req.ID)
		s.reject(req.Member, protocol.RejectDuplicate, "identity already in session")
		return
	}
	skin, err := s.pickSkin(req.Skin)
	if err != nil {
		s.reject(req.Member, protocol.RejectNoSkin, err.Error())
		return
	}
	e, err := s.world.Spawn(req.ID, game.Human, skin, req.Score)
	if err != nil {
		reason := protocol.RejectNoSafeSpawn
		if !errors.Is(err, game.ErrNoSafeSpawn) {
			s.log.Errorw("spawn failed", "id", req.ID, "err", err)
		}
		s.reject(req.Member, reason, "no safe cell to spawn on")
		return
	}
	if !req.Member.Attach(s) {
		s.world.Remove(req.ID)
		s.world.Drain()
		return
	}
	s.members[req.ID] = req.Member
	s.metrics.IncJoin()
	s.log.Infow("joined", "id", req.ID, "skin", skin, "score", req.Score, "humans", len(s.members))

	req.Member.SendJSON(protocol.Envelope{T: protocol.MsgWelcome, Data: protocol.WelcomeMsg{
		ID:       e.ID,
		Session:  string(s.cfg.Kind),
		Skin:     e.Skin,
		Score:    e.Score,
		GridSize: s.cfg.GridSize,
		Ticket:   s.issue(e),
	}})
	s.onHumanJoined()
}

func (s *Session) applyAdmit(ts []Transfer) {
	if s.state == RoundEnd {
		s.pending = append(s.pending, ts...)
		return
	}
	for _, t := range ts {
		s.applyJoin(t.request())
	}
	s.flush()
}

// pickSkin returns want when it is a free pool skin, else the first free one
func (s *Session) pickSkin(want string) (string, error) {
	used := make(map[string]bool)
	for _, h := range s.world.Humans() {
		used[h.Skin] = true
	}
	for _, skin := range s.cfg.Skins {
		if skin == want && !used[skin] {
			return skin, nil
		}
	}
	for _, skin := range s.cfg.Skins {
		if !used[skin] {
			return skin, nil
		}
	}
	return "", ErrNoSkinAvailable
}

func (s *Session) reject(m Member, reason, msg string) {
	s.metrics.IncRejection()
	s.log.Infow("join rejected", "reason", reason)
	m.SendJSON(protocol.Envelope{T: protocol.MsgRejected, Data: protocol.RejectedMsg{Reason: reason, Msg: msg}})
	m.Close()
}

func (s *Session) issue(e *game.Entity) string {
	if s.tickets == nil {
		return ""
	}
	ticket, err := s.tickets.Issue(e.ID, e.Skin, e.Score)
	if err != nil {
		s.log.Warnw("ticket issue failed", "id", e.ID, "err", err)
		return ""
	}
	return ticket
}

func (s *Session) onHumanJoined() {
	switch s.state {
	case Idle:
		s.activate()
	case Active:
		// a tick suspended for lack of humans only resumes here
		s.startHazard()
		if s.cfg.Kind == Lobby {
			s.spawnBots()
		}
		s.startBots()
	}
}

func (s *Session) activate() {
	s.state = Active
	s.roundStarted = s.now()
	s.spawnBots()
	s.startHazard()
	s.startBots()
	s.log.Infow("round active", "humans", len(s.members))
	s.broadcast(protocol.Envelope{T: protocol.MsgRound, Data: protocol.RoundMsg{Phase: protocol.PhaseActive}})
}

// spawnBots tops the bot population up to the configured count. A failed
// spawn is retried on the next qualifying join.
func (s *Session) spawnBots() {
	for n := len(s.world.Bots()); n < s.cfg.Bots; n++ {
		s.botSeq++
		id := fmt.Sprintf("bot-%d", s.botSeq)
		if _, err := s.world.Spawn(id, game.Bot, s.cfg.BotSkin, 0); err != nil {
			s.log.Debugw("bot spawn skipped", "err", err)
			return
		}
	}
}

func (s *Session) removeBots() {
	for _, b := range s.world.Bots() {
		s.world.Remove(b.ID)
	}
	s.stopBots()
}

func (s *Session) applyReady(id string) {
	e := s.world.Entity(id)
	if s.cfg.Kind != Lobby || e == nil || e.IsBot() || s.state != Active {
		s.metrics.IncDropped()
		return
	}
	if s.ready[id] {
		delete(s.ready, id)
	} else {
		s.ready[id] = true
	}
	humans := len(s.world.Humans())
	s.broadcast(protocol.Envelope{T: protocol.MsgReadySet, Data: protocol.ReadySetMsg{Ready: len(s.ready), Humans: humans}})
	if len(s.ready) == humans {
		s.endRound(ReasonAllReady)
	}
}

func (s *Session) applyLeave(id string) {
	for i, t := range s.pending {
		if t.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
	e := s.world.Entity(id)
	if e == nil || e.IsBot() {
		return
	}
	s.world.Remove(id)
	delete(s.members, id)
	delete(s.ready, id)
	s.log.Infow("left", "id", id, "humans", len(s.members))

	humans := len(s.world.Humans())
	if humans == 0 {
		s.stopHazard()
		if s.cfg.Kind == Lobby {
			s.removeBots()
		}
	}
	s.flush()

	switch {
	case s.state != Active:
	case s.cfg.Kind == Arena && humans == 0:
		s.endRound(ReasonAbandoned)
	case s.cfg.Kind == Arena && e.Alive && len(s.world.AliveHumans()) <= 1:
		s.endRound(ReasonLastStanding)
	case s.cfg.Kind == Lobby && humans > 0 && len(s.ready) == humans:
		s.endRound(ReasonAllReady)
	}
}

// endRound scores the round and schedules the hand-off
func (s *Session) endRound(reason string) {
	if s.state != Active {
		return
	}
	s.state = RoundEnd
	s.stopHazard()
	s.stopBots()

	humans := s.world.Humans()
	var survivors []*game.Entity
	for _, h := range humans {
		if h.Alive {
			survivors = append(survivors, h)
		}
	}
	award := 0
	if s.cfg.Kind == Arena && reason != ReasonForced {
		switch {
		case len(survivors) == 1:
			award = len(humans) - 1
		case len(survivors) > 1:
			award = 1
		}
	}

	scores := make([]protocol.ScoreEntry, 0, len(humans))
	for _, h := range humans {
		entry := protocol.ScoreEntry{ID: h.ID, Skin: h.Skin, Survived: h.Alive}
		if h.Alive {
			entry.Award = award
			h.Score += award
		}
		entry.Score = h.Score
		scores = append(scores, entry)
	}

	s.metrics.IncRound()
	s.log.Infow("round end", "reason", reason, "humans", len(humans), "survivors", len(survivors), "award", award)
	s.flushForced()
	s.broadcast(protocol.Envelope{T: protocol.MsgRound, Data: protocol.RoundMsg{
		Phase:  protocol.PhaseRoundEnd,
		Reason: reason,
		Scores: scores,
	}})
	s.record(reason, scores)

	if s.cfg.ResultsDelay > 0 && s.cfg.Kind == Arena {
		s.resultsTimer = time.NewTimer(s.cfg.ResultsDelay)
		s.resultsC = s.resultsTimer.C
		return
	}
	s.finishRound()
}

func (s *Session) record(reason string, scores []protocol.ScoreEntry) {
	if s.recorder == nil || s.cfg.Kind != Arena {
		return
	}
	r := results.Round{
		Session:   string(s.cfg.Kind),
		Reason:    reason,
		StartedAt: s.roundStarted,
		EndedAt:   s.now(),
	}
	for _, sc := range scores {
		r.Participants = append(r.Participants, results.Participant{
			ID:       sc.ID,
			Skin:     sc.Skin,
			Survived: sc.Survived,
			Award:    sc.Award,
			Score:    sc.Score,
		})
	}
	s.recorder.Track(r)
}

// finishRound hands every human to the counterpart session, clears the
// table and resets the hazard for the next cycle
func (s *Session) finishRound() {
	if s.state != RoundEnd {
		return
	}
	if s.resultsTimer != nil {
		s.resultsTimer.Stop()
		s.resultsTimer = nil
		s.resultsC = nil
	}

	to := s.cfg.Kind.Counterpart()
	var out []Transfer
	for _, h := range s.world.Humans() {
		m := s.members[h.ID]
		s.world.Remove(h.ID)
		delete(s.members, h.ID)
		if m == nil {
			continue
		}
		m.SendJSON(protocol.Envelope{T: protocol.MsgHandoff, Data: protocol.HandoffMsg{
			To:     string(to),
			Skin:   h.Skin,
			Score:  h.Score,
			Ticket: s.issue(h),
		}})
		out = append(out, Transfer{ID: h.ID, Skin: h.Skin, Score: h.Score, Member: m})
	}
	s.removeBots()
	s.ready = make(map[string]bool)
	s.resetHazard()
	s.world.Drain()
	s.state = Idle
	s.log.Infow("round idle", "handed_off", len(out), "to", to)

	if len(out) > 0 {
		if s.handoff != nil {
			s.handoff(out)
		} else {
			for _, t := range out {
				t.Member.Close()
			}
		}
	}

	if len(s.pending) > 0 {
		pending := s.pending
		s.pending = nil
		s.applyAdmit(pending)
	}
}
