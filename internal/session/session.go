package session

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"pushme-server/internal/game"
	"pushme-server/internal/grid"
	"pushme-server/internal/protocol"
)

// Kind names the role of a session
type Kind string

const (
	Lobby Kind = "lobby"
	Arena Kind = "arena"
)

// Counterpart returns the session kind identities are handed to
func (k Kind) Counterpart() Kind {
	if k == Lobby {
		return Arena
	}
	return Lobby
}

// State is the round lifecycle phase
type State int

const (
	Idle State = iota
	Active
	RoundEnd
)

func (s State) String() string {
	switch s {
	case Active:
		return protocol.PhaseActive
	case RoundEnd:
		return protocol.PhaseRoundEnd
	default:
		return protocol.PhaseIdle
	}
}

// ErrStopped is returned by queries against a session whose loop exited
var ErrStopped = errors.New("session stopped")

// Config holds the tunables of one session
type Config struct {
	Kind           Kind
	GridSize       int
	Skins          []string
	BotSkin        string
	Bots           int
	StaticHazard   []grid.Position // fixed, never spreading; nil seeds one random cell per round
	HazardInterval time.Duration
	SpreadChance   float64
	BotInterval    time.Duration
	FlagWindow     time.Duration
	SweepInterval  time.Duration
	RespawnDelay   time.Duration
	ResultsDelay   time.Duration // how long round_end is shown before hand-off
	QueueSize      int
	Seed           int64
	Strict         bool
}

// DefaultSkins is the human skin pool
var DefaultSkins = []string{"😭", "😫", "😳", "😨"}

func (c Config) withDefaults() Config {
	if c.Kind == "" {
		c.Kind = Arena
	}
	if c.GridSize <= 0 {
		c.GridSize = game.DefaultGridSize
	}
	if len(c.Skins) == 0 {
		c.Skins = DefaultSkins
	}
	if c.BotSkin == "" {
		c.BotSkin = game.DefaultBotSkin
	}
	if c.HazardInterval <= 0 {
		c.HazardInterval = 3 * time.Second
	}
	if c.BotInterval <= 0 {
		c.BotInterval = 250 * time.Millisecond
	}
	if c.FlagWindow <= 0 {
		c.FlagWindow = game.DefaultFlagTime
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 20 * time.Millisecond
	}
	if c.RespawnDelay <= 0 {
		c.RespawnDelay = game.DefaultRespawnDelay
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

// Deps are the collaborators a session reports to. All are optional.
type Deps struct {
	Logger   *zap.SugaredLogger
	Tickets  TicketIssuer
	Recorder Recorder
	Now      func() time.Time
}

// Session owns one world and serializes every mutation of it through a
// single goroutine. Commands, timers and hand-offs are all posted to the
// same queue and applied in arrival order.
type Session struct {
	cfg      Config
	log      *zap.SugaredLogger
	world    *game.World
	now      func() time.Time
	tickets  TicketIssuer
	recorder Recorder
	metrics  *Metrics

	cmds chan func()
	done chan struct{}

	// owned by the loop goroutine
	members      map[string]Member
	ready        map[string]bool
	pending      []Transfer
	state        State
	tick         uint64
	botSeq       int
	roundStarted time.Time
	handoff      func([]Transfer)

	hazardTicker *time.Ticker
	hazardC      <-chan time.Time
	botTicker    *time.Ticker
	botC         <-chan time.Time
	resultsTimer *time.Timer
	resultsC     <-chan time.Time
}

// New creates a session. Call Run to start its loop.
func New(cfg Config, deps Deps) *Session {
	cfg = cfg.withDefaults()
	if deps.Logger == nil {
		deps.Logger = zap.NewNop().Sugar()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	rules := game.ArenaRules()
	if cfg.Kind == Lobby {
		rules = game.LobbyRules(cfg.RespawnDelay)
	}
	log := deps.Logger.Named(string(cfg.Kind))
	s := &Session{
		cfg: cfg,
		log: log,
		world: game.NewWorld(game.Options{
			Size:         cfg.GridSize,
			SpreadChance: cfg.SpreadChance,
			FlagWindow:   cfg.FlagWindow,
			Rules:        rules,
			Rand:         rand.New(rand.NewSource(cfg.Seed)),
			Now:          deps.Now,
			Strict:       cfg.Strict,
			Logger:       log.Named("world"),
		}),
		now:      deps.Now,
		tickets:  deps.Tickets,
		recorder: deps.Recorder,
		metrics:  &Metrics{},
		cmds:     make(chan func(), cfg.QueueSize),
		done:     make(chan struct{}),
		members:  make(map[string]Member),
		ready:    make(map[string]bool),
	}
	s.resetHazard()
	return s
}

// Kind returns the session's role
func (s *Session) Kind() Kind { return s.cfg.Kind }

// Metrics returns the session's counters
func (s *Session) Metrics() *Metrics { return s.metrics }

// SetHandoff installs the function that receives identities at round end.
// It must be called before Run.
func (s *Session) SetHandoff(fn func([]Transfer)) { s.handoff = fn }

// Run processes commands and timers until ctx is cancelled
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)
	sweep := time.NewTicker(s.cfg.SweepInterval)
	defer sweep.Stop()
	s.log.Infow("session loop started", "grid", s.cfg.GridSize)

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case fn := <-s.cmds:
			fn()
		case <-s.hazardC:
			s.onHazardTick()
		case <-s.botC:
			s.onBotTick()
		case <-sweep.C:
			s.onSweep(s.now())
		case <-s.resultsC:
			s.finishRound()
		}
	}
}

// post enqueues fn, waiting for room unless the loop has exited
func (s *Session) post(fn func()) bool {
	select {
	case s.cmds <- fn:
		return true
	case <-s.done:
		return false
	}
}

// offer enqueues fn without waiting; a full queue drops it
func (s *Session) offer(fn func()) {
	select {
	case s.cmds <- fn:
	case <-s.done:
	default:
		s.metrics.IncQueueFull()
		s.log.Debugw("command queue full, dropping")
	}
}

// Join admits a new identity
func (s *Session) Join(req JoinRequest) {
	t := Transfer{ID: req.ID, Skin: req.Skin, Score: req.Score, Member: req.Member}
	if !s.post(func() { s.applyAdmit([]Transfer{t}) }) {
		req.Member.Close()
	}
}

// Admit accepts identities handed over from the counterpart session
func (s *Session) Admit(ts []Transfer) {
	if !s.post(func() { s.applyAdmit(ts) }) {
		for _, t := range ts {
			t.Member.Close()
		}
	}
}

// Move steps the identity's entity. Non-unit directions are dropped.
func (s *Session) Move(id string, dir grid.Direction) {
	s.offer(func() { s.applyMove(id, dir) })
}

// Punch punches along dir, or along the entity's facing when dir is nil
func (s *Session) Punch(id string, dir *grid.Direction) {
	s.offer(func() { s.applyPunch(id, dir) })
}

// Ready toggles the identity's readiness
func (s *Session) Ready(id string) {
	s.post(func() { s.applyReady(id) })
}

// Leave removes the identity at once
func (s *Session) Leave(id string) {
	s.post(func() { s.applyLeave(id) })
}

// EndRound forces the current arena round to end without awards
func (s *Session) EndRound() {
	s.post(func() {
		if s.cfg.Kind == Arena {
			s.endRound(ReasonForced)
		}
	})
}

// Snapshot returns the current state as broadcast to members
func (s *Session) Snapshot(ctx context.Context) (protocol.GameState, error) {
	reply := make(chan protocol.GameState, 1)
	if !s.post(func() { reply <- s.snapshot(nil) }) {
		return protocol.GameState{}, ErrStopped
	}
	select {
	case gs := <-reply:
		return gs, nil
	case <-s.done:
		return protocol.GameState{}, ErrStopped
	case <-ctx.Done():
		return protocol.GameState{}, ctx.Err()
	}
}

func (s *Session) applyMove(id string, dir grid.Direction) {
	if !dir.IsUnit() || !s.accepting() || !s.world.Move(id, dir) {
		s.metrics.IncDropped()
		return
	}
	s.metrics.IncApplied()
	s.flush()
}

func (s *Session) applyPunch(id string, dir *grid.Direction) {
	var d grid.Direction
	if dir != nil {
		if !dir.IsUnit() {
			s.metrics.IncDropped()
			return
		}
		d = *dir
	}
	if !s.accepting() || !s.world.Punch(id, d) {
		s.metrics.IncDropped()
		return
	}
	s.metrics.IncApplied()
	s.flush()
}

// accepting reports whether play commands are applied in the current phase
func (s *Session) accepting() bool {
	return s.state != RoundEnd
}

func (s *Session) onHazardTick() {
	if len(s.world.Humans()) == 0 {
		s.stopHazard()
		s.log.Infow("hazard tick suspended, no humans")
		return
	}
	s.metrics.IncHazardTick()
	s.world.SpreadHazard()
	s.flush()
}

func (s *Session) onBotTick() {
	if len(s.world.Bots()) == 0 {
		s.stopBots()
		return
	}
	s.metrics.IncBotTick()
	s.world.ThinkAll()
	s.flush()
}

func (s *Session) onSweep(now time.Time) {
	s.world.ExpireFlags(now)
	s.world.RespawnDue(now)
	s.flush()
}

func (s *Session) startHazard() {
	if s.hazardTicker != nil || s.cfg.StaticHazard != nil {
		return
	}
	s.hazardTicker = time.NewTicker(s.cfg.HazardInterval)
	s.hazardC = s.hazardTicker.C
}

func (s *Session) stopHazard() {
	if s.hazardTicker == nil {
		return
	}
	s.hazardTicker.Stop()
	s.hazardTicker = nil
	s.hazardC = nil
}

func (s *Session) startBots() {
	if s.botTicker != nil || len(s.world.Bots()) == 0 {
		return
	}
	s.botTicker = time.NewTicker(s.cfg.BotInterval)
	s.botC = s.botTicker.C
}

func (s *Session) stopBots() {
	if s.botTicker == nil {
		return
	}
	s.botTicker.Stop()
	s.botTicker = nil
	s.botC = nil
}

func (s *Session) resetHazard() {
	if s.cfg.StaticHazard != nil {
		s.world.Hazard().Set(s.cfg.StaticHazard...)
		return
	}
	s.world.Hazard().Reset()
}

func (s *Session) shutdown() {
	s.stopHazard()
	s.stopBots()
	if s.resultsTimer != nil {
		s.resultsTimer.Stop()
	}
	for id, m := range s.members {
		m.Close()
		delete(s.members, id)
	}
	for _, t := range s.pending {
		t.Member.Close()
	}
	s.pending = nil
	s.log.Infow("session loop stopped")
}
