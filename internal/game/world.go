package game

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"pushme-server/internal/grid"
)

const (
	DefaultGridSize     = 25
	DefaultRespawnDelay = 2 * time.Second
)

// ErrDuplicateEntity is returned by Spawn when the id is already present
var ErrDuplicateEntity = errors.New("entity id already present")

// Options configures a World
type Options struct {
	Size         int
	SpreadChance float64
	FlagWindow   time.Duration
	Rules        Rules
	Rand         *rand.Rand
	Now          func() time.Time
	Strict       bool // panic on invariant violations
	Logger       *zap.SugaredLogger
}

// World is the simulation state of one session: entity table, hazard set
// and the move/punch rules binding them. It is not safe for concurrent use;
// its owner serializes every call.
type World struct {
	size       int
	entities   map[string]*Entity
	hazard     *Hazard
	physics    *Physics
	rules      Rules
	flagWindow time.Duration
	strict     bool
	now        func() time.Time
	log        *zap.SugaredLogger
	events     []Event
}

// NewWorld creates an empty world
func NewWorld(opts Options) *World {
	if opts.Size <= 0 {
		opts.Size = DefaultGridSize
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FlagWindow <= 0 {
		opts.FlagWindow = DefaultFlagTime
	}
	if opts.Rules.RespawnDelay <= 0 {
		opts.Rules.RespawnDelay = DefaultRespawnDelay
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	entities := make(map[string]*Entity)
	hazard := NewHazard(opts.Size, opts.SpreadChance, opts.Rand)
	return &World{
		size:       opts.Size,
		entities:   entities,
		hazard:     hazard,
		physics:    NewPhysics(opts.Size, entities, hazard, opts.Rand),
		rules:      opts.Rules,
		flagWindow: opts.FlagWindow,
		strict:     opts.Strict,
		now:        opts.Now,
		log:        opts.Logger,
	}
}

// Size returns the board edge length
func (w *World) Size() int { return w.size }

// Hazard returns the world's hazard set
func (w *World) Hazard() *Hazard { return w.hazard }

// Physics returns the world's spatial helper
func (w *World) Physics() *Physics { return w.physics }

// Entity returns the entity with the given id, or nil
func (w *World) Entity(id string) *Entity { return w.entities[id] }

// Len returns the number of entities, ghosts included
func (w *World) Len() int { return len(w.entities) }

// Entities returns all entities ordered by id
func (w *World) Entities() []*Entity {
	out := make([]*Entity, 0, len(w.entities))
	for _, e := range w.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Humans returns all human entities, ghosts included, ordered by id
func (w *World) Humans() []*Entity {
	var out []*Entity
	for _, e := range w.Entities() {
		if !e.IsBot() {
			out = append(out, e)
		}
	}
	return out
}

// AliveHumans returns living human entities ordered by id
func (w *World) AliveHumans() []*Entity {
	var out []*Entity
	for _, e := range w.Humans() {
		if e.Alive {
			out = append(out, e)
		}
	}
	return out
}

// Bots returns bot entities ordered by id
func (w *World) Bots() []*Entity {
	var out []*Entity
	for _, e := range w.Entities() {
		if e.IsBot() {
			out = append(out, e)
		}
	}
	return out
}

// Drain returns and forgets the pending change notifications
func (w *World) Drain() []Event {
	ev := w.events
	w.events = nil
	return ev
}

// Spawn places a new entity on a safe cell
func (w *World) Spawn(id string, kind Kind, skin string, score int) (*Entity, error) {
	if _, ok := w.entities[id]; ok {
		return nil, fmt.Errorf("spawn %s: %w", id, ErrDuplicateEntity)
	}
	pos, err := w.physics.FindSafeSpawn()
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", id, err)
	}
	e := NewEntity(id, kind, pos, skin)
	e.Score = score
	w.entities[id] = e
	w.changed(e)
	w.verify()
	return e, nil
}

// Remove deletes an entity. Pending flag expiries for it lapse with it.
func (w *World) Remove(id string) bool {
	if _, ok := w.entities[id]; !ok {
		return false
	}
	w.remove(id)
	return true
}

// Move steps an entity one cell along dir, or along its facing when dir is
// zero. It reports whether the command was applied.
func (w *World) Move(id string, dir grid.Direction) bool {
	e := w.entities[id]
	if e == nil {
		return false
	}
	if dir.IsZero() {
		dir = e.Facing
	}
	if !dir.IsStep() {
		return false
	}

	target := e.Position.Add(dir)
	if e.Alive && w.physics.AliveAt(target, e.ID) != nil {
		return false
	}

	switch grid.Classify(target, w.size, w.hazard) {
	case grid.Wall:
		back := w.physics.ClampBounce(e.Position.Sub(dir))
		if e.Alive && w.physics.AliveAt(back, e.ID) != nil {
			return false
		}
		e.Position = back
		w.changed(e)
		if e.Alive && w.hazard.Contains(back) {
			w.kill(e)
		}
	case grid.Hazard:
		if e.Alive {
			w.kill(e)
			break
		}
		w.step(e, target, dir, false)
	default:
		w.step(e, target, dir, true)
	}
	w.verify()
	return true
}

// step moves e onto target. Only steps onto empty cells build the combo.
func (w *World) step(e *Entity, target grid.Position, dir grid.Direction, combo bool) {
	e.Position = target
	e.Facing = dir
	if combo {
		e.StepsSincePunch++
	}
	w.changed(e)
}

// Punch strikes the cell next to an entity along dir, or along its facing
// when dir is zero. Living punchers knock back whoever stands there and
// bounce off walls; ghosts can only put out hazard cells.
func (w *World) Punch(id string, dir grid.Direction) bool {
	e := w.entities[id]
	if e == nil {
		return false
	}
	if dir.IsZero() {
		dir = e.Facing
	}
	if !dir.IsStep() {
		return false
	}

	power := e.PunchPower()
	e.StepsSincePunch = 0
	target := e.Position.Add(dir)
	cell := grid.Classify(target, w.size, w.hazard)

	if !e.Alive {
		if cell == grid.Hazard {
			w.extinguish(e, target)
		}
		w.setPunching(e, dir)
		w.verify()
		return true
	}

	if cell == grid.Wall {
		w.emit(EventWallHit, e.ID, target)
		w.setKnockedBack(e)
		w.land(e, w.physics.ComputeKnockback(e.Position, dir.Neg(), power), e.Alive)
	}

	if victim := w.physics.EntityAt(target, e.ID); victim != nil {
		w.setKnockedBack(victim)
		// a living puncher crushes through ghosts too
		w.land(victim, w.physics.ComputeKnockback(victim.Position, dir, power), e.Alive)
	}

	if w.entities[e.ID] == e {
		w.setPunching(e, dir)
	}
	w.verify()
	return true
}

// land commits a knockback. With crush set, whoever is alive on the landing
// cell dies; landing on a hazard kills e.
func (w *World) land(e *Entity, kb Knockback, crush bool) {
	if crush {
		if other := w.physics.AliveAt(kb.Position, e.ID); other != nil {
			w.kill(other)
		}
	}
	e.Position = kb.Position
	w.changed(e)
	if kb.Died && e.Alive {
		w.kill(e)
	}
}

func (w *World) extinguish(e *Entity, p grid.Position) {
	removed, cleared := w.hazard.Extinguish(p)
	if !removed {
		return
	}
	w.emit(EventExtinguished, e.ID, p)
	if cleared {
		w.emit(EventHazardCleared, "", p)
	}
}

func (w *World) setPunching(e *Entity, dir grid.Direction) {
	e.Punching = true
	e.PunchDirection = dir
	e.Facing = dir
	e.punchUntil = w.now().Add(w.flagWindow)
	w.changed(e)
}

func (w *World) setKnockedBack(e *Entity) {
	e.KnockedBack = true
	e.knockbackUntil = w.now().Add(w.flagWindow)
}

// Kill applies the world's death policy to a living entity. Killing a
// ghost is a no-op.
func (w *World) Kill(id string) {
	if e := w.entities[id]; e != nil {
		w.kill(e)
		w.verify()
	}
}

func (w *World) kill(e *Entity) {
	if !e.Alive {
		return
	}
	switch w.rules.policyFor(e.Kind) {
	case RemoveEntity:
		w.emit(EventDied, e.ID, e.Position)
		w.remove(e.ID)
		return
	case RespawnNow:
		pos, err := w.physics.FindSafeSpawn()
		if err == nil {
			e.Position = pos
			e.StepsSincePunch = 0
			w.changed(e)
			return
		}
		w.log.Debugw("respawn deferred", "id", e.ID, "err", err)
		e.respawnAt = w.now().Add(w.rules.RespawnDelay)
	case RespawnLater:
		e.respawnAt = w.now().Add(w.rules.RespawnDelay)
	}
	e.Alive = false
	w.emit(EventDied, e.ID, e.Position)
	w.changed(e)
}

func (w *World) remove(id string) {
	e := w.entities[id]
	delete(w.entities, id)
	w.emit(EventRemoved, id, e.Position)
}

// SpreadHazard grows the hazard set one generation and applies hazard
// contact to every living entity on a newly burning cell
func (w *World) SpreadHazard() []grid.Position {
	added := w.hazard.Spread()
	if len(added) == 0 {
		return nil
	}
	for _, p := range added {
		w.emit(EventSpread, "", p)
		for _, e := range w.Entities() {
			if e.Alive && e.Position == p {
				w.kill(e)
			}
		}
	}
	w.verify()
	return added
}

// ExpireFlags clears punch and knockback flags whose window has passed.
// Each cleared flag produces one change notification.
func (w *World) ExpireFlags(now time.Time) {
	for _, e := range w.Entities() {
		if e.Punching && !now.Before(e.punchUntil) {
			e.Punching = false
			e.PunchDirection = grid.Direction{}
			w.changed(e)
		}
		if e.KnockedBack && !now.Before(e.knockbackUntil) {
			e.KnockedBack = false
			w.changed(e)
		}
	}
}

// HasPendingFlags reports whether any transient flag is still set
func (w *World) HasPendingFlags() bool {
	for _, e := range w.entities {
		if e.Punching || e.KnockedBack {
			return true
		}
	}
	return false
}

// RespawnDue revives entities whose respawn time has passed. When no safe
// cell exists the attempt is pushed back by another delay.
func (w *World) RespawnDue(now time.Time) {
	for _, e := range w.Entities() {
		if e.Alive || e.respawnAt.IsZero() || now.Before(e.respawnAt) {
			continue
		}
		pos, err := w.physics.FindSafeSpawn()
		if err != nil {
			e.respawnAt = now.Add(w.rules.RespawnDelay)
			continue
		}
		e.Position = pos
		e.Alive = true
		e.StepsSincePunch = 0
		e.respawnAt = time.Time{}
		w.changed(e)
	}
	w.verify()
}

func (w *World) changed(e *Entity) {
	w.emit(EventChanged, e.ID, e.Position)
}

func (w *World) emit(kind EventKind, id string, p grid.Position) {
	w.events = append(w.events, Event{Kind: kind, ID: id, Pos: p})
}

// verify checks the bounds and single-occupancy invariants
func (w *World) verify() {
	seen := make(map[grid.Position]string, len(w.entities))
	for _, e := range w.Entities() {
		if !grid.InBounds(e.Position, w.size) {
			w.violation("entity %s out of bounds at %v", e.ID, e.Position)
			continue
		}
		if !e.Alive {
			continue
		}
		if other, ok := seen[e.Position]; ok {
			w.violation("living entities %s and %s share %v", other, e.ID, e.Position)
		}
		seen[e.Position] = e.ID
	}
}

func (w *World) violation(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if w.strict {
		panic("invariant violated: " + msg)
	}
	w.log.Errorw("invariant violated", "detail", msg)
}
