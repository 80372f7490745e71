package session

import "sync/atomic"

// Metrics counts session activity for the operations endpoint
type Metrics struct {
	CommandsApplied int64
	CommandsDropped int64 // malformed, unknown identity, wrong phase
	QueueFull       int64
	Broadcasts      int64
	HazardTicks     int64
	BotTicks        int64
	Joins           int64
	Rejections      int64
	Rounds          int64
}

func (m *Metrics) IncApplied()    { atomic.AddInt64(&m.CommandsApplied, 1) }
func (m *Metrics) IncDropped()    { atomic.AddInt64(&m.CommandsDropped, 1) }
func (m *Metrics) IncQueueFull()  { atomic.AddInt64(&m.QueueFull, 1) }
func (m *Metrics) IncBroadcast()  { atomic.AddInt64(&m.Broadcasts, 1) }
func (m *Metrics) IncHazardTick() { atomic.AddInt64(&m.HazardTicks, 1) }
func (m *Metrics) IncBotTick()    { atomic.AddInt64(&m.BotTicks, 1) }
func (m *Metrics) IncJoin()       { atomic.AddInt64(&m.Joins, 1) }
func (m *Metrics) IncRejection()  { atomic.AddInt64(&m.Rejections, 1) }
func (m *Metrics) IncRound()      { atomic.AddInt64(&m.Rounds, 1) }

// Snapshot returns a read-only copy for HTTP output
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"commands_applied": atomic.LoadInt64(&m.CommandsApplied),
		"commands_dropped": atomic.LoadInt64(&m.CommandsDropped),
		"queue_full":       atomic.LoadInt64(&m.QueueFull),
		"broadcasts":       atomic.LoadInt64(&m.Broadcasts),
		"hazard_ticks":     atomic.LoadInt64(&m.HazardTicks),
		"bot_ticks":        atomic.LoadInt64(&m.BotTicks),
		"joins":            atomic.LoadInt64(&m.Joins),
		"rejections":       atomic.LoadInt64(&m.Rejections),
		"rounds":           atomic.LoadInt64(&m.Rounds),
	}
}
