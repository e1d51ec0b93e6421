// Package world holds the authoritative player map. It is exclusively
// mutated by the simulation goroutine (spec.md §5); everything else reaches
// it only by producing Commands.
//
// Grounded on CharGiway-miniarena/server/player.go and room.go's
// map[PlayerID]*Player, extended with the full field set spec.md's data
// model names (hp/mp, velocity, input flags, sequence, timestamps, session,
// active/disconnect bookkeeping).
package world

import (
	"time"

	"golang.org/x/time/rate"
)

type PlayerID uint64

type Vec2 struct {
	X, Y float32
}

// Player is the simulation's authoritative record of one user in the world.
type Player struct {
	ID   PlayerID
	Name string

	Position Vec2
	Velocity Vec2

	HP, MaxHP int32
	MP, MaxMP int32

	CurrentInputFlags  uint8
	MousePosition      Vec2
	LastInputSequence  uint32
	LastInputTime      time.Time

	Active         bool
	DisconnectTime time.Time

	SessionID uint64
	MoveSpeed float32

	// InputLimiter enforces spec.md §4.12 step 2's minimum 33 ms interval
	// between accepted inputs (`IsInputAllowed()`), implemented as a
	// golang.org/x/time/rate limiter rather than a hand-rolled timestamp
	// check, per SPEC_FULL.md's domain-stack wiring.
	InputLimiter *rate.Limiter
}

// NewInputLimiter constructs the per-player rate limiter enforcing minInterval
// between accepted inputs, with a burst of 1 (no credit accrual).
func NewInputLimiter(minInterval time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Every(minInterval), 1)
}

// World is the indexed collection of players, keyed by PlayerID.
type World struct {
	players map[PlayerID]*Player
}

func New() *World {
	return &World{players: make(map[PlayerID]*Player)}
}

// AddPlayer replaces any same-id entry. Only the simulation goroutine calls
// this, guarding against re-entry the way spec.md §4.9 specifies.
func (w *World) AddPlayer(p *Player) {
	w.players[p.ID] = p
}

func (w *World) RemovePlayer(id PlayerID) {
	delete(w.players, id)
}

func (w *World) GetPlayer(id PlayerID) (*Player, bool) {
	p, ok := w.players[id]
	return p, ok
}

// GetAllPlayers returns every player currently tracked, active or not.
func (w *World) GetAllPlayers() []*Player {
	out := make([]*Player, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p)
	}
	return out
}

func (w *World) PlayerCount() int {
	return len(w.players)
}

// Update is reserved for future per-player per-tick logic (status effects,
// regen, ...); it is a no-op today, matching spec.md §4.9's stated hook.
func (w *World) Update(deltaSeconds float64) {
	_ = deltaSeconds
}
