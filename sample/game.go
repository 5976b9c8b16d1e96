// Package sample is a small player/arena game used to exercise the
// instance runtime end to end. Payloads are JSON and entirely opaque to
// the core; only this package and its client counterpart interpret them.
package sample

import (
	"encoding/json"

	"github.com/google/uuid"

	"gamehost/sim"
)

const (
	// DefaultTickRate is ticks per second for a sample instance.
	DefaultTickRate = 20
	// DefaultMaxPlayers caps a sample instance.
	DefaultMaxPlayers = 8

	arenaWidth  = 40.0
	arenaHeight = 30.0

	// moveSpeed is avatar units per second toward the input target.
	moveSpeed = 12.0

	// maxDelta clamps integration after a stall so avatars cannot tunnel
	// across the arena in one tick.
	maxDelta = 0.25
)

// Input is the client payload: desired position plus a spawn request.
type Input struct {
	Type  string  `json:"type"` // "input"
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Spawn bool    `json:"spawn"`
}

// SpawnAck tells one client its avatar now exists.
type SpawnAck struct {
	Type     string `json:"type"` // "spawned"
	PlayerID string `json:"player_id"`
}

// Snapshot is the full state broadcast every tick.
type Snapshot struct {
	Type    string        `json:"type"` // "snapshot"
	Time    float64       `json:"time"`
	Players []PlayerState `json:"players"`
}

// PlayerState is one spawned avatar inside a Snapshot.
type PlayerState struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type player struct {
	name             string
	x, y             float64
	targetX, targetY float64
	spawned          bool
}

// Game is the sample simulation.
type Game struct {
	players map[uuid.UUID]*player
}

// New is a sim.Constructor for the sample game.
func New() sim.Simulation {
	return &Game{players: make(map[uuid.UUID]*player)}
}

func (g *Game) Init() sim.Config {
	return sim.Config{TickRate: DefaultTickRate, MaxPlayers: DefaultMaxPlayers}
}

func (g *Game) Tick(ctx *sim.Context) {
	delta := ctx.Delta
	if delta > maxDelta {
		delta = maxDelta
	}

	for {
		msg, ok := ctx.PopIn()
		if !ok {
			break
		}
		switch m := msg.(type) {
		case sim.ClientJoined:
			if _, exists := g.players[m.ClientID]; !exists {
				g.players[m.ClientID] = &player{name: m.ClientName}
			}
		case sim.ClientLeft:
			delete(g.players, m.ClientID)
		case sim.Custom:
			g.handleInput(ctx, m)
		}
	}

	for _, p := range g.players {
		p.step(delta)
	}

	ctx.PushOut(sim.CustomToAll{Payload: g.snapshot(ctx.Time)})
}

// step moves the avatar toward its target at moveSpeed, so even a huge
// clamped delta cannot teleport it.
func (p *player) step(delta float64) {
	if !p.spawned {
		return
	}
	p.x = approach(p.x, p.targetX, moveSpeed*delta)
	p.y = approach(p.y, p.targetY, moveSpeed*delta)
}

func approach(v, target, max float64) float64 {
	diff := target - v
	if diff > max {
		diff = max
	} else if diff < -max {
		diff = -max
	}
	return v + diff
}

func (g *Game) handleInput(ctx *sim.Context, m sim.Custom) {
	var in Input
	if err := json.Unmarshal(m.Payload, &in); err != nil || in.Type != "input" {
		// Garbage from a client is dropped, never fatal.
		return
	}
	p, ok := g.players[m.ClientID]
	if !ok {
		return
	}
	if in.Spawn && !p.spawned {
		p.spawned = true
		p.x = clamp(in.X, 0, arenaWidth)
		p.y = clamp(in.Y, 0, arenaHeight)
		p.targetX, p.targetY = p.x, p.y
		ack, _ := json.Marshal(SpawnAck{Type: "spawned", PlayerID: m.ClientID.String()})
		ctx.PushOut(sim.CustomTo{ClientID: m.ClientID, Payload: ack})
		return
	}
	if p.spawned {
		p.targetX = clamp(in.X, 0, arenaWidth)
		p.targetY = clamp(in.Y, 0, arenaHeight)
	}
}

func (g *Game) snapshot(now float64) []byte {
	snap := Snapshot{Type: "snapshot", Time: now}
	for id, p := range g.players {
		if !p.spawned {
			continue
		}
		snap.Players = append(snap.Players, PlayerState{
			ID:   id.String(),
			Name: p.name,
			X:    p.x,
			Y:    p.y,
		})
	}
	data, _ := json.Marshal(snap)
	return data
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
