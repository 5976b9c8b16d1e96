package sample

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/uuid"

	"gamehost/sim"
)

func mustInput(t *testing.T, in Input) []byte {
	t.Helper()
	in.Type = "input"
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal input: %v", err)
	}
	return data
}

func lastSnapshot(t *testing.T, outs []sim.OutMsg) Snapshot {
	t.Helper()
	for i := len(outs) - 1; i >= 0; i-- {
		if all, ok := outs[i].(sim.CustomToAll); ok {
			var snap Snapshot
			if err := json.Unmarshal(all.Payload, &snap); err != nil {
				t.Fatalf("bad snapshot payload: %v", err)
			}
			return snap
		}
	}
	t.Fatal("no snapshot in the fan-out")
	return Snapshot{}
}

func tick(g sim.Simulation, ctx *sim.Context) []sim.OutMsg {
	g.Tick(ctx)
	return ctx.DrainOut()
}

func TestJoinSpawnSnapshot(t *testing.T) {
	g := New()
	id := uuid.New()
	ctx := &sim.Context{Delta: 0.05}

	ctx.PushIn(sim.ClientJoined{ClientID: id, ClientName: "alice"})
	snap := lastSnapshot(t, tick(g, ctx))
	if len(snap.Players) != 0 {
		t.Fatalf("snapshot has %d players before spawn, want 0", len(snap.Players))
	}

	// Spawn position is clamped into the arena.
	ctx.PushIn(sim.Custom{ClientID: id, Payload: mustInput(t, Input{X: 100, Y: -5, Spawn: true})})
	outs := tick(g, ctx)

	ack, ok := outs[0].(sim.CustomTo)
	if !ok || ack.ClientID != id {
		t.Fatalf("first out = %#v, want a spawn ack to %v", outs[0], id)
	}
	var spawned SpawnAck
	if err := json.Unmarshal(ack.Payload, &spawned); err != nil || spawned.Type != "spawned" {
		t.Fatalf("spawn ack payload = %s (err %v)", ack.Payload, err)
	}
	if spawned.PlayerID != id.String() {
		t.Fatalf("spawn ack player = %s, want %s", spawned.PlayerID, id)
	}

	snap = lastSnapshot(t, outs)
	if len(snap.Players) != 1 {
		t.Fatalf("snapshot has %d players, want 1", len(snap.Players))
	}
	p := snap.Players[0]
	if p.ID != id.String() || p.Name != "alice" {
		t.Fatalf("snapshot player = %+v", p)
	}
	if p.X != arenaWidth || p.Y != 0 {
		t.Fatalf("spawn position = (%v, %v), want clamped to (%v, 0)", p.X, p.Y, arenaWidth)
	}
}

func TestMovementIsRateLimited(t *testing.T) {
	g := New()
	id := uuid.New()
	ctx := &sim.Context{Delta: 0.05}

	ctx.PushIn(sim.ClientJoined{ClientID: id, ClientName: "alice"})
	ctx.PushIn(sim.Custom{ClientID: id, Payload: mustInput(t, Input{X: 40, Y: 0, Spawn: true})})
	tick(g, ctx)

	ctx.PushIn(sim.Custom{ClientID: id, Payload: mustInput(t, Input{X: 0, Y: 0})})
	p := lastSnapshot(t, tick(g, ctx)).Players[0]
	want := 40 - moveSpeed*0.05
	if math.Abs(p.X-want) > 1e-9 {
		t.Fatalf("x after one tick = %v, want %v", p.X, want)
	}

	// A stalled tick reports a huge delta; integration is clamped so the
	// avatar cannot cross the arena in one step.
	ctx.Delta = 10
	p = lastSnapshot(t, tick(g, ctx)).Players[0]
	step := want - p.X
	if step > moveSpeed*maxDelta+1e-9 {
		t.Fatalf("stalled tick moved %v, clamp allows at most %v", step, moveSpeed*maxDelta)
	}
}

func TestInputBeforeSpawnIgnored(t *testing.T) {
	g := New()
	id := uuid.New()
	ctx := &sim.Context{Delta: 0.05}

	ctx.PushIn(sim.ClientJoined{ClientID: id, ClientName: "alice"})
	ctx.PushIn(sim.Custom{ClientID: id, Payload: mustInput(t, Input{X: 5, Y: 5})})
	snap := lastSnapshot(t, tick(g, ctx))
	if len(snap.Players) != 0 {
		t.Fatal("movement input spawned an avatar")
	}
}

func TestGarbagePayloadIgnored(t *testing.T) {
	g := New()
	id := uuid.New()
	ctx := &sim.Context{Delta: 0.05}

	ctx.PushIn(sim.ClientJoined{ClientID: id, ClientName: "alice"})
	ctx.PushIn(sim.Custom{ClientID: id, Payload: []byte("not json")})
	ctx.PushIn(sim.Custom{ClientID: id, Payload: []byte(`{"type":"wrong"}`)})
	ctx.PushIn(sim.Custom{ClientID: uuid.New(), Payload: mustInput(t, Input{Spawn: true})})

	outs := tick(g, ctx)
	if len(outs) != 1 {
		t.Fatalf("got %d out messages, want only the snapshot", len(outs))
	}
	if snap := lastSnapshot(t, outs); len(snap.Players) != 0 {
		t.Fatal("garbage input produced a player")
	}
}

func TestClientLeftRemovesAvatar(t *testing.T) {
	g := New()
	id := uuid.New()
	ctx := &sim.Context{Delta: 0.05}

	ctx.PushIn(sim.ClientJoined{ClientID: id, ClientName: "alice"})
	ctx.PushIn(sim.Custom{ClientID: id, Payload: mustInput(t, Input{X: 1, Y: 1, Spawn: true})})
	tick(g, ctx)

	ctx.PushIn(sim.ClientLeft{ClientID: id})
	if snap := lastSnapshot(t, tick(g, ctx)); len(snap.Players) != 0 {
		t.Fatalf("snapshot still has %d players after leave", len(snap.Players))
	}
}

func TestCrashAfterPanicsOnSchedule(t *testing.T) {
	g := CrashAfter(2)()
	ctx := &sim.Context{Delta: 0.05}

	g.Tick(ctx)

	defer func() {
		if recover() == nil {
			t.Fatal("second tick did not panic")
		}
	}()
	g.Tick(ctx)
}
