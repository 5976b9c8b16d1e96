package lobby

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gamehost/sim"
	"gamehost/wire"
)

type idleSim struct{}

func (idleSim) Init() sim.Config  { return sim.Config{TickRate: 100, MaxPlayers: 2} }
func (idleSim) Tick(*sim.Context) {}

func newIdleSim() sim.Simulation { return idleSim{} }

func TestCreateListGetRemove(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lb := New(zerolog.Nop(), nil)
	creator := uuid.New()

	id := lb.NewInstance(ctx, creator, newIdleSim)

	inst := lb.Get(id)
	if inst == nil {
		t.Fatal("Get returned nil for a just-created instance")
	}
	if inst.ID() != id {
		t.Fatalf("instance id = %v, want %v", inst.ID(), id)
	}

	list := lb.Instances()
	if len(list) != 1 {
		t.Fatalf("Instances() has %d entries, want 1", len(list))
	}
	if list[0].ID != id || list[0].Creator != creator {
		t.Fatalf("listing = %+v, want id %v creator %v", list[0], id, creator)
	}

	// Listings are snapshots; mutating one does not touch the registry.
	list[0].CurrentPlayers = 99
	if lb.Instances()[0].CurrentPlayers != 0 {
		t.Fatal("mutating a listing leaked into the registry")
	}

	lb.Remove(id)
	if lb.Get(id) != nil {
		t.Fatal("Get returned a handle after Remove")
	}
	if got := len(lb.Instances()); got != 0 {
		t.Fatalf("Instances() has %d entries after Remove, want 0", got)
	}
}

func TestListingReflectsOccupancy(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lb := New(zerolog.Nop(), nil)

	id := lb.NewInstance(ctx, uuid.New(), newIdleSim)
	inst := lb.Get(id)

	sink, _, pc := wire.Pipe()
	ret := make(chan wire.Sink, 1)
	if err := inst.Transfer(uuid.New(), "alice", sink, ret); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	select {
	case <-pc.Recv():
	case <-time.After(2 * time.Second):
		t.Fatal("no join reply")
	}

	list := lb.Instances()
	if len(list) != 1 || list[0].CurrentPlayers != 1 || list[0].MaxPlayers != 2 {
		t.Fatalf("listing = %+v, want 1/2 occupancy", list)
	}
}

func TestUnknownInstance(t *testing.T) {
	lb := New(zerolog.Nop(), nil)
	if lb.Get(uuid.New()) != nil {
		t.Fatal("Get returned a handle for an unknown id")
	}
}

func TestTerminatedInstanceStaysListed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lb := New(zerolog.Nop(), nil)

	id := lb.NewInstance(ctx, uuid.New(), newIdleSim)
	inst := lb.Get(id)
	cancel()
	select {
	case <-inst.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("instance did not terminate")
	}

	// The handle stays registered so late joins find the dead instance
	// and fail at Transfer instead of vanishing silently.
	if lb.Get(id) == nil {
		t.Fatal("terminated instance was unlisted")
	}
}
