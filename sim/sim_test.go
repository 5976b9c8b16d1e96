package sim

import (
	"testing"

	"github.com/google/uuid"
)

func TestContextInOrder(t *testing.T) {
	ctx := &Context{}
	a, b := uuid.New(), uuid.New()

	ctx.PushIn(ClientJoined{ClientID: a, ClientName: "a"})
	ctx.PushIn(Custom{ClientID: a, Payload: []byte("1")})
	ctx.PushIn(Custom{ClientID: b, Payload: []byte("2")})
	ctx.PushIn(ClientLeft{ClientID: a})

	if got := ctx.PendingIn(); got != 4 {
		t.Fatalf("PendingIn = %d, want 4", got)
	}

	msg, ok := ctx.PopIn()
	if !ok {
		t.Fatal("PopIn returned nothing")
	}
	if j, isJoin := msg.(ClientJoined); !isJoin || j.ClientID != a {
		t.Fatalf("first message = %#v, want ClientJoined for %v", msg, a)
	}
	msg, _ = ctx.PopIn()
	if c := msg.(Custom); string(c.Payload) != "1" {
		t.Fatalf("second payload = %q, want %q", c.Payload, "1")
	}
	msg, _ = ctx.PopIn()
	if c := msg.(Custom); string(c.Payload) != "2" {
		t.Fatalf("third payload = %q, want %q", c.Payload, "2")
	}
	msg, _ = ctx.PopIn()
	if l, isLeft := msg.(ClientLeft); !isLeft || l.ClientID != a {
		t.Fatalf("fourth message = %#v, want ClientLeft for %v", msg, a)
	}

	if _, ok := ctx.PopIn(); ok {
		t.Fatal("PopIn on empty context returned a message")
	}
}

func TestContextDrainOut(t *testing.T) {
	ctx := &Context{}
	ctx.PushOut(CustomToAll{Payload: []byte("x")})
	ctx.PushOut(CustomTo{ClientID: uuid.New(), Payload: []byte("y")})

	out := ctx.DrainOut()
	if len(out) != 2 {
		t.Fatalf("DrainOut returned %d messages, want 2", len(out))
	}
	if _, ok := out[0].(CustomToAll); !ok {
		t.Fatalf("out[0] = %#v, want CustomToAll", out[0])
	}
	if _, ok := out[1].(CustomTo); !ok {
		t.Fatalf("out[1] = %#v, want CustomTo", out[1])
	}

	if again := ctx.DrainOut(); len(again) != 0 {
		t.Fatalf("second DrainOut returned %d messages, want 0", len(again))
	}
}

func TestContextClearIn(t *testing.T) {
	ctx := &Context{}
	ctx.PushIn(Custom{Payload: []byte("leftover")})
	ctx.ClearIn()
	if got := ctx.PendingIn(); got != 0 {
		t.Fatalf("PendingIn after ClearIn = %d, want 0", got)
	}
	if _, ok := ctx.PopIn(); ok {
		t.Fatal("PopIn after ClearIn returned a message")
	}
}
