package wire

import (
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"

	"gamehost/protocol"
)

func TestPipeRoundTrip(t *testing.T) {
	sink, stream, pc := Pipe()

	if err := sink.Send(protocol.JoinedLobby{}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, ok := (<-pc.Recv()).(protocol.JoinedLobby); !ok {
		t.Fatal("client did not receive JoinedLobby")
	}

	pc.Send(protocol.Hello{ClientID: uuid.New(), ClientName: "alice"})
	msg, err := stream.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	hello, ok := msg.(protocol.Hello)
	if !ok || hello.ClientName != "alice" {
		t.Fatalf("stream yielded %#v, want the Hello", msg)
	}

	// Traffic passed through the codec, so the meter has bytes.
	if sink.BytesPerSecond() <= 0 {
		t.Fatalf("BytesPerSecond = %v, want > 0 after a send", sink.BytesPerSecond())
	}
}

func TestPipeCloseSend(t *testing.T) {
	_, stream, pc := Pipe()
	pc.CloseSend()
	pc.CloseSend() // idempotent
	if _, err := stream.Next(); err != io.EOF {
		t.Fatalf("Next after close = %v, want io.EOF", err)
	}
}

func TestPipeBreak(t *testing.T) {
	sink, _, pc := Pipe()
	pc.Break()
	if err := sink.Send(protocol.JoinedLobby{}); !errors.Is(err, ErrPipeBroken) {
		t.Fatalf("Send on broken pipe = %v, want ErrPipeBroken", err)
	}
}
