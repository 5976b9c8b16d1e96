package wire

import (
	"errors"
	"io"
	"sync"

	"gamehost/protocol"
)

// ErrPipeBroken is returned by a pipe sink after Break or Close.
var ErrPipeBroken = errors.New("wire: pipe broken")

// Pipe builds an in-memory connection: a server-side Sink/Stream pair and
// the matching client end. Messages pass through the real codec so byte
// accounting matches the WebSocket implementation. Used by tests and the
// test bot; never by production code paths.
func Pipe() (Sink, Stream, *PipeClient) {
	c := &PipeClient{
		fromServer: make(chan protocol.ServerMsg, 256),
		toServer:   make(chan protocol.ClientMsg, 256),
	}
	return &pipeSink{client: c, meter: NewRateMeter()}, &pipeStream{client: c}, c
}

// PipeClient is the client end of an in-memory connection.
type PipeClient struct {
	fromServer chan protocol.ServerMsg
	toServer   chan protocol.ClientMsg

	mu        sync.Mutex
	broken    bool
	sendClose sync.Once
}

// Recv exposes everything the server has sent.
func (c *PipeClient) Recv() <-chan protocol.ServerMsg { return c.fromServer }

// Send delivers one client message to the server's stream.
func (c *PipeClient) Send(msg protocol.ClientMsg) {
	c.toServer <- msg
}

// CloseSend ends the inbound stream, as a peer disconnect would.
func (c *PipeClient) CloseSend() {
	c.sendClose.Do(func() { close(c.toServer) })
}

// Break makes every subsequent sink send fail, simulating a dead outbound
// connection while the stream stays open.
func (c *PipeClient) Break() {
	c.mu.Lock()
	c.broken = true
	c.mu.Unlock()
}

func (c *PipeClient) isBroken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.broken
}

type pipeSink struct {
	client *PipeClient
	meter  *RateMeter
}

func (s *pipeSink) Send(msg protocol.ServerMsg) error {
	if s.client.isBroken() {
		return ErrPipeBroken
	}
	frame := protocol.EncodeServerMsg(msg)
	decoded, err := protocol.DecodeServerMsg(frame)
	if err != nil {
		return err
	}
	select {
	case s.client.fromServer <- decoded:
		s.meter.Add(len(frame))
		return nil
	default:
		return ErrPipeBroken
	}
}

func (s *pipeSink) BytesPerSecond() float32 {
	return s.meter.PerSecond()
}

type pipeStream struct {
	client *PipeClient
}

func (s *pipeStream) Next() (protocol.ClientMsg, error) {
	msg, ok := <-s.client.toServer
	if !ok {
		return nil, io.EOF
	}
	return msg, nil
}
