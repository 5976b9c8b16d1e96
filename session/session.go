// Package session bridges one client connection to the lobby and, while
// joined, to an instance mailbox.
//
// A session starts owning both halves of its connection. A dedicated read
// pump decodes inbound frames into a channel; the session goroutine runs
// the state machine over it. On join the sink is lent to the instance
// through a ClientTransfer and comes back through a capacity-1 return
// channel: on leave, on capacity rejection, or when the instance
// terminates. The session blocks on that return before it resumes lobby
// state, so sink ownership is exclusive at every point.
package session

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"gamehost/instance"
	"gamehost/internal/monitoring"
	"gamehost/lobby"
	"gamehost/protocol"
	"gamehost/sim"
	"gamehost/wire"
)

// Config tunes per-session behavior. Zero values get defaults.
type Config struct {
	// MsgRate / MsgBurst bound inbound frames per second; frames over the
	// limit are dropped, not fatal.
	MsgRate  float64
	MsgBurst int
}

const (
	defaultMsgRate  = 200
	defaultMsgBurst = 400
)

// Session is the per-connection task state.
type Session struct {
	clientID   uuid.UUID
	clientName string

	sink    wire.Sink
	stream  wire.Stream
	lobby   *lobby.Lobby
	inbound chan protocol.ClientMsg
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// Run serves one connection until it closes or ctx is cancelled. The
// caller keeps ownership of the underlying transport and closes it after
// Run returns.
func Run(ctx context.Context, lb *lobby.Lobby, sink wire.Sink, stream wire.Stream, cfg Config, logger zerolog.Logger) {
	if cfg.MsgRate <= 0 {
		cfg.MsgRate = defaultMsgRate
	}
	if cfg.MsgBurst <= 0 {
		cfg.MsgBurst = defaultMsgBurst
	}
	s := &Session{
		sink:    sink,
		stream:  stream,
		lobby:   lb,
		inbound: make(chan protocol.ClientMsg, 16),
		limiter: rate.NewLimiter(rate.Limit(cfg.MsgRate), cfg.MsgBurst),
		logger:  logger,
	}
	go s.readPump(ctx)
	s.serve(ctx)
}

// readPump moves decoded frames from the stream into the inbound channel.
// Any stream error, decode failures included, ends the pump and closes
// the channel; the state machine funnels every termination through that
// single path.
func (s *Session) readPump(ctx context.Context) {
	defer close(s.inbound)
	for {
		msg, err := s.stream.Next()
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownTag) || errors.Is(err, protocol.ErrTruncated) || errors.Is(err, protocol.ErrTooLarge) {
				monitoring.DecodeErrors.Inc()
				s.logger.Debug().Err(err).Msg("Inbound frame failed to decode")
			} else if !errors.Is(err, io.EOF) {
				s.logger.Debug().Err(err).Msg("Stream closed")
			}
			return
		}
		monitoring.MessagesReceived.Inc()
		if !s.limiter.Allow() {
			monitoring.RateLimitedFrames.Inc()
			continue
		}
		select {
		case s.inbound <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// serve runs the handshake and then alternates between lobby and
// instance state until the connection ends.
func (s *Session) serve(ctx context.Context) {
	if !s.handshake(ctx) {
		return
	}

	s.logger = s.logger.With().
		Stringer("client_id", s.clientID).
		Str("client_name", s.clientName).
		Logger()
	s.logger.Info().Msg("Client entered lobby")

	s.send(protocol.JoinedLobby{})

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.inbound:
			if !ok {
				return
			}
			switch m := msg.(type) {
			case protocol.RefreshInstances:
				s.send(protocol.Instances{List: s.lobby.Instances()})
			case protocol.Ping:
				// No instance, no meter: rates are zero in lobby state.
				s.send(protocol.Pong{Tick: m.Tick})
			case protocol.JoinInstance:
				inst := s.lobby.Get(m.InstanceID)
				if inst == nil {
					// Not an error at the instance level; show the client
					// a fresh listing instead.
					s.send(protocol.Instances{List: s.lobby.Instances()})
					continue
				}
				if !s.joined(ctx, inst) {
					return
				}
			default:
				// Hello, CustomMsg and LeaveInstance have no meaning in
				// lobby state.
			}
		}
	}
}

// handshake consumes the first message, which must be Hello.
func (s *Session) handshake(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case msg, ok := <-s.inbound:
		if !ok {
			return false
		}
		hello, isHello := msg.(protocol.Hello)
		if !isHello {
			s.logger.Debug().Msg("First message was not Hello, closing")
			return false
		}
		s.clientID = hello.ClientID
		s.clientName = hello.ClientName
		return true
	}
}

// joined transfers the sink to inst and forwards inbound traffic until
// the sink comes back. Returns false when the session should terminate
// (stream gone or ctx cancelled); true to resume lobby state.
func (s *Session) joined(ctx context.Context, inst *instance.Instance) bool {
	ret := make(chan wire.Sink, 1)
	if err := inst.Transfer(s.clientID, s.clientName, s.sink, ret); err != nil {
		// Instance already terminated; the sink never left this session.
		s.send(protocol.Instances{List: s.lobby.Instances()})
		return true
	}
	s.sink = nil

	for {
		select {
		case <-ctx.Done():
			s.release(inst)
			s.sink = <-ret
			return false

		case returned := <-ret:
			// The instance handed the sink back on its own: the join was
			// rejected or the instance terminated. Back to the lobby.
			s.sink = returned
			return true

		case msg, ok := <-s.inbound:
			if !ok {
				s.release(inst)
				s.sink = <-ret
				return false
			}
			switch m := msg.(type) {
			case protocol.LeaveInstance:
				s.release(inst)
				s.sink = <-ret
				return true
			case protocol.CustomMsg:
				if err := inst.Deliver(sim.Custom{ClientID: s.clientID, Payload: m.Payload}); err != nil {
					s.sink = <-ret
					return true
				}
			case protocol.Ping:
				if err := inst.Ping(s.clientID, m.Tick); err != nil {
					s.sink = <-ret
					return true
				}
			default:
				// Joining elsewhere first requires leaving.
			}
		}
	}
}

// release signals ClientLeft. A closed instance has already queued the
// sink return, so the error is ignored either way.
func (s *Session) release(inst *instance.Instance) {
	_ = inst.Deliver(sim.ClientLeft{ClientID: s.clientID})
}

// send writes on the session-owned sink; send errors are logged and
// swallowed, the wire layer's close will end the read pump soon enough.
func (s *Session) send(msg protocol.ServerMsg) {
	if err := s.sink.Send(msg); err != nil {
		s.logger.Debug().Err(err).Msg("Session send failed")
	}
}
