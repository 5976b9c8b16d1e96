// Package instance implements the per-instance actor: one goroutine that
// couples a fixed-rate tick clock with a bounded mailbox, owns the client
// sinks while their sessions are joined, and fans simulation output out to
// them without ever blocking the tick clock.
//
// External parties talk to an instance only through mailbox sends. The
// sink of a joining client travels session -> instance -> session; the
// return channel passed with the transfer fires exactly once on every
// exit path, including capacity rejection and simulation failure.
package instance

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gamehost/internal/events"
	"gamehost/internal/monitoring"
	"gamehost/protocol"
	"gamehost/sim"
	"gamehost/wire"
)

// MailboxSize bounds the actor mailbox. Senders block when it is full,
// which couples producer rate to the tick rate.
const MailboxSize = 1024

// ErrClosed is returned for sends to an instance whose actor has exited.
var ErrClosed = errors.New("instance: closed")

type mail interface{ mailMsg() }

// clientTransfer offers a client's sink to the instance. ret must have
// capacity 1; it receives the sink back exactly once.
type clientTransfer struct {
	clientID   uuid.UUID
	clientName string
	sink       wire.Sink
	ret        chan<- wire.Sink
}

type inMail struct {
	msg sim.InMsg
}

type pingMail struct {
	clientID uuid.UUID
	tick     float64
}

func (clientTransfer) mailMsg() {}
func (inMail) mailMsg()         {}
func (pingMail) mailMsg()       {}

// heldClient is a joined client as the actor sees it: the borrowed sink
// and the unfulfilled return channel owed to its session.
type heldClient struct {
	sink wire.Sink
	ret  chan<- wire.Sink
}

// Instance is the shareable handle to one running instance. The handle is
// cheap to copy between goroutines; the actor's lifetime is driven by its
// own goroutine, not by handle count.
type Instance struct {
	info      *infoCell
	mailbox   chan mail
	done      chan struct{}
	logger    zerolog.Logger
	publisher *events.Publisher

	// mu/closed/pending fence posts against actor exit, so cleanup can
	// wait out in-flight sends and drain the mailbox. A transfer that
	// lands after the actor stopped dispatching still gets its sink back.
	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// New spawns the actor goroutine for a fresh instance. The simulation is
// built and initialized inside the actor; Config fixes tick rate and
// capacity for the instance lifetime. Cancelling ctx terminates the
// actor, which returns every held sink before exiting. publisher may be
// nil.
func New(ctx context.Context, info protocol.InstanceInfo, construct sim.Constructor, logger zerolog.Logger, publisher *events.Publisher) *Instance {
	inst := &Instance{
		info:      &infoCell{info: info},
		mailbox:   make(chan mail, MailboxSize),
		done:      make(chan struct{}),
		logger:    logger.With().Stringer("instance_id", info.ID).Logger(),
		publisher: publisher,
	}
	go inst.run(ctx, construct)
	return inst
}

// ID returns the instance identifier.
func (i *Instance) ID() protocol.InstanceID { return i.info.snapshot().ID }

// Info returns a point-in-time snapshot of the public metadata.
func (i *Instance) Info() protocol.InstanceInfo { return i.info.snapshot() }

// Done is closed when the actor stops dispatching. Every owed sink is
// on its return channel no later than shortly after; waiters block on
// their own channel, not on Done.
func (i *Instance) Done() <-chan struct{} { return i.done }

// Transfer offers a client's sink to the instance. On success the
// instance owns the sink until it hands it back through ret: immediately
// on capacity rejection, on ClientLeft, or on actor termination.
func (i *Instance) Transfer(clientID uuid.UUID, clientName string, sink wire.Sink, ret chan<- wire.Sink) error {
	return i.post(clientTransfer{clientID: clientID, clientName: clientName, sink: sink, ret: ret})
}

// Deliver queues a simulation in-message (ClientLeft, Custom) for the
// next tick.
func (i *Instance) Deliver(msg sim.InMsg) error {
	return i.post(inMail{msg: msg})
}

// Ping asks the instance to answer on the client's sink with the rates
// measured by its meter.
func (i *Instance) Ping(clientID uuid.UUID, tick float64) error {
	return i.post(pingMail{clientID: clientID, tick: tick})
}

func (i *Instance) post(m mail) error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return ErrClosed
	}
	i.pending.Add(1)
	i.mu.Unlock()
	defer i.pending.Done()

	select {
	case i.mailbox <- m:
		return nil
	case <-i.done:
		return ErrClosed
	}
}

func (i *Instance) run(ctx context.Context, construct sim.Constructor) {
	clients := make(map[uuid.UUID]heldClient)
	started := false

	defer func() {
		if r := recover(); r != nil {
			i.logger.Error().
				Interface("panic_value", r).
				Str("stack_trace", string(debug.Stack())).
				Msg("Instance actor panicked")
		}

		i.mu.Lock()
		i.closed = true
		i.mu.Unlock()
		close(i.done)
		i.pending.Wait()

		// Undelivered transfers still owe their session a sink.
	drain:
		for {
			select {
			case m := <-i.mailbox:
				if tr, ok := m.(clientTransfer); ok {
					tr.ret <- tr.sink
				}
			default:
				break drain
			}
		}

		for id, c := range clients {
			c.ret <- c.sink
			delete(clients, id)
			i.info.drop()
			monitoring.ClientsJoined.Dec()
		}
		if started {
			monitoring.InstancesActive.Dec()
		}
		i.logger.Info().Msg("Instance terminated")
	}()

	g, cfg, err := initSimulation(construct)
	if err != nil {
		i.logger.Error().Err(err).Msg("Simulation failed to initialize")
		return
	}
	if cfg.TickRate == 0 {
		cfg.TickRate = 1
	}
	i.info.setCapacity(cfg.MaxPlayers)
	started = true
	monitoring.InstancesActive.Inc()

	period := time.Second / time.Duration(cfg.TickRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	tctx := &sim.Context{Delta: period.Seconds()}

	i.logger.Info().
		Uint32("tick_rate", cfg.TickRate).
		Uint32("max_players", cfg.MaxPlayers).
		Msg("Instance started")

	lastTick := time.Now()
	for {
		// One mailbox message per cycle; the ticker's own missed-tick
		// coalescing keeps the clock from starving under inbound load.
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			tctx.Delta = now.Sub(lastTick).Seconds()
			tctx.Time += tctx.Delta
			if err := tick(g, tctx); err != nil {
				i.logger.Error().Err(err).Msg("Simulation failed, terminating instance")
				return
			}
			for _, out := range tctx.DrainOut() {
				i.fanOut(clients, out)
			}
			tctx.ClearIn()
			lastTick = time.Now()

		case m := <-i.mailbox:
			i.dispatch(clients, tctx, m)
		}
	}
}

func (i *Instance) dispatch(clients map[uuid.UUID]heldClient, tctx *sim.Context, m mail) {
	switch m := m.(type) {
	case clientTransfer:
		i.admit(clients, tctx, m)

	case inMail:
		switch msg := m.msg.(type) {
		case sim.ClientLeft:
			if held, ok := clients[msg.ClientID]; ok {
				delete(clients, msg.ClientID)
				info := i.info.drop()
				held.ret <- held.sink
				monitoring.ClientsJoined.Dec()
				i.logger.Info().
					Stringer("client_id", msg.ClientID).
					Uint32("current_players", info.CurrentPlayers).
					Msg("Client left instance")
				i.publisher.Publish(events.SubjectClientLeft, info, msg.ClientID.String(), "")
			}
			tctx.PushIn(msg)
		case sim.ClientJoined:
			// Pushed by the actor itself during admit; sessions never
			// deliver it.
		default:
			tctx.PushIn(m.msg)
		}

	case pingMail:
		held, ok := clients[m.clientID]
		if !ok {
			return
		}
		rate := held.sink.BytesPerSecond()
		i.send(m.clientID, held.sink, protocol.Pong{
			Tick:           m.tick,
			ServerBytesSec: rate,
			ClientBytesSec: rate,
		})
	}
}

func (i *Instance) admit(clients map[uuid.UUID]heldClient, tctx *sim.Context, m clientTransfer) {
	if _, dup := clients[m.clientID]; dup {
		// A second connection presenting an id that is already joined
		// would orphan the first sink's return channel. Reject it.
		i.send(m.clientID, m.sink, protocol.JoinRejected{Instance: i.info.snapshot()})
		m.ret <- m.sink
		monitoring.JoinsRejected.Inc()
		return
	}

	info, ok := i.info.tryAdd()
	if !ok {
		i.send(m.clientID, m.sink, protocol.JoinRejected{Instance: info})
		m.ret <- m.sink
		monitoring.JoinsRejected.Inc()
		i.logger.Info().
			Stringer("client_id", m.clientID).
			Uint32("max_players", info.MaxPlayers).
			Msg("Join rejected, instance full")
		return
	}

	i.send(m.clientID, m.sink, protocol.JoinedInstance{Instance: info})
	clients[m.clientID] = heldClient{sink: m.sink, ret: m.ret}
	tctx.PushIn(sim.ClientJoined{ClientID: m.clientID, ClientName: m.clientName})
	monitoring.JoinsAccepted.Inc()
	monitoring.ClientsJoined.Inc()
	i.logger.Info().
		Stringer("client_id", m.clientID).
		Str("client_name", m.clientName).
		Uint32("current_players", info.CurrentPlayers).
		Msg("Client joined instance")
	i.publisher.Publish(events.SubjectClientJoined, info, m.clientID.String(), m.clientName)
}

func (i *Instance) fanOut(clients map[uuid.UUID]heldClient, out sim.OutMsg) {
	switch out := out.(type) {
	case sim.CustomToAll:
		for id, held := range clients {
			i.send(id, held.sink, protocol.Custom{Payload: out.Payload})
		}
	case sim.CustomTo:
		if held, ok := clients[out.ClientID]; ok {
			i.send(out.ClientID, held.sink, protocol.Custom{Payload: out.Payload})
		}
	}
}

// send writes one message on a sink. Send errors are swallowed: a dead
// connection is the session's problem, and the client stays registered
// until its session signals ClientLeft.
func (i *Instance) send(clientID uuid.UUID, sink wire.Sink, msg protocol.ServerMsg) {
	if err := sink.Send(msg); err != nil {
		i.logger.Debug().Err(err).Stringer("client_id", clientID).Msg("Sink send failed")
		return
	}
	monitoring.MessagesFannedOut.Inc()
}

// initSimulation runs the constructor and Init with panic isolation so a
// broken plug-in cannot take the process down.
func initSimulation(construct sim.Constructor) (g sim.Simulation, cfg sim.Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("simulation init panic: %v\n%s", r, debug.Stack())
		}
	}()
	g = construct()
	cfg = g.Init()
	return g, cfg, nil
}

// tick runs one simulation step with panic isolation. A panic is fatal
// to the instance only, never the process.
func tick(g sim.Simulation, tctx *sim.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("simulation tick panic: %v\n%s", r, debug.Stack())
		}
	}()
	g.Tick(tctx)
	return nil
}
