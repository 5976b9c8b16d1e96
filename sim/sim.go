// Package sim is the contract between the instance runtime and a game
// simulation. The runtime owns the Context and calls Tick at the
// configured rate; the simulation owns its own state across calls and
// must not retain the Context past a call.
package sim

import "github.com/google/uuid"

// Config is returned by Init and fixes the runtime parameters of one
// instance for its lifetime.
type Config struct {
	// TickRate is the number of Tick calls per second.
	TickRate uint32
	// MaxPlayers caps concurrent clients; joins beyond it are rejected.
	MaxPlayers uint32
}

// InMsg is a message delivered to the simulation. The set is closed.
type InMsg interface{ inMsg() }

// ClientJoined is pushed by the runtime when a join is accepted.
type ClientJoined struct {
	ClientID   uuid.UUID
	ClientName string
}

// ClientLeft is pushed when a client leaves or its connection dies.
type ClientLeft struct {
	ClientID uuid.UUID
}

// Custom carries an opaque payload from one client.
type Custom struct {
	ClientID uuid.UUID
	Payload  []byte
}

func (ClientJoined) inMsg() {}
func (ClientLeft) inMsg()   {}
func (Custom) inMsg()       {}

// OutMsg is a fan-out instruction emitted by the simulation.
type OutMsg interface{ outMsg() }

// CustomToAll sends the payload to every connected client.
type CustomToAll struct {
	Payload []byte
}

// CustomTo sends the payload to one client; silently dropped when the
// client is not connected.
type CustomTo struct {
	ClientID uuid.UUID
	Payload  []byte
}

func (CustomToAll) outMsg() {}
func (CustomTo) outMsg()    {}

// Context is the per-tick exchange area. In-messages accumulate between
// ticks in mailbox order; out-messages are drained by the runtime after
// Tick returns.
//
// Delta is the real elapsed time since the previous tick completed, not
// the nominal period. After a stall it can be arbitrarily large;
// simulations that integrate motion must clamp it themselves.
type Context struct {
	in  []InMsg
	out []OutMsg

	// Delta is seconds since the previous tick completion.
	Delta float64
	// Time is monotonically increasing seconds since instance start.
	Time float64
}

// PopIn removes and returns the oldest in-message. Simulations drain the
// queue with this during Tick.
func (c *Context) PopIn() (InMsg, bool) {
	if len(c.in) == 0 {
		return nil, false
	}
	msg := c.in[0]
	c.in = c.in[1:]
	return msg, true
}

// PendingIn returns the number of queued in-messages.
func (c *Context) PendingIn() int { return len(c.in) }

// PushOut queues a fan-out message for the runtime to deliver after this
// tick.
func (c *Context) PushOut(msg OutMsg) {
	c.out = append(c.out, msg)
}

// PushIn appends an in-message. Called by the runtime between ticks.
func (c *Context) PushIn(msg InMsg) {
	c.in = append(c.in, msg)
}

// DrainOut removes and returns all queued out-messages. Called by the
// runtime after Tick.
func (c *Context) DrainOut() []OutMsg {
	out := c.out
	c.out = nil
	return out
}

// ClearIn discards any in-messages the simulation left behind. Called by
// the runtime at end of tick; nothing carries over.
func (c *Context) ClearIn() {
	c.in = c.in[:0]
}

// Simulation is the plug-in interface an instance runtime drives.
type Simulation interface {
	// Init is called once before the first tick.
	Init() Config
	// Tick advances the simulation. It must fully drain the context's
	// in-messages and may push any number of out-messages. It is
	// synchronous from the runtime's perspective.
	Tick(ctx *Context)
}

// Constructor produces a fresh simulation for a new instance.
type Constructor func() Simulation
