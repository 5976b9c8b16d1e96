// Package protocol defines the client/server message kinds and the
// length-prefixed binary envelope they cross the wire in.
//
// Both variant sets are closed. The tag values below are part of the wire
// contract: they are stable, append-only, and decoders reject anything
// unknown. Custom payloads are opaque byte slices interpreted only by the
// simulation on the server and its counterpart on the client.
package protocol

import "github.com/google/uuid"

// ClientID identifies a connected client. Opaque: equality and text form only.
type ClientID = uuid.UUID

// InstanceID identifies a running instance.
type InstanceID = uuid.UUID

// InstanceInfo is the public metadata of an instance, as shown in lobby
// listings and join replies.
type InstanceInfo struct {
	ID             InstanceID
	Creator        ClientID
	CurrentPlayers uint32
	MaxPlayers     uint32
}

// ClientMsg is a message sent from a client to the server.
type ClientMsg interface{ clientMsg() }

// Hello must be the first message on every connection.
type Hello struct {
	ClientID   ClientID
	ClientName string
}

// JoinInstance asks to join the given instance.
type JoinInstance struct {
	InstanceID InstanceID
}

// LeaveInstance leaves the currently joined instance.
type LeaveInstance struct{}

// CustomMsg carries a simulation-defined payload to the joined instance.
type CustomMsg struct {
	Payload []byte
}

// Ping requests a Pong carrying the measured transfer rates. Tick is an
// opaque client timestamp echoed back unchanged.
type Ping struct {
	Tick float64
}

// RefreshInstances requests a fresh lobby listing.
type RefreshInstances struct{}

func (Hello) clientMsg()            {}
func (JoinInstance) clientMsg()     {}
func (LeaveInstance) clientMsg()    {}
func (CustomMsg) clientMsg()        {}
func (Ping) clientMsg()             {}
func (RefreshInstances) clientMsg() {}

// ServerMsg is a message sent from the server to a client.
type ServerMsg interface{ serverMsg() }

// JoinedLobby acknowledges the Hello handshake.
type JoinedLobby struct{}

// Instances is the lobby listing.
type Instances struct {
	List []InstanceInfo
}

// JoinedInstance acknowledges a successful join.
type JoinedInstance struct {
	Instance InstanceInfo
}

// Pong answers a Ping. The byte rates are application-level only and do
// not account for WebSocket or TCP overhead.
type Pong struct {
	Tick           float64
	ServerBytesSec float32
	ClientBytesSec float32
}

// Custom carries a simulation-defined payload to the client.
type Custom struct {
	Payload []byte
}

// JoinRejected tells a client its join was refused (instance at capacity).
type JoinRejected struct {
	Instance InstanceInfo
}

func (JoinedLobby) serverMsg()    {}
func (Instances) serverMsg()      {}
func (JoinedInstance) serverMsg() {}
func (Pong) serverMsg()           {}
func (Custom) serverMsg()         {}
func (JoinRejected) serverMsg()   {}

// Wire tags. Append-only; never renumber.
const (
	tagHello            = 0
	tagJoinInstance     = 1
	tagLeaveInstance    = 2
	tagCustomMsg        = 3
	tagPing             = 4
	tagRefreshInstances = 5
)

const (
	tagJoinedLobby    = 0
	tagInstances      = 1
	tagJoinedInstance = 2
	tagPong           = 3
	tagCustom         = 4
	tagJoinRejected   = 5
)
