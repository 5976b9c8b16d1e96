// Package wire models the two halves of a duplex client connection.
//
// A Sink is the outbound half and a Stream the inbound half. Each half is
// single-owner and movable: a session hands its Sink to an instance on join
// and gets it back through a return channel on leave. The rate meter rides
// on the Sink so whoever currently owns it can answer Ping with the
// measured outbound rate.
package wire

import (
	"gamehost/protocol"
)

// Sink is the outbound half of a connection. Owned by exactly one party at
// a time; implementations serialize concurrent Sends but callers should not
// rely on that.
type Sink interface {
	// Send encodes and writes one server message. Errors are operational
	// (connection gone, deadline hit); callers log and swallow them.
	Send(msg protocol.ServerMsg) error

	// BytesPerSecond reports the smoothed outbound application-level byte
	// rate over roughly the last second.
	BytesPerSecond() float32
}

// Stream is the inbound half of a connection. Next blocks until a message
// arrives, the peer closes, or a decode error occurs. Any returned error is
// terminal for the stream.
type Stream interface {
	Next() (protocol.ClientMsg, error)
}
