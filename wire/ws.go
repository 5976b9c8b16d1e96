package wire

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"gamehost/protocol"
)

// Time allowed to write one message to the peer before the connection is
// considered gone.
const writeWait = 5 * time.Second

// NewWebSocket splits an upgraded WebSocket connection into its metered
// outbound half and its decoding inbound half. Envelopes travel one per
// binary frame.
func NewWebSocket(conn net.Conn) (Sink, Stream) {
	return &wsSink{conn: conn, meter: NewRateMeter()}, &wsStream{conn: conn}
}

type wsSink struct {
	mu    sync.Mutex
	conn  net.Conn
	meter *RateMeter
}

func (s *wsSink) Send(msg protocol.ServerMsg) error {
	frame := protocol.EncodeServerMsg(msg)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := wsutil.WriteServerBinary(s.conn, frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	s.meter.Add(len(frame))
	return nil
}

func (s *wsSink) BytesPerSecond() float32 {
	return s.meter.PerSecond()
}

type wsStream struct {
	conn net.Conn
}

func (s *wsStream) Next() (protocol.ClientMsg, error) {
	for {
		data, op, err := wsutil.ReadClientData(s.conn)
		if err != nil {
			return nil, err
		}
		switch op {
		case ws.OpBinary:
			msg, err := protocol.DecodeClientMsg(data)
			if err != nil {
				return nil, err
			}
			return msg, nil
		case ws.OpClose:
			return nil, net.ErrClosed
		default:
			// Text and stray control frames carry no protocol data.
		}
	}
}
