package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
)

// Envelope layout, little-endian throughout:
//
//	u32 body length | u8 tag | fields
//
// Field primitives: uuid = 16 raw bytes, string/bytes = u32 length + raw
// bytes, u32 as-is, f32/f64 = IEEE bits, lists = u16 count + elements.

// MaxEnvelopeSize caps the body length a decoder will accept.
const MaxEnvelopeSize = 1 << 20

var (
	// ErrUnknownTag is returned for a tag outside the closed variant set.
	ErrUnknownTag = errors.New("protocol: unknown message tag")
	// ErrTruncated is returned when an envelope body ends mid-field.
	ErrTruncated = errors.New("protocol: truncated envelope")
	// ErrTooLarge is returned when a length prefix exceeds MaxEnvelopeSize.
	ErrTooLarge = errors.New("protocol: envelope exceeds size limit")
)

// EncodeClientMsg serializes m into a full envelope, length prefix included.
func EncodeClientMsg(m ClientMsg) []byte {
	var w writer
	switch m := m.(type) {
	case Hello:
		w.tag(tagHello)
		w.uuid(m.ClientID)
		w.str(m.ClientName)
	case JoinInstance:
		w.tag(tagJoinInstance)
		w.uuid(m.InstanceID)
	case LeaveInstance:
		w.tag(tagLeaveInstance)
	case CustomMsg:
		w.tag(tagCustomMsg)
		w.bytes(m.Payload)
	case Ping:
		w.tag(tagPing)
		w.f64(m.Tick)
	case RefreshInstances:
		w.tag(tagRefreshInstances)
	default:
		panic(fmt.Sprintf("protocol: unhandled client message %T", m))
	}
	return w.envelope()
}

// EncodeServerMsg serializes m into a full envelope, length prefix included.
func EncodeServerMsg(m ServerMsg) []byte {
	var w writer
	switch m := m.(type) {
	case JoinedLobby:
		w.tag(tagJoinedLobby)
	case Instances:
		w.tag(tagInstances)
		w.u16(uint16(len(m.List)))
		for _, info := range m.List {
			w.info(info)
		}
	case JoinedInstance:
		w.tag(tagJoinedInstance)
		w.info(m.Instance)
	case Pong:
		w.tag(tagPong)
		w.f64(m.Tick)
		w.f32(m.ServerBytesSec)
		w.f32(m.ClientBytesSec)
	case Custom:
		w.tag(tagCustom)
		w.bytes(m.Payload)
	case JoinRejected:
		w.tag(tagJoinRejected)
		w.info(m.Instance)
	default:
		panic(fmt.Sprintf("protocol: unhandled server message %T", m))
	}
	return w.envelope()
}

// DecodeClientMsg parses a full envelope produced by EncodeClientMsg.
func DecodeClientMsg(frame []byte) (ClientMsg, error) {
	r, err := newReader(frame)
	if err != nil {
		return nil, err
	}
	var m ClientMsg
	switch tag := r.tag(); tag {
	case tagHello:
		m = Hello{ClientID: r.uuid(), ClientName: r.str()}
	case tagJoinInstance:
		m = JoinInstance{InstanceID: r.uuid()}
	case tagLeaveInstance:
		m = LeaveInstance{}
	case tagCustomMsg:
		m = CustomMsg{Payload: r.bytes()}
	case tagPing:
		m = Ping{Tick: r.f64()}
	case tagRefreshInstances:
		m = RefreshInstances{}
	default:
		return nil, fmt.Errorf("%w: client tag %d", ErrUnknownTag, tag)
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeServerMsg parses a full envelope produced by EncodeServerMsg.
func DecodeServerMsg(frame []byte) (ServerMsg, error) {
	r, err := newReader(frame)
	if err != nil {
		return nil, err
	}
	var m ServerMsg
	switch tag := r.tag(); tag {
	case tagJoinedLobby:
		m = JoinedLobby{}
	case tagInstances:
		n := int(r.u16())
		var list []InstanceInfo
		for i := 0; i < n && r.err == nil; i++ {
			list = append(list, r.info())
		}
		m = Instances{List: list}
	case tagJoinedInstance:
		m = JoinedInstance{Instance: r.info()}
	case tagPong:
		m = Pong{Tick: r.f64(), ServerBytesSec: r.f32(), ClientBytesSec: r.f32()}
	case tagCustom:
		m = Custom{Payload: r.bytes()}
	case tagJoinRejected:
		m = JoinRejected{Instance: r.info()}
	default:
		return nil, fmt.Errorf("%w: server tag %d", ErrUnknownTag, tag)
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	return m, nil
}

// ReadEnvelope reads one self-delimiting envelope from r and returns it
// whole, length prefix included, ready for DecodeClientMsg/DecodeServerMsg.
func ReadEnvelope(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(prefix[:])
	if n > MaxEnvelopeSize {
		return nil, ErrTooLarge
	}
	frame := make([]byte, 4+int(n))
	copy(frame, prefix[:])
	if _, err := io.ReadFull(r, frame[4:]); err != nil {
		return nil, err
	}
	return frame, nil
}

type writer struct {
	buf []byte
}

func (w *writer) tag(t byte) { w.buf = append(w.buf, t) }

func (w *writer) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *writer) f64(v float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}

func (w *writer) uuid(id uuid.UUID) { w.buf = append(w.buf, id[:]...) }

func (w *writer) bytes(b []byte) {
	w.u32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) info(info InstanceInfo) {
	w.uuid(info.ID)
	w.uuid(info.Creator)
	w.u32(info.CurrentPlayers)
	w.u32(info.MaxPlayers)
}

// envelope prepends the length prefix to the accumulated body.
func (w *writer) envelope() []byte {
	out := make([]byte, 4+len(w.buf))
	binary.LittleEndian.PutUint32(out, uint32(len(w.buf)))
	copy(out[4:], w.buf)
	return out
}

// reader is a cursor over an envelope body. The first decode error sticks;
// subsequent reads return zero values and finish reports the error.
type reader struct {
	buf []byte
	off int
	err error
}

func newReader(frame []byte) (*reader, error) {
	if len(frame) < 5 {
		return nil, ErrTruncated
	}
	n := binary.LittleEndian.Uint32(frame)
	if n > MaxEnvelopeSize {
		return nil, ErrTooLarge
	}
	if int(n) != len(frame)-4 {
		return nil, ErrTruncated
	}
	return &reader{buf: frame[4:]}, nil
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = ErrTruncated
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) tag() byte {
	b := r.take(1)
	if b == nil {
		return 0xff
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }

func (r *reader) f64() float64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func (r *reader) uuid() uuid.UUID {
	var id uuid.UUID
	copy(id[:], r.take(16))
	return id
}

func (r *reader) bytes() []byte {
	n := r.u32()
	if r.err != nil {
		return nil
	}
	if n == 0 {
		return nil
	}
	b := r.take(int(n))
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (r *reader) str() string {
	n := r.u32()
	if r.err != nil {
		return ""
	}
	return string(r.take(int(n)))
}

func (r *reader) info() InstanceInfo {
	return InstanceInfo{
		ID:             r.uuid(),
		Creator:        r.uuid(),
		CurrentPlayers: r.u32(),
		MaxPlayers:     r.u32(),
	}
}

// finish reports any sticky decode error and rejects trailing bytes.
func (r *reader) finish() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return fmt.Errorf("%w: %d trailing bytes", ErrTruncated, len(r.buf)-r.off)
	}
	return nil
}
