// Package broker implements the MQTT protocol engine: the per-client
// session state machine, the subscription index, the retained-message
// store, the QoS 1/2 acknowledgement engine, and the single event loop
// that drives them.
package broker

import (
	"bufio"
)

// SessionID is the stable handle used to address a Session. The
// subscription index stores SessionIDs, never pointers or slice indices,
// so that a Session's position in the broker's session map can never
// invalidate a reference held elsewhere.
type SessionID uint64

// State is a Session's position in the connection FSM.
type State int

const (
	StateAwaitConnect State = iota
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitConnect:
		return "AWAIT_CONNECT"
	case StateConnected:
		return "CONNECTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// LWT is a client's Last Will and Testament, captured at CONNECT and
// published by the broker on ungraceful close.
type LWT struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// OutPhase is where an outbound QoS 1/2 delivery sits in its handshake.
type OutPhase int

const (
	PhaseAwaitPubAck OutPhase = iota
	PhaseAwaitPubRec
	PhaseAwaitPubComp
)

// OutboundInFlight is a QoS 1 or 2 PUBLISH the broker sent to a subscriber
// and is still awaiting acknowledgement for.
type OutboundInFlight struct {
	Topic      string
	Payload    []byte
	QoS        byte
	Retain     bool
	PacketID   uint16
	Phase      OutPhase
	LastSendMs int64
	Retries    int
}

// InboundQoS2 is a QoS 2 PUBLISH the broker has PUBREC'd and is holding
// until the matching PUBREL arrives.
type InboundQoS2 struct {
	Topic      string
	Payload    []byte
	Retain     bool
	PacketID   uint16
	LastSendMs int64
}

// Subscription is one (filter, granted QoS) entry a Session holds.
type Subscription struct {
	Filter string
	QoS    byte
}

// Session is the per-connection state: one per TCP or WebSocket client,
// exclusive owner of its transport, advanced only by the broker's single
// event loop.
type Session struct {
	ID     SessionID
	Conn   netConn
	Reader *bufio.Reader

	ClientID string
	State    State

	LastSeenMs   int64
	KeepAliveSec uint16

	Will *LWT

	Subscriptions []Subscription

	OutboundQoS map[uint16]*OutboundInFlight
	InboundQoS2 map[uint16]*InboundQoS2

	nextPID uint16
}

// newSession wraps a freshly accepted connection in an AWAIT_CONNECT
// session. id must be unique and stable for the life of the broker process.
func newSession(id SessionID, conn netConn) *Session {
	return &Session{
		ID:          id,
		Conn:        conn,
		Reader:      bufio.NewReader(conn),
		State:       StateAwaitConnect,
		OutboundQoS: make(map[uint16]*OutboundInFlight),
		InboundQoS2: make(map[uint16]*InboundQoS2),
		nextPID:     1,
	}
}

// NextPacketID returns the next outbound packet identifier, wrapping from
// 65535 back to 1. Packet id 0 is never used for QoS-carrying packets
// [MQTT-2.3.1-1].
func (s *Session) NextPacketID() uint16 {
	id := s.nextPID
	s.nextPID++
	if s.nextPID == 0 {
		s.nextPID = 1
	}
	return id
}

// filterIndex returns the position of filter in the session's subscription
// list, or -1. Used by SUBSCRIBE (in-place QoS upgrade) and UNSUBSCRIBE.
func (s *Session) filterIndex(filter string) int {
	for i, sub := range s.Subscriptions {
		if sub.Filter == filter {
			return i
		}
	}
	return -1
}
