package broker

import (
	"time"

	"github.com/life-stream-dev/mqttbroker/internal/config"
	"github.com/life-stream-dev/mqttbroker/internal/logger"
	"github.com/life-stream-dev/mqttbroker/internal/system"
)

// Clock returns the current time in milliseconds. Tests inject a
// deterministic clock; production uses nowMs, which reads the wall clock
// as Unix milliseconds and so is not monotonic.
type Clock func() int64

func nowMs() int64 {
	return time.Now().UnixMilli()
}

// Broker owns every piece of mutable broker state: the sessions, the
// subscription index, the retained store, and the MessageLog. All of it is
// touched only from the single goroutine that drives Tick (Adopt and
// Snapshot must be called from it too); that one event loop owning
// everything is what lets the session and subscription invariants hold
// without locks.
type Broker struct {
	opts   config.Options
	clock  Clock
	nextID SessionID

	sessions map[SessionID]*Session
	subs     *SubIndex
	retained *RetainedStore
	log      *MessageLog
	info     *system.Info
}

// New constructs a Broker ready to accept sessions.
func New(opts config.Options) *Broker {
	return &Broker{
		opts:     opts,
		clock:    nowMs,
		nextID:   1,
		sessions: make(map[SessionID]*Session),
		subs:     NewSubIndex(),
		retained: NewRetainedStore(),
		log:      NewMessageLog(opts.MessageLogSize),
		info:     &system.Info{Started: time.Now().Unix()},
	}
}

// Info exposes the broker's live statistics counters for the status
// surface and Prometheus registration.
func (b *Broker) Info() *system.Info {
	return b.info
}

// Adopt registers a freshly accepted connection as a new AWAIT_CONNECT
// session and returns its stable handle.
func (b *Broker) Adopt(conn netConn) SessionID {
	id := b.nextID
	b.nextID++
	b.sessions[id] = newSession(id, conn)
	logger.Debug("session accepted", "session_id", id)
	return id
}

// netConn is the subset of net.Conn the broker needs; declared locally so
// broker_test.go can supply an in-memory fake without a real socket.
type netConn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadDeadline(t time.Time) error
}

// Tick runs exactly one pass of the broker loop: poll every live session
// for a readable packet, advance the QoS engine, enforce Keep-Alive, and
// reap any session that reached CLOSED. It never blocks longer than each
// session's read-poll deadline.
func (b *Broker) Tick() {
	now := b.clock()

	for _, s := range b.sessions {
		if s.State == StateClosed {
			continue
		}
		b.pollSession(s, now)
	}

	b.tickQoS(now)
	b.enforceKeepAlive(now)
	b.reapClosed()
	b.updateGauges()
}

// updateGauges refreshes the point-in-time statistics once per Tick, so
// the counters the status goroutine reads are at most one loop pass stale.
func (b *Broker) updateGauges() {
	var connected, inflight int64
	for _, s := range b.sessions {
		if s.State == StateConnected {
			connected++
		}
		inflight += int64(len(s.OutboundQoS) + len(s.InboundQoS2))
	}
	system.Set(&b.info.ClientsConnected, connected)
	system.Set(&b.info.Inflight, inflight)
	system.Set(&b.info.Retained, int64(len(b.retained.byTopic)))
	system.Set(&b.info.Subscriptions, int64(len(b.subs.entries)))
}

// reapClosed destroys every session in StateClosed: prunes its
// subscriptions, fires its LWT if still armed, and removes it from the
// session map.
func (b *Broker) reapClosed() {
	var dead []SessionID
	for id, s := range b.sessions {
		if s.State == StateClosed {
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		s := b.sessions[id]
		b.subs.RemoveSession(id)
		if s.Will != nil {
			b.fireWill(s)
			s.Will = nil
		}
		_ = s.Conn.Close()
		delete(b.sessions, id)
		logger.Debug("session reaped", "session_id", id, "client_id", s.ClientID)
	}
}

func (b *Broker) fireWill(s *Session) {
	logger.Info("last will fired", "client_id", s.ClientID, "topic", s.Will.Topic)
	b.publish(s.Will.Topic, s.Will.Payload, s.Will.QoS, s.Will.Retain, b.clock())
}

