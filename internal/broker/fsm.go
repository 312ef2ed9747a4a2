package broker

import (
	"errors"
	"time"

	"github.com/life-stream-dev/mqttbroker/internal/logger"
	"github.com/life-stream-dev/mqttbroker/internal/packets"
	"github.com/life-stream-dev/mqttbroker/internal/system"
	"github.com/rs/xid"
)

// pollDeadline is how long a single Tick may wait for a readable session
// before moving on. A short per-poll deadline keeps the loop responsive to
// every other session.
const pollDeadline = 5 * time.Millisecond

// frameDeadline is the longer deadline applied once a frame has started
// (its first byte observed via Peek), bounding a single slow client's
// stall on the rest of the loop.
const frameDeadline = 1000 * time.Millisecond

// pollSession advances one session by at most one packet per Tick.
func (b *Broker) pollSession(s *Session, now int64) {
	_ = s.Conn.SetReadDeadline(time.Now().Add(pollDeadline))
	ready, err := packets.Peek(s.Reader)
	if err != nil {
		if isTimeout(err) {
			return
		}
		b.closeSession(s)
		return
	}
	if !ready {
		return
	}

	_ = s.Conn.SetReadDeadline(time.Now().Add(frameDeadline))
	fh, body, err := packets.ReadPacket(s.Reader)
	if err != nil {
		logger.Debug("malformed frame, closing", "client_id", s.ClientID, "err", err)
		b.closeSession(s)
		return
	}

	s.LastSeenMs = now
	system.Add(&b.info.PacketsReceived, 1)
	system.Add(&b.info.BytesReceived, int64(packets.HeaderSize(fh.Remaining)+fh.Remaining))
	b.dispatch(s, fh, body, now)
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	var t timeout
	return errors.As(err, &t) && t.Timeout()
}

// dispatch routes one decoded packet through the connection state
// machine.
func (b *Broker) dispatch(s *Session, fh packets.FixedHeader, body []byte, now int64) {
	if s.State == StateAwaitConnect {
		b.handleConnect(s, fh, body)
		return
	}

	switch fh.Type {
	case packets.Publish:
		b.handlePublish(s, fh, body, now)
	case packets.Puback:
		b.handlePuback(s, body)
	case packets.Pubrec:
		b.handlePubrec(s, body, now)
	case packets.Pubrel:
		b.handlePubrel(s, body, now)
	case packets.Pubcomp:
		b.handlePubcomp(s, body)
	case packets.Subscribe:
		b.handleSubscribe(s, body)
	case packets.Unsubscribe:
		b.handleUnsubscribe(s, body)
	case packets.Pingreq:
		b.write(s, packets.EncodePingresp())
	case packets.Disconnect:
		s.Will = nil
		b.closeSession(s)
	default:
		logger.Warn("unknown packet type, closing", "client_id", s.ClientID, "type", fh.Type)
		b.closeSession(s)
	}
}

// handleConnect processes the single packet an AWAIT_CONNECT session may
// receive. Any parse failure, or any packet type other than CONNECT,
// closes without a reply.
func (b *Broker) handleConnect(s *Session, fh packets.FixedHeader, body []byte) {
	if fh.Type != packets.Connect {
		b.closeSession(s)
		return
	}

	pk, err := packets.DecodeConnect(body)
	if err != nil {
		logger.Debug("connect parse failure, closing", "err", err)
		b.closeSession(s)
		return
	}

	clientID := pk.ClientIdentifier
	if clientID == "" {
		clientID = "anon-" + xid.New().String()
	}
	s.ClientID = clientID
	s.KeepAliveSec = pk.KeepAlive

	if pk.WillFlag {
		s.Will = &LWT{
			Topic:   pk.WillTopic,
			Payload: pk.WillMessage,
			QoS:     pk.WillQoS,
			Retain:  pk.WillRetain,
		}
	}

	s.State = StateConnected
	b.write(s, packets.EncodeConnack())
	logger.Info("client connected", "client_id", s.ClientID, "keep_alive", s.KeepAliveSec)
}

func (b *Broker) handlePuback(s *Session, body []byte) {
	pid, err := packets.DecodePacketID(body)
	if err != nil {
		b.closeSession(s)
		return
	}
	inflight, ok := s.OutboundQoS[pid]
	if !ok || inflight.Phase != PhaseAwaitPubAck {
		logger.Warn("unexpected PUBACK", "client_id", s.ClientID, "packet_id", pid)
		return
	}
	delete(s.OutboundQoS, pid)
}

func (b *Broker) handlePubrec(s *Session, body []byte, now int64) {
	pid, err := packets.DecodePacketID(body)
	if err != nil {
		b.closeSession(s)
		return
	}
	inflight, ok := s.OutboundQoS[pid]
	if ok && inflight.Phase == PhaseAwaitPubRec {
		inflight.Phase = PhaseAwaitPubComp
		inflight.LastSendMs = now
		inflight.Retries = 0
	}
	b.write(s, packets.EncodePubrel(pid))
}

func (b *Broker) handlePubrel(s *Session, body []byte, now int64) {
	pid, err := packets.DecodePacketID(body)
	if err != nil {
		b.closeSession(s)
		return
	}
	if pending, ok := s.InboundQoS2[pid]; ok {
		b.publish(pending.Topic, pending.Payload, packets.QoS2, pending.Retain, now)
		delete(s.InboundQoS2, pid)
	}
	b.write(s, packets.EncodePubcomp(pid))
}

func (b *Broker) handlePubcomp(s *Session, body []byte) {
	pid, err := packets.DecodePacketID(body)
	if err != nil {
		b.closeSession(s)
		return
	}
	if inflight, ok := s.OutboundQoS[pid]; ok && inflight.Phase == PhaseAwaitPubComp {
		delete(s.OutboundQoS, pid)
	}
}

// write sends a pre-encoded packet to the session's transport, marking the
// session closed on any write failure.
func (b *Broker) write(s *Session, data []byte) {
	if s.State == StateClosed {
		return
	}
	if _, err := s.Conn.Write(data); err != nil {
		logger.Debug("write to closed transport", "client_id", s.ClientID, "err", err)
		b.closeSession(s)
		return
	}
	system.Add(&b.info.PacketsSent, 1)
	system.Add(&b.info.BytesSent, int64(len(data)))
}

// closeSession marks a session CLOSED; actual teardown (subscription
// pruning, LWT dispatch, socket close) happens in reapClosed at the end
// of the Tick that observes this state.
func (b *Broker) closeSession(s *Session) {
	s.State = StateClosed
}
