package broker

import (
	"github.com/life-stream-dev/mqttbroker/internal/logger"
	"github.com/life-stream-dev/mqttbroker/internal/packets"
)

// tickQoS walks every live session's outbound and inbound QoS tables,
// resending timed-out entries and expiring those that exhausted their
// retry budget. Called once per Tick; the caller is responsible for
// scheduling Tick at least every 100ms.
func (b *Broker) tickQoS(now int64) {
	timeout := b.opts.QoSTimeoutMs
	maxRetries := b.opts.MaxQoSRetries

	for _, s := range b.sessions {
		if s.State != StateConnected {
			continue
		}
		b.tickOutbound(s, now, timeout, maxRetries)
		b.tickInboundQoS2(s, now, timeout)
	}
}

func (b *Broker) tickOutbound(s *Session, now, timeout int64, maxRetries int) {
	for pid, inflight := range s.OutboundQoS {
		if now-inflight.LastSendMs < timeout {
			continue
		}
		if inflight.Retries >= maxRetries {
			logger.Warn("qos retry budget exhausted, closing",
				"client_id", s.ClientID, "packet_id", pid)
			b.closeSession(s)
			return
		}

		inflight.Retries++
		inflight.LastSendMs = now
		switch inflight.Phase {
		case PhaseAwaitPubAck, PhaseAwaitPubRec:
			b.write(s, packets.EncodePublish(inflight.Topic, inflight.Payload, inflight.QoS, inflight.Retain, true, pid))
		case PhaseAwaitPubComp:
			b.write(s, packets.EncodePubrel(pid))
		}
	}
}

// tickInboundQoS2 resends PUBREC for any QoS-2 inbound message still
// awaiting its PUBREL. There is no retry ceiling on this side; the client
// controls when the handshake ends.
func (b *Broker) tickInboundQoS2(s *Session, now, timeout int64) {
	for pid, pending := range s.InboundQoS2 {
		if now-pending.LastSendMs < timeout {
			continue
		}
		pending.LastSendMs = now
		b.write(s, packets.EncodePubrec(pid))
	}
}

// enforceKeepAlive closes any session that has gone silent for more than
// KeepAliveFactor (1.5 by default) times its advertised Keep-Alive
// interval [MQTT-3.1.2-24].
func (b *Broker) enforceKeepAlive(now int64) {
	factor := b.opts.KeepAliveFactor
	for _, s := range b.sessions {
		if s.State != StateConnected || s.KeepAliveSec == 0 {
			continue
		}
		limitMs := int64(float64(s.KeepAliveSec) * 1000 * factor)
		if now-s.LastSeenMs > limitMs {
			logger.Info("keep-alive timeout, closing", "client_id", s.ClientID)
			b.closeSession(s)
		}
	}
}
