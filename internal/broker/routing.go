package broker

import (
	"github.com/life-stream-dev/mqttbroker/internal/logger"
	"github.com/life-stream-dev/mqttbroker/internal/packets"
	"github.com/life-stream-dev/mqttbroker/internal/system"
)

// handlePublish applies retain semantics and routes an inbound PUBLISH by
// its QoS class: 0 and 1 deliver immediately, 2 is parked until PUBREL.
func (b *Broker) handlePublish(s *Session, fh packets.FixedHeader, body []byte, now int64) {
	pk, err := packets.DecodePublish(fh, body)
	if err != nil {
		logger.Debug("malformed publish, closing", "client_id", s.ClientID, "err", err)
		b.closeSession(s)
		return
	}
	system.Add(&b.info.MessagesReceived, 1)

	switch fh.QoS {
	case packets.QoS0:
		b.publish(pk.TopicName, pk.Payload, packets.QoS0, fh.Retain, now)

	case packets.QoS1:
		b.publish(pk.TopicName, pk.Payload, packets.QoS1, fh.Retain, now)
		b.write(s, packets.EncodePuback(pk.PacketID))

	case packets.QoS2:
		if existing, ok := s.InboundQoS2[pk.PacketID]; ok {
			if !fh.Dup {
				existing.Topic = pk.TopicName
				existing.Payload = pk.Payload
				existing.Retain = fh.Retain
			}
			existing.LastSendMs = now
		} else {
			s.InboundQoS2[pk.PacketID] = &InboundQoS2{
				Topic:      pk.TopicName,
				Payload:    append([]byte(nil), pk.Payload...),
				Retain:     fh.Retain,
				PacketID:   pk.PacketID,
				LastSendMs: now,
			}
		}
		b.write(s, packets.EncodePubrec(pk.PacketID))
	}
}

// publish is the routing core shared by every delivery path (inbound
// PUBLISH at QoS 0/1, QoS 2 on PUBREL, and LWT dispatch): apply retained
// semantics, log it, then fan out to matching subscribers.
func (b *Broker) publish(topic string, payload []byte, qos byte, retain bool, now int64) {
	if retain {
		b.retained.Put(topic, payload)
	}
	b.log.Append(LogEntry{Topic: topic, Payload: string(payload), TimestampMs: now})

	for _, m := range b.subs.Matching(topic, qos) {
		sub, ok := b.sessions[m.session]
		if !ok || sub.State != StateConnected {
			continue
		}
		b.deliver(sub, topic, payload, m.qos, retain, now)
	}
}

// deliver sends one message to one subscriber at the given effective QoS,
// registering it in that subscriber's outbound table if QoS > 0.
func (b *Broker) deliver(sub *Session, topic string, payload []byte, qos byte, retain bool, now int64) {
	system.Add(&b.info.MessagesSent, 1)
	if qos == packets.QoS0 {
		b.write(sub, packets.EncodePublish(topic, payload, qos, retain, false, 0))
		return
	}

	pid := sub.NextPacketID()
	phase := PhaseAwaitPubAck
	if qos == packets.QoS2 {
		phase = PhaseAwaitPubRec
	}
	sub.OutboundQoS[pid] = &OutboundInFlight{
		Topic:      topic,
		Payload:    payload,
		QoS:        qos,
		Retain:     retain,
		PacketID:   pid,
		Phase:      phase,
		LastSendMs: now,
	}
	b.write(sub, packets.EncodePublish(topic, payload, qos, retain, false, pid))
}

// handleSubscribe grants each requested filter, acknowledges with SUBACK,
// then replays matching retained messages to the subscriber.
func (b *Broker) handleSubscribe(s *Session, body []byte) {
	pk, err := packets.DecodeSubscribe(body)
	if err != nil {
		logger.Debug("malformed subscribe, closing", "client_id", s.ClientID, "err", err)
		b.closeSession(s)
		return
	}

	granted := make([]byte, len(pk.Filters))
	for i, filter := range pk.Filters {
		qos := packets.GrantQoS(pk.QoSs[i])
		granted[i] = qos

		if idx := s.filterIndex(filter); idx >= 0 {
			s.Subscriptions[idx].QoS = qos
		} else {
			s.Subscriptions = append(s.Subscriptions, Subscription{Filter: filter, QoS: qos})
		}
		b.subs.Add(s.ID, filter, qos)
	}

	b.write(s, packets.EncodeSuback(pk.PacketID, granted))

	// Replay retained messages at the granted QoS, not a hard-coded
	// QoS 0.
	now := b.clock()
	for i, filter := range pk.Filters {
		for _, rm := range b.retained.Matching(filter) {
			b.deliver(s, rm.topic, rm.payload, granted[i], true, now)
		}
	}
}

// handleUnsubscribe removes the named filters from both the session and
// the global index, then acknowledges with UNSUBACK.
func (b *Broker) handleUnsubscribe(s *Session, body []byte) {
	pk, err := packets.DecodeUnsubscribe(body)
	if err != nil {
		logger.Debug("malformed unsubscribe, closing", "client_id", s.ClientID, "err", err)
		b.closeSession(s)
		return
	}

	for _, filter := range pk.Filters {
		if idx := s.filterIndex(filter); idx >= 0 {
			s.Subscriptions = append(s.Subscriptions[:idx], s.Subscriptions[idx+1:]...)
		}
		b.subs.Remove(s.ID, filter)
	}

	b.write(s, packets.EncodeUnsuback(pk.PacketID))
}
