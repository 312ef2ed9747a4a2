package packets

import "bytes"

// PublishPacket contains the parsed values of an MQTT PUBLISH packet. QoS,
// Retain and Dup live on the FixedHeader that accompanied it.
type PublishPacket struct {
	FixedHeader FixedHeader
	TopicName   string
	PacketID    uint16
	Payload     []byte
}

// DecodePublish parses the variable header and payload of a PUBLISH packet.
// PacketID is present iff QoS > 0 [MQTT-2.3.1-1] / [MQTT-2.3.1-5].
func DecodePublish(fh FixedHeader, buf []byte) (*PublishPacket, error) {
	pk := &PublishPacket{FixedHeader: fh}

	topic, offset, err := decodeString(buf, 0)
	if err != nil {
		return nil, err
	}
	pk.TopicName = topic

	if fh.QoS > 0 {
		pk.PacketID, offset, err = decodeUint16(buf, offset)
		if err != nil {
			return nil, err
		}
	}

	pk.Payload = buf[offset:]
	return pk, nil
}

// EncodePublish serializes a PUBLISH packet (broker to client, outbound
// delivery and retransmission).
func EncodePublish(topic string, payload []byte, qos byte, retain, dup bool, packetID uint16) []byte {
	var body bytes.Buffer
	body.Write(encodeString(topic))
	if qos > 0 {
		body.Write(encodeUint16(packetID))
	}
	body.Write(payload)

	fh := FixedHeader{Type: Publish, Dup: dup, QoS: qos, Retain: retain, Remaining: body.Len()}
	var out bytes.Buffer
	fh.Encode(&out)
	out.Write(body.Bytes())
	return out.Bytes()
}
