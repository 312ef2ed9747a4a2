package packets

import "bytes"

// SubscribePacket contains one or more (topic filter, requested QoS) pairs
// requested by a single SUBSCRIBE packet.
type SubscribePacket struct {
	PacketID uint16
	Filters  []string
	QoSs     []byte
}

// DecodeSubscribe parses a SUBSCRIBE packet's variable header and payload.
// Filter tuples are read until the Remaining Length is exhausted.
func DecodeSubscribe(buf []byte) (*SubscribePacket, error) {
	pk := new(SubscribePacket)

	var offset int
	var err error
	pk.PacketID, offset, err = decodeUint16(buf, 0)
	if err != nil {
		return nil, err
	}

	for offset < len(buf) {
		var filter string
		filter, offset, err = decodeString(buf, offset)
		if err != nil {
			return nil, err
		}

		var qos byte
		qos, offset, err = decodeByte(buf, offset)
		if err != nil {
			return nil, err
		}

		pk.Filters = append(pk.Filters, filter)
		pk.QoSs = append(pk.QoSs, qos)
	}

	return pk, nil
}

// EncodeSuback builds the SUBACK reply: fixed byte 0x90, one granted-QoS
// byte per requested filter. This broker never emits the 0x80 failure
// code; an out-of-range requested QoS is granted as QoS 0.
func EncodeSuback(packetID uint16, grantedQoS []byte) []byte {
	var out bytes.Buffer
	out.WriteByte(0x90)
	encodeLength(&out, 2+len(grantedQoS))
	out.Write(encodeUint16(packetID))
	out.Write(grantedQoS)
	return out.Bytes()
}

// GrantQoS caps a requested subscription QoS to the broker's supported
// range, falling back to QoS 0 for anything else.
func GrantQoS(requested byte) byte {
	if requested <= QoS2 {
		return requested
	}
	return QoS0
}
