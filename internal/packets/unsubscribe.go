package packets

// UnsubscribePacket contains the topic filters a client is unsubscribing
// from.
type UnsubscribePacket struct {
	PacketID uint16
	Filters  []string
}

// DecodeUnsubscribe parses an UNSUBSCRIBE packet's variable header and
// payload: a packet id followed by one or more topic filter strings.
func DecodeUnsubscribe(buf []byte) (*UnsubscribePacket, error) {
	pk := new(UnsubscribePacket)

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
		pk.Filters = append(pk.Filters, filter)
	}

	return pk, nil
}

// EncodeUnsuback builds the UNSUBACK reply: fixed byte 0xB0, length 2,
// packet id.
func EncodeUnsuback(packetID uint16) []byte {
	b := encodeUint16(packetID)
	return []byte{0xB0, 0x02, b[0], b[1]}
}
