package packets

// The QoS 1/2 acknowledgement packets (PUBACK, PUBREC, PUBREL, PUBCOMP) all
// share the same wire shape: a 2-byte Packet Identifier and nothing else.

// DecodePacketID reads the 2-byte packet identifier carried by PUBACK,
// PUBREC, PUBREL and PUBCOMP.
func DecodePacketID(buf []byte) (uint16, error) {
	id, _, err := decodeUint16(buf, 0)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// EncodePuback builds a PUBACK reply to a QoS 1 PUBLISH.
func EncodePuback(packetID uint16) []byte {
	return ackBytes(0x40, packetID)
}

// EncodePubrec builds a PUBREC reply to a QoS 2 PUBLISH.
func EncodePubrec(packetID uint16) []byte {
	return ackBytes(0x50, packetID)
}

// EncodePubrel builds an outbound PUBREL. The fixed header byte must carry
// flags 0010, i.e. 0x62 [MQTT-3.6.1-1].
func EncodePubrel(packetID uint16) []byte {
	return ackBytes(0x62, packetID)
}

// EncodePubcomp builds a PUBCOMP, the final message of the QoS 2 handshake.
func EncodePubcomp(packetID uint16) []byte {
	return ackBytes(0x70, packetID)
}

func ackBytes(firstByte byte, packetID uint16) []byte {
	b := encodeUint16(packetID)
	return []byte{firstByte, 0x02, b[0], b[1]}
}

// EncodePingresp builds the literal PINGRESP reply to a PINGREQ.
func EncodePingresp() []byte {
	return []byte{0xD0, 0x00}
}
