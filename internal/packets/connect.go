package packets

// ConnectPacket contains the parsed values of an MQTT CONNECT packet.
// The Protocol Name is read but not validated beyond having a legal
// length-prefixed form.
type ConnectPacket struct {
	ProtocolName string
	ProtocolLevel byte

	UsernameFlag bool
	PasswordFlag bool
	WillRetain   bool
	WillQoS      byte
	WillFlag     bool
	CleanSession bool

	KeepAlive uint16

	ClientIdentifier string
	WillTopic        string
	WillMessage      []byte
	Username         string
	Password         string
}

// DecodeConnect parses the variable header and payload of a CONNECT packet.
func DecodeConnect(buf []byte) (*ConnectPacket, error) {
	pk := new(ConnectPacket)

	var offset int
	var err error

	pk.ProtocolName, offset, err = decodeString(buf, 0)
	if err != nil {
		return nil, err
	}

	pk.ProtocolLevel, offset, err = decodeByte(buf, offset)
	if err != nil {
		return nil, err
	}

	flags, offset, err := decodeByte(buf, offset)
	if err != nil {
		return nil, err
	}
	pk.UsernameFlag = flags&0x80 > 0
	pk.PasswordFlag = flags&0x40 > 0
	pk.WillRetain = flags&0x20 > 0
	pk.WillQoS = (flags >> 3) & 0x03
	pk.WillFlag = flags&0x04 > 0
	pk.CleanSession = flags&0x02 > 0

	pk.KeepAlive, offset, err = decodeUint16(buf, offset)
	if err != nil {
		return nil, err
	}

	pk.ClientIdentifier, offset, err = decodeString(buf, offset)
	if err != nil {
		return nil, err
	}

	if pk.WillFlag {
		pk.WillTopic, offset, err = decodeString(buf, offset)
		if err != nil {
			return nil, err
		}

		var willMsg []byte
		willMsg, offset, err = decodeBytes(buf, offset)
		if err != nil {
			return nil, err
		}
		pk.WillMessage = willMsg
	}

	if pk.UsernameFlag {
		pk.Username, offset, err = decodeString(buf, offset)
		if err != nil {
			return nil, err
		}
	}

	if pk.PasswordFlag {
		pk.Password, offset, err = decodeString(buf, offset)
		if err != nil {
			return nil, err
		}
	}

	return pk, nil
}

// EncodeConnack builds the literal 4-byte CONNACK reply. This broker never
// refuses a CONNECT (authentication is accepted but not validated), so
// session-present and return-code are always 0.
func EncodeConnack() []byte {
	return []byte{Connack << 4, 0x02, 0x00, 0x00}
}
