package packets

import "errors"

// Errors returned by the codec. Any of these on an established session
// closes the session silently; MQTT 3.1.1 has no generic error packet.
var (
	ErrMalformedLength   = errors.New("packets: malformed remaining length")
	ErrShortRead         = errors.New("packets: short read, stream closed mid-packet")
	ErrBadTopicLen       = errors.New("packets: declared length exceeds remaining payload")
	ErrUnknownPacketType = errors.New("packets: unknown packet type")
	ErrMalformedString   = errors.New("packets: malformed length-prefixed string")
	ErrMalformedUTF8     = errors.New("packets: string is not valid utf-8")
	ErrMalformedUint16   = errors.New("packets: truncated 16-bit field")
	ErrMalformedByte     = errors.New("packets: truncated byte field")
	ErrMissingPacketID   = errors.New("packets: missing packet id")
	ErrInvalidFlags      = errors.New("packets: invalid fixed header flags")
)
