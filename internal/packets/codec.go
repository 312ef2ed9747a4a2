package packets

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"
)

// decodeUint16 extracts a big-endian uint16 from buf at offset.
func decodeUint16(buf []byte, offset int) (uint16, int, error) {
	if len(buf) < offset+2 {
		return 0, 0, ErrMalformedUint16
	}
	return binary.BigEndian.Uint16(buf[offset : offset+2]), offset + 2, nil
}

// decodeByte extracts a single byte from buf at offset.
func decodeByte(buf []byte, offset int) (byte, int, error) {
	if len(buf) <= offset {
		return 0, 0, ErrMalformedByte
	}
	return buf[offset], offset + 1, nil
}

// decodeBytes extracts a length-prefixed byte slice (topic filters, payloads,
// will messages) from buf at offset.
func decodeBytes(buf []byte, offset int) ([]byte, int, error) {
	length, next, err := decodeUint16(buf, offset)
	if err != nil {
		return nil, 0, ErrMalformedString
	}
	if next+int(length) > len(buf) {
		return nil, 0, ErrBadTopicLen
	}
	return buf[next : next+int(length)], next + int(length), nil
}

// decodeString extracts a length-prefixed UTF-8 string from buf at offset.
// [MQTT-1.5.4-1] the string must not contain an embedded NUL and must be
// valid UTF-8.
func decodeString(buf []byte, offset int) (string, int, error) {
	b, next, err := decodeBytes(buf, offset)
	if err != nil {
		return "", 0, err
	}
	if !validUTF8(b) {
		return "", 0, ErrMalformedUTF8
	}
	return string(b), next, nil
}

func validUTF8(b []byte) bool {
	return utf8.Valid(b) && bytes.IndexByte(b, 0x00) == -1
}

func encodeBool(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func encodeUint16(val uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, val)
	return buf
}

// encodeString length-prefixes and appends a string, per [MQTT-1.5.3].
func encodeString(val string) []byte {
	buf := make([]byte, 2, 2+len(val))
	binary.BigEndian.PutUint16(buf, uint16(len(val)))
	return append(buf, val...)
}

// encodeBytes length-prefixes and appends a byte slice (payloads).
func encodeBytes(val []byte) []byte {
	buf := make([]byte, 2, 2+len(val))
	binary.BigEndian.PutUint16(buf, uint16(len(val)))
	return append(buf, val...)
}

// encodeLength writes the variable-length "Remaining Length" encoding, 1-4
// bytes, 7 data bits per byte plus a continuation bit.
func encodeLength(buf *bytes.Buffer, length int) {
	for {
		digit := byte(length % 128)
		length /= 128
		if length > 0 {
			digit |= 0x80
		}
		buf.WriteByte(digit)
		if length == 0 {
			break
		}
	}
}

// HeaderSize returns the number of fixed-header bytes (first byte plus
// encoded Remaining Length) a packet with the given remaining length
// occupies on the wire.
func HeaderSize(remaining int) int {
	n := 2
	for remaining >= 128 {
		remaining /= 128
		n++
	}
	return n
}

// decodeLength decodes a Remaining Length value from a source of bytes. It
// returns the decoded value and the number of bytes consumed. Remaining
// Length is at most 4 bytes (max value 268435455); a required 5th byte is a
// protocol violation and yields ErrMalformedLength.
func decodeLength(nextByte func() (byte, error)) (int, int, error) {
	var value, multiplier int
	multiplier = 1
	for i := 0; i < 4; i++ {
		b, err := nextByte()
		if err != nil {
			return 0, i, ErrShortRead
		}
		value += int(b&0x7F) * multiplier
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
		multiplier *= 128
	}
	return 0, 4, ErrMalformedLength
}
