package packets

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLengthBytes(t *testing.T, b []byte) (int, int, error) {
	t.Helper()
	r := bytes.NewReader(b)
	return decodeLength(r.ReadByte)
}

func TestRemainingLengthRoundTrip(t *testing.T) {
	// boundary values at each encoded width, plus the extremes
	values := []int{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, 268435455}

	for _, want := range values {
		var buf bytes.Buffer
		encodeLength(&buf, want)

		got, consumed, err := decodeLengthBytes(t, buf.Bytes())
		require.NoError(t, err, "value %d", want)
		assert.Equal(t, want, got)
		assert.Equal(t, buf.Len(), consumed)
	}
}

func TestRemainingLengthMalformed(t *testing.T) {
	// five continuation bytes can never be a legal Remaining Length
	_, _, err := decodeLengthBytes(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x7F})
	require.ErrorIs(t, err, ErrMalformedLength)
}

func TestRemainingLengthShortRead(t *testing.T) {
	_, _, err := decodeLengthBytes(t, []byte{0x80})
	require.ErrorIs(t, err, ErrShortRead)
}

func TestHeaderSize(t *testing.T) {
	assert.Equal(t, 2, HeaderSize(0))
	assert.Equal(t, 2, HeaderSize(127))
	assert.Equal(t, 3, HeaderSize(128))
	assert.Equal(t, 4, HeaderSize(16384))
	assert.Equal(t, 5, HeaderSize(2097152))
}

func TestDecodeString(t *testing.T) {
	s, next, err := decodeString([]byte{0x00, 0x04, 't', 'e', 's', 't'}, 0)
	require.NoError(t, err)
	assert.Equal(t, "test", s)
	assert.Equal(t, 6, next)

	// empty strings are legal
	s, _, err = decodeString([]byte{0x00, 0x00}, 0)
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestDecodeStringRejectsBadLength(t *testing.T) {
	_, _, err := decodeString([]byte{0x00, 0x08, 'x'}, 0)
	require.ErrorIs(t, err, ErrBadTopicLen)

	_, _, err = decodeString([]byte{0x00}, 0)
	require.ErrorIs(t, err, ErrMalformedString)
}

func TestDecodeStringRejectsInvalidUTF8(t *testing.T) {
	_, _, err := decodeString([]byte{0x00, 0x02, 0xC3, 0x28}, 0)
	require.ErrorIs(t, err, ErrMalformedUTF8)

	// [MQTT-1.5.4-2] embedded NUL
	_, _, err = decodeString([]byte{0x00, 0x02, 'a', 0x00}, 0)
	require.ErrorIs(t, err, ErrMalformedUTF8)
}

func TestFixedHeaderEncode(t *testing.T) {
	var buf bytes.Buffer
	fh := FixedHeader{Type: Publish, Dup: true, QoS: 1, Retain: true, Remaining: 10}
	fh.Encode(&buf)
	assert.Equal(t, []byte{0x3B, 0x0A}, buf.Bytes())
}

func TestDecodeFlagsPublish(t *testing.T) {
	fh, err := decodeFlags(0x3D)
	require.NoError(t, err)
	assert.Equal(t, Publish, fh.Type)
	assert.True(t, fh.Dup)
	assert.Equal(t, byte(2), fh.QoS)
	assert.True(t, fh.Retain)
}

func TestDecodeFlagsRejectsReservedTypes(t *testing.T) {
	// types 0 and 15 are reserved [MQTT-2.2.1]
	_, err := decodeFlags(0x00)
	require.ErrorIs(t, err, ErrUnknownPacketType)

	_, err = decodeFlags(0xF0)
	require.ErrorIs(t, err, ErrUnknownPacketType)
}

func TestDecodeFlagsRejectsReservedBits(t *testing.T) {
	// CONNECT with non-zero flags violates [MQTT-2.2.2-2]
	_, err := decodeFlags(0x11)
	require.ErrorIs(t, err, ErrInvalidFlags)
}

func TestReadPacket(t *testing.T) {
	// PUBLISH QoS 1, topic "test", pid 7, payload "hi!"
	wire := []byte{0x32, 0x0B, 0x00, 0x04, 't', 'e', 's', 't', 0x00, 0x07, 'h', 'i', '!'}
	fh, body, err := ReadPacket(bufio.NewReader(bytes.NewReader(wire)))
	require.NoError(t, err)
	assert.Equal(t, Publish, fh.Type)
	assert.Equal(t, byte(1), fh.QoS)
	assert.Equal(t, 11, fh.Remaining)
	assert.Len(t, body, 11)
}

func TestReadPacketShortBody(t *testing.T) {
	wire := []byte{0x32, 0x0B, 0x00, 0x04, 't'}
	_, _, err := ReadPacket(bufio.NewReader(bytes.NewReader(wire)))
	require.ErrorIs(t, err, ErrShortRead)
}
