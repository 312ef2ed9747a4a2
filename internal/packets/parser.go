package packets

import (
	"bufio"
	"io"
)

// Peek reports whether at least one byte is available to read from r
// without blocking past whatever deadline the caller has already set on the
// underlying connection. It never consumes the byte. Used by the broker
// loop to poll a session without committing to a full-frame read.
func Peek(r *bufio.Reader) (bool, error) {
	_, err := r.Peek(1)
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReadPacket reads one complete MQTT control packet (fixed header plus
// variable header and payload) from r. The caller is expected to have
// already confirmed (via Peek) that data is available, and to bound this
// call with a read deadline on the underlying connection so a slow client
// cannot stall the broker loop for more than one frame's worth of waiting.
func ReadPacket(r *bufio.Reader) (FixedHeader, []byte, error) {
	first, err := r.ReadByte()
	if err != nil {
		return FixedHeader{}, nil, ErrShortRead
	}

	fh, err := decodeFlags(first)
	if err != nil {
		return fh, nil, err
	}

	remaining, _, err := decodeLength(r.ReadByte)
	if err != nil {
		return fh, nil, err
	}
	fh.Remaining = remaining

	if remaining == 0 {
		return fh, nil, nil
	}

	body := make([]byte, remaining)
	if _, err := io.ReadFull(r, body); err != nil {
		return fh, nil, ErrShortRead
	}

	return fh, body, nil
}
