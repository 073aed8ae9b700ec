package selector

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// maxFrameBytes caps a single frame so a corrupt length prefix cannot force
// an absurd allocation.
const maxFrameBytes = 64 * 1024 * 1024

// writeFrame writes a frame to the connection with the format:
// - 4 bytes: payload length (uint32, big endian)
// - N bytes: payload
func writeFrame(conn net.Conn, payload []byte) error {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(payload)))

	b := net.Buffers{header, payload}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads one length-prefixed frame from the connection.
func readFrame(conn net.Conn) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header)
	if length > maxFrameBytes {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", length)
	}
	if length == 0 {
		return []byte{}, nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
