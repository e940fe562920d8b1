//go:build linux

package ingest

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// rawSocket is the Linux AF_PACKET implementation of CaptureSocket,
// bound to one interface and receiving every ethertype (spec.md
// §4.6's "raw-socket receive primitive").
type rawSocket struct {
	fd   int
	buf  []byte
}

// NewRawSocket opens an AF_PACKET/SOCK_RAW socket bound to iface and
// listening for every ethertype.
func NewRawSocket(iface string) (CaptureSocket, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("ingest: opening raw socket: %w", err)
	}

	ifi, err := unix.IfNameToIndex(iface)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ingest: resolving interface %s: %w", iface, err)
	}

	addr := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  int(ifi),
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ingest: binding raw socket to %s: %w", iface, err)
	}

	return &rawSocket{fd: fd, buf: make([]byte, 65536)}, nil
}

// ReadFrame blocks until a frame arrives and returns a freshly
// allocated copy of it, matching spec.md §4.6's "writes the frame
// into a freshly allocated packet."
func (s *rawSocket) ReadFrame() ([]byte, error) {
	n, _, err := unix.Recvfrom(s.fd, s.buf, 0)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, s.buf[:n])
	return out, nil
}

func (s *rawSocket) Close() error {
	return unix.Close(s.fd)
}

func htons(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.LittleEndian.Uint16(b[:])
}
