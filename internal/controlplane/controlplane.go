// Package controlplane implements the local datagram control-plane
// server of spec.md §4.7: a UNIX datagram socket answering GET_STATS
// requests with one fixed-size record per interface. Grounded on
// internal/api.ApiServer's functional-options construction, adapted
// from HTTP-over-unix-socket to a raw datagram protocol since
// spec.md §6's fwctl_msg/fwctl_stats wire format has no HTTP framing.
package controlplane

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"
)

// MsgGetStats is the one request type spec.md §4.7 names.
const MsgGetStats uint8 = 0x01

// DefaultSockPath is the control-plane socket's default path
// (spec.md §6).
const DefaultSockPath = "./nids_fwctl.sock"

const (
	ifnameLen  = 20
	statsLen   = ifnameLen + 8 + 8 + 8 + 8 + 8 // ifname + ts_sec + ts_nsec + n_rx + n_allowed + n_deny
)

// StatsSource supplies the per-interface counters the server reports.
// internal/ingest.Worker satisfies this via its Stats method combined
// with the interface name.
type StatsSource interface {
	Interface() string
	StartupTime() time.Time
	Counters() (nRx, nAllowed, nDeny uint64)
}

// Server is the control-plane datagram endpoint.
type Server struct {
	sockPath string
	sources  []StatsSource
	log      *slog.Logger

	conn *net.UnixConn
}

// Option configures a Server, mirroring internal/api's functional
// options style.
type Option func(*Server)

func WithSockPath(path string) Option {
	return func(s *Server) { s.sockPath = path }
}

func WithSources(sources []StatsSource) Option {
	return func(s *Server) { s.sources = sources }
}

// New constructs a Server. Listen must be called to bind the socket.
func New(log *slog.Logger, opts ...Option) *Server {
	s := &Server{sockPath: DefaultSockPath, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Listen binds the UNIX datagram socket, removing any stale socket
// file left behind by a prior run.
func (s *Server) Listen() error {
	_ = os.Remove(s.sockPath)

	addr, err := net.ResolveUnixAddr("unixgram", s.sockPath)
	if err != nil {
		return fmt.Errorf("controlplane: resolving socket path %s: %w", s.sockPath, err)
	}

	conn, err := net.ListenUnixgram("unixgram", addr)
	if err != nil {
		return fmt.Errorf("controlplane: binding socket %s: %w", s.sockPath, err)
	}
	s.conn = conn
	return nil
}

// Run services requests until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	if s.conn == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	stopWatcher := make(chan struct{})
	defer close(stopWatcher)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-stopWatcher:
		}
	}()

	buf := make([]byte, 256)
	for {
		n, addr, err := s.conn.ReadFromUnix(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return fmt.Errorf("controlplane: reading request: %w", err)
		}
		if n < 1 {
			continue
		}

		switch buf[0] {
		case MsgGetStats:
			s.handleGetStats(addr)
		default:
			s.log.Warn("controlplane: unrecognized request type", "type", buf[0])
		}
	}
}

// Close releases the listening socket and removes the socket file.
func (s *Server) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	_ = os.Remove(s.sockPath)
	return err
}

func (s *Server) handleGetStats(addr *net.UnixAddr) {
	buf := make([]byte, 1+len(s.sources)*statsLen)
	buf[0] = MsgGetStats
	off := 1

	for _, src := range s.sources {
		off += encodeStats(buf[off:], src)
	}

	if _, err := s.conn.WriteToUnix(buf[:off], addr); err != nil {
		s.log.Warn("controlplane: writing GET_STATS reply failed", "error", err)
	}
}

// encodeStats writes one fwctl_stats record: ifname[20]; startup_time
// {ts_sec u64; ts_nsec u64}; n_rx u64; n_allowed u64; n_deny u64
// (spec.md §6). Little-endian, matching the event-envelope codec.
func encodeStats(buf []byte, src StatsSource) int {
	var name [ifnameLen]byte
	copy(name[:], src.Interface())
	copy(buf[0:ifnameLen], name[:])

	off := ifnameLen
	startup := src.StartupTime()
	binary.LittleEndian.PutUint64(buf[off:], uint64(startup.Unix()))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(startup.Nanosecond()))
	off += 8

	nRx, nAllowed, nDeny := src.Counters()
	binary.LittleEndian.PutUint64(buf[off:], nRx)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], nAllowed)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], nDeny)
	off += 8

	return off
}
