package controlplane

import (
	"bytes"
	"context"
	"encoding/binary"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	iface               string
	startup             time.Time
	nRx, nAllowed, nDeny uint64
}

func (f fakeSource) Interface() string       { return f.iface }
func (f fakeSource) StartupTime() time.Time  { return f.startup }
func (f fakeSource) Counters() (uint64, uint64, uint64) {
	return f.nRx, f.nAllowed, f.nDeny
}

func TestServerAnswersGetStats(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "nids_fwctl.sock")
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	startup := time.Unix(1_700_000_000, 123_000_000)
	src := fakeSource{iface: "eth0", startup: startup, nRx: 10, nAllowed: 8, nDeny: 2}

	srv := New(log, WithSockPath(sockPath), WithSources([]StatsSource{src}))
	require.NoError(t, srv.Listen())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)

	clientAddr, err := net.ResolveUnixAddr("unixgram", filepath.Join(t.TempDir(), "client.sock"))
	require.NoError(t, err)
	client, err := net.ListenUnixgram("unixgram", clientAddr)
	require.NoError(t, err)
	defer client.Close()

	serverAddr, err := net.ResolveUnixAddr("unixgram", sockPath)
	require.NoError(t, err)

	_, err = client.WriteToUnix([]byte{MsgGetStats}, serverAddr)
	require.NoError(t, err)

	buf := make([]byte, 1+statsLen)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 1+statsLen, n)
	require.Equal(t, MsgGetStats, buf[0])

	rec := buf[1:]
	name := string(bytes.TrimRight(rec[0:ifnameLen], "\x00"))
	require.Equal(t, "eth0", name)

	off := ifnameLen
	tsSec := binary.LittleEndian.Uint64(rec[off:])
	off += 8
	off += 8 // ts_nsec
	nRx := binary.LittleEndian.Uint64(rec[off:])
	off += 8
	nAllowed := binary.LittleEndian.Uint64(rec[off:])
	off += 8
	nDeny := binary.LittleEndian.Uint64(rec[off:])

	require.EqualValues(t, startup.Unix(), tsSec)
	require.EqualValues(t, 10, nRx)
	require.EqualValues(t, 8, nAllowed)
	require.EqualValues(t, 2, nDeny)
}
