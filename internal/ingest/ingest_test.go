package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/nidsd/nidsd/internal/eventmgr"
	"github.com/nidsd/nidsd/internal/rules"
)

var errSocketClosed = errors.New("fake socket closed")

// fakeSocket replays a fixed list of frames, then blocks until
// closed, matching the real socket's "blocks on receive" contract.
type fakeSocket struct {
	mu     sync.Mutex
	frames [][]byte
	closed chan struct{}
}

func newFakeSocket(frames [][]byte) *fakeSocket {
	return &fakeSocket{frames: frames, closed: make(chan struct{})}
}

func (s *fakeSocket) ReadFrame() ([]byte, error) {
	s.mu.Lock()
	if len(s.frames) > 0 {
		f := s.frames[0]
		s.frames = s.frames[1:]
		s.mu.Unlock()
		return f, nil
	}
	s.mu.Unlock()

	<-s.closed
	return nil, errSocketClosed
}

func (s *fakeSocket) Close() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}

func arpRequestFrame(senderMAC [6]byte) []byte {
	frame := make([]byte, 14+28)
	copy(frame[0:6], []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	copy(frame[6:12], senderMAC[:])
	frame[12], frame[13] = 0x08, 0x06 // ARP

	a := frame[14:]
	a[0], a[1] = 0x00, 0x01 // HW type ethernet
	a[2], a[3] = 0x08, 0x00 // proto type IPv4
	a[4] = 6                // hw addr len
	a[5] = 4                // proto addr len
	a[6], a[7] = 0x00, 0x01 // request
	copy(a[8:14], senderMAC[:])
	copy(a[14:18], []byte{10, 0, 0, 1})
	copy(a[18:24], []byte{0, 0, 0, 0, 0, 0})
	copy(a[24:28], []byte{10, 0, 0, 2})
	return frame
}

func TestWorkerDrivesFramesThroughRuleStoreAndFilters(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Unix(1000, 0))
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	store := rules.NewStore(nil)
	mgr := eventmgr.New(log, clk, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var mgrWg sync.WaitGroup
	mgrWg.Add(1)
	go func() { defer mgrWg.Done(); mgr.Run(ctx) }()

	sender := [6]byte{1, 2, 3, 4, 5, 6}
	frames := [][]byte{arpRequestFrame(sender), arpRequestFrame(sender)}
	sock := newFakeSocket(frames)

	w := NewWorker("eth0", sock, store, mgr, nil, log, clk, nil)

	var workerWg sync.WaitGroup
	workerWg.Add(1)
	go func() { defer workerWg.Done(); w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return w.Stats().NRx == 2
	}, time.Second, time.Millisecond)

	cancel()
	workerWg.Wait()
	mgrWg.Wait()

	stats := w.Stats()
	require.EqualValues(t, 2, stats.NRx)
}
