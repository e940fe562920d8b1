package eventmgr

import (
	"bytes"
	"context"
	"crypto/rand"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/nidsd/nidsd/internal/events"
)

func TestSealOpenRoundTripAESCTR128(t *testing.T) {
	key := make([]byte, 16)
	_, err := rand.Read(key)
	require.NoError(t, err)

	cleartext := []byte("the quick brown fox jumps over the lazy dog")
	hdr, ciphertext, err := Seal(cleartext, HashSHA256, EncAESCTR128, key)
	require.NoError(t, err)
	require.NotEqual(t, cleartext, ciphertext)

	got, err := Open(hdr, ciphertext, key)
	require.NoError(t, err)
	require.Equal(t, cleartext, got)
}

func TestSealOpenRoundTripNoEncryptionNoHash(t *testing.T) {
	cleartext := []byte("cleartext payload")
	hdr, ciphertext, err := Seal(cleartext, HashNone, EncNone, nil)
	require.NoError(t, err)
	require.Equal(t, cleartext, ciphertext)

	got, err := Open(hdr, ciphertext, nil)
	require.NoError(t, err)
	require.Equal(t, cleartext, got)
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	key := make([]byte, 16)
	_, err := rand.Read(key)
	require.NoError(t, err)

	hdr, ciphertext, err := Seal([]byte("hello world"), HashSHA256, EncAESCTR128, key)
	require.NoError(t, err)

	tampered := append([]byte(nil), ciphertext...)
	tampered[0] ^= 0xff

	_, err = Open(hdr, tampered, key)
	require.Error(t, err)
}

func TestEncodeDecodeMessageRoundTrip(t *testing.T) {
	ev := events.Event{
		Type:        events.TypeDeny,
		Description: events.EvtIcmpNonZeroEchoReqPayloadLen,
		RuleID:      42,
		Ethertype:   0x0800,
		SrcAddr:     net.IPv4(10, 0, 0, 1),
		DstAddr:     net.IPv4(10, 0, 0, 2),
		TTL:         64,
		Protocol:    6,
		SrcPort:     1234,
		DstPort:     80,
		TCPFlags:    0x02,
	}

	b := EncodeMessage(ev)
	got, err := DecodeMessage(b, true)
	require.NoError(t, err)

	require.Equal(t, ev.Type, got.Type)
	require.Equal(t, ev.Description, got.Description)
	require.Equal(t, ev.RuleID, got.RuleID)
	require.Equal(t, ev.Ethertype, got.Ethertype)
	require.True(t, ev.SrcAddr.Equal(got.SrcAddr))
	require.True(t, ev.DstAddr.Equal(got.DstAddr))
	require.Equal(t, ev.TTL, got.TTL)
	require.Equal(t, ev.Protocol, got.Protocol)
	require.Equal(t, ev.SrcPort, got.SrcPort)
	require.Equal(t, ev.DstPort, got.DstPort)
	require.Equal(t, ev.TCPFlags, got.TCPFlags)
}

type recordingSink struct {
	mu   sync.Mutex
	seen []events.Event
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Write(ev events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, ev)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// TestManagerDrainsAllEventsWithoutDuplication implements spec.md §8's
// concurrency property: N threads each submitting M events result in
// exactly N*M events drained, no duplicates, no losses.
func TestManagerDrainsAllEventsWithoutDuplication(t *testing.T) {
	sink := &recordingSink{}
	clk := clockwork.NewFakeClockAt(time.Unix(0, 0))
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	mgr := New(log, clk, []Sink{sink}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var runWg sync.WaitGroup
	runWg.Add(1)
	go func() {
		defer runWg.Done()
		mgr.Run(ctx)
	}()

	const n, m = 8, 50
	var producers sync.WaitGroup
	producers.Add(n)
	for i := 0; i < n; i++ {
		go func(id int) {
			defer producers.Done()
			for j := 0; j < m; j++ {
				mgr.Store(events.New(events.TypeAlert, events.EvtParseOk, time.Unix(0, 0)))
			}
		}(i)
	}
	producers.Wait()

	require.Eventually(t, func() bool {
		return sink.count() == n*m
	}, 2*time.Second, time.Millisecond)

	cancel()
	runWg.Wait()

	require.Equal(t, n*m, sink.count())
}
