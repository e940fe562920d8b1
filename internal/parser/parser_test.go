package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/protocols"
	"github.com/nidsd/nidsd/internal/wire"
)

func ipv4Frame(t *testing.T, ttl byte, proto byte) []byte {
	t.Helper()
	frame := make([]byte, 14+20)
	copy(frame[0:6], []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06})
	copy(frame[6:12], []byte{0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f})
	frame[12] = 0x08
	frame[13] = 0x00 // IPv4
	ip := frame[14:]
	ip[0] = 0x45
	ip[8] = ttl
	ip[9] = proto
	// total_len = 20
	ip[2], ip[3] = 0, 20
	// src/dst: distinct, non-multicast unicast addresses
	ip[12], ip[13], ip[14], ip[15] = 10, 0, 0, 1
	ip[16], ip[17], ip[18], ip[19] = 10, 0, 0, 2
	cs := protocols.GenerateIPv4Checksum(ip[:20])
	ip[10], ip[11] = byte(cs>>8), byte(cs)
	return frame
}

func TestParserDetectsLinuxFingerprint(t *testing.T) {
	frame := ipv4Frame(t, 64, 17) // UDP, but truncated (no payload)
	c := wire.NewCursor(frame)
	p := New()
	desc, err := p.Run(c)
	require.NoError(t, err)
	require.False(t, desc.Ok()) // UDP header too short, but OS fingerprint already set
	require.Equal(t, OSLinux410OrLater, p.OSFingerprint)
	require.NotNil(t, p.IPv4)
}

func TestParserDetectsWin10Fingerprint(t *testing.T) {
	frame := ipv4Frame(t, 128, 1) // ICMP, truncated
	c := wire.NewCursor(frame)
	p := New()
	_, _ = p.Run(c)
	require.Equal(t, OSWin10, p.OSFingerprint)
}

func TestParserStopsAtFirstFailingLayer(t *testing.T) {
	frame := make([]byte, 10) // too short for even an Ethernet header
	c := wire.NewCursor(frame)
	p := New()
	desc, err := p.Run(c)
	require.NoError(t, err)
	require.Equal(t, events.EvtEthHdrlenTooSmall, desc)
	require.Nil(t, p.IPv4)
}

func TestParserUnknownEthertype(t *testing.T) {
	frame := make([]byte, 14)
	frame[12], frame[13] = 0x12, 0x34
	c := wire.NewCursor(frame)
	p := New()
	desc, err := p.Run(c)
	require.NoError(t, err)
	require.Equal(t, events.EvtEthEthertypeUnknown, desc)
}
