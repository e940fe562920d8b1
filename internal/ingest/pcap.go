package ingest

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"
)

// pcapFileWriter implements PcapWriter over a pcapgo.Writer, the one
// legitimate use of the gopacket dependency in this repo: a captured
// frame is already fully owned bytes, never built up via gopacket's
// own layer decoders, so this is output-only plumbing.
type pcapFileWriter struct {
	mu sync.Mutex
	w  *pcapgo.Writer
	f  io.Closer
}

// NewPcapFileWriter writes a pcap file header for Ethernet-linktype
// captures to f, an already opened file, per the
// interface_info.log_pcaps option (spec.md §6). Close closes f.
func NewPcapFileWriter(f interface {
	io.Writer
	io.Closer
}) (PcapWriter, error) {
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("ingest: writing pcap file header: %w", err)
	}
	return &pcapFileWriter{w: w, f: f}, nil
}

func (p *pcapFileWriter) WriteFrame(data []byte, capturedAt time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w.WritePacket(gopacket.CaptureInfo{
		Timestamp:     capturedAt,
		CaptureLength: len(data),
		Length:        len(data),
	}, data)
}

func (p *pcapFileWriter) Close() error {
	return p.f.Close()
}
