package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// UDPHdrLen is the fixed UDP header length.
const UDPHdrLen = 8

// UDPHeader is a decoded UDP datagram header.
type UDPHeader struct {
	SrcPort, DstPort uint16
	Length           uint16
	Checksum         uint16
}

// DeserializeUDP decodes a UDP header. Invariants (spec.md §4.2):
// length >= 8, ports != 0, header length field <= remaining.
func DeserializeUDP(c *wire.Cursor) (*UDPHeader, events.Description, error) {
	if c.Remaining() < UDPHdrLen {
		return nil, events.EvtUdpLenTooShort, nil
	}
	srcPort, _ := c.ReadU16()
	dstPort, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtUdpLenTooShort, nil
	}
	length, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtUdpLenTooShort, nil
	}
	checksum, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtUdpLenTooShort, nil
	}
	if srcPort == 0 {
		return nil, events.EvtUdpSrcPortInvalid, nil
	}
	if dstPort == 0 {
		return nil, events.EvtUdpDstPortInvalid, nil
	}
	if length < UDPHdrLen {
		return nil, events.EvtUdpLenTooShort, nil
	}
	if int(length)-UDPHdrLen > c.Remaining() {
		return nil, events.EvtUdpLenTooShort, nil
	}
	return &UDPHeader{SrcPort: srcPort, DstPort: dstPort, Length: length, Checksum: checksum}, events.EvtParseOk, nil
}
