package protocols

import (
	"net"

	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// EthHdrLen is the fixed Ethernet II header length: two 6-byte MAC
// addresses plus a 2-byte ethertype.
const EthHdrLen = 14

// Well-known ethertypes this package dispatches on.
const (
	EthertypeIPv4  uint16 = 0x0800
	EthertypeARP   uint16 = 0x0806
	EthertypeVLAN  uint16 = 0x8100
	Ethertype8021AD uint16 = 0x88A8
	EthertypeMACsec uint16 = 0x88E5
	EthertypePPPoED uint16 = 0x8863
	EthertypePPPoES uint16 = 0x8864
	EthertypeEAPOL uint16 = 0x888E
	EthertypeIPv6  uint16 = 0x86DD
)

// EthernetHeader is the decoded Ethernet II frame header.
type EthernetHeader struct {
	SrcMAC, DstMAC net.HardwareAddr
	Ethertype      uint16
}

// HasEthertypeIPv4, HasEthertypeVLAN, HasEthertypeARP, HasEthertypeIPv6
// mirror eth_hdr's has_ethertype_* helpers.
func (e *EthernetHeader) HasEthertypeIPv4() bool { return e.Ethertype == EthertypeIPv4 }
func (e *EthernetHeader) HasEthertypeVLAN() bool { return e.Ethertype == EthertypeVLAN }
func (e *EthernetHeader) HasEthertypeARP() bool  { return e.Ethertype == EthertypeARP }
func (e *EthernetHeader) HasEthertypeIPv6() bool { return e.Ethertype == EthertypeIPv6 }

// IsMulticastDst reports whether bit 0 of the first dst MAC octet is
// set (I/G bit).
func (e *EthernetHeader) IsMulticastDst() bool {
	return len(e.DstMAC) > 0 && e.DstMAC[0]&0x01 != 0
}

// IsLocallyAdministeredSrc reports whether bit 1 of the first src MAC
// octet is set (U/L bit).
func (e *EthernetHeader) IsLocallyAdministeredSrc() bool {
	return len(e.SrcMAC) > 0 && e.SrcMAC[0]&0x02 != 0
}

// DeserializeEthernet decodes an Ethernet II header from c. Per
// spec.md §4.2: remaining length must be at least EthHdrLen.
func DeserializeEthernet(c *wire.Cursor) (*EthernetHeader, events.Description, error) {
	if c.Remaining() < EthHdrLen {
		return nil, events.EvtEthHdrlenTooSmall, nil
	}
	dst, err := c.ReadBytes(6)
	if err != nil {
		return nil, events.EvtEthHdrlenTooSmall, nil
	}
	src, err := c.ReadBytes(6)
	if err != nil {
		return nil, events.EvtEthHdrlenTooSmall, nil
	}
	etype, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtEthHdrlenTooSmall, nil
	}
	h := &EthernetHeader{
		DstMAC:    append(net.HardwareAddr(nil), dst...),
		SrcMAC:    append(net.HardwareAddr(nil), src...),
		Ethertype: etype,
	}
	return h, events.EvtParseOk, nil
}

// SerializeEthernet writes h's wire form via w, for round-trip tests.
func SerializeEthernet(w *wire.Writer, h *EthernetHeader) error {
	if err := w.WriteBytes(h.DstMAC); err != nil {
		return err
	}
	if err := w.WriteBytes(h.SrcMAC); err != nil {
		return err
	}
	return w.WriteU16(h.Ethertype)
}
