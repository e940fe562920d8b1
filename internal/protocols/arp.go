package protocols

import (
	"net"

	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// ARPHdrLen is the fixed length of an ARP header carrying IPv4
// addresses over Ethernet (2+2+1+1+2+6+4+6+4).
const ARPHdrLen = 28

const (
	arpHWAddrLen   = 6
	arpProtoAddrLen = 4
)

// ARPOperation enumerates the ARP/RARP/InARP operation codes.
type ARPOperation uint16

const (
	ARPOpRequest ARPOperation = iota + 1
	ARPOpReply
	ARPOpRarpRequest
	ARPOpRarpReply
	ARPOpDrarpRequest
	ARPOpDrarpReply
	ARPOpInArpRequest
	ARPOpInArpReply
)

// ARPHeader is a decoded ARP message over Ethernet/IPv4.
type ARPHeader struct {
	HWType        uint16
	ProtoType     uint16
	HWAddrLen     uint8
	ProtoAddrLen  uint8
	Operation     ARPOperation
	SenderHWAddr  net.HardwareAddr
	SenderProtoAddr net.IP
	TargetHWAddr  net.HardwareAddr
	TargetProtoAddr net.IP
}

func (h *ARPHeader) IsRequest() bool { return h.Operation == ARPOpRequest }
func (h *ARPHeader) IsReply() bool   { return h.Operation == ARPOpReply }

// DeserializeARP decodes an ARP header. Invariants (spec.md §4.2):
// hardware-address-length = 6, protocol-address-length = 4, operation
// in [1, 8].
func DeserializeARP(c *wire.Cursor) (*ARPHeader, events.Description, error) {
	if c.Remaining() < ARPHdrLen {
		return nil, events.EvtARPHdrlenTooSmall, nil
	}
	hwType, _ := c.ReadU16()
	protoType, _ := c.ReadU16()
	hwAddrLen, _ := c.ReadU8()
	protoAddrLen, _ := c.ReadU8()
	op, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtARPHdrlenTooSmall, nil
	}
	if hwAddrLen != arpHWAddrLen {
		return nil, events.EvtARPHWAddrLenInval, nil
	}
	if protoAddrLen != arpProtoAddrLen {
		return nil, events.EvtARPProtocolAddrLenInval, nil
	}
	if op < 1 || op > 8 {
		return nil, events.EvtARPInvalOperation, nil
	}

	senderMAC, err := c.ReadBytes(6)
	if err != nil {
		return nil, events.EvtARPHdrlenTooSmall, nil
	}
	senderIP, err := c.ReadBytes(4)
	if err != nil {
		return nil, events.EvtARPHdrlenTooSmall, nil
	}
	targetMAC, err := c.ReadBytes(6)
	if err != nil {
		return nil, events.EvtARPHdrlenTooSmall, nil
	}
	targetIP, err := c.ReadBytes(4)
	if err != nil {
		return nil, events.EvtARPHdrlenTooSmall, nil
	}

	h := &ARPHeader{
		HWType:          hwType,
		ProtoType:       protoType,
		HWAddrLen:       hwAddrLen,
		ProtoAddrLen:    protoAddrLen,
		Operation:       ARPOperation(op),
		SenderHWAddr:    append(net.HardwareAddr(nil), senderMAC...),
		SenderProtoAddr: net.IP(append([]byte(nil), senderIP...)),
		TargetHWAddr:    append(net.HardwareAddr(nil), targetMAC...),
		TargetProtoAddr: net.IP(append([]byte(nil), targetIP...)),
	}
	return h, events.EvtParseOk, nil
}

// SerializeARP writes h's wire form for round-trip tests.
func SerializeARP(w *wire.Writer, h *ARPHeader) error {
	if err := w.WriteU16(h.HWType); err != nil {
		return err
	}
	if err := w.WriteU16(h.ProtoType); err != nil {
		return err
	}
	if err := w.WriteU8(h.HWAddrLen); err != nil {
		return err
	}
	if err := w.WriteU8(h.ProtoAddrLen); err != nil {
		return err
	}
	if err := w.WriteU16(uint16(h.Operation)); err != nil {
		return err
	}
	if err := w.WriteBytes(h.SenderHWAddr); err != nil {
		return err
	}
	if err := w.WriteBytes(h.SenderProtoAddr.To4()); err != nil {
		return err
	}
	if err := w.WriteBytes(h.TargetHWAddr); err != nil {
		return err
	}
	return w.WriteBytes(h.TargetProtoAddr.To4())
}
