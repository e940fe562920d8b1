package protocols

import (
	"net"

	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// DHCPMacAddrLen is the fixed client hardware address length this
// sensor expects (Ethernet).
const DHCPMacAddrLen = 6

// DHCPHdrLenFixed is the BOOTP fixed portion preceding the magic cookie
// and options (op through bootfilename).
const DHCPHdrLenFixed = 236

// DHCPMagic is the DHCP magic cookie that must immediately follow the
// fixed BOOTP header: the literal ASCII bytes "DHCP", not RFC 2131's
// binary 0x63825363 cookie.
var DHCPMagic = [4]byte{'D', 'H', 'C', 'P'}

// DHCPOptKind enumerates the recognized DHCP option kinds.
type DHCPOptKind uint8

const (
	DHCPOptSubnetMask      DHCPOptKind = 1
	DHCPOptRouter          DHCPOptKind = 3
	DHCPOptReqIPAddr       DHCPOptKind = 50
	DHCPOptMsgType         DHCPOptKind = 53
	DHCPOptServerID        DHCPOptKind = 54
	DHCPOptParamReqList    DHCPOptKind = 55
	DHCPOptRenewalTime     DHCPOptKind = 58
	DHCPOptRebindingTime   DHCPOptKind = 59
	DHCPOptEnd             DHCPOptKind = 255
)

// DHCPHeader is a decoded DHCP message.
type DHCPHeader struct {
	MsgType           uint8 // BOOTP op
	HWType            uint8
	HWAddrLen         uint8
	Hops              uint8
	TransactionID     uint32
	SecsElapsed       uint16
	Broadcast         bool
	ClientIPAddr      net.IP
	YourIPAddr        net.IP
	NextServerIPAddr  net.IP
	RelayAgentIPAddr  net.IP
	ClientMACAddr     net.HardwareAddr

	DHCPMsgType    *uint8
	ReqIPAddr      *net.IP
	ServerID       *net.IP
	RenewalTime    *uint32
	RebindingTime  *uint32
}

// DeserializeDHCP decodes a DHCP message: the fixed BOOTP header, the
// magic cookie, and a TLV option list.
func DeserializeDHCP(c *wire.Cursor) (*DHCPHeader, events.Description, error) {
	if c.Remaining() < DHCPHdrLenFixed+4 {
		return nil, events.EvtDHCPHdrLenTooShort, nil
	}

	msgType, _ := c.ReadU8()
	hwType, _ := c.ReadU8()
	hwAddrLen, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtDHCPHdrLenTooShort, nil
	}
	hops, _ := c.ReadU8()
	xid, _ := c.ReadU32()
	secs, _ := c.ReadU16()
	flags, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtDHCPHdrLenTooShort, nil
	}
	clientIP, _ := c.ReadBytes(4)
	yourIP, _ := c.ReadBytes(4)
	nextServerIP, _ := c.ReadBytes(4)
	relayIP, err := c.ReadBytes(4)
	if err != nil {
		return nil, events.EvtDHCPHdrLenTooShort, nil
	}
	clientMAC, err := c.ReadBytes(DHCPMacAddrLen)
	if err != nil {
		return nil, events.EvtDHCPHdrLenTooShort, nil
	}
	// remaining padding (10) + server_hostname (64) + bootfilename (128) = 202
	if err := c.Skip(10 + 64 + 128); err != nil {
		return nil, events.EvtDHCPHdrLenTooShort, nil
	}

	magic, err := c.ReadBytes(4)
	if err != nil {
		return nil, events.EvtDHCPHdrLenTooShort, nil
	}
	if magic[0] != DHCPMagic[0] || magic[1] != DHCPMagic[1] || magic[2] != DHCPMagic[2] || magic[3] != DHCPMagic[3] {
		return nil, events.EvtDHCPMAGICInvalid, nil
	}

	h := &DHCPHeader{
		MsgType: msgType, HWType: hwType, HWAddrLen: hwAddrLen, Hops: hops,
		TransactionID: xid, SecsElapsed: secs, Broadcast: flags&0x8000 != 0,
		ClientIPAddr:     net.IP(append([]byte(nil), clientIP...)),
		YourIPAddr:       net.IP(append([]byte(nil), yourIP...)),
		NextServerIPAddr: net.IP(append([]byte(nil), nextServerIP...)),
		RelayAgentIPAddr: net.IP(append([]byte(nil), relayIP...)),
		ClientMACAddr:    net.HardwareAddr(append([]byte(nil), clientMAC...)),
	}

	desc, err := deserializeDHCPOptions(c, h)
	if err != nil {
		return nil, 0, err
	}
	if !desc.Ok() {
		return nil, desc, nil
	}

	return h, events.EvtParseOk, nil
}

func deserializeDHCPOptions(c *wire.Cursor, h *DHCPHeader) (events.Description, error) {
	for c.Remaining() > 0 {
		kind, err := c.ReadU8()
		if err != nil {
			return 0, err
		}
		if DHCPOptKind(kind) == DHCPOptEnd {
			break
		}
		if c.Remaining() < 1 {
			return events.EvtDHCPHdrLenTooShort, nil
		}
		length, err := c.ReadU8()
		if err != nil {
			return 0, err
		}
		if c.Remaining() < int(length) {
			return events.EvtDHCPHdrLenTooShort, nil
		}

		switch DHCPOptKind(kind) {
		case DHCPOptSubnetMask:
			if length != 4 {
				return events.EvtDHCPOptSubnetMaskLenInval, nil
			}
			if err := c.Skip(4); err != nil {
				return 0, err
			}
		case DHCPOptMsgType:
			if length != 1 {
				return events.EvtDHCPHdrLenTooShort, nil
			}
			v, _ := c.ReadU8()
			h.DHCPMsgType = &v
		case DHCPOptReqIPAddr:
			if length != 4 {
				return events.EvtDHCPOptIpaddrLeaseTimeLenInval, nil
			}
			b, _ := c.ReadBytes(4)
			ip := net.IP(append([]byte(nil), b...))
			h.ReqIPAddr = &ip
		case DHCPOptServerID:
			if length != 4 {
				return events.EvtDHCPOptServerIdLenInval, nil
			}
			b, _ := c.ReadBytes(4)
			ip := net.IP(append([]byte(nil), b...))
			h.ServerID = &ip
		case DHCPOptRenewalTime:
			if length != 4 {
				return events.EvtDHCPOptRenewalTimeLenInval, nil
			}
			v, _ := c.ReadU32()
			h.RenewalTime = &v
		case DHCPOptRebindingTime:
			if length != 4 {
				return events.EvtDHCPOptRebindingTimeLenInval, nil
			}
			v, _ := c.ReadU32()
			h.RebindingTime = &v
		default:
			if err := c.Skip(int(length)); err != nil {
				return 0, err
			}
		}
	}
	return events.EvtParseOk, nil
}
