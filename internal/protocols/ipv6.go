package protocols

import (
	"net"

	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// IPv6Version is the only version value accepted.
const IPv6Version = 6

// IPv6AddrLen is the fixed address length in bytes.
const IPv6AddrLen = 16

// IPv6HdrLen is the fixed IPv6 header length.
const IPv6HdrLen = 40

// IPv6NHType enumerates the next-header values this sensor inspects.
type IPv6NHType uint8

const (
	IPv6NHHopByHopOpt IPv6NHType = 0
	IPv6NHAuthHeader  IPv6NHType = 51
)

// IPv6Opt enumerates recognized hop-by-hop option kinds.
type IPv6Opt uint8

const (
	IPv6OptRouterAlert IPv6Opt = 0x05
)

// IPv6OptRouterAlertData is a decoded Router Alert hop-by-hop option.
type IPv6OptRouterAlertData struct {
	Len         uint8
	RouterAlert uint16
}

// IPv6HopByHopHeader is a decoded Hop-by-Hop Options extension header.
type IPv6HopByHopHeader struct {
	NextHeader uint8
	Len        uint8
	RouterAlert *IPv6OptRouterAlertData
}

// IPv6Header is a decoded IPv6 header. Hop-by-Hop Options and AH
// extension headers are followed transparently (spec.md §4.2);
// NextHeader is always the effective upper-layer protocol that
// remains after any such chain, never an extension header's own type.
type IPv6Header struct {
	Version    uint8
	Priority   uint8
	FlowLabel  uint32
	PayloadLen uint16
	NextHeader uint8
	HopLimit   uint8
	SrcAddr    net.IP
	DstAddr    net.IP
	HopByHop   *IPv6HopByHopHeader
	AH         *IPSecAHHeader
}

// DeserializeIPv6 decodes an IPv6 header and, when present, a chain of
// Hop-by-Hop Options and AH extension headers, leaving NextHeader set
// to the final, effective upper-layer protocol (spec.md §4.2).
func DeserializeIPv6(c *wire.Cursor) (*IPv6Header, events.Description, error) {
	if c.Remaining() < IPv6HdrLen {
		return nil, events.EvtIPv6HdrlenTooSmall, nil
	}
	verClassFlow, err := c.ReadU32()
	if err != nil {
		return nil, events.EvtIPv6HdrlenTooSmall, nil
	}
	version := uint8(verClassFlow >> 28)
	priority := uint8((verClassFlow >> 20) & 0xFF)
	flowLabel := verClassFlow & 0x000FFFFF

	if version != IPv6Version {
		return nil, events.EvtIPv6VersionInvalid, nil
	}

	payloadLen, _ := c.ReadU16()
	nh, _ := c.ReadU8()
	hopLimit, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtIPv6HdrlenTooSmall, nil
	}
	srcAddr, err := c.ReadBytes(IPv6AddrLen)
	if err != nil {
		return nil, events.EvtIPv6HdrlenTooSmall, nil
	}
	dstAddr, err := c.ReadBytes(IPv6AddrLen)
	if err != nil {
		return nil, events.EvtIPv6HdrlenTooSmall, nil
	}

	if int(payloadLen) > c.Remaining() {
		return nil, events.EvtIPv6PayloadLenInvalid, nil
	}

	h := &IPv6Header{
		Version: version, Priority: priority, FlowLabel: flowLabel,
		PayloadLen: payloadLen, NextHeader: nh, HopLimit: hopLimit,
		SrcAddr: net.IP(append([]byte(nil), srcAddr...)),
		DstAddr: net.IP(append([]byte(nil), dstAddr...)),
	}

	for {
		switch IPv6NHType(nh) {
		case IPv6NHHopByHopOpt:
			hh, desc, err := deserializeIPv6HopByHop(c)
			if err != nil {
				return nil, 0, err
			}
			if !desc.Ok() {
				return nil, desc, nil
			}
			h.HopByHop = hh
			nh = hh.NextHeader
			continue
		case IPv6NHAuthHeader:
			ah, desc, err := DeserializeIPSecAH(c)
			if err != nil {
				return nil, 0, err
			}
			if !desc.Ok() {
				return nil, desc, nil
			}
			h.AH = ah
			nh = ah.NextHeader
			continue
		}
		break
	}
	h.NextHeader = nh

	return h, events.EvtParseOk, nil
}

// deserializeIPv6HopByHop decodes one Hop-by-Hop Options extension
// header, consuming its full declared length so the cursor lands
// exactly on the next extension header or the upper-layer payload
// (RFC 8200: total length is (len+1)*8 bytes, including the two
// octets read for nh/len themselves).
func deserializeIPv6HopByHop(c *wire.Cursor) (*IPv6HopByHopHeader, events.Description, error) {
	if c.Remaining() < 2 {
		return nil, events.EvtIPv6HdrlenTooSmall, nil
	}
	nh, _ := c.ReadU8()
	length, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtIPv6HdrlenTooSmall, nil
	}
	h := &IPv6HopByHopHeader{NextHeader: nh, Len: length}

	optsLen := (int(length)+1)*8 - 2
	if optsLen < 0 || c.Remaining() < optsLen {
		return nil, events.EvtIPv6HdrlenTooSmall, nil
	}

	consumed := 0
	if optsLen >= 1 {
		kind, err := c.ReadU8()
		if err != nil {
			return nil, events.EvtIPv6HdrlenTooSmall, nil
		}
		consumed++
		if IPv6Opt(kind) == IPv6OptRouterAlert && optsLen >= 4 {
			optLen, _ := c.ReadU8()
			ra, err := c.ReadU16()
			if err != nil {
				return nil, events.EvtIPv6HdrlenTooSmall, nil
			}
			consumed += 3
			h.RouterAlert = &IPv6OptRouterAlertData{Len: optLen, RouterAlert: ra}
		}
	}

	if remainder := optsLen - consumed; remainder > 0 {
		if _, err := c.ReadBytes(remainder); err != nil {
			return nil, events.EvtIPv6HdrlenTooSmall, nil
		}
	}

	return h, events.EvtParseOk, nil
}
