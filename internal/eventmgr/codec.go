package eventmgr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"

	"github.com/nidsd/nidsd/internal/events"
)

// event_msg and its optional IPv4/TCP/UDP tails are little-endian on
// the wire (spec.md §6), distinct from the big-endian cursor the
// parser package uses for on-wire protocol decoding — this codec only
// ever serializes events for storage/transport, never raw frames.
// Wire layout per spec.md §6: event_msg (rule_id u32; type u8; desc
// u16; ethertype u16) + optional event_ipv4_info (src u32; dst u32;
// ttl u8; protocol u32) + optional event_tcp_info (src_port u16;
// dst_port u16; flags u16; data_len u16) or event_udp_info (src_port
// u16; dst_port u16; data_len u16). This departs from
// original_source/src/events/event_msg.h's packed syn/ack/fin/psh
// bitfield and u32 ethertype — spec.md §6 supersedes the original C
// struct layout explicitly, so the codec follows the spec.
const (
	msgHdrLen   = 4 + 1 + 2 + 2 // rule_id, evt_type(u8), evt_desc(u16), ethertype(u16)
	ipv4InfoLen = 4 + 4 + 1 + 4
	tcpInfoLen  = 2 + 2 + 2 + 2
	udpInfoLen  = 2 + 2 + 2
)

// EncodeMessage renders ev as the little-endian event_msg cleartext
// payload described in spec.md §6, with the IPv4 and TCP/UDP tails
// appended when ev carries that layer's information.
func EncodeMessage(ev events.Event) []byte {
	var buf bytes.Buffer
	buf.Grow(msgHdrLen + ipv4InfoLen + tcpInfoLen)

	writeU32 := func(v uint32) { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); buf.Write(b[:]) }
	writeU16 := func(v uint16) { var b [2]byte; binary.LittleEndian.PutUint16(b[:], v); buf.Write(b[:]) }

	writeU32(ev.RuleID)
	buf.WriteByte(byte(ev.Type))
	writeU16(uint16(ev.Description))
	writeU16(ev.Ethertype)

	if ev.SrcAddr != nil || ev.DstAddr != nil {
		writeU32(ipv4ToUint32(ev.SrcAddr))
		writeU32(ipv4ToUint32(ev.DstAddr))
		buf.WriteByte(ev.TTL)
		writeU32(uint32(ev.Protocol))

		if ev.SrcPort != 0 || ev.DstPort != 0 {
			writeU16(ev.SrcPort)
			writeU16(ev.DstPort)
			if ev.Protocol != 17 { // UDP tail has no flags field
				writeU16(ev.TCPFlags)
			}
			writeU16(0) // data_len: events carry no payload bytes
		}
	}

	return buf.Bytes()
}

func ipv4ToUint32(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(v4)
}

// DecodeMessage parses the little-endian event_msg cleartext payload
// produced by EncodeMessage. hasTCP distinguishes the TCP and UDP
// tails, which are otherwise indistinguishable by length alone.
func DecodeMessage(b []byte, hasTCP bool) (events.Event, error) {
	if len(b) < msgHdrLen {
		return events.Event{}, fmt.Errorf("eventmgr: message too short: %d bytes", len(b))
	}

	var ev events.Event
	ev.RuleID = binary.LittleEndian.Uint32(b[0:4])
	ev.Type = events.Type(b[4])
	ev.Description = events.Description(binary.LittleEndian.Uint16(b[5:7]))
	ev.Ethertype = binary.LittleEndian.Uint16(b[7:9])

	rest := b[msgHdrLen:]
	if len(rest) < ipv4InfoLen {
		return ev, nil
	}

	ev.SrcAddr = uint32ToIPv4(binary.LittleEndian.Uint32(rest[0:4]))
	ev.DstAddr = uint32ToIPv4(binary.LittleEndian.Uint32(rest[4:8]))
	ev.TTL = rest[8]
	ev.Protocol = uint8(binary.LittleEndian.Uint32(rest[9:13]))

	rest = rest[ipv4InfoLen:]
	if hasTCP && len(rest) >= tcpInfoLen {
		ev.SrcPort = binary.LittleEndian.Uint16(rest[0:2])
		ev.DstPort = binary.LittleEndian.Uint16(rest[2:4])
		ev.TCPFlags = binary.LittleEndian.Uint16(rest[4:6])
	} else if !hasTCP && len(rest) >= udpInfoLen {
		ev.SrcPort = binary.LittleEndian.Uint16(rest[0:2])
		ev.DstPort = binary.LittleEndian.Uint16(rest[2:4])
	}

	return ev, nil
}

func uint32ToIPv4(v uint32) net.IP {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return net.IPv4(b[0], b[1], b[2], b[3])
}
