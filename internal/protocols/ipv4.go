package protocols

import (
	"encoding/binary"
	"net"

	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

const (
	IPv4Version      = 4
	IPv4HdrNoOptions = 20
	IPv4HdrLenMax    = 60
)

// IPv4Opt enumerates the recognized IPv4 option kinds.
type IPv4Opt uint8

const (
	IPv4OptEndOfOptions      IPv4Opt = 0
	IPv4OptNop               IPv4Opt = 1
	IPv4OptLooseSourceRoute  IPv4Opt = 3
	IPv4OptTimestamp         IPv4Opt = 4
	IPv4OptCommercialSecurity IPv4Opt = 6
	IPv4OptStrictSourceRoute IPv4Opt = 9
	IPv4OptRouterAlert       IPv4Opt = 20
)

// IPv4OptCommSec is the decoded Commercial IP Security option.
type IPv4OptCommSec struct {
	CopyOnFrag  uint8
	Class       uint8
	Len         uint8
	DOI         uint32
	TagType     uint8
	Sensitivity uint8
}

// IPv4OptTimestampEntry is one (timestamp, address) pair inside a
// Timestamp option.
type IPv4OptTimestampEntry struct {
	Timestamp uint32
	Addr      uint32
}

// IPv4OptTimestampData is the decoded Timestamp option.
type IPv4OptTimestampData struct {
	CopyOnFrag uint8
	Class      uint8
	Len        uint8
	Ptr        uint8
	Overflow   uint8
	Flag       uint8
	Entries    []IPv4OptTimestampEntry
}

// IPv4OptRouterAlertData is the decoded Router Alert option.
type IPv4OptRouterAlertData struct {
	CopyOnFrag  uint8
	Class       uint8
	RouterAlert uint16
}

// IPv4OptSourceRoute is the decoded shape shared by the strict and
// loose source-route options.
type IPv4OptSourceRoute struct {
	CopyOnFrag uint8
	Class      uint8
	Ptr        uint8
	DestAddr   uint32
}

// IPv4Options holds whichever of the recognized options were present,
// mirroring ipv4_options's nullable members.
type IPv4Options struct {
	CommSec           *IPv4OptCommSec
	Timestamp         *IPv4OptTimestampData
	RouterAlert       *IPv4OptRouterAlertData
	StrictSourceRoute *IPv4OptSourceRoute
	LooseSourceRoute  *IPv4OptSourceRoute
}

// IPv4Header is a decoded IPv4 header.
type IPv4Header struct {
	Version        uint8
	HdrLen         uint32 // in bytes (already multiplied by 4)
	DSCP           uint8
	ECN            uint8
	TotalLen       uint16
	Identification uint16
	Reserved       bool
	DontFrag       bool
	MoreFrag       bool
	FragOffset     uint32
	TTL            uint8
	Protocol       uint8
	HdrChecksum    uint16
	SrcAddr        net.IP
	DstAddr        net.IP
	Opt            IPv4Options
}

// IsFragment reports whether this datagram is a fragment.
func (h *IPv4Header) IsFragment() bool { return h.FragOffset > 0 }

// DeserializeIPv4 decodes an IPv4 header including options, enforcing
// every invariant spec.md §4.2 lists for IPv4.
func DeserializeIPv4(c *wire.Cursor) (*IPv4Header, events.Description, error) {
	if c.Remaining() < IPv4HdrNoOptions {
		return nil, events.EvtIPv4HdrlenTooSmall, nil
	}
	startOff := c.Offset()

	verIHL, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtIPv4HdrlenTooSmall, nil
	}
	version := verIHL >> 4
	ihl := verIHL & 0x0F
	if version != IPv4Version {
		return nil, events.EvtIPv4VersionInvalid, nil
	}
	hdrLen := uint32(ihl) * 4
	if hdrLen < IPv4HdrNoOptions {
		return nil, events.EvtIPv4HdrlenTooSmall, nil
	}
	if hdrLen > IPv4HdrLenMax {
		return nil, events.EvtIPv4HdrlenTooBig, nil
	}

	dscpECN, _ := c.ReadU8()
	totalLen, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtIPv4HdrlenTooSmall, nil
	}
	if uint32(totalLen) < hdrLen {
		return nil, events.EvtIPv4TotalLenSmallerThanHdrLen, nil
	}

	ident, _ := c.ReadU16()
	flagsFrag, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtIPv4HdrlenTooSmall, nil
	}
	reserved := flagsFrag&0x8000 != 0
	dontFrag := flagsFrag&0x4000 != 0
	moreFrag := flagsFrag&0x2000 != 0
	fragOff := uint32(flagsFrag & 0x1FFF)
	if reserved {
		return nil, events.EvtIPv4FlagsInvalid, nil
	}
	if dontFrag && moreFrag {
		return nil, events.EvtIPv4FlagsInvalid, nil
	}

	ttl, _ := c.ReadU8()
	if ttl == 0 {
		return nil, events.EvtIPv4TTLZero, nil
	}
	proto, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtIPv4HdrlenTooSmall, nil
	}
	chksum, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtIPv4HdrlenTooSmall, nil
	}
	srcB, err := c.ReadBytes(4)
	if err != nil {
		return nil, events.EvtIPv4HdrlenTooSmall, nil
	}
	dstB, err := c.ReadBytes(4)
	if err != nil {
		return nil, events.EvtIPv4HdrlenTooSmall, nil
	}
	src := net.IP(append([]byte(nil), srcB...))
	dst := net.IP(append([]byte(nil), dstB...))

	if src.Equal(dst) && !(src.IsLoopback() && dst.IsLoopback()) {
		return nil, events.EvtIPv4InvalSrcAddr, nil
	}
	if src.IsMulticast() || src.Equal(net.IPv4bcast) {
		return nil, events.EvtIPv4InvalSrcAddr, nil
	}

	h := &IPv4Header{
		Version:        version,
		HdrLen:         hdrLen,
		DSCP:           dscpECN >> 2,
		ECN:            dscpECN & 0x3,
		TotalLen:       totalLen,
		Identification: ident,
		Reserved:       reserved,
		DontFrag:       dontFrag,
		MoreFrag:       moreFrag,
		FragOffset:     fragOff,
		TTL:            ttl,
		Protocol:       proto,
		HdrChecksum:    chksum,
		SrcAddr:        src,
		DstAddr:        dst,
	}

	optLen := int(hdrLen) - IPv4HdrNoOptions
	if optLen > 0 {
		desc, err := deserializeIPv4Options(c, &h.Opt, optLen)
		if err != nil {
			return nil, 0, err
		}
		if !desc.Ok() {
			return nil, desc, nil
		}
	}

	// Verify the checksum over the header bytes we just consumed,
	// exactly as captured, without re-reading through the cursor.
	hdrBytes := c.Bytes()[startOff : startOff+int(hdrLen)]
	if !validateIPv4Checksum(hdrBytes) {
		return nil, events.EvtIPv4HdrChksumInvalid, nil
	}

	return h, events.EvtParseOk, nil
}

// SerializeIPv4 writes h's wire form for round-trip tests (§8: "IPv4
// without options"), recomputing the header checksum over the bytes
// just written rather than trusting h.HdrChecksum.
func SerializeIPv4(w *wire.Writer, h *IPv4Header) error {
	start := w.Offset()

	verIHL := uint8(IPv4Version<<4) | uint8(h.HdrLen/4)
	if err := w.WriteU8(verIHL); err != nil {
		return err
	}
	if err := w.WriteU8(h.DSCP<<2 | h.ECN&0x3); err != nil {
		return err
	}
	if err := w.WriteU16(h.TotalLen); err != nil {
		return err
	}
	if err := w.WriteU16(h.Identification); err != nil {
		return err
	}
	flagsFrag := uint16(h.FragOffset) & 0x1FFF
	if h.Reserved {
		flagsFrag |= 0x8000
	}
	if h.DontFrag {
		flagsFrag |= 0x4000
	}
	if h.MoreFrag {
		flagsFrag |= 0x2000
	}
	if err := w.WriteU16(flagsFrag); err != nil {
		return err
	}
	if err := w.WriteU8(h.TTL); err != nil {
		return err
	}
	if err := w.WriteU8(h.Protocol); err != nil {
		return err
	}
	if err := w.WriteU16(0); err != nil { // checksum placeholder, patched below
		return err
	}
	if err := w.WriteBytes(h.SrcAddr.To4()); err != nil {
		return err
	}
	if err := w.WriteBytes(h.DstAddr.To4()); err != nil {
		return err
	}

	hdrBytes := w.Bytes()[start:w.Offset()]
	binary.BigEndian.PutUint16(hdrBytes[10:12], GenerateIPv4Checksum(hdrBytes))
	return nil
}

func deserializeIPv4Options(c *wire.Cursor, opt *IPv4Options, optLen int) (events.Description, error) {
	end := c.Offset() + optLen
	for c.Offset() < end {
		kind, err := c.ReadU8()
		if err != nil {
			return 0, err
		}
		switch IPv4Opt(kind) {
		case IPv4OptEndOfOptions:
			return events.EvtParseOk, nil
		case IPv4OptNop:
			continue
		case IPv4OptCommercialSecurity:
			l, _ := c.ReadU8()
			doi, _ := c.ReadU32()
			tagType, _ := c.ReadU8()
			sensitivity, err := c.ReadU8()
			if err != nil {
				return events.EvtIPv4UnknownOpt, nil
			}
			opt.CommSec = &IPv4OptCommSec{Len: l, DOI: doi, TagType: tagType, Sensitivity: sensitivity}
		case IPv4OptTimestamp:
			l, _ := c.ReadU8()
			ptr, _ := c.ReadU8()
			overflowFlag, err := c.ReadU8()
			if err != nil {
				return events.EvtIPv4UnknownOpt, nil
			}
			ts := &IPv4OptTimestampData{
				Len:      l,
				Ptr:      ptr,
				Overflow: overflowFlag >> 4,
				Flag:     overflowFlag & 0xF,
			}
			remaining := int(l) - 4
			for remaining >= 8 {
				tsv, err := c.ReadU32()
				if err != nil {
					return events.EvtIPv4UnknownOpt, nil
				}
				addr, err := c.ReadU32()
				if err != nil {
					return events.EvtIPv4UnknownOpt, nil
				}
				ts.Entries = append(ts.Entries, IPv4OptTimestampEntry{Timestamp: tsv, Addr: addr})
				remaining -= 8
			}
			opt.Timestamp = ts
		case IPv4OptRouterAlert:
			l, _ := c.ReadU8()
			ra, err := c.ReadU16()
			if err != nil {
				return events.EvtIPv4UnknownOpt, nil
			}
			_ = l
			opt.RouterAlert = &IPv4OptRouterAlertData{RouterAlert: ra}
		case IPv4OptStrictSourceRoute, IPv4OptLooseSourceRoute:
			l, _ := c.ReadU8()
			ptr, _ := c.ReadU8()
			addr, err := c.ReadU32()
			if err != nil {
				return events.EvtIPv4UnknownOpt, nil
			}
			sr := &IPv4OptSourceRoute{Ptr: ptr, DestAddr: addr}
			_ = l
			if IPv4Opt(kind) == IPv4OptStrictSourceRoute {
				opt.StrictSourceRoute = sr
			} else {
				opt.LooseSourceRoute = sr
			}
		default:
			return events.EvtIPv4UnknownOpt, nil
		}
	}
	return events.EvtParseOk, nil
}

// validateIPv4Checksum recomputes the Internet checksum (RFC 791 §3.1)
// over hdr, which must include the transmitted checksum field; a
// well-formed header's ones-complement sum is 0xFFFF.
func validateIPv4Checksum(hdr []byte) bool {
	return ipv4Checksum(hdr) == 0xFFFF
}

// GenerateIPv4Checksum computes the header checksum for hdr with the
// checksum field (bytes 10-11) treated as zero, for use by encoders.
func GenerateIPv4Checksum(hdr []byte) uint16 {
	tmp := append([]byte(nil), hdr...)
	tmp[10], tmp[11] = 0, 0
	sum := ipv4Checksum(tmp)
	return ^sum
}

func ipv4Checksum(b []byte) uint16 {
	var sum uint32
	n := len(b)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
	}
	if n%2 == 1 {
		sum += uint32(b[n-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return uint16(sum)
}
