package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// TCPHdrLenNoOptions is the fixed TCP header size before options.
const TCPHdrLenNoOptions = 20

// TCPOptKind enumerates the recognized TCP option kinds.
type TCPOptKind uint8

const (
	TCPOptNop           TCPOptKind = 1
	TCPOptMSS           TCPOptKind = 2
	TCPOptWinScale      TCPOptKind = 3
	TCPOptSACKPermitted TCPOptKind = 4
	TCPOptTimestamp     TCPOptKind = 8
)

// TCPOptions holds whichever recognized options were present. Per
// spec.md §4.2, MSS, SACK-permitted, timestamp and window-scale may
// each appear at most once; a repeat is Evt_Tcp_Invalid_Option.
type TCPOptions struct {
	MSS             *uint16
	SACKPermitted   bool
	TimestampVal    *uint32
	TimestampEcho   *uint32
	WinScaleShift   *uint8
}

// TCPHeader is a decoded TCP segment header.
type TCPHeader struct {
	SrcPort, DstPort         uint16
	SeqNo, AckNo             uint32
	HdrLen                   uint8 // in bytes
	ECN, CWR, ECNEcho        bool
	URG, ACK, PSH, RST, SYN, FIN bool
	Window                   uint16
	Checksum                 uint16
	UrgPtr                   uint16
	Opts                     TCPOptions
}

// flagsAllSet reports whether every control flag is 1; flagsNoneSet
// the opposite; both are anomalies per spec.md §4.2.
func (h *TCPHeader) flagsAllSet() bool {
	return h.ECN && h.CWR && h.ECNEcho && h.URG && h.ACK && h.PSH && h.RST && h.SYN && h.FIN
}

func (h *TCPHeader) flagsNoneSet() bool {
	return !(h.ECN || h.CWR || h.ECNEcho || h.URG || h.ACK || h.PSH || h.RST || h.SYN || h.FIN)
}

// DeserializeTCP decodes a TCP header and its option TLV sequence.
func DeserializeTCP(c *wire.Cursor) (*TCPHeader, events.Description, error) {
	if c.Remaining() < TCPHdrLenNoOptions {
		return nil, events.EvtTcpHdrlenTooShort, nil
	}
	srcPort, _ := c.ReadU16()
	dstPort, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtTcpHdrlenTooShort, nil
	}
	if srcPort == 0 || dstPort == 0 {
		return nil, events.EvtTcpPortZero, nil
	}
	seq, _ := c.ReadU32()
	ack, err := c.ReadU32()
	if err != nil {
		return nil, events.EvtTcpHdrlenTooShort, nil
	}
	offsetReserved, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtTcpHdrlenTooShort, nil
	}
	hdrLen := (offsetReserved >> 4) * 4
	if hdrLen < TCPHdrLenNoOptions {
		return nil, events.EvtTcpHdrlenTooShort, nil
	}
	flagsByte, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtTcpHdrlenTooShort, nil
	}
	window, _ := c.ReadU16()
	checksum, _ := c.ReadU16()
	urgPtr, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtTcpHdrlenTooShort, nil
	}

	h := &TCPHeader{
		SrcPort: srcPort, DstPort: dstPort,
		SeqNo: seq, AckNo: ack,
		HdrLen:  hdrLen,
		CWR:     flagsByte&0x80 != 0,
		ECNEcho: flagsByte&0x40 != 0,
		URG:     flagsByte&0x20 != 0,
		ACK:     flagsByte&0x10 != 0,
		PSH:     flagsByte&0x08 != 0,
		RST:     flagsByte&0x04 != 0,
		SYN:     flagsByte&0x02 != 0,
		FIN:     flagsByte&0x01 != 0,
		Window:  window, Checksum: checksum, UrgPtr: urgPtr,
	}

	if h.SYN && h.FIN {
		return nil, events.EvtTcpFlagsSynFinSet, nil
	}
	if h.flagsAllSet() {
		return nil, events.EvtTcpFlagsAllSet, nil
	}
	if h.flagsNoneSet() {
		return nil, events.EvtTcpFlagsNoneSet, nil
	}

	optLen := int(hdrLen) - TCPHdrLenNoOptions
	if optLen > 0 {
		desc, err := deserializeTCPOptions(c, &h.Opts, optLen)
		if err != nil {
			return nil, 0, err
		}
		if !desc.Ok() {
			return nil, desc, nil
		}
	}

	return h, events.EvtParseOk, nil
}

func deserializeTCPOptions(c *wire.Cursor, opt *TCPOptions, optLen int) (events.Description, error) {
	end := c.Offset() + optLen
	for c.Offset() < end {
		kind, err := c.ReadU8()
		if err != nil {
			return 0, err
		}
		switch TCPOptKind(kind) {
		case TCPOptNop:
			continue
		case TCPOptMSS:
			l, _ := c.ReadU8()
			v, err := c.ReadU16()
			if err != nil || l != 4 {
				return events.EvtTcpInvalidOption, nil
			}
			if opt.MSS != nil {
				return events.EvtTcpInvalidOption, nil
			}
			opt.MSS = &v
		case TCPOptSACKPermitted:
			l, err := c.ReadU8()
			if err != nil || l != 2 {
				return events.EvtTcpInvalidOption, nil
			}
			if opt.SACKPermitted {
				return events.EvtTcpInvalidOption, nil
			}
			opt.SACKPermitted = true
		case TCPOptTimestamp:
			l, _ := c.ReadU8()
			if l != 10 {
				return events.EvtTcpOptTsInvalLen, nil
			}
			val, _ := c.ReadU32()
			echo, err := c.ReadU32()
			if err != nil {
				return events.EvtTcpOptTsInvalLen, nil
			}
			if opt.TimestampVal != nil {
				return events.EvtTcpInvalidOption, nil
			}
			opt.TimestampVal = &val
			opt.TimestampEcho = &echo
		case TCPOptWinScale:
			l, _ := c.ReadU8()
			if l != 3 {
				return events.EvtTcpOptWinScaleInvalLen, nil
			}
			shift, err := c.ReadU8()
			if err != nil {
				return events.EvtTcpOptWinScaleInvalLen, nil
			}
			if opt.WinScaleShift != nil {
				return events.EvtTcpInvalidOption, nil
			}
			opt.WinScaleShift = &shift
		default:
			// Unknown option kind: consume its length-prefixed body
			// if present, otherwise treat as invalid.
			l, err := c.ReadU8()
			if err != nil || l < 2 {
				return events.EvtTcpInvalidOption, nil
			}
			if err := c.Skip(int(l) - 2); err != nil {
				return events.EvtTcpInvalidOption, nil
			}
		}
	}
	return events.EvtParseOk, nil
}
