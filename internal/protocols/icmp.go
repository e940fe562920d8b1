package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// ICMPType enumerates the recognized ICMP message types.
type ICMPType uint8

const (
	ICMPEchoReply       ICMPType = 0
	ICMPDestUnreachable ICMPType = 3
	ICMPSourceQuench    ICMPType = 4
	ICMPRedirect        ICMPType = 5
	ICMPEchoReq         ICMPType = 8
	ICMPTimeExceeded    ICMPType = 11
	ICMPParameterProblem ICMPType = 12
	ICMPTs              ICMPType = 13
	ICMPTsReply         ICMPType = 14
	ICMPInfoReq         ICMPType = 15
	ICMPInfoReply       ICMPType = 16
)

func icmpTypeRecognized(t ICMPType) bool {
	switch t {
	case ICMPEchoReply, ICMPDestUnreachable, ICMPSourceQuench, ICMPRedirect,
		ICMPEchoReq, ICMPTimeExceeded, ICMPParameterProblem, ICMPTs, ICMPTsReply,
		ICMPInfoReq, ICMPInfoReply:
		return true
	default:
		return false
	}
}

// ICMPEcho holds the decoded fields shared by Echo-Request and
// Echo-Reply messages.
type ICMPEcho struct {
	ID, Seq uint16
	Data    []byte
}

// ICMPHeader is a decoded ICMP message header plus, where recognized,
// its type-specific body.
type ICMPHeader struct {
	Type     ICMPType
	Code     uint8
	Checksum uint16

	EchoReq   *ICMPEcho
	EchoReply *ICMPEcho
}

// DeserializeICMP decodes an ICMP header. For echo-req/echo-reply the
// id, sequence, and remaining payload are captured per spec.md §4.2.
func DeserializeICMP(c *wire.Cursor) (*ICMPHeader, events.Description, error) {
	if c.Remaining() < 4 {
		return nil, events.EvtIcmpHdrLenTooShort, nil
	}
	typ, _ := c.ReadU8()
	code, _ := c.ReadU8()
	checksum, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtIcmpHdrLenTooShort, nil
	}
	if !icmpTypeRecognized(ICMPType(typ)) {
		return nil, events.EvtIcmpInvalidType, nil
	}

	h := &ICMPHeader{Type: ICMPType(typ), Code: code, Checksum: checksum}

	switch h.Type {
	case ICMPEchoReq, ICMPEchoReply:
		if c.Remaining() < 4 {
			if h.Type == ICMPEchoReq {
				return nil, events.EvtIcmpEchoReqHdrLenTooShort, nil
			}
			return nil, events.EvtIcmpEchoReplyHdrLenTooShort, nil
		}
		id, _ := c.ReadU16()
		seq, err := c.ReadU16()
		if err != nil {
			return nil, events.EvtIcmpEchoReqHdrLenTooShort, nil
		}
		data, _ := c.ReadBytes(c.Remaining())
		echo := &ICMPEcho{ID: id, Seq: seq, Data: append([]byte(nil), data...)}
		if h.Type == ICMPEchoReq {
			h.EchoReq = echo
		} else {
			h.EchoReply = echo
		}
	case ICMPTs, ICMPTsReply:
		if c.Remaining() < 16 {
			return nil, events.EvtIcmpTsMsgHdrLenTooShort, nil
		}
		if err := c.Skip(16); err != nil {
			return nil, events.EvtIcmpTsMsgHdrLenTooShort, nil
		}
	case ICMPInfoReq, ICMPInfoReply:
		if c.Remaining() < 4 {
			return nil, events.EvtIcmpInfoMsgHdrLenTooShort, nil
		}
		if err := c.Skip(4); err != nil {
			return nil, events.EvtIcmpInfoMsgHdrLenTooShort, nil
		}
	case ICMPDestUnreachable:
		if h.Code > 5 {
			return nil, events.EvtIcmpDestUnreachableInvalidCode, nil
		}
	case ICMPTimeExceeded:
		if h.Code > 1 {
			return nil, events.EvtIcmpTimeExceededInvalidCode, nil
		}
	}

	return h, events.EvtParseOk, nil
}
