package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// ICMPv6Type enumerates the recognized ICMPv6 message types.
type ICMPv6Type uint8

const (
	ICMPv6DestUnreachable ICMPv6Type = 1
	ICMPv6PacketTooBig    ICMPv6Type = 2
	ICMPv6TimeExceeded    ICMPv6Type = 3
	ICMPv6ParamProblem    ICMPv6Type = 4
	ICMPv6EchoReq         ICMPv6Type = 128
	ICMPv6EchoReply       ICMPv6Type = 129
	ICMPv6RouterSolicit   ICMPv6Type = 133
	ICMPv6RouterAdvert    ICMPv6Type = 134
	ICMPv6NeighborSolicit ICMPv6Type = 135
	ICMPv6NeighborAdvert  ICMPv6Type = 136
)

// ICMPv6OptKind enumerates the recognized Neighbor Discovery option
// kinds.
type ICMPv6OptKind uint8

const (
	ICMPv6OptSourceLLAddr    ICMPv6OptKind = 1
	ICMPv6OptTargetLLAddr    ICMPv6OptKind = 2
	ICMPv6OptPrefixInfo      ICMPv6OptKind = 3
	ICMPv6OptMTU             ICMPv6OptKind = 5
	ICMPv6OptDNSSearchList   ICMPv6OptKind = 31
)

// ICMPv6Option is a decoded Neighbor Discovery TLV option.
type ICMPv6Option struct {
	Kind ICMPv6OptKind
	Data []byte
}

// ICMPv6Header is a decoded ICMPv6 message header.
type ICMPv6Header struct {
	Type     ICMPv6Type
	Code     uint8
	Checksum uint16
	Options  []ICMPv6Option
}

func icmpv6TypeRecognized(t ICMPv6Type) bool {
	switch t {
	case ICMPv6DestUnreachable, ICMPv6PacketTooBig, ICMPv6TimeExceeded, ICMPv6ParamProblem,
		ICMPv6EchoReq, ICMPv6EchoReply, ICMPv6RouterSolicit, ICMPv6RouterAdvert,
		ICMPv6NeighborSolicit, ICMPv6NeighborAdvert:
		return true
	default:
		return false
	}
}

// DeserializeICMPv6 decodes an ICMPv6 header and, for Neighbor
// Discovery messages, its trailing option TLV sequence.
func DeserializeICMPv6(c *wire.Cursor) (*ICMPv6Header, events.Description, error) {
	if c.Remaining() < 4 {
		return nil, events.EvtIcmpHdrLenTooShort, nil
	}
	typ, _ := c.ReadU8()
	code, _ := c.ReadU8()
	checksum, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtIcmpHdrLenTooShort, nil
	}
	if !icmpv6TypeRecognized(ICMPv6Type(typ)) {
		return nil, events.EvtIcmp6TypeUnsupported, nil
	}

	h := &ICMPv6Header{Type: ICMPv6Type(typ), Code: code, Checksum: checksum}

	switch h.Type {
	case ICMPv6RouterSolicit, ICMPv6RouterAdvert, ICMPv6NeighborSolicit, ICMPv6NeighborAdvert:
		// Skip the type's fixed message body (RS 4, RA 12, NS/NA 20
		// bytes); the option TLV sequence follows it. Decoding is
		// tolerant of zero remaining bytes (no options present).
		fixedLen := 20
		switch h.Type {
		case ICMPv6RouterSolicit:
			fixedLen = 4
		case ICMPv6RouterAdvert:
			fixedLen = 12
		}
		if err := c.Skip(fixedLen); err != nil {
			return nil, events.EvtIcmpHdrLenTooShort, nil
		}
		for c.Remaining() >= 2 {
			kind, _ := c.ReadU8()
			lenWords, err := c.ReadU8()
			if err != nil || lenWords == 0 {
				return nil, events.EvtIcmpHdrLenTooShort, nil
			}
			bodyLen := int(lenWords)*8 - 2
			if bodyLen < 0 || c.Remaining() < bodyLen {
				return nil, events.EvtIcmpHdrLenTooShort, nil
			}
			data, err := c.ReadBytes(bodyLen)
			if err != nil {
				return nil, events.EvtIcmpHdrLenTooShort, nil
			}
			h.Options = append(h.Options, ICMPv6Option{Kind: ICMPv6OptKind(kind), Data: append([]byte(nil), data...)})
		}
	}

	return h, events.EvtParseOk, nil
}
