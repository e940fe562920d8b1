package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// SomeIPPduHdrLen is the fixed SOME/IP PDU header length preceding the
// payload.
const SomeIPPduHdrLen = 16

// SomeIPMsgType enumerates message types this sensor distinguishes.
type SomeIPMsgType uint8

const (
	SomeIPNotification SomeIPMsgType = 2
)

// SomeIPReturnCode enumerates return codes this sensor distinguishes.
type SomeIPReturnCode uint8

const (
	SomeIPReturnOk SomeIPReturnCode = 0
)

// SomeIPPDU is one decoded SOME/IP protocol data unit.
type SomeIPPDU struct {
	ServiceID        uint16
	MethodID         uint16
	Length           uint32
	ClientID         uint16
	SessionID        uint16
	Version          uint8
	InterfaceVersion uint8
	MsgTypeAck       bool
	MsgTypeTP        bool
	MsgType          uint8
	ReturnCode       uint8
	Payload          []byte
}

// SomeIPHeader is a decoded sequence of SOME/IP PDUs packed back to
// back in a single UDP/TCP payload.
type SomeIPHeader struct {
	PDUs []SomeIPPDU
}

// DeserializeSomeIP decodes as many SOME/IP PDUs as fit in the
// remaining buffer.
func DeserializeSomeIP(c *wire.Cursor) (*SomeIPHeader, events.Description, error) {
	h := &SomeIPHeader{}

	for c.Remaining() >= SomeIPPduHdrLen {
		serviceID, _ := c.ReadU16()
		methodID, _ := c.ReadU16()
		length, err := c.ReadU32()
		if err != nil {
			return nil, events.EvtSomeIPHdrTooSmall, nil
		}
		// length covers everything from client_id onward, including
		// the 8-byte request/response block and the payload.
		if length < 8 || int(length)-8 > c.Remaining()-8 {
			return nil, events.EvtSomeIPHdrTooSmall, nil
		}
		clientID, _ := c.ReadU16()
		sessionID, _ := c.ReadU16()
		version, _ := c.ReadU8()
		ifaceVersion, err := c.ReadU8()
		if err != nil {
			return nil, events.EvtSomeIPHdrTooSmall, nil
		}
		msgTypeByte, _ := c.ReadU8()
		returnCode, err := c.ReadU8()
		if err != nil {
			return nil, events.EvtSomeIPHdrTooSmall, nil
		}

		payloadLen := int(length) - 8
		if payloadLen < 0 || c.Remaining() < payloadLen {
			return nil, events.EvtSomeIPHdrTooSmall, nil
		}
		payload, err := c.ReadBytes(payloadLen)
		if err != nil {
			return nil, events.EvtSomeIPHdrTooSmall, nil
		}

		h.PDUs = append(h.PDUs, SomeIPPDU{
			ServiceID: serviceID, MethodID: methodID, Length: length,
			ClientID: clientID, SessionID: sessionID, Version: version,
			InterfaceVersion: ifaceVersion,
			MsgTypeAck:       msgTypeByte&0x01 != 0,
			MsgTypeTP:        msgTypeByte&0x02 != 0,
			MsgType:          msgTypeByte,
			ReturnCode:       returnCode,
			Payload:          append([]byte(nil), payload...),
		})
	}

	return h, events.EvtParseOk, nil
}
