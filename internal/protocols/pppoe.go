package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// PPPoEHdrLen is the fixed PPPoE header length before the payload.
const PPPoEHdrLen = 6

// PPPoECodeSessionData is the only session-stage code this sensor
// expects to see inside a PPPoE session frame.
const PPPoECodeSessionData = 0x00

// PPPoEProtocolIPv6 is the PPP protocol field value carrying IPv6.
const PPPoEProtocolIPv6 = 0x0057

// PPPoEHeader is a decoded PPPoE session-stage header.
type PPPoEHeader struct {
	Version   uint8
	Type      uint8
	Code      uint8
	SessionID uint16
	PayloadLen uint16
	Protocol  uint16
}

// DeserializePPPoE decodes a PPPoE session-stage header.
func DeserializePPPoE(c *wire.Cursor) (*PPPoEHeader, events.Description, error) {
	if c.Remaining() < PPPoEHdrLen {
		return nil, events.EvtPPPoEHdrTooSmall, nil
	}
	verType, _ := c.ReadU8()
	code, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtPPPoEHdrTooSmall, nil
	}
	sessionID, _ := c.ReadU16()
	payloadLen, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtPPPoEHdrTooSmall, nil
	}

	h := &PPPoEHeader{
		Version: verType >> 4, Type: verType & 0x0F,
		Code: code, SessionID: sessionID, PayloadLen: payloadLen,
	}

	if h.Code != PPPoECodeSessionData {
		return nil, events.EvtPPPoECodeUnsupported, nil
	}

	protocol, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtPPPoEHdrTooSmall, nil
	}
	h.Protocol = protocol

	return h, events.EvtParseOk, nil
}
