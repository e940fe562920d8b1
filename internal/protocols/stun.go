package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// STUNHdrLen is the fixed STUN message header length.
const STUNHdrLen = 20

// STUNHeader is a decoded STUN message header.
type STUNHeader struct {
	MsgType       uint16
	MsgLen        uint16
	MsgCookie     uint32
	TransactionID [12]byte
}

// DeserializeSTUN decodes a STUN message header.
func DeserializeSTUN(c *wire.Cursor) (*STUNHeader, events.Description, error) {
	if c.Remaining() < STUNHdrLen {
		return nil, events.EvtSTUNHdrTooSmall, nil
	}
	msgType, _ := c.ReadU16()
	msgLen, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtSTUNHdrTooSmall, nil
	}
	cookie, err := c.ReadU32()
	if err != nil {
		return nil, events.EvtSTUNHdrTooSmall, nil
	}
	txID, err := c.ReadBytes(12)
	if err != nil {
		return nil, events.EvtSTUNHdrTooSmall, nil
	}

	h := &STUNHeader{MsgType: msgType, MsgLen: msgLen, MsgCookie: cookie}
	copy(h.TransactionID[:], txID)

	return h, events.EvtParseOk, nil
}
