package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// IEEE8021ADHdrLen mirrors ieee8021ad_hdr's fixed 4-byte length.
const IEEE8021ADHdrLen = 4

// IEEE8021ADHeader is a decoded 802.1ad ("QinQ" service tag) header.
//
// The original source's ieee8021ad_hdr stores vid as a full 16-bit
// field; this decoder reads it the same way as VLANHeader's VID, as
// the low 12 bits of the TCI, held in a uint16.
type IEEE8021ADHeader struct {
	Pri       uint8
	DEI       uint8
	VID       uint16
	Ethertype uint16
}

// DeserializeIEEE8021AD decodes one 802.1ad service tag.
func DeserializeIEEE8021AD(c *wire.Cursor) (*IEEE8021ADHeader, events.Description, error) {
	if c.Remaining() < IEEE8021ADHdrLen {
		return nil, events.EvtVLANHdrlenTooShort, nil
	}
	tci, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtVLANHdrlenTooShort, nil
	}
	etype, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtVLANHdrlenTooShort, nil
	}
	h := &IEEE8021ADHeader{
		Pri:       uint8((tci >> 13) & 0x7),
		DEI:       uint8((tci >> 12) & 0x1),
		VID:       tci & 0x0FFF,
		Ethertype: etype,
	}
	return h, events.EvtParseOk, nil
}
