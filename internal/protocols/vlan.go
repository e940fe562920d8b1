package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// VLANHdrLen is the 802.1Q tag length: 2 bytes of pri/dei/vid plus a
// 2-byte inner ethertype.
const VLANHdrLen = 4

// VLANHeader is a decoded 802.1Q tag. Next models a possible
// double-tagged frame (QinQ using a second 802.1Q tag rather than
// 802.1ad); ownership is strictly parent-to-child per spec.md §9.
type VLANHeader struct {
	Pri       uint8
	DEI       uint8
	VID       uint16
	Ethertype uint16
	Next      *VLANHeader
}

// DeserializeVLAN decodes one 802.1Q tag. VID 0 and 4095 are reserved
// and rejected per spec.md §4.2.
func DeserializeVLAN(c *wire.Cursor) (*VLANHeader, events.Description, error) {
	if c.Remaining() < VLANHdrLen {
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
	vid := tci & 0x0FFF
	if vid == 0 || vid == 4095 {
		return nil, events.EvtVLANInvalVID, nil
	}
	h := &VLANHeader{
		Pri:       uint8((tci >> 13) & 0x7),
		DEI:       uint8((tci >> 12) & 0x1),
		VID:       vid,
		Ethertype: etype,
	}
	return h, events.EvtParseOk, nil
}

// SerializeVLAN writes h's wire form for round-trip tests.
func SerializeVLAN(w *wire.Writer, h *VLANHeader) error {
	tci := uint16(h.Pri&0x7)<<13 | uint16(h.DEI&0x1)<<12 | (h.VID & 0x0FFF)
	if err := w.WriteU16(tci); err != nil {
		return err
	}
	return w.WriteU16(h.Ethertype)
}
