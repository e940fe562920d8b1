package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// NTPHdrLenV3 is the fixed NTPv3 header length (1 byte leap/version/mode
// plus the v3 body).
const NTPHdrLenV3 = 1 + 3 + 12 + 32

// NTPMode enumerates the modes this sensor distinguishes.
type NTPMode uint8

const (
	NTPModeClient NTPMode = 3
	NTPModeServer NTPMode = 4
)

// NTPv3Header is the decoded NTPv3 body.
type NTPv3Header struct {
	PeerClockStratum    uint8
	PeerPollingIntvl    uint8
	PeerClockPrecision  uint8
	RootDelayIntvlSec   uint32
	RootDispersion      uint32
	ReferenceID         uint32
	ReferenceTimestamp  uint64
	OriginTimestamp     uint64
	ReceiveTimestamp    uint64
	TransmitTimestamp   uint64
}

// NTPHeader is a decoded NTP message.
type NTPHeader struct {
	LeapIndicator uint8
	Version       uint8
	Mode          NTPMode
	V3            *NTPv3Header
}

// DeserializeNTP decodes an NTP header. Only version 3 has a
// type-specific body parsed here; other versions return the leading
// leap/version/mode byte only.
func DeserializeNTP(c *wire.Cursor) (*NTPHeader, events.Description, error) {
	if c.Remaining() < 1 {
		return nil, events.EvtNTPHdrTooSmall, nil
	}
	lvm, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtNTPHdrTooSmall, nil
	}

	h := &NTPHeader{
		LeapIndicator: lvm >> 6,
		Version:       (lvm >> 3) & 0x7,
		Mode:          NTPMode(lvm & 0x7),
	}

	if h.Version == 3 {
		if c.Remaining() < NTPHdrLenV3-1 {
			return nil, events.EvtNTPHdrTooSmall, nil
		}
		stratum, _ := c.ReadU8()
		polling, _ := c.ReadU8()
		precision, err := c.ReadU8()
		if err != nil {
			return nil, events.EvtNTPHdrTooSmall, nil
		}
		rootDelay, _ := c.ReadU32()
		rootDispersion, _ := c.ReadU32()
		refID, err := c.ReadU32()
		if err != nil {
			return nil, events.EvtNTPHdrTooSmall, nil
		}
		refTs, _ := c.ReadU64()
		origTs, _ := c.ReadU64()
		recvTs, _ := c.ReadU64()
		xmitTs, err := c.ReadU64()
		if err != nil {
			return nil, events.EvtNTPHdrTooSmall, nil
		}

		h.V3 = &NTPv3Header{
			PeerClockStratum: stratum, PeerPollingIntvl: polling, PeerClockPrecision: precision,
			RootDelayIntvlSec: rootDelay, RootDispersion: rootDispersion, ReferenceID: refID,
			ReferenceTimestamp: refTs, OriginTimestamp: origTs, ReceiveTimestamp: recvTs,
			TransmitTimestamp: xmitTs,
		}
	}

	return h, events.EvtParseOk, nil
}
