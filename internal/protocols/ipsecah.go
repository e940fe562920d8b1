package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// IPSecAHICVLen is the fixed ICV buffer size carried in the header, per
// Open Question 7 (modeled on ipsec_ah.h's 32-byte shape, not the
// fixed-12-byte ip_ah.h shape).
const IPSecAHICVLen = 32

// IPSecAHLenNoICV is the header length up to and not including the ICV.
const IPSecAHLenNoICV = 12

// IPSecAHHeader is a decoded IPSec Authentication Header.
type IPSecAHHeader struct {
	NextHeader uint8
	Len        uint8 // AH length in 32-bit words, minus 2
	SPI        uint32
	SeqNo      uint32
	ICV        [IPSecAHICVLen]byte
	ICVLen     int // actual bytes consumed, <= IPSecAHICVLen
}

// DeserializeIPSecAH decodes an IPSec AH header. The trailing ICV is
// variable length in the wire format (len field in 32-bit words) but
// capped at IPSecAHICVLen bytes here; a length field that implies a
// negative or longer ICV is rejected with EvtIPSecAHICVLenInval.
func DeserializeIPSecAH(c *wire.Cursor) (*IPSecAHHeader, events.Description, error) {
	if c.Remaining() < IPSecAHLenNoICV {
		return nil, events.EvtIPSecAHHdrTooSmall, nil
	}
	nh, _ := c.ReadU8()
	length, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtIPSecAHHdrTooSmall, nil
	}
	if _, err := c.ReadU16(); err != nil { // reserved
		return nil, events.EvtIPSecAHHdrTooSmall, nil
	}
	spi, err := c.ReadU32()
	if err != nil {
		return nil, events.EvtIPSecAHHdrTooSmall, nil
	}
	seq, err := c.ReadU32()
	if err != nil {
		return nil, events.EvtIPSecAHHdrTooSmall, nil
	}

	// icvLen is derived from the length field: total AH length in bytes
	// is (length+2)*4, of which IPSecAHLenNoICV is the fixed portion.
	icvLen := (int(length)+2)*4 - IPSecAHLenNoICV
	if icvLen < 0 || icvLen > IPSecAHICVLen {
		return nil, events.EvtIPSecAHICVLenInval, nil
	}
	if c.Remaining() < icvLen {
		return nil, events.EvtIPSecAHHdrTooSmall, nil
	}
	icvBytes, err := c.ReadBytes(icvLen)
	if err != nil {
		return nil, events.EvtIPSecAHHdrTooSmall, nil
	}

	h := &IPSecAHHeader{NextHeader: nh, Len: length, SPI: spi, SeqNo: seq, ICVLen: icvLen}
	copy(h.ICV[:], icvBytes)

	return h, events.EvtParseOk, nil
}
