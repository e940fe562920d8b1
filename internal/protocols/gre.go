package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// GREHdrLenMin is the fixed portion of a GRE header (flags + protocol),
// before any optional checksum/key/sequence fields.
const GREHdrLenMin = 4

// GREFlags mirrors the bitfield layout of gre_flags in the original
// source: version (3 bits) down through checksum_bit (1 bit), packed
// into the leading 16 bits of the header.
type GREFlags struct {
	ChecksumBit      bool
	RoutingBit       bool
	KeyBit           bool
	SeqNoBit         bool
	SSR              bool
	RecursionControl uint8 // 3 bits
	Flags            uint8 // 5 bits
	Version          uint8 // 3 bits
}

// GREHeader is a decoded GRE header wrapping an encapsulated ethertype.
type GREHeader struct {
	Flags     GREFlags
	Protocol  uint16 // Ether_Type of the encapsulated payload
}

// DeserializeGRE decodes a GRE header. Only the mandatory flags+protocol
// words are parsed; checksum/key/sequence extension words (selected by
// the flag bits) are left to the encapsulated-payload dispatch since
// spec.md does not mandate validating them.
func DeserializeGRE(c *wire.Cursor) (*GREHeader, events.Description, error) {
	if c.Remaining() < GREHdrLenMin {
		return nil, events.EvtGREHdrTooSmall, nil
	}
	flagsWord, _ := c.ReadU16()
	protocol, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtGREHdrTooSmall, nil
	}

	h := &GREHeader{
		Protocol: protocol,
		Flags: GREFlags{
			ChecksumBit:      flagsWord&0x8000 != 0,
			RoutingBit:       flagsWord&0x4000 != 0,
			KeyBit:           flagsWord&0x2000 != 0,
			SeqNoBit:         flagsWord&0x1000 != 0,
			SSR:              flagsWord&0x0800 != 0,
			RecursionControl: uint8((flagsWord >> 8) & 0x7),
			Flags:            uint8((flagsWord >> 3) & 0x1F),
			Version:          uint8(flagsWord & 0x7),
		},
	}

	return h, events.EvtParseOk, nil
}
