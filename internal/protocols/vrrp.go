package protocols

import (
	"net"

	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// VRRPHdrLenMin is the fixed version+type byte pair present regardless
// of version.
const VRRPHdrLenMin = 1

// VRRPHdrLenV2 is the fixed length of a VRRPv2 header body that follows
// the version+type byte.
const VRRPHdrLenV2 = 11

// VRRPv2Header is a decoded VRRP version 2 body.
type VRRPv2Header struct {
	VirtualRouterID uint8
	Priority        uint8
	AddrCount       uint8
	AuthType        uint8
	AdverInt        uint8
	Checksum        uint16
	IPAddr          net.IP
}

// VRRPHeader is a decoded VRRP header.
type VRRPHeader struct {
	Version uint8
	PktType uint8
	V2      *VRRPv2Header
}

// DeserializeVRRP decodes a VRRP header. Only version 2 carries a
// defined body in this sensor; other versions return the version and
// type fields with V2 left nil.
func DeserializeVRRP(c *wire.Cursor) (*VRRPHeader, events.Description, error) {
	if c.Remaining() < VRRPHdrLenMin {
		return nil, events.EvtVRRPHdrTooSmall, nil
	}
	verType, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtVRRPHdrTooSmall, nil
	}

	h := &VRRPHeader{Version: verType >> 4, PktType: verType & 0x0F}

	if h.Version == 2 {
		if c.Remaining() < VRRPHdrLenV2 {
			return nil, events.EvtVRRPHdrTooSmall, nil
		}
		vrid, _ := c.ReadU8()
		prio, _ := c.ReadU8()
		addrCount, _ := c.ReadU8()
		authType, _ := c.ReadU8()
		adverInt, _ := c.ReadU8()
		checksum, _ := c.ReadU16()
		addr, err := c.ReadBytes(4)
		if err != nil {
			return nil, events.EvtVRRPHdrTooSmall, nil
		}
		h.V2 = &VRRPv2Header{
			VirtualRouterID: vrid,
			Priority:        prio,
			AddrCount:       addrCount,
			AuthType:        authType,
			AdverInt:        adverInt,
			Checksum:        checksum,
			IPAddr:          net.IP(append([]byte(nil), addr...)),
		}
	}

	return h, events.EvtParseOk, nil
}
