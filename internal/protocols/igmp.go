package protocols

import (
	"net"

	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// IGMPType enumerates the recognized IGMPv3 message types.
type IGMPType uint8

const (
	IGMPMembershipQuery    IGMPType = 0x11
	IGMPMembershipReportV1 IGMPType = 0x12
	IGMPMembershipReportV2 IGMPType = 0x16
	IGMPMembershipReportV3 IGMPType = 0x22
	IGMPLeaveGroup         IGMPType = 0x17
)

func igmpTypeRecognized(t IGMPType) bool {
	switch t {
	case IGMPMembershipQuery, IGMPMembershipReportV3, IGMPLeaveGroup:
		return true
	default:
		return false
	}
}

// IGMPGroupRecord is one group record inside a Membership Report V3.
type IGMPGroupRecord struct {
	Type        uint8
	AuxDataLen  uint8
	NumSrc      uint16
	McastAddr   net.IP
}

// IGMPHeader is a decoded IGMPv3 message.
type IGMPHeader struct {
	Type       IGMPType
	McastAddr  net.IP // Membership_Query / Leave_Group
	NumGroups  uint16 // Membership_Report_V3
	Records    []IGMPGroupRecord
}

// DeserializeIGMP decodes an IGMPv3 header. Invariants (spec.md
// §4.2): type in {Membership_Query, Membership_Report_V3,
// Leave_Group}; record lists parsed with bounds checks.
func DeserializeIGMP(c *wire.Cursor) (*IGMPHeader, events.Description, error) {
	if c.Remaining() < 8 {
		return nil, events.EvtIgmpTypeInvalid, nil
	}
	typ, _ := c.ReadU8()
	if !igmpTypeRecognized(IGMPType(typ)) {
		return nil, events.EvtIgmpTypeInvalid, nil
	}
	if err := c.Skip(1); err != nil { // max resp code / reserved
		return nil, events.EvtIgmpTypeInvalid, nil
	}
	if _, err := c.ReadU16(); err != nil { // checksum
		return nil, events.EvtIgmpTypeInvalid, nil
	}

	h := &IGMPHeader{Type: IGMPType(typ)}

	switch h.Type {
	case IGMPMembershipQuery, IGMPLeaveGroup:
		addr, err := c.ReadBytes(4)
		if err != nil {
			return nil, events.EvtIgmpTypeInvalid, nil
		}
		h.McastAddr = net.IP(append([]byte(nil), addr...))
	case IGMPMembershipReportV3:
		if err := c.Skip(2); err != nil { // reserved
			return nil, events.EvtIgmpTypeInvalid, nil
		}
		numGroups, err := c.ReadU16()
		if err != nil {
			return nil, events.EvtIgmpTypeInvalid, nil
		}
		h.NumGroups = numGroups
		for i := 0; i < int(numGroups); i++ {
			if c.Remaining() < 8 {
				return nil, events.EvtIgmpTypeInvalid, nil
			}
			recType, _ := c.ReadU8()
			auxLen, _ := c.ReadU8()
			numSrc, err := c.ReadU16()
			if err != nil {
				return nil, events.EvtIgmpTypeInvalid, nil
			}
			addr, err := c.ReadBytes(4)
			if err != nil {
				return nil, events.EvtIgmpTypeInvalid, nil
			}
			if err := c.Skip(int(numSrc) * 4); err != nil {
				return nil, events.EvtIgmpTypeInvalid, nil
			}
			if err := c.Skip(int(auxLen) * 4); err != nil {
				return nil, events.EvtIgmpTypeInvalid, nil
			}
			h.Records = append(h.Records, IGMPGroupRecord{
				Type: recType, AuxDataLen: auxLen, NumSrc: numSrc,
				McastAddr: net.IP(append([]byte(nil), addr...)),
			})
		}
	}

	return h, events.EvtParseOk, nil
}
