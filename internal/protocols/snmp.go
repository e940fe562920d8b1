package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// SNMP BER tag values this sensor recognizes at the top of a message.
const (
	snmpTagSequence   = 0x30
	snmpTagInteger    = 0x02
	snmpTagOctetStr   = 0x04
)

// SNMPVersion enumerates the versions this sensor accepts.
type SNMPVersion uint8

const (
	SNMPVersion1  SNMPVersion = 0
	SNMPVersion2c SNMPVersion = 1
)

// SNMPHeader is a light-touch decode of an SNMP message: just enough
// of the BER envelope (version, community string, PDU type byte) to
// classify traffic, not a full ASN.1 walk of the varbind list.
type SNMPHeader struct {
	Version   SNMPVersion
	Community string
	PDUType   uint8
}

// DeserializeSNMP decodes the version/community/PDU-type prefix of an
// SNMP message.
func DeserializeSNMP(c *wire.Cursor) (*SNMPHeader, events.Description, error) {
	if c.Remaining() < 2 {
		return nil, events.EvtSNMPHdrTooSmall, nil
	}
	tag, err := c.ReadU8()
	if err != nil || tag != snmpTagSequence {
		return nil, events.EvtSNMPHdrTooSmall, nil
	}
	if _, _, err := readBERLength(c); err != nil {
		return nil, events.EvtSNMPHdrTooSmall, nil
	}

	verTag, err := c.ReadU8()
	if err != nil || verTag != snmpTagInteger {
		return nil, events.EvtSNMPHdrTooSmall, nil
	}
	verLen, _, err := readBERLength(c)
	if err != nil || verLen != 1 {
		return nil, events.EvtSNMPHdrTooSmall, nil
	}
	version, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtSNMPHdrTooSmall, nil
	}
	if SNMPVersion(version) != SNMPVersion1 && SNMPVersion(version) != SNMPVersion2c {
		return nil, events.EvtSNMPVersionUnsupported, nil
	}

	commTag, err := c.ReadU8()
	if err != nil || commTag != snmpTagOctetStr {
		return nil, events.EvtSNMPHdrTooSmall, nil
	}
	commLen, _, err := readBERLength(c)
	if err != nil {
		return nil, events.EvtSNMPHdrTooSmall, nil
	}
	community, err := c.ReadBytes(commLen)
	if err != nil {
		return nil, events.EvtSNMPHdrTooSmall, nil
	}

	pduType, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtSNMPHdrTooSmall, nil
	}

	return &SNMPHeader{
		Version:   SNMPVersion(version),
		Community: string(community),
		PDUType:   pduType,
	}, events.EvtParseOk, nil
}

// readBERLength decodes a BER definite-length field: a single length
// byte, or (if the high bit is set) a count of following big-endian
// length octets.
func readBERLength(c *wire.Cursor) (int, int, error) {
	first, err := c.ReadU8()
	if err != nil {
		return 0, 0, err
	}
	if first&0x80 == 0 {
		return int(first), 1, nil
	}
	numOctets := int(first & 0x7F)
	if numOctets == 0 || numOctets > 4 {
		return 0, 0, wire.ErrOutOfBounds
	}
	length := 0
	for i := 0; i < numOctets; i++ {
		b, err := c.ReadU8()
		if err != nil {
			return 0, 0, err
		}
		length = (length << 8) | int(b)
	}
	return length, numOctets + 1, nil
}
