package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// IEEE8021xHdrLen is the fixed 802.1X header length before the EAP body.
const IEEE8021xHdrLen = 4

// EAPHdrLen is the fixed EAP header length before any type-specific data.
const EAPHdrLen = 5

// IEEE8021xType enumerates the recognized 802.1X payload types.
type IEEE8021xType uint8

const (
	IEEE8021xTypeEAP IEEE8021xType = 0
)

// EAPType enumerates the recognized EAP types.
type EAPType uint8

const (
	EAPTypeIdentity EAPType = 1
)

// EAPHeader is a decoded EAP message.
type EAPHeader struct {
	Code uint8
	ID   uint8
	Len  uint16
	Type EAPType
}

// IEEE8021xHeader is a decoded 802.1X (EAPOL) header wrapping an EAP
// message.
type IEEE8021xHeader struct {
	Version uint8
	Type    IEEE8021xType
	Len     uint16
	EAP     *EAPHeader
}

// DeserializeIEEE8021x decodes an 802.1X header and, for EAP-carrying
// frames, the embedded EAP header.
func DeserializeIEEE8021x(c *wire.Cursor) (*IEEE8021xHeader, events.Description, error) {
	if c.Remaining() < IEEE8021xHdrLen {
		return nil, events.EvtEAPHdrTooSmall, nil
	}
	version, _ := c.ReadU8()
	typ, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtEAPHdrTooSmall, nil
	}
	length, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtEAPHdrTooSmall, nil
	}

	h := &IEEE8021xHeader{Version: version, Type: IEEE8021xType(typ), Len: length}

	if h.Type == IEEE8021xTypeEAP {
		eap, desc, err := DeserializeEAP(c)
		if err != nil {
			return nil, 0, err
		}
		if !desc.Ok() {
			return nil, desc, nil
		}
		h.EAP = eap
	}

	return h, events.EvtParseOk, nil
}

// DeserializeEAP decodes an EAP header. Only Identity is a recognized
// type; anything else is returned with its decoded header and
// EvtEAPTypeUnsupported, which DeserializeIEEE8021x passes up as the
// result of the whole 802.1X parse.
func DeserializeEAP(c *wire.Cursor) (*EAPHeader, events.Description, error) {
	if c.Remaining() < EAPHdrLen {
		return nil, events.EvtEAPHdrTooSmall, nil
	}
	code, _ := c.ReadU8()
	id, _ := c.ReadU8()
	length, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtEAPHdrTooSmall, nil
	}
	typ, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtEAPHdrTooSmall, nil
	}

	if EAPType(typ) != EAPTypeIdentity {
		return &EAPHeader{Code: code, ID: id, Len: length, Type: EAPType(typ)}, events.EvtEAPTypeUnsupported, nil
	}

	return &EAPHeader{Code: code, ID: id, Len: length, Type: EAPType(typ)}, events.EvtParseOk, nil
}
