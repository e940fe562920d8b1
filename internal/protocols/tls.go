package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// TLSRecordHdrLen is the fixed TLS record header length.
const TLSRecordHdrLen = 5

// TLSContentType enumerates the record content types this sensor
// recognizes.
type TLSContentType uint8

const (
	TLSContentHandshake TLSContentType = 22
)

// TLSVersion enumerates the recognized record-layer protocol versions.
type TLSVersion uint16

const (
	TLSVersion10 TLSVersion = 0x0301
	TLSVersion11 TLSVersion = 0x0302
	TLSVersion12 TLSVersion = 0x0303
)

func tlsVersionRecognized(v TLSVersion) bool {
	switch v {
	case TLSVersion10, TLSVersion11, TLSVersion12:
		return true
	default:
		return false
	}
}

// TLSHeader is a decoded TLS record header. This sensor only sniffs
// the record layer (type/version/length) to classify TLS traffic, not
// a full handshake parse.
type TLSHeader struct {
	Type    TLSContentType
	Version TLSVersion
	Length  uint16
}

// DeserializeTLS decodes a TLS record header.
func DeserializeTLS(c *wire.Cursor) (*TLSHeader, events.Description, error) {
	if c.Remaining() < TLSRecordHdrLen {
		return nil, events.EvtTLSRecordTypeInvalid, nil
	}
	typ, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtTLSRecordTypeInvalid, nil
	}
	if TLSContentType(typ) != TLSContentHandshake {
		return nil, events.EvtTLSRecordTypeInvalid, nil
	}
	version, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtTLSRecordTypeInvalid, nil
	}
	if !tlsVersionRecognized(TLSVersion(version)) {
		return nil, events.EvtTLSVersionUnsupported, nil
	}
	length, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtTLSRecordTypeInvalid, nil
	}

	return &TLSHeader{Type: TLSContentType(typ), Version: TLSVersion(version), Length: length}, events.EvtParseOk, nil
}
