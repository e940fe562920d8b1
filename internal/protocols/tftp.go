package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// TFTPType enumerates the recognized TFTP opcodes.
type TFTPType uint16

const (
	TFTPReadReq TFTPType = 1
	TFTPData    TFTPType = 3
	TFTPAck     TFTPType = 4
	TFTPOptAck  TFTPType = 6
)

func tftpTypeRecognized(t TFTPType) bool {
	switch t {
	case TFTPReadReq, TFTPData, TFTPAck, TFTPOptAck:
		return true
	default:
		return false
	}
}

// TFTPOption is a decoded NUL-terminated name/value option pair, as
// used by RRQ option negotiation (RFC 2347).
type TFTPOption struct {
	Name string
	Val  string
}

// TFTPReadReqMsg is a decoded Read Request body.
type TFTPReadReqMsg struct {
	SrcFile string
	TypeStr string
	Options []TFTPOption
}

// TFTPHeader is a decoded TFTP message.
type TFTPHeader struct {
	Opcode  TFTPType
	ReadReq *TFTPReadReqMsg
}

// DeserializeTFTP decodes a TFTP message. Only Read_Req carries a
// parsed body; Data/Ack/Opt_Ack are recognized by opcode only, since
// the sensor's interest is the request-side filename/options, not
// transfer content.
func DeserializeTFTP(c *wire.Cursor) (*TFTPHeader, events.Description, error) {
	if c.Remaining() < 2 {
		return nil, events.EvtTFTPHdrTooSmall, nil
	}
	opcode, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtTFTPHdrTooSmall, nil
	}
	if !tftpTypeRecognized(TFTPType(opcode)) {
		return nil, events.EvtTFTPHdrTooSmall, nil
	}

	h := &TFTPHeader{Opcode: TFTPType(opcode)}

	if h.Opcode == TFTPReadReq {
		rr, desc, err := deserializeTFTPReadReq(c)
		if err != nil {
			return nil, 0, err
		}
		if !desc.Ok() {
			return nil, desc, nil
		}
		h.ReadReq = rr
	}

	return h, events.EvtParseOk, nil
}

func readTFTPCString(c *wire.Cursor) (string, error) {
	start := c.Offset()
	for {
		if c.Remaining() == 0 {
			return "", wire.ErrOutOfBounds
		}
		b, err := c.ReadU8()
		if err != nil {
			return "", err
		}
		if b == 0 {
			raw := c.Bytes()[start : c.Offset()-1]
			return string(raw), nil
		}
	}
}

func deserializeTFTPReadReq(c *wire.Cursor) (*TFTPReadReqMsg, events.Description, error) {
	srcFile, err := readTFTPCString(c)
	if err != nil {
		return nil, events.EvtTFTPHdrTooSmall, nil
	}
	typeStr, err := readTFTPCString(c)
	if err != nil {
		return nil, events.EvtTFTPHdrTooSmall, nil
	}

	rr := &TFTPReadReqMsg{SrcFile: srcFile, TypeStr: typeStr}

	for c.Remaining() > 0 {
		name, err := readTFTPCString(c)
		if err != nil {
			return nil, events.EvtTFTPHdrTooSmall, nil
		}
		val, err := readTFTPCString(c)
		if err != nil {
			return nil, events.EvtTFTPHdrTooSmall, nil
		}
		rr.Options = append(rr.Options, TFTPOption{Name: name, Val: val})
	}

	return rr, events.EvtParseOk, nil
}
