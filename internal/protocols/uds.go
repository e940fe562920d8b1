//go:build automotive

package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// UDSServiceID enumerates the diagnostic service identifiers this
// sensor distinguishes.
type UDSServiceID uint8

const (
	UDSDiagSessControl UDSServiceID = 0x10
	UDSError           UDSServiceID = 0x3F
)

// UDSDiagSessControlType enumerates DiagnosticSessionControl
// sub-functions.
type UDSDiagSessControlType uint8

const (
	UDSSessExtendedDiag  UDSDiagSessControlType = 0x03
	UDSSessProgramming   UDSDiagSessControlType = 0x02
)

// UDSDiagSessControlMsg is a decoded DiagnosticSessionControl request.
type UDSDiagSessControlMsg struct {
	Type uint8
}

// UDSErrorMsg is a decoded negative response.
type UDSErrorMsg struct {
	ServiceID uint8
	Code      uint8
}

// UDSHeader is a decoded UDS (ISO 14229) diagnostic message.
type UDSHeader struct {
	ServiceID   uint8
	IsReply     bool
	SessControl *UDSDiagSessControlMsg
	Error       *UDSErrorMsg
}

// DeserializeUDS decodes a UDS message. A response carries service_id |
// 0x40 per ISO 14229; IsReply records whether that bit was observed.
func DeserializeUDS(c *wire.Cursor) (*UDSHeader, events.Description, error) {
	if c.Remaining() < 1 {
		return nil, events.EvtUdsUnknownServiceId, nil
	}
	serviceID, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtUdsUnknownServiceId, nil
	}

	isReply := serviceID&0x40 != 0
	baseService := serviceID &^ 0x40

	h := &UDSHeader{ServiceID: serviceID, IsReply: isReply}

	switch UDSServiceID(baseService) {
	case UDSDiagSessControl:
		if c.Remaining() < 1 {
			return nil, events.EvtUdsUnknownServiceId, nil
		}
		typ, err := c.ReadU8()
		if err != nil {
			return nil, events.EvtUdsUnknownServiceId, nil
		}
		h.SessControl = &UDSDiagSessControlMsg{Type: typ}
	case UDSError:
		if c.Remaining() < 2 {
			return nil, events.EvtUdsUnknownServiceId, nil
		}
		errServiceID, _ := c.ReadU8()
		code, err := c.ReadU8()
		if err != nil {
			return nil, events.EvtUdsUnknownServiceId, nil
		}
		h.Error = &UDSErrorMsg{ServiceID: errServiceID, Code: code}
	default:
		return h, events.EvtUdsUnknownServiceId, nil
	}

	return h, events.EvtParseOk, nil
}
