//go:build automotive

package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// DoIP field-length constants (ISO 13400).
const (
	DoIPHdrLen = 8
	DoIPVINLen = 17
	DoIPEIDLen = 6
	DoIPGIDLen = 6
)

// DoIPMsgType enumerates the recognized DoIP payload types. Per
// DESIGN.md (Open Question 8), Veh_Announce and Veh_Id_Resp are kept
// aliased to the same 0x0004 value exactly as in the original source,
// rather than silently disambiguated.
type DoIPMsgType uint16

const (
	DoIPGenericNACK              DoIPMsgType = 0x0000
	DoIPVehIDReq                 DoIPMsgType = 0x0001
	DoIPVehAnnounce              DoIPMsgType = 0x0004
	DoIPVehIDResp                DoIPMsgType = 0x0004 // collides with DoIPVehAnnounce in the source firewall too
	DoIPRoutingActivationReq     DoIPMsgType = 0x0005
	DoIPRoutingActivationResp    DoIPMsgType = 0x0006
	DoIPAliveCheckReq            DoIPMsgType = 0x0007
	DoIPAliveCheckResp           DoIPMsgType = 0x0008
	DoIPEntityStatusRequest      DoIPMsgType = 0x4001
	DoIPEntityStatusResponse     DoIPMsgType = 0x4002
	DoIPDiagPowerModeInfoRequest DoIPMsgType = 0x4003
	DoIPDiagPowerModeInfoResp    DoIPMsgType = 0x4004
	DoIPDiagMsg                  DoIPMsgType = 0x8001
)

func doipMsgTypeRecognized(t DoIPMsgType) bool {
	switch t {
	case DoIPGenericNACK, DoIPVehIDReq, DoIPVehAnnounce, DoIPRoutingActivationReq,
		DoIPRoutingActivationResp, DoIPAliveCheckReq, DoIPAliveCheckResp,
		DoIPEntityStatusRequest, DoIPEntityStatusResponse,
		DoIPDiagPowerModeInfoRequest, DoIPDiagPowerModeInfoResp, DoIPDiagMsg:
		return true
	default:
		return false
	}
}

// DoIPVehAnnounceMsg is a decoded Vehicle Announcement / Vehicle
// Identification Response payload.
type DoIPVehAnnounceMsg struct {
	VIN                   [DoIPVINLen]byte
	LogicalAddr           uint16
	EID                   [DoIPEIDLen]byte
	GID                   [DoIPGIDLen]byte
	FurtherActionRequired uint8
}

// DoIPEntityStatusResp is a decoded DoIP Entity Status Response.
type DoIPEntityStatusResp struct {
	NodeType              uint8
	MaxConcurrentSockets  uint8
	CurrentlyOpenSockets  uint8
	MaxDataSize           uint32
}

// DoIPRoutingActivationReqMsg is a decoded Routing Activation Request.
type DoIPRoutingActivationReqMsg struct {
	SrcAddr        uint16
	ActivationType uint8
	ReservedByISO  uint32
	ReservedByOEM  uint32
}

// DoIPDiagMsgBody is a decoded Diagnostic Message payload wrapping a UDS
// request/response.
type DoIPDiagMsgBody struct {
	SrcAddr    uint16
	TargetAddr uint16
	UDS        *UDSHeader
}

// DoIPHeader is a decoded DoIP message.
type DoIPHeader struct {
	Version    uint8
	InvVersion uint8
	Type       DoIPMsgType
	Len        uint32

	VehAnnounce *DoIPVehAnnounceMsg
	StatusResp  *DoIPEntityStatusResp
	RouteReq    *DoIPRoutingActivationReqMsg
	DiagMsg     *DoIPDiagMsgBody
}

// DeserializeDoIP decodes a DoIP header and, for recognized payload
// types, the type-specific body.
func DeserializeDoIP(c *wire.Cursor) (*DoIPHeader, events.Description, error) {
	if c.Remaining() < DoIPHdrLen {
		return nil, events.EvtDoIPHdrlenTooSmall, nil
	}
	version, _ := c.ReadU8()
	invVersion, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtDoIPHdrlenTooSmall, nil
	}
	if version != invVersion^0xFF {
		return nil, events.EvtDoIPVersionMismatch, nil
	}
	typ, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtDoIPHdrlenTooSmall, nil
	}
	length, err := c.ReadU32()
	if err != nil {
		return nil, events.EvtDoIPHdrlenTooSmall, nil
	}
	if int(length) > c.Remaining() {
		return nil, events.EvtDoIPHdrlenTooSmall, nil
	}
	if !doipMsgTypeRecognized(DoIPMsgType(typ)) {
		return nil, events.EvtDoIPUnsupportedMsgType, nil
	}

	h := &DoIPHeader{Version: version, InvVersion: invVersion, Type: DoIPMsgType(typ), Len: length}

	switch h.Type {
	case DoIPVehAnnounce: // also DoIPVehIDResp, same value
		if length < 32 {
			return nil, events.EvtDoIPVehAnnounceTooSmall, nil
		}
		vin, err := c.ReadBytes(DoIPVINLen)
		if err != nil {
			return nil, events.EvtDoIPVehAnnounceTooSmall, nil
		}
		logicalAddr, _ := c.ReadU16()
		eid, err := c.ReadBytes(DoIPEIDLen)
		if err != nil {
			return nil, events.EvtDoIPVehAnnounceTooSmall, nil
		}
		gid, err := c.ReadBytes(DoIPGIDLen)
		if err != nil {
			return nil, events.EvtDoIPVehAnnounceTooSmall, nil
		}
		far, err := c.ReadU8()
		if err != nil {
			return nil, events.EvtDoIPVehAnnounceTooSmall, nil
		}
		va := &DoIPVehAnnounceMsg{LogicalAddr: logicalAddr, FurtherActionRequired: far}
		copy(va.VIN[:], vin)
		copy(va.EID[:], eid)
		copy(va.GID[:], gid)
		h.VehAnnounce = va
	case DoIPEntityStatusResponse:
		if length < 7 {
			return nil, events.EvtDoIPEntityStatusResponseTooSmall, nil
		}
		nodeType, _ := c.ReadU8()
		maxSockets, _ := c.ReadU8()
		openSockets, err := c.ReadU8()
		if err != nil {
			return nil, events.EvtDoIPEntityStatusResponseTooSmall, nil
		}
		maxDataSize, err := c.ReadU32()
		if err != nil {
			return nil, events.EvtDoIPEntityStatusResponseTooSmall, nil
		}
		h.StatusResp = &DoIPEntityStatusResp{
			NodeType: nodeType, MaxConcurrentSockets: maxSockets,
			CurrentlyOpenSockets: openSockets, MaxDataSize: maxDataSize,
		}
	case DoIPRoutingActivationReq:
		if length < 11 {
			return nil, events.EvtDoIPRouteActivationReqTooSmall, nil
		}
		srcAddr, _ := c.ReadU16()
		actType, _ := c.ReadU8()
		resISO, _ := c.ReadU32()
		resOEM, err := c.ReadU32()
		if err != nil {
			return nil, events.EvtDoIPRouteActivationReqTooSmall, nil
		}
		h.RouteReq = &DoIPRoutingActivationReqMsg{
			SrcAddr: srcAddr, ActivationType: actType,
			ReservedByISO: resISO, ReservedByOEM: resOEM,
		}
	case DoIPDiagMsg:
		if length < 5 {
			return nil, events.EvtDoIPHdrlenTooSmall, nil
		}
		srcAddr, _ := c.ReadU16()
		targetAddr, err := c.ReadU16()
		if err != nil {
			return nil, events.EvtDoIPHdrlenTooSmall, nil
		}
		uds, desc, err := DeserializeUDS(c)
		if err != nil {
			return nil, 0, err
		}
		if !desc.Ok() {
			return nil, desc, nil
		}
		h.DiagMsg = &DoIPDiagMsgBody{SrcAddr: srcAddr, TargetAddr: targetAddr, UDS: uds}
	}

	return h, events.EvtParseOk, nil
}
