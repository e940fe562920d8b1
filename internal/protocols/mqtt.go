package protocols

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// MQTTMsgType enumerates the recognized MQTT control packet types.
type MQTTMsgType uint8

const (
	MQTTConnect      MQTTMsgType = 0x1
	MQTTConnectAck   MQTTMsgType = 0x2
	MQTTPublish      MQTTMsgType = 0x3
	MQTTSubscribeReq MQTTMsgType = 0x8
	MQTTSubscribeAck MQTTMsgType = 0x9
	MQTTPingReq      MQTTMsgType = 0xC
	MQTTPingResp     MQTTMsgType = 0xD
)

func mqttMsgTypeRecognized(t MQTTMsgType) bool {
	switch t {
	case MQTTConnect, MQTTConnectAck, MQTTPublish, MQTTSubscribeReq, MQTTSubscribeAck, MQTTPingReq, MQTTPingResp:
		return true
	default:
		return false
	}
}

// MQTTConnectFlags holds the CONNECT flags byte fields.
type MQTTConnectFlags struct {
	UserName     bool
	Password     bool
	WillRetain   bool
	QoSLevel     uint8
	Will         bool
	CleanSession bool
}

// MQTTConnect is a decoded CONNECT packet body.
type MQTTConnect struct {
	ProtoName  []byte
	Version    uint8
	Flags      MQTTConnectFlags
	KeepAlive  uint16
	ClientID   []byte
}

// MQTTConnectAck is a decoded CONNACK packet body.
type MQTTConnectAck struct {
	ReturnCode uint8
}

// MQTTPublish is a decoded PUBLISH packet body.
type MQTTPublish struct {
	Topic   []byte
	Message []byte
}

// MQTTSubscribeReq is a decoded SUBSCRIBE packet body.
type MQTTSubscribeReq struct {
	MsgID  uint16
	Topic  []byte
	ReqQoS uint8
}

// MQTTSubscribeAck is a decoded SUBACK packet body.
type MQTTSubscribeAck struct {
	MsgID       uint16
	GrantedQoS  uint8
}

// MQTTHeader is a decoded MQTT control packet.
type MQTTHeader struct {
	MsgType MQTTMsgType
	Dup     bool
	QoS     uint8
	Retain  bool
	MsgLen  uint32

	Conn    *MQTTConnect
	ConnAck *MQTTConnectAck
	Pub     *MQTTPublish
	SubReq  *MQTTSubscribeReq
	SubAck  *MQTTSubscribeAck
}

// DeserializeMQTT decodes an MQTT fixed header (type/flags + variable
// length remaining-length field) and, for recognized types, the packet
// body.
func DeserializeMQTT(c *wire.Cursor) (*MQTTHeader, events.Description, error) {
	if c.Remaining() < 2 {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}
	typeFlags, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}

	msgType := MQTTMsgType(typeFlags >> 4)
	if !mqttMsgTypeRecognized(msgType) {
		return nil, events.EvtMQTTInvalidMsgType, nil
	}

	remLen, desc, err := decodeMQTTRemainingLength(c)
	if err != nil {
		return nil, 0, err
	}
	if !desc.Ok() {
		return nil, desc, nil
	}
	if remLen > uint32(c.Remaining()) {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}

	h := &MQTTHeader{
		MsgType: msgType,
		Dup:     typeFlags&0x08 != 0,
		QoS:     (typeFlags >> 1) & 0x3,
		Retain:  typeFlags&0x01 != 0,
		MsgLen:  remLen,
	}

	bodyEnd := c.Offset() + int(remLen)

	switch msgType {
	case MQTTConnect:
		conn, desc, err := deserializeMQTTConnect(c)
		if err != nil {
			return nil, 0, err
		}
		if !desc.Ok() {
			return nil, desc, nil
		}
		h.Conn = conn
	case MQTTConnectAck:
		rc, err := c.ReadU8()
		if err != nil {
			return nil, events.EvtMQTTRemainingLenInval, nil
		}
		h.ConnAck = &MQTTConnectAck{ReturnCode: rc}
	case MQTTPublish:
		pub, desc, err := deserializeMQTTPublish(c, bodyEnd)
		if err != nil {
			return nil, 0, err
		}
		if !desc.Ok() {
			return nil, desc, nil
		}
		h.Pub = pub
	case MQTTSubscribeReq:
		sr, desc, err := deserializeMQTTSubscribeReq(c)
		if err != nil {
			return nil, 0, err
		}
		if !desc.Ok() {
			return nil, desc, nil
		}
		h.SubReq = sr
	case MQTTSubscribeAck:
		msgID, err := c.ReadU16()
		if err != nil {
			return nil, events.EvtMQTTRemainingLenInval, nil
		}
		qos, err := c.ReadU8()
		if err != nil {
			return nil, events.EvtMQTTRemainingLenInval, nil
		}
		h.SubAck = &MQTTSubscribeAck{MsgID: msgID, GrantedQoS: qos & 0x3}
	}

	return h, events.EvtParseOk, nil
}

// decodeMQTTRemainingLength implements the MQTT variable-length
// encoding: up to 4 continuation bytes, 7 value bits each.
func decodeMQTTRemainingLength(c *wire.Cursor) (uint32, events.Description, error) {
	var value uint32
	var multiplier uint32 = 1
	for i := 0; i < 4; i++ {
		b, err := c.ReadU8()
		if err != nil {
			return 0, events.EvtMQTTRemainingLenInval, nil
		}
		value += uint32(b&0x7F) * multiplier
		if b&0x80 == 0 {
			return value, events.EvtParseOk, nil
		}
		multiplier *= 128
	}
	return 0, events.EvtMQTTRemainingLenInval, nil
}

func deserializeMQTTConnect(c *wire.Cursor) (*MQTTConnect, events.Description, error) {
	protoLen, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}
	protoName, err := c.ReadBytes(int(protoLen))
	if err != nil {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}
	version, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}
	flagsByte, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}
	keepAlive, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}
	clientIDLen, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}
	clientID, err := c.ReadBytes(int(clientIDLen))
	if err != nil {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}

	return &MQTTConnect{
		ProtoName: append([]byte(nil), protoName...),
		Version:   version,
		Flags: MQTTConnectFlags{
			UserName:     flagsByte&0x80 != 0,
			Password:     flagsByte&0x40 != 0,
			WillRetain:   flagsByte&0x20 != 0,
			QoSLevel:     (flagsByte >> 3) & 0x3,
			Will:         flagsByte&0x04 != 0,
			CleanSession: flagsByte&0x02 != 0,
		},
		KeepAlive: keepAlive,
		ClientID:  append([]byte(nil), clientID...),
	}, events.EvtParseOk, nil
}

func deserializeMQTTPublish(c *wire.Cursor, bodyEnd int) (*MQTTPublish, events.Description, error) {
	topicLen, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}
	topic, err := c.ReadBytes(int(topicLen))
	if err != nil {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}
	msgLen := bodyEnd - c.Offset()
	if msgLen < 0 {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}
	msg, err := c.ReadBytes(msgLen)
	if err != nil {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}
	return &MQTTPublish{
		Topic:   append([]byte(nil), topic...),
		Message: append([]byte(nil), msg...),
	}, events.EvtParseOk, nil
}

func deserializeMQTTSubscribeReq(c *wire.Cursor) (*MQTTSubscribeReq, events.Description, error) {
	msgID, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}
	topicLen, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}
	topic, err := c.ReadBytes(int(topicLen))
	if err != nil {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}
	qos, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtMQTTRemainingLenInval, nil
	}
	return &MQTTSubscribeReq{MsgID: msgID, Topic: append([]byte(nil), topic...), ReqQoS: qos}, events.EvtParseOk, nil
}

// EncodeMQTTConnect and EncodeMQTTPublish build the wire bytes for a
// CONNECT and a QoS-0 PUBLISH packet respectively. These are used by
// the event manager's MQTT publish sink (internal/eventmgr), which has
// no client library available in the dependency pack and so dials a
// plain net.Conn against our own encoder (see DESIGN.md).
func EncodeMQTTConnect(w *wire.Writer, clientID string, keepAlive uint16) error {
	protoName := []byte("MQTT")
	varHeaderLen := 2 + len(protoName) + 1 + 1 + 2 + 2 + len(clientID)

	if err := w.WriteU8(byte(MQTTConnect) << 4); err != nil {
		return err
	}
	if err := encodeMQTTRemainingLength(w, uint32(varHeaderLen)); err != nil {
		return err
	}
	if err := w.WriteU16(uint16(len(protoName))); err != nil {
		return err
	}
	if err := w.WriteBytes(protoName); err != nil {
		return err
	}
	if err := w.WriteU8(4); err != nil { // protocol level 3.1.1
		return err
	}
	if err := w.WriteU8(0x02); err != nil { // clean session only
		return err
	}
	if err := w.WriteU16(keepAlive); err != nil {
		return err
	}
	if err := w.WriteU16(uint16(len(clientID))); err != nil {
		return err
	}
	return w.WriteBytes([]byte(clientID))
}

// EncodeMQTTPublish builds a QoS-0, non-retained PUBLISH packet.
func EncodeMQTTPublish(w *wire.Writer, topic string, payload []byte) error {
	varHeaderLen := 2 + len(topic) + len(payload)

	if err := w.WriteU8(byte(MQTTPublish) << 4); err != nil {
		return err
	}
	if err := encodeMQTTRemainingLength(w, uint32(varHeaderLen)); err != nil {
		return err
	}
	if err := w.WriteU16(uint16(len(topic))); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte(topic)); err != nil {
		return err
	}
	return w.WriteBytes(payload)
}

func encodeMQTTRemainingLength(w *wire.Writer, length uint32) error {
	for {
		b := byte(length % 128)
		length /= 128
		if length > 0 {
			b |= 0x80
		}
		if err := w.WriteU8(b); err != nil {
			return err
		}
		if length == 0 {
			return nil
		}
	}
}
