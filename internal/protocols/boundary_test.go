package protocols

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// ipv4Bytes builds a raw IPv4 header of ihl*4 bytes, filling every
// options byte beyond the fixed 20 with fillOpt and patching a valid
// header checksum, matching spec.md §8's hdrlen=15 boundary case.
func ipv4Bytes(ihl uint8, totalLen uint16, ttl, proto uint8, fillOpt byte) []byte {
	hdrLen := int(ihl) * 4
	buf := make([]byte, hdrLen)
	buf[0] = IPv4Version<<4 | ihl
	binary.BigEndian.PutUint16(buf[2:4], totalLen)
	buf[8] = ttl
	buf[9] = proto
	copy(buf[12:16], []byte{10, 0, 0, 1})
	copy(buf[16:20], []byte{10, 0, 0, 2})
	for i := 20; i < hdrLen; i++ {
		buf[i] = fillOpt
	}
	binary.BigEndian.PutUint16(buf[10:12], GenerateIPv4Checksum(buf))
	return buf
}

func TestDeserializeIPv4HdrLen15AllNOPParsesOK(t *testing.T) {
	buf := ipv4Bytes(15, 60, 64, ipProtoUDPForTest, byte(IPv4OptNop))
	c := wire.NewCursor(buf)
	h, desc, err := DeserializeIPv4(c)
	require.NoError(t, err)
	require.True(t, desc.Ok())
	require.Equal(t, uint32(60), h.HdrLen)
	require.Nil(t, h.Opt.CommSec)
	require.Nil(t, h.Opt.Timestamp)
	require.Nil(t, h.Opt.RouterAlert)
	require.LessOrEqual(t, c.Offset(), len(buf))
}

func TestDeserializeIPv4TotalLenSmallerThanHdrLen(t *testing.T) {
	buf := make([]byte, IPv4HdrNoOptions)
	buf[0] = IPv4Version<<4 | 5 // ihl=5 -> 20-byte header
	binary.BigEndian.PutUint16(buf[2:4], 4) // total_len = 4 < hdr_len
	c := wire.NewCursor(buf)
	_, desc, err := DeserializeIPv4(c)
	require.NoError(t, err)
	require.Equal(t, events.EvtIPv4TotalLenSmallerThanHdrLen, desc)
}

func TestDeserializeTCPSynFinSet(t *testing.T) {
	buf := make([]byte, TCPHdrLenNoOptions)
	binary.BigEndian.PutUint16(buf[0:2], 1234) // src port
	binary.BigEndian.PutUint16(buf[2:4], 80)   // dst port
	buf[12] = 5 << 4                           // data offset = 5 words, no options
	buf[13] = 0x02 | 0x01                      // SYN | FIN
	c := wire.NewCursor(buf)
	_, desc, err := DeserializeTCP(c)
	require.NoError(t, err)
	require.Equal(t, events.EvtTcpFlagsSynFinSet, desc)
}

func TestDeserializeVLANInvalidVID(t *testing.T) {
	buf := make([]byte, VLANHdrLen)
	binary.BigEndian.PutUint16(buf[0:2], 0) // pri=0, dei=0, vid=0
	binary.BigEndian.PutUint16(buf[2:4], EthertypeIPv4)
	c := wire.NewCursor(buf)
	_, desc, err := DeserializeVLAN(c)
	require.NoError(t, err)
	require.Equal(t, events.EvtVLANInvalVID, desc)
}

func TestDeserializeMACsecESAndSCBothSet(t *testing.T) {
	buf := make([]byte, macsecHdrLenMin+MACsecICVLen)
	buf[0] = 0x60 // ES (bit 6) and SC (bit 5) both set
	c := wire.NewCursor(buf)
	_, desc, err := DeserializeMACsec(c)
	require.NoError(t, err)
	require.Equal(t, events.EvtMACsecTCIESSCSet, desc)
}

func TestDeserializeDHCPMissingMagicCookie(t *testing.T) {
	buf := make([]byte, DHCPHdrLenFixed+4) // magic left as zero bytes
	c := wire.NewCursor(buf)
	_, desc, err := DeserializeDHCP(c)
	require.NoError(t, err)
	require.Equal(t, events.EvtDHCPMAGICInvalid, desc)
}

func TestDeserializeDHCPAcceptsLiteralASCIIMagicCookie(t *testing.T) {
	buf := make([]byte, DHCPHdrLenFixed+4)
	copy(buf[DHCPHdrLenFixed:], []byte{'D', 'H', 'C', 'P'})
	c := wire.NewCursor(buf)
	_, desc, err := DeserializeDHCP(c)
	require.NoError(t, err)
	require.True(t, desc.Ok())

	// The RFC 2131 binary cookie must now be rejected, not accepted.
	buf2 := make([]byte, DHCPHdrLenFixed+4)
	copy(buf2[DHCPHdrLenFixed:], []byte{0x63, 0x82, 0x53, 0x63})
	c2 := wire.NewCursor(buf2)
	_, desc2, err := DeserializeDHCP(c2)
	require.NoError(t, err)
	require.Equal(t, events.EvtDHCPMAGICInvalid, desc2)
}

func TestRoundTripEthernet(t *testing.T) {
	h := &EthernetHeader{
		DstMAC:    net.HardwareAddr{1, 2, 3, 4, 5, 6},
		SrcMAC:    net.HardwareAddr{6, 5, 4, 3, 2, 1},
		Ethertype: EthertypeIPv4,
	}
	buf := make([]byte, EthHdrLen)
	require.NoError(t, SerializeEthernet(wire.NewWriter(buf), h))

	got, desc, err := DeserializeEthernet(wire.NewCursor(buf))
	require.NoError(t, err)
	require.True(t, desc.Ok())
	require.Equal(t, h.DstMAC, got.DstMAC)
	require.Equal(t, h.SrcMAC, got.SrcMAC)
	require.Equal(t, h.Ethertype, got.Ethertype)
}

func TestRoundTripARP(t *testing.T) {
	h := &ARPHeader{
		HWType: 1, ProtoType: EthertypeIPv4,
		HWAddrLen: 6, ProtoAddrLen: 4,
		Operation:       ARPOpRequest,
		SenderHWAddr:    net.HardwareAddr{1, 2, 3, 4, 5, 6},
		SenderProtoAddr: net.IPv4(10, 0, 0, 1),
		TargetHWAddr:    net.HardwareAddr{6, 5, 4, 3, 2, 1},
		TargetProtoAddr: net.IPv4(10, 0, 0, 2),
	}
	buf := make([]byte, ARPHdrLen)
	require.NoError(t, SerializeARP(wire.NewWriter(buf), h))

	got, desc, err := DeserializeARP(wire.NewCursor(buf))
	require.NoError(t, err)
	require.True(t, desc.Ok())
	require.Equal(t, h.Operation, got.Operation)
	require.Equal(t, h.SenderHWAddr, got.SenderHWAddr)
	require.True(t, h.SenderProtoAddr.Equal(got.SenderProtoAddr))
	require.True(t, h.TargetProtoAddr.Equal(got.TargetProtoAddr))
}

func TestRoundTripVLAN(t *testing.T) {
	h := &VLANHeader{Pri: 3, DEI: 1, VID: 42, Ethertype: EthertypeIPv4}
	buf := make([]byte, VLANHdrLen)
	require.NoError(t, SerializeVLAN(wire.NewWriter(buf), h))

	got, desc, err := DeserializeVLAN(wire.NewCursor(buf))
	require.NoError(t, err)
	require.True(t, desc.Ok())
	require.Equal(t, h.Pri, got.Pri)
	require.Equal(t, h.DEI, got.DEI)
	require.Equal(t, h.VID, got.VID)
	require.Equal(t, h.Ethertype, got.Ethertype)
}

func TestRoundTripIPv4NoOptions(t *testing.T) {
	h := &IPv4Header{
		Version: IPv4Version, HdrLen: IPv4HdrNoOptions,
		DSCP: 0, ECN: 0, TotalLen: IPv4HdrNoOptions,
		Identification: 0x1234, TTL: 64, Protocol: ipProtoUDPForTest,
		SrcAddr: net.IPv4(10, 0, 0, 1), DstAddr: net.IPv4(10, 0, 0, 2),
	}
	buf := make([]byte, IPv4HdrNoOptions)
	require.NoError(t, SerializeIPv4(wire.NewWriter(buf), h))

	got, desc, err := DeserializeIPv4(wire.NewCursor(buf))
	require.NoError(t, err)
	require.True(t, desc.Ok())
	require.Equal(t, h.HdrLen, got.HdrLen)
	require.Equal(t, h.TotalLen, got.TotalLen)
	require.Equal(t, h.TTL, got.TTL)
	require.Equal(t, h.Protocol, got.Protocol)
	require.True(t, h.SrcAddr.Equal(got.SrcAddr))
	require.True(t, h.DstAddr.Equal(got.DstAddr))
}

func TestRoundTripMACsecAuthenticatedOnly(t *testing.T) {
	h := &MACsecHeader{
		TCI:       MACsecTCI{AN: 1},
		ShortLen:  0,
		PacketNum: 7,
		SCI:       MACsecSCI{MAC: net.HardwareAddr{1, 2, 3, 4, 5, 6}, PortID: 1},
		Ethertype: EthertypeIPv4,
		Data:      []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0x11, 0x22, 0x33, 0x44, 0x55},
	}
	for i := range h.ICV {
		h.ICV[i] = byte(i)
	}

	buf := make([]byte, 1+1+4+6+2+2+len(h.Data)+MACsecICVLen)
	require.NoError(t, SerializeMACsec(wire.NewWriter(buf), h))

	got, desc, err := DeserializeMACsec(wire.NewCursor(buf))
	require.NoError(t, err)
	require.True(t, desc.Ok())
	require.True(t, got.IsAuthenticatedOnly())
	require.Equal(t, h.PacketNum, got.PacketNum)
	require.Equal(t, h.SCI.MAC, got.SCI.MAC)
	require.Equal(t, h.Ethertype, got.Ethertype)
	require.Equal(t, h.Data, got.Data)
	require.Equal(t, h.ICV, got.ICV)
}

// ipProtoUDPForTest avoids importing internal/parser just for its
// unexported ipProto constants.
const ipProtoUDPForTest = 17
