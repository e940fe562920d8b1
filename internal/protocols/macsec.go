package protocols

import (
	"net"

	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// MACsecICVLen is the trailing Integrity Check Value length appended
// to every 802.1AE frame.
const MACsecICVLen = 16

// macsecHdrLenMin mirrors the original source's macsec_hdr_len_min_ =
// 22, the minimum frame size (before the trailing ICV) the decoder
// accepts. The SecTAG fields it reads take 1 (TCI/AN) + 1 (short len)
// + 4 (packet number) + 8 (SCI) = 14 bytes, plus 2 for the cleartext
// ethertype when present (the SCI being always present in this
// simplified model, unlike real 802.1AE where SCI presence is itself
// optional).
const macsecHdrLenMin = 22

// MACsecTCI is the Tag Control Information byte's decoded bit fields.
type MACsecTCI struct {
	Ver, ES, SC, SCB, E, C uint8
	AN                     uint8
}

// MACsecSCI is the Secure Channel Identifier: a MAC address plus port.
type MACsecSCI struct {
	MAC    net.HardwareAddr
	PortID uint16
}

// MACsecHeader is a decoded 802.1AE (MACsec) SecTAG plus trailer ICV.
type MACsecHeader struct {
	TCI         MACsecTCI
	ShortLen    uint8
	PacketNum   uint32
	SCI         MACsecSCI
	Ethertype   uint16 // only meaningful for authenticated-only frames
	Data        []byte
	ICV         [MACsecICVLen]byte
}

// IsEncrypted reports whether both E and C bits are set.
func (h *MACsecHeader) IsEncrypted() bool { return h.TCI.E != 0 && h.TCI.C != 0 }

// IsAuthenticatedOnly reports whether neither E nor C is set, meaning
// the cleartext ethertype and payload are directly visible.
func (h *MACsecHeader) IsAuthenticatedOnly() bool { return h.TCI.E == 0 && h.TCI.C == 0 }

// GetEthertype returns the cleartext ethertype for authenticated-only
// frames, or 0 (Unknown) otherwise — mirroring the original's
// get_ethertype(), which only exposes the ethertype when the frame is
// not encrypted.
func (h *MACsecHeader) GetEthertype() uint16 {
	if h.IsAuthenticatedOnly() {
		return h.Ethertype
	}
	return 0
}

// DeserializeMACsec decodes an 802.1AE SecTAG and trailing ICV.
//
// Invariants (spec.md §4.2): TCI.ES and TCI.SC are mutually exclusive;
// TCI.SC and TCI.SCB are mutually exclusive; the ICV is always the
// last MACsecICVLen bytes of the frame and is excluded from
// higher-layer parsing; for authenticated-only frames the cleartext
// ethertype is exposed and the payload between the header and the ICV
// is passed up for further decoding.
func DeserializeMACsec(c *wire.Cursor) (*MACsecHeader, events.Description, error) {
	if c.Remaining() < macsecHdrLenMin+MACsecICVLen {
		return nil, events.EvtMACsecHdrLenTooSmall, nil
	}

	tciAN, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtMACsecHdrLenTooSmall, nil
	}
	tci := MACsecTCI{
		Ver: (tciAN >> 7) & 0x1,
		ES:  (tciAN >> 6) & 0x1,
		SC:  (tciAN >> 5) & 0x1,
		SCB: (tciAN >> 4) & 0x1,
		E:   (tciAN >> 3) & 0x1,
		C:   (tciAN >> 2) & 0x1,
		AN:  tciAN & 0x3,
	}
	if tci.ES == 1 && tci.SC == 1 {
		return nil, events.EvtMACsecTCIESSCSet, nil
	}
	if tci.SC == 1 && tci.SCB == 1 {
		return nil, events.EvtMACsecTCISCSCBSet, nil
	}

	shortLen, err := c.ReadU8()
	if err != nil {
		return nil, events.EvtMACsecHdrLenTooSmall, nil
	}
	pktNum, err := c.ReadU32()
	if err != nil {
		return nil, events.EvtMACsecHdrLenTooSmall, nil
	}
	sciMAC, err := c.ReadBytes(6)
	if err != nil {
		return nil, events.EvtMACsecHdrLenTooSmall, nil
	}
	portID, err := c.ReadU16()
	if err != nil {
		return nil, events.EvtMACsecHdrLenTooSmall, nil
	}

	h := &MACsecHeader{
		TCI:       tci,
		ShortLen:  shortLen,
		PacketNum: pktNum,
		SCI: MACsecSCI{
			MAC:    append(net.HardwareAddr(nil), sciMAC...),
			PortID: portID,
		},
	}

	authenticatedOnly := h.IsAuthenticatedOnly()
	if authenticatedOnly {
		etype, err := c.ReadU16()
		if err != nil {
			return nil, events.EvtMACsecHdrLenTooSmall, nil
		}
		h.Ethertype = etype
	}

	// The trailing ICV is always the last MACsecICVLen bytes of the
	// remaining frame; everything between here and the ICV is the
	// (possibly cleartext) payload, excluded from higher-layer parsing
	// by this decoder (the Parser decides whether to recurse into it).
	if c.Remaining() < MACsecICVLen {
		return nil, events.EvtMACsecHdrLenTooSmall, nil
	}
	dataLen := c.Remaining() - MACsecICVLen
	data, err := c.ReadBytes(dataLen)
	if err != nil {
		return nil, events.EvtMACsecHdrLenTooSmall, nil
	}
	h.Data = append([]byte(nil), data...)

	icv, err := c.ReadBytes(MACsecICVLen)
	if err != nil {
		return nil, events.EvtMACsecHdrLenTooSmall, nil
	}
	copy(h.ICV[:], icv)

	return h, events.EvtParseOk, nil
}

// SerializeMACsec writes h's wire form for round-trip tests.
func SerializeMACsec(w *wire.Writer, h *MACsecHeader) error {
	tciAN := h.TCI.Ver&0x1<<7 | h.TCI.ES&0x1<<6 | h.TCI.SC&0x1<<5 | h.TCI.SCB&0x1<<4 | h.TCI.E&0x1<<3 | h.TCI.C&0x1<<2 | h.TCI.AN&0x3
	if err := w.WriteU8(tciAN); err != nil {
		return err
	}
	if err := w.WriteU8(h.ShortLen); err != nil {
		return err
	}
	if err := w.WriteU32(h.PacketNum); err != nil {
		return err
	}
	if err := w.WriteBytes(h.SCI.MAC); err != nil {
		return err
	}
	if err := w.WriteU16(h.SCI.PortID); err != nil {
		return err
	}
	if h.IsAuthenticatedOnly() {
		if err := w.WriteU16(h.Ethertype); err != nil {
			return err
		}
	}
	if err := w.WriteBytes(h.Data); err != nil {
		return err
	}
	return w.WriteBytes(h.ICV[:])
}
