// Package parser implements the packet parser: a dispatch chain that
// walks a raw frame through the protocol decoders in internal/protocols,
// owns one decoded header per recognized layer, and derives the OS
// fingerprint from the observed IPv4 TTL. Grounded on
// original_source/lib/parser/parser.{h,cc}, extended well past its
// literal eth+ipv4 field list to own every protocol header the
// decoders collection now covers.
package parser

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/protocols"
	"github.com/nidsd/nidsd/internal/wire"
)

// OSFingerprint is a coarse OS classification derived from the IPv4
// TTL, per spec.md §4.3. It is an event attribute, never a filtering
// input.
type OSFingerprint string

const (
	OSLinux24          OSFingerprint = "linux_2_4"
	OSLinux410OrLater  OSFingerprint = "linux_4_10_2015_or_later"
	OSWin10            OSFingerprint = "win_10"
	OSUnknown          OSFingerprint = "unknown"
)

// Well-known application-layer ports this sensor dispatches on.
const (
	PortDHCPServer = 67
	PortDHCPClient = 68
	PortNTP        = 123
	PortDNS        = 53
	PortMQTT       = 1883
	PortTFTP       = 69
	PortSTUN       = 3478
	PortSNMP       = 161
	PortSNMPTrap   = 162
	PortDoIP       = 13400
	PortTLS        = 443

	ipProtoICMP   = 1
	ipProtoIGMP   = 2
	ipProtoTCP    = 6
	ipProtoUDP    = 17
	ipProtoIPIP   = 4
	ipProtoGRE    = 47
	ipProtoIPSecAH = 51
	ipProtoICMPv6 = 58
	ipProto6in4   = 41
	ipProtoVRRP   = 112
)

// Parser owns one decoded header per recognized layer in a single
// frame. A fresh Parser is constructed per frame (per spec.md §4.6,
// the filter task "constructs a Parser per frame").
type Parser struct {
	Eth      *protocols.EthernetHeader
	VLAN     *protocols.VLANHeader
	IEEE8021AD *protocols.IEEE8021ADHeader
	MACsec   *protocols.MACsecHeader
	PPPoE    *protocols.PPPoEHeader
	IEEE8021x *protocols.IEEE8021xHeader

	ARP  *protocols.ARPHeader
	IPv4 *protocols.IPv4Header
	IPv6 *protocols.IPv6Header

	ICMP   *protocols.ICMPHeader
	ICMPv6 *protocols.ICMPv6Header
	IGMP   *protocols.IGMPHeader
	TCP    *protocols.TCPHeader
	UDP    *protocols.UDPHeader
	GRE    *protocols.GREHeader
	VRRP   *protocols.VRRPHeader
	IPSecAH *protocols.IPSecAHHeader

	DHCP   *protocols.DHCPHeader
	NTP    *protocols.NTPHeader
	TLS    *protocols.TLSHeader
	MQTT   *protocols.MQTTHeader
	SomeIP *protocols.SomeIPHeader
	TFTP   *protocols.TFTPHeader
	STUN   *protocols.STUNHeader
	SNMP   *protocols.SNMPHeader

	// DoIP holds a *protocols.DoIPHeader when built with the automotive
	// tag, or stays nil otherwise; typed as any so this field compiles
	// in both builds.
	DoIP any

	OSFingerprint OSFingerprint
}

// New returns an empty Parser ready to run against one frame.
func New() *Parser {
	return &Parser{OSFingerprint: OSUnknown}
}

// Run decodes c's bytes layer by layer, stopping at the first
// non-Evt_Parse_Ok description (spec.md §4.3: "on failure at any
// layer ... returns deny"). The OS fingerprint is derived as soon as
// an IPv4 header decodes, so it is set even when a later layer fails.
// A frame that decodes completely returns Evt_Parse_Ok.
func (p *Parser) Run(c *wire.Cursor) (events.Description, error) {
	eth, desc, err := protocols.DeserializeEthernet(c)
	if err != nil || !desc.Ok() {
		return desc, err
	}
	p.Eth = eth

	ethertype := eth.Ethertype
	for {
		switch ethertype {
		case protocols.EthertypeVLAN, protocols.Ethertype8021AD:
			if ethertype == protocols.Ethertype8021AD {
				h, desc, err := protocols.DeserializeIEEE8021AD(c)
				if err != nil || !desc.Ok() {
					return desc, err
				}
				p.IEEE8021AD = h
				ethertype = h.Ethertype
			} else {
				h, desc, err := protocols.DeserializeVLAN(c)
				if err != nil || !desc.Ok() {
					return desc, err
				}
				p.VLAN = h
				ethertype = h.Ethertype
			}
			continue
		case protocols.EthertypeMACsec:
			h, desc, err := protocols.DeserializeMACsec(c)
			if err != nil || !desc.Ok() {
				return desc, err
			}
			p.MACsec = h
			if !h.IsAuthenticatedOnly() {
				// Encrypted payload: nothing further to dispatch on.
				return events.EvtParseOk, nil
			}
			// The decoder already consumed the whole remaining frame
			// into h.Data (everything between the SecTAG and the
			// trailing ICV); recurse into it with a fresh cursor rather
			// than continuing to read from c.
			return p.dispatchL3(wire.NewCursor(h.Data), h.GetEthertype())
		case protocols.EthertypePPPoES:
			h, desc, err := protocols.DeserializePPPoE(c)
			if err != nil || !desc.Ok() {
				return desc, err
			}
			p.PPPoE = h
			if h.Protocol == protocols.PPPoEProtocolIPv6 {
				ethertype = protocols.EthertypeIPv6
				continue
			}
			return events.EvtParseOk, nil
		case protocols.EthertypeEAPOL:
			h, desc, err := protocols.DeserializeIEEE8021x(c)
			if err != nil || !desc.Ok() {
				return desc, err
			}
			p.IEEE8021x = h
			return events.EvtParseOk, nil
		}
		break
	}

	return p.dispatchL3(c, ethertype)
}

// dispatchL3 parses the network-layer protocol named by ethertype. It
// is a separate method (rather than inline in Run) so the MACsec
// branch can recurse into it against a fresh cursor over its
// authenticated-only (unencrypted) payload.
func (p *Parser) dispatchL3(c *wire.Cursor, ethertype uint16) (events.Description, error) {
	switch ethertype {
	case protocols.EthertypeARP:
		h, desc, err := protocols.DeserializeARP(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.ARP = h
		return events.EvtParseOk, nil
	case protocols.EthertypeIPv4:
		h, desc, err := protocols.DeserializeIPv4(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.IPv4 = h
		p.detectOSFingerprint()
		return p.dispatchL4(c, h.Protocol)
	case protocols.EthertypeIPv6:
		h, desc, err := protocols.DeserializeIPv6(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.IPv6 = h
		return p.dispatchL4(c, h.NextHeader)
	default:
		return events.EvtEthEthertypeUnknown, nil
	}
}

// dispatchL4 parses the transport-layer protocol named by ipProto and,
// for TCP/UDP, further dispatches to the application-layer decoder
// matched by src/dst port. IP-in-IP and 6-in-4 tunnels (spec.md §4.2)
// recurse back through dispatchL3 against the same cursor, the
// tunneled header overwriting p.IPv4/p.IPv6 in place: same convention
// as VLAN/MACsec/PPPoE, which keep only the innermost header of a
// repeated layer rather than a full outer+inner stack.
func (p *Parser) dispatchL4(c *wire.Cursor, ipProto uint8) (events.Description, error) {
	switch ipProto {
	case ipProtoICMP:
		h, desc, err := protocols.DeserializeICMP(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.ICMP = h
		return events.EvtParseOk, nil
	case ipProtoICMPv6:
		h, desc, err := protocols.DeserializeICMPv6(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.ICMPv6 = h
		return events.EvtParseOk, nil
	case ipProtoIGMP:
		h, desc, err := protocols.DeserializeIGMP(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.IGMP = h
		return events.EvtParseOk, nil
	case ipProtoGRE:
		h, desc, err := protocols.DeserializeGRE(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.GRE = h
		return events.EvtParseOk, nil
	case ipProtoVRRP:
		h, desc, err := protocols.DeserializeVRRP(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.VRRP = h
		return events.EvtParseOk, nil
	case ipProtoIPSecAH:
		h, desc, err := protocols.DeserializeIPSecAH(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.IPSecAH = h
		return events.EvtParseOk, nil
	case ipProtoIPIP:
		return p.dispatchL3(c, protocols.EthertypeIPv4)
	case ipProto6in4:
		return p.dispatchL3(c, protocols.EthertypeIPv6)
	case ipProtoTCP:
		h, desc, err := protocols.DeserializeTCP(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.TCP = h
		return p.dispatchApp(c, h.SrcPort, h.DstPort)
	case ipProtoUDP:
		h, desc, err := protocols.DeserializeUDP(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.UDP = h
		return p.dispatchApp(c, h.SrcPort, h.DstPort)
	default:
		return events.EvtIPv4ProtocolUnsupported, nil
	}
}

// dispatchApp parses the application-layer protocol matched by the
// transport src/dst port pair. An unrecognized port pair is not an
// error: most TCP/UDP traffic carries no application decoder this
// sensor understands.
func (p *Parser) dispatchApp(c *wire.Cursor, srcPort, dstPort uint16) (events.Description, error) {
	switch {
	case srcPort == PortDHCPServer || dstPort == PortDHCPServer || srcPort == PortDHCPClient || dstPort == PortDHCPClient:
		h, desc, err := protocols.DeserializeDHCP(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.DHCP = h
	case srcPort == PortNTP || dstPort == PortNTP:
		h, desc, err := protocols.DeserializeNTP(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.NTP = h
	case srcPort == PortTLS || dstPort == PortTLS:
		h, desc, err := protocols.DeserializeTLS(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.TLS = h
	case srcPort == PortMQTT || dstPort == PortMQTT:
		h, desc, err := protocols.DeserializeMQTT(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.MQTT = h
	case srcPort == PortTFTP || dstPort == PortTFTP:
		h, desc, err := protocols.DeserializeTFTP(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.TFTP = h
	case srcPort == PortSTUN || dstPort == PortSTUN:
		h, desc, err := protocols.DeserializeSTUN(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.STUN = h
	case srcPort == PortSNMP || dstPort == PortSNMP || srcPort == PortSNMPTrap || dstPort == PortSNMPTrap:
		h, desc, err := protocols.DeserializeSNMP(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.SNMP = h
	case srcPort == PortDoIP || dstPort == PortDoIP:
		h, desc, err := deserializeDoIPIfEnabled(c)
		if err != nil || !desc.Ok() {
			return desc, err
		}
		p.DoIP = h
	default:
		if dstPort >= 30490 && dstPort <= 30499 {
			h, desc, err := protocols.DeserializeSomeIP(c)
			if err != nil || !desc.Ok() {
				return desc, err
			}
			p.SomeIP = h
		}
	}
	return events.EvtParseOk, nil
}

// detectOSFingerprint maps the observed IPv4 TTL to a coarse OS label.
// See https://packetpushers.net/ip-time-to-live-and-hop-limit-basics/,
// referenced directly in the grounding source.
func (p *Parser) detectOSFingerprint() {
	if p.IPv4 == nil {
		p.OSFingerprint = OSUnknown
		return
	}
	switch p.IPv4.TTL {
	case 255:
		p.OSFingerprint = OSLinux24
	case 64:
		p.OSFingerprint = OSLinux410OrLater
	case 128:
		p.OSFingerprint = OSWin10
	default:
		p.OSFingerprint = OSUnknown
	}
}
