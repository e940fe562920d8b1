package rules

import (
	"bytes"
	"time"

	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/parser"
	"github.com/nidsd/nidsd/internal/protocols"
)

// Store is the ordered, read-mostly rule sequence (spec.md §3's Rule
// store). Initialized once at startup via Load, then read without
// locking by every interface worker — matching the teacher's
// read-mostly config pattern (DESIGN.md's concurrency notes).
type Store struct {
	items []Item
}

// NewStore builds a Store from already-parsed items, preserving
// insertion order (which also defines evaluation order).
func NewStore(items []Item) *Store {
	return &Store{items: items}
}

// Len reports the number of loaded rule items.
func (s *Store) Len() int { return len(s.items) }

// ICMPNonZeroPayloadArmedForDeny reports whether any loaded deny rule
// arms the icmp.non_zero_payload predicate, mirroring
// icmp_filter.cc's run_filter loop (it->sig_mask.icmp_non_zero_payload
// && it->type == rule_type::Deny) generalized over every such rule
// instead of acting on only the first one found.
func (s *Store) ICMPNonZeroPayloadArmedForDeny() bool {
	for i := range s.items {
		item := &s.items[i]
		if item.Type == TypeDeny && item.Mask.ICMPNonZeroPayload && item.ICMP.NonZeroPayload {
			return true
		}
	}
	return false
}

func portMatches(ports []uint16, srcPort, dstPort uint16, haveAnyPort bool) bool {
	if !haveAnyPort {
		return false
	}
	for _, p := range ports {
		if p == srcPort || p == dstPort {
			return true
		}
	}
	return false
}

func macMatches(want, got []byte) bool {
	return len(want) > 0 && bytes.Equal(want, got)
}

// detect computes which of item's masked predicates match the
// currently-decoded packet in p. Only bits whose mask is set are ever
// populated (spec.md §3's invariant).
func (s *Store) detect(item *Item, p *parser.Parser) Detected {
	var d Detected

	if p.Eth != nil {
		if item.Mask.FromSrc {
			d.FromSrc = macMatches(item.Eth.FromSrc, p.Eth.SrcMAC)
		}
		if item.Mask.ToDst {
			d.ToDst = macMatches(item.Eth.ToDst, p.Eth.DstMAC)
		}
		if item.Mask.Ethertype {
			d.Ethertype = p.Eth.Ethertype == item.Eth.Ethertype
		}
	}

	if p.VLAN != nil {
		if item.Mask.VLANPri {
			d.VLANPri = p.VLAN.Pri == item.VLAN.Pri
		}
		if item.Mask.VID {
			d.VID = p.VLAN.VID == item.VLAN.VID
		}
	}

	if p.IPv4 != nil {
		if item.Mask.IPv4CheckOptions {
			d.IPv4CheckOptions = item.IPv4.CheckOptions && p.IPv4.HdrLen > protocols.IPv4HdrNoOptions
		}
		if item.Mask.IPv4Protocol {
			d.IPv4Protocol = p.IPv4.Protocol == item.IPv4.Protocol
		}
	}

	if p.ICMP != nil {
		if item.Mask.ICMPNonZeroPayload {
			nonZero := (p.ICMP.EchoReq != nil && len(p.ICMP.EchoReq.Data) > 0) ||
				(p.ICMP.EchoReply != nil && len(p.ICMP.EchoReply.Data) > 0)
			d.ICMPNonZeroPayload = item.ICMP.NonZeroPayload && nonZero
		}
	}

	if item.Mask.Ports {
		haveAnyPort := p.TCP != nil || p.UDP != nil
		var srcPort, dstPort uint16
		if p.TCP != nil {
			srcPort, dstPort = p.TCP.SrcPort, p.TCP.DstPort
		} else if p.UDP != nil {
			srcPort, dstPort = p.UDP.SrcPort, p.UDP.DstPort
		}
		d.Ports = portMatches(item.Ports, srcPort, dstPort, haveAnyPort)
	}

	return d
}

// Evaluate runs every rule item, in insertion order, against the
// currently-decoded packet. Deny rules whose masked predicates all
// match emit a deny event and short-circuit further rule evaluation
// for this packet; allow and event rules never short-circuit
// (spec.md §4.4).
func (s *Store) Evaluate(p *parser.Parser, iface string, pktLen int, now time.Time) []events.Event {
	var out []events.Event

	for i := range s.items {
		item := &s.items[i]
		d := s.detect(item, p)
		if !d.AllMatched(&item.Mask) {
			continue
		}

		var typ events.Type
		switch item.Type {
		case TypeAllow:
			typ = events.TypeAllow
		case TypeDeny:
			typ = events.TypeDeny
		default:
			typ = events.TypeAlert
		}

		ev := events.New(typ, events.EvtEthEthertypeMatched, now)
		ev.RuleID = item.RuleID
		ev.RuleName = item.RuleName
		ev.Interface = iface
		ev.PktLen = pktLen
		if p.Eth != nil {
			ev.SrcMAC, ev.DstMAC, ev.Ethertype = p.Eth.SrcMAC, p.Eth.DstMAC, p.Eth.Ethertype
		}
		if p.IPv4 != nil {
			ev.SrcAddr, ev.DstAddr, ev.Protocol, ev.TTL = p.IPv4.SrcAddr, p.IPv4.DstAddr, p.IPv4.Protocol, p.IPv4.TTL
		}
		if p.TCP != nil {
			ev.SrcPort, ev.DstPort = p.TCP.SrcPort, p.TCP.DstPort
		} else if p.UDP != nil {
			ev.SrcPort, ev.DstPort = p.UDP.SrcPort, p.UDP.DstPort
		}
		ev.OSFingerprint = string(p.OSFingerprint)

		out = append(out, ev)

		if item.Type == TypeDeny {
			break
		}
	}

	return out
}
