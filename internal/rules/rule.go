// Package rules implements the rule store: an ordered, process-wide
// sequence of rule items evaluated linearly against each decoded
// packet (spec.md §3, §4.4). Grounded on
// original_source/src/core/rule_parser.h's rule_config_item /
// signature_id_bitmask / rule_type.
package rules

import "net"

// Type classifies a rule's disposition, mirroring rule_type.
type Type uint8

const (
	TypeAllow Type = iota
	TypeDeny
	TypeEvent
)

func (t Type) String() string {
	switch t {
	case TypeAllow:
		return "allow"
	case TypeDeny:
		return "deny"
	case TypeEvent:
		return "event"
	default:
		return "unknown"
	}
}

// EthRule mirrors eth_rule_config.
type EthRule struct {
	FromSrc   net.HardwareAddr
	ToDst     net.HardwareAddr
	Ethertype uint16
}

// VLANRule mirrors vlan_rule_config.
type VLANRule struct {
	Pri uint8
	VID uint16
}

// IPv4Rule mirrors ipv4_rule_config. Protocol is an IP protocol
// number (e.g. 1 for ICMP); only "icmp" is named by spec.md's rule
// file grammar, but the numeric field leaves room for others.
type IPv4Rule struct {
	CheckOptions bool
	Protocol     uint8
}

// ICMPRule mirrors icmp_rule_config.
type ICMPRule struct {
	NonZeroPayload bool
}

// Mask names which predicates of a rule are meaningful. A cleared
// mask bit means the corresponding predicate must be ignored during
// evaluation, regardless of what its field holds (spec.md §3's
// mask/detected invariant).
type Mask struct {
	FromSrc   bool
	ToDst     bool
	Ethertype bool

	VLANPri bool
	VID     bool

	IPv4CheckOptions bool
	IPv4Protocol     bool

	ICMPNonZeroPayload bool

	Ports bool
}

// Detected names which predicates matched during the current
// evaluation. A bit here may only be set when the corresponding Mask
// bit is also set.
type Detected struct {
	FromSrc   bool
	ToDst     bool
	Ethertype bool

	VLANPri bool
	VID     bool

	IPv4CheckOptions bool
	IPv4Protocol     bool

	ICMPNonZeroPayload bool

	Ports bool
}

// AllMatched reports whether every masked predicate in d was
// detected. A rule with no masked predicates at all never matches
// (there is nothing to detect), mirroring the original's requirement
// that at least one predicate be armed for a rule to fire.
func (d *Detected) AllMatched(m *Mask) bool {
	any := false
	ok := func(masked, detected bool) bool {
		if !masked {
			return true
		}
		any = true
		return detected
	}

	match := ok(m.FromSrc, d.FromSrc) &&
		ok(m.ToDst, d.ToDst) &&
		ok(m.Ethertype, d.Ethertype) &&
		ok(m.VLANPri, d.VLANPri) &&
		ok(m.VID, d.VID) &&
		ok(m.IPv4CheckOptions, d.IPv4CheckOptions) &&
		ok(m.IPv4Protocol, d.IPv4Protocol) &&
		ok(m.ICMPNonZeroPayload, d.ICMPNonZeroPayload) &&
		ok(m.Ports, d.Ports)

	return any && match
}

// Item is a single rule, corresponding to rule_config_item.
type Item struct {
	RuleID   uint32
	RuleName string
	Type     Type

	Eth  EthRule
	VLAN VLANRule
	IPv4 IPv4Rule
	ICMP ICMPRule
	Ports []uint16

	Mask Mask
}
