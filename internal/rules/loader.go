package rules

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
)

// rawVLAN/rawIPv4/rawICMP mirror the nested JSON objects the rule file
// grammar (spec.md §6) allows; a nil pointer means the key was absent
// and the predicate's mask bit stays clear, exactly as
// rule_parser.cc's isNull() checks drive sig_mask.
type rawVLAN struct {
	Pri *uint8  `json:"pri"`
	VID *uint16 `json:"vid"`
}

type rawIPv4 struct {
	CheckOptions *bool   `json:"check_options"`
	Protocol     *string `json:"protocol"`
}

type rawICMP struct {
	NonZeroPayload *bool `json:"non_zero_payload"`
}

type rawRule struct {
	RuleName string   `json:"rule_name"`
	RuleID   uint32   `json:"rule_id"`
	RuleType string   `json:"rule_type"`
	FromSrc  string   `json:"from_src"`
	ToDst    string   `json:"to_dst"`
	Ethertype string  `json:"ethertype"`
	VLAN     *rawVLAN `json:"vlan"`
	IPv4     *rawIPv4 `json:"ipv4"`
	ICMP     *rawICMP `json:"icmp"`
	Ports    []uint16 `json:"ports"`
}

// protocolNumber maps the rule file's symbolic protocol names to IP
// protocol numbers. Only "icmp" is named by spec.md's grammar; an
// unrecognized name leaves the predicate unmasked rather than
// guessing a number, mirroring rule_parser.cc's behavior of only
// recognizing "icmp" and silently ignoring anything else.
func protocolNumber(name string) (uint8, bool) {
	switch name {
	case "icmp":
		return 1, true
	default:
		return 0, false
	}
}

func parseRule(raw *rawRule) (Item, error) {
	item := Item{
		RuleName: raw.RuleName,
		RuleID:   raw.RuleID,
		Ports:    raw.Ports,
	}
	if len(raw.Ports) > 0 {
		item.Mask.Ports = true
	}

	switch raw.RuleType {
	case "allow":
		item.Type = TypeAllow
	case "deny":
		item.Type = TypeDeny
	case "event":
		item.Type = TypeEvent
	default:
		return Item{}, fmt.Errorf("rules: rule %q: invalid rule_type %q", raw.RuleName, raw.RuleType)
	}

	if raw.FromSrc != "" {
		if mac, err := net.ParseMAC(raw.FromSrc); err == nil {
			item.Eth.FromSrc = mac
			item.Mask.FromSrc = true
		}
	}
	if raw.ToDst != "" {
		if mac, err := net.ParseMAC(raw.ToDst); err == nil {
			item.Eth.ToDst = mac
			item.Mask.ToDst = true
		}
	}
	if raw.Ethertype != "" {
		if v, err := strconv.ParseUint(raw.Ethertype, 16, 16); err == nil {
			item.Eth.Ethertype = uint16(v)
			item.Mask.Ethertype = true
		}
	}

	if raw.VLAN != nil {
		if raw.VLAN.Pri != nil {
			item.VLAN.Pri = *raw.VLAN.Pri
			item.Mask.VLANPri = true
		}
		if raw.VLAN.VID != nil {
			item.VLAN.VID = *raw.VLAN.VID
			item.Mask.VID = true
		}
	}

	if raw.IPv4 != nil {
		if raw.IPv4.CheckOptions != nil {
			item.IPv4.CheckOptions = *raw.IPv4.CheckOptions
			item.Mask.IPv4CheckOptions = true
		}
		if raw.IPv4.Protocol != nil {
			if proto, ok := protocolNumber(*raw.IPv4.Protocol); ok {
				item.IPv4.Protocol = proto
				item.Mask.IPv4Protocol = true
			}
		}
	}

	if raw.ICMP != nil && raw.ICMP.NonZeroPayload != nil {
		item.ICMP.NonZeroPayload = *raw.ICMP.NonZeroPayload
		item.Mask.ICMPNonZeroPayload = true
	}

	return item, nil
}

// Load parses a rule file (spec.md §6) into a Store. Rule order in
// the file becomes evaluation order.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: reading %s: %w", path, err)
	}

	var raws []rawRule
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("rules: parsing %s: %w", path, err)
	}

	items := make([]Item, 0, len(raws))
	for i := range raws {
		item, err := parseRule(&raws[i])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return NewStore(items), nil
}
