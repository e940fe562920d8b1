package filters

import (
	"net"

	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/parser"
	"github.com/nidsd/nidsd/internal/rules"
)

// ICMPAnomalyFilter implements §4.4.2, operating on the already
// decoded parser.ICMP header — the Parser decodes ICMP exactly once
// during L4 dispatch (DESIGN.md's "redundant ICMP deserialize call"
// resolution), so this filter never re-invokes
// protocols.DeserializeICMP itself.
type ICMPAnomalyFilter struct{}

// NewICMPAnomalyFilter constructs a stateless filter; there is no
// per-flow state to carry between calls.
func NewICMPAnomalyFilter() *ICMPAnomalyFilter { return &ICMPAnomalyFilter{} }

// Check applies the stateless rejections (fragmented carrier,
// multicast/broadcast destination) followed by the stateful,
// rule-driven non-zero-payload rejection (icmp_filter.cc's
// check_nonzero_len_payloads, generalized over every loaded deny rule
// that arms icmp.non_zero_payload).
func (f *ICMPAnomalyFilter) Check(p *parser.Parser, store *rules.Store) events.Description {
	if p.ICMP == nil || p.IPv4 == nil {
		return events.EvtParseOk
	}

	if p.IPv4.MoreFrag || p.IPv4.FragOffset != 0 {
		return events.EvtIcmpFragmentedAnomaly
	}

	dst := p.IPv4.DstAddr
	if dst != nil && (dst.IsMulticast() || dst.Equal(net.IPv4bcast)) {
		return events.EvtIcmpMulticastBroadcastDestAnomaly
	}

	nonZero := (p.ICMP.EchoReq != nil && len(p.ICMP.EchoReq.Data) > 0) ||
		(p.ICMP.EchoReply != nil && len(p.ICMP.EchoReply.Data) > 0)
	if !nonZero {
		return events.EvtParseOk
	}

	if store.ICMPNonZeroPayloadArmedForDeny() {
		return events.EvtIcmpNonZeroEchoReqPayloadLen
	}

	return events.EvtParseOk
}
