package filters

import (
	"net"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/parser"
	"github.com/nidsd/nidsd/internal/protocols"
	"github.com/nidsd/nidsd/internal/rules"
)

func arpParser(sender net.HardwareAddr, op protocols.ARPOperation) *parser.Parser {
	p := parser.New()
	p.ARP = &protocols.ARPHeader{
		SenderHWAddr: sender,
		Operation:    op,
	}
	return p
}

func TestARPFloodDetectorFirstObservationIsOK(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Unix(1000, 0))
	d := NewARPFloodDetector(clk, 100*time.Millisecond, time.Minute)
	defer d.Stop()

	p := arpParser(net.HardwareAddr{1, 2, 3, 4, 5, 6}, protocols.ARPOpRequest)
	require.Equal(t, events.EvtParseOk, d.Check(p))
}

func TestARPFloodDetectorEmitsNMinus1Events(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Unix(1000, 0))
	d := NewARPFloodDetector(clk, 500*time.Millisecond, time.Minute)
	defer d.Stop()

	p := arpParser(net.HardwareAddr{1, 2, 3, 4, 5, 6}, protocols.ARPOpRequest)

	const n = 10
	floodEvents := 0
	for i := 0; i < n; i++ {
		if d.Check(p) == events.EvtARPFloodMaybeInProgress {
			floodEvents++
		}
		clk.Advance(10 * time.Millisecond) // well within the 500ms gap
	}

	require.Equal(t, n-1, floodEvents)
}

func TestARPFloodDetectorResetsAfterGapElapses(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Unix(1000, 0))
	d := NewARPFloodDetector(clk, 50*time.Millisecond, time.Minute)
	defer d.Stop()

	p := arpParser(net.HardwareAddr{1, 2, 3, 4, 5, 6}, protocols.ARPOpRequest)
	require.Equal(t, events.EvtParseOk, d.Check(p))

	clk.Advance(time.Second) // well past the gap
	require.Equal(t, events.EvtParseOk, d.Check(p))
}

func icmpEchoParser(dst net.IP, payload []byte, moreFrag bool, fragOffset uint32) *parser.Parser {
	p := parser.New()
	p.IPv4 = &protocols.IPv4Header{
		DstAddr:    dst,
		MoreFrag:   moreFrag,
		FragOffset: fragOffset,
	}
	p.ICMP = &protocols.ICMPHeader{
		EchoReq: &protocols.ICMPEcho{Data: payload},
	}
	return p
}

func denyRuleStore(nonZeroPayload bool) *rules.Store {
	return rules.NewStore([]rules.Item{
		{
			RuleID: 1, Type: rules.TypeDeny,
			ICMP: rules.ICMPRule{NonZeroPayload: nonZeroPayload},
			Mask: rules.Mask{ICMPNonZeroPayload: true},
		},
	})
}

func TestICMPAnomalyFilterFragmentedCarrier(t *testing.T) {
	f := NewICMPAnomalyFilter()
	p := icmpEchoParser(net.IPv4(10, 0, 0, 1), nil, true, 0)
	require.Equal(t, events.EvtIcmpFragmentedAnomaly, f.Check(p, denyRuleStore(true)))
}

func TestICMPAnomalyFilterMulticastDest(t *testing.T) {
	f := NewICMPAnomalyFilter()
	p := icmpEchoParser(net.IPv4(224, 0, 0, 1), nil, false, 0)
	require.Equal(t, events.EvtIcmpMulticastBroadcastDestAnomaly, f.Check(p, denyRuleStore(true)))
}

func TestICMPAnomalyFilterNonZeroPayloadArmed(t *testing.T) {
	f := NewICMPAnomalyFilter()
	p := icmpEchoParser(net.IPv4(10, 0, 0, 1), []byte("payload"), false, 0)
	require.Equal(t, events.EvtIcmpNonZeroEchoReqPayloadLen, f.Check(p, denyRuleStore(true)))
}

func TestICMPAnomalyFilterNonZeroPayloadNotArmed(t *testing.T) {
	f := NewICMPAnomalyFilter()
	p := icmpEchoParser(net.IPv4(10, 0, 0, 1), []byte("payload"), false, 0)
	require.Equal(t, events.EvtParseOk, f.Check(p, denyRuleStore(false)))
}

func tcpParser(srcPort, dstPort uint16, syn, ack, rst, fin bool) *parser.Parser {
	p := parser.New()
	p.IPv4 = &protocols.IPv4Header{
		SrcAddr: net.IPv4(10, 0, 0, 1),
		DstAddr: net.IPv4(10, 0, 0, 2),
	}
	p.TCP = &protocols.TCPHeader{
		SrcPort: srcPort, DstPort: dstPort,
		SYN: syn, ACK: ack, RST: rst, FIN: fin,
	}
	return p
}

func TestTCPStateMachineHandshake(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Unix(1000, 0))
	sm := NewTCPStateMachine(clk, time.Minute)
	defer sm.Stop()

	require.Equal(t, events.EvtParseOk, sm.Observe(tcpParser(1234, 80, true, false, false, false)))  // SYN
	require.Equal(t, events.EvtParseOk, sm.Observe(tcpParser(80, 1234, true, true, false, false)))   // SYN-ACK
	require.Equal(t, events.EvtParseOk, sm.Observe(tcpParser(1234, 80, false, true, false, false)))  // ACK
}

func TestTCPStateMachineIllegalTransition(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Unix(1000, 0))
	sm := NewTCPStateMachine(clk, time.Minute)
	defer sm.Stop()

	// ACK with no prior SYN.
	require.Equal(t, events.EvtTcpStateIllegalTransition, sm.Observe(tcpParser(1234, 80, false, true, false, false)))
}

func TestTCPStateMachineDeterministic(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Unix(1000, 0))
	sm1 := NewTCPStateMachine(clk, time.Minute)
	sm2 := NewTCPStateMachine(clk, time.Minute)
	defer sm1.Stop()
	defer sm2.Stop()

	segments := []*parser.Parser{
		tcpParser(1234, 80, true, false, false, false),
		tcpParser(80, 1234, true, true, false, false),
		tcpParser(1234, 80, false, true, false, false),
	}

	for _, seg := range segments {
		require.Equal(t, sm1.Observe(seg), sm2.Observe(seg))
	}
}
