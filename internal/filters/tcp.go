package filters

import (
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/jonboulle/clockwork"

	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/parser"
)

// TCPState enumerates the handshake progression tracked per flow,
// mirroring Tcp_State.
type TCPState uint8

const (
	TCPStateSynSent TCPState = iota
	TCPStateSynReceived
	TCPStateSynAckSent
	TCPStateAckSent
	TCPStateEstablished
)

// TCPRole mirrors tcp_state_machine's is_server_ bool.
type TCPRole uint8

const (
	TCPRoleClient TCPRole = iota
	TCPRoleServer
)

type tcpFlowState struct {
	role  TCPRole
	state TCPState
}

// fiveTuple keys a TCP flow. Direction-independent: both endpoints of
// the same connection resolve to the same key regardless of which
// side sent the current segment.
func fiveTuple(p *parser.Parser) string {
	var srcAddr, dstAddr string
	if p.IPv4 != nil {
		srcAddr, dstAddr = p.IPv4.SrcAddr.String(), p.IPv4.DstAddr.String()
	} else if p.IPv6 != nil {
		srcAddr, dstAddr = p.IPv6.SrcAddr.String(), p.IPv6.DstAddr.String()
	}
	a := fmt.Sprintf("%s:%d", srcAddr, p.TCP.SrcPort)
	b := fmt.Sprintf("%s:%d", dstAddr, p.TCP.DstPort)
	if a < b {
		return a + "-" + b
	}
	return b + "-" + a
}

// TCPStateMachine implements §4.4.3: per five-tuple progression
// tracking, grounded on tcp_filter.h's tcp_state_machine. Illegal
// transitions emit an alert but never terminate flow state, matching
// spec.md's explicit non-terminating requirement.
type TCPStateMachine struct {
	mu    sync.Mutex
	flows *ttlcache.Cache[string, *tcpFlowState]
	clock clockwork.Clock
}

// NewTCPStateMachine constructs a state machine; idleTimeout evicts
// flows that saw no segment within that window (RST/FIN-completion
// removal is handled explicitly in Observe, not via the TTL).
func NewTCPStateMachine(clock clockwork.Clock, idleTimeout time.Duration) *TCPStateMachine {
	flows := ttlcache.New[string, *tcpFlowState](
		ttlcache.WithTTL[string, *tcpFlowState](idleTimeout),
	)
	go flows.Start()
	return &TCPStateMachine{flows: flows, clock: clock}
}

// Stop halts the flow table's background eviction loop.
func (m *TCPStateMachine) Stop() { m.flows.Stop() }

// Observe advances the state machine for one TCP segment and reports
// an alert description when the segment represents an illegal
// transition. A nil parser.TCP is a caller error and is a no-op.
func (m *TCPStateMachine) Observe(p *parser.Parser) events.Description {
	if p.TCP == nil {
		return events.EvtParseOk
	}

	key := fiveTuple(p)

	m.mu.Lock()
	defer m.mu.Unlock()

	item := m.flows.Get(key)

	if p.TCP.RST || (p.TCP.FIN && item != nil && item.Value().state == TCPStateEstablished) {
		m.flows.Delete(key)
		return events.EvtParseOk
	}

	if item == nil {
		if p.TCP.SYN && !p.TCP.ACK {
			m.flows.Set(key, &tcpFlowState{role: TCPRoleClient, state: TCPStateSynSent}, ttlcache.DefaultTTL)
			return events.EvtParseOk
		}
		// any other segment with no prior state is a transition with
		// no preceding SYN.
		return events.EvtTcpStateIllegalTransition
	}

	flow := item.Value()
	next, legal := nextTCPState(flow.state, p.TCP.SYN, p.TCP.ACK)
	if !legal {
		return events.EvtTcpStateIllegalTransition
	}
	flow.state = next
	m.flows.Set(key, flow, ttlcache.DefaultTTL)

	return events.EvtParseOk
}

// nextTCPState implements the legal progression
// SYN_SENT -> SYN_RECEIVED -> SYN_ACK_SENT -> ACK_SENT -> established.
func nextTCPState(cur TCPState, syn, ack bool) (TCPState, bool) {
	switch cur {
	case TCPStateSynSent:
		if syn && ack {
			return TCPStateSynReceived, true
		}
	case TCPStateSynReceived:
		if !syn && ack {
			return TCPStateSynAckSent, true
		}
	case TCPStateSynAckSent:
		if ack {
			return TCPStateAckSent, true
		}
	case TCPStateAckSent:
		if ack {
			return TCPStateEstablished, true
		}
	case TCPStateEstablished:
		return TCPStateEstablished, true
	}
	return cur, false
}
