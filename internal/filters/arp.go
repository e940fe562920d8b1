// Package filters implements the stateful packet filters layered on
// top of already-decoded packets (spec.md §4.4): the ARP flood
// detector, the ICMP anomaly filter, and the TCP state machine. The
// ethertype and port predicates spec.md groups alongside these are
// not separate stateful components here — they are evaluated as
// ordinary rule-store predicates in internal/rules, exactly as
// original_source/src/filters/ethertype/ethertype_filter.cc and
// port/port_filter.cc implement them directly against
// rule_config_item (see DESIGN.md).
package filters

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/jonboulle/clockwork"

	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/parser"
)

// ARPFloodDetector implements §4.4.1: a sender-MAC-keyed table, a
// mutex (mirroring arp_filter_'s std::mutex lock_), and an idle
// eviction policy delegated to ttlcache/v3's TTL rather than a
// hand-rolled sweep.
type ARPFloodDetector struct {
	mu    sync.Mutex
	table *ttlcache.Cache[string, time.Time]
	clock clockwork.Clock

	interFrameGap time.Duration
}

// NewARPFloodDetector constructs a detector. interFrameGap is the
// tunable `inter_frame_gap_from_same_mac_msec`; idleTimeout is the
// entry eviction threshold. clock is injectable for deterministic
// tests (spec.md §8).
func NewARPFloodDetector(clock clockwork.Clock, interFrameGap, idleTimeout time.Duration) *ARPFloodDetector {
	table := ttlcache.New[string, time.Time](
		ttlcache.WithTTL[string, time.Time](idleTimeout),
	)
	go table.Start()

	return &ARPFloodDetector{
		table:         table,
		clock:         clock,
		interFrameGap: interFrameGap,
	}
}

// Stop halts the table's background eviction loop.
func (d *ARPFloodDetector) Stop() {
	d.table.Stop()
}

// Check implements add_arp_frame: on first observation of a sender
// MAC, insert and return OK. On a repeat observation within
// interFrameGap, refresh last_seen and flag a possible flood.
// Otherwise refresh last_seen and return OK.
func (d *ARPFloodDetector) Check(p *parser.Parser) events.Description {
	if p.ARP == nil || len(p.ARP.SenderHWAddr) == 0 {
		return events.EvtParseOk
	}

	key := p.ARP.SenderHWAddr.String()
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	item := d.table.Get(key)
	if item == nil {
		d.table.Set(key, now, ttlcache.DefaultTTL)
		return events.EvtParseOk
	}

	lastSeen := item.Value()
	delta := now.Sub(lastSeen)
	d.table.Set(key, now, ttlcache.DefaultTTL)

	if delta < d.interFrameGap {
		return events.EvtARPFloodMaybeInProgress
	}

	return events.EvtParseOk
}
