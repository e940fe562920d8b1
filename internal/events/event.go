package events

import (
	"net"
	"time"
)

// Event is the immutable record emitted by the Parser and by filters
// (spec.md §3). Once constructed it is transported by value through
// the event manager's queue and never mutated.
type Event struct {
	Type        Type
	Description Description
	RuleID      uint32
	RuleName    string

	SrcMAC, DstMAC net.HardwareAddr
	Ethertype      uint16

	SrcAddr, DstAddr net.IP
	Protocol         uint8
	TTL              uint8

	SrcPort, DstPort uint16
	TCPFlags         uint16

	PktLen        int
	Interface     string
	WallTimestamp time.Time

	// OSFingerprint is a derived attribute, never a filtering input
	// (spec.md §4.3).
	OSFingerprint string
}

// New constructs an Event stamped with the current wall-clock time.
// now is passed in explicitly (rather than calling time.Now here) so
// callers can thread a clockwork.Clock through for deterministic
// tests, matching spec.md §8's determinism requirements.
func New(typ Type, desc Description, now time.Time) Event {
	return Event{Type: typ, Description: desc, WallTimestamp: now}
}
