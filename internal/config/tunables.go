package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Tunables is the tunables file named by Config.TunablesConfig
// (spec.md §6), grounded on original_source/src/config/config.h's
// tunables_config struct.
type Tunables struct {
	IPv4 struct {
		IPBlacklistIntervalMs uint32 `json:"ip_blacklist_interval_ms"`
	} `json:"ipv4"`
	ICMP struct {
		MaxPktLenBytes        uint32 `json:"max_pkt_len_bytes"`
		PacketGapTwoEchoReqMs uint32 `json:"packet_gap_two_echo_req_ms"`
		ICMPEntryTimeoutMs    uint32 `json:"icmp_entry_timeout_ms"`
	} `json:"icmp"`
	MQTT struct {
		MaxTopicNameLenAllowed uint32 `json:"max_topic_name_len_allowed"`
	} `json:"mqtt"`
}

// DefaultTunables mirrors the original's compiled-in defaults
// (config.cc falls back to these when the tunables file omits a key).
func DefaultTunables() Tunables {
	var t Tunables
	t.IPv4.IPBlacklistIntervalMs = 500
	t.ICMP.MaxPktLenBytes = 1024
	t.ICMP.PacketGapTwoEchoReqMs = 100
	t.ICMP.ICMPEntryTimeoutMs = 60_000
	t.MQTT.MaxTopicNameLenAllowed = 128
	return t
}

// LoadTunables reads and parses path over DefaultTunables: a key the
// file omits keeps its default, and a key the file sets (zero
// included) replaces it. An empty path returns the defaults.
func LoadTunables(path string) (Tunables, error) {
	t := DefaultTunables()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Tunables{}, fmt.Errorf("config: reading tunables %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return Tunables{}, fmt.Errorf("config: parsing tunables %s: %w", path, err)
	}
	return t, nil
}
