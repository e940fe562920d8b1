package rules

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nidsd/nidsd/internal/parser"
	"github.com/nidsd/nidsd/internal/protocols"
)

func TestDetectedAllMatchedIgnoresUnmaskedPredicates(t *testing.T) {
	var d Detected
	d.Ethertype = false // not detected, but also not masked
	m := Mask{FromSrc: true}
	d.FromSrc = true
	require.True(t, d.AllMatched(&m))
}

func TestDetectedAllMatchedRequiresAtLeastOneMaskedPredicate(t *testing.T) {
	var d Detected
	var m Mask
	require.False(t, d.AllMatched(&m), "a rule with nothing armed should never match")
}

func TestDetectedAllMatchedFailsOnPartialMatch(t *testing.T) {
	d := Detected{FromSrc: true, ToDst: false}
	m := Mask{FromSrc: true, ToDst: true}
	require.False(t, d.AllMatched(&m))
}

func newIPv4Parser(proto uint8) *parser.Parser {
	p := parser.New()
	p.Eth = &protocols.EthernetHeader{
		SrcMAC:    net.HardwareAddr{0, 1, 2, 3, 4, 5},
		DstMAC:    net.HardwareAddr{6, 7, 8, 9, 10, 11},
		Ethertype: protocols.EthertypeIPv4,
	}
	p.IPv4 = &protocols.IPv4Header{
		Protocol: proto,
		SrcAddr:  net.IPv4(10, 0, 0, 1),
		DstAddr:  net.IPv4(10, 0, 0, 2),
		TTL:      64,
	}
	return p
}

func TestStoreEvaluateDenyShortCircuits(t *testing.T) {
	items := []Item{
		{
			RuleID: 1, RuleName: "deny-icmp", Type: TypeDeny,
			IPv4: IPv4Rule{Protocol: 1},
			Mask: Mask{IPv4Protocol: true},
		},
		{
			RuleID: 2, RuleName: "event-icmp", Type: TypeEvent,
			IPv4: IPv4Rule{Protocol: 1},
			Mask: Mask{IPv4Protocol: true},
		},
	}
	store := NewStore(items)
	p := newIPv4Parser(1)

	evs := store.Evaluate(p, "eth0", 64, time.Unix(0, 0))
	require.Len(t, evs, 1)
	require.Equal(t, uint32(1), evs[0].RuleID)
}

func TestStoreEvaluateAllowDoesNotShortCircuit(t *testing.T) {
	items := []Item{
		{RuleID: 1, Type: TypeAllow, IPv4: IPv4Rule{Protocol: 1}, Mask: Mask{IPv4Protocol: true}},
		{RuleID: 2, Type: TypeEvent, IPv4: IPv4Rule{Protocol: 1}, Mask: Mask{IPv4Protocol: true}},
	}
	store := NewStore(items)
	p := newIPv4Parser(1)

	evs := store.Evaluate(p, "eth0", 64, time.Unix(0, 0))
	require.Len(t, evs, 2)
}

func TestStoreEvaluateNoMatchEmitsNothing(t *testing.T) {
	items := []Item{
		{RuleID: 1, Type: TypeDeny, IPv4: IPv4Rule{Protocol: 6}, Mask: Mask{IPv4Protocol: true}},
	}
	store := NewStore(items)
	p := newIPv4Parser(17)

	evs := store.Evaluate(p, "eth0", 64, time.Unix(0, 0))
	require.Empty(t, evs)
}

func TestLoadParsesRuleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	contents := `[
		{
			"rule_name": "deny-telnet",
			"rule_id": 42,
			"rule_type": "deny",
			"ports": [23]
		},
		{
			"rule_name": "deny-bad-mac",
			"rule_id": 43,
			"rule_type": "deny",
			"from_src": "00:01:02:03:04:05",
			"ethertype": "0800"
		}
	]`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	store, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())
	require.True(t, store.items[0].Mask.Ports)
	require.Equal(t, []uint16{23}, store.items[0].Ports)
	require.True(t, store.items[1].Mask.FromSrc)
	require.True(t, store.items[1].Mask.Ethertype)
	require.Equal(t, uint16(0x0800), store.items[1].Eth.Ethertype)
}

func TestLoadRejectsInvalidRuleType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"rule_name":"x","rule_type":"bogus"}]`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
