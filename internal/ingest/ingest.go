// Package ingest implements the per-interface capture/filter worker
// topology of spec.md §4.6: a capture goroutine that reads raw frames
// off a socket and a filter goroutine that decodes and evaluates
// them, joined by a bounded hand-off channel. Grounded on
// internal/liveness/receiver.go's deadline-driven read loop and
// internal/multicast/heartbeat.go / internal/pim/server.go's
// done-channel-plus-WaitGroup goroutine lifecycle.
package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nidsd/nidsd/internal/eventmgr"
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/filters"
	"github.com/nidsd/nidsd/internal/metrics"
	"github.com/nidsd/nidsd/internal/parser"
	"github.com/nidsd/nidsd/internal/rules"
	"github.com/nidsd/nidsd/internal/wire"
)

// queueDepth bounds the capture-to-filter hand-off channel.
const queueDepth = 1024

// CaptureSocket abstracts the raw-socket receive primitive so Worker
// can be driven from a fake in tests; the production implementation
// (socket_linux.go) wraps an AF_PACKET socket bound to one interface.
type CaptureSocket interface {
	ReadFrame() ([]byte, error)
	Close() error
}

// PcapWriter receives a copy of every captured frame when an
// interface's log_pcaps is enabled (spec.md §6).
type PcapWriter interface {
	WriteFrame(data []byte, capturedAt time.Time) error
}

// Stats holds the per-interface counters; the control plane reports
// its startup time, n_rx, n_allowed and n_deny (spec.md §4.7).
type Stats struct {
	StartupTime time.Time
	NRx         uint64
	NAllowed    uint64
	NDeny       uint64
	NEvents     uint64
}

// frame is a captured packet in flight between the capture and filter
// goroutines. Ownership transfers at the push/pop boundary: the
// capture goroutine never touches data again after sending it on the
// channel (spec.md §5's per-packet ownership rule).
type frame struct {
	data       []byte
	capturedAt time.Time
}

// Worker runs one interface's capture and filter goroutines.
type Worker struct {
	iface   string
	sock    CaptureSocket
	store   *rules.Store
	mgr     *eventmgr.Manager
	arp     *filters.ARPFloodDetector
	icmp    *filters.ICMPAnomalyFilter
	tcp     *filters.TCPStateMachine
	pcap    PcapWriter
	log     *slog.Logger
	clock   clockwork.Clock
	mtx     *metrics.Metrics

	mu    sync.Mutex
	stats Stats

	queue chan frame
	wg    sync.WaitGroup
}

// NewWorker constructs a Worker for one configured interface. pcap
// may be nil when log_pcaps is disabled for this interface.
func NewWorker(iface string, sock CaptureSocket, store *rules.Store, mgr *eventmgr.Manager, pcap PcapWriter, log *slog.Logger, clock clockwork.Clock, mtx *metrics.Metrics) *Worker {
	return &Worker{
		iface: iface,
		sock:  sock,
		store: store,
		mgr:   mgr,
		arp:   filters.NewARPFloodDetector(clock, 500*time.Millisecond, time.Minute),
		icmp:  filters.NewICMPAnomalyFilter(),
		tcp:   filters.NewTCPStateMachine(clock, time.Minute),
		pcap:  pcap,
		log:   log,
		clock: clock,
		mtx:   mtx,
		queue: make(chan frame, queueDepth),
		stats: Stats{StartupTime: clock.Now()},
	}
}

// Stats returns a snapshot of this interface's counters.
func (w *Worker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Interface reports the name of the interface this Worker serves,
// satisfying internal/controlplane.StatsSource.
func (w *Worker) Interface() string { return w.iface }

// StartupTime reports when this Worker began running, satisfying
// internal/controlplane.StatsSource.
func (w *Worker) StartupTime() time.Time { return w.Stats().StartupTime }

// Counters reports the n_rx/n_allowed/n_deny triple, satisfying
// internal/controlplane.StatsSource.
func (w *Worker) Counters() (nRx, nAllowed, nDeny uint64) {
	s := w.Stats()
	return s.NRx, s.NAllowed, s.NDeny
}

// Run starts the capture and filter goroutines and blocks until both
// have exited (on ctx cancellation or a fatal capture error).
func (w *Worker) Run(ctx context.Context) {
	w.wg.Add(2)
	go w.captureLoop(ctx)
	go w.filterLoop(ctx)
	w.wg.Wait()
	w.arp.Stop()
	w.tcp.Stop()
}

// captureLoop blocks on the raw-socket receive primitive, pushes each
// frame onto the bounded queue, and exits when the socket is closed
// (by the context-watcher goroutine below) or ctx is already done.
func (w *Worker) captureLoop(ctx context.Context) {
	defer w.wg.Done()
	defer close(w.queue)

	stopWatcher := make(chan struct{})
	defer close(stopWatcher)
	go func() {
		select {
		case <-ctx.Done():
			w.sock.Close()
		case <-stopWatcher:
		}
	}()

	for {
		data, err := w.sock.ReadFrame()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			w.log.Warn("ingest: capture read failed, stopping interface", "interface", w.iface, "error", err)
			return
		}

		now := w.clock.Now()

		w.mu.Lock()
		w.stats.NRx++
		w.mu.Unlock()
		if w.mtx != nil {
			w.mtx.PacketsReceived.WithLabelValues(w.iface).Inc()
		}

		if w.pcap != nil {
			if err := w.pcap.WriteFrame(data, now); err != nil {
				w.log.Warn("ingest: pcap write failed", "interface", w.iface, "error", err)
			}
		}

		select {
		case w.queue <- frame{data: data, capturedAt: now}:
		case <-ctx.Done():
			return
		}
	}
}

// filterLoop drains the queue, constructs a fresh Parser per frame,
// runs it, evaluates the rule store and stateful filters, and stores
// every resulting event.
func (w *Worker) filterLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case f, ok := <-w.queue:
			if !ok {
				return
			}
			w.process(f)
		case <-ctx.Done():
			// Drain whatever is already queued before exiting, matching
			// spec.md §5's flush-on-shutdown guidance.
			for {
				select {
				case f, ok := <-w.queue:
					if !ok {
						return
					}
					w.process(f)
				default:
					return
				}
			}
		}
	}
}

func (w *Worker) process(f frame) {
	p := parser.New()
	c := wire.NewCursor(f.data)

	if desc, err := p.Run(c); err != nil || !desc.Ok() {
		w.denyParseFailure(p, f, desc)
		return
	}

	evs := w.store.Evaluate(p, w.iface, len(f.data), f.capturedAt)

	if desc := w.arp.Check(p); !desc.Ok() {
		evs = append(evs, w.describeEvent(p, f, desc))
	}
	if desc := w.icmp.Check(p, w.store); !desc.Ok() {
		evs = append(evs, w.describeEvent(p, f, desc))
	}
	if desc := w.tcp.Observe(p); !desc.Ok() {
		evs = append(evs, w.describeEvent(p, f, desc))
	}

	if len(evs) == 0 {
		w.mu.Lock()
		w.stats.NAllowed++
		w.mu.Unlock()
		if w.mtx != nil {
			w.mtx.PacketsAllowed.WithLabelValues(w.iface).Inc()
		}
		return
	}

	denied := false
	for _, ev := range evs {
		w.mgr.Store(ev)
		if w.mtx != nil {
			w.mtx.EventsEmitted.WithLabelValues(w.iface).Inc()
		}
		if ev.Type == events.TypeDeny {
			denied = true
		}
	}

	w.mu.Lock()
	w.stats.NEvents += uint64(len(evs))
	if denied {
		w.stats.NDeny++
	} else {
		w.stats.NAllowed++
	}
	w.mu.Unlock()
	if w.mtx != nil {
		if denied {
			w.mtx.PacketsDenied.WithLabelValues(w.iface).Inc()
		} else {
			w.mtx.PacketsAllowed.WithLabelValues(w.iface).Inc()
		}
	}
}

// describeEvent wraps a stateful filter's Description in an
// events.Event carrying the same packet attributes the rule store
// attaches, since filters.Check/Observe report only the description.
func (w *Worker) describeEvent(p *parser.Parser, f frame, desc events.Description) events.Event {
	return w.buildEvent(p, f, events.TypeAlert, desc)
}

// denyParseFailure implements spec.md §4.3's Parser contract: on
// failure at any layer, construct a deny event carrying the first
// failing event_description and whatever headers were decoded up to
// that point, and submit it to the event manager.
func (w *Worker) denyParseFailure(p *parser.Parser, f frame, desc events.Description) {
	ev := w.buildEvent(p, f, events.TypeDeny, desc)
	w.mgr.Store(ev)
	if w.mtx != nil {
		w.mtx.EventsEmitted.WithLabelValues(w.iface).Inc()
		w.mtx.PacketsDenied.WithLabelValues(w.iface).Inc()
	}

	w.mu.Lock()
	w.stats.NEvents++
	w.stats.NDeny++
	w.mu.Unlock()
}

// buildEvent constructs an events.Event of the given type, carrying
// whatever headers the Parser managed to decode.
func (w *Worker) buildEvent(p *parser.Parser, f frame, typ events.Type, desc events.Description) events.Event {
	ev := events.New(typ, desc, f.capturedAt)
	ev.Interface = w.iface
	ev.PktLen = len(f.data)
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
	return ev
}
