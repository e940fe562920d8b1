package eventmgr

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/metrics"
)

// DefaultDrainInterval is the manager's wake-up period absent any
// queued event (spec.md §4.5: "once per wake-up interval, default
// 1 second, or on queue-non-empty").
const DefaultDrainInterval = time.Second

// Sink delivers one event to a destination (file, syslog, console,
// publish). A sink error is logged and otherwise ignored — per
// spec.md §7, "I/O errors on event sinks cause the sink to be skipped
// for that event; the drain loop continues."
type Sink interface {
	Name() string
	Write(ev events.Event) error
}

// Manager is the event manager of spec.md §4.5, grounded on
// original_source/src/events/event_mgr.{h,cc}'s event_mgr singleton:
// a non-blocking store(), a mutex-guarded queue, and a single
// dedicated drain goroutine fanning each event out to every
// configured sink.
type Manager struct {
	log   *slog.Logger
	clock clockwork.Clock
	mtx   *metrics.Metrics

	mu    sync.Mutex
	queue []events.Event
	wake  chan struct{}

	sinks []Sink

	wg   sync.WaitGroup
	done chan struct{}
}

// New constructs a Manager. Run must be called to start the drain
// goroutine. mtx may be nil, in which case metrics are skipped.
func New(log *slog.Logger, clock clockwork.Clock, sinks []Sink, mtx *metrics.Metrics) *Manager {
	return &Manager{
		log:   log,
		clock: clock,
		mtx:   mtx,
		wake:  make(chan struct{}, 1),
		sinks: sinks,
		done:  make(chan struct{}),
	}
}

// Store enqueues ev without blocking the calling worker, mirroring
// event_mgr::store()'s O(1) contract.
func (m *Manager) Store(ev events.Event) {
	m.mu.Lock()
	m.queue = append(m.queue, ev)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Run is the drain loop itself, to be run on its own goroutine: it
// drains the queue on every DefaultDrainInterval tick and on every
// Store wake-up, and blocks until ctx is canceled, at which point it
// drains any remaining queued events once more before returning. That
// final drain has no deadline; it returns only after every pending
// event has been handed to every sink.
func (m *Manager) Run(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	ticker := m.clock.NewTicker(DefaultDrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.drain()
			return
		case <-ticker.Chan():
			m.drain()
		case <-m.wake:
			m.drain()
		}
	}
}

// Wait blocks until Run has returned.
func (m *Manager) Wait() { m.wg.Wait() }

// drain empties the queue and fans each event out to every sink.
func (m *Manager) drain() {
	m.mu.Lock()
	pending := m.queue
	m.queue = nil
	m.mu.Unlock()

	for _, ev := range pending {
		if m.mtx != nil {
			m.mtx.EventsDrained.Inc()
		}
		for _, sink := range m.sinks {
			if err := sink.Write(ev); err != nil {
				m.log.Error("eventmgr: sink write failed", "sink", sink.Name(), "error", err)
				if m.mtx != nil {
					m.mtx.SinkWriteErrors.WithLabelValues(sink.Name()).Inc()
				}
			}
		}
	}
}
