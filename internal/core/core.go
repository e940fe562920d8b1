// Package core wires configuration, rule stores, per-interface
// capture/filter workers, the event manager, the control plane, and
// metrics into one running sensor, mirroring how
// cmd/doublezerod/main.go assembles the teacher's subsystems behind a
// single entry point.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/nidsd/nidsd/internal/config"
	"github.com/nidsd/nidsd/internal/controlplane"
	"github.com/nidsd/nidsd/internal/eventmgr"
	"github.com/nidsd/nidsd/internal/ingest"
	"github.com/nidsd/nidsd/internal/metrics"
	"github.com/nidsd/nidsd/internal/rules"
)

// Core owns every running subsystem of one sensor instance.
type Core struct {
	log     *slog.Logger
	cfg     *config.Config
	metrics *metrics.Metrics

	eventMgr *eventmgr.Manager
	workers  []*ingest.Worker
	ctl      *controlplane.Server

	pcapFiles []*os.File

	wg sync.WaitGroup
}

// New loads every rule file named by cfg, builds the configured event
// sinks, and assembles one Worker per configured interface, opening
// that interface's capture socket and, when log_pcaps is set, its
// pcap file. The workers and the event manager are started by Run.
func New(log *slog.Logger, cfg *config.Config) (*Core, error) {
	mtx := metrics.New()
	clock := clockwork.NewRealClock()

	sinks, pcapFiles, err := buildSinks(log, cfg, clock)
	if err != nil {
		return nil, err
	}

	c := &Core{
		log:       log,
		cfg:       cfg,
		metrics:   mtx,
		pcapFiles: pcapFiles,
	}
	c.eventMgr = eventmgr.New(log, clock, sinks, mtx)

	var sources []controlplane.StatsSource
	for _, ii := range cfg.Interfaces() {
		store, err := rules.Load(ii.RuleFile)
		if err != nil {
			return nil, fmt.Errorf("core: loading rules for %s: %w", ii.Interface, err)
		}

		sock, err := ingest.NewRawSocket(ii.Interface)
		if err != nil {
			return nil, fmt.Errorf("core: opening capture socket for %s: %w", ii.Interface, err)
		}

		var pcap ingest.PcapWriter
		if ii.LogPcaps {
			pcap, err = c.openPcapWriter(ii.Interface)
			if err != nil {
				return nil, err
			}
		}

		w := ingest.NewWorker(ii.Interface, sock, store, c.eventMgr, pcap, log, clock, mtx)
		c.workers = append(c.workers, w)
		sources = append(sources, w)
	}

	c.ctl = controlplane.New(log, controlplane.WithSources(sources))

	return c, nil
}

func (c *Core) openPcapWriter(iface string) (ingest.PcapWriter, error) {
	path := fmt.Sprintf("%s.pcap", iface)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("core: opening pcap file for %s: %w", iface, err)
	}
	c.pcapFiles = append(c.pcapFiles, f)
	return ingest.NewPcapFileWriter(f)
}

// Run starts the event manager, every interface worker, and the
// control-plane server, and blocks until ctx is canceled and every
// goroutine has flushed and exited.
func (c *Core) Run(ctx context.Context) error {
	if err := c.ctl.Listen(); err != nil {
		return fmt.Errorf("core: starting control plane: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.eventMgr.Run(ctx)
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.ctl.Run(ctx); err != nil {
			c.log.Warn("core: control plane exited", "error", err)
		}
	}()

	for _, w := range c.workers {
		w := w
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			w.Run(ctx)
		}()
	}

	<-ctx.Done()
	c.wg.Wait()

	for _, f := range c.pcapFiles {
		_ = f.Close()
	}

	return nil
}

// Metrics returns the shared metrics registry, for wiring into a
// promhttp handler by the caller.
func (c *Core) Metrics() *metrics.Metrics { return c.metrics }
