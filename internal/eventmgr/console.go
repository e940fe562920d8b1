package eventmgr

import (
	"log/slog"

	"github.com/nidsd/nidsd/internal/events"
)

// ConsoleSink logs each event through the process-wide slog logger,
// matching the teacher's console logging idiom used throughout
// internal/liveness and internal/multicast.
type ConsoleSink struct {
	log *slog.Logger
}

func NewConsoleSink(log *slog.Logger) *ConsoleSink {
	return &ConsoleSink{log: log}
}

func (s *ConsoleSink) Name() string { return "console" }

func (s *ConsoleSink) Write(ev events.Event) error {
	s.log.Info("event",
		"type", ev.Type.String(),
		"description", ev.Description.String(),
		"ruleID", ev.RuleID,
		"ruleName", ev.RuleName,
		"interface", ev.Interface,
		"srcAddr", ev.SrcAddr,
		"dstAddr", ev.DstAddr,
		"srcPort", ev.SrcPort,
		"dstPort", ev.DstPort,
		"osFingerprint", ev.OSFingerprint,
	)
	return nil
}
