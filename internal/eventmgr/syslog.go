//go:build linux

package eventmgr

import (
	"fmt"
	"log/syslog"

	"github.com/nidsd/nidsd/internal/events"
)

// SyslogSink mirrors event_mgr.cc's log_syslog(), which calls
// syslog(LOG_ALERT, ...) for every stored event. Linux-only, matching
// the original's direct dependency on the platform syslog() call.
type SyslogSink struct {
	w *syslog.Writer
}

func NewSyslogSink(tag string) (*SyslogSink, error) {
	w, err := syslog.New(syslog.LOG_ALERT, tag)
	if err != nil {
		return nil, fmt.Errorf("eventmgr: opening syslog: %w", err)
	}
	return &SyslogSink{w: w}, nil
}

func (s *SyslogSink) Name() string { return "syslog" }

func (s *SyslogSink) Write(ev events.Event) error {
	return s.w.Alert(fmt.Sprintf("rule_id=%d type=%s desc=%s iface=%s src=%s dst=%s",
		ev.RuleID, ev.Type, ev.Description, ev.Interface, ev.SrcAddr, ev.DstAddr))
}

func (s *SyslogSink) Close() error { return s.w.Close() }
