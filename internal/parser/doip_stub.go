//go:build !automotive

package parser

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/wire"
)

// deserializeDoIPIfEnabled is a no-op when built without the
// automotive tag: DoIP/UDS decoding is excluded from non-automotive
// builds entirely, matching the original's
// #if defined(FW_ENABLE_AUTOMOTIVE) gate.
func deserializeDoIPIfEnabled(c *wire.Cursor) (any, events.Description, error) {
	return nil, events.EvtParseOk, nil
}
