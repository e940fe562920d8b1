//go:build automotive

package parser

import (
	"github.com/nidsd/nidsd/internal/events"
	"github.com/nidsd/nidsd/internal/protocols"
	"github.com/nidsd/nidsd/internal/wire"
)

// deserializeDoIPIfEnabled decodes a DoIP message when the automotive
// build tag is set. protocols.DoIPHeader is returned as `any` to keep
// the non-automotive stub's signature identical without an unused
// import.
func deserializeDoIPIfEnabled(c *wire.Cursor) (any, events.Description, error) {
	return protocols.DeserializeDoIP(c)
}
