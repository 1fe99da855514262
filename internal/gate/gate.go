package gate

import (
	"context"
	"fmt"
	"log"

	"github.com/dustin/go-humanize"
)

// #region gate
// Gate decides whether a persistence write fits on the volume.
type Gate struct {
	volume Volume
}

// NewGate creates a gate over volume.
func NewGate(volume Volume) *Gate {
	return &Gate{volume: volume}
}

// Check compares required bytes against the free space. A write that would
// leave no free byte is refused, as is any volume error. Nothing is written.
func (g *Gate) Check(ctx context.Context, required int64) GateDecision {
	free, err := g.volume.Free(ctx)
	if err != nil {
		d := GateDecision{
			Action:   "reject",
			Reason:   fmt.Sprintf("query free space: %v", err),
			Vetoed:   true,
			Veto:     &VetoSignal{Type: VetoVolumeError, Reason: err.Error()},
			Required: required,
		}
		log.Printf("[GATE] reject: %s", d.Reason)
		return d
	}

	if free <= required {
		reason := fmt.Sprintf("need %s, only %s free",
			humanize.Bytes(uint64(max(required, 0))), humanize.Bytes(uint64(max(free, 0))))
		log.Printf("[GATE] reject: %s", reason)
		return GateDecision{
			Action:   "reject",
			Reason:   reason,
			Vetoed:   true,
			Veto:     &VetoSignal{Type: VetoInsufficientSpace, Reason: reason},
			Required: required,
			Free:     free,
		}
	}

	return GateDecision{
		Action:   "commit",
		Reason:   fmt.Sprintf("%d of %d bytes", required, free),
		Required: required,
		Free:     free,
	}
}

// #endregion gate
