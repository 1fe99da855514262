package gate

import "context"

// #region veto-type
// VetoType enumerates why a write was refused.
type VetoType string

const (
	VetoInsufficientSpace VetoType = "insufficient_space"
	VetoVolumeError       VetoType = "volume_error"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected refusal condition.
type VetoSignal struct {
	Type   VetoType
	Reason string
}

// #endregion veto-signal

// #region volume
// Volume reports how many bytes can still be written.
type Volume interface {
	Free(ctx context.Context) (int64, error)
}

// #endregion volume

// #region gate-decision
// GateDecision is the output of a storage check.
type GateDecision struct {
	Action   string // "commit" | "reject"
	Reason   string
	Vetoed   bool
	Veto     *VetoSignal
	Required int64
	Free     int64
}

// Allowed reports whether the write may proceed.
func (d GateDecision) Allowed() bool {
	return d.Action == "commit"
}

// #endregion gate-decision
