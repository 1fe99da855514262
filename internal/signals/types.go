package signals

import "context"

// #region button

// Button is one of the three brick buttons.
type Button int

const (
	ButtonNone   Button = iota
	ButtonLeft          // debug single-stepping
	ButtonCenter        // pure exploitation
	ButtonRight         // save and terminate
)

// #endregion button

// #region signal

// Signal is an operator request consumed by the controller.
type Signal string

const (
	SignalNone      Signal = ""
	SignalDebug     Signal = "debug"
	SignalExploit   Signal = "exploit"
	SignalTerminate Signal = "terminate"
	SignalAdvance   Signal = "advance" // release one debug step without changing mode
)

// FromButton maps a pressed button to its signal.
func FromButton(b Button) Signal {
	switch b {
	case ButtonLeft:
		return SignalDebug
	case ButtonCenter:
		return SignalExploit
	case ButtonRight:
		return SignalTerminate
	}
	return SignalNone
}

// #endregion signal

// #region operator

// Operator is the polled operator input. Poll never blocks. WaitStep blocks
// until the operator releases the next debug step or ctx is done.
type Operator interface {
	Poll() Signal
	WaitStep(ctx context.Context) (Signal, error)
}

// #endregion operator
