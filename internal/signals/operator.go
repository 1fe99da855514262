package signals

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

// #region scripted

// ScriptedOperator replays signals keyed by poll number (1 for the first
// Poll call). WaitStep returns queued responses, then SignalAdvance.
type ScriptedOperator struct {
	mu     sync.Mutex
	script map[int]Signal
	waits  []Signal
	polls  int
	steps  int
}

// NewScriptedOperator creates an operator that emits script[n] on the n-th poll.
func NewScriptedOperator(script map[int]Signal, waits ...Signal) *ScriptedOperator {
	return &ScriptedOperator{script: script, waits: waits}
}

func (o *ScriptedOperator) Poll() Signal {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.polls++
	return o.script[o.polls]
}

func (o *ScriptedOperator) WaitStep(ctx context.Context) (Signal, error) {
	if err := ctx.Err(); err != nil {
		return SignalNone, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps++
	if len(o.waits) == 0 {
		return SignalAdvance, nil
	}
	s := o.waits[0]
	o.waits = o.waits[1:]
	return s, nil
}

// Polls returns how many times Poll was called.
func (o *ScriptedOperator) Polls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.polls
}

// Waits returns how many debug steps were released.
func (o *ScriptedOperator) Waits() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.steps
}

// #endregion scripted

// #region line-operator

// LineOperator turns text lines into button presses so a terminal can stand
// in for the brick: "d" left, "e" center, "q" right, an empty line advances
// a debug step.
type LineOperator struct {
	ch chan Signal
}

// NewLineOperator starts reading r in the background. The reader goroutine
// exits at EOF.
func NewLineOperator(r io.Reader) *LineOperator {
	o := &LineOperator{ch: make(chan Signal, 16)}
	go o.read(r)
	return o
}

func (o *LineOperator) read(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := ParseLine(sc.Text())
		if s == SignalNone {
			continue
		}
		select {
		case o.ch <- s:
		default:
			// drop presses nobody is polling for
		}
	}
}

// ParseLine maps one line of operator input to a signal.
func ParseLine(line string) Signal {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return SignalAdvance
	case "d", "l", "left", "debug":
		return FromButton(ButtonLeft)
	case "e", "c", "center", "exploit":
		return FromButton(ButtonCenter)
	case "q", "r", "right", "quit", "save":
		return FromButton(ButtonRight)
	}
	return SignalNone
}

func (o *LineOperator) Poll() Signal {
	for {
		select {
		case s := <-o.ch:
			if s == SignalAdvance {
				continue
			}
			return s
		default:
			return SignalNone
		}
	}
}

func (o *LineOperator) WaitStep(ctx context.Context) (Signal, error) {
	select {
	case s := <-o.ch:
		return s, nil
	case <-ctx.Done():
		return SignalNone, ctx.Err()
	}
}

// #endregion line-operator
