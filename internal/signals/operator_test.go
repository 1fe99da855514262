package signals

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestFromButton(t *testing.T) {
	cases := map[Button]Signal{
		ButtonNone:   SignalNone,
		ButtonLeft:   SignalDebug,
		ButtonCenter: SignalExploit,
		ButtonRight:  SignalTerminate,
	}
	for b, want := range cases {
		if got := FromButton(b); got != want {
			t.Errorf("button %d: expected %q, got %q", b, want, got)
		}
	}
}

func TestParseLine(t *testing.T) {
	cases := map[string]Signal{
		"":        SignalAdvance,
		"  d ":    SignalDebug,
		"E":       SignalExploit,
		"quit":    SignalTerminate,
		"garbage": SignalNone,
	}
	for in, want := range cases {
		if got := ParseLine(in); got != want {
			t.Errorf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestScriptedOperator(t *testing.T) {
	op := NewScriptedOperator(map[int]Signal{2: SignalExploit, 3: SignalTerminate}, SignalDebug)

	want := []Signal{SignalNone, SignalExploit, SignalTerminate, SignalNone}
	for i, w := range want {
		if got := op.Poll(); got != w {
			t.Fatalf("poll %d: expected %q, got %q", i+1, w, got)
		}
	}
	if op.Polls() != 4 {
		t.Fatalf("expected 4 polls, got %d", op.Polls())
	}

	ctx := context.Background()
	if s, _ := op.WaitStep(ctx); s != SignalDebug {
		t.Fatalf("expected queued debug, got %q", s)
	}
	if s, _ := op.WaitStep(ctx); s != SignalAdvance {
		t.Fatalf("expected advance once queue drained, got %q", s)
	}
	if op.Waits() != 2 {
		t.Fatalf("expected 2 waits, got %d", op.Waits())
	}
}

func TestLineOperatorPollSkipsAdvance(t *testing.T) {
	op := NewLineOperator(strings.NewReader("\nq\n"))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s := op.Poll(); s != SignalNone {
			if s != SignalTerminate {
				t.Fatalf("expected terminate, got %q", s)
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("terminate never polled")
}

func TestLineOperatorWaitStep(t *testing.T) {
	op := NewLineOperator(strings.NewReader("\n"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := op.WaitStep(ctx)
	if err != nil {
		t.Fatalf("WaitStep: %v", err)
	}
	if s != SignalAdvance {
		t.Fatalf("expected advance, got %q", s)
	}
}

func TestLineOperatorWaitStepCancelled(t *testing.T) {
	op := NewLineOperator(strings.NewReader(""))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := op.WaitStep(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
