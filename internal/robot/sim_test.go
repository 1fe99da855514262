package robot

import (
	"context"
	"math"
	"testing"
	"time"
)

func newSim(t *testing.T) *Sim {
	t.Helper()
	s, err := NewSim(DefaultSimConfig())
	if err != nil {
		t.Fatalf("NewSim: %v", err)
	}
	return s
}

func run(t *testing.T, s *Sim, d time.Duration) {
	t.Helper()
	if err := s.Sleep(context.Background(), d); err != nil {
		t.Fatalf("Sleep: %v", err)
	}
}

func TestForwardTurnsEncoders(t *testing.T) {
	s := newSim(t)
	s.Execute(Forward, 50)
	run(t, s, 500*time.Millisecond)

	l, r := s.RotationCount(LeftWheel), s.RotationCount(RightWheel)
	if l < 150 || r < 150 {
		t.Fatalf("expected both encoders past 150 degrees, got %d/%d", l, r)
	}
	if lb, rb := s.Bumpers(); lb || rb {
		t.Fatal("no contact expected in open floor")
	}

	s.ResetRotationCount(LeftWheel)
	if s.RotationCount(LeftWheel) != 0 || s.RotationCount(RightWheel) == 0 {
		t.Fatal("reset must only clear the requested wheel")
	}
}

func TestHeadOnCollisionPressesBothBumpers(t *testing.T) {
	s := newSim(t)
	s.Execute(Forward, 80)
	run(t, s, 5*time.Second)

	lb, rb := s.Bumpers()
	if !lb || !rb {
		t.Fatalf("expected both bumpers pressed against the obstacle, got %v/%v", lb, rb)
	}

	s.ResetRotationCount(LeftWheel)
	s.ResetRotationCount(RightWheel)
	run(t, s, time.Second)
	if s.RotationCount(LeftWheel) != 0 || s.RotationCount(RightWheel) != 0 {
		t.Fatal("stalled wheels must not advance their encoders")
	}
}

func TestBackingOffReleasesBumpers(t *testing.T) {
	s := newSim(t)
	s.Execute(Forward, 80)
	run(t, s, 5*time.Second)
	s.ResetRotationCount(LeftWheel)
	s.ResetRotationCount(RightWheel)
	s.Execute(Back, 80)
	run(t, s, 500*time.Millisecond)

	if lb, rb := s.Bumpers(); lb || rb {
		t.Fatal("bumpers should release after reversing")
	}
	if s.RotationCount(LeftWheel) >= 0 {
		t.Fatal("reversing must count negative degrees")
	}
}

func TestSpinEscapesHeadOnContact(t *testing.T) {
	for _, cmd := range []Command{TurnLeft, TurnRight} {
		t.Run(string(cmd), func(t *testing.T) {
			s := newSim(t)
			s.Execute(Forward, 80)
			run(t, s, 5*time.Second)
			if lb, rb := s.Bumpers(); !lb || !rb {
				t.Fatalf("expected head-on contact first, got %v/%v", lb, rb)
			}
			x0, y0, before := s.Pose()

			s.Execute(cmd, 50)
			run(t, s, time.Second)

			x, y, after := s.Pose()
			if math.Abs(after-before) < 1 {
				t.Fatalf("spin stalled against the obstacle: heading %f -> %f", before, after)
			}
			if x != x0 || y != y0 {
				t.Fatalf("a spin must not translate: (%.2f, %.2f) -> (%.2f, %.2f)", x0, y0, x, y)
			}
			if lb, rb := s.Bumpers(); lb && rb {
				t.Fatal("expected at least one bumper released after turning away")
			}
		})
	}
}

func TestInvalidPowerIsIgnored(t *testing.T) {
	s := newSim(t)
	s.Execute(Forward, 150)
	s.Execute(Forward, -1)
	run(t, s, time.Second)
	x, y, _ := s.Pose()
	if x != 35 || y != 20 {
		t.Fatalf("robot moved on invalid power: (%.2f, %.2f)", x, y)
	}

	s.Execute("fly", 50)
	run(t, s, time.Second)
	if x2, y2, _ := s.Pose(); x2 != x || y2 != y {
		t.Fatal("robot moved on unknown command")
	}
}

func TestTurnLeftRotatesCounterClockwise(t *testing.T) {
	s := newSim(t)
	_, _, before := s.Pose()
	s.Execute(TurnLeft, 50)
	run(t, s, 200*time.Millisecond)
	_, _, after := s.Pose()
	if after <= before {
		t.Fatalf("expected heading to increase, %f -> %f", before, after)
	}
}

func TestUltrasonicSeesObstacle(t *testing.T) {
	s := newSim(t)
	d := s.Ultrasonic()
	if math.Abs(float64(d)-25.5) > 1 {
		t.Fatalf("expected ~25cm to the obstacle, got %d", d)
	}
}

func TestSleepHonoursCancellation(t *testing.T) {
	s := newSim(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Sleep(ctx, time.Second); err == nil {
		t.Fatal("expected context error")
	}
	if !s.Now().Equal(time.Unix(0, 0).UTC()) {
		t.Fatal("cancelled sleep must not advance time")
	}
}

func TestBlockedStartIsRejected(t *testing.T) {
	cfg := DefaultSimConfig()
	cfg.StartX, cfg.StartY = 1, 1
	if _, err := NewSim(cfg); err == nil {
		t.Fatal("expected error for a start pose inside the wall margin")
	}
}

func TestDescribe(t *testing.T) {
	if got := DefaultArena().Describe(); got != "square_70x100 (with obstacle 29x9)" {
		t.Fatalf("unexpected descriptor %q", got)
	}
}
