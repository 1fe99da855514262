package robot

import (
	"context"
	"fmt"
	"math"
	"time"
)

// #region sim-config
// SimConfig describes the simulated chassis and where it starts.
type SimConfig struct {
	Arena         Arena
	StartX        float64 // cm
	StartY        float64 // cm
	StartTheta    float64 // radians, 0 = +x
	MaxSpeed      float64 // wheel surface speed at power 100, cm/s
	WheelBase     float64 // cm between wheel contact points
	WheelDiameter float64 // cm
	BodyRadius    float64 // cm, keeps the chassis off walls when reversing
	BumperReach   float64 // cm from centre to each bumper tip
	BumperAngle   float64 // radians each tip sits off the heading
	Tick          time.Duration
}

// DefaultSimConfig approximates the 9797 kit base with two front bumpers.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Arena:         DefaultArena(),
		StartX:        35,
		StartY:        20,
		StartTheta:    math.Pi / 2,
		MaxSpeed:      34,
		WheelBase:     12,
		WheelDiameter: 5.6,
		BodyRadius:    7,
		BumperReach:   10,
		BumperAngle:   0.45,
		Tick:          10 * time.Millisecond,
	}
}

// #endregion sim-config

// #region sim
const (
	contactMargin = 0.5 // cm a tip may be from a surface and still read pressed
	sonarLimit    = 255 // cm, the sensor's "nothing seen" value
)

// Sim is a deterministic differential-drive robot in a walled arena. It
// implements Driver and advances in virtual time through Sleep, so a
// controller using it as its clock runs as fast as the host allows.
type Sim struct {
	cfg          SimConfig
	x, y, theta  float64
	left, right  int     // signed motor power
	encL, encR   float64 // degrees
	bumpL, bumpR bool
	now          time.Time
}

// NewSim places a robot at the configured start pose.
func NewSim(cfg SimConfig) (*Sim, error) {
	if cfg.Tick <= 0 {
		return nil, fmt.Errorf("sim tick must be positive, got %s", cfg.Tick)
	}
	s := &Sim{
		cfg:   cfg,
		x:     cfg.StartX,
		y:     cfg.StartY,
		theta: cfg.StartTheta,
		now:   time.Unix(0, 0).UTC(),
	}
	if s.collides(s.x, s.y, s.theta) {
		return nil, fmt.Errorf("start pose (%.1f, %.1f) is blocked", s.x, s.y)
	}
	s.sense(false, false)
	return s, nil
}

// #endregion sim

// #region driver-impl
func (s *Sim) Execute(cmd Command, power int) {
	if !ValidPower(power) {
		return
	}
	l, r, ok := WheelPowers(cmd, power)
	if !ok {
		return
	}
	s.left, s.right = l, r
}

func (s *Sim) Ultrasonic() int {
	return int(s.cfg.Arena.ray(s.x, s.y, s.theta, sonarLimit))
}

func (s *Sim) Bumpers() (left, right bool) {
	return s.bumpL, s.bumpR
}

func (s *Sim) RotationCount(w Wheel) int {
	if w == LeftWheel {
		return int(s.encL)
	}
	return int(s.encR)
}

func (s *Sim) ResetRotationCount(w Wheel) {
	if w == LeftWheel {
		s.encL = 0
		return
	}
	s.encR = 0
}

// #endregion driver-impl

// #region clock
// Now returns the simulated time.
func (s *Sim) Now() time.Time {
	return s.now
}

// Sleep advances the simulation by d in fixed ticks.
func (s *Sim) Sleep(ctx context.Context, d time.Duration) error {
	for d > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		dt := min(d, s.cfg.Tick)
		s.advance(dt.Seconds())
		s.now = s.now.Add(dt)
		d -= dt
	}
	return nil
}

// Pose returns the current position and heading.
func (s *Sim) Pose() (x, y, theta float64) {
	return s.x, s.y, s.theta
}

// #endregion clock

// #region physics
func (s *Sim) advance(dt float64) {
	vl := float64(s.left) / 100 * s.cfg.MaxSpeed
	vr := float64(s.right) / 100 * s.cfg.MaxSpeed
	v := (vl + vr) / 2
	w := (vr - vl) / s.cfg.WheelBase

	nx := s.x + v*math.Cos(s.theta)*dt
	ny := s.y + v*math.Sin(s.theta)*dt
	nth := s.theta + w*dt

	// tips only resist forward travel, spins and reversing stop on the body
	blocked := s.cfg.Arena.blocked(nx, ny, s.cfg.BodyRadius)
	if !blocked && v > 0 {
		blocked = s.collides(nx, ny, nth)
	}
	if blocked {
		// stalled: wheels do not turn, tips that would have entered a
		// surface read pressed
		lx, ly := s.tip(nx, ny, nth, s.cfg.BumperAngle, 0)
		rx, ry := s.tip(nx, ny, nth, -s.cfg.BumperAngle, 0)
		s.sense(s.cfg.Arena.blocked(lx, ly, 0), s.cfg.Arena.blocked(rx, ry, 0))
		return
	}

	s.x, s.y, s.theta = nx, ny, math.Mod(nth, 2*math.Pi)
	circ := math.Pi * s.cfg.WheelDiameter
	s.encL += vl * dt / circ * 360
	s.encR += vr * dt / circ * 360
	s.sense(false, false)
}

// sense latches bumper state from the current pose, or'ed with contacts
// found while stalling.
func (s *Sim) sense(stallL, stallR bool) {
	lx, ly := s.tip(s.x, s.y, s.theta, s.cfg.BumperAngle, contactMargin)
	rx, ry := s.tip(s.x, s.y, s.theta, -s.cfg.BumperAngle, contactMargin)
	s.bumpL = stallL || s.cfg.Arena.blocked(lx, ly, 0)
	s.bumpR = stallR || s.cfg.Arena.blocked(rx, ry, 0)
}

func (s *Sim) tip(x, y, theta, offset, extra float64) (float64, float64) {
	r := s.cfg.BumperReach + extra
	return x + r*math.Cos(theta+offset), y + r*math.Sin(theta+offset)
}

func (s *Sim) collides(x, y, theta float64) bool {
	a := s.cfg.Arena
	if a.blocked(x, y, s.cfg.BodyRadius) {
		return true
	}
	lx, ly := s.tip(x, y, theta, s.cfg.BumperAngle, 0)
	rx, ry := s.tip(x, y, theta, -s.cfg.BumperAngle, 0)
	return a.blocked(lx, ly, 0) || a.blocked(rx, ry, 0)
}

// #endregion physics
