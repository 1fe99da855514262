package robot

import (
	"math"
	"strconv"
)

// #region geometry
// Rect is an axis-aligned rectangle in centimetres.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// grow returns r expanded by m on every side.
func (r Rect) grow(m float64) Rect {
	return Rect{X: r.X - m, Y: r.Y - m, W: r.W + 2*m, H: r.H + 2*m}
}

// Arena is a walled floor with optional obstacles.
type Arena struct {
	Width, Height float64
	Obstacles     []Rect
}

// DefaultArena is the 70x100 square with a 29x9 block used on the brick.
func DefaultArena() Arena {
	return Arena{
		Width:  70,
		Height: 100,
		Obstacles: []Rect{
			{X: 20.5, Y: 45.5, W: 29, H: 9},
		},
	}
}

// Describe returns the environment descriptor stored with saved tables.
func (a Arena) Describe() string {
	if len(a.Obstacles) == 0 {
		return fmtSize("square", a.Width, a.Height)
	}
	o := a.Obstacles[0]
	return fmtSize("square", a.Width, a.Height) + " (with obstacle " + fmtDims(o.W, o.H) + ")"
}

// blocked reports whether a point lies outside the walls or inside an
// obstacle, with the walls pulled in and obstacles grown by margin.
func (a Arena) blocked(x, y, margin float64) bool {
	if x < margin || y < margin || x > a.Width-margin || y > a.Height-margin {
		return true
	}
	for _, o := range a.Obstacles {
		if o.grow(margin).contains(x, y) {
			return true
		}
	}
	return false
}

// ray returns the distance from (x, y) along theta to the first blocked
// point, capped at limit.
func (a Arena) ray(x, y, theta, limit float64) float64 {
	const step = 0.5
	dx, dy := math.Cos(theta), math.Sin(theta)
	for d := 0.0; d < limit; d += step {
		if a.blocked(x+dx*d, y+dy*d, 0) {
			return d
		}
	}
	return limit
}

func fmtDims(w, h float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64) + "x" + strconv.FormatFloat(h, 'f', -1, 64)
}

func fmtSize(kind string, w, h float64) string {
	return kind + "_" + fmtDims(w, h)
}

// #endregion geometry
