// Package vecmath provides the 2D vector arithmetic used by the soft-body
// physics. Vectors are mgl64.Vec2 values; every function is pure.
package vecmath

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrZeroLength is returned by Unit for a vector with no direction.
var ErrZeroLength = errors.New("vecmath: zero-length vector has no direction")

type Vec2 = mgl64.Vec2

var Zero = Vec2{}

func New(x, y float64) Vec2 { return Vec2{x, y} }

func Sum(a, b Vec2) Vec2 { return a.Add(b) }

func Sub(a, b Vec2) Vec2 { return a.Sub(b) }

func Scale(v Vec2, s float64) Vec2 { return v.Mul(s) }

func Dot(a, b Vec2) float64 { return a.Dot(b) }

func Length(v Vec2) float64 { return v.Len() }

// Unit returns v / |v|. Callers that can meet coincident points should use
// UnitOrZero instead.
func Unit(v Vec2) (Vec2, error) {
	l := v.Len()
	if l == 0 {
		return Zero, ErrZeroLength
	}
	return v.Mul(1 / l), nil
}

// UnitOrZero is Unit with the zero vector standing in for an undefined direction.
func UnitOrZero(v Vec2) Vec2 {
	u, err := Unit(v)
	if err != nil {
		return Zero
	}
	return u
}

// Angle returns the angle between a and b in radians. ok is false when either
// vector has zero length.
func Angle(a, b Vec2) (angle float64, ok bool) {
	la, lb := a.Len(), b.Len()
	if la == 0 || lb == 0 {
		return 0, false
	}
	c := a.Dot(b) / (la * lb)
	// rounding can push |c| past 1
	c = math.Max(-1, math.Min(1, c))
	return math.Acos(c), true
}

// Sign returns -1, 0 or 1.
func Sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func IsFinite(v Vec2) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
