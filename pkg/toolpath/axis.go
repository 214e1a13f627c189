package toolpath

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// HeightAxis is the index of the vertical (layer stacking) axis. Toolpath
// points are Y-up: X and Z span the build plate.
const HeightAxis = 1

// heightBias separates coplanar lines so they do not z-fight.
const heightBias = 0.01

// Axis returns component i (0=X, 1=Y, 2=Z) of p.
func Axis(p v3.Vec, i int) float64 {
	switch i {
	case 0:
		return p.X
	case 1:
		return p.Y
	case 2:
		return p.Z
	}
	panic("toolpath: axis index out of range")
}

// WithAxis returns p with component i replaced by v.
func WithAxis(p v3.Vec, i int, v float64) v3.Vec {
	switch i {
	case 0:
		p.X = v
	case 1:
		p.Y = v
	case 2:
		p.Z = v
	default:
		panic("toolpath: axis index out of range")
	}
	return p
}

func lift(p v3.Vec, d float64) v3.Vec {
	return WithAxis(p, HeightAxis, Axis(p, HeightAxis)+d)
}
