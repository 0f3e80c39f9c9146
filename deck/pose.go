/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package deck

import "math"

// Vec3 is a point or an XYZ Euler rotation in scene units.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Lerp moves v toward o by the fraction a.
func (v Vec3) Lerp(o Vec3, a float64) Vec3 {
	return Vec3{
		v.X + (o.X-v.X)*a,
		v.Y + (o.Y-v.Y)*a,
		v.Z + (o.Z-v.Z)*a,
	}
}

type Pose struct {
	Position Vec3 `json:"position"`
	Rotation Vec3 `json:"rotation"`
}

// smoothing returns the lerp fraction that covers the same share of the
// remaining distance for a given rate no matter how dt is sliced.
func smoothing(rate, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	return 1 - math.Exp(-rate*dt)
}
