package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is a rigid affine transform between a cell-local frame and
// the world frame. T is row-major 3x4: [r00,r01,r02,tx, r10,...,ty, r20,...,tz].
// The rotation block is assumed orthonormal, so the inverse is the
// transpose plus a back-rotated translation.
type Transform struct {
	T [12]float64
}

// IdentityTransform maps local coordinates directly to world coordinates.
var IdentityTransform = Transform{T: [12]float64{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
}}

// NewTranslation returns a pure translation transform.
func NewTranslation(t r3.Vec) Transform {
	return Transform{T: [12]float64{
		1, 0, 0, t.X,
		0, 1, 0, t.Y,
		0, 0, 1, t.Z,
	}}
}

// NewRotZTranslation returns a rotation of phi radians about the world
// z axis followed by a translation. This covers the sector wedges of a
// cylindrically symmetric calorimeter.
func NewRotZTranslation(phi float64, t r3.Vec) Transform {
	c, s := math.Cos(phi), math.Sin(phi)
	return Transform{T: [12]float64{
		c, -s, 0, t.X,
		s, c, 0, t.Y,
		0, 0, 1, t.Z,
	}}
}

// LocalToWorld maps a point in the local frame to the world frame.
func (tr Transform) LocalToWorld(p r3.Vec) r3.Vec {
	t := tr.T
	return r3.Vec{
		X: t[0]*p.X + t[1]*p.Y + t[2]*p.Z + t[3],
		Y: t[4]*p.X + t[5]*p.Y + t[6]*p.Z + t[7],
		Z: t[8]*p.X + t[9]*p.Y + t[10]*p.Z + t[11],
	}
}

// WorldToLocal maps a point in the world frame to the local frame.
func (tr Transform) WorldToLocal(p r3.Vec) r3.Vec {
	t := tr.T
	dx, dy, dz := p.X-t[3], p.Y-t[7], p.Z-t[11]
	// transpose of the rotation block
	return r3.Vec{
		X: t[0]*dx + t[4]*dy + t[8]*dz,
		Y: t[1]*dx + t[5]*dy + t[9]*dz,
		Z: t[2]*dx + t[6]*dy + t[10]*dz,
	}
}
