package geometry

import (
	"math"

	"github.com/golang/geo/r3"
)

// Plane is the set of points satisfying A*x + B*y + C*z + D = 0.
// The coefficients are not normalized: any nonzero multiple of (A, B, C, D) describes the same plane.
type Plane struct {
	A float64
	B float64
	C float64
	D float64
}

// Builds a plane from its coefficients
func NewPlane(a, b, c, d float64) Plane {
	return Plane{A: a, B: b, C: c, D: d}
}

// Builds the plane through three points. The normal is cross(p2-p1, p3-p1) and is left unnormalized.
// Collinear or coincident points yield a degenerate plane, see IsCollinear.
func NewPlaneFromPoints(p1, p2, p3 r3.Vector) Plane {
	normal := Cross(Sub(p2, p1), Sub(p3, p1))
	return Plane{
		A: normal.X,
		B: normal.Y,
		C: normal.Z,
		D: -normal.Dot(p1),
	}
}

// IsDegenerate reports whether the plane has no valid normal, i.e. A = B = C = 0
func (p Plane) IsDegenerate() bool {
	return p.A == 0 && p.B == 0 && p.C == 0
}

// Normal returns the unit normal of the plane, or the zero vector for a degenerate plane
func (p Plane) Normal() r3.Vector {
	return Normalize(r3.Vector{X: p.A, Y: p.B, Z: p.C})
}

// Distance returns the euclidean distance from point to the plane.
// The result does not change when the coefficients are scaled by a nonzero factor.
// It is NaN for a degenerate plane.
func (p Plane) Distance(point r3.Vector) float64 {
	norm := math.Sqrt(p.A*p.A + p.B*p.B + p.C*p.C)
	if norm == 0 {
		return math.NaN()
	}
	return math.Abs(p.A*point.X+p.B*point.Y+p.C*point.Z+p.D) / norm
}

// Scale returns the same plane with every coefficient multiplied by factor
func (p Plane) Scale(factor float64) Plane {
	return Plane{A: p.A * factor, B: p.B * factor, C: p.C * factor, D: p.D * factor}
}

// AngleTo returns the angle in radians between the normals of the two planes, folded into [0, π/2]
// so that opposite orientations of the same plane compare equal.
func (p Plane) AngleTo(other Plane) float64 {
	cos := math.Abs(p.Normal().Dot(other.Normal()))
	if cos > 1 {
		cos = 1
	}
	return math.Acos(cos)
}
