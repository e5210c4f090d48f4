package geometry

import "github.com/golang/geo/r3"

// collinearEpsilon bounds sin²(θ) between the two edges of a sample triple.
// Below it the triple does not determine a plane.
const collinearEpsilon = 1e-12

// Sub returns a - b
func Sub(a, b r3.Vector) r3.Vector {
	return a.Sub(b)
}

// Cross returns the cross product a × b
func Cross(a, b r3.Vector) r3.Vector {
	return a.Cross(b)
}

// Normalize returns the unit vector with the direction of v.
// The zero vector normalizes to the zero vector.
func Normalize(v r3.Vector) r3.Vector {
	length := v.Norm()
	if length == 0 {
		return r3.Vector{}
	}
	return r3.Vector{X: v.X / length, Y: v.Y / length, Z: v.Z / length}
}

// IsCollinear reports whether the three points fail to span a plane, either because two of them
// coincide or because they lie on a common line. The test compares |v1 × v2|² against |v1|²·|v2|²,
// so it does not depend on the scale of the coordinates.
func IsCollinear(p1, p2, p3 r3.Vector) bool {
	v1 := Sub(p2, p1)
	v2 := Sub(p3, p1)
	n1 := v1.Norm2()
	n2 := v2.Norm2()
	if n1 == 0 || n2 == 0 {
		return true
	}
	return Cross(v1, v2).Norm2() <= collinearEpsilon*n1*n2
}
