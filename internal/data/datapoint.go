package data

import "github.com/golang/geo/r3"

// Contains data of a Point Cloud Point, namely X,Y,Z coords,
// Intensity, the components of the surface normal and the Curvature.
// Points are plain values: two points are the same point when all the fields match.
type Point struct {
	X         float64
	Y         float64
	Z         float64
	Intensity float64
	NormalX   float64
	NormalY   float64
	NormalZ   float64
	Curvature float64
}

// Builds a new Point from the given coordinates and auxiliary attributes
func NewPoint(X, Y, Z, Intensity, NormalX, NormalY, NormalZ, Curvature float64) Point {
	return Point{
		X:         X,
		Y:         Y,
		Z:         Z,
		Intensity: Intensity,
		NormalX:   NormalX,
		NormalY:   NormalY,
		NormalZ:   NormalZ,
		Curvature: Curvature,
	}
}

// Builds a Point at the given position with every auxiliary attribute set to zero
func NewPositionPoint(position r3.Vector) Point {
	return Point{X: position.X, Y: position.Y, Z: position.Z}
}

// Position returns the X,Y,Z coordinates of the point as a vector
func (p Point) Position() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}
