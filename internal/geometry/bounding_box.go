package geometry

import "github.com/golang/geo/r3"

// Axis aligned bounding box, with the midpoint of each axis precomputed
type BoundingBox struct {
	Xmin, Xmax       float64
	Ymin, Ymax       float64
	Zmin, Zmax       float64
	Xmid, Ymid, Zmid float64
}

// Builds a new bounding box from its extremes
func NewBoundingBox(Xmin, Xmax, Ymin, Ymax, Zmin, Zmax float64) *BoundingBox {
	return &BoundingBox{
		Xmin: Xmin,
		Xmax: Xmax,
		Ymin: Ymin,
		Ymax: Ymax,
		Zmin: Zmin,
		Zmax: Zmax,
		Xmid: (Xmin + Xmax) / 2,
		Ymid: (Ymin + Ymax) / 2,
		Zmid: (Zmin + Zmax) / 2,
	}
}

// Builds the smallest bounding box containing all the given positions. The slice must not be empty.
func NewBoundingBoxFromPositions(positions []r3.Vector) *BoundingBox {
	first := positions[0]
	minX, maxX := first.X, first.X
	minY, maxY := first.Y, first.Y
	minZ, maxZ := first.Z, first.Z
	for _, p := range positions[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
		if p.Z < minZ {
			minZ = p.Z
		}
		if p.Z > maxZ {
			maxZ = p.Z
		}
	}
	return NewBoundingBox(minX, maxX, minY, maxY, minZ, maxZ)
}

// Min returns the corner with the smallest coordinates
func (b *BoundingBox) Min() r3.Vector {
	return r3.Vector{X: b.Xmin, Y: b.Ymin, Z: b.Zmin}
}

// Extent returns the size of the box along each axis
func (b *BoundingBox) Extent() r3.Vector {
	return r3.Vector{X: b.Xmax - b.Xmin, Y: b.Ymax - b.Ymin, Z: b.Zmax - b.Zmin}
}

// Contains reports whether p lies inside the box, borders included
func (b *BoundingBox) Contains(p r3.Vector) bool {
	return p.X >= b.Xmin && p.X <= b.Xmax &&
		p.Y >= b.Ymin && p.Y <= b.Ymax &&
		p.Z >= b.Zmin && p.Z <= b.Zmax
}
