package cloud

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/ecopia-map/planeseg/internal/data"
	"github.com/ecopia-map/planeseg/internal/geometry"
	"github.com/ecopia-map/planeseg/internal/kdtree"
)

var (
	// ErrEmptyInput is returned when a point cloud is built from zero points.
	ErrEmptyInput = errors.New("point cloud has no points")

	// ErrIndexOutOfRange is returned on access past the end of the cloud.
	ErrIndexOutOfRange = errors.New("point index out of range")

	// ErrNonFinitePosition is returned when a point has a NaN or infinite coordinate.
	ErrNonFinitePosition = errors.New("point position is not finite")
)

// PointCloud is an immutable ordered set of points together with its kd-tree index and bounding box.
// Once built it is never modified, so it can be shared between goroutines without locking.
type PointCloud struct {
	points      []data.Point
	positions   []r3.Vector
	index       *kdtree.Tree
	boundingBox geometry.BoundingBox
}

// Builds a new PointCloud from the given points, computing its bounding box and spatial index.
// The slice is copied, later changes to it do not affect the cloud.
func New(points []data.Point) (*PointCloud, error) {
	if len(points) == 0 {
		return nil, ErrEmptyInput
	}

	pc := &PointCloud{
		points:    make([]data.Point, len(points)),
		positions: make([]r3.Vector, len(points)),
	}
	copy(pc.points, points)

	for i, p := range pc.points {
		if !isFinite(p.X) || !isFinite(p.Y) || !isFinite(p.Z) {
			return nil, fmt.Errorf("point %d (%v, %v, %v): %w", i, p.X, p.Y, p.Z, ErrNonFinitePosition)
		}
		pc.positions[i] = p.Position()
	}

	pc.boundingBox = *geometry.NewBoundingBoxFromPositions(pc.positions)

	index, err := kdtree.Build(pc.positions)
	if err != nil {
		return nil, err
	}
	pc.index = index

	return pc, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Size returns the number of points in the cloud
func (pc *PointCloud) Size() int {
	return len(pc.points)
}

// At returns the point stored at position i
func (pc *PointCloud) At(i int) (data.Point, error) {
	if i < 0 || i >= len(pc.points) {
		return data.Point{}, fmt.Errorf("index %d, size %d: %w", i, len(pc.points), ErrIndexOutOfRange)
	}
	return pc.points[i], nil
}

// Points returns a copy of the points in insertion order
func (pc *PointCloud) Points() []data.Point {
	out := make([]data.Point, len(pc.points))
	copy(out, pc.points)
	return out
}

// Positions returns the positions of the points in insertion order. The returned slice must not be modified.
func (pc *PointCloud) Positions() []r3.Vector {
	return pc.positions
}

// BoundingBox returns the axis aligned bounding box of the cloud
func (pc *PointCloud) BoundingBox() geometry.BoundingBox {
	return pc.boundingBox
}

// RangeQuery returns the indices and distances of every point within radius of center
func (pc *PointCloud) RangeQuery(center r3.Vector, radius float64) []kdtree.Neighbor {
	return pc.index.RangeQuery(center, radius)
}

// Nearest returns the index and distance of the point closest to center
func (pc *PointCloud) Nearest(center r3.Vector) kdtree.Neighbor {
	return pc.index.Nearest(center)
}
