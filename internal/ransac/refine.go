package ransac

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ecopia-map/planeseg/internal/cloud"
	"github.com/ecopia-map/planeseg/internal/data"
	"github.com/ecopia-map/planeseg/internal/geometry"
)

// ErrDegenerateInliers is returned when the points given to Refine do not span a plane.
var ErrDegenerateInliers = errors.New("points do not span a plane")

// Refine fits the total least squares plane of the points: the plane through their centroid whose normal is
// the direction of least variance. The returned plane has a unit normal.
func Refine(points []data.Point) (geometry.Plane, error) {
	n := len(points)
	if n < 3 {
		return geometry.Plane{}, ErrInsufficientPoints
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	for i, p := range points {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}
	cx := floats.Sum(xs) / float64(n)
	cy := floats.Sum(ys) / float64(n)
	cz := floats.Sum(zs) / float64(n)

	centered := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		centered.Set(i, 0, xs[i]-cx)
		centered.Set(i, 1, ys[i]-cy)
		centered.Set(i, 2, zs[i]-cz)
	}

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDFullV); !ok {
		return geometry.Plane{}, ErrDegenerateInliers
	}

	// singular values come sorted in decreasing order
	values := svd.Values(nil)
	if values[0] == 0 || values[1] <= 1e-9*values[0] {
		return geometry.Plane{}, ErrDegenerateInliers
	}

	var v mat.Dense
	svd.VTo(&v)
	a, b, c := v.At(0, 2), v.At(1, 2), v.At(2, 2)
	norm := math.Sqrt(a*a + b*b + c*c)
	a, b, c = a/norm, b/norm, c/norm

	return geometry.NewPlane(a, b, c, -(a*cx + b*cy + c*cz)), nil
}

// Inliers returns the points of the cloud closer than threshold to a non degenerate plane, with their indices
func Inliers(pc *cloud.PointCloud, plane geometry.Plane, threshold float64) ([]data.Point, []int) {
	all := pc.Points()
	var points []data.Point
	var indices []int
	for i, pos := range pc.Positions() {
		if plane.Distance(pos) < threshold {
			points = append(points, all[i])
			indices = append(indices, i)
		}
	}
	return points, indices
}

// IterationsFor estimates the iterations needed to draw at least one all-inlier triple with the given
// probability, when inlierRatio of the points lie on the plane: log(1-p) / log(1-w³).
func IterationsFor(confidence, inlierRatio float64) (int, error) {
	if !(confidence > 0 && confidence < 1) {
		return 0, errors.New("confidence must be in (0, 1)")
	}
	if !(inlierRatio > 0 && inlierRatio <= 1) {
		return 0, errors.New("inlier ratio must be in (0, 1]")
	}

	good := inlierRatio * inlierRatio * inlierRatio
	if good >= 1 {
		return 1, nil
	}
	k := math.Ceil(math.Log(1-confidence) / math.Log(1-good))
	if k < 1 {
		return 1, nil
	}
	if k > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	return int(k), nil
}
