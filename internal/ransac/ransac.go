// Package ransac fits the dominant plane of a point cloud by random sample consensus.
//
// Every iteration draws three points, builds the plane through them and counts the points of the
// whole cloud closer than a threshold. Iterations are independent of each other: the scoring of an
// iteration never depends on the inliers claimed by a previous one.
package ransac

import (
	"errors"
	"sync"

	"github.com/golang/geo/r3"

	"github.com/ecopia-map/planeseg/internal/cloud"
	"github.com/ecopia-map/planeseg/internal/data"
	"github.com/ecopia-map/planeseg/internal/geometry"
)

var (
	// ErrInsufficientPoints is returned when fewer than 3 points are given.
	ErrInsufficientPoints = errors.New("at least 3 points are required to fit a plane")

	// ErrNoValidPlaneFound is returned when every sampled triple was degenerate.
	ErrNoValidPlaneFound = errors.New("no valid plane found")

	// ErrInvalidThreshold is returned when the inlier distance threshold is not positive.
	ErrInvalidThreshold = errors.New("inlier distance threshold must be positive")

	// ErrInvalidIterations is returned when the iteration count is below 1.
	ErrInvalidIterations = errors.New("iteration count must be at least 1")
)

// ProgressReporter receives the number of completed iterations out of the total.
type ProgressReporter interface {
	Report(done, total int)
}

// Options configures a FitPlane run
type Options struct {
	Threshold  float64          // a point is an inlier when its distance from the plane is below Threshold
	Iterations int              // number of sampled triples
	Sampler    Sampler          // source of randomness, an entropy seeded sampler when nil
	Workers    int              // goroutines scoring candidates, one per CPU when below 1
	Progress   ProgressReporter // optional
}

// Result is the best supported plane and the points agreeing with it
type Result struct {
	Plane           geometry.Plane
	Inliers         []data.Point
	InlierIndices   []int
	Iteration       int // iteration that produced the plane
	ValidIterations int // iterations whose sample was not degenerate
}

// candidate is the outcome of a single iteration
type candidate struct {
	iteration int
	valid     bool
	plane     geometry.Plane
	inliers   []int
}

// FitPlane runs RANSAC over the cloud and returns the plane with the most inliers.
// Ties keep the plane found first, so the result is fully determined by the sampler sequence
// whatever the number of workers.
func FitPlane(pc *cloud.PointCloud, opts Options) (*Result, error) {
	if pc == nil || pc.Size() < 3 {
		return nil, ErrInsufficientPoints
	}
	if !(opts.Threshold > 0) {
		return nil, ErrInvalidThreshold
	}
	if opts.Iterations < 1 {
		return nil, ErrInvalidIterations
	}

	sampler := opts.Sampler
	if sampler == nil {
		sampler = NewEntropySampler()
	}

	points := pc.Points()
	positions := pc.Positions()
	workers := numWorkers(opts.Workers)

	var best candidate
	validIterations := 0
	batchSize := workers * 4

	for start := 0; start < opts.Iterations; start += batchSize {
		end := start + batchSize
		if end > opts.Iterations {
			end = opts.Iterations
		}

		// triples are drawn sequentially so the sampler sequence does not depend on scheduling
		seeds := make([][3]int, end-start)
		for i := range seeds {
			seeds[i] = sampleTriple(sampler, len(points))
		}

		candidates := evaluateBatch(points, positions, seeds, start, opts.Threshold, workers)
		for _, c := range candidates {
			if c.valid {
				validIterations++
			}
			best = fold(best, c)
		}

		if opts.Progress != nil {
			opts.Progress.Report(end, opts.Iterations)
		}
	}

	if !best.valid {
		return nil, ErrNoValidPlaneFound
	}

	inliers := make([]data.Point, len(best.inliers))
	for i, idx := range best.inliers {
		inliers[i] = points[idx]
	}

	return &Result{
		Plane:           best.plane,
		Inliers:         inliers,
		InlierIndices:   best.inliers,
		Iteration:       best.iteration,
		ValidIterations: validIterations,
	}, nil
}

// scores the candidates of a batch, concurrently when more than one worker is available.
// The returned slice follows the iteration order.
func evaluateBatch(points []data.Point, positions []r3.Vector, seeds [][3]int, first int, threshold float64, workers int) []candidate {
	candidates := make([]candidate, len(seeds))

	if workers <= 1 || len(seeds) == 1 {
		for i, s := range seeds {
			candidates[i] = evaluate(points, positions, s, threshold, first+i)
		}
		return candidates
	}

	work := make(chan int, len(seeds))
	for i := range seeds {
		work <- i
	}
	close(work)

	var waitGroup sync.WaitGroup
	for w := 0; w < workers && w < len(seeds); w++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			for i := range work {
				candidates[i] = evaluate(points, positions, seeds[i], threshold, first+i)
			}
		}()
	}
	waitGroup.Wait()

	return candidates
}

// evaluate scores the plane through the three seed points against the whole cloud.
// Points equal to one of the seeds are not scored. A degenerate sample yields an invalid candidate.
func evaluate(points []data.Point, positions []r3.Vector, seeds [3]int, threshold float64, iteration int) candidate {
	s0, s1, s2 := points[seeds[0]], points[seeds[1]], points[seeds[2]]
	if s0 == s1 || s0 == s2 || s1 == s2 {
		return candidate{iteration: iteration}
	}

	p0, p1, p2 := positions[seeds[0]], positions[seeds[1]], positions[seeds[2]]
	if geometry.IsCollinear(p0, p1, p2) {
		return candidate{iteration: iteration}
	}
	plane := geometry.NewPlaneFromPoints(p0, p1, p2)
	if plane.IsDegenerate() {
		return candidate{iteration: iteration}
	}

	var inliers []int
	for i, p := range points {
		if p == s0 || p == s1 || p == s2 {
			continue
		}
		if plane.Distance(positions[i]) < threshold {
			inliers = append(inliers, i)
		}
	}

	return candidate{
		iteration: iteration,
		valid:     true,
		plane:     plane,
		inliers:   inliers,
	}
}

// fold keeps the best of the current best and the next candidate. The next candidate wins only when it is
// valid and has strictly more inliers, or when no valid candidate was seen yet.
func fold(best, next candidate) candidate {
	if !next.valid {
		return best
	}
	if !best.valid || len(next.inliers) > len(best.inliers) {
		return next
	}
	return best
}
