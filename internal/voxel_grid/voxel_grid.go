package voxel_grid

import (
	"errors"
	"math"
	"runtime"
	"sync"

	"github.com/golang/geo/r3"

	"github.com/ecopia-map/planeseg/internal/cloud"
	"github.com/ecopia-map/planeseg/internal/data"
	"github.com/ecopia-map/planeseg/internal/geometry"
)

const (
	// maxCellsPerAxis caps the grid resolution; past it the voxel size is too small for the cloud extent.
	maxCellsPerAxis = 1 << 30

	// maxGridCells caps nx*ny*nz, every cell of the grid is visited once.
	maxGridCells = 1 << 28

	maxRoundingSteps = 4
)

var (
	// ErrInvalidVoxelSize is returned when the voxel edge length is not a positive finite number.
	ErrInvalidVoxelSize = errors.New("voxel size must be a positive finite number")

	// ErrGridTooLarge is returned when the voxel size is too small for the extent of the cloud: an axis needs
	// 2^30 cells or more, or the whole grid more than 2^28 cells.
	ErrGridTooLarge = errors.New("voxel grid too large for the cloud extent")
)

// ProgressReporter receives the number of completed grid slabs out of the total.
// Implementations must be safe for concurrent use.
type ProgressReporter interface {
	Report(done, total int)
}

type settings struct {
	workers  int
	progress ProgressReporter
}

// Option configures a Downsample run
type Option func(*settings)

// WithWorkers sets the number of goroutines scanning the grid. Values below 1 use one per CPU.
func WithWorkers(n int) Option {
	return func(s *settings) {
		s.workers = n
	}
}

// WithProgress installs a progress reporter
func WithProgress(p ProgressReporter) Option {
	return func(s *settings) {
		s.progress = p
	}
}

// Models the regular grid laid over the bounding box of a cloud. Cell (i,j,k) spans the half open box
// [origin + (i,j,k)*size, origin + (i+1,j+1,k+1)*size).
type grid struct {
	cloud  *cloud.PointCloud
	origin r3.Vector
	size   float64
	nx     int
	ny     int
	nz     int
}

// GridSize returns the number of cells along each axis of the grid of the given voxel size laid over the box.
// An axis with no extent collapses to a single cell.
func GridSize(box geometry.BoundingBox, voxelSize float64) (nx, ny, nz int, err error) {
	if !(voxelSize > 0) || math.IsInf(voxelSize, 0) {
		return 0, 0, 0, ErrInvalidVoxelSize
	}
	if nx, err = axisCells(box.Xmin, box.Xmax, voxelSize); err != nil {
		return 0, 0, 0, err
	}
	if ny, err = axisCells(box.Ymin, box.Ymax, voxelSize); err != nil {
		return 0, 0, 0, err
	}
	if nz, err = axisCells(box.Zmin, box.Zmax, voxelSize); err != nil {
		return 0, 0, 0, err
	}
	if float64(nx)*float64(ny)*float64(nz) > maxGridCells {
		return 0, 0, 0, ErrGridTooLarge
	}
	return nx, ny, nz, nil
}

// cells needed along one axis so that [lo, hi] is covered by half open cells of the given size starting at lo.
// The count is checked against the bounds computed by cellBounds, as rounding can make lo+n*size land on hi.
func axisCells(lo, hi, size float64) (int, error) {
	if !(hi > lo) {
		return 1, nil
	}
	cells := math.Floor((hi - lo) / size)
	if cells >= maxCellsPerAxis {
		return 0, ErrGridTooLarge
	}
	n := int(cells) + 1
	for extra := 0; ; extra++ {
		if _, upper := cellBounds(lo, size, n-1); upper > hi {
			break
		}
		// more than a few rounding steps means size is below the resolution of the coordinates
		if extra == maxRoundingSteps {
			return 0, ErrGridTooLarge
		}
		n++
	}
	return n, nil
}

// Downsample replaces the points of every occupied voxel of edge voxelSize with a single point at their centroid.
// Auxiliary attributes of the emitted points are zero. The result is a new cloud, the input is left untouched.
// Output points are ordered by cell index (i, j, k).
func Downsample(pc *cloud.PointCloud, voxelSize float64, opts ...Option) (*cloud.PointCloud, error) {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}

	nx, ny, nz, err := GridSize(pc.BoundingBox(), voxelSize)
	if err != nil {
		return nil, err
	}

	box := pc.BoundingBox()
	g := &grid{
		cloud:  pc,
		origin: box.Min(),
		size:   voxelSize,
		nx:     nx,
		ny:     ny,
		nz:     nz,
	}

	slabs := g.scan(s.workers, s.progress)

	var points []data.Point
	for _, slab := range slabs {
		points = append(points, slab...)
	}

	return cloud.New(points)
}

// scans every slab of the grid with a pool of consumers and returns the emitted points per slab
func (g *grid) scan(workers int, progress ProgressReporter) [][]data.Point {
	numConsumers := workers
	if numConsumers < 1 {
		numConsumers = runtime.NumCPU()
	}
	if numConsumers > g.nx {
		numConsumers = g.nx
	}

	// init channel where to submit work with a buffer 5 times greater than the number of consumer
	workChannel := make(chan *WorkUnit, numConsumers*5)
	results := make([][]data.Point, g.nx)
	tracker := newProgressTracker(progress, g.nx)

	var waitGroup sync.WaitGroup

	// add producer to waitgroup and launch producer goroutine
	waitGroup.Add(1)
	var producer Producer = NewStandardProducer(g.nx)
	go producer.Produce(workChannel, &waitGroup)

	// add consumers to waitgroup and launch them
	for i := 0; i < numConsumers; i++ {
		waitGroup.Add(1)
		consumer := NewStandardConsumer(g, results, tracker)
		go consumer.Consume(workChannel, &waitGroup)
	}

	waitGroup.Wait()

	return results
}

// lower and upper bound of cell i along an axis
func cellBounds(origin, size float64, i int) (float64, float64) {
	return origin + float64(i)*size, origin + float64(i+1)*size
}
