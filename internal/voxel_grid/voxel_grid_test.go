package voxel_grid

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecopia-map/planeseg/internal/cloud"
	"github.com/ecopia-map/planeseg/internal/data"
	"github.com/ecopia-map/planeseg/internal/geometry"
)

func mustCloud(t *testing.T, points []data.Point) *cloud.PointCloud {
	t.Helper()
	pc, err := cloud.New(points)
	require.NoError(t, err)
	return pc
}

type cellKey struct{ i, j, k int }

// brute force occupancy: the cell of every point, using the same bounds as the grid
func occupiedCells(t *testing.T, pc *cloud.PointCloud, size float64) map[cellKey]int {
	t.Helper()
	box := pc.BoundingBox()
	nx, ny, nz, err := GridSize(box, size)
	require.NoError(t, err)

	cells := make(map[cellKey]int)
	for _, p := range pc.Points() {
		found := false
		for i := 0; i < nx && !found; i++ {
			xlo, xhi := cellBounds(box.Xmin, size, i)
			if p.X < xlo || p.X >= xhi {
				continue
			}
			for j := 0; j < ny && !found; j++ {
				ylo, yhi := cellBounds(box.Ymin, size, j)
				if p.Y < ylo || p.Y >= yhi {
					continue
				}
				for k := 0; k < nz && !found; k++ {
					zlo, zhi := cellBounds(box.Zmin, size, k)
					if p.Z < zlo || p.Z >= zhi {
						continue
					}
					cells[cellKey{i, j, k}]++
					found = true
				}
			}
		}
		require.True(t, found, "point %v not covered by the grid", p)
	}
	return cells
}

func TestDownsample_SinglePoint(t *testing.T) {
	t.Parallel()
	p := data.NewPoint(1.25, -3.5, 7, 42, 0, 0, 1, 0.3)
	for _, size := range []float64{1e-3, 0.1, 1, 1000} {
		out, err := Downsample(mustCloud(t, []data.Point{p}), size)
		require.NoError(t, err)
		require.Equal(t, 1, out.Size())

		got, err := out.At(0)
		require.NoError(t, err)
		assert.Equal(t, p.Position(), got.Position())
	}
}

func TestDownsample_SameVoxel(t *testing.T) {
	t.Parallel()
	pc := mustCloud(t, []data.Point{
		data.NewPoint(0, 0, 0, 5, 1, 0, 0, 0.5),
		data.NewPoint(0.5, 0, 0, 7, 0, 1, 0, 0.2),
	})
	out, err := Downsample(pc, 1.0)
	require.NoError(t, err)
	require.Equal(t, 1, out.Size())

	got, err := out.At(0)
	require.NoError(t, err)
	assert.Equal(t, data.Point{X: 0.25}, got)
}

func TestDownsample_SeparateVoxels(t *testing.T) {
	t.Parallel()
	pc := mustCloud(t, []data.Point{{X: 0}, {X: 1.5}})
	out, err := Downsample(pc, 1.0)
	require.NoError(t, err)
	require.Equal(t, 2, out.Size())

	first, _ := out.At(0)
	second, _ := out.At(1)
	assert.Equal(t, data.Point{X: 0}, first)
	assert.Equal(t, data.Point{X: 1.5}, second)
}

func TestDownsample_SourceUntouched(t *testing.T) {
	t.Parallel()
	points := []data.Point{{X: 0, Intensity: 3}, {X: 0.1, Intensity: 4}, {X: 2}}
	pc := mustCloud(t, points)
	_, err := Downsample(pc, 1)
	require.NoError(t, err)
	assert.Equal(t, points, pc.Points())
}

func TestDownsample_InvalidVoxelSize(t *testing.T) {
	t.Parallel()
	pc := mustCloud(t, []data.Point{{X: 1}})
	for _, size := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := Downsample(pc, size)
		assert.ErrorIs(t, err, ErrInvalidVoxelSize, "size %v", size)
	}
}

func TestDownsample_GridTooLarge(t *testing.T) {
	t.Parallel()
	pc := mustCloud(t, []data.Point{{X: 0}, {X: 1e6}})
	_, err := Downsample(pc, 1e-6)
	assert.ErrorIs(t, err, ErrGridTooLarge)
}

func TestDownsample_GridTooManyCells(t *testing.T) {
	t.Parallel()
	// 10001 cells per axis passes the per axis cap but not the total one
	pc := mustCloud(t, []data.Point{{}, {X: 1000, Y: 1000, Z: 1000}})
	_, err := Downsample(pc, 0.1)
	assert.ErrorIs(t, err, ErrGridTooLarge)
}

func TestDownsample_MaxPointOnLastCellBound(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		points []data.Point
		size   float64
	}{
		"large offset": {
			points: []data.Point{{X: 152126.28502065394}, {X: 152127.15502065394}},
			size:   0.03,
		},
		"negative coordinates": {
			points: []data.Point{{X: -4.20546376626128}, {X: -4.0974637662612805}},
			size:   0.004,
		},
		"max on two axes": {
			points: []data.Point{
				{X: -4.20546376626128, Y: -4.0974637662612805},
				{X: -4.0974637662612805, Y: -4.20546376626128},
			},
			size: 0.004,
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			pc := mustCloud(t, tc.points)
			box := pc.BoundingBox()
			nx, ny, _, err := GridSize(box, tc.size)
			require.NoError(t, err)
			_, xhi := cellBounds(box.Xmin, tc.size, nx-1)
			_, yhi := cellBounds(box.Ymin, tc.size, ny-1)
			assert.Greater(t, xhi, box.Xmax)
			assert.Greater(t, yhi, box.Ymax)

			out, err := Downsample(pc, tc.size)
			require.NoError(t, err)
			assert.Equal(t, len(tc.points), out.Size())
			for i, p := range out.Points() {
				assert.Equal(t, tc.points[i].X, p.X)
				assert.Equal(t, tc.points[i].Y, p.Y)
			}
		})
	}
}

func TestGridSize_ZeroExtentAxes(t *testing.T) {
	t.Parallel()
	box := geometry.NewBoundingBox(0, 2.5, 4, 4, -1, -1)
	nx, ny, nz, err := GridSize(*box, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, nx)
	assert.Equal(t, 1, ny)
	assert.Equal(t, 1, nz)
}

func TestDownsample_RandomCloudProperties(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(11))
	points := make([]data.Point, 3000)
	for i := range points {
		points[i] = data.NewPoint(r.Float64()*5, r.Float64()*3-1, r.Float64()*0.5, r.Float64(), 0, 0, 1, 0)
	}
	pc := mustCloud(t, points)

	const size = 0.4
	occupied := occupiedCells(t, pc, size)

	out, err := Downsample(pc, size, WithWorkers(3))
	require.NoError(t, err)
	assert.Equal(t, len(occupied), out.Size())

	// every emitted point lies within the bounds of an occupied voxel
	box := pc.BoundingBox()
	const slack = 1e-9
	for _, p := range out.Points() {
		i := int(math.Floor((p.X - box.Xmin) / size))
		j := int(math.Floor((p.Y - box.Ymin) / size))
		k := int(math.Floor((p.Z - box.Zmin) / size))
		xlo, xhi := cellBounds(box.Xmin, size, i)
		ylo, yhi := cellBounds(box.Ymin, size, j)
		zlo, zhi := cellBounds(box.Zmin, size, k)
		assert.True(t, p.X >= xlo-slack && p.X < xhi+slack)
		assert.True(t, p.Y >= ylo-slack && p.Y < yhi+slack)
		assert.True(t, p.Z >= zlo-slack && p.Z < zhi+slack)
		assert.Contains(t, occupied, cellKey{i, j, k})
		assert.Equal(t, 0.0, p.Intensity)
		assert.Equal(t, 0.0, p.NormalZ)
	}
}

func TestDownsample_WorkerCountDoesNotChangeResult(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(5))
	points := make([]data.Point, 1000)
	for i := range points {
		points[i] = data.Point{X: r.NormFloat64(), Y: r.NormFloat64(), Z: r.NormFloat64()}
	}
	pc := mustCloud(t, points)

	single, err := Downsample(pc, 0.5, WithWorkers(1))
	require.NoError(t, err)
	parallel, err := Downsample(pc, 0.5, WithWorkers(8))
	require.NoError(t, err)
	assert.Equal(t, single.Points(), parallel.Points())
}

type recordingProgress struct {
	sync.Mutex
	calls int
	last  int
	total int
}

func (r *recordingProgress) Report(done, total int) {
	r.Lock()
	defer r.Unlock()
	r.calls++
	if done > r.last {
		r.last = done
	}
	r.total = total
}

func TestDownsample_Progress(t *testing.T) {
	t.Parallel()
	pc := mustCloud(t, []data.Point{{X: 0}, {X: 3.5}, {X: 1, Y: 1}})
	progress := &recordingProgress{}

	out, err := Downsample(pc, 1, WithProgress(progress), WithWorkers(2))
	require.NoError(t, err)
	assert.Equal(t, 3, out.Size())
	assert.Equal(t, 4, progress.calls)
	assert.Equal(t, 4, progress.last)
	assert.Equal(t, 4, progress.total)
}
