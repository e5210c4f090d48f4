package cloud

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecopia-map/planeseg/internal/data"
)

func TestNew_Empty(t *testing.T) {
	t.Parallel()
	pc, err := New(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Nil(t, pc)

	pc, err = New([]data.Point{})
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Nil(t, pc)
}

func TestNew_NonFinite(t *testing.T) {
	t.Parallel()
	_, err := New([]data.Point{{X: 1}, {X: math.NaN()}})
	assert.ErrorIs(t, err, ErrNonFinitePosition)

	_, err = New([]data.Point{{Z: math.Inf(-1)}})
	assert.ErrorIs(t, err, ErrNonFinitePosition)
}

func TestNew_BoundingBoxAndAccess(t *testing.T) {
	t.Parallel()
	points := []data.Point{
		data.NewPoint(1, 2, 3, 10, 0, 0, 1, 0.5),
		data.NewPoint(-4, 0, 8, 20, 0, 1, 0, 0.1),
		data.NewPoint(2, -6, 3, 30, 1, 0, 0, 0.2),
	}
	pc, err := New(points)
	require.NoError(t, err)

	assert.Equal(t, 3, pc.Size())
	box := pc.BoundingBox()
	assert.Equal(t, -4.0, box.Xmin)
	assert.Equal(t, 2.0, box.Xmax)
	assert.Equal(t, -6.0, box.Ymin)
	assert.Equal(t, 2.0, box.Ymax)
	assert.Equal(t, 3.0, box.Zmin)
	assert.Equal(t, 8.0, box.Zmax)

	for i, want := range points {
		got, err := pc.At(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = pc.At(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = pc.At(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestNew_IsolatedFromInput(t *testing.T) {
	t.Parallel()
	points := []data.Point{{X: 1}, {X: 2}}
	pc, err := New(points)
	require.NoError(t, err)

	points[0].X = 100
	got, err := pc.At(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.X)

	out := pc.Points()
	out[1].X = 200
	got, err = pc.At(1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.X)
	assert.Equal(t, 2.0, pc.BoundingBox().Xmax)
}

func TestRangeQuery(t *testing.T) {
	t.Parallel()
	pc, err := New([]data.Point{{X: 0}, {X: 1}, {X: 3}, {X: 1, Y: 0.5}})
	require.NoError(t, err)

	got := pc.RangeQuery(r3.Vector{X: 1}, 1)
	idx := make(map[int]bool)
	for _, n := range got {
		idx[n.Index] = true
	}
	assert.Equal(t, map[int]bool{0: true, 1: true, 3: true}, idx)

	nearest := pc.Nearest(r3.Vector{X: 2.9})
	assert.Equal(t, 2, nearest.Index)
	assert.InDelta(t, 0.1, nearest.Distance, 1e-12)
}
