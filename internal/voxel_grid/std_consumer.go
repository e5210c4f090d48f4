package voxel_grid

import (
	"sync"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"

	"github.com/ecopia-map/planeseg/internal/data"
)

type StandardConsumer struct {
	grid    *grid
	results [][]data.Point
	tracker *progressTracker

	// coordinate buffers of the cell being averaged, reused between cells
	xs []float64
	ys []float64
	zs []float64
}

func NewStandardConsumer(g *grid, results [][]data.Point, tracker *progressTracker) *StandardConsumer {
	return &StandardConsumer{
		grid:    g,
		results: results,
		tracker: tracker,
	}
}

// Continually consumes WorkUnits submitted to a work channel, storing the points emitted by each slab
// at the slab position of the results slice. Continues working until the work channel is closed.
func (c *StandardConsumer) Consume(workchan chan *WorkUnit, waitGroup *sync.WaitGroup) {
	for {
		// get work from channel
		work, ok := <-workchan
		if !ok {
			// channel was closed by producer, quit infinite loop
			break
		}

		c.results[work.Slab] = c.doWork(work)
		c.tracker.slabDone()
	}

	// signal waitgroup finished work
	waitGroup.Done()
}

// Visits every cell of the slab, empty ones included, and returns one centroid point per occupied cell
func (c *StandardConsumer) doWork(workUnit *WorkUnit) []data.Point {
	g := c.grid
	var out []data.Point

	xlo, xhi := cellBounds(g.origin.X, g.size, workUnit.Slab)
	for j := 0; j < g.ny; j++ {
		ylo, yhi := cellBounds(g.origin.Y, g.size, j)
		for k := 0; k < g.nz; k++ {
			zlo, zhi := cellBounds(g.origin.Z, g.size, k)

			c.xs, c.ys, c.zs = c.xs[:0], c.ys[:0], c.zs[:0]

			// the cell half diagonal is size*sqrt(3)/2, so every point of the cell is within size of its center
			center := r3.Vector{X: xlo + g.size/2, Y: ylo + g.size/2, Z: zlo + g.size/2}
			for _, candidate := range g.cloud.RangeQuery(center, g.size) {
				p := g.cloud.Positions()[candidate.Index]
				if p.X >= xlo && p.X < xhi &&
					p.Y >= ylo && p.Y < yhi &&
					p.Z >= zlo && p.Z < zhi {
					c.xs = append(c.xs, p.X)
					c.ys = append(c.ys, p.Y)
					c.zs = append(c.zs, p.Z)
				}
			}

			if len(c.xs) == 0 {
				continue
			}

			// the centroid carries no auxiliary attributes
			n := float64(len(c.xs))
			out = append(out, data.NewPositionPoint(r3.Vector{
				X: floats.Sum(c.xs) / n,
				Y: floats.Sum(c.ys) / n,
				Z: floats.Sum(c.zs) / n,
			}))
		}
	}

	return out
}
