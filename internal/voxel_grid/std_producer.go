package voxel_grid

import "sync"

type Producer interface {
	Produce(work chan *WorkUnit, wg *sync.WaitGroup)
}

type StandardProducer struct {
	numSlabs int
}

func NewStandardProducer(numSlabs int) *StandardProducer {
	return &StandardProducer{
		numSlabs: numSlabs,
	}
}

// Submits a WorkUnit per grid slab to the provided work channel, in increasing slab order.
// Closes the channel when all work is submitted.
func (p *StandardProducer) Produce(work chan *WorkUnit, wg *sync.WaitGroup) {
	for i := 0; i < p.numSlabs; i++ {
		work <- &WorkUnit{Slab: i}
	}
	close(work)
	wg.Done()
}
