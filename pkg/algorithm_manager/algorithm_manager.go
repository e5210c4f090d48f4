package algorithm_manager

import (
	"github.com/ecopia-map/planeseg/internal/ransac"
)

// ProgressReporter is satisfied by the progress sinks of the downsampler and of the plane fitter
type ProgressReporter interface {
	Report(done, total int)
}

type AlgorithmManager interface {
	GetSampler() ransac.Sampler
	GetProgressReporter(step string) ProgressReporter
	GetWorkers() int
}
