package std_algorithm_manager

import (
	"runtime"

	"github.com/ecopia-map/planeseg/internal/ransac"
	"github.com/ecopia-map/planeseg/internal/segmenter"
	"github.com/ecopia-map/planeseg/pkg/algorithm_manager"
	"github.com/ecopia-map/planeseg/tools"
)

type StandardAlgorithmManager struct {
	options *segmenter.Options
}

func NewAlgorithmManager(opts *segmenter.Options) algorithm_manager.AlgorithmManager {
	return &StandardAlgorithmManager{
		options: opts,
	}
}

// Returns a deterministic sampler when a seed is configured, an entropy seeded one otherwise.
// Every call returns a fresh sampler so that each processed file sees the same sequence.
func (m *StandardAlgorithmManager) GetSampler() ransac.Sampler {
	if m.options.Seed != nil {
		return ransac.NewSampler(*m.options.Seed)
	}
	return ransac.NewEntropySampler()
}

func (m *StandardAlgorithmManager) GetProgressReporter(step string) algorithm_manager.ProgressReporter {
	return tools.NewLogProgress(step)
}

func (m *StandardAlgorithmManager) GetWorkers() int {
	if m.options.Workers < 1 {
		return runtime.NumCPU()
	}
	return m.options.Workers
}
