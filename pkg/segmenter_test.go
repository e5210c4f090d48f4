package pkg

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecopia-map/planeseg/internal/data"
	"github.com/ecopia-map/planeseg/internal/pcd"
	"github.com/ecopia-map/planeseg/internal/segmenter"
	"github.com/ecopia-map/planeseg/pkg/algorithm_manager/std_algorithm_manager"
	"github.com/ecopia-map/planeseg/tools"
)

// writes a 10x10 grid on z = 0 with unit spacing and 10 points floating above it
func writeScene(t *testing.T, dir, name string) string {
	t.Helper()
	var points []data.Point
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			points = append(points, data.NewPoint(float64(i), float64(j), 0, 1, 0, 0, 1, 0))
		}
	}
	for i := 0; i < 10; i++ {
		points = append(points, data.NewPoint(float64(i)+0.25, 0.25, 5, 1, 0, 0, 1, 0))
	}

	filePath := filepath.Join(dir, name)
	require.NoError(t, pcd.WriteFile(filePath, points, pcd.Binary))
	return filePath
}

func newOptions(input, output string) *segmenter.Options {
	seed := int64(1)
	return &segmenter.Options{
		Input:      input,
		Output:     output,
		VoxelSize:  0.5,
		Threshold:  0.01,
		Iterations: 200,
		Seed:       &seed,
		Workers:    2,
		DataKind:   pcd.Ascii,
		Command:    segmenter.Segment,
	}
}

func run(t *testing.T, opts *segmenter.Options) error {
	t.Helper()
	manager := std_algorithm_manager.NewAlgorithmManager(opts)
	if opts.Command == segmenter.Downsample {
		return NewDownsampler(tools.NewStandardFileFinder(), manager).Run(opts)
	}
	return NewSegmenter(tools.NewStandardFileFinder(), manager).Run(opts)
}

func TestSegmenter_WritesPlaneInliers(t *testing.T) {
	t.Parallel()
	input := writeScene(t, t.TempDir(), "scene.pcd")
	output := filepath.Join(t.TempDir(), "out")
	opts := newOptions(input, output)
	opts.WriteDownsampled = true

	require.NoError(t, run(t, opts))

	_, inliers, err := pcd.ReadFile(filepath.Join(output, "scene_plane.pcd"))
	require.NoError(t, err)
	// the three sampled points are not counted
	assert.Len(t, inliers, 97)
	for _, p := range inliers {
		assert.Equal(t, 0.0, p.Z)
		assert.Equal(t, 0.0, p.Intensity)
	}

	_, downsampled, err := pcd.ReadFile(filepath.Join(output, "scene_downsampled.pcd"))
	require.NoError(t, err)
	assert.Len(t, downsampled, 110)
}

func TestSegmenter_Refine(t *testing.T) {
	t.Parallel()
	input := writeScene(t, t.TempDir(), "scene.pcd")
	output := t.TempDir()
	opts := newOptions(input, output)
	opts.Refine = true

	require.NoError(t, run(t, opts))

	_, inliers, err := pcd.ReadFile(filepath.Join(output, "scene_plane.pcd"))
	require.NoError(t, err)
	// the refined plane selects every grid point
	assert.Len(t, inliers, 100)
	_, err = os.Stat(filepath.Join(output, "scene_downsampled.pcd"))
	assert.True(t, os.IsNotExist(err))
}

func TestSegmenter_FolderProcessing(t *testing.T) {
	t.Parallel()
	input := t.TempDir()
	writeScene(t, input, "a.pcd")
	require.NoError(t, os.MkdirAll(filepath.Join(input, "nested"), 0777))
	writeScene(t, filepath.Join(input, "nested"), "b.PCD")
	require.NoError(t, os.WriteFile(filepath.Join(input, "notes.txt"), []byte("not a cloud"), 0666))

	output := t.TempDir()
	opts := newOptions(input, output)
	opts.FolderProcessing = true
	require.NoError(t, run(t, opts))
	assert.FileExists(t, filepath.Join(output, "a_plane.pcd"))
	assert.NoFileExists(t, filepath.Join(output, "b_plane.pcd"))

	opts.Recursive = true
	require.NoError(t, run(t, opts))
	assert.FileExists(t, filepath.Join(output, "b_plane.pcd"))
}

func TestSegmenter_ConfidenceOverridesIterations(t *testing.T) {
	t.Parallel()
	opts := &segmenter.Options{Iterations: 5, Confidence: 0.99, InlierRatio: 0.5}
	iterations, err := resolveIterations(opts)
	require.NoError(t, err)
	assert.Equal(t, 35, iterations)

	opts.Confidence = 0
	iterations, err = resolveIterations(opts)
	require.NoError(t, err)
	assert.Equal(t, 5, iterations)

	opts.Confidence, opts.InlierRatio = 1.5, 0.5
	_, err = resolveIterations(opts)
	assert.Error(t, err)
}

func TestSegmenter_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	// no pcd files in folder
	opts := newOptions(dir, t.TempDir())
	opts.FolderProcessing = true
	assert.Error(t, run(t, opts))

	// too few points for a plane
	path := filepath.Join(dir, "pair.pcd")
	require.NoError(t, pcd.WriteFile(path, []data.Point{{X: 0}, {X: 3}}, pcd.Ascii))
	opts = newOptions(path, t.TempDir())
	assert.Error(t, run(t, opts))

	// every point invalid
	path = filepath.Join(dir, "nan.pcd")
	require.NoError(t, pcd.WriteFile(path, []data.Point{{X: math.NaN()}}, pcd.Ascii))
	opts = newOptions(path, t.TempDir())
	assert.Error(t, run(t, opts))
}

func TestDownsampler(t *testing.T) {
	t.Parallel()
	input := writeScene(t, t.TempDir(), "scene.pcd")
	output := t.TempDir()
	opts := newOptions(input, output)
	opts.Command = segmenter.Downsample
	opts.DataKind = pcd.Binary

	require.NoError(t, run(t, opts))

	h, points, err := pcd.ReadFile(filepath.Join(output, "scene_downsampled.pcd"))
	require.NoError(t, err)
	assert.Equal(t, pcd.Binary, h.Data)
	assert.Len(t, points, 110)
	assert.NoFileExists(t, filepath.Join(output, "scene_plane.pcd"))
}
