package pkg

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ecopia-map/planeseg/internal/cloud"
	"github.com/ecopia-map/planeseg/internal/pcd"
	"github.com/ecopia-map/planeseg/internal/ransac"
	"github.com/ecopia-map/planeseg/internal/segmenter"
	"github.com/ecopia-map/planeseg/internal/voxel_grid"
	"github.com/ecopia-map/planeseg/pkg/algorithm_manager"
	"github.com/ecopia-map/planeseg/tools"
)

const (
	planeSuffix       = "_plane.pcd"
	downsampledSuffix = "_downsampled.pcd"
)

type IRunner interface {
	Run(opts *segmenter.Options) error
}

// Project is a point cloud loaded from a file, named after the file
type Project struct {
	Name  string
	Cloud *cloud.PointCloud
}

type Segmenter struct {
	fileFinder       tools.FileFinder
	algorithmManager algorithm_manager.AlgorithmManager
}

func NewSegmenter(fileFinder tools.FileFinder, algorithmManager algorithm_manager.AlgorithmManager) IRunner {
	return &Segmenter{
		fileFinder:       fileFinder,
		algorithmManager: algorithmManager,
	}
}

// Extracts the dominant plane of every input file
func (s *Segmenter) Run(opts *segmenter.Options) error {
	iterations, err := resolveIterations(opts)
	if err != nil {
		return err
	}
	tools.LogOutput("Running", iterations, "RANSAC iterations per file")

	return forEachProject(s.fileFinder, opts, func(project *Project) error {
		downsampled, err := downsampleProject(project, opts, s.algorithmManager)
		if err != nil {
			return err
		}
		if opts.WriteDownsampled {
			if err := exportPoints(downsampled, opts, project.Name+downsampledSuffix); err != nil {
				return err
			}
		}

		tools.LogOutput("> fitting plane...")
		result, err := ransac.FitPlane(downsampled.Cloud, ransac.Options{
			Threshold:  opts.Threshold,
			Iterations: iterations,
			Sampler:    s.algorithmManager.GetSampler(),
			Workers:    s.algorithmManager.GetWorkers(),
			Progress:   s.algorithmManager.GetProgressReporter("ransac"),
		})
		if err != nil {
			return errors.Wrapf(err, "cannot fit plane to %s", project.Name)
		}
		tools.LogOutput(fmt.Sprintf("> plane %s found at iteration %d with %d inliers (%d valid samples)",
			formatPlane(result), result.Iteration+1, len(result.Inliers), result.ValidIterations))

		if opts.Refine {
			refinePlane(downsampled, result, opts.Threshold)
		}

		return exportInliers(project, result, opts)
	})
}

// Replaces the plane of the result with the least squares fit of its inliers and selects the inliers again.
// The result is left untouched when the inliers do not span a plane.
func refinePlane(project *Project, result *ransac.Result, threshold float64) {
	refined, err := ransac.Refine(result.Inliers)
	if err != nil {
		tools.LogOutput("> refinement skipped:", err)
		return
	}
	tilt := refined.AngleTo(result.Plane)

	result.Plane = refined
	result.Inliers, result.InlierIndices = ransac.Inliers(project.Cloud, refined, threshold)
	tools.LogOutput(fmt.Sprintf("> refined plane %s tilted by %.6f rad, %d inliers", formatPlane(result), tilt, len(result.Inliers)))
}

type Downsampler struct {
	fileFinder       tools.FileFinder
	algorithmManager algorithm_manager.AlgorithmManager
}

func NewDownsampler(fileFinder tools.FileFinder, algorithmManager algorithm_manager.AlgorithmManager) IRunner {
	return &Downsampler{
		fileFinder:       fileFinder,
		algorithmManager: algorithmManager,
	}
}

// Downsamples every input file
func (d *Downsampler) Run(opts *segmenter.Options) error {
	return forEachProject(d.fileFinder, opts, func(project *Project) error {
		downsampled, err := downsampleProject(project, opts, d.algorithmManager)
		if err != nil {
			return err
		}
		return exportPoints(downsampled, opts, project.Name+downsampledSuffix)
	})
}

func forEachProject(fileFinder tools.FileFinder, opts *segmenter.Options, process func(*Project) error) error {
	tools.LogOutput("Preparing list of files to process...")

	// Prepare list of files to process
	pcdFiles, err := fileFinder.GetPcdFilesToProcess(opts)
	if err != nil {
		return err
	}
	if len(pcdFiles) == 0 {
		return errors.Errorf("no pcd files found in %s", opts.Input)
	}
	if err := tools.CreateDirectoryIfDoesNotExist(opts.Output); err != nil {
		return err
	}

	for i, filePath := range pcdFiles {
		tools.LogOutput("Processing file " + strconv.Itoa(i+1) + "/" + strconv.Itoa(len(pcdFiles)))
		project, err := loadProject(filePath)
		if err != nil {
			return err
		}
		if err := process(project); err != nil {
			return errors.Wrapf(err, "cannot process %s", filePath)
		}
		tools.LogOutput("> done processing", filepath.Base(filePath))
	}

	return nil
}

// Reads the given pcd file into a project named after the file
func loadProject(filePath string) (*Project, error) {
	tools.LogOutput("> reading data from pcd file...", filepath.Base(filePath))
	_, points, err := pcd.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	pc, err := cloud.New(points)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot build point cloud of %s", filePath)
	}
	tools.LogOutput("> loaded", pc.Size(), "points")

	return &Project{
		Name:  tools.GetFilenameWithoutExtension(filePath),
		Cloud: pc,
	}, nil
}

func downsampleProject(project *Project, opts *segmenter.Options, algorithmManager algorithm_manager.AlgorithmManager) (*Project, error) {
	nx, ny, nz, err := voxel_grid.GridSize(project.Cloud.BoundingBox(), opts.VoxelSize)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot lay voxel grid over %s", project.Name)
	}
	tools.LogOutput(fmt.Sprintf("> downsampling on a %dx%dx%d voxel grid...", nx, ny, nz))

	downsampled, err := voxel_grid.Downsample(
		project.Cloud,
		opts.VoxelSize,
		voxel_grid.WithWorkers(algorithmManager.GetWorkers()),
		voxel_grid.WithProgress(algorithmManager.GetProgressReporter("downsampling")),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot downsample %s", project.Name)
	}
	tools.LogOutput("> downsampled", project.Cloud.Size(), "points to", downsampled.Size())

	return &Project{
		Name:  project.Name,
		Cloud: downsampled,
	}, nil
}

func exportPoints(project *Project, opts *segmenter.Options, fileName string) error {
	outputPath := path.Join(opts.Output, fileName)
	tools.LogOutput("> exporting", project.Cloud.Size(), "points to", outputPath)
	return pcd.WriteFile(outputPath, project.Cloud.Points(), opts.DataKind)
}

func exportInliers(project *Project, result *ransac.Result, opts *segmenter.Options) error {
	outputPath := path.Join(opts.Output, project.Name+planeSuffix)
	tools.LogOutput("> exporting", len(result.Inliers), "inliers to", outputPath)
	return pcd.WriteFile(outputPath, result.Inliers, opts.DataKind)
}

// Returns the configured iteration count, or the count estimated from confidence and inlier ratio when both are set
func resolveIterations(opts *segmenter.Options) (int, error) {
	if opts.Confidence > 0 && opts.InlierRatio > 0 {
		iterations, err := ransac.IterationsFor(opts.Confidence, opts.InlierRatio)
		if err != nil {
			return 0, errors.Wrap(err, "cannot estimate the iteration count")
		}
		return iterations, nil
	}
	return opts.Iterations, nil
}

func formatPlane(result *ransac.Result) string {
	p := result.Plane
	return fmt.Sprintf("%.6fx %+.6fy %+.6fz %+.6f = 0", p.A, p.B, p.C, p.D)
}
