package segmenter

import (
	"strings"

	"github.com/ecopia-map/planeseg/internal/pcd"
)

type Command string

const (
	// Downsamples the cloud and extracts the dominant plane
	Segment Command = "segment"

	// Only downsamples the cloud
	Downsample Command = "downsample"
)

func (c Command) String() string {
	return string(c)
}

func ParseCommand(value string) Command {
	normalizedValue := strings.Trim(strings.ToLower(value), " ")
	if normalizedValue == "segment" {
		return Segment
	} else if normalizedValue == "downsample" {
		return Downsample
	}
	return ""
}

// Contains the options needed for the segmentation pipeline
type Options struct {
	Input            string       // Input PCD file/folder
	Output           string       // Output folder
	FolderProcessing bool         // Enables the processing of all PCD files in folder
	Recursive        bool         // Recursive lookup of PCD files in subfolders
	VoxelSize        float64      // Edge length of the downsampling voxels
	Threshold        float64      // Max point to plane distance of an inlier
	Iterations       int          // RANSAC iterations, computed from Confidence and InlierRatio when both are set
	Confidence       float64      // Probability of drawing at least one all-inlier sample
	InlierRatio      float64      // Expected fraction of points lying on the plane
	Seed             *int64       // Seed of the RANSAC sampler, nil to seed from system entropy
	Workers          int          // Number of goroutines used by downsampling and RANSAC
	Refine           bool         // Refit the plane to its inliers with least squares
	WriteDownsampled bool         // Also export the downsampled cloud when segmenting
	DataKind         pcd.DataKind // Encoding of the exported PCD files

	Command Command
}

func (opt *Options) Copy() *Options {
	newOpt := *opt
	if opt.Seed != nil {
		seed := *opt.Seed
		newOpt.Seed = &seed
	}
	return &newOpt
}
