package tools

import (
	"flag"
	"runtime"
)

const (
	CommandSegment    = "segment"
	CommandDownsample = "downsample"
)

// glog owns the -v flag of the global flag set, so the global version flag has no shorthand
type FlagsGlobal struct {
	Help    *bool `json:"help"`
	Version *bool `json:"version"`
}

type SegmenterFlags struct {
	Input                     *string  `json:"input"`
	Output                    *string  `json:"output"`
	FolderProcessing          *bool    `json:"folder"`
	RecursiveFolderProcessing *bool    `json:"recursive"`
	VoxelSize                 *float64 `json:"voxel_size"`
	Workers                   *int     `json:"workers"`
	Binary                    *bool    `json:"binary"`
	Silent                    *bool    `json:"silent"`
	LogTimestamp              *bool    `json:"timestamp"`
	Help                      *bool    `json:"help"`
	Version                   *bool    `json:"version"`

	FlagSet *flag.FlagSet `json:"-"`
}

type FlagsForCommandSegment struct {
	SegmenterFlags
	Threshold        *float64 `json:"threshold"`
	Iterations       *int     `json:"iterations"`
	Confidence       *float64 `json:"confidence"`
	InlierRatio      *float64 `json:"inlier_ratio"`
	Seed             *int64   `json:"seed"`
	Refine           *bool    `json:"refine"`
	WriteDownsampled *bool    `json:"write_downsampled"`
}

type FlagsForCommandDownsample struct {
	SegmenterFlags
}

func ParseFlagsGlobal() FlagsGlobal {
	help := defineBoolFlag("help", "h", false, "Displays this help.")
	version := defineBoolFlag("version", "", false, "Displays the version of planeseg.")

	flag.Parse()

	return FlagsGlobal{
		Help:    help,
		Version: version,
	}
}

func defineSegmenterFlags(flagCommand *flag.FlagSet) SegmenterFlags {
	return SegmenterFlags{
		Input:                     defineStringFlagCommand(flagCommand, "input", "i", "", "Specifies the input pcd file/folder."),
		Output:                    defineStringFlagCommand(flagCommand, "output", "o", "", "Specifies the output folder where to write the pcd files."),
		FolderProcessing:          defineBoolFlagCommand(flagCommand, "folder", "f", false, "Enables processing of all pcd files from input folder. Input must be a folder if specified"),
		RecursiveFolderProcessing: defineBoolFlagCommand(flagCommand, "recursive", "r", false, "Enables recursive lookup for all .pcd files inside the subfolders"),
		VoxelSize:                 defineFloat64FlagCommand(flagCommand, "voxel-size", "s", 0.1, "Edge length of the cubic voxels used to downsample the cloud."),
		Workers:                   defineIntFlagCommand(flagCommand, "workers", "j", runtime.NumCPU(), "Number of goroutines used to downsample and to score the RANSAC samples."),
		Binary:                    defineBoolFlagCommand(flagCommand, "binary", "b", false, "Writes the output pcd files with binary records instead of ascii."),
		Silent:                    defineBoolFlagCommand(flagCommand, "silent", "", false, "Use to suppress all the non-error messages."),
		LogTimestamp:              defineBoolFlagCommand(flagCommand, "timestamp", "", false, "Adds timestamp to log messages."),
		Help:                      defineBoolFlagCommand(flagCommand, "help", "h", false, "Displays this help."),
		Version:                   defineBoolFlagCommand(flagCommand, "version", "v", false, "Displays the version of planeseg."),
		FlagSet:                   flagCommand,
	}
}

func ParseFlagsForCommandSegment(args []string) FlagsForCommandSegment {
	flagCommand := flag.NewFlagSet("command-segment", flag.ExitOnError)

	segmenterFlags := defineSegmenterFlags(flagCommand)
	threshold := defineFloat64FlagCommand(flagCommand, "threshold", "t", 0.001, "Max distance from the plane of a point counted as inlier.")
	iterations := defineIntFlagCommand(flagCommand, "iterations", "k", 1000, "Number of RANSAC iterations.")
	confidence := defineFloat64FlagCommand(flagCommand, "confidence", "p", 0, "Probability of sampling at least one all-inlier triple. When set together with inlier-ratio it overrides iterations.")
	inlierRatio := defineFloat64FlagCommand(flagCommand, "inlier-ratio", "w", 0, "Expected fraction of points lying on the plane, used with confidence.")
	seed := defineInt64FlagCommand(flagCommand, "seed", "", -1, "Seed of the RANSAC sampler. Negative values seed from system entropy.")
	refine := defineBoolFlagCommand(flagCommand, "refine", "", false, "Refits the plane to its inliers with least squares.")
	writeDownsampled := defineBoolFlagCommand(flagCommand, "write-downsampled", "d", false, "Also writes the downsampled cloud.")

	_ = flagCommand.Parse(args)

	return FlagsForCommandSegment{
		SegmenterFlags:   segmenterFlags,
		Threshold:        threshold,
		Iterations:       iterations,
		Confidence:       confidence,
		InlierRatio:      inlierRatio,
		Seed:             seed,
		Refine:           refine,
		WriteDownsampled: writeDownsampled,
	}
}

func ParseFlagsForCommandDownsample(args []string) FlagsForCommandDownsample {
	flagCommand := flag.NewFlagSet("command-downsample", flag.ExitOnError)

	segmenterFlags := defineSegmenterFlags(flagCommand)

	_ = flagCommand.Parse(args)

	return FlagsForCommandDownsample{
		SegmenterFlags: segmenterFlags,
	}
}

func defineBoolFlag(name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flag.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flag.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineStringFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue string, usage string) *string {
	var output string
	flagCommand.StringVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.StringVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineIntFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue int, usage string) *int {
	var output int
	flagCommand.IntVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.IntVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineInt64FlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue int64, usage string) *int64 {
	var output int64
	flagCommand.Int64Var(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.Int64Var(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineFloat64FlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue float64, usage string) *float64 {
	var output float64
	flagCommand.Float64Var(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.Float64Var(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineBoolFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flagCommand.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}
