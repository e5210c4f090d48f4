package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/ecopia-map/planeseg/internal/pcd"
	"github.com/ecopia-map/planeseg/internal/segmenter"
	"github.com/ecopia-map/planeseg/pkg"
	"github.com/ecopia-map/planeseg/pkg/algorithm_manager/std_algorithm_manager"
	"github.com/ecopia-map/planeseg/tools"
)

const VERSION = "0.3.0"

const logo = `
       _
 _ __ | | __ _ _ __   ___  ___  ___  __ _
| '_ \| |/ _' | '_ \ / _ \/ __|/ _ \/ _' |
| |_) | | (_| | | | |  __/\__ \  __/ (_| |
| .__/|_|\__,_|_| |_|\___||___/\___|\__, |
|_|  Dominant plane extraction      |___/
     Copyright YYYY - Ecopia Map
`

func main() {
	// glog logs to files unless told otherwise
	_ = flag.Set("logtostderr", "true")
	defer glog.Flush()

	flagsGlobal := tools.ParseFlagsGlobal()
	if *flagsGlobal.Help {
		showHelp(flag.CommandLine)
		return
	}
	if *flagsGlobal.Version {
		printVersion()
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		glog.Exit("Please specify a subcommand [segment|downsample].")
	}
	cmd, args := args[0], args[1:]

	switch segmenter.ParseCommand(cmd) {
	case segmenter.Segment:
		mainCommandSegment(args)
	case segmenter.Downsample:
		mainCommandDownsample(args)
	default:
		glog.Exitf("Unrecognized command [%q]. Command must be one of [segment|downsample]", cmd)
	}
}

func mainCommandSegment(args []string) {
	// Retrieve command line args
	flags := tools.ParseFlagsForCommandSegment(args)
	if !setupCommand(&flags.SegmenterFlags) {
		return
	}
	tools.LogOutput("flags", tools.FmtJSONString(flags))

	// Put args inside an Options struct
	opts := newOptions(&flags.SegmenterFlags, segmenter.Segment)
	opts.Threshold = *flags.Threshold
	opts.Iterations = *flags.Iterations
	opts.Confidence = *flags.Confidence
	opts.InlierRatio = *flags.InlierRatio
	opts.Refine = *flags.Refine
	opts.WriteDownsampled = *flags.WriteDownsampled
	if *flags.Seed >= 0 {
		seed := *flags.Seed
		opts.Seed = &seed
	}

	// Validate Options
	if msg, res := validateOptionsForCommandSegment(opts); !res {
		glog.Exit("Error parsing input parameters: " + msg)
	}

	defer timeTrack(time.Now(), "segmentation")
	err := pkg.NewSegmenter(tools.NewStandardFileFinder(), std_algorithm_manager.NewAlgorithmManager(opts)).Run(opts)

	if err != nil {
		glog.Exit("Error while segmenting: ", err)
	} else {
		tools.LogOutput("Segmentation Completed")
	}
}

func mainCommandDownsample(args []string) {
	flags := tools.ParseFlagsForCommandDownsample(args)
	if !setupCommand(&flags.SegmenterFlags) {
		return
	}
	tools.LogOutput("flags", tools.FmtJSONString(flags))

	opts := newOptions(&flags.SegmenterFlags, segmenter.Downsample)

	if msg, res := validateOptions(opts); !res {
		glog.Exit("Error parsing input parameters: " + msg)
	}

	defer timeTrack(time.Now(), "downsampling")
	err := pkg.NewDownsampler(tools.NewStandardFileFinder(), std_algorithm_manager.NewAlgorithmManager(opts)).Run(opts)

	if err != nil {
		glog.Exit("Error while downsampling: ", err)
	} else {
		tools.LogOutput("Downsampling Completed")
	}
}

// Handles help, version and logging flags. Returns false when the command has nothing left to do.
func setupCommand(flags *tools.SegmenterFlags) bool {
	// Prints the command line flag description
	if *flags.Help {
		showHelp(flags.FlagSet)
		return false
	}

	if *flags.Version {
		printVersion()
		return false
	}

	// set logging and timestamp logging
	if *flags.Silent {
		tools.DisableLogger()
	} else {
		printLogo()
	}
	if !*flags.LogTimestamp {
		tools.DisableLoggerTimestamp()
	}
	return true
}

func newOptions(flags *tools.SegmenterFlags, command segmenter.Command) *segmenter.Options {
	dataKind := pcd.Ascii
	if *flags.Binary {
		dataKind = pcd.Binary
	}

	return &segmenter.Options{
		Input:            *flags.Input,
		Output:           *flags.Output,
		FolderProcessing: *flags.FolderProcessing,
		Recursive:        *flags.RecursiveFolderProcessing,
		VoxelSize:        *flags.VoxelSize,
		Workers:          *flags.Workers,
		DataKind:         dataKind,
		Command:          command,
	}
}

// Validates the input options provided to the command line tool checking
// that input exists and that the numeric parameters are in range
func validateOptions(opts *segmenter.Options) (string, bool) {
	if _, err := os.Stat(opts.Input); os.IsNotExist(err) {
		return "Input file/folder not found", false
	}
	if opts.Output == "" {
		return "Output folder not specified", false
	}
	if !(opts.VoxelSize > 0) {
		return "voxel-size must be greater than zero", false
	}

	return "", true
}

func validateOptionsForCommandSegment(opts *segmenter.Options) (string, bool) {
	if msg, res := validateOptions(opts); !res {
		return msg, res
	}
	if !(opts.Threshold > 0) {
		return "threshold must be greater than zero", false
	}
	if opts.Iterations < 1 {
		return "iterations must be at least 1", false
	}
	if (opts.Confidence != 0) != (opts.InlierRatio != 0) {
		return "confidence and inlier-ratio must be set together", false
	}
	if opts.Confidence != 0 && !(opts.Confidence > 0 && opts.Confidence < 1) {
		return "confidence must be between 0 and 1", false
	}
	if opts.InlierRatio != 0 && !(opts.InlierRatio > 0 && opts.InlierRatio <= 1) {
		return "inlier-ratio must be between 0 and 1", false
	}

	return "", true
}

func timeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	tools.LogOutput(fmt.Sprintf("%s took %s", name, elapsed))
}

func printLogo() {
	fmt.Println(strings.ReplaceAll(logo, "YYYY", strconv.Itoa(time.Now().Year())))
}

func showHelp(flagSet *flag.FlagSet) {
	printLogo()
	fmt.Println("***")
	fmt.Println("planeseg downsamples PCD point clouds on a voxel grid and extracts their dominant plane with RANSAC")
	fmt.Println("Usage: planeseg [segment|downsample] [flags]")
	printVersion()
	fmt.Println("***")
	fmt.Println("")
	fmt.Println("Command line flags: ")
	flagSet.SetOutput(os.Stdout)
	flagSet.PrintDefaults()
}

func printVersion() {
	fmt.Println("v." + VERSION)
}
