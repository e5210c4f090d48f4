package tools

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/ecopia-map/planeseg/internal/segmenter"
)

type FileFinder interface {
	GetPcdFilesToProcess(opts *segmenter.Options) ([]string, error)
}

type StandardFileFinder struct{}

func NewStandardFileFinder() FileFinder {
	return &StandardFileFinder{}
}

func (f *StandardFileFinder) GetPcdFilesToProcess(opts *segmenter.Options) ([]string, error) {
	// If folder processing is not enabled then pcd file is given by -input flag, otherwise look for pcd in -input folder
	// eventually excluding nested folders if Recursive flag is disabled
	if !opts.FolderProcessing {
		return []string{opts.Input}, nil
	}

	return f.getPcdFilesFromInputFolder(opts)
}

func (f *StandardFileFinder) getPcdFilesFromInputFolder(opts *segmenter.Options) ([]string, error) {
	var pcdFiles = make([]string, 0)

	baseInfo, err := os.Stat(opts.Input)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot access input folder %s", opts.Input)
	}
	err = filepath.Walk(
		opts.Input,
		func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if !opts.Recursive && !os.SameFile(info, baseInfo) {
					return filepath.SkipDir
				}
			} else if strings.ToLower(filepath.Ext(info.Name())) == ".pcd" {
				pcdFiles = append(pcdFiles, path)
			}
			return nil
		},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list pcd files of %s", opts.Input)
	}

	return pcdFiles, nil
}
