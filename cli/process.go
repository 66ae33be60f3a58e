package cli

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/splatkit/splatkit/colmap"
	"github.com/splatkit/splatkit/config"
	"github.com/splatkit/splatkit/video"
)

// ProcessAction turns a raw capture (video or image folder) into a dataset
// ready for training: extracted frames, a sparse COLMAP model, and a
// config.json descriptor.
func ProcessAction(c *cli.Context) error {
	logger := loggerFrom(c)

	inputType := c.Args().First()
	if inputType != "video" && inputType != "images" {
		return errors.Errorf("input type must be video or images, got %q", inputType)
	}

	dataPath := c.Path(processFlagData)
	outputPath := c.Path(processFlagOut)
	lightweight := c.Bool(processFlagLightweight)
	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		return err
	}

	logger.Infof("processing %s: %s -> %s", inputType, dataPath, outputPath)

	imagesDir := filepath.Join(outputPath, "images")
	var numFrames int
	if inputType == "video" {
		width, height, err := resolutionArgs(c, processFlagResolution)
		if err != nil {
			return err
		}
		processor, err := video.NewProcessor(dataPath, imagesDir, lightweight, logger)
		if err != nil {
			return err
		}
		set, err := processor.ExtractFrames(c.Context, video.ExtractOptions{
			FPS:         c.Float64(processFlagFPS),
			MaxFrames:   c.Int(processFlagMaxFrames),
			Width:       width,
			Height:      height,
			JPEGQuality: c.Int(processFlagQuality),
		})
		if err != nil {
			return err
		}
		numFrames = set.NumFrames
	} else {
		var err error
		numFrames, err = copyImages(dataPath, imagesDir)
		if err != nil {
			return err
		}
		logger.Infof("copied %d images", numFrames)
	}

	report, err := video.ValidateImages(imagesDir)
	if err != nil {
		return err
	}
	for _, issue := range report.Issues {
		logger.Warn(issue)
	}

	if !c.Bool(processFlagSkipColmap) {
		processor, err := colmap.NewProcessor(
			imagesDir, outputPath, colmap.Quality(c.String(processFlagColmapQuality)), logger)
		if err != nil {
			return err
		}
		processor.Lightweight = lightweight
		if err := processor.Process(c.Context); err != nil {
			return err
		}
	}

	cfg := &config.Processed{
		SourcePath:  outputPath,
		Images:      "images",
		SparseModel: "sparse/0",
		NumImages:   numFrames,
		Lightweight: lightweight,
	}
	if err := cfg.Write(filepath.Join(outputPath, config.ProcessedFileName)); err != nil {
		return err
	}

	logger.Infof("processing complete; ready for: splatkit train %s", outputPath)
	return nil
}

// copyImages mirrors the jpg/png files of src into dst and returns how many
// were copied.
func copyImages(src, dst string) (int, error) {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return 0, err
	}
	var files []string
	for _, pattern := range []string{"*.jpg", "*.png"} {
		matches, err := filepath.Glob(filepath.Join(src, pattern))
		if err != nil {
			return 0, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	if len(files) == 0 {
		return 0, errors.Errorf("no jpg or png images found in %s", src)
	}
	for _, fn := range files {
		if err := copyImageFile(fn, filepath.Join(dst, filepath.Base(fn))); err != nil {
			return 0, err
		}
	}
	return len(files), nil
}

func copyImageFile(src, dst string) (err error) {
	//nolint:gosec
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(in.Close)

	//nolint:gosec
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, out.Close())
	}()

	_, err = io.Copy(out, in)
	return err
}
