// Package export turns a trained gaussian splatting model into deliverables:
// a standalone PLY, rendered evaluation videos along a camera path, and an
// evaluation metrics report.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/splatkit/splatkit/camerapath"
	"github.com/splatkit/splatkit/train"
)

// VideoQuality selects an encoder CRF preset.
type VideoQuality string

// Supported encode qualities.
const (
	QualityLow      VideoQuality = "low"
	QualityMedium   VideoQuality = "medium"
	QualityHigh     VideoQuality = "high"
	QualityLossless VideoQuality = "lossless"
)

var qualityCRF = map[VideoQuality]int{
	QualityLow:      28,
	QualityMedium:   23,
	QualityHigh:     18,
	QualityLossless: 0,
}

// Exporter exports artifacts for one trained model at one iteration.
type Exporter struct {
	modelPath string
	iteration int
	outputDir string
	gpu       int
	logger    golog.Logger
}

// NewExporter creates the output directory and returns an exporter.
func NewExporter(modelPath string, iteration int, outputDir string, gpu int, logger golog.Logger) (*Exporter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	return &Exporter{
		modelPath: modelPath,
		iteration: iteration,
		outputDir: outputDir,
		gpu:       gpu,
		logger:    logger,
	}, nil
}

// PLYPath is the trained model's point cloud for this exporter's iteration.
func (e *Exporter) PLYPath() string {
	return train.ModelPLYPath(e.modelPath, e.iteration)
}

// ExportPLY copies the iteration's point cloud into the export directory and
// returns the destination path.
func (e *Exporter) ExportPLY() (string, error) {
	src := e.PLYPath()
	dst := filepath.Join(e.outputDir, fmt.Sprintf("model_iter_%d.ply", e.iteration))

	if err := copyFile(src, dst); err != nil {
		return "", errors.Wrapf(err, "PLY not found at iteration %d", e.iteration)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return "", err
	}
	e.logger.Infof("PLY exported: %s (%.2f MB)", dst, float64(info.Size())/(1024*1024))
	return dst, nil
}

func copyFile(src, dst string) (err error) {
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

// RenderOptions control video rendering and encoding.
type RenderOptions struct {
	FPS     int
	Width   int
	Height  int
	Quality VideoQuality
	Format  string
}

// RenderVideo renders the camera path with the external toolkit and encodes
// the frames into a video; returns the output video path.
func (e *Exporter) RenderVideo(ctx context.Context, path camerapath.Path, opts RenderOptions) (string, error) {
	crf, ok := qualityCRF[opts.Quality]
	if !ok {
		return "", errors.Errorf("unknown video quality %q", opts.Quality)
	}

	gsPath, err := train.ToolkitPath()
	if err != nil {
		return "", err
	}

	cameraFile := filepath.Join(e.outputDir, "camera_path.json")
	if err := path.WriteFile(cameraFile); err != nil {
		return "", err
	}

	e.logger.Info("rendering frames...")
	var stderr bytes.Buffer
	//nolint:gosec
	cmd := exec.CommandContext(ctx, "python",
		filepath.Join(gsPath, "render.py"),
		"-m", e.modelPath,
		"--iteration", strconv.Itoa(e.iteration),
		"--skip_train", "--skip_test",
	)
	cmd.Dir = gsPath
	cmd.Env = append(os.Environ(), fmt.Sprintf("CUDA_VISIBLE_DEVICES=%d", e.gpu))
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errors.Wrapf(err, "rendering failed: %s", stderr.String())
	}

	renderDir := filepath.Join(e.modelPath, "test", fmt.Sprintf("ours_%d", e.iteration), "renders")
	if _, err := os.Stat(renderDir); err != nil {
		return "", errors.Wrapf(err, "render directory not found: %s", renderDir)
	}

	e.logger.Info("converting to video...")
	outputVideo := filepath.Join(e.outputDir, fmt.Sprintf("render_iter_%d.%s", e.iteration, opts.Format))

	var ffmpegOut bytes.Buffer
	stream := ffmpeg.Input(filepath.Join(renderDir, "*.png"), ffmpeg.KwArgs{
		"pattern_type": "glob",
		"framerate":    opts.FPS,
	}).Output(outputVideo, ffmpeg.KwArgs{
		"c:v":     "libx264",
		"crf":     crf,
		"pix_fmt": "yuv420p",
		"s":       fmt.Sprintf("%dx%d", opts.Width, opts.Height),
	}).OverWriteOutput().WithErrorOutput(&ffmpegOut)
	stream.Context = ctx
	if err := stream.Run(); err != nil {
		return "", errors.Wrapf(err, "video encoding failed: %s", ffmpegOut.String())
	}

	return outputVideo, nil
}
