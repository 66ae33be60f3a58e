// Package colmap drives the COLMAP structure-from-motion binary to turn an
// image set into a sparse reconstruction.
package colmap

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// Quality selects a feature extraction preset.
type Quality string

// Supported quality presets.
const (
	QualityLow     Quality = "low"
	QualityMedium  Quality = "medium"
	QualityHigh    Quality = "high"
	QualityExtreme Quality = "extreme"
)

type qualityPreset struct {
	maxImageSize   int
	maxNumFeatures int
}

var qualityPresets = map[Quality]qualityPreset{
	QualityLow:     {maxImageSize: 1600, maxNumFeatures: 4096},
	QualityMedium:  {maxImageSize: 2400, maxNumFeatures: 8192},
	QualityHigh:    {maxImageSize: 3200, maxNumFeatures: 16384},
	QualityExtreme: {maxImageSize: 4800, maxNumFeatures: 32768},
}

// Processor runs the COLMAP pipeline (feature extraction, matching, mapping)
// over one image directory.
type Processor struct {
	ImagesDir    string
	OutputDir    string
	Quality      Quality
	UseGPU       bool
	SingleCamera bool
	// Lightweight trades accuracy for speed: sequential matching instead of
	// exhaustive, fewer bundle adjustment iterations, and at most medium
	// feature quality.
	Lightweight bool

	logger golog.Logger
}

// NewProcessor returns a Processor with GPU and single-camera enabled, the
// defaults for handheld video capture.
func NewProcessor(imagesDir, outputDir string, quality Quality, logger golog.Logger) (*Processor, error) {
	if _, err := exec.LookPath("colmap"); err != nil {
		return nil, errors.Wrap(err, "COLMAP not found; install with: sudo apt-get install colmap")
	}
	if _, ok := qualityPresets[quality]; !ok {
		return nil, errors.Errorf("unknown colmap quality %q", quality)
	}
	if err := os.MkdirAll(filepath.Join(outputDir, "sparse"), 0o755); err != nil {
		return nil, err
	}
	return &Processor{
		ImagesDir:    imagesDir,
		OutputDir:    outputDir,
		Quality:      quality,
		UseGPU:       true,
		SingleCamera: true,
		logger:       logger,
	}, nil
}

func (p *Processor) databasePath() string {
	return filepath.Join(p.OutputDir, "database.db")
}

func (p *Processor) sparseDir() string {
	return filepath.Join(p.OutputDir, "sparse")
}

// Process runs the full pipeline. The sparse model lands in
// <OutputDir>/sparse/0.
func (p *Processor) Process(ctx context.Context) error {
	p.logger.Info("running COLMAP feature extraction...")
	if err := p.run(ctx, p.featureExtractionArgs()...); err != nil {
		return err
	}
	p.logger.Info("running COLMAP feature matching...")
	if err := p.run(ctx, p.featureMatchingArgs()...); err != nil {
		return err
	}
	p.logger.Info("running COLMAP mapper...")
	if err := p.run(ctx, p.mapperArgs()...); err != nil {
		return err
	}
	p.logger.Info("COLMAP processing complete")
	return nil
}

func boolArg(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (p *Processor) featureExtractionArgs() []string {
	quality := p.Quality
	if p.Lightweight && (quality == QualityHigh || quality == QualityExtreme) {
		quality = QualityMedium
		p.logger.Info("lightweight mode: using medium quality")
	}
	preset := qualityPresets[quality]

	return []string{
		"feature_extractor",
		"--database_path", p.databasePath(),
		"--image_path", p.ImagesDir,
		"--ImageReader.single_camera", boolArg(p.SingleCamera),
		"--ImageReader.camera_model", "OPENCV",
		"--SiftExtraction.use_gpu", boolArg(p.UseGPU),
		"--SiftExtraction.max_image_size", strconv.Itoa(preset.maxImageSize),
		"--SiftExtraction.max_num_features", strconv.Itoa(preset.maxNumFeatures),
	}
}

func (p *Processor) featureMatchingArgs() []string {
	if p.Lightweight {
		return []string{
			"sequential_matcher",
			"--database_path", p.databasePath(),
			"--SiftMatching.use_gpu", boolArg(p.UseGPU),
			"--SequentialMatching.overlap", "10",
		}
	}
	return []string{
		"exhaustive_matcher",
		"--database_path", p.databasePath(),
		"--SiftMatching.use_gpu", boolArg(p.UseGPU),
	}
}

func (p *Processor) mapperArgs() []string {
	args := []string{
		"mapper",
		"--database_path", p.databasePath(),
		"--image_path", p.ImagesDir,
		"--output_path", p.sparseDir(),
	}
	if p.Lightweight {
		args = append(args,
			"--Mapper.ba_global_max_num_iterations", "50",
			"--Mapper.ba_local_max_num_iterations", "25",
		)
	}
	return args
}

func (p *Processor) run(ctx context.Context, args ...string) error {
	var stderr bytes.Buffer
	//nolint:gosec
	cmd := exec.CommandContext(ctx, "colmap", args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "colmap %s failed: %s", args[0], stderr.String())
	}
	return nil
}
