// Package train wraps the separately installed gaussian-splatting toolkit's
// training script. Training itself is an opaque external process; this
// package only locates the toolkit, builds the invocation, and reports
// pass/fail.
package train

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// ToolkitEnvVar overrides where the gaussian-splatting toolkit is installed.
const ToolkitEnvVar = "SPLATKIT_GS_PATH"

const installHint = "install: git clone https://github.com/graphdeco-inria/gaussian-splatting --recursive ~/gaussian-splatting, " +
	"then: pip install submodules/diff-gaussian-rasterization submodules/simple-knn"

// ToolkitPath returns the gaussian-splatting checkout, honoring ToolkitEnvVar
// and defaulting to ~/gaussian-splatting.
func ToolkitPath() (string, error) {
	dir := os.Getenv(ToolkitEnvVar)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "gaussian-splatting")
	}
	if _, err := os.Stat(dir); err != nil {
		return "", errors.Wrapf(err, "gaussian-splatting toolkit not found at %s; %s", dir, installHint)
	}
	return dir, nil
}

// LearningRates are the optimizer rates forwarded to train.py.
type LearningRates struct {
	PositionInit  float64
	PositionFinal float64
	Feature       float64
	Opacity       float64
	Scaling       float64
	Rotation      float64
}

// DefaultLearningRates mirrors the upstream training defaults.
func DefaultLearningRates() LearningRates {
	return LearningRates{
		PositionInit:  0.00016,
		PositionFinal: 0.0000016,
		Feature:       0.0025,
		Opacity:       0.05,
		Scaling:       0.005,
		Rotation:      0.001,
	}
}

// Trainer configures one training run.
type Trainer struct {
	SourcePath string
	ModelPath  string
	Iterations int
	// Lightweight loosens densification so small GPUs finish in reasonable
	// time.
	Lightweight bool
	Rates       LearningRates
	GPU         int
	Quiet       bool

	logger golog.Logger
}

// NewTrainer returns a trainer with the default iteration count and rates.
func NewTrainer(sourcePath, modelPath string, logger golog.Logger) *Trainer {
	return &Trainer{
		SourcePath: sourcePath,
		ModelPath:  modelPath,
		Iterations: 30000,
		Rates:      DefaultLearningRates(),
		logger:     logger,
	}
}

// Options are per-run knobs for a training invocation.
type Options struct {
	TestIterations       []int
	CheckpointIterations []int
	ResumeCheckpoint     string
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (t *Trainer) commandArgs(opts Options) []string {
	args := []string{
		"train.py",
		"-s", t.SourcePath,
		"-m", t.ModelPath,
		"--iterations", strconv.Itoa(t.Iterations),
		"--position_lr_init", formatRate(t.Rates.PositionInit),
		"--position_lr_final", formatRate(t.Rates.PositionFinal),
		"--feature_lr", formatRate(t.Rates.Feature),
		"--opacity_lr", formatRate(t.Rates.Opacity),
		"--scaling_lr", formatRate(t.Rates.Scaling),
		"--rotation_lr", formatRate(t.Rates.Rotation),
	}
	if len(opts.TestIterations) > 0 {
		args = append(args, "--test_iterations")
		for _, i := range opts.TestIterations {
			args = append(args, strconv.Itoa(i))
		}
	}
	if len(opts.CheckpointIterations) > 0 {
		args = append(args, "--checkpoint_iterations")
		for _, i := range opts.CheckpointIterations {
			args = append(args, strconv.Itoa(i))
		}
	}
	if opts.ResumeCheckpoint != "" {
		args = append(args, "--start_checkpoint", opts.ResumeCheckpoint)
	}
	if t.Lightweight {
		args = append(args,
			"--densify_grad_threshold", "0.0003",
			"--densification_interval", "150",
			"--opacity_reset_interval", "4000",
		)
	}
	return args
}

// Train runs train.py to completion, streaming its output unless Quiet.
func (t *Trainer) Train(ctx context.Context, opts Options) error {
	gsPath, err := ToolkitPath()
	if err != nil {
		return err
	}

	args := t.commandArgs(opts)
	if t.Lightweight {
		t.logger.Info("lightweight mode enabled")
	}
	t.logger.Infof("starting training with %d iterations...", t.Iterations)

	//nolint:gosec
	cmd := exec.CommandContext(ctx, "python", args...)
	cmd.Dir = gsPath
	cmd.Env = append(os.Environ(), fmt.Sprintf("CUDA_VISIBLE_DEVICES=%d", t.GPU))
	if t.Quiet {
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		return errors.Wrap(err, "training failed")
	}
	return nil
}

// FinalPLYPath is where train.py leaves the model for a given iteration.
func (t *Trainer) FinalPLYPath() string {
	return ModelPLYPath(t.ModelPath, t.Iterations)
}

// ModelPLYPath returns <model>/point_cloud/iteration_<n>/point_cloud.ply.
func ModelPLYPath(modelPath string, iteration int) string {
	return filepath.Join(modelPath, "point_cloud", fmt.Sprintf("iteration_%d", iteration), "point_cloud.ply")
}
