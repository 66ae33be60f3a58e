package cli

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/splatkit/splatkit/config"
	"github.com/splatkit/splatkit/train"
)

// TrainAction trains a gaussian splatting model on a processed dataset.
func TrainAction(c *cli.Context) error {
	logger := loggerFrom(c)

	dataPath := c.Args().First()
	if dataPath == "" {
		return errors.New("data path argument is required")
	}
	if _, err := os.Stat(dataPath); err != nil {
		return errors.Wrapf(err, "data path not found: %s", dataPath)
	}

	lightweight := c.Bool(trainFlagLightweight)
	if cfg, err := config.ReadProcessed(filepath.Join(dataPath, config.ProcessedFileName)); err == nil {
		if cfg.Lightweight && !lightweight {
			lightweight = true
			logger.Info("enabling lightweight mode from dataset config")
		}
	}

	modelPath := c.Path(trainFlagModelPath)
	if modelPath == "" {
		modelPath = filepath.Join(dataPath, "output")
	}
	if err := os.MkdirAll(modelPath, 0o755); err != nil {
		return err
	}

	trainer := train.NewTrainer(dataPath, modelPath, logger)
	trainer.Iterations = c.Int(trainFlagIterations)
	trainer.Lightweight = lightweight
	trainer.GPU = c.Int(trainFlagGPU)
	trainer.Quiet = c.Bool(trainFlagQuiet)
	trainer.Rates = train.LearningRates{
		PositionInit:  c.Float64(trainFlagPositionLRInit),
		PositionFinal: c.Float64(trainFlagPositionLRFinal),
		Feature:       c.Float64(trainFlagFeatureLR),
		Opacity:       c.Float64(trainFlagOpacityLR),
		Scaling:       c.Float64(trainFlagScalingLR),
		Rotation:      c.Float64(trainFlagRotationLR),
	}

	logger.Infof("training: %s -> %s", dataPath, modelPath)
	logger.Infof("iterations: %d, lightweight: %t", trainer.Iterations, lightweight)

	if err := trainer.Train(c.Context, train.Options{
		TestIterations:       c.IntSlice(trainFlagTestIterations),
		CheckpointIterations: c.IntSlice(trainFlagCheckpointIterations),
	}); err != nil {
		return err
	}

	finalPLY := trainer.FinalPLYPath()
	if info, err := os.Stat(finalPLY); err == nil {
		logger.Infof("training complete; model: %s (%.1f MB)", finalPLY, float64(info.Size())/(1024*1024))
		logger.Infof("next: splatkit export %s", modelPath)
	}
	return nil
}
