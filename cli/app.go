// Package cli contains all business logic needed by the splatkit command.
package cli

import (
	"github.com/edaniels/golog"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	// Flags.
	processFlagData          = "data"
	processFlagOut           = "out"
	processFlagFPS           = "fps"
	processFlagMaxFrames     = "max-frames"
	processFlagResolution    = "resolution"
	processFlagQuality       = "quality"
	processFlagSkipColmap    = "skip-colmap"
	processFlagColmapQuality = "colmap-quality"
	processFlagLightweight   = "lightweight"

	trainFlagModelPath            = "model-path"
	trainFlagIterations           = "iterations"
	trainFlagTestIterations       = "test-iterations"
	trainFlagCheckpointIterations = "checkpoint-iterations"
	trainFlagLightweight          = "lightweight"
	trainFlagPositionLRInit       = "position-lr-init"
	trainFlagPositionLRFinal      = "position-lr-final"
	trainFlagFeatureLR            = "feature-lr"
	trainFlagOpacityLR            = "opacity-lr"
	trainFlagScalingLR            = "scaling-lr"
	trainFlagRotationLR           = "rotation-lr"
	trainFlagGPU                  = "gpu"
	trainFlagQuiet                = "quiet"

	exportFlagOutputDir         = "output-dir"
	exportFlagIteration         = "iteration"
	exportFlagPLY               = "ply"
	exportFlagVideo             = "video"
	exportFlagCameraPath        = "camera-path"
	exportFlagCameraConfig      = "camera-config"
	exportFlagNumFrames         = "num-frames"
	exportFlagFPS               = "fps"
	exportFlagResolution        = "resolution"
	exportFlagOrbitRadius       = "orbit-radius"
	exportFlagOrbitHeight       = "orbit-height"
	exportFlagOrbitElevation    = "orbit-elevation"
	exportFlagSpiralLoops       = "spiral-loops"
	exportFlagSpiralHeightRange = "spiral-height-range"
	exportFlagLinearStart       = "linear-start"
	exportFlagLinearEnd         = "linear-end"
	exportFlagLookAt            = "look-at"
	exportFlagVideoQuality      = "video-quality"
	exportFlagVideoFormat       = "video-format"
	exportFlagGPU               = "gpu"
)

const loggerKey = "logger"

// NewApp returns the splatkit CLI application.
func NewApp() *cli.App {
	app := &cli.App{
		Name:            "splatkit",
		Usage:           "process, train, and export 3D gaussian splatting scenes",
		HideHelpCommand: true,
		Metadata:        map[string]interface{}{},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
	}
	app.Before = func(c *cli.Context) error {
		if c.Bool("debug") {
			app.Metadata[loggerKey] = golog.NewDebugLogger("splatkit")
		} else {
			app.Metadata[loggerKey] = golog.NewLogger("splatkit")
		}
		return nil
	}
	app.Commands = []*cli.Command{
		{
			Name:      "process",
			Usage:     "extract frames and run sparse reconstruction on a capture",
			UsageText: "splatkit process <video|images> --data <path> --out <dir> [other options]",
			ArgsUsage: "<video|images>",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     processFlagData,
					Required: true,
					Usage:    "input video file or image folder",
				},
				&cli.PathFlag{
					Name:     processFlagOut,
					Required: true,
					Usage:    "output directory for the processed dataset",
				},
				&cli.Float64Flag{
					Name:  processFlagFPS,
					Value: 2.0,
					Usage: "target frame extraction rate",
				},
				&cli.IntFlag{
					Name:  processFlagMaxFrames,
					Value: 300,
					Usage: "maximum number of frames to extract",
				},
				&cli.IntSliceFlag{
					Name:  processFlagResolution,
					Usage: "target resolution as W,H (default: source resolution)",
				},
				&cli.IntFlag{
					Name:  processFlagQuality,
					Value: 95,
					Usage: "JPEG quality of extracted frames (1-100)",
				},
				&cli.BoolFlag{
					Name:  processFlagSkipColmap,
					Usage: "skip sparse reconstruction",
				},
				&cli.StringFlag{
					Name:  processFlagColmapQuality,
					Value: "high",
					Usage: "COLMAP quality preset: low, medium, high, or extreme",
				},
				&cli.BoolFlag{
					Name:  processFlagLightweight,
					Usage: "trade quality for speed throughout the pipeline",
				},
			},
			Action: ProcessAction,
		},
		{
			Name:      "train",
			Usage:     "train a gaussian splatting model on a processed dataset",
			UsageText: "splatkit train <data path> [other options]",
			ArgsUsage: "<data path>",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:  trainFlagModelPath,
					Usage: "model output directory (default: <data path>/output)",
				},
				&cli.IntFlag{
					Name:  trainFlagIterations,
					Value: 30000,
					Usage: "number of training iterations",
				},
				&cli.IntSliceFlag{
					Name:  trainFlagTestIterations,
					Value: cli.NewIntSlice(7000, 15000, 30000),
					Usage: "iterations at which to evaluate on the test split",
				},
				&cli.IntSliceFlag{
					Name:  trainFlagCheckpointIterations,
					Value: cli.NewIntSlice(7000, 15000, 30000),
					Usage: "iterations at which to write checkpoints",
				},
				&cli.BoolFlag{
					Name:  trainFlagLightweight,
					Usage: "loosen densification for small GPUs",
				},
				&cli.Float64Flag{
					Name:  trainFlagPositionLRInit,
					Value: 0.00016,
					Usage: "initial position learning rate",
				},
				&cli.Float64Flag{
					Name:  trainFlagPositionLRFinal,
					Value: 0.0000016,
					Usage: "final position learning rate",
				},
				&cli.Float64Flag{
					Name:  trainFlagFeatureLR,
					Value: 0.0025,
					Usage: "feature learning rate",
				},
				&cli.Float64Flag{
					Name:  trainFlagOpacityLR,
					Value: 0.05,
					Usage: "opacity learning rate",
				},
				&cli.Float64Flag{
					Name:  trainFlagScalingLR,
					Value: 0.005,
					Usage: "scaling learning rate",
				},
				&cli.Float64Flag{
					Name:  trainFlagRotationLR,
					Value: 0.001,
					Usage: "rotation learning rate",
				},
				&cli.IntFlag{
					Name:  trainFlagGPU,
					Usage: "CUDA device index",
				},
				&cli.BoolFlag{
					Name:  trainFlagQuiet,
					Usage: "suppress trainer output",
				},
			},
			Action: TrainAction,
		},
		{
			Name:      "export",
			Usage:     "export a trained model as a PLY and rendered video",
			UsageText: "splatkit export <model path> [other options]",
			ArgsUsage: "<model path>",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:  exportFlagOutputDir,
					Usage: "export directory (default: <model path>/exports)",
				},
				&cli.IntFlag{
					Name:  exportFlagIteration,
					Value: 30000,
					Usage: "model iteration to export",
				},
				&cli.BoolFlag{
					Name:  exportFlagPLY,
					Usage: "export the point cloud (default: both ply and video)",
				},
				&cli.BoolFlag{
					Name:  exportFlagVideo,
					Usage: "render a video (default: both ply and video)",
				},
				&cli.StringFlag{
					Name:  exportFlagCameraPath,
					Value: "orbit",
					Usage: "camera path type: orbit, spiral, linear, or custom",
				},
				&cli.PathFlag{
					Name:  exportFlagCameraConfig,
					Usage: "custom camera path JSON (with --camera-path custom)",
				},
				&cli.IntFlag{
					Name:  exportFlagNumFrames,
					Value: 240,
					Usage: "number of camera poses to generate",
				},
				&cli.IntFlag{
					Name:  exportFlagFPS,
					Value: 30,
					Usage: "video frame rate",
				},
				&cli.IntSliceFlag{
					Name:  exportFlagResolution,
					Value: cli.NewIntSlice(1920, 1080),
					Usage: "video resolution as W,H",
				},
				&cli.Float64Flag{
					Name:  exportFlagOrbitRadius,
					Usage: "orbit radius (default: derived from the scene)",
				},
				&cli.Float64Flag{
					Name:  exportFlagOrbitHeight,
					Usage: "orbit height offset",
				},
				&cli.Float64Flag{
					Name:  exportFlagOrbitElevation,
					Value: 20.0,
					Usage: "orbit elevation angle in degrees",
				},
				&cli.Float64Flag{
					Name:  exportFlagSpiralLoops,
					Value: 1.5,
					Usage: "number of spiral revolutions",
				},
				&cli.Float64SliceFlag{
					Name:  exportFlagSpiralHeightRange,
					Value: cli.NewFloat64Slice(-0.5, 0.5),
					Usage: "spiral height range as MIN,MAX",
				},
				&cli.Float64SliceFlag{
					Name:  exportFlagLinearStart,
					Usage: "linear path start as X,Y,Z",
				},
				&cli.Float64SliceFlag{
					Name:  exportFlagLinearEnd,
					Usage: "linear path end as X,Y,Z",
				},
				&cli.Float64SliceFlag{
					Name:  exportFlagLookAt,
					Usage: "look-at target as X,Y,Z (default: scene center)",
				},
				&cli.StringFlag{
					Name:  exportFlagVideoQuality,
					Value: "high",
					Usage: "video quality: low, medium, high, or lossless",
				},
				&cli.StringFlag{
					Name:  exportFlagVideoFormat,
					Value: "mp4",
					Usage: "video container: mp4, mov, or avi",
				},
				&cli.IntFlag{
					Name:  exportFlagGPU,
					Usage: "CUDA device index",
				},
			},
			Action: ExportAction,
		},
	}
	return app
}

func loggerFrom(c *cli.Context) golog.Logger {
	if logger, ok := c.App.Metadata[loggerKey].(golog.Logger); ok {
		return logger
	}
	return zap.NewNop().Sugar()
}
