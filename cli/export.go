package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/splatkit/splatkit/camerapath"
	"github.com/splatkit/splatkit/export"
	"github.com/splatkit/splatkit/pointcloud"
	"github.com/splatkit/splatkit/train"
)

// ExportAction exports a trained model: the point cloud as a standalone PLY,
// a video rendered along a camera path, and an evaluation metrics report.
func ExportAction(c *cli.Context) error {
	logger := loggerFrom(c)

	modelPath := c.Args().First()
	if modelPath == "" {
		return errors.New("model path argument is required")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return errors.Wrapf(err, "model not found: %s", modelPath)
	}

	iteration := c.Int(exportFlagIteration)
	if _, err := os.Stat(train.ModelPLYPath(modelPath, iteration)); err != nil {
		return errors.Wrapf(err, "PLY not found at iteration %d", iteration)
	}

	outputDir := c.Path(exportFlagOutputDir)
	if outputDir == "" {
		outputDir = filepath.Join(modelPath, "exports")
	}

	exportPLY := c.Bool(exportFlagPLY)
	exportVideo := c.Bool(exportFlagVideo)
	if !exportPLY && !exportVideo {
		exportPLY = true
		exportVideo = true
	}

	exporter, err := export.NewExporter(modelPath, iteration, outputDir, c.Int(exportFlagGPU), logger)
	if err != nil {
		return err
	}

	logger.Infof("exporting model: %s", modelPath)
	var exports []string

	if exportPLY {
		plyOut, err := exporter.ExportPLY()
		if err != nil {
			return err
		}
		exports = append(exports, plyOut)
	}

	if exportVideo {
		pathType := camerapath.Type(c.String(exportFlagCameraPath))
		logger.Infof("rendering video with %s camera path...", pathType)

		path, err := buildCameraPath(c, pathType, exporter.PLYPath(), logger)
		if err != nil {
			return err
		}

		cameraFile := filepath.Join(outputDir, fmt.Sprintf("camera_%s.json", pathType))
		if err := path.WriteFile(cameraFile); err != nil {
			return err
		}
		logger.Infof("camera path saved: %s", cameraFile)

		width, height, err := resolutionArgs(c, exportFlagResolution)
		if err != nil {
			return err
		}
		videoOut, err := exporter.RenderVideo(c.Context, path, export.RenderOptions{
			FPS:     c.Int(exportFlagFPS),
			Width:   width,
			Height:  height,
			Quality: export.VideoQuality(c.String(exportFlagVideoQuality)),
			Format:  c.String(exportFlagVideoFormat),
		})
		if err != nil {
			return err
		}
		exports = append(exports, videoOut)
	}

	metrics, err := exporter.ComputeMetrics(c.Context)
	if err != nil {
		logger.Warnf("metrics computation failed: %v", err)
	} else {
		fmt.Fprintln(c.App.Writer, export.Summary(metrics))
	}

	logger.Info("export complete")
	for _, fn := range exports {
		logger.Infof("  %s", fn)
	}
	return nil
}

// buildCameraPath loads a custom path from JSON or generates one against the
// scene geometry of the trained point cloud.
func buildCameraPath(c *cli.Context, pathType camerapath.Type, plyPath string, logger golog.Logger) (camerapath.Path, error) {
	if pathType == camerapath.TypeCustom {
		cameraConfig := c.Path(exportFlagCameraConfig)
		if cameraConfig == "" {
			return camerapath.Path{}, errors.New("custom camera path requires --camera-config")
		}
		return camerapath.ReadFile(cameraConfig)
	}

	cloud, err := pointcloud.NewFromFile(plyPath, logger)
	if err != nil {
		return camerapath.Path{}, err
	}
	scene, err := pointcloud.EstimateGeometry(cloud)
	if err != nil {
		return camerapath.Path{}, err
	}
	logger.Debugw("scene geometry estimated",
		"center", scene.Center, "radius", scene.Radius, "points", cloud.Size())

	numFrames := c.Int(exportFlagNumFrames)
	lookAt, err := vectorArg(c, exportFlagLookAt)
	if err != nil {
		return camerapath.Path{}, err
	}

	switch pathType {
	case camerapath.TypeOrbit:
		opts := camerapath.OrbitOptions{
			NumFrames:    numFrames,
			Height:       c.Float64(exportFlagOrbitHeight),
			ElevationDeg: c.Float64(exportFlagOrbitElevation),
			LookAt:       lookAt,
		}
		if c.IsSet(exportFlagOrbitRadius) {
			radius := c.Float64(exportFlagOrbitRadius)
			opts.Radius = &radius
		}
		return camerapath.GenerateOrbit(scene, opts)
	case camerapath.TypeSpiral:
		heightRange, err := rangeArg(c, exportFlagSpiralHeightRange)
		if err != nil {
			return camerapath.Path{}, err
		}
		return camerapath.GenerateSpiral(scene, camerapath.SpiralOptions{
			NumFrames:   numFrames,
			Loops:       c.Float64(exportFlagSpiralLoops),
			HeightRange: heightRange,
			LookAt:      lookAt,
		})
	case camerapath.TypeLinear:
		start, err := vectorArg(c, exportFlagLinearStart)
		if err != nil {
			return camerapath.Path{}, err
		}
		end, err := vectorArg(c, exportFlagLinearEnd)
		if err != nil {
			return camerapath.Path{}, err
		}
		return camerapath.GenerateLinear(scene, camerapath.LinearOptions{
			NumFrames: numFrames,
			Start:     start,
			End:       end,
			LookAt:    lookAt,
		})
	default:
		return camerapath.Path{}, errors.Errorf("unknown camera path type %q", pathType)
	}
}

// vectorArg reads an optional X,Y,Z flag; nil when the flag was not given.
func vectorArg(c *cli.Context, name string) (*r3.Vector, error) {
	if !c.IsSet(name) {
		return nil, nil
	}
	vals := c.Float64Slice(name)
	if len(vals) != 3 {
		return nil, errors.Errorf("--%s needs exactly 3 values, got %d", name, len(vals))
	}
	return &r3.Vector{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}

// rangeArg reads a MIN,MAX flag.
func rangeArg(c *cli.Context, name string) (*[2]float64, error) {
	vals := c.Float64Slice(name)
	if len(vals) != 2 {
		return nil, errors.Errorf("--%s needs exactly 2 values, got %d", name, len(vals))
	}
	return &[2]float64{vals[0], vals[1]}, nil
}

// resolutionArgs reads an optional W,H flag; zeros when the flag was not
// given and has no default.
func resolutionArgs(c *cli.Context, name string) (width, height int, err error) {
	vals := c.IntSlice(name)
	if len(vals) == 0 {
		return 0, 0, nil
	}
	if len(vals) != 2 {
		return 0, 0, errors.Errorf("--%s needs exactly 2 values, got %d", name, len(vals))
	}
	return vals[0], vals[1], nil
}
