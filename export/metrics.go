package export

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.viam.com/utils"

	"github.com/splatkit/splatkit/pointcloud"
	"github.com/splatkit/splatkit/train"
)

// Opacity thresholds for the transparent/opaque counts, applied after the
// logit-space values are mapped back through the logistic function.
const (
	transparentThreshold = 0.1
	opaqueThreshold      = 0.9
)

// OpacityStats summarizes the per-gaussian opacity distribution.
type OpacityStats struct {
	Mean           float64 `json:"mean"`
	Std            float64 `json:"std"`
	NumTransparent int     `json:"num_transparent"`
	NumOpaque      int     `json:"num_opaque"`
}

// BoundingBox is the model's axis-aligned extent.
type BoundingBox struct {
	Min []float64 `json:"min"`
	Max []float64 `json:"max"`
}

// ModelStatistics are derived from the trained point cloud itself.
type ModelStatistics struct {
	NumGaussians int           `json:"num_gaussians"`
	SceneExtent  float64       `json:"scene_extent"`
	BoundingBox  BoundingBox   `json:"bounding_box"`
	FileSizeMB   float64       `json:"file_size_mb"`
	OpacityStats *OpacityStats `json:"opacity_stats"`
}

// Metrics is the full evaluation report. Rendering metrics come straight from
// the external metrics script's results.json (keyed by method, e.g.
// "ours_30000") and are passed through untouched.
type Metrics struct {
	Rendering map[string]map[string]float64 `json:"rendering_metrics,omitempty"`
	Model     *ModelStatistics              `json:"model_statistics,omitempty"`
}

// logistic maps a logit-space value into (0, 1).
func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func modelStatisticsFromCloud(cloud *pointcloud.Cloud, fileSizeBytes int64) (*ModelStatistics, error) {
	boxMin, boxMax, err := pointcloud.BoundingBox(cloud)
	if err != nil {
		return nil, err
	}

	stats := &ModelStatistics{
		NumGaussians: cloud.Size(),
		SceneExtent:  boxMax.Sub(boxMin).Norm(),
		BoundingBox: BoundingBox{
			Min: []float64{boxMin.X, boxMin.Y, boxMin.Z},
			Max: []float64{boxMax.X, boxMax.Y, boxMax.Z},
		},
		FileSizeMB: float64(fileSizeBytes) / (1024 * 1024),
	}

	if logits := cloud.Opacity(); logits != nil {
		values := make([]float64, len(logits))
		for i, l := range logits {
			values[i] = logistic(l)
		}
		dist := pointcloud.AttributeDistribution(values, transparentThreshold, opaqueThreshold)
		stats.OpacityStats = &OpacityStats{
			Mean:           dist.Mean,
			Std:            dist.Std,
			NumTransparent: dist.NumBelow,
			NumOpaque:      dist.NumAbove,
		}
	}
	return stats, nil
}

// ComputeMetrics runs the external metrics script when available, derives
// model statistics from the trained point cloud, persists the combined report
// as evaluation_metrics.json, and returns it.
func (e *Exporter) ComputeMetrics(ctx context.Context) (Metrics, error) {
	e.logger.Info("computing evaluation metrics...")
	var metrics Metrics

	// Rendering metrics come from the external toolkit; its absence is not an
	// export failure.
	if gsPath, err := train.ToolkitPath(); err == nil {
		//nolint:gosec
		cmd := exec.CommandContext(ctx, "python",
			filepath.Join(gsPath, "metrics.py"), "-m", e.modelPath)
		cmd.Dir = gsPath
		if err := cmd.Run(); err != nil {
			e.logger.Debugw("metrics script failed", "error", err)
		}

		resultsFile := filepath.Join(e.modelPath, "results.json")
		if raw, err := os.ReadFile(resultsFile); err == nil {
			if err := json.Unmarshal(raw, &metrics.Rendering); err != nil {
				e.logger.Warnf("malformed results.json: %v", err)
			} else {
				e.logger.Info("rendering metrics computed (PSNR, SSIM, LPIPS)")
			}
		}
	}

	plyPath := e.PLYPath()
	if info, err := os.Stat(plyPath); err == nil {
		cloud, err := pointcloud.NewFromFile(plyPath, e.logger)
		if err != nil {
			return metrics, err
		}
		metrics.Model, err = modelStatisticsFromCloud(cloud, info.Size())
		if err != nil {
			return metrics, err
		}
		e.logger.Infof("model statistics: %d gaussians, %.2f units extent",
			metrics.Model.NumGaussians, metrics.Model.SceneExtent)
	}

	metricsFile := filepath.Join(e.outputDir, "evaluation_metrics.json")
	if err := writeMetricsFile(metricsFile, metrics); err != nil {
		return metrics, err
	}
	e.logger.Infof("metrics saved: %s", metricsFile)
	return metrics, nil
}

func writeMetricsFile(fn string, metrics Metrics) error {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(metrics)
}

// Summary renders a human-readable table of the metrics.
func Summary(metrics Metrics) string {
	t := table.NewWriter()
	t.SetTitle("EVALUATION METRICS SUMMARY")
	t.AppendHeader(table.Row{"Metric", "Value"})

	for method, values := range metrics.Rendering {
		for _, name := range []string{"PSNR", "SSIM", "LPIPS"} {
			if v, ok := values[name]; ok {
				t.AppendRow(table.Row{fmt.Sprintf("%s %s", method, name), fmt.Sprintf("%.4f", v)})
			}
		}
	}

	if m := metrics.Model; m != nil {
		t.AppendRow(table.Row{"Gaussians", fmt.Sprintf("%d", m.NumGaussians)})
		t.AppendRow(table.Row{"File size", fmt.Sprintf("%.2f MB", m.FileSizeMB)})
		t.AppendRow(table.Row{"Scene extent", fmt.Sprintf("%.2f units", m.SceneExtent)})
		if ops := m.OpacityStats; ops != nil {
			t.AppendRow(table.Row{"Opacity mean", fmt.Sprintf("%.3f", ops.Mean)})
			t.AppendRow(table.Row{
				fmt.Sprintf("Transparent (<%.1f)", transparentThreshold),
				fmt.Sprintf("%d (%.1f%%)", ops.NumTransparent, percentOf(ops.NumTransparent, m.NumGaussians)),
			})
			t.AppendRow(table.Row{
				fmt.Sprintf("Opaque (>%.1f)", opaqueThreshold),
				fmt.Sprintf("%d (%.1f%%)", ops.NumOpaque, percentOf(ops.NumOpaque, m.NumGaussians)),
			})
		}
	}
	return t.Render()
}

func percentOf(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
