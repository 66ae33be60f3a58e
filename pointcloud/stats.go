package pointcloud

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/stat"
)

// BoundingBox returns the componentwise min and max across all points.
func BoundingBox(cloud *Cloud) (r3.Vector, r3.Vector, error) {
	if cloud.Size() == 0 {
		return r3.Vector{}, r3.Vector{}, ErrEmptyScene
	}
	meta := cloud.MetaData()
	boxMin := r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ}
	boxMax := r3.Vector{X: meta.MaxX, Y: meta.MaxY, Z: meta.MaxZ}
	return boxMin, boxMax, nil
}

// Distribution summarizes a per-point scalar attribute.
type Distribution struct {
	Mean     float64
	Std      float64
	NumBelow int
	NumAbove int
}

// AttributeDistribution computes the population mean and standard deviation
// of values along with how many fall strictly below low and strictly above
// high. The function is threshold-agnostic: attributes stored in logit space
// must be transformed by the caller first.
func AttributeDistribution(values []float64, low, high float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	dist := Distribution{
		Mean: stat.Mean(values, nil),
		Std:  stat.PopStdDev(values, nil),
	}
	for _, v := range values {
		if v < low {
			dist.NumBelow++
		}
		if v > high {
			dist.NumAbove++
		}
	}
	return dist
}
