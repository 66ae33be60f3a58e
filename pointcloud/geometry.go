package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrEmptyScene is returned when geometry is requested for a cloud with no
// points; a scene with zero points has no meaningful center or radius.
var ErrEmptyScene = errors.New("point cloud has no points")

// SceneGeometry summarizes the spatial extent of a cloud: the centroid of all
// points and the maximum distance from that centroid to any point.
type SceneGeometry struct {
	Center r3.Vector
	Radius float64
}

// EstimateGeometry computes the scene geometry of a cloud. Two linear passes:
// the radius needs the finished center, so the passes cannot be fused.
// A single-point or coincident-point cloud yields Radius 0.
func EstimateGeometry(cloud *Cloud) (SceneGeometry, error) {
	n := cloud.Size()
	if n == 0 {
		return SceneGeometry{}, ErrEmptyScene
	}

	var sum r3.Vector
	cloud.Iterate(func(p r3.Vector) bool {
		sum = sum.Add(p)
		return true
	})
	center := sum.Mul(1 / float64(n))

	var radius float64
	cloud.Iterate(func(p r3.Vector) bool {
		if d := p.Sub(center).Norm(); d > radius {
			radius = d
		}
		return true
	})

	return SceneGeometry{Center: center, Radius: radius}, nil
}
