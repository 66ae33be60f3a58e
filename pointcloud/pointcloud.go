// Package pointcloud holds reconstructed gaussian splat point clouds and the
// scene geometry derived from them.
//
// Clouds are read-only once loaded: the pipeline parses them from PLY files
// produced by the training toolkit and only ever derives values (center,
// radius, bounding box, attribute statistics) from them.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// MetaData tracks the extents of a cloud as points are appended.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData returns extents ready to be merged into.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge widens the extents to include p.
func (meta *MetaData) Merge(p r3.Vector) {
	if p.X > meta.MaxX {
		meta.MaxX = p.X
	}
	if p.Y > meta.MaxY {
		meta.MaxY = p.Y
	}
	if p.Z > meta.MaxZ {
		meta.MaxZ = p.Z
	}

	if p.X < meta.MinX {
		meta.MinX = p.X
	}
	if p.Y < meta.MinY {
		meta.MinY = p.Y
	}
	if p.Z < meta.MinZ {
		meta.MinZ = p.Z
	}
}

// Cloud is an in-memory point cloud: one position per point plus an optional
// parallel opacity attribute (one scalar per point, stored in logit space the
// way gaussian splat PLY files store it). Either every point has an opacity
// or none does.
type Cloud struct {
	positions []r3.Vector
	opacity   []float64
	meta      MetaData
}

// New returns an empty Cloud.
func New() *Cloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty Cloud with capacity for size points.
func NewWithPrealloc(size int) *Cloud {
	return &Cloud{
		positions: make([]r3.Vector, 0, size),
		meta:      NewMetaData(),
	}
}

// Size returns the number of points in the cloud.
func (cloud *Cloud) Size() int {
	return len(cloud.positions)
}

// MetaData returns the extents merged so far.
func (cloud *Cloud) MetaData() MetaData {
	return cloud.meta
}

// Append adds a point with no attribute data.
func (cloud *Cloud) Append(p r3.Vector) error {
	if len(cloud.opacity) != 0 {
		return errors.New("cloud has opacity data; every point must carry an opacity")
	}
	cloud.positions = append(cloud.positions, p)
	cloud.meta.Merge(p)
	return nil
}

// AppendWithOpacity adds a point with its opacity scalar.
func (cloud *Cloud) AppendWithOpacity(p r3.Vector, opacity float64) error {
	if len(cloud.opacity) != len(cloud.positions) {
		return errors.New("cloud has points without opacity; cannot mix")
	}
	cloud.positions = append(cloud.positions, p)
	cloud.opacity = append(cloud.opacity, opacity)
	cloud.meta.Merge(p)
	return nil
}

// At returns the i-th point.
func (cloud *Cloud) At(i int) r3.Vector {
	return cloud.positions[i]
}

// HasOpacity reports whether the cloud carries per-point opacity.
func (cloud *Cloud) HasOpacity() bool {
	return len(cloud.opacity) == len(cloud.positions) && len(cloud.opacity) > 0
}

// Opacity returns the per-point opacity scalars, logit space, one per point.
// Nil when the cloud has none.
func (cloud *Cloud) Opacity() []float64 {
	if !cloud.HasOpacity() {
		return nil
	}
	return cloud.opacity
}

// Iterate calls fn for each point in order until fn returns false.
func (cloud *Cloud) Iterate(fn func(p r3.Vector) bool) {
	for _, p := range cloud.positions {
		if !fn(p) {
			return
		}
	}
}
