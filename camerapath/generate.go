package camerapath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/splatkit/splatkit/pointcloud"
)

// Generation errors. Invalid parameters fail before any frame is generated;
// no partial frame sequence is ever returned.
var (
	// ErrInvalidParameter is wrapped by all shape-parameter validation errors.
	ErrInvalidParameter = errors.New("invalid camera path parameter")
	// ErrMissingEndpoints is returned when linear generation lacks an endpoint.
	ErrMissingEndpoints = errors.New("linear path requires both start and end positions")
)

const (
	// standOffFactor scales the scene radius to the default camera distance
	// so the whole scene fits in frame.
	standOffFactor = 2.5
	// spiralTaper is the fraction of the base radius lost by the final frame.
	spiralTaper = 0.3

	// DefaultElevationDeg is the default orbit elevation above the horizontal.
	DefaultElevationDeg = 20.0
	// DefaultLoops is the default number of spiral revolutions.
	DefaultLoops = 1.5
)

// OrbitOptions shape an orbit path. Nil optionals resolve against the scene:
// Radius to standOffFactor times the scene radius, LookAt to the scene center.
type OrbitOptions struct {
	NumFrames    int
	Radius       *float64
	Height       float64
	ElevationDeg float64
	LookAt       *r3.Vector
}

// DefaultOrbitOptions returns orbit options with the standard elevation.
func DefaultOrbitOptions(numFrames int) OrbitOptions {
	return OrbitOptions{NumFrames: numFrames, ElevationDeg: DefaultElevationDeg}
}

// SpiralOptions shape a spiral path. A nil HeightRange resolves to
// [-scene.Radius, scene.Radius]; a nil LookAt to the scene center.
type SpiralOptions struct {
	NumFrames   int
	Loops       float64
	HeightRange *[2]float64
	LookAt      *r3.Vector
}

// DefaultSpiralOptions returns spiral options with the standard loop count.
func DefaultSpiralOptions(numFrames int) SpiralOptions {
	return SpiralOptions{NumFrames: numFrames, Loops: DefaultLoops}
}

// LinearOptions shape a straight-line path between two explicit world
// positions. Both endpoints are required; a nil LookAt resolves to the scene
// center.
type LinearOptions struct {
	NumFrames int
	Start     *r3.Vector
	End       *r3.Vector
	LookAt    *r3.Vector
}

func validateNumFrames(n int) error {
	if n < 0 {
		return errors.Wrapf(ErrInvalidParameter, "num_frames must not be negative, got %d", n)
	}
	return nil
}

func resolveLookAt(scene pointcloud.SceneGeometry, lookAt *r3.Vector) r3.Vector {
	if lookAt != nil {
		return *lookAt
	}
	return scene.Center
}

// GenerateOrbit produces a single horizontal ring tilted by the elevation
// angle, one full revolution sampled at NumFrames uniformly spaced angles.
// The loop is closed: frame NumFrames would coincide with frame 0, so the
// last frame stops one step short of the start.
func GenerateOrbit(scene pointcloud.SceneGeometry, opts OrbitOptions) (Path, error) {
	if err := validateNumFrames(opts.NumFrames); err != nil {
		return Path{}, err
	}
	radius := scene.Radius * standOffFactor
	if opts.Radius != nil {
		if *opts.Radius < 0 {
			return Path{}, errors.Wrapf(ErrInvalidParameter, "radius must not be negative, got %f", *opts.Radius)
		}
		radius = *opts.Radius
	}
	lookAt := resolveLookAt(scene, opts.LookAt)
	phi := opts.ElevationDeg * math.Pi / 180

	cameras := make([]Pose, 0, opts.NumFrames)
	for i := 0; i < opts.NumFrames; i++ {
		theta := 2 * math.Pi * float64(i) / float64(opts.NumFrames)
		pos := r3.Vector{
			X: radius*math.Cos(theta)*math.Cos(phi) + scene.Center.X,
			Y: radius*math.Sin(phi) + scene.Center.Y + opts.Height,
			Z: radius*math.Sin(theta)*math.Cos(phi) + scene.Center.Z,
		}
		cameras = append(cameras, Pose{Position: pos, LookAt: lookAt, Up: worldUp})
	}
	return Path{Type: TypeOrbit, Cameras: cameras}, nil
}

// GenerateSpiral produces an inward-tapering spiral: the angle advances Loops
// revolutions across the path while the radius contracts linearly to
// (1 - spiralTaper) of the base and the height interpolates across
// HeightRange. Sampling uses t = i/NumFrames, the same open-ended convention
// as the orbit generator; the final frame is one step short of the nominal
// endpoint.
func GenerateSpiral(scene pointcloud.SceneGeometry, opts SpiralOptions) (Path, error) {
	if err := validateNumFrames(opts.NumFrames); err != nil {
		return Path{}, err
	}
	if opts.Loops <= 0 {
		return Path{}, errors.Wrapf(ErrInvalidParameter, "loops must be positive, got %f", opts.Loops)
	}
	heightRange := [2]float64{-scene.Radius, scene.Radius}
	if opts.HeightRange != nil {
		heightRange = *opts.HeightRange
	}
	lookAt := resolveLookAt(scene, opts.LookAt)
	radiusBase := scene.Radius * standOffFactor

	cameras := make([]Pose, 0, opts.NumFrames)
	for i := 0; i < opts.NumFrames; i++ {
		t := float64(i) / float64(opts.NumFrames)
		theta := 2 * math.Pi * opts.Loops * t
		radius := radiusBase * (1 - spiralTaper*t)
		height := heightRange[0] + (heightRange[1]-heightRange[0])*t
		pos := r3.Vector{
			X: radius*math.Cos(theta) + scene.Center.X,
			Y: scene.Center.Y + height,
			Z: radius*math.Sin(theta) + scene.Center.Z,
		}
		cameras = append(cameras, Pose{Position: pos, LookAt: lookAt, Up: worldUp})
	}
	return Path{Type: TypeSpiral, Cameras: cameras}, nil
}

// GenerateLinear interpolates between Start and End. Unlike the orbit and
// spiral generators, a finite segment must terminate at its endpoint, so for
// NumFrames > 1 sampling uses t = i/(NumFrames-1) and the last frame equals
// End exactly. A single frame sits at Start.
func GenerateLinear(scene pointcloud.SceneGeometry, opts LinearOptions) (Path, error) {
	if opts.Start == nil || opts.End == nil {
		return Path{}, ErrMissingEndpoints
	}
	if err := validateNumFrames(opts.NumFrames); err != nil {
		return Path{}, err
	}
	lookAt := resolveLookAt(scene, opts.LookAt)
	start, end := *opts.Start, *opts.End

	cameras := make([]Pose, 0, opts.NumFrames)
	for i := 0; i < opts.NumFrames; i++ {
		t := 0.0
		if opts.NumFrames > 1 {
			t = float64(i) / float64(opts.NumFrames-1)
		}
		pos := start.Add(end.Sub(start).Mul(t))
		cameras = append(cameras, Pose{Position: pos, LookAt: lookAt, Up: worldUp})
	}
	return Path{Type: TypeLinear, Cameras: cameras}, nil
}
