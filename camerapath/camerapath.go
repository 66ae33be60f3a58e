// Package camerapath generates deterministic camera trajectories around a
// reconstructed scene for rendering evaluation videos.
//
// The JSON shape produced here (type tag plus an ordered cameras list of
// position/look_at/up triples) is consumed as-is by the external renderer and
// must not change.
package camerapath

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Type tags a path with the family of trajectory that produced it.
type Type string

const (
	// TypeOrbit is a closed circular ring around the scene.
	TypeOrbit Type = "orbit"
	// TypeSpiral is an inward-tapering helix.
	TypeSpiral Type = "spiral"
	// TypeLinear is a straight segment between two world positions.
	TypeLinear Type = "linear"
	// TypeCustom marks an externally authored path passed through unmodified.
	TypeCustom Type = "custom"
)

// worldUp is the up vector of every generated pose. There is no roll control.
var worldUp = r3.Vector{Y: 1}

// Pose is a single camera placement: where the camera sits, what it looks at,
// and which way is up. The downstream renderer builds its own view matrix
// from these three vectors.
type Pose struct {
	Position r3.Vector
	LookAt   r3.Vector
	Up       r3.Vector
}

type poseJSON struct {
	Position []float64 `json:"position"`
	LookAt   []float64 `json:"look_at"`
	Up       []float64 `json:"up"`
}

// MarshalJSON encodes the pose with each vector as a 3-float array.
func (p Pose) MarshalJSON() ([]byte, error) {
	return json.Marshal(poseJSON{
		Position: []float64{p.Position.X, p.Position.Y, p.Position.Z},
		LookAt:   []float64{p.LookAt.X, p.LookAt.Y, p.LookAt.Z},
		Up:       []float64{p.Up.X, p.Up.Y, p.Up.Z},
	})
}

// UnmarshalJSON decodes a pose, rejecting vectors that are not 3 components.
func (p *Pose) UnmarshalJSON(data []byte) error {
	var aux poseJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	pos, err := vectorFromSlice(aux.Position)
	if err != nil {
		return errors.Wrap(err, "position")
	}
	lookAt, err := vectorFromSlice(aux.LookAt)
	if err != nil {
		return errors.Wrap(err, "look_at")
	}
	up, err := vectorFromSlice(aux.Up)
	if err != nil {
		return errors.Wrap(err, "up")
	}
	p.Position, p.LookAt, p.Up = pos, lookAt, up
	return nil
}

func vectorFromSlice(v []float64) (r3.Vector, error) {
	if len(v) != 3 {
		return r3.Vector{}, errors.Wrapf(ErrInvalidParameter, "expected 3 components, got %d", len(v))
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}, nil
}

// Path is an ordered sequence of camera poses. Frame index is the time step
// of the output video; the path is never mutated after generation.
type Path struct {
	Type    Type   `json:"type"`
	Cameras []Pose `json:"cameras"`
}

// ReadFile loads an externally authored path, e.g. for custom mode where
// generation is skipped entirely.
func ReadFile(fn string) (Path, error) {
	var path Path
	//nolint:gosec
	raw, err := os.ReadFile(fn)
	if err != nil {
		return path, err
	}
	if err := json.Unmarshal(raw, &path); err != nil {
		return path, errors.Wrapf(err, "malformed camera path %q", fn)
	}
	return path, nil
}

// WriteFile serializes the path in the renderer's expected shape.
func (p Path) WriteFile(fn string) error {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
