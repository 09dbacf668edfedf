// Package phenotype turns genomes into drone animations: the genome's
// velocity field is sampled at each drone's position and integrated over
// time with a fixed step, so identical inputs always reproduce the same
// trajectory.
package phenotype

import (
	"fmt"
	"math"

	"aviary/internal/cppn"
	"aviary/internal/model"
)

const (
	// DefaultFPS is the fixed sampling rate of decoded animations.
	DefaultFPS = 25
	// DefaultGridSpacing is the distance between neighboring drones in the
	// initial placement grid, in meters.
	DefaultGridSpacing = 1.0

	// layerCapacity caps how many drones share one altitude layer before a
	// second layer is opened. Fifty drones form the canonical 5x5x2 grid.
	layerCapacity = 25
)

// Position is a point in the flight volume.
type Position struct {
	X float64
	Y float64
	Z float64
}

// Decoder holds the fixed decode parameters. The zero value is not ready;
// use NewDecoder.
type Decoder struct {
	FPS           int
	GridSpacing   float64
	VelocityScale float64
}

func NewDecoder() Decoder {
	return Decoder{
		FPS:           DefaultFPS,
		GridSpacing:   DefaultGridSpacing,
		VelocityScale: cppn.DefaultVelocityScale,
	}
}

// FrameCount returns the number of frames for a duration, inclusive of
// both t=0 and t=duration.
func (d Decoder) FrameCount(duration float64) int {
	return int(duration*float64(d.FPS)) + 1
}

// Decode produces the animation of one genome. The genome is read-only:
// decoding twice with identical arguments yields identical animations.
// Euler integration advances each drone by velocity*dt between frames; the
// final frame records state without a trailing update.
func (d Decoder) Decode(g cppn.Genome, numDrones int, duration float64) (model.Animation, error) {
	if numDrones < 1 {
		return model.Animation{}, fmt.Errorf("decode: drone count %d below 1", numDrones)
	}
	if duration <= 0 {
		return model.Animation{}, fmt.Errorf("decode: duration %f must be positive", duration)
	}
	if d.FPS < 1 {
		return model.Animation{}, fmt.Errorf("decode: fps %d below 1", d.FPS)
	}

	net, err := cppn.Compile(g)
	if err != nil {
		return model.Animation{}, fmt.Errorf("decode genome %d: %w", g.ID, err)
	}
	if d.VelocityScale > 0 {
		net.VelocityScale = d.VelocityScale
	}

	dt := 1.0 / float64(d.FPS)
	frameCount := d.FrameCount(duration)
	positions := InitialPositions(numDrones, d.GridSpacing)

	anim := model.Animation{
		ID:     g.ID,
		Frames: make([]model.Frame, 0, frameCount),
	}
	for frame := 0; frame < frameCount; frame++ {
		states := make([]model.DroneState, numDrones)
		for i := range positions {
			p := positions[i]
			q := net.Query(p.X, p.Y, p.Z)
			states[i] = model.DroneState{X: p.X, Y: p.Y, Z: p.Z, R: q.R, G: q.G, B: q.B}

			if frame < frameCount-1 {
				positions[i] = Position{
					X: p.X + q.VX*dt,
					Y: p.Y + q.VY*dt,
					Z: p.Z + q.VZ*dt,
				}
			}
		}
		anim.Frames = append(anim.Frames, model.Frame{T: float64(frame) * dt, Drones: states})
	}
	return anim, nil
}

// InitialPositions lays drones out on a centered grid determined only by
// the drone count: up to layerCapacity drones per altitude layer, each
// layer a near-square grid, filled layer by layer, row by row, column by
// column.
func InitialPositions(numDrones int, spacing float64) []Position {
	if numDrones < 1 {
		return nil
	}

	nz := (numDrones + layerCapacity - 1) / layerCapacity
	perLayer := (numDrones + nz - 1) / nz
	nx := int(math.Ceil(math.Sqrt(float64(perLayer))))
	ny := (perLayer + nx - 1) / nx

	xOffset := -float64(nx-1) * spacing / 2.0
	yOffset := -float64(ny-1) * spacing / 2.0
	zOffset := -float64(nz-1) * spacing / 2.0

	capacity := nx * ny
	positions := make([]Position, numDrones)
	for i := 0; i < numDrones; i++ {
		zIdx := i / capacity
		rem := i % capacity
		yIdx := rem / nx
		xIdx := rem % nx

		positions[i] = Position{
			X: float64(xIdx)*spacing + xOffset,
			Y: float64(yIdx)*spacing + yOffset,
			Z: float64(zIdx)*spacing + zOffset,
		}
	}
	return positions
}
