package phenotype

import (
	"math"

	"aviary/internal/cppn"
	"aviary/internal/model"
)

// Scoring weights for the automated fitness estimate: movement dominates,
// color change refines.
const (
	movementWeight = 0.7
	colorWeight    = 0.3
)

// MovementDiversity measures how much an animation's drones travel,
// normalized against the distance the whole swarm could cover at full
// speed over the duration and capped at 1.
func MovementDiversity(anim model.Animation, duration float64) float64 {
	if len(anim.Frames) < 2 || duration <= 0 {
		return 0
	}

	total := 0.0
	numDrones := len(anim.Frames[0].Drones)
	for drone := 0; drone < numDrones; drone++ {
		for frame := 0; frame < len(anim.Frames)-1; frame++ {
			cur := anim.Frames[frame].Drones[drone]
			next := anim.Frames[frame+1].Drones[drone]
			dx := next.X - cur.X
			dy := next.Y - cur.Y
			dz := next.Z - cur.Z
			total += math.Sqrt(dx*dx + dy*dy + dz*dz)
		}
	}

	maxPossible := float64(numDrones) * duration * cppn.DefaultVelocityScale
	if maxPossible <= 0 {
		return 0
	}
	return math.Min(total/maxPossible, 1.0)
}

// ColorVariance measures the mean per-transition RGB change across the
// animation, normalized by the full color range and capped at 1.
func ColorVariance(anim model.Animation) float64 {
	if len(anim.Frames) < 2 {
		return 0
	}

	total := 0.0
	numDrones := len(anim.Frames[0].Drones)
	for drone := 0; drone < numDrones; drone++ {
		for frame := 0; frame < len(anim.Frames)-1; frame++ {
			cur := anim.Frames[frame].Drones[drone]
			next := anim.Frames[frame+1].Drones[drone]
			dr := math.Abs(float64(next.R - cur.R))
			dg := math.Abs(float64(next.G - cur.G))
			db := math.Abs(float64(next.B - cur.B))
			total += (dr + dg + db) / 3.0
		}
	}

	transitions := float64(numDrones * (len(anim.Frames) - 1))
	return math.Min(total/(transitions*255.0), 1.0)
}

// Score combines movement and color diversity into one automated fitness
// value in [0, 1]. Interactive sessions use human judgment instead; this
// drives unattended runs.
func Score(anim model.Animation, duration float64) float64 {
	return movementWeight*MovementDiversity(anim, duration) + colorWeight*ColorVariance(anim)
}
