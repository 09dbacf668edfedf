package constraint

import (
	"math"

	"aviary/internal/model"
)

// Rule names used in violation entries and reports.
const (
	RuleBounds          = "bounds"
	RuleHorizontalSpeed = "horizontal_speed"
	RuleVerticalSpeed   = "vertical_speed"
	RuleSeparation      = "separation"
)

// Violation is one broken rule instance. Value is the measured quantity
// (excursion meters, speed in m/s, pair distance in m) and Limit the
// threshold it broke; OtherDrone is set only for separation findings.
type Violation struct {
	Frame      int     `json:"frame"`
	T          float64 `json:"t"`
	Rule       string  `json:"rule"`
	Drone      int     `json:"drone"`
	OtherDrone *int    `json:"other_drone,omitempty"`
	Value      float64 `json:"value"`
	Limit      float64 `json:"limit"`
}

// Result tallies one animation's findings. MinDistanceObserved is 0 when
// fewer than two drones fly (JSON cannot carry an infinite sentinel).
type Result struct {
	GenomeID                  int         `json:"genome_id"`
	BoundsViolations          int         `json:"bounds_violations"`
	MaxBoundsViolation        float64     `json:"max_bounds_violation"`
	HorizontalSpeedViolations int         `json:"horizontal_speed_violations"`
	VerticalSpeedViolations   int         `json:"vertical_speed_violations"`
	DistanceViolations        int         `json:"distance_violations"`
	MinDistanceObserved       float64     `json:"min_distance_observed"`
	Violations                []Violation `json:"violations"`
}

// Passes reports whether every rule held over the whole animation.
func (r Result) Passes() bool {
	return r.BoundsViolations == 0 &&
		r.HorizontalSpeedViolations == 0 &&
		r.VerticalSpeedViolations == 0 &&
		r.DistanceViolations == 0
}

// Summary aggregates pass counts over a batch of results.
type Summary struct {
	Total               int `json:"total"`
	PassBounds          int `json:"pass_bounds"`
	PassHorizontalSpeed int `json:"pass_h_speed"`
	PassVerticalSpeed   int `json:"pass_v_speed"`
	PassDistance        int `json:"pass_distance"`
	PassAll             int `json:"pass_all"`
}

// Report is the batch-check payload: per-animation results, the summary
// and the params they were checked against.
type Report struct {
	Results []Result `json:"results"`
	Summary Summary  `json:"summary"`
	Params  Params   `json:"params"`
}

// Checker applies one parameter set to animations.
type Checker struct {
	params Params
}

// NewChecker validates the params once so Check never has to.
func NewChecker(params Params) (*Checker, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Checker{params: params}, nil
}

// Check walks every frame of the animation: bounds per drone, speeds per
// drone from the second frame on (finite differences over params.DT),
// pairwise separation over all pairs. Every broken instance is counted
// and appended to Violations.
func (c *Checker) Check(anim model.Animation) Result {
	result := Result{GenomeID: anim.ID}
	minDistance := math.Inf(1)

	for frameIdx, frame := range anim.Frames {
		for droneIdx, drone := range frame.Drones {
			excursion := c.boundsExcursion(drone)
			if excursion > 0 {
				result.BoundsViolations++
				result.MaxBoundsViolation = math.Max(result.MaxBoundsViolation, excursion)
				result.Violations = append(result.Violations, Violation{
					Frame: frameIdx,
					T:     frame.T,
					Rule:  RuleBounds,
					Drone: droneIdx,
					Value: excursion,
					Limit: 0,
				})
			}
		}

		if frameIdx > 0 {
			prev := anim.Frames[frameIdx-1].Drones
			for droneIdx, drone := range frame.Drones {
				if droneIdx >= len(prev) {
					break
				}
				hSpeed, vSpeed := c.speeds(prev[droneIdx], drone)
				if hSpeed > c.params.MaxHorizontalSpeed {
					result.HorizontalSpeedViolations++
					result.Violations = append(result.Violations, Violation{
						Frame: frameIdx,
						T:     frame.T,
						Rule:  RuleHorizontalSpeed,
						Drone: droneIdx,
						Value: hSpeed,
						Limit: c.params.MaxHorizontalSpeed,
					})
				}
				if vSpeed > c.params.MaxVerticalSpeed {
					result.VerticalSpeedViolations++
					result.Violations = append(result.Violations, Violation{
						Frame: frameIdx,
						T:     frame.T,
						Rule:  RuleVerticalSpeed,
						Drone: droneIdx,
						Value: vSpeed,
						Limit: c.params.MaxVerticalSpeed,
					})
				}
			}
		}

		for i := 0; i < len(frame.Drones); i++ {
			for j := i + 1; j < len(frame.Drones); j++ {
				dist := distance(frame.Drones[i], frame.Drones[j])
				minDistance = math.Min(minDistance, dist)
				if dist < c.params.MinDistance {
					result.DistanceViolations++
					other := j
					result.Violations = append(result.Violations, Violation{
						Frame:      frameIdx,
						T:          frame.T,
						Rule:       RuleSeparation,
						Drone:      i,
						OtherDrone: &other,
						Value:      dist,
						Limit:      c.params.MinDistance,
					})
				}
			}
		}
	}

	if !math.IsInf(minDistance, 1) {
		result.MinDistanceObserved = minDistance
	}
	return result
}

// CheckAll checks a batch and aggregates the pass counts.
func (c *Checker) CheckAll(anims []model.Animation) Report {
	report := Report{
		Results: make([]Result, 0, len(anims)),
		Params:  c.params,
	}
	for _, anim := range anims {
		result := c.Check(anim)
		report.Results = append(report.Results, result)

		report.Summary.Total++
		if result.BoundsViolations == 0 {
			report.Summary.PassBounds++
		}
		if result.HorizontalSpeedViolations == 0 {
			report.Summary.PassHorizontalSpeed++
		}
		if result.VerticalSpeedViolations == 0 {
			report.Summary.PassVerticalSpeed++
		}
		if result.DistanceViolations == 0 {
			report.Summary.PassDistance++
		}
		if result.Passes() {
			report.Summary.PassAll++
		}
	}
	return report
}

// boundsExcursion returns how far outside the box the drone sits, as the
// largest per-axis overshoot, or 0 inside the box.
func (c *Checker) boundsExcursion(d model.DroneState) float64 {
	excursion := 0.0
	for _, over := range []float64{
		c.params.XMin - d.X,
		d.X - c.params.XMax,
		c.params.YMin - d.Y,
		d.Y - c.params.YMax,
		c.params.ZMin - d.Z,
		d.Z - c.params.ZMax,
	} {
		excursion = math.Max(excursion, over)
	}
	return excursion
}

func (c *Checker) speeds(prev, cur model.DroneState) (horizontal, vertical float64) {
	dx := cur.X - prev.X
	dy := cur.Y - prev.Y
	dz := cur.Z - prev.Z
	return math.Sqrt(dx*dx+dy*dy) / c.params.DT, math.Abs(dz) / c.params.DT
}

func distance(a, b model.DroneState) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dz := b.Z - a.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
