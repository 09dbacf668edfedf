// Package constraint checks decoded animations against the physical
// limits of the show volume. Findings are advisory: nothing here feeds
// back into selection or mutates session state.
package constraint

import "fmt"

// Params bounds the flight volume and the drone dynamics. The volume is
// an axis-aligned box; speeds split into a horizontal and a vertical
// budget the way flight controllers rate them.
type Params struct {
	XMin               float64 `json:"x_min"`
	XMax               float64 `json:"x_max"`
	YMin               float64 `json:"y_min"`
	YMax               float64 `json:"y_max"`
	ZMin               float64 `json:"z_min"`
	ZMax               float64 `json:"z_max"`
	MaxHorizontalSpeed float64 `json:"max_horizontal_speed"`
	MaxVerticalSpeed   float64 `json:"max_vertical_speed"`
	MinDistance        float64 `json:"min_distance"`
	DT                 float64 `json:"dt"`
}

// DefaultParams returns the stage limits used when no profile overrides
// them. DT matches the decoder's 25fps sampling.
func DefaultParams() Params {
	return Params{
		XMin:               -8.5,
		XMax:               8.5,
		YMin:               -8.5,
		YMax:               8.5,
		ZMin:               -6.5,
		ZMax:               6.5,
		MaxHorizontalSpeed: 5.0,
		MaxVerticalSpeed:   2.5,
		MinDistance:        0.5,
		DT:                 0.04,
	}
}

// Validate rejects degenerate volumes and non-positive rates.
func (p Params) Validate() error {
	if p.XMin >= p.XMax {
		return fmt.Errorf("x bounds must satisfy min < max, got [%v, %v]", p.XMin, p.XMax)
	}
	if p.YMin >= p.YMax {
		return fmt.Errorf("y bounds must satisfy min < max, got [%v, %v]", p.YMin, p.YMax)
	}
	if p.ZMin >= p.ZMax {
		return fmt.Errorf("z bounds must satisfy min < max, got [%v, %v]", p.ZMin, p.ZMax)
	}
	if p.MaxHorizontalSpeed <= 0 {
		return fmt.Errorf("max horizontal speed must be > 0, got %v", p.MaxHorizontalSpeed)
	}
	if p.MaxVerticalSpeed <= 0 {
		return fmt.Errorf("max vertical speed must be > 0, got %v", p.MaxVerticalSpeed)
	}
	if p.MinDistance < 0 {
		return fmt.Errorf("min distance must be >= 0, got %v", p.MinDistance)
	}
	if p.DT <= 0 {
		return fmt.Errorf("dt must be > 0, got %v", p.DT)
	}
	return nil
}
