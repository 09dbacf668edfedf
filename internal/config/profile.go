// Package config loads engine profiles and process environment settings.
// A profile is an INI file with [population], [mutation], [decoder] and
// [constraints] sections; keys absent from the file keep their built-in
// defaults.
package config

import (
	"fmt"

	"gopkg.in/ini.v1"

	"aviary/internal/constraint"
	"aviary/internal/evo"
	"aviary/internal/phenotype"
)

// PopulationProfile sizes the candidate grid.
type PopulationProfile struct {
	Size           int     `ini:"size"`
	DefaultFitness float64 `ini:"default_fitness"`
}

// MutationProfile carries the per-operator rates. Key names match the
// validation errors reported by evo.Params.
type MutationProfile struct {
	WeightRate        float64 `ini:"weight_rate"`
	WeightPerturb     float64 `ini:"weight_perturb"`
	WeightSigma       float64 `ini:"weight_sigma"`
	WeightResetRange  float64 `ini:"weight_reset_range"`
	BiasRate          float64 `ini:"bias_rate"`
	BiasSigma         float64 `ini:"bias_sigma"`
	ActivationRate    float64 `ini:"activation_rate"`
	ToggleRate        float64 `ini:"toggle_rate"`
	AddConnectionRate float64 `ini:"add_connection_rate"`
	AddNodeRate       float64 `ini:"add_node_rate"`
	CrossoverRate     float64 `ini:"crossover_rate"`
	DisabledInherit   float64 `ini:"disabled_inherit"`
	Attempts          int     `ini:"attempts"`
}

// DecoderProfile fixes how genomes become animations.
type DecoderProfile struct {
	FPS           int     `ini:"fps"`
	VelocityScale float64 `ini:"velocity_scale"`
	GridSpacing   float64 `ini:"grid_spacing"`
}

// ConstraintsProfile bounds the show volume and drone dynamics.
type ConstraintsProfile struct {
	XMin               float64 `ini:"x_min"`
	XMax               float64 `ini:"x_max"`
	YMin               float64 `ini:"y_min"`
	YMax               float64 `ini:"y_max"`
	ZMin               float64 `ini:"z_min"`
	ZMax               float64 `ini:"z_max"`
	MaxHorizontalSpeed float64 `ini:"max_horizontal_speed"`
	MaxVerticalSpeed   float64 `ini:"max_vertical_speed"`
	MinDistance        float64 `ini:"min_distance"`
}

// Profile is a full engine configuration.
type Profile struct {
	Population  PopulationProfile
	Mutation    MutationProfile
	Decoder     DecoderProfile
	Constraints ConstraintsProfile
}

// DefaultProfile returns the built-in engine configuration.
func DefaultProfile() Profile {
	params := evo.DefaultParams()
	limits := constraint.DefaultParams()
	dec := phenotype.NewDecoder()
	return Profile{
		Population: PopulationProfile{
			Size:           evo.DefaultPopulationSize,
			DefaultFitness: 0,
		},
		Mutation: MutationProfile{
			WeightRate:        params.WeightRate,
			WeightPerturb:     params.WeightPerturb,
			WeightSigma:       params.WeightSigma,
			WeightResetRange:  params.WeightResetRange,
			BiasRate:          params.BiasRate,
			BiasSigma:         params.BiasSigma,
			ActivationRate:    params.ActivationRate,
			ToggleRate:        params.ToggleRate,
			AddConnectionRate: params.AddConnectionRate,
			AddNodeRate:       params.AddNodeRate,
			CrossoverRate:     params.CrossoverRate,
			DisabledInherit:   params.DisabledInherit,
			Attempts:          params.Attempts,
		},
		Decoder: DecoderProfile{
			FPS:           dec.FPS,
			VelocityScale: dec.VelocityScale,
			GridSpacing:   dec.GridSpacing,
		},
		Constraints: ConstraintsProfile{
			XMin:               limits.XMin,
			XMax:               limits.XMax,
			YMin:               limits.YMin,
			YMax:               limits.YMax,
			ZMin:               limits.ZMin,
			ZMax:               limits.ZMax,
			MaxHorizontalSpeed: limits.MaxHorizontalSpeed,
			MaxVerticalSpeed:   limits.MaxVerticalSpeed,
			MinDistance:        limits.MinDistance,
		},
	}
}

// LoadProfile reads an INI profile from path. Sections and keys missing
// from the file keep their defaults; the merged profile is validated
// before it is returned.
func LoadProfile(path string) (Profile, error) {
	file, err := ini.Load(path)
	if err != nil {
		return Profile{}, fmt.Errorf("load profile %s: %w", path, err)
	}

	p := DefaultProfile()
	if err := file.Section("population").MapTo(&p.Population); err != nil {
		return Profile{}, fmt.Errorf("map [population] section: %w", err)
	}
	if err := file.Section("mutation").MapTo(&p.Mutation); err != nil {
		return Profile{}, fmt.Errorf("map [mutation] section: %w", err)
	}
	if err := file.Section("decoder").MapTo(&p.Decoder); err != nil {
		return Profile{}, fmt.Errorf("map [decoder] section: %w", err)
	}
	if err := file.Section("constraints").MapTo(&p.Constraints); err != nil {
		return Profile{}, fmt.Errorf("map [constraints] section: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// Validate checks every section against the ranges the engine accepts.
func (p Profile) Validate() error {
	if p.Population.Size < 1 {
		return fmt.Errorf("population size must be >= 1, got %d", p.Population.Size)
	}
	if p.Population.DefaultFitness < 0 || p.Population.DefaultFitness > 1 {
		return fmt.Errorf("default_fitness must be in [0, 1], got %v", p.Population.DefaultFitness)
	}
	if err := p.EvoParams().Validate(); err != nil {
		return err
	}
	if p.Decoder.FPS < 1 {
		return fmt.Errorf("fps must be >= 1, got %d", p.Decoder.FPS)
	}
	if p.Decoder.VelocityScale <= 0 {
		return fmt.Errorf("velocity_scale must be > 0, got %v", p.Decoder.VelocityScale)
	}
	if p.Decoder.GridSpacing <= 0 {
		return fmt.Errorf("grid_spacing must be > 0, got %v", p.Decoder.GridSpacing)
	}
	return p.ConstraintParams().Validate()
}

// EvoParams converts the [mutation] section into operator rates.
func (p Profile) EvoParams() evo.Params {
	return evo.Params{
		WeightRate:        p.Mutation.WeightRate,
		WeightPerturb:     p.Mutation.WeightPerturb,
		WeightSigma:       p.Mutation.WeightSigma,
		WeightResetRange:  p.Mutation.WeightResetRange,
		BiasRate:          p.Mutation.BiasRate,
		BiasSigma:         p.Mutation.BiasSigma,
		ActivationRate:    p.Mutation.ActivationRate,
		ToggleRate:        p.Mutation.ToggleRate,
		AddConnectionRate: p.Mutation.AddConnectionRate,
		AddNodeRate:       p.Mutation.AddNodeRate,
		CrossoverRate:     p.Mutation.CrossoverRate,
		DisabledInherit:   p.Mutation.DisabledInherit,
		Attempts:          p.Mutation.Attempts,
	}
}

// PhenotypeDecoder converts the [decoder] section into a decoder.
func (p Profile) PhenotypeDecoder() phenotype.Decoder {
	return phenotype.Decoder{
		FPS:           p.Decoder.FPS,
		GridSpacing:   p.Decoder.GridSpacing,
		VelocityScale: p.Decoder.VelocityScale,
	}
}

// ConstraintParams converts the [constraints] section into checker
// limits. DT follows the decoder sampling rate.
func (p Profile) ConstraintParams() constraint.Params {
	return constraint.Params{
		XMin:               p.Constraints.XMin,
		XMax:               p.Constraints.XMax,
		YMin:               p.Constraints.YMin,
		YMax:               p.Constraints.YMax,
		ZMin:               p.Constraints.ZMin,
		ZMax:               p.Constraints.ZMax,
		MaxHorizontalSpeed: p.Constraints.MaxHorizontalSpeed,
		MaxVerticalSpeed:   p.Constraints.MaxVerticalSpeed,
		MinDistance:        p.Constraints.MinDistance,
		DT:                 1.0 / float64(p.Decoder.FPS),
	}
}
