package phenotype

import (
	"math"
	"testing"

	"aviary/internal/model"
)

func twoFrameAnimation(a, b model.DroneState) model.Animation {
	return model.Animation{
		ID: 1,
		Frames: []model.Frame{
			{T: 0.0, Drones: []model.DroneState{a}},
			{T: 1.0, Drones: []model.DroneState{b}},
		},
	}
}

func TestMovementDiversityStaticIsZero(t *testing.T) {
	s := model.DroneState{X: 1, Y: 2, Z: 3, R: 10, G: 20, B: 30}
	if got := MovementDiversity(twoFrameAnimation(s, s), 1.0); got != 0 {
		t.Fatalf("static animation diversity: got=%f want=0", got)
	}
	if got := MovementDiversity(model.Animation{}, 1.0); got != 0 {
		t.Fatalf("empty animation diversity: got=%f want=0", got)
	}
}

func TestMovementDiversityKnownValue(t *testing.T) {
	a := model.DroneState{X: 0}
	b := model.DroneState{X: 1}
	// One drone traveling 1m in 1s against a 2 m/s ceiling scores 0.5.
	if got := MovementDiversity(twoFrameAnimation(a, b), 1.0); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("diversity: got=%f want=0.5", got)
	}
}

func TestMovementDiversityCapsAtOne(t *testing.T) {
	a := model.DroneState{X: 0}
	b := model.DroneState{X: 100}
	if got := MovementDiversity(twoFrameAnimation(a, b), 1.0); got != 1.0 {
		t.Fatalf("diversity should cap at 1: got=%f", got)
	}
}

func TestColorVarianceKnownValue(t *testing.T) {
	a := model.DroneState{R: 0, G: 100, B: 200}
	b := model.DroneState{R: 255, G: 100, B: 200}
	// Mean channel delta 85 against the 255 ceiling.
	want := 85.0 / 255.0
	if got := ColorVariance(twoFrameAnimation(a, b)); math.Abs(got-want) > 1e-12 {
		t.Fatalf("color variance: got=%f want=%f", got, want)
	}
}

func TestColorVarianceStaticIsZero(t *testing.T) {
	s := model.DroneState{R: 50, G: 60, B: 70}
	if got := ColorVariance(twoFrameAnimation(s, s)); got != 0 {
		t.Fatalf("static color variance: got=%f want=0", got)
	}
}

func TestScoreBlendsComponents(t *testing.T) {
	a := model.DroneState{X: 0, R: 0}
	b := model.DroneState{X: 1, R: 255}
	anim := twoFrameAnimation(a, b)

	want := 0.7*MovementDiversity(anim, 1.0) + 0.3*ColorVariance(anim)
	if got := Score(anim, 1.0); math.Abs(got-want) > 1e-12 {
		t.Fatalf("score: got=%f want=%f", got, want)
	}
	if got := Score(anim, 1.0); got <= 0 || got > 1 {
		t.Fatalf("score out of range: %f", got)
	}
}
