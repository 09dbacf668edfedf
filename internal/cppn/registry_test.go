package cppn

import (
	"errors"
	"math"
	"testing"
)

func TestRegisterAndGetActivation(t *testing.T) {
	resetActivationRegistryForTests()
	t.Cleanup(resetActivationRegistryForTests)

	if err := RegisterActivation("quad", func(x float64) float64 { return x * x }); err != nil {
		t.Fatalf("register activation: %v", err)
	}
	fn, err := GetActivation("quad")
	if err != nil {
		t.Fatalf("get activation: %v", err)
	}
	if got := fn(3); got != 9 {
		t.Fatalf("unexpected activation result: got=%f want=9", got)
	}
}

func TestRegisterActivationValidation(t *testing.T) {
	resetActivationRegistryForTests()
	t.Cleanup(resetActivationRegistryForTests)

	if err := RegisterActivation("", func(x float64) float64 { return x }); err == nil {
		t.Fatal("expected empty name error")
	}
	if err := RegisterActivation("nil", nil); err == nil {
		t.Fatal("expected nil function error")
	}
}

func TestRegisterActivationDuplicate(t *testing.T) {
	resetActivationRegistryForTests()
	t.Cleanup(resetActivationRegistryForTests)

	if err := RegisterActivation("dup", func(x float64) float64 { return x }); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := RegisterActivation("dup", func(x float64) float64 { return x }); !errors.Is(err, ErrActivationExists) {
		t.Fatalf("expected ErrActivationExists, got: %v", err)
	}
}

func TestGetActivationNotFound(t *testing.T) {
	resetActivationRegistryForTests()
	t.Cleanup(resetActivationRegistryForTests)

	_, err := GetActivation("missing")
	if !errors.Is(err, ErrActivationNotFound) {
		t.Fatalf("expected ErrActivationNotFound, got: %v", err)
	}
}

func TestListActivationsSorted(t *testing.T) {
	resetActivationRegistryForTests()
	t.Cleanup(resetActivationRegistryForTests)

	if err := RegisterActivation("bb", func(x float64) float64 { return x }); err != nil {
		t.Fatalf("register bb: %v", err)
	}
	if err := RegisterActivation("aa", func(x float64) float64 { return x }); err != nil {
		t.Fatalf("register aa: %v", err)
	}

	names := ListActivations()
	if len(names) != 8 {
		t.Fatalf("expected built-ins plus custom activations, got: %+v", names)
	}
	if names[0] != "aa" || names[1] != "abs" {
		t.Fatalf("unexpected activation list: %+v", names)
	}
}

func TestBuiltinsAvailable(t *testing.T) {
	for _, name := range []string{"identity", "tanh", "sine", "gaussian", "sigmoid", "abs"} {
		fn, err := GetActivation(name)
		if err != nil {
			t.Fatalf("get builtin activation %s: %v", name, err)
		}
		_ = fn(1.0)
	}
}

func TestBuiltinShapes(t *testing.T) {
	gauss, err := GetActivation("gaussian")
	if err != nil {
		t.Fatalf("get gaussian: %v", err)
	}
	if got := gauss(0); got != 1.0 {
		t.Fatalf("gaussian(0): got=%f want=1", got)
	}

	sig, err := GetActivation("sigmoid")
	if err != nil {
		t.Fatalf("get sigmoid: %v", err)
	}
	if got := sig(0); got != 0.5 {
		t.Fatalf("sigmoid(0): got=%f want=0.5", got)
	}
	if got := sig(10); got < 0.99 {
		t.Fatalf("sigmoid(10) should saturate near 1, got=%f", got)
	}

	abs, err := GetActivation("abs")
	if err != nil {
		t.Fatalf("get abs: %v", err)
	}
	if got := abs(-2.5); got != 2.5 {
		t.Fatalf("abs(-2.5): got=%f want=2.5", got)
	}

	sine, err := GetActivation("sine")
	if err != nil {
		t.Fatalf("get sine: %v", err)
	}
	if got := sine(math.Pi / 2); math.Abs(got-1.0) > 1e-12 {
		t.Fatalf("sine(pi/2): got=%f want=1", got)
	}
}
