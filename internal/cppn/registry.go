package cppn

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var (
	ErrActivationExists   = errors.New("activation already registered")
	ErrActivationNotFound = errors.New("activation not found")
)

// ActivationFunc must be pure: identical inputs always produce identical
// outputs, with no hidden state. Evaluation determinism depends on it.
type ActivationFunc func(x float64) float64

var activationRegistry = struct {
	mu sync.RWMutex
	m  map[string]ActivationFunc
}{
	m: make(map[string]ActivationFunc),
}

func init() {
	registerBuiltinActivations()
}

func registerBuiltinActivations() {
	MustRegisterActivation("identity", func(x float64) float64 { return x })
	MustRegisterActivation("tanh", math.Tanh)
	MustRegisterActivation("sine", math.Sin)
	MustRegisterActivation("abs", math.Abs)
	MustRegisterActivation("gaussian", func(x float64) float64 {
		return math.Exp(-x * x / 2.0)
	})
	// Steepened sigmoid, the usual CPPN choice.
	MustRegisterActivation("sigmoid", func(x float64) float64 {
		return 1.0 / (1.0 + math.Exp(-4.9*x))
	})
}

func RegisterActivation(name string, fn ActivationFunc) error {
	if name == "" {
		return errors.New("activation name is required")
	}
	if fn == nil {
		return errors.New("activation function is required")
	}

	activationRegistry.mu.Lock()
	defer activationRegistry.mu.Unlock()

	if _, exists := activationRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrActivationExists, name)
	}
	activationRegistry.m[name] = fn
	return nil
}

func MustRegisterActivation(name string, fn ActivationFunc) {
	if err := RegisterActivation(name, fn); err != nil {
		panic(err)
	}
}

func GetActivation(name string) (ActivationFunc, error) {
	activationRegistry.mu.RLock()
	fn, ok := activationRegistry.m[name]
	activationRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActivationNotFound, name)
	}
	return fn, nil
}

// ListActivations returns all registered names in sorted order.
func ListActivations() []string {
	activationRegistry.mu.RLock()
	defer activationRegistry.mu.RUnlock()

	names := make([]string, 0, len(activationRegistry.m))
	for name := range activationRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetActivationRegistryForTests() {
	activationRegistry.mu.Lock()
	activationRegistry.m = make(map[string]ActivationFunc)
	activationRegistry.mu.Unlock()
	registerBuiltinActivations()
}
