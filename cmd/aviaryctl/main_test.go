package main

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aviary/internal/cppn"
	"aviary/internal/model"
)

// captureStdout swaps os.Stdout for a pipe while fn runs so tests can
// assert on the key=value lines the commands print.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	runErr := fn()
	os.Stdout = orig
	if err := w.Close(); err != nil {
		t.Fatalf("close pipe: %v", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read pipe: %v", err)
	}
	return string(data), runErr
}

func TestRunCommand(t *testing.T) {
	ctx := context.Background()
	args := []string{
		"run", "-store", "memory",
		"-drones", "2", "-population", "4",
		"-generations", "2", "-duration", "0.5", "-seed", "7",
	}

	out, err := captureStdout(t, func() error { return run(ctx, args) })
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if got := strings.Count(out, "best_fitness="); got != 2 {
		t.Errorf("generation lines = %d, want 2\noutput:\n%s", got, out)
	}
	if !strings.Contains(out, "run completed") {
		t.Errorf("missing completion line in output:\n%s", out)
	}
	if !strings.Contains(out, "population=4 drones=2 seed=7") {
		t.Errorf("completion line lacks run parameters:\n%s", out)
	}
}

func TestRunCommandSaveBest(t *testing.T) {
	ctx := context.Background()
	args := []string{
		"run", "-store", "memory", "-save-best",
		"-drones", "2", "-population", "4",
		"-generations", "1", "-duration", "0.5", "-seed", "11",
	}

	out, err := captureStdout(t, func() error { return run(ctx, args) })
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !strings.Contains(out, "saved_animation_id=1 ") {
		t.Errorf("expected best genome to land in the gallery:\n%s", out)
	}
}

func TestRunCommandFromConfigFile(t *testing.T) {
	path := writeRunConfig(t, map[string]any{
		"drones":      2,
		"population":  4,
		"generations": 1,
		"duration":    0.5,
		"seed":        9,
		"store":       "memory",
	})
	ctx := context.Background()
	args := []string{"run", "-config", path, "-generations", "2"}

	out, err := captureStdout(t, func() error { return run(ctx, args) })
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if got := strings.Count(out, "best_fitness="); got != 2 {
		t.Errorf("generation lines = %d, want flag to override config file\noutput:\n%s", got, out)
	}
}

func TestRunCommandRejectsZeroGenerations(t *testing.T) {
	err := run(context.Background(), []string{"run", "-store", "memory", "-generations", "0"})
	if err == nil || !strings.Contains(err.Error(), "generations") {
		t.Fatalf("expected generations validation error, got %v", err)
	}
}

func TestDecodeThenCheck(t *testing.T) {
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "animation.json")

	err := run(ctx, []string{
		"decode", "-out", out,
		"-drones", "2", "-duration", "1.0", "-seed", "5",
	})
	if err != nil {
		t.Fatalf("decode command: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read animation: %v", err)
	}
	var anim model.Animation
	if err := json.Unmarshal(data, &anim); err != nil {
		t.Fatalf("unmarshal animation: %v", err)
	}
	if len(anim.Frames) != 26 {
		t.Errorf("frames = %d, want 26 for a one second animation", len(anim.Frames))
	}
	if len(anim.Frames[0].Drones) != 2 {
		t.Errorf("drones = %d, want 2", len(anim.Frames[0].Drones))
	}

	if err := run(ctx, []string{"check", "-in", out}); err != nil {
		t.Fatalf("check command: %v", err)
	}
}

func TestDecodeFromGenomeFile(t *testing.T) {
	next := 0
	innovationFor := func(from, to int) int {
		next++
		return next - 1
	}
	genome := cppn.NewMinimalGenome(7, innovationFor, rand.New(rand.NewSource(3)))

	dir := t.TempDir()
	genomePath := filepath.Join(dir, "genome.json")
	data, err := json.Marshal(genome)
	if err != nil {
		t.Fatalf("marshal genome: %v", err)
	}
	if err := os.WriteFile(genomePath, data, 0o644); err != nil {
		t.Fatalf("write genome: %v", err)
	}

	out := filepath.Join(dir, "animation.json")
	err = run(context.Background(), []string{
		"decode", "-genome", genomePath, "-out", out,
		"-drones", "3", "-duration", "0.5",
	})
	if err != nil {
		t.Fatalf("decode command: %v", err)
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read animation: %v", err)
	}
	var anim model.Animation
	if err := json.Unmarshal(raw, &anim); err != nil {
		t.Fatalf("unmarshal animation: %v", err)
	}
	if anim.ID != 7 {
		t.Errorf("animation id = %d, want genome id 7", anim.ID)
	}
}

func TestCheckRequiresInput(t *testing.T) {
	err := run(context.Background(), []string{"check"})
	if err == nil || !strings.Contains(err.Error(), "-in") {
		t.Fatalf("expected missing -in error, got %v", err)
	}
}

func TestGalleryFlagValidation(t *testing.T) {
	ctx := context.Background()
	if err := run(ctx, []string{"gallery", "-store", "memory"}); err == nil {
		t.Fatal("expected error when no action flag is given")
	}
	err := run(ctx, []string{"gallery", "-store", "memory", "-list", "-show", "1"})
	if err == nil || !strings.Contains(err.Error(), "exactly one") {
		t.Fatalf("expected exactly-one error, got %v", err)
	}
}

func TestGalleryListEmpty(t *testing.T) {
	out, err := captureStdout(t, func() error {
		return run(context.Background(), []string{"gallery", "-list", "-store", "memory"})
	})
	if err != nil {
		t.Fatalf("gallery list: %v", err)
	}
	if !strings.Contains(out, "no archived animations") {
		t.Errorf("unexpected list output:\n%s", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"orbit"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if err := run(context.Background(), nil); err == nil {
		t.Fatal("expected usage error for missing command")
	}
}
