package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aviary/internal/config"
	"aviary/internal/constraint"
	"aviary/internal/cppn"
	"aviary/internal/evo"
	"aviary/internal/model"
	"aviary/internal/phenotype"
	"aviary/internal/platform"
	"aviary/internal/server"
	"aviary/internal/session"
	"aviary/internal/storage"
	"aviary/pkg/aviary"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "decode":
		return runDecode(ctx, args[1:])
	case "check":
		return runCheck(ctx, args[1:])
	case "gallery":
		return runGallery(ctx, args[1:])
	case "serve":
		return runServe(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: aviaryctl <run|decode|check|gallery|serve> [flags]", msg)
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	drones := fs.Int("drones", session.DefaultNumDrones, "drone count")
	population := fs.Int("population", evo.DefaultPopulationSize, "population size")
	generations := fs.Int("generations", defaultGenerations, "generation count")
	duration := fs.Float64("duration", aviary.DefaultDuration, "animation length in seconds used for scoring")
	seed := fs.Int64("seed", 1, "rng seed")
	profilePath := fs.String("profile", "", "optional engine profile path (ini)")
	saveBest := fs.Bool("save-best", false, "archive the best animation of the final generation")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "gallery store backend: memory|sqlite")
	dbPath := fs.String("db-path", "gallery.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	cfg, err := loadOrDefaultRunConfig(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		cfg = runConfig{
			Drones:      *drones,
			Population:  *population,
			Generations: *generations,
			Duration:    *duration,
			Seed:        *seed,
			Profile:     *profilePath,
			SaveBest:    *saveBest,
			Store:       *storeKind,
			DBPath:      *dbPath,
		}
	} else {
		overrideRunConfigFromFlags(&cfg, setFlags, map[string]any{
			"drones":      *drones,
			"population":  *population,
			"generations": *generations,
			"duration":    *duration,
			"seed":        *seed,
			"profile":     *profilePath,
			"save-best":   *saveBest,
			"store":       *storeKind,
			"db-path":     *dbPath,
		})
	}
	if cfg.Generations < 1 {
		return errors.New("generations must be >= 1")
	}

	profile, err := loadOrDefaultProfile(cfg.Profile)
	if err != nil {
		return err
	}

	svc, err := aviary.New(aviary.Options{
		StoreKind: cfg.Store,
		DBPath:    cfg.DBPath,
		Profile:   profile,
	})
	if err != nil {
		return err
	}
	if err := svc.Init(ctx); err != nil {
		return err
	}
	defer func() {
		_ = svc.Close()
	}()

	info, err := svc.CreateSession(aviary.SessionConfig{
		NumDrones:      cfg.Drones,
		PopulationSize: cfg.Population,
		Seed:           cfg.Seed,
	})
	if err != nil {
		return err
	}

	var bestAnim model.Animation
	var bestID int
	var best float64
	for g := 0; g < cfg.Generations; g++ {
		genomes, err := svc.Genomes(info.SessionID)
		if err != nil {
			return err
		}
		best = -1
		sum := 0.0
		for _, id := range genomes.GenomeIDs {
			anim, err := svc.Pattern(info.SessionID, id, cfg.Duration)
			if err != nil {
				return err
			}
			score := phenotype.Score(anim, cfg.Duration)
			if err := svc.AssignFitness(info.SessionID, id, score); err != nil {
				return err
			}
			sum += score
			if score > best {
				best = score
				bestID = id
				bestAnim = anim
			}
		}
		assigned := len(genomes.GenomeIDs)
		fmt.Printf("generation=%d best_fitness=%.6f mean_fitness=%.6f assigned=%d\n",
			genomes.Generation, best, sum/float64(assigned), assigned)

		if cfg.SaveBest && g == cfg.Generations-1 {
			structure, err := svc.Structure(info.SessionID, bestID)
			if err != nil {
				return err
			}
			animJSON, err := json.Marshal(bestAnim)
			if err != nil {
				return err
			}
			cppnJSON, err := json.Marshal(structure)
			if err != nil {
				return err
			}
			savedID, err := svc.SaveAnimation(ctx, animJSON, cppnJSON)
			if err != nil {
				return err
			}
			fmt.Printf("saved_animation_id=%d genome_id=%d fitness=%.6f\n", savedID, bestID, best)
		}

		if _, err := svc.Evolve(ctx, info.SessionID, 0); err != nil {
			return err
		}
	}

	status, err := svc.Status(info.SessionID)
	if err != nil {
		return err
	}
	fmt.Printf("run completed session=%s generation=%d population=%d drones=%d seed=%d\n",
		info.SessionID, status.Generation, status.PopulationSize, status.NumDrones, cfg.Seed)
	return nil
}

func runDecode(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	genomePath := fs.String("genome", "", "genome JSON path (omit to seed a fresh genome)")
	outPath := fs.String("out", "animation.json", "output animation JSON path")
	drones := fs.Int("drones", session.DefaultNumDrones, "drone count")
	duration := fs.Float64("duration", aviary.DefaultDuration, "animation length in seconds")
	seed := fs.Int64("seed", 1, "rng seed for the fresh genome")
	profilePath := fs.String("profile", "", "optional engine profile path (ini)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	profile, err := loadOrDefaultProfile(*profilePath)
	if err != nil {
		return err
	}

	var g cppn.Genome
	if *genomePath != "" {
		data, err := os.ReadFile(*genomePath)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &g); err != nil {
			return fmt.Errorf("decode genome %s: %w", *genomePath, err)
		}
		if err := cppn.Validate(g); err != nil {
			return fmt.Errorf("genome %s: %w", *genomePath, err)
		}
	} else {
		mgr, err := evo.NewManager(evo.ManagerConfig{
			PopulationSize: 1,
			Seed:           *seed,
			Params:         profile.EvoParams(),
		})
		if err != nil {
			return err
		}
		g, err = mgr.Genome(0)
		if err != nil {
			return err
		}
	}

	anim, err := profile.PhenotypeDecoder().Decode(g, *drones, *duration)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(anim, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("decoded genome=%d drones=%d duration=%.1f frames=%d out=%s\n",
		g.ID, *drones, *duration, len(anim.Frames), *outPath)
	return nil
}

func runCheck(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	inPath := fs.String("in", "", "animation JSON path")
	profilePath := fs.String("profile", "", "optional engine profile path (ini)")
	verbose := fs.Bool("verbose", false, "print each violation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return errors.New("check requires -in")
	}

	profile, err := loadOrDefaultProfile(*profilePath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(*inPath)
	if err != nil {
		return err
	}
	var anim model.Animation
	if err := json.Unmarshal(data, &anim); err != nil {
		return fmt.Errorf("decode animation %s: %w", *inPath, err)
	}

	checker, err := constraint.NewChecker(profile.ConstraintParams())
	if err != nil {
		return err
	}
	result := checker.Check(anim)
	fmt.Printf("animation=%d frames=%d valid=%t bounds=%d h_speed=%d v_speed=%d distance=%d min_distance=%.3f\n",
		anim.ID,
		len(anim.Frames),
		result.Passes(),
		result.BoundsViolations,
		result.HorizontalSpeedViolations,
		result.VerticalSpeedViolations,
		result.DistanceViolations,
		result.MinDistanceObserved,
	)
	if *verbose {
		for _, v := range result.Violations {
			if v.OtherDrone != nil {
				fmt.Printf("violation frame=%d t=%.3f rule=%s drone=%d other_drone=%d value=%.3f limit=%.3f\n",
					v.Frame, v.T, v.Rule, v.Drone, *v.OtherDrone, v.Value, v.Limit)
				continue
			}
			fmt.Printf("violation frame=%d t=%.3f rule=%s drone=%d value=%.3f limit=%.3f\n",
				v.Frame, v.T, v.Rule, v.Drone, v.Value, v.Limit)
		}
	}
	return nil
}

func runGallery(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gallery", flag.ContinueOnError)
	list := fs.Bool("list", false, "list archived animations")
	show := fs.Int64("show", 0, "print one archived animation as JSON")
	remove := fs.Int64("delete", 0, "delete one archived animation")
	offset := fs.Int("offset", 0, "list offset")
	limit := fs.Int("limit", 50, "list page size")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "gallery store backend: memory|sqlite")
	dbPath := fs.String("db-path", "gallery.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	selected := 0
	if *list {
		selected++
	}
	if *show != 0 {
		selected++
	}
	if *remove != 0 {
		selected++
	}
	if selected != 1 {
		return errors.New("gallery requires exactly one of -list, -show or -delete")
	}

	svc, err := aviary.New(aviary.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	if err := svc.Init(ctx); err != nil {
		return err
	}
	defer func() {
		_ = svc.Close()
	}()

	switch {
	case *list:
		items, err := svc.GalleryList(ctx, *offset, *limit)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("no archived animations")
			return nil
		}
		for _, item := range items {
			fmt.Printf("id=%d created_at=%s\n", item.ID, item.CreatedAt.Format(time.RFC3339))
		}
		return nil
	case *show != 0:
		entry, err := svc.GalleryGet(ctx, *show)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	default:
		if err := svc.GalleryDelete(ctx, *remove); err != nil {
			return err
		}
		fmt.Printf("deleted id=%d\n", *remove)
		return nil
	}
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", ":8080", "listen address")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "gallery store backend: memory|sqlite")
	dbPath := fs.String("db-path", "gallery.db", "sqlite database path")
	profilePath := fs.String("profile", "", "optional engine profile path (ini)")
	sessionTTL := fs.Duration("session-ttl", session.DefaultTTL, "idle session lifetime")
	sweepInterval := fs.Duration("sweep-interval", platform.DefaultSweepInterval, "expired session sweep cadence")
	if err := fs.Parse(args); err != nil {
		return err
	}

	profile, err := loadOrDefaultProfile(*profilePath)
	if err != nil {
		return err
	}
	svc, err := aviary.New(aviary.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		Profile:       profile,
		SessionTTL:    *sessionTTL,
		SweepInterval: *sweepInterval,
	})
	if err != nil {
		return err
	}
	if err := svc.Init(ctx); err != nil {
		return err
	}
	defer func() {
		_ = svc.Close()
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("listening addr=%s store=%s\n", *addr, *storeKind)
	if err := server.New(svc).ListenAndServe(ctx, *addr); err != nil {
		return err
	}
	fmt.Println("shutdown complete")
	return nil
}

func loadOrDefaultProfile(path string) (config.Profile, error) {
	if path == "" {
		return config.DefaultProfile(), nil
	}
	return config.LoadProfile(path)
}
