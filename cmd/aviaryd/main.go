// Package main starts the aviary HTTP daemon.
//
// All configuration comes from AVIARY_* environment variables so the
// process drops into a container without flags. For an interactive
// equivalent use aviaryctl serve.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"aviary/internal/config"
	"aviary/internal/server"
	"aviary/internal/storage"
	"aviary/pkg/aviary"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	env, err := config.ParseEnv()
	if err != nil {
		return err
	}

	profile := config.DefaultProfile()
	if env.Profile != "" {
		profile, err = config.LoadProfile(env.Profile)
		if err != nil {
			return err
		}
	}

	svc, err := aviary.New(aviary.Options{
		StoreKind:     env.Store,
		DBPath:        env.DBPath,
		Profile:       profile,
		SessionTTL:    env.SessionTTL,
		SweepInterval: env.SweepInterval,
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

	store := env.Store
	if store == "" {
		store = storage.DefaultStoreKind()
	}
	fmt.Printf("listening addr=%s store=%s\n", env.Addr, store)
	if err := server.New(svc).ListenAndServe(ctx, env.Addr); err != nil {
		return err
	}
	fmt.Println("shutdown complete")
	return nil
}
