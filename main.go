package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal("autopilot", "err", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	clientDir := flag.String("client", "", "Path to client directory (default: ../client if present)")
	seed := flag.Uint64("seed", 0, "Random seed (overrides config, 0 keeps it)")
	variant := flag.String("variant", "", "Rule set: classic or wrap (overrides config)")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *clientDir != "" {
		cfg.ClientDir = *clientDir
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *variant != "" {
		cfg.Variant = *variant
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if cfg.ClientDir == "" {
		cfg.ClientDir = defaultClientDir()
	}

	logger, err := NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	v, err := cfg.PlannerVariant()
	if err != nil {
		return err
	}

	tel := NewTelemetry(cfg.Telemetry, logger)
	defer tel.Stop()

	auth, err := NewAuth(cfg.Auth)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if !auth.Enabled() {
		logger.Warn("no operator passphrase configured, control is disabled")
	}

	hub := NewHub(auth, tel, logger)
	game, err := NewGame(cfg.Arena, v, cfg.Seed, cfg.Spawn, GameOptions{
		TickRate:       cfg.TickRate,
		BroadcastEvery: cfg.BroadcastEvery,
		SpawnEvery:     cfg.Spawn.Every,
		Trails:         cfg.Trails,
	}, hub, tel, logger)
	if err != nil {
		return fmt.Errorf("game: %w", err)
	}
	hub.Attach(game)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           SetupRoutes(hub, game, tel, cfg.ClientDir, cfg.PublicURL),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error { return game.Run(ctx) })
	g.Go(func() error {
		logger.Info("server starting", "addr", cfg.Addr, "variant", v.Name, "seed", cfg.Seed, "client", cfg.ClientDir)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(sctx)
	})
	return g.Wait()
}

// defaultClientDir looks for a client directory next to the binary, then in
// the parent of the working directory. Empty disables static serving.
func defaultClientDir() string {
	exe, _ := os.Executable()
	for _, dir := range []string{
		filepath.Join(filepath.Dir(exe), "..", "client"),
		"../client",
	} {
		if _, err := os.Stat(filepath.Join(dir, "index.html")); err == nil {
			return dir
		}
	}
	return ""
}
