package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mosaiclabs/soltss/pkg/api"
	"github.com/mosaiclabs/soltss/pkg/config"
	"github.com/mosaiclabs/soltss/pkg/logger"
	"github.com/mosaiclabs/soltss/pkg/musig"
	"github.com/mosaiclabs/soltss/pkg/session"
	"github.com/mosaiclabs/soltss/pkg/sigstore"
	"github.com/mosaiclabs/soltss/pkg/types"
)

const Version = "0.2.0"

func main() {
	app := &cli.Command{
		Name:    "soltssd",
		Usage:   "Solana wallet daemon with aggregated Ed25519 signing",
		Version: Version,
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Start the wallet daemon",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "listen",
						Aliases: []string{"l"},
						Usage:   "API listen address",
					},
					&cli.StringFlag{
						Name:  "network",
						Usage: "Default cluster: mainnet, testnet or devnet",
					},
					&cli.BoolFlag{
						Name:  "debug",
						Usage: "Enable debug logging",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runDaemon(ctx, c)
				},
			},
			{
				Name:  "version",
				Usage: "Display version information",
				Action: func(ctx context.Context, c *cli.Command) error {
					fmt.Printf("soltssd version %s\n", Version)
					return nil
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runDaemon(ctx context.Context, c *cli.Command) error {
	config.InitViperConfig()
	cfg := config.Load()

	// Flags override file and environment config.
	if c.String("listen") != "" {
		cfg.ListenAddr = c.String("listen")
	}
	if c.String("network") != "" {
		cfg.Network = types.Network(c.String("network"))
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	if !types.IsNetworkSupported(string(cfg.Network)) {
		return fmt.Errorf("unsupported network %q", cfg.Network)
	}

	logger.Init(cfg.Environment, cfg.Debug)
	log := logger.Get()
	logger.Info("Starting wallet daemon",
		"version", Version,
		"environment", cfg.Environment,
		"network", string(cfg.Network),
		"listen", cfg.ListenAddr,
	)

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	sessions := session.NewStore(cfg.SessionTTL, cfg.SweepInterval, log)
	defer sessions.Close()

	sigs, err := sigstore.Open(filepath.Join(cfg.DataDir, "signatures"), log)
	if err != nil {
		return fmt.Errorf("open signature store: %w", err)
	}
	defer sigs.Close()

	engine := musig.NewEngine(sessions, log)
	server := api.NewServer(cfg, engine, sigs, api.DefaultDialer(log), log)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		logger.Warn("Shutdown signal received, stopping...")
	case <-ctx.Done():
		logger.Warn("Context canceled, stopping...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", err)
		return err
	}
	logger.Info("Daemon stopped")
	return nil
}
