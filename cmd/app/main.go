package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/saga/internal"
	pkgconfig "github.com/starford/saga/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if vaultPath := cmd.String("vault"); vaultPath != "" {
		cfg.Vault.Path = vaultPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runCheck(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	info, err := internal.Check(ctx, internal.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("validation run failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(info.Result); err != nil {
		return err
	}
	if !info.Result.Valid {
		return cli.Exit("validation failed", 1)
	}
	return nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func main() {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "vault",
			Usage:   "Path to the document vault (overrides config)",
			Sources: cli.EnvVars("SAGA_VAULT"),
		},
	}

	cmd := &cli.Command{
		Name:  "saga",
		Usage: "Narrative consistency validator for Markdown document vaults",
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "Run the validators once and print the result",
				Action: runCheck,
				Flags:  flags,
			},
			{
				Name:   "serve",
				Usage:  "Serve validation runs, history, and events over HTTP",
				Action: runServe,
				Flags:  flags,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
