package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/mdserve/internal"
	pkgconfig "github.com/starford/mdserve/pkg/config"
)

// loadConfig reads the optional config file and applies flag overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("bind") {
		cfg.App.HTTP.Bind = cmd.String("bind")
	}
	if cmd.IsSet("root") {
		cfg.Serve.Root = cmd.String("root")
	}
	if cmd.Bool("verbose") {
		cfg.App.LogLevel = slog.LevelDebug
	}
	if cmd.Bool("no-index") {
		cfg.Index.Enabled = false
	}
	if cmd.Bool("no-watch") {
		cfg.Watch.Enabled = false
	}
	if entry := cmd.Args().First(); entry != "" {
		cfg.Serve.Entry = entry
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// Changes are not pushed over stdio.
	cfg.Watch.Enabled = false

	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:      "mdserve",
		Usage:     "Serve a directory of Markdown documents as HTML",
		ArgsUsage: "[ENTRY]",
		Action:    run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "mdserve.yaml",
				Value:       "mdserve.yaml",
				Sources:     cli.EnvVars("MDSERVE_CONFIG"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP port",
			},
			&cli.StringFlag{
				Name:  "bind",
				Usage: "Address to bind",
			},
			&cli.StringFlag{
				Name:  "root",
				Usage: "Directory to serve (default: derived from ENTRY)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log at debug level",
			},
			&cli.BoolFlag{
				Name:  "no-index",
				Usage: "Disable the backlinks and search index",
			},
			&cli.BoolFlag{
				Name:  "no-watch",
				Usage: "Disable filesystem watching and change events",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "mcp",
				Usage:     "Serve the same tree over MCP on stdin/stdout",
				ArgsUsage: "[ENTRY]",
				Action:    runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
