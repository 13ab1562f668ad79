package cmd

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/query-runner/internal/config"
	"github.com/kyleking/query-runner/internal/logging"
)

type contextKey string

const (
	configKey contextKey = "config"
	loggerKey contextKey = "logger"
)

// NewApp builds the root command with every subcommand attached
func NewApp() *cli.Command {
	return &cli.Command{
		Name:  "query-runner",
		Usage: "Browse, run and export SQL queries against canned results",
		Description: `query-runner is a SQL query workspace. It keeps a catalog of predefined and
user-written queries, favorites and an execution history, runs queries against
a simulated backend with canned results, and exports results as CSV.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db-path", Usage: "DuckDB file used to persist the workspace"},
			&cli.BoolFlag{Name: "no-persist", Usage: "Keep the workspace in memory only"},
			&cli.StringFlag{Name: "latency", Usage: "Simulated execution latency (e.g. 800ms)"},
			&cli.StringFlag{Name: "export-dir", Usage: "Directory CSV exports are written to"},
			&cli.StringFlag{Name: "catalog", Usage: "YAML file replacing the built-in query catalog"},
			&cli.StringFlag{Name: "log-level", Usage: "Log level (debug, info, warn, error)"},
			&cli.BoolFlag{Name: "dark", Usage: "Start with the dark theme"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Enable verbose output"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug mode"},
		},
		Before: setupConfig,
		After: func(ctx context.Context, _ *cli.Command) error {
			return getLoggerFromContext(ctx).Close()
		},
		Commands: []*cli.Command{
			ListCommand(),
			SearchCommand(),
			InfoCommand(),
			AddCommand(),
			DeleteCommand(),
			UpdateCommand(),
			FavoriteCommand(),
			RunCommand(),
			HistoryCommand(),
			StatsCommand(),
			ResetCommand(),
			ConfigCommand(),
			ShellCommand(),
		},
	}
}

// Execute runs the application with the process arguments
func Execute() error {
	return NewApp().Run(context.Background(), os.Args)
}

func setupConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	overrides := map[string]any{
		"db-path":    cmd.String("db-path"),
		"no-persist": cmd.Bool("no-persist"),
		"latency":    cmd.String("latency"),
		"export-dir": cmd.String("export-dir"),
		"catalog":    cmd.String("catalog"),
		"log-level":  cmd.String("log-level"),
		"dark":       cmd.Bool("dark"),
		"verbose":    cmd.Bool("verbose"),
		"debug":      cmd.Bool("debug"),
	}

	cfg, err := config.LoadConfigWithOverrides(overrides)
	if err != nil {
		return ctx, err
	}

	cfg.ExpandAllPaths()

	if cfg.Debug.Verbose || cfg.Debug.Enabled {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return ctx, err
	}

	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)

	return ctx, nil
}

func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok && cfg != nil {
		return cfg
	}

	return config.DefaultConfig()
}

func getLoggerFromContext(ctx context.Context) *logging.Logger {
	if logger, ok := ctx.Value(loggerKey).(*logging.Logger); ok && logger != nil {
		return logger
	}

	return logging.NewNopLogger()
}
