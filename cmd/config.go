package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/query-runner/internal/config"
	"github.com/kyleking/query-runner/internal/errors"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:        "config",
		Usage:       "Display the active configuration",
		Description: `Show the current active configuration including all settings from file, environment variables, and command-line flags.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runConfig(cmd.Root().Writer, getConfigFromContext(ctx))
		},
	}
}

func runConfig(w io.Writer, cfg *config.Config) error {
	if cfg == nil {
		return errors.NewConfigError("failed to load configuration", "")
	}

	fmt.Fprintln(w, "Active Configuration:")

	fmt.Fprintln(w, "\nDatabase:")
	fmt.Fprintf(w, "  Path: %s\n", cfg.Database.Path)
	fmt.Fprintf(w, "  Persist: %t\n", cfg.Database.Persist)
	fmt.Fprintf(w, "  Query Timeout: %s\n", cfg.Database.QueryTimeout)

	fmt.Fprintln(w, "\nWorkspace:")
	fmt.Fprintf(w, "  Latency: %s\n", cfg.Workspace.Latency)
	fmt.Fprintf(w, "  Default Query: %s\n", cfg.Workspace.DefaultQuery)
	fmt.Fprintf(w, "  Export Directory: %s\n", cfg.Workspace.ExportDir)
	fmt.Fprintf(w, "  Clipboard Ack: %s\n", cfg.Workspace.ClipboardAck)

	if cfg.Workspace.HistoryLimit > 0 {
		fmt.Fprintf(w, "  History Limit: %d\n", cfg.Workspace.HistoryLimit)
	} else {
		fmt.Fprintln(w, "  History Limit: unlimited")
	}

	if cfg.Workspace.CatalogFile != "" {
		fmt.Fprintf(w, "  Catalog File: %s\n", cfg.Workspace.CatalogFile)
	}

	fmt.Fprintln(w, "\nCache:")
	fmt.Fprintf(w, "  Directory: %s\n", cfg.Cache.Directory)
	fmt.Fprintf(w, "  TTL: %d hours\n", cfg.Cache.TTLHours)
	fmt.Fprintf(w, "  Cleanup Frequency: %s\n", cfg.Cache.CleanupFreq)

	fmt.Fprintln(w, "\nUI:")
	fmt.Fprintf(w, "  Dark: %t\n", cfg.UI.Dark)

	fmt.Fprintln(w, "\nLogging:")
	fmt.Fprintf(w, "  Level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(w, "  Format: %s\n", cfg.Logging.Format)
	fmt.Fprintf(w, "  Output: %s\n", cfg.Logging.Output)

	if cfg.Logging.Output == "file" {
		fmt.Fprintf(w, "  File: %s\n", cfg.Logging.File)
	}

	fmt.Fprintf(w, "  Add Source: %t\n", cfg.Logging.AddSource)

	fmt.Fprintln(w, "\nDebug:")
	fmt.Fprintf(w, "  Enabled: %t\n", cfg.Debug.Enabled)
	fmt.Fprintf(w, "  Verbose: %t\n", cfg.Debug.Verbose)

	if cfg.Debug.Enabled {
		fmt.Fprintln(w, "\nRaw Configuration (JSON):")

		jsonData, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}

		fmt.Fprintln(w, string(jsonData))
	}

	return nil
}
