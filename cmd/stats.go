package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/query-runner/internal/storage"
)

func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:        "stats",
		Usage:       "Display workspace statistics",
		Description: `Show counts for the catalog, favorites and history, plus database statistics when persistence is enabled.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			out := cmd.Root().Writer

			return withSession(ctx, out, func(s *session) error {
				return runStats(ctx, out, s)
			})
		},
	}
}

func ResetCommand() *cli.Command {
	return &cli.Command{
		Name:        "reset",
		Usage:       "Delete persisted user queries, favorites and history",
		Description: `Clear the workspace database and the cached editor draft. Predefined queries are not affected.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			out := cmd.Root().Writer

			s, err := openSession(ctx, sessionOptions{out: out})
			if err != nil {
				return err
			}
			defer s.closeAndLog()

			return runReset(ctx, out, s)
		},
	}
}

func runStats(ctx context.Context, w io.Writer, s *session) error {
	var stored *storage.Stats

	if s.repo != nil {
		var err error

		stored, err = s.repo.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("failed to get statistics: %w", err)
		}
	}

	return s.format.RenderStats(w, s.ws.Stats(), stored)
}

func runReset(ctx context.Context, w io.Writer, s *session) error {
	drafts, fc, err := s.drafts()
	if err != nil {
		return err
	}
	defer fc.Close()

	if err := drafts.Discard(ctx); err != nil {
		return err
	}

	if s.repo == nil {
		_, err := fmt.Fprintln(w, "Persistence is disabled; cleared the cached draft only")
		return err
	}

	if err := s.repo.Clear(ctx); err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, "Workspace cleared")

	return err
}
