package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/query-runner/internal/errors"
)

func InfoCommand() *cli.Command {
	return &cli.Command{
		Name:        "info",
		Usage:       "Display detailed information about a query",
		Description: `Show the origin, description and SQL text of a catalog entry or favorite.`,
		ArgsUsage:   " <title>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 1 {
				return fmt.Errorf("expected exactly 1 argument, got %d", args.Len())
			}

			out := cmd.Root().Writer

			return withSession(ctx, out, func(s *session) error {
				return runInfo(out, s, args.First())
			})
		},
	}
}

func runInfo(w io.Writer, s *session, title string) error {
	q, ok := findQuery(s.ws, title)
	if !ok {
		return errors.NewNotFoundError("query", title).WithSuggestion("Run 'list' to see available titles")
	}

	_, err := fmt.Fprintln(w, s.format.QueryDetail(q, s.ws.IsFavorite(q.Title)))

	return err
}
