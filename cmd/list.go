package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/query-runner/internal/workspace"
)

func ListCommand() *cli.Command {
	return &cli.Command{
		Name:        "list",
		Usage:       "List queries in the predefined, favorites or history view",
		Description: `Display the entries of one workspace view, optionally narrowed by a case-insensitive search on title and description.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "view", Value: "predefined", Usage: "View to list (predefined, favorites, history)"},
			&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Only show entries matching this text"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			view, err := workspace.ParseView(cmd.String("view"))
			if err != nil {
				return err
			}

			out := cmd.Root().Writer

			return withSession(ctx, out, func(s *session) error {
				return runList(out, s, view, cmd.String("search"))
			})
		},
	}
}

func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the catalog by title and description",
		ArgsUsage: " <text>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected exactly 1 argument, got %d", cmd.Args().Len())
			}

			out := cmd.Root().Writer

			return withSession(ctx, out, func(s *session) error {
				return runList(out, s, workspace.ViewPredefined, cmd.Args().First())
			})
		},
	}
}

func runList(w io.Writer, s *session, view workspace.View, needle string) error {
	s.ws.SetSearchNeedle(needle)
	listing := s.ws.ListView(view)

	if view == workspace.ViewHistory {
		return s.format.RenderHistory(w, listing.History)
	}

	return s.format.RenderQueries(w, listing.Queries, s.ws.IsFavorite)
}
