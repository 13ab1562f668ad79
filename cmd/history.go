package cmd

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/query-runner/internal/workspace"
)

func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show executed queries, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Only show entries matching this text"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			out := cmd.Root().Writer

			return withSession(ctx, out, func(s *session) error {
				return runList(out, s, workspace.ViewHistory, cmd.String("search"))
			})
		},
	}
}
