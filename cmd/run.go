package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"

	"github.com/kyleking/query-runner/internal/formatter"
)

type runOptions struct {
	title  string
	sql    string
	csv    bool
	format formatter.OutputFormat
}

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute a query against the simulated backend",
		Description: `Select the titled query (or keep the current selection), optionally replace the
editor text with --sql, execute it and print the result. The run is recorded
in the history.`,
		ArgsUsage: " [title]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sql", Usage: "SQL text to execute instead of the query's own"},
			&cli.BoolFlag{Name: "csv", Usage: "Export the result as CSV after it arrives"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "table", Usage: "Output format (table, markdown, json)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format, err := formatter.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}

			opts := runOptions{
				title:  cmd.Args().First(),
				sql:    cmd.String("sql"),
				csv:    cmd.Bool("csv"),
				format: format,
			}

			out := cmd.Root().Writer
			errOut := cmd.Root().ErrWriter

			return withSession(ctx, out, func(s *session) error {
				return runQuery(ctx, out, errOut, s, opts)
			})
		},
	}
}

func runQuery(ctx context.Context, w, errOut io.Writer, s *session, opts runOptions) error {
	if opts.title != "" {
		if _, err := s.ws.SelectByTitle(opts.title); err != nil {
			return err
		}
	}

	if opts.sql != "" {
		s.ws.EditBuffer(opts.sql)
	}

	exec := s.ws.Execute()

	var sp *spinner.Spinner
	if s.format.IsTTY() && errOut != nil {
		sp = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(errOut))
		sp.Suffix = " Executing " + exec.Title
		sp.Start()
	}

	outcome, err := exec.Wait(ctx)

	if sp != nil {
		sp.Stop()
	}

	if err != nil {
		return err
	}

	if err := s.format.RenderResult(w, outcome.Table, opts.format); err != nil {
		return err
	}

	if opts.format != formatter.FormatJSON {
		if _, err := fmt.Fprintln(w, formatter.ExecutionSummary(outcome.Elapsed)); err != nil {
			return err
		}
	}

	if !opts.csv {
		return nil
	}

	location, exported, err := s.ws.ExportCSV(ctx)
	if err != nil {
		return err
	}

	if !exported {
		_, err = fmt.Fprintln(w, "Nothing to export")
		return err
	}

	_, err = fmt.Fprintf(w, "Exported to %s\n", location)

	return err
}
