package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v3"

	"github.com/kyleking/query-runner/internal/cache"
	"github.com/kyleking/query-runner/internal/config"
	"github.com/kyleking/query-runner/internal/errors"
	"github.com/kyleking/query-runner/internal/formatter"
	"github.com/kyleking/query-runner/internal/workspace"
)

const (
	shellPrompt      = "query> "
	shellPromptEdits = "query*> "
)

func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Start an interactive workspace session",
		Description: `Open a line-oriented workspace. Plain lines are appended to the editor buffer;
lines starting with a dot are commands (.help lists them). The workspace is
saved on exit and the editor buffer is kept as a draft for the next session.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "table", Usage: "Result format (table, markdown, json)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format, err := formatter.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}

			return runShell(ctx, cmd.Root().Writer, cmd.Root().ErrWriter, format)
		},
	}
}

// shell holds the state of one interactive session
type shell struct {
	s      *session
	out    io.Writer
	errOut io.Writer
	format formatter.OutputFormat
	drafts *cache.Drafts
}

func runShell(ctx context.Context, out, errOut io.Writer, format formatter.OutputFormat) error {
	sh := &shell{format: format, out: out, errOut: errOut}

	s, err := openSession(ctx, sessionOptions{
		out:        out,
		onComplete: sh.completed,
	})
	if err != nil {
		return err
	}
	defer s.closeAndLog()

	sh.s = s

	historyDir := config.GetConfigDir()
	if err := os.MkdirAll(historyDir, 0755); err != nil {
		s.logger.ErrorWithErr("shell history unavailable", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shellPrompt,
		HistoryFile:     filepath.Join(historyDir, "shell_history"),
		AutoComplete:    sh.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          out,
		Stderr:          errOut,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	sh.out = rl.Stdout()
	sh.errOut = rl.Stderr()

	drafts, fc, err := s.drafts()
	if err != nil {
		s.logger.ErrorWithErr("draft cache unavailable", err)
	} else {
		defer fc.Close()
		sh.drafts = drafts
		sh.restoreDraft(ctx)
	}

	_, _ = fmt.Fprintln(sh.out, "Query workspace. Type .help for commands, .quit to exit")
	sh.printState()
	rl.SetPrompt(sh.prompt())

	for {
		line, err := rl.Readline()
		if stderrors.Is(err, readline.ErrInterrupt) {
			continue
		}

		if stderrors.Is(err, io.EOF) {
			break
		}

		if sh.handle(ctx, line) {
			break
		}

		rl.SetPrompt(sh.prompt())
	}

	return sh.finish(ctx)
}

// handle runs one input line and reports whether the shell should exit
func (sh *shell) handle(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	if !strings.HasPrefix(trimmed, ".") {
		sh.s.ws.AppendBuffer(line)
		return false
	}

	command, rest, _ := strings.Cut(trimmed, " ")
	rest = strings.TrimSpace(rest)

	if command == ".quit" || command == ".exit" {
		return true
	}

	if err := sh.dispatch(ctx, strings.ToLower(command), rest); err != nil {
		sh.printError(err)
	}

	return false
}

func (sh *shell) dispatch(ctx context.Context, command, arg string) error {
	ws := sh.s.ws

	switch command {
	case ".help":
		printShellHelp(sh.out)
	case ".ls":
		listing := ws.Visible()
		if listing.View == workspace.ViewHistory {
			return sh.s.format.RenderHistory(sh.out, listing.History)
		}

		return sh.s.format.RenderQueries(sh.out, listing.Queries, ws.IsFavorite)
	case ".view":
		v, err := workspace.ParseView(arg)
		if err != nil {
			return err
		}

		ws.SetActiveView(v)
		sh.printf("Viewing %s\n", v.Label())
	case ".search":
		ws.SetSearchNeedle(arg)
		if arg == "" {
			sh.printf("Search cleared\n")
		}

		return sh.dispatch(ctx, ".ls", "")
	case ".select":
		q, err := ws.SelectByTitle(arg)
		if err != nil {
			return err
		}

		sh.printf("Selected %q\n", q.Title)
	case ".edit":
		ws.EditBuffer(arg)
	case ".append":
		ws.AppendBuffer(arg)
	case ".run":
		exec := ws.Execute()
		sh.printf("Executing %s (#%d)\n", exec.Title, exec.ID)
	case ".wait":
		ws.Drain()
		return sh.printResult()
	case ".result":
		return sh.printResult()
	case ".export":
		location, exported, err := ws.ExportCSV(ctx)
		if err != nil {
			return err
		}

		if !exported {
			sh.printf("Nothing to export\n")
			return nil
		}

		sh.printf("Exported to %s\n", location)
	case ".copy":
		state, err := ws.CopyEditorBuffer(ctx)
		sh.printf("%s\n", state.Label())

		return err
	case ".fav":
		title := arg
		if title == "" {
			title = ws.State().SelectedTitle()
		}

		if title == "" {
			return errors.NewValidationError("no query selected", "title")
		}

		return runFavorite(sh.out, sh.s, title)
	case ".save":
		title, desc := splitTitleDescription(arg)

		q, err := ws.SaveCurrentAsFavorite(title, desc)
		if err != nil {
			return err
		}

		sh.printf("Saved %q as favorite (id: %s)\n", q.Title, q.ID)
	case ".add":
		title, desc := splitTitleDescription(arg)
		return runAdd(sh.out, sh.s, title, desc, ws.Buffer())
	case ".delete":
		return runDelete(sh.out, sh.s, arg)
	case ".recall":
		i, err := strconv.Atoi(arg)
		if err != nil {
			return errors.NewValidationError("expected a history number", "index").
				WithSuggestion("Run '.view history' then '.ls' to see numbers")
		}

		entry, err := ws.RecallHistory(i)
		if err != nil {
			return err
		}

		sh.printf("Recalled %q\n", entry.Title)
	case ".theme":
		ws.Theme().Toggle()
		sh.s.format = formatter.NewFormatter(formatter.WithDark(ws.Theme().IsDark()))
		sh.printf("Theme: %s (editor: %s)\n", ws.Theme().Name(), ws.Theme().EditorTheme())
	case ".state":
		sh.printState()
	default:
		return errors.Newf(errors.ErrTypeValidation, "unknown command: %s", command).
			WithSuggestion("Type .help for commands")
	}

	return nil
}

// completed runs on the execution goroutine once a result has been applied
func (sh *shell) completed(c workspace.Completion) {
	sh.printf("%s: %s, %s\n", c.Outcome.Title, formatter.ResultSummary(c.Outcome.Table),
		formatter.ExecutionSummary(c.Outcome.Elapsed))
}

func (sh *shell) printResult() error {
	st := sh.s.ws.State()
	if st.Result == nil {
		sh.printf("No result yet\n")
		return nil
	}

	if err := sh.s.format.RenderResult(sh.out, *st.Result, sh.format); err != nil {
		return err
	}

	if st.LastDuration != nil {
		sh.printf("%s\n", formatter.ExecutionSummary(*st.LastDuration))
	}

	return nil
}

func (sh *shell) printState() {
	st := sh.s.ws.State()

	selected := st.SelectedTitle()
	if selected == "" {
		selected = "(none)"
	}

	status := "idle"
	if st.Executing {
		status = fmt.Sprintf("executing (%d pending)", st.Pending)
	}

	sh.printf("View: %s  Selected: %s  Status: %s  Theme: %s  Copy: %s\n",
		st.View.Label(), selected, status, st.EditorTheme, st.CopyAck.Label())

	if st.Needle != "" {
		sh.printf("Search: %q\n", st.Needle)
	}

	sh.printf("Editor:\n")

	for _, l := range strings.Split(st.Buffer, "\n") {
		sh.printf("  %s\n", l)
	}
}

func (sh *shell) prompt() string {
	st := sh.s.ws.State()
	if st.Selected == nil || st.Buffer != st.Selected.Text {
		return shellPromptEdits
	}

	return shellPrompt
}

func (sh *shell) restoreDraft(ctx context.Context) {
	text, found, err := sh.drafts.Load(ctx)
	if err != nil {
		sh.s.logger.ErrorWithErr("failed to load draft", err)
		return
	}

	if found && text != sh.s.ws.Buffer() {
		sh.s.ws.EditBuffer(text)
		sh.printf("Restored draft from the previous session\n")
	}
}

// finish stores the draft and the workspace once the loop ends
func (sh *shell) finish(ctx context.Context) error {
	sh.s.ws.Drain()

	if sh.drafts != nil {
		if err := sh.drafts.Save(ctx, sh.s.ws.Buffer()); err != nil {
			sh.s.logger.ErrorWithErr("failed to save draft", err)
		}
	}

	if err := sh.s.save(ctx); err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to save workspace")
	}

	return nil
}

func (sh *shell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(sh.out, format, args...)
}

func (sh *shell) printError(err error) {
	_, _ = fmt.Fprintf(sh.errOut, "Error: %v\n", err)

	for _, s := range errors.Suggestions(err) {
		_, _ = fmt.Fprintf(sh.errOut, "  hint: %s\n", s)
	}
}

func (sh *shell) completer() *readline.PrefixCompleter {
	titles := func(string) []string {
		var names []string
		for _, q := range sh.s.ws.ListView(workspace.ViewPredefined).Queries {
			names = append(names, q.Title)
		}

		return names
	}

	views := func(string) []string {
		names := make([]string, 0, len(workspace.Views))
		for _, v := range workspace.Views {
			names = append(names, string(v))
		}

		return names
	}

	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".ls"),
		readline.PcItem(".view", readline.PcItemDynamic(views)),
		readline.PcItem(".search"),
		readline.PcItem(".select", readline.PcItemDynamic(titles)),
		readline.PcItem(".edit"),
		readline.PcItem(".append"),
		readline.PcItem(".run"),
		readline.PcItem(".wait"),
		readline.PcItem(".result"),
		readline.PcItem(".export"),
		readline.PcItem(".copy"),
		readline.PcItem(".fav", readline.PcItemDynamic(titles)),
		readline.PcItem(".save"),
		readline.PcItem(".add"),
		readline.PcItem(".delete"),
		readline.PcItem(".recall"),
		readline.PcItem(".theme"),
		readline.PcItem(".state"),
		readline.PcItem(".quit"),
	)
}

// splitTitleDescription parses "title | description"
func splitTitleDescription(arg string) (string, string) {
	title, desc, _ := strings.Cut(arg, "|")
	return strings.TrimSpace(title), strings.TrimSpace(desc)
}

func printShellHelp(w io.Writer) {
	help := `
Commands:
  .help                      Show this help message
  .ls                        List the active view
  .view <name>               Switch view (predefined, favorites, history)
  .search [text]             Filter the list by title and description
  .select <title>            Select a query and load its SQL
  .edit [text]               Replace the editor buffer
  .append <text>             Append a line to the editor buffer
  .run                       Execute the editor buffer
  .wait                      Wait for running queries and show the result
  .result                    Show the current result
  .export                    Export the current result as CSV
  .copy                      Copy the editor buffer to the clipboard
  .fav [title]               Toggle a favorite (default: selected query)
  .save <title> | <desc>     Save the buffer as a new favorite
  .add <title> | <desc>      Save the buffer as a new user query
  .delete <id>               Delete a user query
  .recall <n>                Load history entry n into the editor
  .theme                     Toggle dark and light themes
  .state                     Show the workspace state
  .quit / .exit              Save and exit

Lines not starting with a dot are appended to the editor buffer.
`
	_, _ = fmt.Fprintln(w, help)
}
