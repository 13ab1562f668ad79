package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/query-runner/internal/catalog"
	"github.com/kyleking/query-runner/internal/errors"
)

func AddCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a user query to the catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Required: true, Usage: "Unique query title"},
			&cli.StringFlag{Name: "description", Required: true, Usage: "Short description"},
			&cli.StringFlag{Name: "text", Required: true, Usage: "SQL text"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			out := cmd.Root().Writer

			return withSession(ctx, out, func(s *session) error {
				return runAdd(out, s, cmd.String("title"), cmd.String("description"), cmd.String("text"))
			})
		},
	}
}

func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:        "delete",
		Usage:       "Delete a user query",
		Description: `Remove a user query by id or id prefix. Favorites referring to it are removed as well. Predefined queries cannot be deleted.`,
		ArgsUsage:   " <id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected exactly 1 argument, got %d", cmd.Args().Len())
			}

			out := cmd.Root().Writer

			return withSession(ctx, out, func(s *session) error {
				return runDelete(out, s, cmd.Args().First())
			})
		},
	}
}

func UpdateCommand() *cli.Command {
	return &cli.Command{
		Name:        "update",
		Usage:       "Rewrite a user query",
		Description: `Replace the title, description and SQL of a user query by id or id prefix. Favorites referring to it follow the change.`,
		ArgsUsage:   " <id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Required: true, Usage: "Unique query title"},
			&cli.StringFlag{Name: "description", Required: true, Usage: "Short description"},
			&cli.StringFlag{Name: "text", Required: true, Usage: "SQL text"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected exactly 1 argument, got %d", cmd.Args().Len())
			}

			out := cmd.Root().Writer

			return withSession(ctx, out, func(s *session) error {
				return runUpdate(out, s, cmd.Args().First(), cmd.String("title"), cmd.String("description"), cmd.String("text"))
			})
		},
	}
}

func FavoriteCommand() *cli.Command {
	return &cli.Command{
		Name:      "favorite",
		Aliases:   []string{"fav"},
		Usage:     "Toggle a query in the favorites",
		ArgsUsage: " <title>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected exactly 1 argument, got %d", cmd.Args().Len())
			}

			out := cmd.Root().Writer

			return withSession(ctx, out, func(s *session) error {
				return runFavorite(out, s, cmd.Args().First())
			})
		},
	}
}

func runAdd(w io.Writer, s *session, title, description, text string) error {
	q, err := s.ws.AddUserQuery(title, description, text)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "Added %q (id: %s)\n", q.Title, q.ID)

	return err
}

func runDelete(w io.Writer, s *session, ref string) error {
	id, err := resolveUserID(s, ref)
	if err != nil {
		return err
	}

	if !s.ws.DeleteUserQuery(id) {
		return errors.NewNotFoundError("user query", ref)
	}

	_, err = fmt.Fprintf(w, "Deleted %s\n", id)

	return err
}

func runUpdate(w io.Writer, s *session, ref, title, description, text string) error {
	id, err := resolveUserID(s, ref)
	if err != nil {
		return err
	}

	q, err := s.ws.UpdateUserQuery(id, title, description, text)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "Updated %q (id: %s)\n", q.Title, q.ID)

	return err
}

// userIDs lists user query ids from the catalog, then ids only favorites still carry
func userIDs(s *session) []string {
	seen := make(map[string]bool)

	var ids []string

	add := func(q catalog.QueryDefinition) {
		if q.ID == "" || q.IsPredefined() || seen[q.ID] {
			return
		}

		seen[q.ID] = true
		ids = append(ids, q.ID)
	}

	for _, q := range s.ws.Catalog().ListUser() {
		add(q)
	}

	for _, q := range s.ws.Favorites() {
		add(q)
	}

	return ids
}

// resolveUserID accepts a full id or a prefix matching exactly one user query
func resolveUserID(s *session, ref string) (string, error) {
	var matches []string

	for _, id := range userIDs(s) {
		if id == ref {
			return id, nil
		}

		if strings.HasPrefix(id, ref) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		if _, ok := s.ws.Catalog().FindByTitle(ref); ok {
			return "", errors.NewValidationError("predefined queries cannot be deleted", "id").
				WithSuggestion("Pass the id shown by 'list'")
		}

		return "", errors.NewNotFoundError("user query", ref).WithSuggestion("Run 'list' to see user query ids")
	default:
		return "", errors.NewValidationError(fmt.Sprintf("id prefix %q matches %d queries", ref, len(matches)), "id")
	}
}

func runFavorite(w io.Writer, s *session, title string) error {
	added, err := s.ws.ToggleFavorite(title)
	if err != nil {
		return err
	}

	if added {
		_, err = fmt.Fprintf(w, "Added %q to favorites\n", title)
	} else {
		_, err = fmt.Fprintf(w, "Removed %q from favorites\n", title)
	}

	return err
}
