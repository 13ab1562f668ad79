package cmd

import (
	"context"
	"io"

	"github.com/kyleking/query-runner/internal/cache"
	"github.com/kyleking/query-runner/internal/catalog"
	"github.com/kyleking/query-runner/internal/clipboard"
	"github.com/kyleking/query-runner/internal/config"
	"github.com/kyleking/query-runner/internal/errors"
	"github.com/kyleking/query-runner/internal/export"
	"github.com/kyleking/query-runner/internal/formatter"
	"github.com/kyleking/query-runner/internal/history"
	"github.com/kyleking/query-runner/internal/logging"
	"github.com/kyleking/query-runner/internal/simulator"
	"github.com/kyleking/query-runner/internal/storage"
	"github.com/kyleking/query-runner/internal/theme"
	"github.com/kyleking/query-runner/internal/workspace"
)

const draftCacheMB = 1

// openRepository is replaced in tests
var openRepository = func(ctx context.Context, cfg *config.Config, logger *logging.Logger) (storage.Repository, error) {
	repo, err := storage.NewDuckDBRepositoryFromConfig(&cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	if err := repo.Initialize(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}

	return repo, nil
}

// session bundles a workspace with the persistence configured for it
type session struct {
	cfg    *config.Config
	logger *logging.Logger
	ws     *workspace.Workspace
	repo   storage.Repository
	out    io.Writer
	format *formatter.Formatter
}

type sessionOptions struct {
	out        io.Writer
	onComplete func(workspace.Completion)
}

func openSession(ctx context.Context, opts sessionOptions) (*session, error) {
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	cat, err := loadCatalog(cfg.Workspace)
	if err != nil {
		return nil, err
	}

	sim, err := simulator.Default(
		simulator.WithLatency(cfg.Workspace.LatencyDuration()),
		simulator.WithLogger(logger.WithField("component", "simulator")),
	)
	if err != nil {
		return nil, err
	}

	sink, err := export.NewFileSink(cfg.Workspace.ExportDir)
	if err != nil {
		return nil, err
	}

	th := theme.New(cfg.UI.Dark)

	ws, err := workspace.New(workspace.Options{
		Catalog:      cat,
		Simulator:    sim,
		History:      history.New(history.WithLimit(cfg.Workspace.HistoryLimit)),
		Clipboard:    clipboard.NewOSC52Writer(opts.out),
		Ack:          clipboard.NewAck(cfg.Workspace.ClipboardAckDuration()),
		Sink:         sink,
		Theme:        th,
		Logger:       logger.WithField("component", "workspace"),
		DefaultQuery: cfg.Workspace.DefaultQuery,
		OnComplete:   opts.onComplete,
	})
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:    cfg,
		logger: logger,
		ws:     ws,
		out:    opts.out,
	}

	if cfg.Database.Persist {
		repo, err := openRepository(ctx, cfg, logger.WithField("component", "storage"))
		if err != nil {
			return nil, err
		}

		snap, err := repo.LoadWorkspace(ctx)
		if err != nil {
			_ = repo.Close()
			return nil, err
		}

		if !snap.IsEmpty() {
			ws.Restore(snap)
		}

		if cfg.UI.Dark {
			th.Set(true)
		}

		s.repo = repo
	}

	s.format = formatter.NewFormatter(formatter.WithDark(th.IsDark()))

	return s, nil
}

func loadCatalog(cfg config.WorkspaceConfig) (*catalog.Catalog, error) {
	if cfg.CatalogFile != "" {
		return catalog.Load(config.ExpandPath(cfg.CatalogFile))
	}

	return catalog.Default()
}

// save writes the workspace back when persistence is enabled
func (s *session) save(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	return s.repo.SaveWorkspace(ctx, s.ws.Snapshot())
}

// drafts opens the editor draft cache
func (s *session) drafts() (*cache.Drafts, *cache.FileCache, error) {
	fc, err := cache.NewFromConfig(s.cfg.Cache, draftCacheMB)
	if err != nil {
		return nil, nil, err
	}

	return cache.NewDrafts(fc, s.cfg.Cache.TTL()), fc, nil
}

func (s *session) close() error {
	s.ws.Drain()

	if s.repo != nil {
		return s.repo.Close()
	}

	return nil
}

// closeAndLog closes the session for deferred use, logging a failure
func (s *session) closeAndLog() {
	if err := s.close(); err != nil {
		s.logger.ErrorWithErr("failed to close session", err)
	}
}

// withSession opens a session, runs fn, and saves the workspace when fn succeeds
func withSession(ctx context.Context, out io.Writer, fn func(s *session) error) error {
	s, err := openSession(ctx, sessionOptions{out: out})
	if err != nil {
		return err
	}

	defer s.closeAndLog()

	if err := fn(s); err != nil {
		return err
	}

	if err := s.save(ctx); err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to save workspace")
	}

	return nil
}

// findQuery resolves a title against the catalog, then the favorites
func findQuery(ws *workspace.Workspace, title string) (catalog.QueryDefinition, bool) {
	if q, ok := ws.Catalog().FindByTitle(title); ok {
		return q, true
	}

	for _, q := range ws.Favorites() {
		if q.Title == title {
			return q, true
		}
	}

	return catalog.QueryDefinition{}, false
}
