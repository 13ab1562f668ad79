package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kyleking/query-runner/internal/errors"
)

// Sink delivers exported text under a suggested file name and returns where it went
type Sink interface {
	Save(ctx context.Context, name, content string) (string, error)
}

// Filename returns the export name for an instant, e.g. query_results_1700000000000.csv
func Filename(at time.Time) string {
	return fmt.Sprintf("query_results_%d.csv", at.UnixMilli())
}

// FileSink writes exports into a directory, never overwriting an existing file
type FileSink struct {
	Dir string
}

// NewFileSink returns a sink rooted at dir, creating it when missing
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "failed to create export directory %s", dir)
	}

	return &FileSink{Dir: dir}, nil
}

// Save writes content to Dir/name. If the name is taken a numeric suffix is added.
func (s *FileSink) Save(ctx context.Context, name, content string) (string, error) {
	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]

	for attempt := 0; attempt < 100; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		candidate := name
		if attempt > 0 {
			candidate = fmt.Sprintf("%s_%d%s", stem, attempt, ext)
		}

		path := filepath.Join(s.Dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}

		if err != nil {
			return "", errors.Wrapf(err, errors.ErrTypeFileSystem, "failed to create export file %s", path)
		}

		if _, err := f.WriteString(content); err != nil {
			_ = f.Close()
			return "", errors.Wrapf(err, errors.ErrTypeFileSystem, "failed to write export file %s", path)
		}

		if err := f.Close(); err != nil {
			return "", errors.Wrapf(err, errors.ErrTypeFileSystem, "failed to close export file %s", path)
		}

		return path, nil
	}

	return "", errors.Newf(errors.ErrTypeFileSystem, "no free export file name for %s in %s", name, s.Dir)
}

// MemorySink keeps exports in memory, for tests and dry runs
type MemorySink struct {
	Files map[string]string
	Order []string
}

// NewMemorySink returns an empty in-memory sink
func NewMemorySink() *MemorySink {
	return &MemorySink{Files: make(map[string]string)}
}

// Save records content under name
func (m *MemorySink) Save(_ context.Context, name, content string) (string, error) {
	m.Files[name] = content
	m.Order = append(m.Order, name)

	return name, nil
}
