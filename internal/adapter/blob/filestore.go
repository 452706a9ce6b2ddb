package blob

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/orbitwatch/neo-insights-etl/internal/domain"
)

// FileStore archives raw batches as JSON documents on the local
// filesystem. Re-archiving the same object name overwrites in place,
// so replaying a cycle leaves exactly one copy.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates a filesystem archiver rooted at dir. The
// directory is created on first use.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	return &FileStore{dir: dir, logger: logger}
}

// Archive writes data to <dir>/<name>, overwriting any existing object.
func (s *FileStore) Archive(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return &domain.ArchiveError{Object: name, Err: err}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &domain.ArchiveError{Object: name, Err: err}
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &domain.ArchiveError{Object: name, Err: err}
	}

	s.logger.Debug("batch archived", "path", path, "bytes", len(data))
	return nil
}
