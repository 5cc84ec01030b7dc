package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// LocalStore keeps objects in a directory tree and serves them under baseURL
type LocalStore struct {
	fs      afero.Fs
	baseURL string
	logger  *slog.Logger
}

// NewLocalStore stores objects below dir on the local disk
func NewLocalStore(dir, baseURL string, logger *slog.Logger) (*LocalStore, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return NewStore(afero.NewBasePathFs(osFs, dir), baseURL, logger), nil
}

// NewStore wraps an arbitrary filesystem; tests pass afero.NewMemMapFs()
func NewStore(fsys afero.Fs, baseURL string, logger *slog.Logger) *LocalStore {
	return &LocalStore{
		fs:      fsys,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Put writes r under key and returns its public URL
func (s *LocalStore) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	name, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := afero.WriteReader(s.fs, name, r); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}

	s.logger.Info("Media stored", "key", name, "content_type", contentType)
	return s.baseURL + name, nil
}

// Delete removes the object behind publicURL. Missing objects are not an error.
func (s *LocalStore) Delete(ctx context.Context, publicURL string) error {
	key, ok := strings.CutPrefix(publicURL, s.baseURL+"/")
	if !ok {
		return fmt.Errorf("%s: %w", publicURL, ErrForeignURL)
	}
	name, err := cleanKey(key)
	if err != nil {
		return err
	}

	if err := s.fs.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}

	s.logger.Info("Media deleted", "key", name)
	return nil
}

// Handler serves stored objects; mount it under the path of baseURL
func (s *LocalStore) Handler() http.Handler {
	return http.FileServer(afero.NewHttpFs(s.fs).Dir("/"))
}

// cleanKey returns the rooted path of key inside the filesystem, which is
// also the path http.FileServer asks for
func cleanKey(key string) (string, error) {
	name := path.Clean("/" + key)
	if name == "/" || name[1:] != key {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return name, nil
}
