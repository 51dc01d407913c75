package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/utils"
)

type localStore struct {
	log  *logger.Logger
	root string
}

// NewLocalStore keeps blobs under BLOB_STORE_DIR (default ./assets),
// one directory per project.
func NewLocalStore(log *logger.Logger) (BlobStore, error) {
	root := utils.GetEnv("BLOB_STORE_DIR", "assets", log)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob store dir %q: %w", root, err)
	}
	return &localStore{
		log:  log.With("service", "LocalBlobStore"),
		root: root,
	}, nil
}

func (s *localStore) path(project, filename string) string {
	return filepath.Join(s.root, project, filename)
}

func (s *localStore) Write(ctx context.Context, project, filename string, r io.Reader) error {
	dir := filepath.Join(s.root, project)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create project dir %q: %w", dir, err)
	}
	f, err := os.Create(s.path(project, filename))
	if err != nil {
		return fmt.Errorf("failed to create blob %q: %w", s.path(project, filename), err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write blob %q: %w", s.path(project, filename), err)
	}
	return f.Close()
}

func (s *localStore) Read(ctx context.Context, project, filename string) ([]byte, error) {
	raw, err := os.ReadFile(s.path(project, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %q: %w", s.path(project, filename), err)
	}
	return raw, nil
}

func (s *localStore) Delete(ctx context.Context, project, filename string) error {
	err := os.Remove(s.path(project, filename))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete blob %q: %w", s.path(project, filename), err)
	}
	return nil
}

func (s *localStore) Exists(ctx context.Context, project, filename string) (bool, error) {
	_, err := os.Stat(s.path(project, filename))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *localStore) DeleteProject(ctx context.Context, project string) error {
	dir := filepath.Join(s.root, project)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete project dir %q: %w", dir, err)
	}
	return nil
}
