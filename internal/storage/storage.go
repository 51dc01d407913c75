package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/docquery/docquery-backend/internal/logger"
)

// BlobStore holds raw uploaded documents keyed by project and filename.
// The pipeline only depends on this contract; bytes live on disk or in
// a bucket depending on deployment.
type BlobStore interface {
	Write(ctx context.Context, project, filename string, r io.Reader) error
	Read(ctx context.Context, project, filename string) ([]byte, error)
	Delete(ctx context.Context, project, filename string) error
	Exists(ctx context.Context, project, filename string) (bool, error)
	// DeleteProject removes everything stored under the project.
	DeleteProject(ctx context.Context, project string) error
}

// New selects the blob store backend from BLOB_STORE_MODE: "gcs" or
// "local" (default).
func New(log *logger.Logger) (BlobStore, error) {
	mode := strings.TrimSpace(strings.ToLower(os.Getenv("BLOB_STORE_MODE")))
	switch mode {
	case "gcs":
		return NewGCSStore(log)
	case "", "local":
		return NewLocalStore(log)
	default:
		return nil, fmt.Errorf("unknown BLOB_STORE_MODE %q (want gcs or local)", mode)
	}
}

func objectKey(project, filename string) string {
	return fmt.Sprintf("assets/%s/%s", project, filename)
}
