// Package artifact persists generated diagrams and their renders.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/yungbote/flowchart-backend/internal/config"
	"github.com/yungbote/flowchart-backend/internal/platform/gcp"
	"github.com/yungbote/flowchart-backend/internal/platform/logger"
)

type Store interface {
	// Put writes data under name and returns its location (a path or gs:// URL).
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	Close() error
}

func New(ctx context.Context, log *logger.Logger, cfg config.ArtifactsConfig) (Store, error) {
	switch cfg.Mode {
	case "gcs":
		client, err := gcp.NewStorageClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		log.Info("artifact store initialized", "mode", "gcs", "bucket", cfg.Bucket, "prefix", cfg.Prefix, "emulator_host", gcp.EmulatorHost())
		return NewGCSStore(client, cfg.Bucket, cfg.Prefix), nil
	case "", "local":
		log.Info("artifact store initialized", "mode", "local", "dir", cfg.OutputDir)
		return NewLocalStore(cfg.OutputDir), nil
	default:
		return nil, fmt.Errorf("unsupported artifacts mode %q", cfg.Mode)
	}
}

func validName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}

type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Put creates the directory on first use and replaces name atomically.
func (s *LocalStore) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	_ = contentType
	if err := validName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	dst := filepath.Join(s.dir, name)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return dst, nil
}

func (s *LocalStore) Close() error { return nil }

type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSStore(client *storage.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *GCSStore) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *GCSStore) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	key := s.key(name)
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return "gs://" + s.bucket + "/" + key, nil
}

func (s *GCSStore) Close() error { return s.client.Close() }
