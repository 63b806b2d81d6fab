package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// LocalStore keeps audio on the worker's filesystem, the default for
// single-node deployments. Stored paths are absolute so the pipeline can feed
// them to ffmpeg directly.
type LocalStore struct {
	base string
}

func NewLocalStore(base string) (*LocalStore, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{base: base}, nil
}

func (s *LocalStore) Save(ctx context.Context, name string, contentType string, r io.Reader) (string, error) {
	path := filepath.Join(s.base, filepath.Base(name))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// Fetch is a passthrough: stored paths are already readable by the media
// tools on this node.
func (s *LocalStore) Fetch(ctx context.Context, storedPath string) (string, func(), error) {
	if _, err := os.Stat(storedPath); err != nil {
		return "", nil, err
	}
	return storedPath, func() {}, nil
}

func (s *LocalStore) Remove(ctx context.Context, storedPath string) error {
	err := os.Remove(storedPath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
