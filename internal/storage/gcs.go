package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
)

// GCSStore keeps audio in a bucket for multi-node deployments.
type GCSStore struct {
	client *gcs.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	c, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSStore{client: c, bucket: bucket}, nil
}

func (s *GCSStore) Close() error { return s.client.Close() }

func (s *GCSStore) Save(ctx context.Context, name string, contentType string, r io.Reader) (string, error) {
	obj := s.client.Bucket(s.bucket).Object(name)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, name), nil
}

// Fetch downloads the object to a scratch file; ffmpeg and the STT providers
// cannot read gs:// URLs. The caller removes the file via cleanup.
func (s *GCSStore) Fetch(ctx context.Context, storedPath string) (string, func(), error) {
	name := s.objectName(storedPath)

	r, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		return "", nil, err
	}
	defer r.Close()

	f, err := os.CreateTemp("", "meeting-audio-*"+filepath.Ext(name))
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", nil, err
	}
	return f.Name(), func() { _ = os.Remove(f.Name()) }, nil
}

func (s *GCSStore) objectName(storedPath string) string {
	return strings.TrimPrefix(storedPath, fmt.Sprintf("gs://%s/", s.bucket))
}

func (s *GCSStore) Remove(ctx context.Context, storedPath string) error {
	err := s.client.Bucket(s.bucket).Object(s.objectName(storedPath)).Delete(ctx)
	if err == gcs.ErrObjectNotExist {
		return nil
	}
	return err
}
