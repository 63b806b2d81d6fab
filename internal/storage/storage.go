package storage

import (
	"context"
	"io"
)

// Store persists uploaded audio. Save returns the stored path/URL that the
// meeting record keeps; Remove is used by the retention sweep when the audio
// expires.
//
// Fetch makes stored audio readable as a local file for ffmpeg and the STT
// providers. Remote stores download to a scratch file that cleanup removes;
// local stores return the stored path itself with a no-op cleanup.
type Store interface {
	Save(ctx context.Context, name string, contentType string, r io.Reader) (storedPath string, err error)
	Fetch(ctx context.Context, storedPath string) (localPath string, cleanup func(), err error)
	Remove(ctx context.Context, storedPath string) error
}
