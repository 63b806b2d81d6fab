package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"
)

// SplitResult owns the chunk files produced by one Split call. When splitting
// degraded to the original file there is nothing to release.
type SplitResult struct {
	Paths []string

	dir string
}

// Single reports whether splitting degraded to the unsplit input.
func (r *SplitResult) Single() bool { return r.dir == "" }

// Cleanup removes every chunk and the temp directory holding them. Safe to
// call on every exit path, including after a failed chunk call.
func (r *SplitResult) Cleanup() error {
	if r == nil || r.dir == "" {
		return nil
	}
	err := os.RemoveAll(r.dir)
	r.dir = ""
	return err
}

// Splitter cuts audio into bounded-duration chunks with stream copy. Each
// chunk restarts its internal timestamps at zero; downstream offset
// reconstruction depends on that.
type Splitter struct {
	ffmpegPath string
	runner     Runner
	log        *logrus.Logger

	mkdirTemp func(dir, pattern string) (string, error)
	glob      func(pattern string) ([]string, error)
	removeAll func(path string) error
}

func NewSplitter(log *logrus.Logger) *Splitter {
	return &Splitter{
		ffmpegPath: "ffmpeg",
		runner:     NewRunner(),
		log:        log,
		mkdirTemp:  os.MkdirTemp,
		glob:       filepath.Glob,
		removeAll:  os.RemoveAll,
	}
}

// NewSplitterForTests constructs a splitter with injected dependencies.
func NewSplitterForTests(runner Runner, log *logrus.Logger) *Splitter {
	s := NewSplitter(log)
	s.runner = runner
	return s
}

// Split produces chunks of at most chunkSeconds each, except possibly the
// last. Any failure degrades to a single-element result holding the input.
func (s *Splitter) Split(ctx context.Context, inputPath string, chunkSeconds int) *SplitResult {
	ext := filepath.Ext(inputPath)

	tempDir, err := s.mkdirTemp("", "audio_chunks_")
	if err != nil {
		s.log.WithError(err).Warn("cannot create chunk directory, skipping split")
		return &SplitResult{Paths: []string{inputPath}}
	}
	outputPattern := filepath.Join(tempDir, "chunk_%03d"+ext)

	_, err = s.runner.Run(ctx, s.ffmpegPath,
		"-i", inputPath,
		"-f", "segment",
		"-segment_time", strconv.Itoa(chunkSeconds),
		"-reset_timestamps", "1",
		"-c", "copy",
		"-y",
		outputPattern,
	)
	if err != nil {
		s.log.WithError(err).WithField("path", inputPath).Error("failed to split audio")
		_ = s.removeAll(tempDir)
		return &SplitResult{Paths: []string{inputPath}}
	}

	chunks, err := s.glob(filepath.Join(tempDir, "chunk_*"+ext))
	if err != nil || len(chunks) == 0 {
		s.log.WithError(err).WithField("path", inputPath).Error("split produced no chunks")
		_ = s.removeAll(tempDir)
		return &SplitResult{Paths: []string{inputPath}}
	}
	sort.Strings(chunks)

	s.log.WithFields(logrus.Fields{
		"path":   inputPath,
		"chunks": len(chunks),
	}).Info(fmt.Sprintf("split audio into %d chunks", len(chunks)))
	return &SplitResult{Paths: chunks, dir: tempDir}
}
