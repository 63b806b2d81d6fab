package media

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

// maxPlainBytes is the size under which compression is skipped entirely.
const maxPlainBytes = 10 << 20 // 10 MiB

// CompressResult owns the compressed temp file, if one was produced.
type CompressResult struct {
	Path string

	tempPath string
}

// Compressed reports whether Path is a temp file distinct from the input.
func (r *CompressResult) Compressed() bool { return r.tempPath != "" }

// Cleanup removes the temp file. A no-op when compression was skipped, since
// Path is then the caller's original file.
func (r *CompressResult) Cleanup() error {
	if r == nil || r.tempPath == "" {
		return nil
	}
	err := os.Remove(r.tempPath)
	r.tempPath = ""
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Compressor re-encodes large audio to mono 16 kHz 64 kbps before provider
// upload. Compression is best-effort: any failure falls back to the original
// file and is never fatal to the pipeline.
type Compressor struct {
	ffmpegPath string
	runner     Runner
	log        *logrus.Logger

	stat       func(name string) (os.FileInfo, error)
	createTemp func(dir, pattern string) (*os.File, error)
	remove     func(name string) error
}

func NewCompressor(log *logrus.Logger) *Compressor {
	return &Compressor{
		ffmpegPath: "ffmpeg",
		runner:     NewRunner(),
		log:        log,
		stat:       os.Stat,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// NewCompressorForTests constructs a compressor with injected dependencies.
func NewCompressorForTests(runner Runner, log *logrus.Logger) *Compressor {
	c := NewCompressor(log)
	c.runner = runner
	return c
}

func (c *Compressor) Compress(ctx context.Context, inputPath string) *CompressResult {
	info, err := c.stat(inputPath)
	if err != nil {
		c.log.WithError(err).WithField("path", inputPath).Warn("cannot stat audio file, skipping compression")
		return &CompressResult{Path: inputPath}
	}
	if info.Size() <= maxPlainBytes {
		return &CompressResult{Path: inputPath}
	}

	tmp, err := c.createTemp("", "meeting-audio-*.mp3")
	if err != nil {
		c.log.WithError(err).Warn("cannot create temp file, using original audio")
		return &CompressResult{Path: inputPath}
	}
	outputPath := tmp.Name()
	_ = tmp.Close()

	_, err = c.runner.Run(ctx, c.ffmpegPath,
		"-i", inputPath,
		"-ac", "1",
		"-ar", "16000",
		"-b:a", "64k",
		"-y",
		outputPath,
	)
	if err != nil {
		c.log.WithError(err).WithField("path", inputPath).Warn("ffmpeg compression failed, using original audio")
		_ = c.remove(outputPath)
		return &CompressResult{Path: inputPath}
	}

	c.log.WithFields(logrus.Fields{
		"input":  inputPath,
		"output": outputPath,
	}).Info("compressed audio file")
	return &CompressResult{Path: outputPath, tempPath: outputPath}
}
