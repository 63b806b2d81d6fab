package media

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// decodeTimeRe matches the decoder progress time on ffmpeg stderr,
// ex: "time=01:02:03.45".
var decodeTimeRe = regexp.MustCompile(`time=(\d+):(\d+):(\d+\.?\d*)`)

// Prober measures audio duration in seconds. It never fails: when every
// strategy comes up empty it logs and returns 0, which callers treat as
// "unknown duration", not as an empty file.
type Prober struct {
	ffprobePath string
	ffmpegPath  string
	runner      Runner
	log         *logrus.Logger
}

func NewProber(log *logrus.Logger) *Prober {
	return &Prober{
		ffprobePath: "ffprobe",
		ffmpegPath:  "ffmpeg",
		runner:      NewRunner(),
		log:         log,
	}
}

// NewProberForTests constructs a prober with an injected runner.
func NewProberForTests(runner Runner, log *logrus.Logger) *Prober {
	p := NewProber(log)
	p.runner = runner
	return p
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		Duration string `json:"duration"`
	} `json:"streams"`
}

// Probe resolves duration by container metadata, then per-stream metadata
// (WebM and friends omit the container field), then a decode pass.
func (p *Prober) Probe(ctx context.Context, path string) float64 {
	res, err := p.runner.Run(ctx, p.ffprobePath,
		"-v", "quiet",
		"-show_entries", "format=duration:stream=duration",
		"-of", "json",
		path,
	)
	if err != nil {
		p.log.WithError(err).WithField("path", path).Warn("ffprobe failed")
		return 0
	}

	var out probeOutput
	if err := json.Unmarshal([]byte(res.Stdout), &out); err != nil {
		p.log.WithError(err).WithField("path", path).Warn("failed to parse ffprobe output")
		return 0
	}

	if d, ok := parseSecondsField(out.Format.Duration); ok {
		return d
	}
	for _, s := range out.Streams {
		if d, ok := parseSecondsField(s.Duration); ok {
			return d
		}
	}

	p.log.WithField("path", path).Warn("no duration in metadata, measuring by decode")
	return p.probeByDecode(ctx, path)
}

// probeByDecode asks ffprobe for a sexagesimal stream duration and, failing
// that, decodes the whole file and reads the final progress time.
func (p *Prober) probeByDecode(ctx context.Context, path string) float64 {
	res, err := p.runner.Run(ctx, p.ffprobePath,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"-sexagesimal",
		path,
	)
	if err == nil {
		if d, ok := parseClock(strings.TrimSpace(res.Stdout)); ok {
			return d
		}
	}

	// Full decode. Slow, but it is the last resort for broken metadata.
	res, _ = p.runner.Run(ctx, p.ffmpegPath, "-i", path, "-f", "null", "-")
	matches := decodeTimeRe.FindAllStringSubmatch(res.Stderr, -1)
	if len(matches) > 0 {
		last := matches[len(matches)-1]
		h, _ := strconv.ParseFloat(last[1], 64)
		m, _ := strconv.ParseFloat(last[2], 64)
		s, _ := strconv.ParseFloat(last[3], 64)
		return h*3600 + m*60 + s
	}

	p.log.WithField("path", path).Warn("could not determine audio duration")
	return 0
}

func parseSecondsField(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" || v == "N/A" {
		return 0, false
	}
	d, err := strconv.ParseFloat(v, 64)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// parseClock parses "HH:MM:SS[.fraction]" into seconds.
func parseClock(v string) (float64, bool) {
	if v == "" || v == "N/A" {
		return 0, false
	}
	parts := strings.Split(v, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.ParseFloat(parts[0], 64)
	m, err2 := strconv.ParseFloat(parts[1], 64)
	s, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return h*3600 + m*60 + s, true
}
