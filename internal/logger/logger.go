package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

func New() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{})

	level := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	switch level {
	case "trace":
		l.SetLevel(logrus.TraceLevel)
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		l.SetLevel(logrus.WarnLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// ForJob returns an entry tagged with the meeting being processed. Every
// pipeline log line carries these fields so one job can be traced end to end.
func ForJob(l *logrus.Logger, meetingID string, attempt int) *logrus.Entry {
	return l.WithFields(logrus.Fields{
		"meeting_id": meetingID,
		"attempt":    attempt,
	})
}
