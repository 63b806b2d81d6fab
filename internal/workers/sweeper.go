package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Youngdong2/ai-meeting-api/internal/repositories/postgres"
	"github.com/Youngdong2/ai-meeting-api/internal/storage"
)

// RetentionSweeper deletes uploaded audio past its retention window.
// Transcripts and summaries stay; only the raw audio is removed.
type RetentionSweeper struct {
	Meetings postgres.MeetingRepo
	Store    storage.Store
	Interval time.Duration
	Batch    int
	Logger   *logrus.Logger
}

func (s *RetentionSweeper) Start(ctx context.Context) {
	if s.Interval <= 0 {
		s.Interval = time.Hour
	}
	if s.Batch <= 0 {
		s.Batch = 100
	}
	if s.Logger == nil {
		s.Logger = logrus.New()
	}

	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *RetentionSweeper) sweep(ctx context.Context) {
	expired, err := s.Meetings.ListExpiredAudio(ctx, time.Now().UTC(), s.Batch)
	if err != nil {
		s.Logger.WithError(err).Error("retention sweep query failed")
		return
	}

	for _, m := range expired {
		log := s.Logger.WithField("meeting_id", m.ID)
		if m.AudioPath != "" {
			if err := s.Store.Remove(ctx, m.AudioPath); err != nil {
				log.WithError(err).Warn("failed to remove expired audio, will retry next sweep")
				continue
			}
		}
		if err := s.Meetings.ClearAudio(ctx, m.ID); err != nil {
			log.WithError(err).Error("failed to clear audio reference")
			continue
		}
		log.Info("expired audio removed")
	}
}
