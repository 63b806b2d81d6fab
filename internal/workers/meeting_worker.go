package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Youngdong2/ai-meeting-api/internal/logger"
	"github.com/Youngdong2/ai-meeting-api/internal/pipeline"
)

// Job kinds carried on the stream. Processing and the publishing side-calls
// share the stream but have independent retry budgets.
const (
	KindProcess           = "process"
	KindRegenerateSummary = "regenerate_summary"
	KindPublishConfluence = "publish_confluence"
	KindShareSlack        = "share_slack"
)

// MeetingWorkerPool consumes meeting jobs from a redis stream consumer group
// and drives the processing pipeline. One consumer handles one job end to
// end; chunk-level work inside a job is already sequential.
type MeetingWorkerPool struct {
	Redis      *redis.Client
	Runner     *pipeline.Runner
	Publisher  *Publisher
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string

	// Pipeline failures retry with a fixed delay up to ProcessRetries;
	// publishing side-calls have their own shorter budget.
	ProcessRetries    int
	ProcessRetryDelay time.Duration
	PublishRetries    int
	PublishRetryDelay time.Duration
}

func (p *MeetingWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Runner == nil {
		return errors.New("MeetingWorkerPool missing dependency: Redis/Runner must be set")
	}
	if p.Stream == "" {
		p.Stream = "meetings:stream"
	}
	if p.Group == "" {
		p.Group = "meeting-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "w"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.ProcessRetries <= 0 {
		p.ProcessRetries = 3
	}
	if p.ProcessRetryDelay <= 0 {
		p.ProcessRetryDelay = 60 * time.Second
	}
	if p.PublishRetries <= 0 {
		p.PublishRetries = 2
	}
	if p.PublishRetryDelay <= 0 {
		p.PublishRetryDelay = 30 * time.Second
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

// Submit enqueues a processing job for a meeting. Fire-and-forget,
// at-least-once: duplicate submissions for an active job are the caller's
// responsibility to avoid.
func (p *MeetingWorkerPool) Submit(ctx context.Context, meetingID string) error {
	return p.enqueue(ctx, KindProcess, meetingID, 0, "")
}

func (p *MeetingWorkerPool) SubmitRegenerateSummary(ctx context.Context, meetingID string) error {
	return p.enqueue(ctx, KindRegenerateSummary, meetingID, 0, "")
}

func (p *MeetingWorkerPool) SubmitPublishConfluence(ctx context.Context, meetingID string) error {
	return p.enqueue(ctx, KindPublishConfluence, meetingID, 0, "")
}

func (p *MeetingWorkerPool) SubmitShareSlack(ctx context.Context, meetingID, channel string) error {
	return p.enqueue(ctx, KindShareSlack, meetingID, 0, channel)
}

func (p *MeetingWorkerPool) enqueue(ctx context.Context, kind, meetingID string, attempt int, channel string) error {
	values := map[string]any{
		"kind":       kind,
		"meeting_id": meetingID,
		"attempt":    strconv.Itoa(attempt),
	}
	if channel != "" {
		values["channel"] = channel
	}
	return p.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.Stream,
		Values: values,
	}).Err()
}

func (p *MeetingWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    1,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *MeetingWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	kind := getStr("kind")
	meetingID := getStr("meeting_id")
	if kind == "" || meetingID == "" {
		return
	}
	attempt, _ := strconv.Atoi(getStr("attempt"))

	log := logger.ForJob(p.Logger, meetingID, attempt).WithFields(logrus.Fields{
		"redis_id": msg.ID,
		"kind":     kind,
	})

	switch kind {
	case KindProcess:
		if err := p.Runner.Process(ctx, meetingID, attempt); err != nil {
			log.WithError(err).Error("pipeline run failed")
			p.scheduleRetry(ctx, kind, meetingID, attempt, "", p.ProcessRetries, p.ProcessRetryDelay, log)
		}
	case KindRegenerateSummary:
		// no retry budget, matching the submit-again-by-hand semantics
		_ = p.Runner.RegenerateSummary(ctx, meetingID)
	case KindPublishConfluence:
		if p.Publisher == nil {
			return
		}
		if err := p.Publisher.PublishConfluence(ctx, meetingID); err != nil {
			log.WithError(err).Error("confluence publish failed")
			p.scheduleRetry(ctx, kind, meetingID, attempt, "", p.PublishRetries, p.PublishRetryDelay, log)
		}
	case KindShareSlack:
		if p.Publisher == nil {
			return
		}
		channel := getStr("channel")
		if err := p.Publisher.ShareSlack(ctx, meetingID, channel); err != nil {
			log.WithError(err).Error("slack share failed")
			p.scheduleRetry(ctx, kind, meetingID, attempt, channel, p.PublishRetries, p.PublishRetryDelay, log)
		}
	default:
		log.Warn("unknown job kind")
	}
}

// scheduleRetry re-enqueues the job after a fixed delay when budget remains.
// A retried processing job restarts from Pending; earlier stage outputs are
// inspection data, not checkpoints.
func (p *MeetingWorkerPool) scheduleRetry(ctx context.Context, kind, meetingID string, attempt int, channel string, maxRetries int, delay time.Duration, log *logrus.Entry) {
	if attempt >= maxRetries {
		log.Error("retry budget exhausted, job stays failed")
		return
	}

	next := attempt + 1
	log.WithField("next_attempt", next).Info("scheduling retry")
	time.AfterFunc(delay, func() {
		if err := p.enqueue(context.WithoutCancel(ctx), kind, meetingID, next, channel); err != nil {
			log.WithError(err).Error("failed to re-enqueue job")
		}
	})
}
