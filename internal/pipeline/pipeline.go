package pipeline

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Youngdong2/ai-meeting-api/internal/media"
	"github.com/Youngdong2/ai-meeting-api/internal/models"
	"github.com/Youngdong2/ai-meeting-api/internal/providers/llm"
	"github.com/Youngdong2/ai-meeting-api/internal/providers/stt"
	"github.com/Youngdong2/ai-meeting-api/internal/utils"
)

// Fixed user-facing failure messages, stored on the job in its own locale.
const (
	MsgNoAudioFile  = "음성 파일이 없습니다."
	MsgNoAPIKey     = "OpenAI API 키가 설정되지 않았습니다."
	MsgNoTranscript = "전문이 없어 요약을 생성할 수 없습니다."
)

// JobStore persists job state between stages. Every stage transition is
// written before the next stage starts, so observers see monotonic progress.
type JobStore interface {
	GetMeeting(ctx context.Context, id string) (*models.Meeting, error)
	SetStage(ctx context.Context, id string, stage models.MeetingStage) error
	SaveTranscript(ctx context.Context, id string, text string, segments []models.Segment) error
	SaveCorrection(ctx context.Context, id string, text string, segments []models.Segment) error
	SaveSummary(ctx context.Context, id string, summary string) error
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, id string, message string) error
}

// CredentialResolver resolves the transcription-provider secret for a team.
// The pipeline never reads shared configuration itself.
type CredentialResolver interface {
	Resolve(ctx context.Context, teamID string) (string, error)
}

// EventSink observes stage transitions (audit trail, live progress). Sinks
// are best-effort; their failures never affect the job.
type EventSink interface {
	StageChanged(ctx context.Context, meetingID string, attempt int, stage models.MeetingStage, message string)
}

// AudioFetcher materializes the stored audio as a local file the media tools
// can read. Remote stores download to a scratch file released via cleanup.
// storage.Store satisfies this.
type AudioFetcher interface {
	Fetch(ctx context.Context, storedPath string) (localPath string, cleanup func(), err error)
}

// Runner drives one meeting job through the stage sequence. Provider clients
// are built per job from the resolved team credential.
type Runner struct {
	Store       JobStore
	Credentials CredentialResolver
	Files       AudioFetcher
	Compressor  *media.Compressor
	Transcriber *Transcriber

	NewSTT func(apiKey string) stt.Provider
	NewLLM func(apiKey string) llm.Provider

	Events EventSink
	Log    *logrus.Logger
}

// Process runs the full pipeline for one meeting. A nil return means the job
// reached a terminal state (Completed, or Failed on a non-retryable input
// error); a non-nil return means Failed was persisted and the caller's retry
// budget decides what happens next. Retries restart from Pending: stage
// outputs are kept for inspection, not used as resume checkpoints.
func (r *Runner) Process(ctx context.Context, meetingID string, attempt int) error {
	log := r.Log.WithFields(logrus.Fields{"meeting_id": meetingID, "attempt": attempt})

	m, err := r.Store.GetMeeting(ctx, meetingID)
	if err != nil {
		log.WithError(err).Error("meeting not found")
		return nil
	}

	// Input guards: fatal, never retried.
	if m.AudioPath == "" {
		log.Error("meeting has no audio file")
		r.fail(ctx, meetingID, attempt, MsgNoAudioFile)
		return nil
	}

	apiKey, err := r.Credentials.Resolve(ctx, m.TeamID)
	if err != nil || apiKey == "" {
		log.WithError(err).Error("no transcription credential for team")
		r.fail(ctx, meetingID, attempt, MsgNoAPIKey)
		return nil
	}

	sttProvider := r.NewSTT(apiKey)
	defer sttProvider.Close()
	llmProvider := r.NewLLM(apiKey)
	defer llmProvider.Close()

	// Stored paths may be remote (gs://). Ffmpeg and the STT providers need a
	// local file, so fetch first; the scratch file is released with the other
	// job-scoped artifacts.
	audioPath, release, err := r.fetchAudio(ctx, m.AudioPath)
	if err != nil {
		log.WithError(err).Error("audio fetch failed")
		r.fail(ctx, meetingID, attempt, MsgNoAudioFile)
		return err
	}
	defer release()

	// Compressing: best-effort, the compressor never fails the job. The temp
	// file is released on every exit path, not only on Completed.
	if err := r.setStage(ctx, meetingID, attempt, models.StageCompressing); err != nil {
		return err
	}
	compressed := r.Compressor.Compress(ctx, audioPath)
	defer compressed.Cleanup()

	// Transcribing
	if err := r.setStage(ctx, meetingID, attempt, models.StageTranscribing); err != nil {
		return err
	}
	result, err := r.Transcriber.Transcribe(ctx, sttProvider, compressed.Path, m.AudioLanguage)
	if err != nil {
		log.WithError(err).Error("transcription failed")
		r.fail(ctx, meetingID, attempt, utils.UserMessage(err))
		return err
	}
	if err := r.Store.SaveTranscript(ctx, meetingID, result.Text, result.Segments); err != nil {
		r.fail(ctx, meetingID, attempt, utils.UserMessage(err))
		return err
	}

	// Correcting: degrades to the uncorrected data on any correction error,
	// including provider failures. This stage cannot fail the job.
	if err := r.setStage(ctx, meetingID, attempt, models.StageCorrecting); err != nil {
		return err
	}
	correctedText, correctedSegments := r.correct(ctx, llmProvider, result, log)
	if err := r.Store.SaveCorrection(ctx, meetingID, correctedText, correctedSegments); err != nil {
		r.fail(ctx, meetingID, attempt, utils.UserMessage(err))
		return err
	}

	// Summarizing
	if err := r.setStage(ctx, meetingID, attempt, models.StageSummarizing); err != nil {
		return err
	}
	summaryInput := correctedText
	if summaryInput == "" {
		summaryInput = result.Text
	}
	summary, err := llmProvider.Summarize(ctx, summaryInput)
	if err != nil {
		log.WithError(err).Error("summarization failed")
		r.fail(ctx, meetingID, attempt, utils.UserMessage(err))
		return err
	}
	if err := r.Store.SaveSummary(ctx, meetingID, summary); err != nil {
		r.fail(ctx, meetingID, attempt, utils.UserMessage(err))
		return err
	}

	// Completed clears any prior error message.
	if err := r.Store.Complete(ctx, meetingID); err != nil {
		r.fail(ctx, meetingID, attempt, utils.UserMessage(err))
		return err
	}
	r.notify(ctx, meetingID, attempt, models.StageCompleted, "")
	log.Info("meeting processing completed")
	return nil
}

// correct runs segment-level correction when speaker data exists, whole-text
// correction otherwise. Count mismatches, malformed replies, and provider
// errors all discard the correction and keep the original data.
func (r *Runner) correct(ctx context.Context, provider llm.Provider, result *models.TranscriptionResult, log *logrus.Entry) (string, []models.Segment) {
	if len(result.Segments) == 0 {
		corrected, err := provider.CorrectText(ctx, result.Text)
		if err != nil {
			log.WithError(err).Warn("text correction failed, keeping raw transcript")
			return result.Text, nil
		}
		return corrected, nil
	}

	segments, err := provider.CorrectSegments(ctx, result.Segments)
	if err != nil {
		log.WithError(err).Warn("segment correction failed, keeping raw segments")
		segments = result.Segments
	}
	return joinSegmentTexts(segments), segments
}

// RegenerateSummary re-enters the pipeline at Summarizing, without repeating
// the earlier stages. Requires an existing transcript; absent one, the call
// logs and does nothing.
func (r *Runner) RegenerateSummary(ctx context.Context, meetingID string) error {
	log := r.Log.WithField("meeting_id", meetingID)

	m, err := r.Store.GetMeeting(ctx, meetingID)
	if err != nil {
		log.WithError(err).Error("meeting not found")
		return nil
	}

	text := m.CorrectedTranscript
	if text == "" {
		text = m.Transcript
	}
	if text == "" {
		log.Error("meeting has no transcript, cannot regenerate summary")
		return nil
	}

	apiKey, err := r.Credentials.Resolve(ctx, m.TeamID)
	if err != nil || apiKey == "" {
		log.WithError(err).Error("no transcription credential for team")
		r.fail(ctx, meetingID, 0, MsgNoAPIKey)
		return nil
	}

	llmProvider := r.NewLLM(apiKey)
	defer llmProvider.Close()

	if err := r.setStage(ctx, meetingID, 0, models.StageSummarizing); err != nil {
		return err
	}
	summary, err := llmProvider.Summarize(ctx, text)
	if err != nil {
		log.WithError(err).Error("summary regeneration failed")
		r.fail(ctx, meetingID, 0, utils.UserMessage(err))
		return nil
	}
	if err := r.Store.SaveSummary(ctx, meetingID, summary); err != nil {
		r.fail(ctx, meetingID, 0, utils.UserMessage(err))
		return nil
	}
	if err := r.Store.Complete(ctx, meetingID); err != nil {
		return nil
	}
	r.notify(ctx, meetingID, 0, models.StageCompleted, "")
	log.Info("meeting summary regenerated")
	return nil
}

// fetchAudio localizes the stored audio. A nil Files means stored paths are
// already local file paths.
func (r *Runner) fetchAudio(ctx context.Context, storedPath string) (string, func(), error) {
	if r.Files == nil {
		return storedPath, func() {}, nil
	}
	return r.Files.Fetch(ctx, storedPath)
}

func (r *Runner) setStage(ctx context.Context, meetingID string, attempt int, stage models.MeetingStage) error {
	if err := r.Store.SetStage(ctx, meetingID, stage); err != nil {
		r.Log.WithError(err).WithField("meeting_id", meetingID).Error("failed to persist stage")
		return err
	}
	r.notify(ctx, meetingID, attempt, stage, "")
	return nil
}

func (r *Runner) fail(ctx context.Context, meetingID string, attempt int, message string) {
	if err := r.Store.Fail(ctx, meetingID, message); err != nil {
		r.Log.WithError(err).WithField("meeting_id", meetingID).Error("failed to persist failure")
	}
	r.notify(ctx, meetingID, attempt, models.StageFailed, message)
}

func (r *Runner) notify(ctx context.Context, meetingID string, attempt int, stage models.MeetingStage, message string) {
	if r.Events != nil {
		r.Events.StageChanged(ctx, meetingID, attempt, stage, message)
	}
}

func joinSegmentTexts(segments []models.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, " ")
}
