package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Youngdong2/ai-meeting-api/internal/media"
	"github.com/Youngdong2/ai-meeting-api/internal/models"
	"github.com/Youngdong2/ai-meeting-api/internal/providers/llm"
	"github.com/Youngdong2/ai-meeting-api/internal/providers/stt"
)

// memStore is an in-memory JobStore recording the persisted transitions.
type memStore struct {
	meeting *models.Meeting

	stages       []models.MeetingStage
	transcript   string
	segments     []models.Segment
	corrected    string
	corrSegments []models.Segment
	summary      string
	completed    bool
	failMessage  string
}

func (s *memStore) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	if s.meeting == nil {
		return nil, errors.New("not found")
	}
	return s.meeting, nil
}

func (s *memStore) SetStage(ctx context.Context, id string, stage models.MeetingStage) error {
	s.stages = append(s.stages, stage)
	return nil
}

func (s *memStore) SaveTranscript(ctx context.Context, id string, text string, segments []models.Segment) error {
	s.transcript = text
	s.segments = segments
	return nil
}

func (s *memStore) SaveCorrection(ctx context.Context, id string, text string, segments []models.Segment) error {
	s.corrected = text
	s.corrSegments = segments
	return nil
}

func (s *memStore) SaveSummary(ctx context.Context, id string, summary string) error {
	s.summary = summary
	return nil
}

func (s *memStore) Complete(ctx context.Context, id string) error {
	s.completed = true
	return nil
}

func (s *memStore) Fail(ctx context.Context, id string, message string) error {
	s.failMessage = message
	return nil
}

type staticCredentials struct {
	key string
	err error
}

func (c staticCredentials) Resolve(ctx context.Context, teamID string) (string, error) {
	return c.key, c.err
}

// fakeLLM scripts the correction and summary calls.
type fakeLLM struct {
	correctTextOut string
	correctTextErr error
	segmentsOut    []models.Segment
	segmentsErr    error
	summaryOut     string
	summaryErr     error

	summarizeInput string
}

func (f *fakeLLM) CorrectText(ctx context.Context, text string) (string, error) {
	return f.correctTextOut, f.correctTextErr
}

func (f *fakeLLM) CorrectSegments(ctx context.Context, segments []models.Segment) ([]models.Segment, error) {
	return f.segmentsOut, f.segmentsErr
}

func (f *fakeLLM) Summarize(ctx context.Context, text string) (string, error) {
	f.summarizeInput = text
	return f.summaryOut, f.summaryErr
}

func (f *fakeLLM) Close() error { return nil }

type eventRecord struct {
	stage   models.MeetingStage
	message string
}

type memSink struct {
	events []eventRecord
}

func (s *memSink) StageChanged(ctx context.Context, meetingID string, attempt int, stage models.MeetingStage, message string) {
	s.events = append(s.events, eventRecord{stage: stage, message: message})
}

func smallAudioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meeting.mp3")
	if err := os.WriteFile(path, []byte("tiny"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func newTestRunner(t *testing.T, store *memStore, sttP stt.Provider, llmP llm.Provider, sink EventSink) *Runner {
	runner := &mediaRunner{t: t, durations: map[string]string{"meeting.mp3": "60"}}
	tr := newChunkedTranscriber(t, runner)

	return &Runner{
		Store:       store,
		Credentials: staticCredentials{key: "sk-test"},
		Compressor:  media.NewCompressorForTests(runner, testLogger()),
		Transcriber: tr,
		NewSTT:      func(string) stt.Provider { return sttP },
		NewLLM:      func(string) llm.Provider { return llmP },
		Events:      sink,
		Log:         testLogger(),
	}
}

func TestProcessHappyPath(t *testing.T) {
	store := &memStore{meeting: &models.Meeting{
		ID:        "m1",
		TeamID:    "t1",
		AudioPath: smallAudioFile(t),
	}}
	sttP := &scriptedSTT{results: []*models.TranscriptionResult{{
		Text: "raw one raw two",
		Segments: []models.Segment{
			{Speaker: "Speaker 0", Start: 0, End: 3, Text: "raw one"},
			{Speaker: "Speaker 1", Start: 3, End: 6, Text: "raw two"},
		},
	}}}
	llmP := &fakeLLM{
		segmentsOut: []models.Segment{
			{Speaker: "Speaker 0", Start: 0, End: 3, Text: "clean one"},
			{Speaker: "Speaker 1", Start: 3, End: 6, Text: "clean two"},
		},
		summaryOut: "the summary",
	}
	sink := &memSink{}

	r := newTestRunner(t, store, sttP, llmP, sink)
	if err := r.Process(context.Background(), "m1", 0); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	wantStages := []models.MeetingStage{
		models.StageCompressing,
		models.StageTranscribing,
		models.StageCorrecting,
		models.StageSummarizing,
	}
	if len(store.stages) != len(wantStages) {
		t.Fatalf("stages = %v", store.stages)
	}
	for i, want := range wantStages {
		if store.stages[i] != want {
			t.Fatalf("stage %d = %v, want %v", i, store.stages[i], want)
		}
	}

	if store.transcript != "raw one raw two" {
		t.Fatalf("transcript = %q", store.transcript)
	}
	if store.corrected != "clean one clean two" {
		t.Fatalf("corrected = %q", store.corrected)
	}
	if len(store.corrSegments) != 2 || store.corrSegments[0].Text != "clean one" {
		t.Fatalf("corrected segments = %v", store.corrSegments)
	}
	if llmP.summarizeInput != "clean one clean two" {
		t.Fatalf("summary input = %q, want the corrected text", llmP.summarizeInput)
	}
	if store.summary != "the summary" {
		t.Fatalf("summary = %q", store.summary)
	}
	if !store.completed {
		t.Fatalf("job not completed")
	}
	if store.failMessage != "" {
		t.Fatalf("unexpected failure: %q", store.failMessage)
	}

	last := sink.events[len(sink.events)-1]
	if last.stage != models.StageCompleted {
		t.Fatalf("last event = %v, want Completed", last.stage)
	}
}

// remoteFiles maps bucket-style stored paths to local files, standing in for
// a remote audio store.
type remoteFiles struct {
	files    map[string]string
	fetchErr error
	cleaned  []string
}

func (f *remoteFiles) Fetch(ctx context.Context, storedPath string) (string, func(), error) {
	if f.fetchErr != nil {
		return "", nil, f.fetchErr
	}
	local, ok := f.files[storedPath]
	if !ok {
		return "", nil, errors.New("object not found")
	}
	return local, func() { f.cleaned = append(f.cleaned, storedPath) }, nil
}

func TestProcessFetchesRemoteAudio(t *testing.T) {
	local := smallAudioFile(t)
	files := &remoteFiles{files: map[string]string{"gs://meetings/m1.mp3": local}}
	store := &memStore{meeting: &models.Meeting{
		ID:        "m1",
		TeamID:    "t1",
		AudioPath: "gs://meetings/m1.mp3",
	}}
	sttP := &scriptedSTT{results: []*models.TranscriptionResult{{Text: "remote words"}}}
	llmP := &fakeLLM{correctTextOut: "remote words", summaryOut: "s"}

	r := newTestRunner(t, store, sttP, llmP, nil)
	r.Files = files
	if err := r.Process(context.Background(), "m1", 0); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(sttP.calls) != 1 || sttP.calls[0] != local {
		t.Fatalf("provider read %v, want the fetched local file %q", sttP.calls, local)
	}
	if !store.completed {
		t.Fatalf("job not completed")
	}
	if len(files.cleaned) != 1 {
		t.Fatalf("fetched scratch file not released: %v", files.cleaned)
	}
}

func TestProcessFetchFailureIsRetryable(t *testing.T) {
	store := &memStore{meeting: &models.Meeting{
		ID: "m1", TeamID: "t1", AudioPath: "gs://meetings/m1.mp3",
	}}
	sttP := &scriptedSTT{}

	r := newTestRunner(t, store, sttP, &fakeLLM{}, nil)
	r.Files = &remoteFiles{fetchErr: errors.New("bucket unavailable")}

	if err := r.Process(context.Background(), "m1", 0); err == nil {
		t.Fatalf("fetch failure must surface for retry")
	}
	if store.failMessage != MsgNoAudioFile {
		t.Fatalf("fail message = %q, want %q", store.failMessage, MsgNoAudioFile)
	}
	if len(store.stages) != 0 {
		t.Fatalf("no stage should be entered, got %v", store.stages)
	}
	if len(sttP.calls) != 0 {
		t.Fatalf("provider must not be called")
	}
}

func TestProcessNoAudioFailsWithoutRetry(t *testing.T) {
	store := &memStore{meeting: &models.Meeting{ID: "m1", TeamID: "t1"}}
	sttP := &scriptedSTT{}
	sink := &memSink{}

	r := newTestRunner(t, store, sttP, &fakeLLM{}, sink)
	if err := r.Process(context.Background(), "m1", 0); err != nil {
		t.Fatalf("missing audio must not be retryable, got %v", err)
	}

	if store.failMessage != MsgNoAudioFile {
		t.Fatalf("fail message = %q, want %q", store.failMessage, MsgNoAudioFile)
	}
	if len(store.stages) != 0 {
		t.Fatalf("no stage should be entered, got %v", store.stages)
	}
	if len(sttP.calls) != 0 {
		t.Fatalf("provider must not be called")
	}
	if sink.events[len(sink.events)-1].stage != models.StageFailed {
		t.Fatalf("expected a Failed event")
	}
}

func TestProcessMissingCredentialFailsWithoutRetry(t *testing.T) {
	store := &memStore{meeting: &models.Meeting{
		ID: "m1", TeamID: "t1", AudioPath: smallAudioFile(t),
	}}
	sttP := &scriptedSTT{}

	r := newTestRunner(t, store, sttP, &fakeLLM{}, nil)
	r.Credentials = staticCredentials{err: errors.New("no setting row")}

	if err := r.Process(context.Background(), "m1", 0); err != nil {
		t.Fatalf("missing credential must not be retryable, got %v", err)
	}
	if store.failMessage != MsgNoAPIKey {
		t.Fatalf("fail message = %q, want %q", store.failMessage, MsgNoAPIKey)
	}
	if len(sttP.calls) != 0 {
		t.Fatalf("provider must not be called")
	}
}

func TestProcessTranscriptionFailureIsRetryable(t *testing.T) {
	store := &memStore{meeting: &models.Meeting{
		ID: "m1", TeamID: "t1", AudioPath: smallAudioFile(t),
	}}
	sttP := &scriptedSTT{errs: []error{errors.New("provider 500")}}

	r := newTestRunner(t, store, sttP, &fakeLLM{}, nil)
	if err := r.Process(context.Background(), "m1", 0); err == nil {
		t.Fatalf("transcription failure must surface for retry")
	}
	if store.failMessage == "" {
		t.Fatalf("failure not persisted")
	}
	if store.completed {
		t.Fatalf("job must not complete")
	}
}

func TestProcessCorrectionFailureDegrades(t *testing.T) {
	store := &memStore{meeting: &models.Meeting{
		ID: "m1", TeamID: "t1", AudioPath: smallAudioFile(t),
	}}
	segments := []models.Segment{
		{Speaker: "Speaker 0", Start: 0, End: 2, Text: "as"},
		{Speaker: "Speaker 0", Start: 2, End: 4, Text: "heard"},
	}
	sttP := &scriptedSTT{results: []*models.TranscriptionResult{{Text: "as heard", Segments: segments}}}
	llmP := &fakeLLM{segmentsErr: llm.ErrSegmentMismatch, summaryOut: "s"}

	r := newTestRunner(t, store, sttP, llmP, nil)
	if err := r.Process(context.Background(), "m1", 0); err != nil {
		t.Fatalf("Process() error = %v, correction failures must not fail the job", err)
	}

	if !store.completed {
		t.Fatalf("job should complete despite correction failure")
	}
	if len(store.corrSegments) != 2 || store.corrSegments[0].Text != "as" {
		t.Fatalf("original segments should be kept, got %v", store.corrSegments)
	}
	if store.corrected != "as heard" {
		t.Fatalf("corrected text = %q, want the joined originals", store.corrected)
	}
}

func TestProcessTextCorrectionWithoutSegments(t *testing.T) {
	store := &memStore{meeting: &models.Meeting{
		ID: "m1", TeamID: "t1", AudioPath: smallAudioFile(t),
	}}
	sttP := &scriptedSTT{results: []*models.TranscriptionResult{{Text: "just text"}}}
	llmP := &fakeLLM{correctTextOut: "just text, fixed", summaryOut: "s"}

	r := newTestRunner(t, store, sttP, llmP, nil)
	if err := r.Process(context.Background(), "m1", 0); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if store.corrected != "just text, fixed" {
		t.Fatalf("corrected = %q", store.corrected)
	}
	if len(store.corrSegments) != 0 {
		t.Fatalf("no segments expected, got %v", store.corrSegments)
	}
}

func TestRegenerateSummaryUsesStoredTranscript(t *testing.T) {
	store := &memStore{meeting: &models.Meeting{
		ID:                  "m1",
		TeamID:              "t1",
		Transcript:          "raw",
		CorrectedTranscript: "corrected",
		Stage:               models.StageCompleted,
	}}
	llmP := &fakeLLM{summaryOut: "fresh summary"}

	r := newTestRunner(t, store, &scriptedSTT{}, llmP, nil)
	if err := r.RegenerateSummary(context.Background(), "m1"); err != nil {
		t.Fatalf("RegenerateSummary() error = %v", err)
	}

	if llmP.summarizeInput != "corrected" {
		t.Fatalf("summary input = %q, want the corrected transcript", llmP.summarizeInput)
	}
	if store.summary != "fresh summary" {
		t.Fatalf("summary = %q", store.summary)
	}
	if !store.completed {
		t.Fatalf("meeting should return to completed")
	}
	if len(store.stages) != 1 || store.stages[0] != models.StageSummarizing {
		t.Fatalf("stages = %v, want only Summarizing", store.stages)
	}
}

func TestRegenerateSummaryWithoutTranscriptIsNoop(t *testing.T) {
	store := &memStore{meeting: &models.Meeting{ID: "m1", TeamID: "t1", Stage: models.StageFailed}}
	llmP := &fakeLLM{summaryOut: "x"}

	r := newTestRunner(t, store, &scriptedSTT{}, llmP, nil)
	if err := r.RegenerateSummary(context.Background(), "m1"); err != nil {
		t.Fatalf("RegenerateSummary() error = %v", err)
	}
	if len(store.stages) != 0 || store.summary != "" {
		t.Fatalf("no work expected without a transcript")
	}
}

func TestJoinSegmentTexts(t *testing.T) {
	got := joinSegmentTexts([]models.Segment{
		{Text: "a"}, {Text: ""}, {Text: "b"},
	})
	if got != "a b" {
		t.Fatalf("joinSegmentTexts = %q", got)
	}
	if s := joinSegmentTexts(nil); s != "" {
		t.Fatalf("joinSegmentTexts(nil) = %q", s)
	}
	if !strings.Contains(joinSegmentTexts([]models.Segment{{Text: "한국어"}, {Text: "텍스트"}}), " ") {
		t.Fatalf("texts should be space separated")
	}
}
