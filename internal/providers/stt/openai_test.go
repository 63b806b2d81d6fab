package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func audioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meeting.mp3")
	if err := os.WriteFile(path, []byte("fake-audio"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestTranscribeAudioSendsDiarizedRequest(t *testing.T) {
	var form map[string]string
	var gotAuth, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		form = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			form[k] = v[0]
		}
		if fhs := r.MultipartForm.File["file"]; len(fhs) == 1 {
			gotFile = fhs[0].Filename
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"text": "안녕하세요 반갑습니다",
			"segments": [
				{"speaker":"Speaker 0","start":0.0,"end":2.5,"text":"안녕하세요"},
				{"speaker":"Speaker 1","start":2.5,"end":5.0,"text":"반갑습니다"}
			]
		}`))
	}))
	defer srv.Close()

	c := NewOpenAIForTests("sk-test", srv.URL)
	got, err := c.TranscribeAudio(context.Background(), audioFixture(t), "ko")
	if err != nil {
		t.Fatalf("TranscribeAudio() error = %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if form["model"] != "gpt-4o-transcribe-diarize" {
		t.Fatalf("model = %q", form["model"])
	}
	if form["response_format"] != "diarized_json" {
		t.Fatalf("response_format = %q", form["response_format"])
	}
	if form["language"] != "ko" {
		t.Fatalf("language = %q", form["language"])
	}
	if gotFile != "meeting.mp3" {
		t.Fatalf("file name = %q", gotFile)
	}

	if got.Text != "안녕하세요 반갑습니다" {
		t.Fatalf("text = %q", got.Text)
	}
	if len(got.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(got.Segments))
	}
	if got.Segments[1].Speaker != "Speaker 1" || got.Segments[1].Start != 2.5 {
		t.Fatalf("segment 1 = %+v", got.Segments[1])
	}
}

func TestTranscribeAudioDefaultsLanguage(t *testing.T) {
	var language string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		language = r.MultipartForm.Value["language"][0]
		_, _ = w.Write([]byte(`{"text":"","segments":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAIForTests("sk-test", srv.URL)
	if _, err := c.TranscribeAudio(context.Background(), audioFixture(t), ""); err != nil {
		t.Fatalf("TranscribeAudio() error = %v", err)
	}
	if language != "ko" {
		t.Fatalf("language = %q, want the Korean default", language)
	}
}

func TestTranscribeAudioHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAIForTests("sk-test", srv.URL)
	_, err := c.TranscribeAudio(context.Background(), audioFixture(t), "ko")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("error = %v, want http 429 surfaced", err)
	}
}

func TestTranscribeAudioMissingFile(t *testing.T) {
	c := NewOpenAIForTests("sk-test", "http://unused")
	if _, err := c.TranscribeAudio(context.Background(), "/nope/missing.mp3", "ko"); err == nil {
		t.Fatalf("missing file must be an error")
	}
}
