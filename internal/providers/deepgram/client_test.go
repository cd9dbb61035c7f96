package deepgram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dubber/internal/providers"
)

const listenFixture = `{
  "metadata": {"duration": 12.5},
  "results": {
    "channels": [{"alternatives": [{"transcript": "hello world", "confidence": 0.97}]}],
    "utterances": [
      {"start": 0.0, "end": 4.0, "transcript": "hello", "speaker": 0, "confidence": 0.96},
      {"start": 5.0, "end": 9.0, "transcript": "world", "speaker": 1, "confidence": 0.94}
    ]
  }
}`

func writeAudioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte("RIFFxxxx"), 0o644); err != nil {
		t.Fatalf("write audio fixture: %v", err)
	}
	return path
}

func TestTranscribeDecodesUtterances(t *testing.T) {
	var gotQuery string
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(listenFixture))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL})
	result, err := client.Transcribe(context.Background(), writeAudioFixture(t), "en", true)
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if gotAuth != "Token key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	for _, param := range []string{"model=nova-2", "language=en", "diarize=true", "utterances=true"} {
		if !containsParam(gotQuery, param) {
			t.Errorf("query missing %q: %s", param, gotQuery)
		}
	}
	if result.Transcript != "hello world" || result.Confidence != 0.97 {
		t.Errorf("transcript = %q conf %v", result.Transcript, result.Confidence)
	}
	if result.DurationSeconds != 12.5 {
		t.Errorf("duration = %v, want 12.5", result.DurationSeconds)
	}
	if len(result.Utterances) != 2 {
		t.Fatalf("utterances = %d, want 2", len(result.Utterances))
	}
	if result.Utterances[1].SpeakerID != 1 || result.Utterances[1].Text != "world" {
		t.Errorf("second utterance wrong: %+v", result.Utterances[1])
	}
}

func containsParam(query, param string) bool {
	for _, part := range splitQuery(query) {
		if part == param {
			return true
		}
	}
	return false
}

func splitQuery(query string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(query); i++ {
		if i == len(query) || query[i] == '&' {
			parts = append(parts, query[start:i])
			start = i + 1
		}
	}
	return parts
}

func TestTranscribeWithoutDiarization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if containsParam(r.URL.RawQuery, "diarize=true") {
			t.Error("diarize param set without diarization")
		}
		w.Write([]byte(`{"results": {"channels": [{"alternatives": [{"transcript": "hi", "confidence": 0.9}]}]}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL})
	result, err := client.Transcribe(context.Background(), writeAudioFixture(t), "en", false)
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if len(result.Utterances) != 0 {
		t.Errorf("expected no utterances, got %d", len(result.Utterances))
	}
}

func TestTranscribeRetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(listenFixture))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL},
		WithSleeper(func(time.Duration) {}))
	if _, err := client.Transcribe(context.Background(), writeAudioFixture(t), "en", true); err != nil {
		t.Fatalf("Transcribe returned error after retries: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestTranscribeDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL},
		WithSleeper(func(time.Duration) {}))
	_, err := client.Transcribe(context.Background(), writeAudioFixture(t), "en", true)
	if !errors.Is(err, providers.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 401)", calls)
	}
}

func TestTranscribeRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Transcribe(context.Background(), "audio.wav", "en", true)
	if !errors.Is(err, providers.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
}

func TestGenerateSpeech(t *testing.T) {
	var gotQuery string
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL})
	audio, err := client.GenerateSpeech(context.Background(), "hola mundo", "es", "aura-2-celeste-es")
	if err != nil {
		t.Fatalf("GenerateSpeech returned error: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Errorf("audio = %q", audio)
	}
	if !containsParam(gotQuery, "model=aura-2-celeste-es") || !containsParam(gotQuery, "encoding=mp3") {
		t.Errorf("query wrong: %s", gotQuery)
	}
	if gotBody != `{"text":"hola mundo"}` {
		t.Errorf("body = %s", gotBody)
	}
}

func TestGenerateSpeechValidation(t *testing.T) {
	client := NewClient(Config{APIKey: "key"})
	if _, err := client.GenerateSpeech(context.Background(), "", "es", "voice"); !errors.Is(err, providers.ErrSynthesis) {
		t.Errorf("empty text: expected ErrSynthesis, got %v", err)
	}
	if _, err := client.GenerateSpeech(context.Background(), "hola", "es", ""); !errors.Is(err, providers.ErrSynthesis) {
		t.Errorf("empty voice: expected ErrSynthesis, got %v", err)
	}
}
