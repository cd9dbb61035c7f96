// Package deepgram adapts the Deepgram REST API to the pipeline's
// Transcriber and Synthesizer interfaces. Prerecorded transcription uses
// the listen endpoint with diarization and utterances; synthesis uses
// the Aura speak endpoint.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"dubber/internal/providers"
	"dubber/internal/timeline"
)

const (
	defaultBaseURL     = "https://api.deepgram.com"
	defaultModel       = "nova-2"
	defaultHTTPTimeout = 60 * time.Second

	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

// Config captures the runtime settings required to talk to Deepgram.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client implements providers.Transcriber and providers.Synthesizer.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a Deepgram client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

type listenResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
		Utterances []struct {
			Start      float64 `json:"start"`
			End        float64 `json:"end"`
			Transcript string  `json:"transcript"`
			Speaker    int     `json:"speaker"`
			Confidence float64 `json:"confidence"`
		} `json:"utterances"`
	} `json:"results"`
}

// Transcribe uploads the audio file to the prerecorded listen endpoint
// and decodes the transcript, optionally with per-speaker utterances.
func (c *Client) Transcribe(ctx context.Context, audioPath, language string, diarize bool) (providers.Transcription, error) {
	var empty providers.Transcription
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return empty, fmt.Errorf("%w: api key required", providers.ErrTranscription)
	}
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return empty, fmt.Errorf("%w: read audio: %v", providers.ErrTranscription, err)
	}

	query := url.Values{}
	query.Set("model", c.cfg.Model)
	query.Set("language", language)
	query.Set("smart_format", "true")
	query.Set("punctuate", "true")
	if diarize {
		query.Set("diarize", "true")
		query.Set("utterances", "true")
	}
	endpoint := c.cfg.BaseURL + "/v1/listen?" + query.Encode()

	body, err := c.postWithRetry(ctx, endpoint, "audio/wav", audio)
	if err != nil {
		return empty, fmt.Errorf("%w: %v", providers.ErrTranscription, err)
	}

	var decoded listenResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return empty, fmt.Errorf("%w: decode response: %v", providers.ErrTranscription, err)
	}
	if len(decoded.Results.Channels) == 0 || len(decoded.Results.Channels[0].Alternatives) == 0 {
		return empty, fmt.Errorf("%w: empty transcription result", providers.ErrTranscription)
	}

	alternative := decoded.Results.Channels[0].Alternatives[0]
	result := providers.Transcription{
		Transcript:      alternative.Transcript,
		Confidence:      alternative.Confidence,
		DurationSeconds: decoded.Metadata.Duration,
	}
	for _, utt := range decoded.Results.Utterances {
		result.Utterances = append(result.Utterances, timeline.Utterance{
			Start:      utt.Start,
			End:        utt.End,
			Text:       utt.Transcript,
			SpeakerID:  utt.Speaker,
			Confidence: utt.Confidence,
		})
	}
	return result, nil
}

// GenerateSpeech renders text with the given Aura voice and returns the
// raw audio bytes.
func (c *Client) GenerateSpeech(ctx context.Context, text, _ string, voiceID string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: api key required", providers.ErrSynthesis)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", providers.ErrSynthesis)
	}
	if strings.TrimSpace(voiceID) == "" {
		return nil, fmt.Errorf("%w: voice required", providers.ErrSynthesis)
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("%w: encode body: %v", providers.ErrSynthesis, err)
	}
	query := url.Values{}
	query.Set("model", voiceID)
	query.Set("encoding", "mp3")
	endpoint := c.cfg.BaseURL + "/v1/speak?" + query.Encode()

	audio, err := c.postWithRetry(ctx, endpoint, "application/json", payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", providers.ErrSynthesis, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio response", providers.ErrSynthesis)
	}
	return audio, nil
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("deepgram request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (c *Client) postWithRetry(ctx context.Context, endpoint, contentType string, payload []byte) ([]byte, error) {
	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.postOnce(ctx, endpoint, contentType, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return nil, err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) postOnce(ctx context.Context, endpoint, contentType string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("deepgram request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram request: http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("deepgram request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *Client) retryAttempts() int {
	if c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}
	return c.backoffDelay(attempt), true
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.retryBaseDelay
	if delay < 0 {
		delay = defaultRetryBaseDelay
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	if maxDelay := c.retryMaxDelay; maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
