package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"dubber/internal/config"
	"dubber/internal/media"
	"dubber/internal/providers/deepgram"
	"dubber/internal/providers/openai"
	"dubber/internal/voices"
)

// Compose builds a Pipeline with production collaborators from configuration.
func Compose(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	runner := media.NewRunner(media.Options{
		FFmpeg:            cfg.Tools.FFmpeg,
		FFprobe:           cfg.Tools.FFprobe,
		ProbeTimeout:      time.Duration(cfg.Tools.ProbeTimeout) * time.Second,
		ExtractionTimeout: time.Duration(cfg.Tools.ExtractionTimeout) * time.Second,
		OperationTimeout:  time.Duration(cfg.Tools.OperationTimeout) * time.Second,
		SampleRate:        cfg.Pipeline.SampleRate,
		Channels:          cfg.Pipeline.Channels,
	})

	dg := deepgram.NewClient(deepgram.Config{
		APIKey:         cfg.Deepgram.APIKey,
		BaseURL:        cfg.Deepgram.BaseURL,
		Model:          cfg.Deepgram.TranscriptionModel,
		TimeoutSeconds: cfg.Deepgram.RequestTimeout,
	})

	translator := openai.NewTranslator(openai.Config{
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
	})

	catalog := voices.NewCatalog(voices.FromConfig(cfg.Voices))
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("voice catalog: %w", err)
	}

	return New(cfg, runner, dg, translator, dg, catalog, logger), nil
}
