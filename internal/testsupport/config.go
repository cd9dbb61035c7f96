package testsupport

import (
	"path/filepath"
	"testing"

	"dubber/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Workflow.QueuePollInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithLanguageWorkers overrides per-job language concurrency.
func WithLanguageWorkers(workers int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.LanguageWorkers = workers
	}
}

// WithNtfyTopic points notifications at the given endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notifications.Topic = topic
	}
}
