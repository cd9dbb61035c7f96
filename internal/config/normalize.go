package config

import (
	"fmt"
	"os"
	"strings"
)

// normalize expands path fields and applies environment variable overrides.
func (c *Config) normalize() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("normalize work_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("normalize output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("normalize log_dir: %w", err)
	}

	if key := strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")); key != "" && c.Deepgram.APIKey == "" {
		c.Deepgram.APIKey = key
	}
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" && c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = key
	}

	if c.Pipeline.LanguageWorkers <= 0 {
		c.Pipeline.LanguageWorkers = defaultLanguageWorkers
	}
	if c.Workflow.JobWorkers <= 0 {
		c.Workflow.JobWorkers = defaultJobWorkers
	}
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}

	normalized := make(map[string][]VoiceEntry, len(c.Voices))
	for lang, entries := range c.Voices {
		normalized[strings.ToLower(strings.TrimSpace(lang))] = entries
	}
	c.Voices = normalized

	return nil
}
