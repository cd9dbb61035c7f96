// Package openai adapts the OpenAI chat completion API to the
// pipeline's Translator interface.
package openai

import (
	"context"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"dubber/internal/language"
	"dubber/internal/providers"
)

const (
	defaultModel       = goopenai.GPT4oMini
	defaultTemperature = 0.3
	maxTokens          = 2000
)

// chatCompleter is the slice of the OpenAI client the translator uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Config captures the runtime settings for translation.
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
}

// Translator implements providers.Translator over chat completions.
type Translator struct {
	client      chatCompleter
	model       string
	temperature float32
}

// Option customizes the translator.
type Option func(*Translator)

// WithClient overrides the OpenAI client (useful for tests).
func WithClient(client chatCompleter) Option {
	return func(t *Translator) {
		if client != nil {
			t.client = client
		}
	}
}

// NewTranslator constructs a Translator from configuration.
func NewTranslator(cfg Config, opts ...Option) *Translator {
	translator := &Translator{
		model:       strings.TrimSpace(cfg.Model),
		temperature: float32(cfg.Temperature),
	}
	if translator.model == "" {
		translator.model = defaultModel
	}
	if cfg.Temperature <= 0 {
		translator.temperature = defaultTemperature
	}
	for _, opt := range opts {
		opt(translator)
	}
	if translator.client == nil {
		translator.client = goopenai.NewClient(strings.TrimSpace(cfg.APIKey))
	}
	return translator
}

// Translate renders text in the target language, preserving tone and
// meaning. Language codes are spelled out as English display names in
// the prompt so the model is never guessing at codes.
func (t *Translator) Translate(ctx context.Context, text, targetLang, sourceLang string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	systemPrompt := fmt.Sprintf(
		"You are a professional translator. Translate the following text from %s to %s. Maintain the original tone, style, and meaning. Return only the translated text.",
		language.DisplayName(sourceLang),
		language.DisplayName(targetLang),
	)

	resp, err := t.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: t.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   maxTokens,
		Temperature: t.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", providers.ErrTranslation, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", providers.ErrTranslation)
	}
	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return "", fmt.Errorf("%w: empty translated text", providers.ErrTranslation)
	}
	return translated, nil
}
