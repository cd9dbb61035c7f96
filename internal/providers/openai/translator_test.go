package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"

	"dubber/internal/providers"
)

type fakeCompleter struct {
	request  goopenai.ChatCompletionRequest
	response goopenai.ChatCompletionResponse
	err      error
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, request goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	f.request = request
	return f.response, f.err
}

func completionWith(content string) goopenai.ChatCompletionResponse {
	return goopenai.ChatCompletionResponse{
		Choices: []goopenai.ChatCompletionChoice{
			{Message: goopenai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestTranslateBuildsPrompt(t *testing.T) {
	fake := &fakeCompleter{response: completionWith("  Hola mundo ")}
	translator := NewTranslator(Config{}, WithClient(fake))

	got, err := translator.Translate(context.Background(), "Hello world", "es", "en")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got != "Hola mundo" {
		t.Errorf("translated = %q, want trimmed %q", got, "Hola mundo")
	}

	if fake.request.Model != goopenai.GPT4oMini {
		t.Errorf("model = %q", fake.request.Model)
	}
	if fake.request.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", fake.request.Temperature)
	}
	if len(fake.request.Messages) != 2 {
		t.Fatalf("messages = %d, want system+user", len(fake.request.Messages))
	}
	system := fake.request.Messages[0].Content
	if !strings.Contains(system, "from English to Spanish") {
		t.Errorf("system prompt missing display names: %q", system)
	}
	if !strings.Contains(system, "professional translator") {
		t.Errorf("system prompt missing role: %q", system)
	}
	if fake.request.Messages[1].Content != "Hello world" {
		t.Errorf("user message = %q", fake.request.Messages[1].Content)
	}
}

func TestTranslateEmptyTextShortCircuits(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("should not be called")}
	translator := NewTranslator(Config{}, WithClient(fake))

	got, err := translator.Translate(context.Background(), "   ", "es", "en")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got != "" {
		t.Errorf("translated = %q, want empty", got)
	}
}

func TestTranslateWrapsProviderError(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("quota exceeded")}
	translator := NewTranslator(Config{}, WithClient(fake))

	_, err := translator.Translate(context.Background(), "Hello", "es", "en")
	if !errors.Is(err, providers.ErrTranslation) {
		t.Fatalf("expected ErrTranslation, got %v", err)
	}
}

func TestTranslateRejectsEmptyCompletion(t *testing.T) {
	fake := &fakeCompleter{response: completionWith("   ")}
	translator := NewTranslator(Config{}, WithClient(fake))

	_, err := translator.Translate(context.Background(), "Hello", "es", "en")
	if !errors.Is(err, providers.ErrTranslation) {
		t.Fatalf("expected ErrTranslation for blank completion, got %v", err)
	}
}

func TestNewTranslatorOverrides(t *testing.T) {
	fake := &fakeCompleter{response: completionWith("ok")}
	translator := NewTranslator(Config{Model: "gpt-4o", Temperature: 0.7}, WithClient(fake))

	if _, err := translator.Translate(context.Background(), "Hello", "fr", "en"); err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if fake.request.Model != "gpt-4o" {
		t.Errorf("model = %q, want override", fake.request.Model)
	}
	if fake.request.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", fake.request.Temperature)
	}
}
