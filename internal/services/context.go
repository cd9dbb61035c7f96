package services

import "context"

type contextKey string

const (
	jobIDKey    contextKey = "job_id"
	languageKey contextKey = "language"
	stageKey    contextKey = "stage"
)

// WithJobID annotates context with the dubbing job identifier.
func WithJobID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the job identifier if present.
func JobIDFromContext(ctx context.Context) (int64, bool) {
	switch val := ctx.Value(jobIDKey).(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithLanguage annotates context with the target language code.
func WithLanguage(ctx context.Context, language string) context.Context {
	if language == "" {
		return ctx
	}
	return context.WithValue(ctx, languageKey, language)
}

// LanguageFromContext returns the target language code if present.
func LanguageFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(languageKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(stageKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}
