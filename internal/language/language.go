package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Normalize reduces a language identifier ("es", "es-ES", "spa", "Spanish")
// to its ISO 639-1 base code. Returns the lowercased input unchanged when it
// cannot be parsed.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	base, conf := tag.Base()
	if conf == language.No {
		return code
	}
	return base.String()
}

// DisplayName returns the English display name for a language code, suitable
// for translation prompts ("es" → "Spanish"). Falls back to the input when the
// code cannot be resolved.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return trimmed
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return trimmed
	}
	return name
}

// Equal reports whether two language identifiers refer to the same base
// language regardless of region or form.
func Equal(a, b string) bool {
	return Normalize(a) != "" && Normalize(a) == Normalize(b)
}
