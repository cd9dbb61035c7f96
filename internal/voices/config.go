package voices

import "dubber/internal/config"

// FromConfig converts configured per-language voice overrides into
// catalog entries. Returns nil when no overrides are configured.
func FromConfig(entries map[string][]config.VoiceEntry) map[string][]Entry {
	if len(entries) == 0 {
		return nil
	}
	overrides := make(map[string][]Entry, len(entries))
	for lang, list := range entries {
		converted := make([]Entry, 0, len(list))
		for _, entry := range list {
			converted = append(converted, Entry{
				Name:    entry.Name,
				PitchHz: entry.PitchHz,
				Gender:  entry.Gender,
			})
		}
		overrides[lang] = converted
	}
	return overrides
}
