// Package voices maps detected speakers to synthetic voices by pitch.
//
// Each target language has a finite catalog of voices with known
// characteristic pitches. Speakers are matched to voices by rank:
// speakers sorted by estimated pitch are zipped against the catalog
// sorted by pitch, cycling when there are more speakers than voices.
package voices

import (
	"fmt"
	"sort"
	"strings"
)

// Entry is one synthetic voice with its characteristic pitch.
type Entry struct {
	Name    string
	PitchHz float64
	Gender  string
}

// Catalog holds the per-language voice entries.
type Catalog struct {
	byLanguage map[string][]Entry
}

// builtinCatalogs lists the stock voices per language. Config entries
// override these wholesale per language.
var builtinCatalogs = map[string][]Entry{
	"en": {
		{Name: "aura-asteria-en", PitchHz: 200, Gender: "female"},
		{Name: "aura-orion-en", PitchHz: 120, Gender: "male"},
		{Name: "aura-luna-en", PitchHz: 215, Gender: "female"},
		{Name: "aura-arcas-en", PitchHz: 110, Gender: "male"},
	},
	"es": {
		{Name: "aura-2-celeste-es", PitchHz: 210, Gender: "female"},
		{Name: "aura-2-nestor-es", PitchHz: 125, Gender: "male"},
	},
	"fr": {
		{Name: "aura-stella-fr", PitchHz: 205, Gender: "female"},
	},
	"de": {
		{Name: "aura-arcas-de", PitchHz: 115, Gender: "male"},
	},
}

// fallbackEntry covers languages with no catalog of their own.
var fallbackEntry = Entry{Name: "aura-asteria-en", PitchHz: 200, Gender: "female"}

// NewCatalog builds a catalog from the built-in voices plus per-language
// overrides (typically from configuration). Override keys are language
// codes; an override replaces the built-in list for that language.
func NewCatalog(overrides map[string][]Entry) *Catalog {
	byLanguage := make(map[string][]Entry, len(builtinCatalogs)+len(overrides))
	for lang, entries := range builtinCatalogs {
		byLanguage[lang] = append([]Entry(nil), entries...)
	}
	for lang, entries := range overrides {
		if len(entries) == 0 {
			continue
		}
		byLanguage[strings.ToLower(strings.TrimSpace(lang))] = append([]Entry(nil), entries...)
	}
	return &Catalog{byLanguage: byLanguage}
}

// ForLanguage returns the voice entries for a language, falling back to
// the stock English voice when the language has no catalog.
func (c *Catalog) ForLanguage(lang string) []Entry {
	entries, ok := c.byLanguage[strings.ToLower(strings.TrimSpace(lang))]
	if !ok || len(entries) == 0 {
		return []Entry{fallbackEntry}
	}
	return entries
}

// DefaultVoice is the voice used for speakers without a qualifying
// pitch sample: the highest-pitch entry of the language's catalog.
func (c *Catalog) DefaultVoice(lang string) Entry {
	entries := c.ForLanguage(lang)
	best := entries[0]
	for _, entry := range entries[1:] {
		if entry.PitchHz > best.PitchHz {
			best = entry
		}
	}
	return best
}

// Languages returns the sorted list of languages with a catalog.
func (c *Catalog) Languages() []string {
	langs := make([]string, 0, len(c.byLanguage))
	for lang := range c.byLanguage {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Validate rejects catalogs with unusable entries.
func (c *Catalog) Validate() error {
	for lang, entries := range c.byLanguage {
		for i, entry := range entries {
			if strings.TrimSpace(entry.Name) == "" {
				return fmt.Errorf("voices: language %s entry %d has empty name", lang, i)
			}
			if entry.PitchHz <= 0 {
				return fmt.Errorf("voices: language %s voice %s has non-positive pitch", lang, entry.Name)
			}
		}
	}
	return nil
}
