// Package textchunk splits long text into size-bounded chunks for
// translation and synthesis, and reassembles per-chunk results in order.
package textchunk

import (
	"strings"
	"unicode"
)

// DefaultMaxLength is the chunk size used when no limit is configured.
const DefaultMaxLength = 1000

// Split breaks text into chunks of at most maxLength characters.
// Sentences are kept whole when possible; a sentence longer than
// maxLength falls back to word-boundary splitting. Words are never
// split. Text at or under the limit is returned as a single chunk.
func Split(text string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len(trimmed) <= maxLength {
		return []string{trimmed}
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, sentence := range splitSentences(trimmed) {
		if len(sentence) > maxLength {
			flush()
			chunks = append(chunks, splitWords(sentence, maxLength)...)
			continue
		}
		if current.Len() > 0 && current.Len()+1+len(sentence) > maxLength {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	flush()
	return chunks
}

// JoinTranslated reassembles translated chunk results with single-space
// separators, preserving order.
func JoinTranslated(chunks []string) string {
	cleaned := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if trimmed := strings.TrimSpace(chunk); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, " ")
}

// splitSentences divides text on terminal punctuation followed by
// whitespace, keeping the punctuation with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		for i+1 < len(runes) && isTerminal(runes[i+1]) {
			i++
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func splitWords(sentence string, maxLength int) []string {
	var chunks []string
	var current strings.Builder
	for _, word := range strings.Fields(sentence) {
		if current.Len() > 0 && current.Len()+1+len(word) > maxLength {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
