// Package language normalizes language identifiers used across the pipeline.
// Providers receive ISO 639-1 codes; translation prompts use human-readable
// display names resolved through golang.org/x/text.
package language
