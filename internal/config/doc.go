// Package config loads, normalizes, and validates dubber's TOML
// configuration. Provider credentials may come from the config file or from
// DEEPGRAM_API_KEY / OPENAI_API_KEY environment variables.
package config
