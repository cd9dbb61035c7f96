// Package services provides cross-cutting support for pipeline components:
// sentinel error markers with stage-aware wrapping, and context annotations
// (job ID, target language, stage name) consumed by the logging package.
package services
