// Package notifications delivers dubbing job events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Job milestones cover queueing, completion per language, and
// failures so the daemon can emit consistent messages without duplicating
// HTTP glue.
package notifications
