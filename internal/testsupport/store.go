package testsupport

import (
	"context"
	"testing"

	"dubber/internal/config"
	"dubber/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustAddJob enqueues a dubbing job for tests using the provided store.
func MustAddJob(t testing.TB, store *queue.Store, voicePath string, targetLanguages ...string) *queue.Job {
	t.Helper()

	if len(targetLanguages) == 0 {
		targetLanguages = []string{"es"}
	}
	job, err := store.Add(context.Background(), voicePath, "", "en", targetLanguages)
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return job
}
