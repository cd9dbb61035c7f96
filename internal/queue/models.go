package queue

import (
	"encoding/json"
	"strings"
	"time"
)

// Status represents the lifecycle of a dubbing job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DaemonStopReason is the error message set when jobs are failed due to
// daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus normalizes a user-supplied status string.
func ParseStatus(value string) (Status, bool) {
	candidate := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

// Job is one queued dubbing request persisted in SQLite.
type Job struct {
	ID              int64
	VoicePath       string
	BackgroundPath  string
	SourceLanguage  string
	TargetLanguages []string
	Status          Status
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	ErrorMessage    string
	ResultsJSON     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

func encodeLanguages(languages []string) (string, error) {
	data, err := json.Marshal(languages)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeLanguages(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var languages []string
	if err := json.Unmarshal([]byte(raw), &languages); err != nil {
		return nil
	}
	return languages
}
