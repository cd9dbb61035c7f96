package deps

import (
	"os"
	"path/filepath"
	"testing"

	"dubber/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "   "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatal("expected detail message for missing binary")
	}

	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected status for unset command: %#v", results[2])
	}
}

func TestRequirementsFollowConfiguredTools(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.FFmpeg = "/opt/ffmpeg/bin/ffmpeg"
	cfg.Tools.FFprobe = "/opt/ffmpeg/bin/ffprobe"

	reqs := Requirements(&cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	if reqs[0].Command != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("ffmpeg command = %q", reqs[0].Command)
	}
	if reqs[1].Command != "/opt/ffmpeg/bin/ffprobe" {
		t.Errorf("ffprobe command = %q", reqs[1].Command)
	}

	if Requirements(nil) != nil {
		t.Error("expected nil requirements for nil config")
	}
}
