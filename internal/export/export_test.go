package export

import (
	"archive/zip"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dubber/internal/timeline"
)

func TestCuesForSegmentProportionalSplit(t *testing.T) {
	seg := timeline.Segment{Start: 10, End: 20, Text: "irrelevant"}
	cues := CuesForSegment(seg, []string{"aaaa", "aaaa"})
	if len(cues) != 2 {
		t.Fatalf("cues = %d, want 2", len(cues))
	}
	if cues[0].Start != 10 || math.Abs(cues[0].End-15) > 1e-9 {
		t.Errorf("first cue [%v, %v], want [10, 15]", cues[0].Start, cues[0].End)
	}
	if cues[1].End != 20 {
		t.Errorf("last cue ends at %v, want exactly segment end", cues[1].End)
	}
	if cues[0].End != cues[1].Start {
		t.Errorf("cues not contiguous: %v vs %v", cues[0].End, cues[1].Start)
	}
}

func TestCuesForSegmentSkipsBlankChunks(t *testing.T) {
	seg := timeline.Segment{Start: 0, End: 4, Text: "x"}
	cues := CuesForSegment(seg, []string{"", "hola", "  "})
	if len(cues) != 1 {
		t.Fatalf("cues = %d, want 1", len(cues))
	}
	if cues[0].Start != 0 || cues[0].End != 4 {
		t.Errorf("cue [%v, %v], want whole segment", cues[0].Start, cues[0].End)
	}
	if CuesForSegment(seg, nil) != nil {
		t.Error("expected nil for no chunks")
	}
}

func TestWriteSRT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.srt")
	cues := []Cue{
		{Start: 65.5, End: 70.25, Text: "second cue"},
		{Start: 0, End: 4, Text: "first cue"},
	}
	if err := WriteSRT(path, cues); err != nil {
		t.Fatalf("WriteSRT returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read captions: %v", err)
	}
	got := string(data)

	want := "1\n00:00:00,000 --> 00:00:04,000\nfirst cue\n\n2\n00:01:05,500 --> 00:01:10,250\nsecond cue\n\n"
	if got != want {
		t.Errorf("srt output:\n%q\nwant:\n%q", got, want)
	}
}

func TestWriteSRTEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.srt")
	if err := WriteSRT(path, nil); err != nil {
		t.Fatalf("WriteSRT returned error: %v", err)
	}
	data, _ := os.ReadFile(path)
	if len(data) != 0 {
		t.Errorf("expected empty file, got %q", data)
	}
}

func TestBundle(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "audio.m4a")
	captions := filepath.Join(dir, "captions.srt")
	os.WriteFile(audio, []byte("audio-bytes"), 0o644)
	os.WriteFile(captions, []byte("caption-bytes"), 0o644)

	zipPath := filepath.Join(dir, "bundle.zip")
	err := Bundle(zipPath, map[string]string{
		"es/audio.m4a":    audio,
		"es/captions.srt": captions,
	})
	if err != nil {
		t.Fatalf("Bundle returned error: %v", err)
	}

	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	defer reader.Close()

	found := map[string]bool{}
	for _, file := range reader.File {
		found[file.Name] = true
	}
	for _, name := range []string{"es/audio.m4a", "es/captions.srt"} {
		if !found[name] {
			t.Errorf("bundle missing entry %s", name)
		}
	}
}

func TestBundleMissingSource(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "bundle.zip")
	err := Bundle(zipPath, map[string]string{"a": filepath.Join(t.TempDir(), "absent")})
	if err == nil || !strings.Contains(err.Error(), "bundle") {
		t.Fatalf("expected bundle error, got %v", err)
	}
}
