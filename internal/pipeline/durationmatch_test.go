package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dubber/internal/media"
)

// fakeMedia builds a media.Runner whose ffprobe reports canned durations
// (keyed by input base name) and whose ffmpeg calls are recorded and
// create their destination file.
type fakeMedia struct {
	durations map[string]float64
	// writeDest, when set, produces destination file contents instead
	// of the default stub bytes.
	writeDest func(dest string) error
	calls     []string
}

func (f *fakeMedia) runner() *media.Runner {
	return media.NewRunner(media.Options{
		CommandRunner: func(_ context.Context, name string, args ...string) ([]byte, error) {
			f.calls = append(f.calls, name+" "+strings.Join(args, " "))
			if name == "ffprobe" {
				input := filepath.Base(args[len(args)-1])
				duration := f.durations[input]
				return []byte(fmt.Sprintf(
					`{"streams": [{"codec_type": "audio", "sample_rate": "44100", "channels": 2}], "format": {"duration": "%v"}}`,
					duration)), nil
			}
			dest := args[len(args)-1]
			if f.writeDest != nil {
				return nil, f.writeDest(dest)
			}
			return nil, os.WriteFile(dest, []byte("stub"), 0o644)
		},
	})
}

func (f *fakeMedia) callsContaining(substr string) []string {
	var matched []string
	for _, call := range f.calls {
		if strings.Contains(call, substr) {
			matched = append(matched, call)
		}
	}
	return matched
}

func writeStub(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("stub"), 0o644); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestMatchEmitsSilenceForDegenerateTarget(t *testing.T) {
	fake := &fakeMedia{}
	matcher := NewDurationMatcher(fake.runner(), 0.05, 1.35, nil)
	dir := t.TempDir()

	err := matcher.Match(context.Background(), writeStub(t, dir, "in.wav"), 0.04, filepath.Join(dir, "out.wav"))
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if len(fake.callsContaining("anullsrc")) != 1 {
		t.Errorf("expected one silence generation, calls: %v", fake.calls)
	}
	if len(fake.callsContaining("ffprobe")) != 0 {
		t.Error("degenerate target should not probe the input")
	}
}

func TestMatchPassThroughWithinTolerance(t *testing.T) {
	fake := &fakeMedia{durations: map[string]float64{"in.wav": 2.03}}
	matcher := NewDurationMatcher(fake.runner(), 0.05, 1.35, nil)
	dir := t.TempDir()

	err := matcher.Match(context.Background(), writeStub(t, dir, "in.wav"), 2.0, filepath.Join(dir, "out.wav"))
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	for _, banned := range []string{"atempo", "apad", "anullsrc"} {
		if calls := fake.callsContaining(banned); len(calls) != 0 {
			t.Errorf("pass-through applied %s: %v", banned, calls)
		}
	}
	if len(fake.callsContaining("pcm_s16le")) == 0 {
		t.Error("expected a format normalization call")
	}
}

func TestMatchPadsShortAudio(t *testing.T) {
	fake := &fakeMedia{durations: map[string]float64{"in.wav": 1.0}}
	matcher := NewDurationMatcher(fake.runner(), 0.05, 1.35, nil)
	dir := t.TempDir()

	err := matcher.Match(context.Background(), writeStub(t, dir, "in.wav"), 3.0, filepath.Join(dir, "out.wav"))
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	pads := fake.callsContaining("apad")
	if len(pads) != 1 || !strings.Contains(pads[0], "-t 3") {
		t.Errorf("expected pad to 3s, calls: %v", fake.calls)
	}
}

func TestMatchStretchesModeratelyLongAudio(t *testing.T) {
	fake := &fakeMedia{durations: map[string]float64{"in.wav": 2.6}}
	matcher := NewDurationMatcher(fake.runner(), 0.05, 1.35, nil)
	dir := t.TempDir()

	err := matcher.Match(context.Background(), writeStub(t, dir, "in.wav"), 2.0, filepath.Join(dir, "out.wav"))
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	stretches := fake.callsContaining("atempo")
	if len(stretches) != 1 || !strings.Contains(stretches[0], "atempo=1.3") {
		t.Errorf("expected atempo=1.3 stretch, calls: %v", fake.calls)
	}
	// Stretch is followed by a hard trim to absorb rounding.
	var sawTrim bool
	for _, call := range fake.calls {
		if strings.Contains(call, "-t 2") && !strings.Contains(call, "atempo") {
			sawTrim = true
		}
	}
	if !sawTrim {
		t.Errorf("expected trailing trim, calls: %v", fake.calls)
	}
}

func TestMatchTrimsWithoutStretchBeyondCeiling(t *testing.T) {
	// Ratio 1.4 exceeds the 1.35 ceiling: trim only, never tempo-shift.
	fake := &fakeMedia{durations: map[string]float64{"in.wav": 2.8}}
	matcher := NewDurationMatcher(fake.runner(), 0.05, 1.35, nil)
	dir := t.TempDir()

	err := matcher.Match(context.Background(), writeStub(t, dir, "in.wav"), 2.0, filepath.Join(dir, "out.wav"))
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if calls := fake.callsContaining("atempo"); len(calls) != 0 {
		t.Errorf("atempo applied beyond stretch ceiling: %v", calls)
	}
	var sawTrim bool
	for _, call := range fake.calls {
		if strings.Contains(call, "ffmpeg") && strings.Contains(call, "-t 2") {
			sawTrim = true
		}
	}
	if !sawTrim {
		t.Errorf("expected trim call, calls: %v", fake.calls)
	}
}

func TestMatchRejectsNonPositiveTarget(t *testing.T) {
	matcher := NewDurationMatcher((&fakeMedia{}).runner(), 0.05, 1.35, nil)
	if err := matcher.Match(context.Background(), "in.wav", 0, "out.wav"); err == nil {
		t.Fatal("expected error for zero target")
	}
}
