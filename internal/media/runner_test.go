package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordedCall struct {
	name string
	args []string
}

// recordingRunner captures every invocation and answers probes with canned
// JSON so higher-level operations can proceed.
func recordingRunner(calls *[]recordedCall, probeJSON string) CommandRunner {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedCall{name: name, args: args})
		if name == "ffprobe" {
			return []byte(probeJSON), nil
		}
		return nil, nil
	}
}

func joinedArgs(call recordedCall) string {
	return strings.Join(call.args, " ")
}

func TestExtractAudioTrackArgs(t *testing.T) {
	source := writeTempFile(t, "movie.mp4")
	dest := filepath.Join(t.TempDir(), "audio.wav")

	var calls []recordedCall
	runner := NewRunner(Options{
		CommandRunner: recordingRunner(&calls, `{"streams": [{"codec_type": "audio", "sample_rate": "48000", "channels": 2}], "format": {"duration": "60"}}`),
	})

	if err := runner.ExtractAudioTrack(context.Background(), source, dest); err != nil {
		t.Fatalf("ExtractAudioTrack returned error: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected probe then extract, got %d calls", len(calls))
	}
	extract := joinedArgs(calls[1])
	for _, want := range []string{"-vn", "-ar 44100", "-ac 2", "-c:a pcm_s16le", dest} {
		if !strings.Contains(extract, want) {
			t.Errorf("extract args missing %q: %s", want, extract)
		}
	}
}

func TestExtractAudioTrackRejectsSilentContainer(t *testing.T) {
	source := writeTempFile(t, "slideshow.mp4")

	var calls []recordedCall
	runner := NewRunner(Options{
		CommandRunner: recordingRunner(&calls, `{"streams": [{"codec_type": "video"}], "format": {"duration": "60"}}`),
	})

	err := runner.ExtractAudioTrack(context.Background(), source, filepath.Join(t.TempDir(), "audio.wav"))
	if !errors.Is(err, ErrNoAudioStream) {
		t.Fatalf("expected ErrNoAudioStream, got %v", err)
	}
	if len(calls) != 1 {
		t.Errorf("expected only the probe call, got %d", len(calls))
	}
}

func TestSilenceArgs(t *testing.T) {
	var calls []recordedCall
	runner := NewRunner(Options{CommandRunner: recordingRunner(&calls, "")})

	if err := runner.Silence(context.Background(), 1.25, "out.wav"); err != nil {
		t.Fatalf("Silence returned error: %v", err)
	}
	args := joinedArgs(calls[0])
	for _, want := range []string{"anullsrc=r=44100:cl=stereo", "-t 1.25", "-c:a pcm_s16le"} {
		if !strings.Contains(args, want) {
			t.Errorf("silence args missing %q: %s", want, args)
		}
	}
}

func TestSilenceRejectsNonPositiveDuration(t *testing.T) {
	runner := NewRunner(Options{CommandRunner: recordingRunner(&[]recordedCall{}, "")})
	if err := runner.Silence(context.Background(), 0, "out.wav"); err == nil {
		t.Fatal("expected error for zero duration")
	}
}

func TestPadAndTrimArgs(t *testing.T) {
	var calls []recordedCall
	runner := NewRunner(Options{CommandRunner: recordingRunner(&calls, "")})

	if err := runner.PadTo(context.Background(), "in.wav", 3.5, "out.wav"); err != nil {
		t.Fatalf("PadTo returned error: %v", err)
	}
	if err := runner.TrimTo(context.Background(), "in.wav", 2.75, "out.wav"); err != nil {
		t.Fatalf("TrimTo returned error: %v", err)
	}

	pad := joinedArgs(calls[0])
	if !strings.Contains(pad, "-af apad") || !strings.Contains(pad, "-t 3.5") {
		t.Errorf("pad args wrong: %s", pad)
	}
	trim := joinedArgs(calls[1])
	if !strings.Contains(trim, "-t 2.75") || strings.Contains(trim, "apad") {
		t.Errorf("trim args wrong: %s", trim)
	}
}

func TestStretchArgs(t *testing.T) {
	var calls []recordedCall
	runner := NewRunner(Options{CommandRunner: recordingRunner(&calls, "")})

	if err := runner.Stretch(context.Background(), "in.wav", 1.2, "out.wav"); err != nil {
		t.Fatalf("Stretch returned error: %v", err)
	}
	args := joinedArgs(calls[0])
	if !strings.Contains(args, "-af atempo=1.2") {
		t.Errorf("stretch args wrong: %s", args)
	}
}

func TestAtempoChainSplitsOutOfRangeFactors(t *testing.T) {
	cases := []struct {
		factor float64
		want   string
	}{
		{1.35, "atempo=1.35"},
		{2.0, "atempo=2"},
		{3.0, "atempo=2.0,atempo=1.5"},
		{0.4, "atempo=0.5,atempo=0.8"},
	}
	for _, tc := range cases {
		got, err := atempoChain(tc.factor)
		if err != nil {
			t.Fatalf("atempoChain(%v) returned error: %v", tc.factor, err)
		}
		if got != tc.want {
			t.Errorf("atempoChain(%v) = %q, want %q", tc.factor, got, tc.want)
		}
	}
	if _, err := atempoChain(0); err == nil {
		t.Error("expected error for zero factor")
	}
}

func TestConcatWritesListFile(t *testing.T) {
	dir := t.TempDir()
	first := writeTempFile(t, "a.wav")
	second := writeTempFile(t, "b.wav")
	dest := filepath.Join(dir, "joined.wav")

	var listContents string
	var calls []recordedCall
	runner := NewRunner(Options{
		CommandRunner: func(_ context.Context, name string, args ...string) ([]byte, error) {
			calls = append(calls, recordedCall{name: name, args: args})
			data, err := os.ReadFile(dest + ".txt")
			if err != nil {
				return nil, err
			}
			listContents = string(data)
			return nil, nil
		},
	})

	if err := runner.Concat(context.Background(), []string{first, second}, dest); err != nil {
		t.Fatalf("Concat returned error: %v", err)
	}
	args := joinedArgs(calls[0])
	if !strings.Contains(args, "-f concat") || !strings.Contains(args, "-safe 0") {
		t.Errorf("concat args wrong: %s", args)
	}
	firstIdx := strings.Index(listContents, "a.wav")
	secondIdx := strings.Index(listContents, "b.wav")
	if firstIdx < 0 || secondIdx < 0 || firstIdx > secondIdx {
		t.Errorf("list file does not preserve order: %q", listContents)
	}
	if _, err := os.Stat(dest + ".txt"); !os.IsNotExist(err) {
		t.Error("expected concat list file to be removed")
	}
}

func TestConcatRejectsMissingInputs(t *testing.T) {
	runner := NewRunner(Options{CommandRunner: recordingRunner(&[]recordedCall{}, "")})
	err := runner.Concat(context.Background(), []string{filepath.Join(t.TempDir(), "absent.wav")}, "out.wav")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := runner.Concat(context.Background(), nil, "out.wav"); err == nil {
		t.Fatal("expected error for empty input list")
	}
}

func TestEncodeFinalContainers(t *testing.T) {
	var calls []recordedCall
	runner := NewRunner(Options{CommandRunner: recordingRunner(&calls, "")})

	if err := runner.EncodeFinal(context.Background(), "in.wav", "out.m4a", "m4a", "192k"); err != nil {
		t.Fatalf("EncodeFinal m4a returned error: %v", err)
	}
	if args := joinedArgs(calls[0]); !strings.Contains(args, "-c:a aac") || !strings.Contains(args, "-b:a 192k") {
		t.Errorf("m4a encode args wrong: %s", args)
	}

	if err := runner.EncodeFinal(context.Background(), "in.wav", "out.ogg", "ogg", "192k"); err == nil {
		t.Error("expected error for unsupported container")
	}
}

func TestChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	sum, err := Checksum(path)
	if err != nil {
		t.Fatalf("Checksum returned error: %v", err)
	}
	if sum != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("unexpected digest %s", sum)
	}

	if _, err := Checksum(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
