package voices

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"dubber/internal/timeline"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	return NewCatalog(map[string][]Entry{
		"xx": {
			{Name: "A", PitchHz: 100, Gender: "male"},
			{Name: "B", PitchHz: 200, Gender: "female"},
		},
	})
}

func TestAssignRankMatching(t *testing.T) {
	catalog := testCatalog(t)
	profiles := []SpeakerProfile{
		{SpeakerID: 1, PitchHz: 180},
		{SpeakerID: 2, PitchHz: 90},
	}

	got := catalog.Assign("xx", profiles, []int{1, 2})
	if got[2] != "A" {
		t.Errorf("speaker 2 (lower pitch) = %q, want A", got[2])
	}
	if got[1] != "B" {
		t.Errorf("speaker 1 (higher pitch) = %q, want B", got[1])
	}
}

func TestAssignIsDeterministic(t *testing.T) {
	catalog := testCatalog(t)
	profiles := []SpeakerProfile{
		{SpeakerID: 3, PitchHz: 150},
		{SpeakerID: 7, PitchHz: 150},
		{SpeakerID: 5, PitchHz: 95},
	}

	first := catalog.Assign("xx", profiles, []int{3, 5, 7})
	for i := 0; i < 10; i++ {
		again := catalog.Assign("xx", profiles, []int{3, 5, 7})
		for id, voice := range first {
			if again[id] != voice {
				t.Fatalf("run %d: speaker %d = %q, want %q", i, id, again[id], voice)
			}
		}
	}
	// Equal pitches keep input order: 3 before 7.
	if first[5] != "A" || first[3] != "B" || first[7] != "A" {
		t.Errorf("cycling assignment wrong: %v", first)
	}
}

func TestAssignDefaultForUnprofiledSpeaker(t *testing.T) {
	catalog := testCatalog(t)
	got := catalog.Assign("xx", []SpeakerProfile{{SpeakerID: 0, PitchHz: 120}}, []int{0, 1})
	if got[1] != "B" {
		t.Errorf("unprofiled speaker = %q, want default (highest pitch) B", got[1])
	}
}

func TestDefaultVoicePicksHighestPitch(t *testing.T) {
	catalog := NewCatalog(nil)
	if got := catalog.DefaultVoice("es").Name; got != "aura-2-celeste-es" {
		t.Errorf("es default = %q, want aura-2-celeste-es", got)
	}
	if got := catalog.DefaultVoice("zz").Name; got != "aura-asteria-en" {
		t.Errorf("unknown language default = %q, want stock fallback", got)
	}
}

func TestForLanguageFallback(t *testing.T) {
	catalog := NewCatalog(nil)
	entries := catalog.ForLanguage("tlh")
	if len(entries) != 1 || entries[0].Name != "aura-asteria-en" {
		t.Errorf("fallback entries = %v", entries)
	}
}

func TestCatalogValidate(t *testing.T) {
	if err := NewCatalog(nil).Validate(); err != nil {
		t.Errorf("builtin catalog invalid: %v", err)
	}
	bad := NewCatalog(map[string][]Entry{"xx": {{Name: "", PitchHz: 100}}})
	if err := bad.Validate(); err == nil {
		t.Error("expected error for empty voice name")
	}
}

func TestSampleUtterances(t *testing.T) {
	utterances := []timeline.Utterance{
		{Start: 0, End: 0.3, Text: "short", SpeakerID: 0},
		{Start: 1, End: 3, Text: "long", SpeakerID: 0},
		{Start: 4, End: 5.5, Text: "other", SpeakerID: 0},
		{Start: 6, End: 6.2, Text: "blip", SpeakerID: 1},
	}

	samples := SampleUtterances(utterances, 0.5)
	sample, ok := samples[0]
	if !ok || sample.Text != "long" {
		t.Errorf("speaker 0 sample = %+v, want the 2s utterance", sample)
	}
	if _, ok := samples[1]; ok {
		t.Error("speaker 1 has no qualifying utterance, expected omission")
	}
}

func TestSpeakers(t *testing.T) {
	utterances := []timeline.Utterance{
		{SpeakerID: 2}, {SpeakerID: 0}, {SpeakerID: 2}, {SpeakerID: 1},
	}
	got := Speakers(utterances)
	want := []int{0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("Speakers = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Speakers = %v, want %v", got, want)
		}
	}
}

func writeTestWav(t *testing.T, name string, generate func(i int) float64, seconds float64) string {
	t.Helper()
	const sampleRate = 44100
	path := filepath.Join(t.TempDir(), name)
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer file.Close()

	encoder := wav.NewEncoder(file, sampleRate, 16, 1, 1)
	frames := int(seconds * sampleRate)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, frames),
	}
	for i := 0; i < frames; i++ {
		buf.Data[i] = int(generate(i) * 32767)
	}
	if err := encoder.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := encoder.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
	return path
}

func TestEstimatePitchSineWave(t *testing.T) {
	const freq = 220.0
	path := writeTestWav(t, "tone.wav", func(i int) float64 {
		return 0.8 * math.Sin(2*math.Pi*freq*float64(i)/44100)
	}, 1.0)

	pitch, err := EstimatePitch(path)
	if err != nil {
		t.Fatalf("EstimatePitch returned error: %v", err)
	}
	if math.Abs(pitch-freq) > 5 {
		t.Errorf("pitch = %.1f Hz, want ~%.0f Hz", pitch, freq)
	}
}

func TestEstimatePitchSilence(t *testing.T) {
	path := writeTestWav(t, "silence.wav", func(int) float64 { return 0 }, 0.5)

	pitch, err := EstimatePitch(path)
	if err != nil {
		t.Fatalf("EstimatePitch returned error: %v", err)
	}
	if pitch != 0 {
		t.Errorf("pitch = %v, want 0 for silence", pitch)
	}
}

func TestEstimatePitchMissingFile(t *testing.T) {
	if _, err := EstimatePitch(filepath.Join(t.TempDir(), "absent.wav")); err == nil {
		t.Error("expected error for missing file")
	}
}
