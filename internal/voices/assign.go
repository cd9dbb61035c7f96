package voices

import (
	"sort"

	"dubber/internal/timeline"
)

// SpeakerProfile is a speaker with an estimated average pitch.
type SpeakerProfile struct {
	SpeakerID int
	PitchHz   float64
}

// Assign maps speakers to voice names for a target language by rank
// matching: speakers sorted ascending by pitch are zipped against the
// catalog sorted ascending by pitch, cycling through the catalog when
// there are more speakers than voices. Ties keep input order. Speakers
// listed in allSpeakers but absent from profiles (no qualifying pitch
// sample) get the language's default voice.
func (c *Catalog) Assign(lang string, profiles []SpeakerProfile, allSpeakers []int) map[int]string {
	entries := c.ForLanguage(lang)

	sortedProfiles := make([]SpeakerProfile, len(profiles))
	copy(sortedProfiles, profiles)
	sort.SliceStable(sortedProfiles, func(i, j int) bool {
		return sortedProfiles[i].PitchHz < sortedProfiles[j].PitchHz
	})

	sortedEntries := make([]Entry, len(entries))
	copy(sortedEntries, entries)
	sort.SliceStable(sortedEntries, func(i, j int) bool {
		return sortedEntries[i].PitchHz < sortedEntries[j].PitchHz
	})

	assignments := make(map[int]string, len(allSpeakers))
	for i, profile := range sortedProfiles {
		assignments[profile.SpeakerID] = sortedEntries[i%len(sortedEntries)].Name
	}

	fallback := c.DefaultVoice(lang).Name
	for _, speakerID := range allSpeakers {
		if _, ok := assignments[speakerID]; !ok {
			assignments[speakerID] = fallback
		}
	}
	return assignments
}

// SampleUtterances picks the longest utterance of at least minSeconds
// for each speaker. Speakers with no qualifying utterance are omitted.
func SampleUtterances(utterances []timeline.Utterance, minSeconds float64) map[int]timeline.Utterance {
	samples := make(map[int]timeline.Utterance)
	for _, utt := range utterances {
		if utt.Duration() < minSeconds {
			continue
		}
		best, ok := samples[utt.SpeakerID]
		if !ok || utt.Duration() > best.Duration() {
			samples[utt.SpeakerID] = utt
		}
	}
	return samples
}

// Speakers returns the sorted distinct speaker IDs of an utterance list.
func Speakers(utterances []timeline.Utterance) []int {
	seen := make(map[int]struct{})
	for _, utt := range utterances {
		seen[utt.SpeakerID] = struct{}{}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
