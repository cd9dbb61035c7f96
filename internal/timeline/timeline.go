// Package timeline converts diarized utterances into the ordered,
// gap-free sequence of speech and silence segments that drives the
// rest of the dubbing pipeline.
package timeline

import (
	"fmt"
	"sort"
)

// Utterance is one diarized transcription result.
type Utterance struct {
	Start      float64
	End        float64
	Text       string
	SpeakerID  int
	Confidence float64
}

// Duration returns the utterance length in seconds.
func (u Utterance) Duration() float64 { return u.End - u.Start }

// Segment is one contiguous timeline interval, tagged speech or silence.
// VoiceID is filled in by voice assignment before synthesis.
type Segment struct {
	Start     float64
	End       float64
	IsSilence bool
	Text      string
	SpeakerID int
	VoiceID   string
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 { return s.End - s.Start }

// Options tunes segmentation behavior.
type Options struct {
	// SilenceGap is the minimum gap between utterances that produces a
	// dedicated silence segment.
	SilenceGap float64
	// MinSegment clamps degenerate speech segments to a usable length.
	MinSegment float64
}

const (
	defaultSilenceGap = 0.1
	defaultMinSegment = 0.05
)

func (o Options) withDefaults() Options {
	if o.SilenceGap <= 0 {
		o.SilenceGap = defaultSilenceGap
	}
	if o.MinSegment <= 0 {
		o.MinSegment = defaultMinSegment
	}
	return o
}

// Build walks the utterances in start order and emits a contiguous,
// non-overlapping segment sequence whose union exactly covers
// [0, totalDuration). Gaps at least SilenceGap wide become silence
// segments; smaller gaps are absorbed into the following speech
// segment so coverage stays exact.
func Build(utterances []Utterance, totalDuration float64, opts Options) ([]Segment, error) {
	if totalDuration <= 0 {
		return nil, fmt.Errorf("timeline: total duration must be positive, got %v", totalDuration)
	}
	opts = opts.withDefaults()

	if len(utterances) == 0 {
		return []Segment{{Start: 0, End: totalDuration, IsSilence: true, SpeakerID: -1}}, nil
	}

	ordered := make([]Utterance, len(utterances))
	copy(ordered, utterances)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	segments := make([]Segment, 0, 2*len(ordered)+1)
	cursor := 0.0
	for _, utt := range ordered {
		if utt.End > totalDuration {
			utt.End = totalDuration
		}
		start := utt.Start
		if start < cursor {
			start = cursor
		}
		end := utt.End
		if end <= start {
			continue
		}

		if gap := start - cursor; gap >= opts.SilenceGap {
			segments = append(segments, Segment{Start: cursor, End: start, IsSilence: true, SpeakerID: -1})
			cursor = start
		}

		// Absorb a sub-threshold gap by starting the speech segment at
		// the cursor, keeping coverage exact.
		if end-cursor < opts.MinSegment {
			end = cursor + opts.MinSegment
			if end > totalDuration {
				end = totalDuration
			}
			if end <= cursor {
				continue
			}
		}
		segments = append(segments, Segment{
			Start:     cursor,
			End:       end,
			IsSilence: false,
			Text:      utt.Text,
			SpeakerID: utt.SpeakerID,
		})
		cursor = end
	}

	if remaining := totalDuration - cursor; remaining > 0 {
		if remaining >= opts.SilenceGap || len(segments) == 0 {
			segments = append(segments, Segment{Start: cursor, End: totalDuration, IsSilence: true, SpeakerID: -1})
		} else {
			// Extend the final segment so coverage stays exact.
			segments[len(segments)-1].End = totalDuration
		}
	}
	return segments, nil
}

// Validate checks the ordered, gap-free coverage invariant. It is used
// by tests and as a cheap guard before reconstruction.
func Validate(segments []Segment, totalDuration float64) error {
	if len(segments) == 0 {
		return fmt.Errorf("timeline: empty segment list")
	}
	if segments[0].Start != 0 {
		return fmt.Errorf("timeline: first segment starts at %v, want 0", segments[0].Start)
	}
	for i, seg := range segments {
		if seg.End <= seg.Start {
			return fmt.Errorf("timeline: segment %d has non-positive duration [%v, %v)", i, seg.Start, seg.End)
		}
		if !seg.IsSilence && seg.Text == "" {
			return fmt.Errorf("timeline: speech segment %d has empty text", i)
		}
		if i > 0 && seg.Start != segments[i-1].End {
			return fmt.Errorf("timeline: gap between segment %d and %d (%v != %v)", i-1, i, segments[i-1].End, seg.Start)
		}
	}
	last := segments[len(segments)-1].End
	if diff := last - totalDuration; diff > 1e-6 || diff < -1e-6 {
		return fmt.Errorf("timeline: coverage ends at %v, want %v", last, totalDuration)
	}
	return nil
}

// SpeechSegments filters the speech-only view used by translation and
// synthesis.
func SpeechSegments(segments []Segment) []Segment {
	speech := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		if !seg.IsSilence {
			speech = append(speech, seg)
		}
	}
	return speech
}
