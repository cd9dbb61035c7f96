// Package export writes the deliverable artifacts of a language run:
// the final encoded audio, SRT captions, and an archive bundle.
package export

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dubber/internal/timeline"
)

// Cue is one timed caption.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// CuesForSegment lays text chunks over a speech segment's time range,
// allotting each chunk a share proportional to its character length.
// Cue boundaries therefore follow the chunk groupings used for
// synthesis, not raw segment boundaries.
func CuesForSegment(seg timeline.Segment, chunks []string) []Cue {
	cleaned := make([]string, 0, len(chunks))
	total := 0
	for _, chunk := range chunks {
		trimmed := strings.TrimSpace(chunk)
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
		total += len(trimmed)
	}
	if len(cleaned) == 0 || total == 0 {
		return nil
	}

	duration := seg.Duration()
	cues := make([]Cue, 0, len(cleaned))
	cursor := seg.Start
	for i, chunk := range cleaned {
		end := cursor + duration*float64(len(chunk))/float64(total)
		if i == len(cleaned)-1 {
			end = seg.End
		}
		cues = append(cues, Cue{Start: cursor, End: end, Text: chunk})
		cursor = end
	}
	return cues
}

// WriteSRT renders cues in SubRip format, ordered by start time and
// numbered from 1.
func WriteSRT(path string, cues []Cue) error {
	ordered := make([]Cue, len(cues))
	copy(ordered, cues)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	var sb strings.Builder
	for i, cue := range ordered {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			i+1,
			formatSRTTimestamp(cue.Start),
			formatSRTTimestamp(cue.End),
			strings.TrimSpace(cue.Text),
		)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write captions: %w", err)
	}
	return nil
}

func formatSRTTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds * float64(time.Second))
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// Bundle writes a zip archive containing the named files. Keys are
// archive entry names, values are source paths. Missing sources fail
// the bundle.
func Bundle(zipPath string, files map[string]string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("bundle: create %s: %w", zipPath, err)
	}
	defer out.Close()

	writer := zip.NewWriter(out)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := addToBundle(writer, name, files[name]); err != nil {
			writer.Close()
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("bundle: finalize %s: %w", filepath.Base(zipPath), err)
	}
	return nil
}

func addToBundle(writer *zip.Writer, name, source string) error {
	file, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("bundle: open %s: %w", source, err)
	}
	defer file.Close()

	entry, err := writer.Create(name)
	if err != nil {
		return fmt.Errorf("bundle: add %s: %w", name, err)
	}
	if _, err := io.Copy(entry, file); err != nil {
		return fmt.Errorf("bundle: copy %s: %w", name, err)
	}
	return nil
}
