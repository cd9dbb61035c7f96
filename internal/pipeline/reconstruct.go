package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dubber/internal/media"
)

// ErrReconstruction marks failures assembling the per-language voice
// track from processed segment files.
var ErrReconstruction = errors.New("timeline reconstruction failed")

// ProcessedSegment is one segment's finished audio, ready for
// concatenation in timeline order.
type ProcessedSegment struct {
	Index    int
	FilePath string
}

// Reconstruct concatenates processed segment files strictly in order
// into a single continuous voice track at dest.
func Reconstruct(ctx context.Context, runner *media.Runner, segments []ProcessedSegment, dest string) error {
	if len(segments) == 0 {
		return fmt.Errorf("%w: no segments", ErrReconstruction)
	}
	paths := make([]string, len(segments))
	for i, seg := range segments {
		if _, err := os.Stat(seg.FilePath); err != nil {
			return fmt.Errorf("%w: segment %d file missing: %s", ErrReconstruction, seg.Index, filepath.Base(seg.FilePath))
		}
		paths[i] = seg.FilePath
	}
	if err := runner.Concat(ctx, paths, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrReconstruction, err)
	}
	return nil
}
