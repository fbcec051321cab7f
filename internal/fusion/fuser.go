package fusion

import (
	"fmt"
	"strings"

	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// Mode selects how utterances without any overlapping interval are handled.
type Mode string

const (
	// ModeStrict labels unmatched utterances with types.NoSpeaker.
	ModeStrict Mode = "strict"
	// ModeNearest borrows the speaker of the closest interval.
	ModeNearest Mode = "nearest"
)

// DefaultSpeakerFormat renders renumbered speakers.
const DefaultSpeakerFormat = "Speaker %d"

// ParseMode converts a configuration string into a Mode
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeStrict, "":
		return ModeStrict, nil
	case ModeNearest:
		return ModeNearest, nil
	default:
		return "", fmt.Errorf("unknown fusion mode %q (want strict or nearest)", s)
	}
}

// Fuser attributes speakers to recognised utterances.
type Fuser struct {
	Mode Mode
}

// New creates a fuser running in the given mode
func New(mode Mode) *Fuser {
	return &Fuser{Mode: mode}
}

// Speaker returns the speaker of the interval overlapping [start, end] the
// most. When nothing overlaps, strict mode returns types.NoSpeaker and
// nearest mode returns the speaker of the interval with the smallest gap.
// Ties go to the interval that starts first.
func (f *Fuser) Speaker(intervals []types.DiarizationInterval, start, end float64) string {
	best := -1
	bestOverlap := 0.0
	for i, iv := range intervals {
		ov := overlap(iv, start, end)
		if ov < 0 {
			continue
		}
		if best < 0 || ov > bestOverlap || (ov == bestOverlap && iv.Start < intervals[best].Start) {
			best, bestOverlap = i, ov
		}
	}
	if best >= 0 {
		return intervals[best].SpeakerID
	}
	if f.Mode != ModeNearest {
		return types.NoSpeaker
	}

	best = -1
	bestGap := 0.0
	for i, iv := range intervals {
		g := gap(iv, start, end)
		if best < 0 || g < bestGap || (g == bestGap && iv.Start < intervals[best].Start) {
			best, bestGap = i, g
		}
	}
	if best < 0 {
		return types.NoSpeaker
	}
	return intervals[best].SpeakerID
}

// Assign returns copies of the utterances with Speaker set on every
// utterance and every word. The inputs are not modified.
func (f *Fuser) Assign(intervals []types.DiarizationInterval, utterances []types.Utterance) []types.Utterance {
	out := make([]types.Utterance, len(utterances))
	for i, u := range utterances {
		u.Speaker = f.Speaker(intervals, u.Start, u.End)
		if len(u.Words) > 0 {
			words := make([]types.Word, len(u.Words))
			for j, w := range u.Words {
				w.Speaker = f.Speaker(intervals, w.Start, w.End)
				words[j] = w
			}
			u.Words = words
		}
		out[i] = u
	}
	return out
}

// Renumber replaces diarizer speaker ids with ordinal labels in first-seen
// order, e.g. "speaker_3" -> "Speaker 1". types.NoSpeaker is kept as is.
func Renumber(utterances []types.Utterance, format string) []types.Utterance {
	if format == "" {
		format = DefaultSpeakerFormat
	}
	labels := make(map[string]string)
	label := func(id string) string {
		if id == types.NoSpeaker || id == "" {
			return id
		}
		if l, ok := labels[id]; ok {
			return l
		}
		l := fmt.Sprintf(format, len(labels)+1)
		labels[id] = l
		return l
	}

	out := make([]types.Utterance, len(utterances))
	for i, u := range utterances {
		u.Speaker = label(u.Speaker)
		if len(u.Words) > 0 {
			words := make([]types.Word, len(u.Words))
			for j, w := range u.Words {
				w.Speaker = label(w.Speaker)
				words[j] = w
			}
			u.Words = words
		}
		out[i] = u
	}
	return out
}

// overlap returns the length of the intersection, or -1 when the ranges do
// not intersect. A zero-length range counts as overlapping an interval that
// contains it.
func overlap(iv types.DiarizationInterval, start, end float64) float64 {
	ov := min(iv.End, end) - max(iv.Start, start)
	if ov > 0 {
		return ov
	}
	if start == end && start >= iv.Start && start <= iv.End {
		return 0
	}
	return -1
}

func gap(iv types.DiarizationInterval, start, end float64) float64 {
	return max(iv.Start-end, start-iv.End, 0)
}
