package transcription

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// PassthroughAligner keeps whatever word timings the recognizer produced.
type PassthroughAligner struct{}

// Align implements Aligner.
func (PassthroughAligner) Align(_ context.Context, _ string, utterances []types.Utterance) ([]types.Utterance, error) {
	out := make([]types.Utterance, len(utterances))
	copy(out, utterances)
	return out, nil
}

// InterpolateAligner gives utterances without word timings evenly spread
// words, each taking time in proportion to its length in characters.
// Utterances that already carry words are left alone.
type InterpolateAligner struct{}

// Align implements Aligner.
func (InterpolateAligner) Align(_ context.Context, _ string, utterances []types.Utterance) ([]types.Utterance, error) {
	out := make([]types.Utterance, len(utterances))
	for i, u := range utterances {
		if len(u.Words) == 0 {
			u.Words = interpolate(u)
		}
		out[i] = u
	}
	return out, nil
}

func interpolate(u types.Utterance) []types.Word {
	fields := strings.Fields(u.Text)
	if len(fields) == 0 {
		return nil
	}
	total := 0
	for _, f := range fields {
		total += utf8.RuneCountInString(f)
	}
	span := u.End - u.Start
	words := make([]types.Word, len(fields))
	t, seen := u.Start, 0
	for i, f := range fields {
		seen += utf8.RuneCountInString(f)
		end := u.Start + span*float64(seen)/float64(total)
		if i == len(fields)-1 {
			end = u.End
		}
		words[i] = types.Word{Start: t, End: end, Text: f}
		t = end
	}
	return words
}
