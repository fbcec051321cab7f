package evaluation

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

var (
	// ErrMissingEntry means a reference recording has no produced transcript.
	ErrMissingEntry = errors.New("no transcript produced for reference recording")
	// ErrEmptyCorpus means there is nothing to weight the aggregate by.
	ErrEmptyCorpus = errors.New("reference corpus has no duration")
)

// RecordingScore holds the metrics of one recording.
type RecordingScore struct {
	AudioPath string  `json:"audio_path"`
	Length    float64 `json:"length"`
	DER       float64 `json:"der"`
	JER       float64 `json:"jer"`
	DERNoMiss float64 `json:"der_no_miss"`
	WER       float64 `json:"wer"`
	Edits     int     `json:"edits"`
	RefWords  int     `json:"ref_words"`
}

// Report is the result of a corpus evaluation. Timeline metrics are
// weighted by recording length; WER is pooled over all words.
type Report struct {
	DER         float64          `json:"der"`
	JER         float64          `json:"jer"`
	DERNoMiss   float64          `json:"der_no_miss"`
	WER         float64          `json:"wer"`
	TotalLength float64          `json:"total_length"`
	Recordings  []RecordingScore `json:"recordings"`
}

// Evaluator scores produced transcripts against a reference corpus.
type Evaluator struct{}

// New creates an evaluator
func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate scores every reference recording. Each one must have a produced
// transcript; a missing one fails the whole run with ErrMissingEntry.
func (e *Evaluator) Evaluate(reference map[string]types.CorpusEntry, produced map[string]types.Transcript) (Report, error) {
	paths := make([]string, 0, len(reference))
	for p := range reference {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var report Report
	var ders, jers, noMiss, lengths []float64
	var edits, words int
	for _, path := range paths {
		ref := reference[path]
		hyp, ok := produced[path]
		if !ok {
			return Report{}, fmt.Errorf("%w: %s", ErrMissingEntry, path)
		}
		score, err := e.Score(ref, hyp)
		if err != nil {
			return Report{}, fmt.Errorf("scoring %s: %w", path, err)
		}
		report.Recordings = append(report.Recordings, score)
		ders = append(ders, score.DER)
		jers = append(jers, score.JER)
		noMiss = append(noMiss, score.DERNoMiss)
		lengths = append(lengths, score.Length)
		edits += score.Edits
		words += score.RefWords
	}

	for _, l := range lengths {
		report.TotalLength += l
	}
	if report.TotalLength <= 0 {
		return Report{}, ErrEmptyCorpus
	}
	report.DER = Weighted(ders, lengths)
	report.JER = Weighted(jers, lengths)
	report.DERNoMiss = Weighted(noMiss, lengths)
	switch {
	case words > 0:
		report.WER = float64(edits) / float64(words)
	case edits > 0:
		report.WER = 1
	}
	return report, nil
}

// Score computes the metrics of a single recording. The hypothesis timeline
// is the raw diarization when present, else the produced phrases.
func (e *Evaluator) Score(ref types.CorpusEntry, hyp types.Transcript) (RecordingScore, error) {
	refAnn := FromPhrases(ref.Phrases)
	hypAnn := FromIntervals(hyp.Intervals)
	if len(hyp.Intervals) == 0 {
		hypAnn = FromPhrases(hyp.Phrases)
	}

	refText, hypText := Text(ref.Phrases), Text(hyp.Phrases)
	log.Debug().Str("audio", ref.AudioPath).Str("reference", refText).Msg("reference text")
	log.Debug().Str("audio", ref.AudioPath).Str("hypothesis", hypText).Msg("hypothesis text")

	edits, words, err := WordErrors(refText, hypText)
	if err != nil {
		return RecordingScore{}, err
	}

	c := Diarization(refAnn, hypAnn)
	score := RecordingScore{
		AudioPath: ref.AudioPath,
		Length:    ref.ReferenceLength,
		DER:       c.Rate(StandardWeights),
		DERNoMiss: c.Rate(NoMissWeights),
		JER:       JER(refAnn, hypAnn),
		Edits:     edits,
		RefWords:  words,
	}
	if score.Length <= 0 {
		score.Length = hyp.Length
	}
	switch {
	case words > 0:
		score.WER = float64(edits) / float64(words)
	case edits > 0:
		score.WER = 1
	}
	return score, nil
}

// Text concatenates phrase texts in start order.
func Text(phrases []types.Phrase) string {
	sorted := slices.Clone(phrases)
	slices.SortStableFunc(sorted, func(a, b types.Phrase) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})
	parts := make([]string, 0, len(sorted))
	for _, p := range sorted {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, " ")
}

// Weighted returns Σ values[i]·weights[i] / Σ weights[i], or 0 when the
// weights sum to zero.
func Weighted(values, weights []float64) float64 {
	var num, den float64
	for i := range values {
		num += values[i] * weights[i]
		den += weights[i]
	}
	if den == 0 {
		return 0
	}
	return num / den
}
