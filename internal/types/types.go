package types

import (
	"errors"
	"fmt"
)

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Source type constants
const (
	SourceUpload = "upload"
	SourceGDrive = "gdrive"
	SourceBatch  = "batch"
)

// NoSpeaker labels an utterance no diarization interval could be matched to.
const NoSpeaker = "None"

// ErrTimestamp reports a data-quality problem with a time range.
var ErrTimestamp = errors.New("inconsistent timestamp")

// Word is a timed sub-interval of an utterance
type Word struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// Utterance is a recognised segment, optionally with word timings.
// Speaker is empty until the fuser attributes it.
type Utterance struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Words   []Word  `json:"words,omitempty"`
	Speaker string  `json:"speaker,omitempty"`
}

// DiarizationInterval is one speaker-homogeneous span of the recording
type DiarizationInterval struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	SpeakerID string  `json:"speaker"`
}

// Phrase is a speaker-attributed piece of the final transcript.
type Phrase struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker"`
}

// Validate checks the start <= end invariant.
func (p Phrase) Validate() error {
	if p.Start > p.End {
		return fmt.Errorf("%w: phrase start %.3f after end %.3f", ErrTimestamp, p.Start, p.End)
	}
	return nil
}

// CorpusEntry is one decoded recording of a reference corpus
type CorpusEntry struct {
	AudioPath       string
	Phrases         []Phrase
	ReferenceLength float64
}

// Transcript is the output of one pipeline run over a recording
type Transcript struct {
	AudioPath string
	Length    float64
	Intervals []DiarizationInterval
	Phrases   []Phrase
}

// Speakers returns the distinct phrase speakers in first-seen order.
func (t *Transcript) Speakers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range t.Phrases {
		if !seen[p.Speaker] {
			seen[p.Speaker] = true
			out = append(out, p.Speaker)
		}
	}
	return out
}
