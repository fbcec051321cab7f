package transcription

import (
	"context"
	"errors"

	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// ErrExternal wraps failures of model backends, including malformed output.
var ErrExternal = errors.New("external model failure")

// Recognizer turns a normalised recording into timed utterances.
type Recognizer interface {
	Transcribe(ctx context.Context, audioPath string) ([]types.Utterance, error)
}

// Diarizer splits a recording into speaker-homogeneous intervals.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) ([]types.DiarizationInterval, error)
}

// Aligner refines word timings of recognised utterances.
type Aligner interface {
	Align(ctx context.Context, audioPath string, utterances []types.Utterance) ([]types.Utterance, error)
}
