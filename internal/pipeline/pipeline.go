package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codebuildervaibhav/speaker-transcript/internal/config"
	"github.com/codebuildervaibhav/speaker-transcript/internal/fusion"
	"github.com/codebuildervaibhav/speaker-transcript/internal/merge"
	"github.com/codebuildervaibhav/speaker-transcript/internal/transcription"
	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// NormalizeFunc converts a source recording into the WAV the models expect
// and returns the new path.
type NormalizeFunc func(ctx context.Context, inputPath, tempDir string, sampleRate int) (string, error)

// Pipeline turns one recording into a speaker-labelled transcript.
type Pipeline struct {
	Recognizer    transcription.Recognizer
	Diarizer      transcription.Diarizer
	Aligner       transcription.Aligner
	Fuser         *fusion.Fuser
	Merger        *merge.Merger
	SpeakerFormat string
	TempDir       string
	SampleRate    int
	// Normalize is skipped when nil and the input is handed to the models
	// as is.
	Normalize NormalizeFunc
}

// FromConfig builds a pipeline with the configured backends.
func FromConfig(cfg *config.Config) (*Pipeline, error) {
	mode, err := fusion.ParseMode(cfg.Pipeline.FusionMode)
	if err != nil {
		return nil, err
	}
	recognizer, err := transcription.Recognizers.Create(cfg.Models.Recognizer.Name, cfg.Models.Recognizer.Options)
	if err != nil {
		return nil, fmt.Errorf("recognizer: %w", err)
	}
	diarizer, err := transcription.Diarizers.Create(cfg.Models.Diarizer.Name, cfg.Models.Diarizer.Options)
	if err != nil {
		return nil, fmt.Errorf("diarizer: %w", err)
	}
	alignerName := cfg.Models.Aligner.Name
	if alignerName == "" {
		alignerName = "none"
	}
	aligner, err := transcription.Aligners.Create(alignerName, cfg.Models.Aligner.Options)
	if err != nil {
		return nil, fmt.Errorf("aligner: %w", err)
	}

	return &Pipeline{
		Recognizer:    recognizer,
		Diarizer:      diarizer,
		Aligner:       aligner,
		Fuser:         fusion.New(mode),
		Merger:        merge.New(cfg.Pipeline.GraceTime),
		SpeakerFormat: cfg.Pipeline.SpeakerFormat,
		TempDir:       cfg.Storage.TempDir,
		SampleRate:    cfg.Pipeline.SampleRate,
		Normalize:     transcription.NormalizeAudio,
	}, nil
}

// Run processes one recording: normalise, diarize and recognise in
// parallel, align, attribute speakers, renumber them and merge phrases.
func (p *Pipeline) Run(ctx context.Context, audioPath string) (types.Transcript, error) {
	wavPath := audioPath
	if p.Normalize != nil {
		normalized, err := p.Normalize(ctx, audioPath, p.TempDir, p.SampleRate)
		if err != nil {
			return types.Transcript{}, fmt.Errorf("normalizing %s: %w", audioPath, external(err))
		}
		defer os.RemoveAll(filepath.Dir(normalized))
		wavPath = normalized
	}

	var intervals []types.DiarizationInterval
	var utterances []types.Utterance
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		intervals, err = p.Diarizer.Diarize(gctx, wavPath)
		if err != nil {
			return fmt.Errorf("diarizing %s: %w", audioPath, external(err))
		}
		return nil
	})
	g.Go(func() error {
		var err error
		utterances, err = p.Recognizer.Transcribe(gctx, wavPath)
		if err != nil {
			return fmt.Errorf("transcribing %s: %w", audioPath, external(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return types.Transcript{}, err
	}

	if p.Aligner != nil {
		aligned, err := p.Aligner.Align(ctx, wavPath, utterances)
		if err != nil {
			return types.Transcript{}, fmt.Errorf("aligning %s: %w", audioPath, external(err))
		}
		utterances = aligned
	}

	fuser := p.Fuser
	if fuser == nil {
		fuser = fusion.New(fusion.ModeStrict)
	}
	merger := p.Merger
	if merger == nil {
		merger = merge.New(merge.DefaultGraceTime)
	}
	attributed := fusion.Renumber(fuser.Assign(intervals, utterances), p.SpeakerFormat)
	phrases := merger.Merge(attributed)
	for i, ph := range phrases {
		if err := ph.Validate(); err != nil {
			return types.Transcript{}, fmt.Errorf("%s phrase %d: %w", audioPath, i, err)
		}
	}

	length := recordingLength(wavPath, intervals, utterances)
	if length > 0 {
		for i, ph := range phrases {
			if ph.Start >= length {
				return types.Transcript{}, fmt.Errorf("%w: %s phrase %d starts at %.3f beyond recording length %.3f",
					types.ErrTimestamp, audioPath, i, ph.Start, length)
			}
		}
	}
	log.Info().Str("file", audioPath).Int("intervals", len(intervals)).Int("utterances", len(utterances)).
		Int("phrases", len(phrases)).Float64("length", length).Msg("pipeline finished")

	return types.Transcript{
		AudioPath: audioPath,
		Length:    length,
		Intervals: intervals,
		Phrases:   phrases,
	}, nil
}

// recordingLength reads the WAV header, falling back to the latest model
// timestamp for inputs that are not WAV.
func recordingLength(wavPath string, intervals []types.DiarizationInterval, utterances []types.Utterance) float64 {
	secs, err := transcription.Duration(wavPath)
	if err == nil {
		return secs
	}
	log.Debug().Err(err).Str("file", wavPath).Msg("length taken from model output")
	var end float64
	for _, iv := range intervals {
		end = max(end, iv.End)
	}
	for _, u := range utterances {
		end = max(end, u.End)
	}
	return end
}

func external(err error) error {
	if errors.Is(err, transcription.ErrExternal) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", transcription.ErrExternal, err)
}
