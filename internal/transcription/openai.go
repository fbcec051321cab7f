package transcription

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// OpenAIRecognizer calls an OpenAI-compatible transcription endpoint
// (OpenAI itself or a LocalAI server) and requests segment and word
// timestamps.
type OpenAIRecognizer struct {
	client   *openai.Client
	model    string
	language string
}

// NewOpenAIRecognizer reads the options api_key, base_url, model and
// language. The key falls back to OPENAI_API_KEY.
func NewOpenAIRecognizer(options map[string]string) (*OpenAIRecognizer, error) {
	key := options["api_key"]
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	baseURL := options["base_url"]
	if key == "" && baseURL == "" {
		return nil, fmt.Errorf("openai recognizer needs api_key, OPENAI_API_KEY or base_url")
	}

	cfg := openai.DefaultConfig(key)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	model := options["model"]
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAIRecognizer{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		language: options["language"],
	}, nil
}

// Transcribe implements Recognizer.
func (r *OpenAIRecognizer) Transcribe(ctx context.Context, audioPath string) ([]types.Utterance, error) {
	req := openai.AudioRequest{
		Model:    r.model,
		FilePath: audioPath,
		Language: r.language,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
			openai.TranscriptionTimestampGranularitySegment,
		},
	}
	log.Info().Str("file", audioPath).Str("model", r.model).Msg("requesting transcription")
	resp, err := r.client.CreateTranscription(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: openai transcription: %v", ErrExternal, err)
	}
	return utterancesFromResponse(resp)
}

// utterancesFromResponse attaches the flat word list to the segment whose
// range contains the word's midpoint.
func utterancesFromResponse(resp openai.AudioResponse) ([]types.Utterance, error) {
	utterances := make([]types.Utterance, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		if seg.Start > seg.End {
			return nil, fmt.Errorf("%w: segment %d: %w", ErrExternal, seg.ID, types.ErrTimestamp)
		}
		utterances = append(utterances, types.Utterance{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}

	next := 0
	for _, w := range resp.Words {
		mid := (w.Start + w.End) / 2
		for next < len(utterances) && mid > utterances[next].End {
			next++
		}
		if next == len(utterances) {
			break
		}
		utterances[next].Words = append(utterances[next].Words, types.Word{
			Start: w.Start,
			End:   w.End,
			Text:  strings.TrimSpace(w.Word),
		})
	}
	return utterances, nil
}
