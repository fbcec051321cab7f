package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// WhisperRecognizer runs the Python whisper CLI with word timestamps.
type WhisperRecognizer struct {
	python   string
	model    string
	language string
	mu       sync.Mutex // one model process at a time
}

// NewWhisperRecognizer reads the options python, model and language.
// The model may be given as a name or as a checkpoint path such as
// "models/ggml-small.bin".
func NewWhisperRecognizer(options map[string]string) *WhisperRecognizer {
	w := &WhisperRecognizer{
		python:   options["python"],
		model:    modelName(options["model"]),
		language: options["language"],
	}
	if w.python == "" {
		w.python = "python"
	}
	log.Debug().Str("model", w.model).Str("python", w.python).Msg("whisper recognizer configured")
	return w
}

func modelName(path string) string {
	for _, name := range []string{"tiny", "base", "small", "medium", "large-v3-turbo", "large-v3", "large"} {
		if strings.Contains(path, name) {
			return name
		}
	}
	return "small"
}

// Transcribe implements Recognizer.
func (w *WhisperRecognizer) Transcribe(ctx context.Context, audioPath string) ([]types.Utterance, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	outDir, err := os.MkdirTemp("", "whisper")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(outDir)

	absPath, err := filepath.Abs(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	args := []string{"-m", "whisper", absPath,
		"--model", w.model,
		"--output_dir", outDir,
		"--output_format", "json",
		"--word_timestamps", "True",
		"--fp16", "False",
	}
	if w.language != "" {
		args = append(args, "--language", w.language)
	}

	log.Info().Str("file", audioPath).Str("model", w.model).Msg("transcribing with whisper")
	cmd := exec.CommandContext(ctx, w.python, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%w: whisper: %v: %s", ErrExternal, err, tail(output))
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(outDir, base+".json"))
	if err != nil {
		return nil, fmt.Errorf("%w: reading whisper output: %v", ErrExternal, err)
	}
	utterances, err := ParseWhisperJSON(data)
	if err != nil {
		return nil, err
	}
	log.Info().Str("file", audioPath).Int("utterances", len(utterances)).Msg("transcription completed")
	return utterances, nil
}

// whisperOutput matches the JSON written by the whisper CLI.
type whisperOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
		Words []struct {
			Word  string  `json:"word"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"words"`
	} `json:"segments"`
}

// ParseWhisperJSON converts whisper CLI output into utterances.
func ParseWhisperJSON(data []byte) ([]types.Utterance, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: parsing whisper JSON: %v", ErrExternal, err)
	}
	utterances := make([]types.Utterance, 0, len(out.Segments))
	for _, seg := range out.Segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		if seg.Start > seg.End {
			return nil, fmt.Errorf("%w: segment %d: %w", ErrExternal, seg.ID, types.ErrTimestamp)
		}
		u := types.Utterance{Start: seg.Start, End: seg.End, Text: strings.TrimSpace(seg.Text)}
		for _, w := range seg.Words {
			u.Words = append(u.Words, types.Word{Start: w.Start, End: w.End, Text: strings.TrimSpace(w.Word)})
		}
		utterances = append(utterances, u)
	}
	return utterances, nil
}

// tail keeps the last lines of a subprocess' output for error messages.
func tail(output []byte) string {
	lines := bytes.Split(bytes.TrimSpace(output), []byte("\n"))
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return string(bytes.Join(lines, []byte("\n")))
}
