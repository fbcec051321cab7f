package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/speaker-transcript/internal/rttm"
	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// CommandDiarizer runs an external diarization program that writes its
// result as <out>/pred_rttms/<stem>.rttm, the layout NeMo's clustering
// diarizer uses. Before the run an input manifest describing the recording
// is written to <out>/input_manifest.json.
//
// The command line may reference {audio}, {manifest} and {out}.
type CommandDiarizer struct {
	argv   []string
	outDir string
	mu     sync.Mutex // the output directory is shared between runs
}

// NewCommandDiarizer reads the options command and output_dir.
func NewCommandDiarizer(options map[string]string) (*CommandDiarizer, error) {
	argv := strings.Fields(options["command"])
	if len(argv) == 0 {
		return nil, fmt.Errorf("command diarizer needs a command")
	}
	outDir := options["output_dir"]
	if outDir == "" {
		outDir = filepath.Join(os.TempDir(), "diarization")
	}
	return &CommandDiarizer{argv: argv, outDir: outDir}, nil
}

type manifestLine struct {
	AudioFilepath string   `json:"audio_filepath"`
	Offset        float64  `json:"offset"`
	Label         string   `json:"label"`
	Duration      *float64 `json:"duration"`
	RTTMFilepath  *string  `json:"rttm_filepath"`
}

// Diarize implements Diarizer.
func (d *CommandDiarizer) Diarize(ctx context.Context, audioPath string) ([]types.DiarizationInterval, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(d.outDir, 0755); err != nil {
		return nil, err
	}
	manifest := filepath.Join(d.outDir, "input_manifest.json")
	line, err := json.Marshal(manifestLine{AudioFilepath: audioPath, Label: "infer"})
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(manifest, append(line, '\n'), 0644); err != nil {
		return nil, err
	}

	replacer := strings.NewReplacer("{audio}", audioPath, "{manifest}", manifest, "{out}", d.outDir)
	args := make([]string, len(d.argv))
	for i, a := range d.argv {
		args[i] = replacer.Replace(a)
	}

	log.Info().Str("file", audioPath).Str("command", args[0]).Msg("running diarizer")
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = os.Environ()
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: diarizer: %v: %s", ErrExternal, err, tail(output))
	}

	path := filepath.Join(d.outDir, "pred_rttms", stem(audioPath)+".rttm")
	intervals, err := rttm.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExternal, err)
	}
	log.Info().Str("file", audioPath).Int("intervals", len(intervals)).Msg("diarization completed")
	return intervals, nil
}

// RTTMDirDiarizer reads precomputed timelines from a directory.
type RTTMDirDiarizer struct {
	dir string
}

// NewRTTMDirDiarizer reads the option dir.
func NewRTTMDirDiarizer(options map[string]string) (*RTTMDirDiarizer, error) {
	dir := options["dir"]
	if dir == "" {
		return nil, fmt.Errorf("rttm diarizer needs a dir")
	}
	return &RTTMDirDiarizer{dir: dir}, nil
}

// Diarize implements Diarizer. For "talk.mp3.wav" it tries talk.mp3.rttm
// and then talk.rttm.
func (d *RTTMDirDiarizer) Diarize(_ context.Context, audioPath string) ([]types.DiarizationInterval, error) {
	s := stem(audioPath)
	candidates := []string{s + ".rttm"}
	if inner := strings.TrimSuffix(s, filepath.Ext(s)); inner != s {
		candidates = append(candidates, inner+".rttm")
	}
	for _, name := range candidates {
		intervals, err := rttm.ParseFile(filepath.Join(d.dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExternal, err)
		}
		return intervals, nil
	}
	return nil, fmt.Errorf("%w: no timeline for %s in %s", ErrExternal, filepath.Base(audioPath), d.dir)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
