package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codebuildervaibhav/speaker-transcript/internal/interchange"
	"github.com/codebuildervaibhav/speaker-transcript/internal/output"
	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// Outputs selects the files written besides the interchange document.
type Outputs struct {
	Markdown bool
	Compact  bool
}

// SavedFiles lists what a save produced; empty paths were not written.
type SavedFiles struct {
	Interchange string `json:"interchange"`
	Markdown    string `json:"markdown,omitempty"`
	Compact     string `json:"compact,omitempty"`
}

// LocalStorage handles saving transcripts to the local filesystem
type LocalStorage struct {
	outputDir string
	outputs   Outputs
	now       func() time.Time
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(outputDir string, outputs Outputs) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
		outputs:   outputs,
		now:       time.Now,
	}
}

// SaveAlongside writes <input>.json next to the recording, plus
// <input>.md and <input>.compact.json when enabled. The document names the
// recording by its base name so a corpus walk resolves it back to the input.
func (ls *LocalStorage) SaveAlongside(t types.Transcript) (SavedFiles, error) {
	return ls.save(t.AudioPath, filepath.Base(t.AudioPath), t)
}

// SaveTranscript writes the outputs under a dated directory:
// <outputDir>/2025/01/23/20250123_143022_<name>.json
func (ls *LocalStorage) SaveTranscript(requestName string, t types.Transcript) (SavedFiles, error) {
	now := ls.now()
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))
	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return SavedFiles{}, fmt.Errorf("failed to create date directory: %w", err)
	}
	base := filepath.Join(dateDir, fmt.Sprintf("%s_%s", now.Format("20060102_150405"), sanitizeFilename(requestName)))
	return ls.save(base, requestName, t)
}

func (ls *LocalStorage) save(base, audio string, t types.Transcript) (SavedFiles, error) {
	doc, err := interchange.Marshal(interchange.Encode(t.Phrases, audio, t.Length))
	if err != nil {
		return SavedFiles{}, fmt.Errorf("failed to encode transcript: %w", err)
	}
	files := SavedFiles{Interchange: base + ".json"}
	if err := WriteFileAtomic(files.Interchange, doc); err != nil {
		return SavedFiles{}, err
	}

	if ls.outputs.Markdown {
		files.Markdown = base + ".md"
		if err := WriteFileAtomic(files.Markdown, []byte(output.Markdown(t.Phrases))); err != nil {
			return files, err
		}
	}
	if ls.outputs.Compact {
		compact, err := interchange.MarshalCompact(t.Phrases)
		if err != nil {
			return files, err
		}
		files.Compact = base + interchange.CompactSuffix
		if err := WriteFileAtomic(files.Compact, compact); err != nil {
			return files, err
		}
	}
	return files, nil
}

// WriteFileAtomic writes data to a temporary file in the target directory
// and renames it into place.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// sanitizeFilename replaces characters that are invalid in file names
func sanitizeFilename(name string) string {
	result := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\:*?"<>|`, r) || r < 0x20 {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if result == "" || result == "." || result == ".." {
		result = "untitled"
	}
	if runes := []rune(result); len(runes) > 100 {
		result = string(runes[:100])
	}
	return result
}
