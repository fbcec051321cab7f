package interchange

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

var multiSpace = regexp.MustCompile(` +`)

// DecodedEntry is the phrase list recovered for one audio file.
type DecodedEntry struct {
	Phrases        []types.Phrase
	OriginalLength float64
}

type region struct {
	start, end float64
	payload    string
}

// Unmarshal parses an annotation-tool export.
func Unmarshal(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse interchange document: %w", err)
	}
	return doc, nil
}

// DecodeFile reads and decodes an interchange file
func DecodeFile(path string) (map[string]DecodedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	entries, err := Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Decode rebuilds phrases from each task, keyed by audio. Ground-truth
// annotations win over predictions. Every label record must have a
// transcription record with the same id and vice versa.
func Decode(doc Document) (map[string]DecodedEntry, error) {
	out := make(map[string]DecodedEntry, len(doc))
	for i, task := range doc {
		if task.Data.Audio == "" {
			return nil, fmt.Errorf("%w: task %d has no audio", ErrStructural, i)
		}
		if _, dup := out[task.Data.Audio]; dup {
			return nil, fmt.Errorf("%w: audio %q appears twice", ErrStructural, task.Data.Audio)
		}
		entry, err := decodeTask(task)
		if err != nil {
			return nil, fmt.Errorf("audio %q: %w", task.Data.Audio, err)
		}
		out[task.Data.Audio] = entry
	}
	return out, nil
}

func decodeTask(task Task) (DecodedEntry, error) {
	var block Block
	switch {
	case len(task.Annotations) > 0:
		block = task.Annotations[0]
	case len(task.Predictions) > 0:
		block = task.Predictions[0]
	default:
		return DecodedEntry{}, fmt.Errorf("%w: no annotations or predictions", ErrStructural)
	}

	var (
		order    []string
		seen     = make(map[string]bool)
		labels   = make(map[string]region)
		texts    = make(map[string]region)
		original float64
	)

	for _, rec := range block.Result {
		var target map[string]region
		var payload string
		switch rec.FromName {
		case FromLabels:
			if len(rec.Value.Labels) == 0 {
				return DecodedEntry{}, fmt.Errorf("%w: label record %q has no label", ErrStructural, rec.ID)
			}
			target, payload = labels, rec.Value.Labels[0]
		case FromTranscription:
			target = texts
			payload = multiSpace.ReplaceAllString(strings.Join(rec.Value.Text, " "), " ")
		default:
			continue
		}

		if rec.Value.Start > rec.Value.End {
			return DecodedEntry{}, fmt.Errorf("%w: record %q starts at %.3f after its end %.3f",
				types.ErrTimestamp, rec.ID, rec.Value.Start, rec.Value.End)
		}
		if rec.OriginalLength > 0 && rec.Value.Start >= rec.OriginalLength {
			return DecodedEntry{}, fmt.Errorf("%w: record %q starts at %.3f beyond original length %.3f",
				types.ErrTimestamp, rec.ID, rec.Value.Start, rec.OriginalLength)
		}
		if _, dup := target[rec.ID]; dup {
			return DecodedEntry{}, fmt.Errorf("%w: duplicate %s record %q", ErrStructural, rec.FromName, rec.ID)
		}

		target[rec.ID] = region{start: rec.Value.Start, end: rec.Value.End, payload: payload}
		original = max(original, rec.OriginalLength)
		if !seen[rec.ID] {
			seen[rec.ID] = true
			order = append(order, rec.ID)
		}
	}

	phrases := make([]types.Phrase, 0, len(order))
	for _, id := range order {
		label, hasLabel := labels[id]
		text, hasText := texts[id]
		switch {
		case !hasText:
			return DecodedEntry{}, fmt.Errorf("%w: label record %q has no transcription", ErrStructural, id)
		case !hasLabel:
			return DecodedEntry{}, fmt.Errorf("%w: transcription record %q has no label", ErrStructural, id)
		}
		phrases = append(phrases, types.Phrase{
			Start:   label.start,
			End:     label.end,
			Text:    text.payload,
			Speaker: label.payload,
		})
	}

	return DecodedEntry{Phrases: phrases, OriginalLength: original}, nil
}

// Corpus decodes every JSON document under root, skipping compact phrase
// lists. Entries are keyed by the audio path resolved against the directory
// of the document naming it.
func Corpus(root string) (map[string]types.CorpusEntry, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") && !strings.HasSuffix(path, CompactSuffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus %s: %w", root, err)
	}
	slices.Sort(files)

	corpus := make(map[string]types.CorpusEntry)
	for _, file := range files {
		entries, err := DecodeFile(file)
		if err != nil {
			return nil, err
		}
		for audio, entry := range entries {
			key := audio
			if !filepath.IsAbs(audio) {
				key = filepath.Join(filepath.Dir(file), audio)
			}
			if _, dup := corpus[key]; dup {
				return nil, fmt.Errorf("%w: %s is annotated by more than one document", ErrStructural, key)
			}
			corpus[key] = types.CorpusEntry{
				AudioPath:       key,
				Phrases:         entry.Phrases,
				ReferenceLength: entry.OriginalLength,
			}
		}
	}
	return corpus, nil
}
