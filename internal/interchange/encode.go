package interchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// Encode converts phrases into a single-task document. Speakers are
// relabelled "Speaker N" in first-seen order; both records of a phrase carry
// its position as id and the recording length as original_length.
func Encode(phrases []types.Phrase, audio string, length float64) Document {
	speakers := make(map[string]int)
	result := make([]AnnotationRecord, 0, 2*len(phrases))

	for i, p := range phrases {
		if _, ok := speakers[p.Speaker]; !ok {
			speakers[p.Speaker] = len(speakers) + 1
		}
		id := strconv.Itoa(i)
		result = append(result,
			AnnotationRecord{
				Value:          Value{Start: p.Start, End: p.End, Labels: []string{fmt.Sprintf("Speaker %d", speakers[p.Speaker])}},
				OriginalLength: length,
				FromName:       FromLabels,
				ToName:         ToAudio,
				Type:           TypeLabels,
				ID:             id,
			},
			AnnotationRecord{
				Value:          Value{Start: p.Start, End: p.End, Text: []string{p.Text}},
				OriginalLength: length,
				FromName:       FromTranscription,
				ToName:         ToAudio,
				Type:           TypeTextArea,
				ID:             id,
			})
	}

	return Document{{
		Data:        TaskData{Audio: audio},
		ID:          1,
		Predictions: []Block{{Result: result}},
	}}
}

// Marshal serialises v as UTF-8 JSON without escaping HTML or non-ASCII text.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

type compactPhrase struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// CompactSuffix names compact transcript files written next to a recording.
const CompactSuffix = ".compact.json"

// MarshalCompact renders phrases in the compact transcript format.
func MarshalCompact(phrases []types.Phrase) ([]byte, error) {
	out := make([]compactPhrase, len(phrases))
	for i, p := range phrases {
		out[i] = compactPhrase{Text: p.Text, Start: p.Start, End: p.End, Speaker: p.Speaker}
	}
	return Marshal(out)
}

// UnmarshalCompact parses the compact transcript format.
func UnmarshalCompact(data []byte) ([]types.Phrase, error) {
	var in []compactPhrase
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse compact transcript: %w", err)
	}
	phrases := make([]types.Phrase, len(in))
	for i, c := range in {
		phrases[i] = types.Phrase{Start: c.Start, End: c.End, Text: c.Text, Speaker: c.Speaker}
		if err := phrases[i].Validate(); err != nil {
			return nil, fmt.Errorf("phrase %d: %w", i, err)
		}
	}
	return phrases, nil
}
