package interchange

import "errors"

// ErrStructural reports label and transcription records that do not pair up.
var ErrStructural = errors.New("structural interchange error")

// Control names and region types of the annotation tool
const (
	FromLabels        = "labels"
	FromTranscription = "transcription"
	ToAudio           = "audio"
	TypeLabels        = "labels"
	TypeTextArea      = "textarea"
)

// Document is an annotation-tool export: one task per audio file.
type Document []Task

// Task is one top-level entry of a Document
type Task struct {
	Data        TaskData `json:"data"`
	ID          int      `json:"id"`
	Annotations []Block  `json:"annotations,omitempty"`
	Predictions []Block  `json:"predictions,omitempty"`
}

// TaskData points at the annotated audio
type TaskData struct {
	Audio string `json:"audio"`
}

// Block holds the records of one annotation or prediction
type Block struct {
	Result []AnnotationRecord `json:"result"`
}

// AnnotationRecord is one region of a label or transcription control.
// A label record and a transcription record sharing ID form one phrase.
type AnnotationRecord struct {
	Value          Value   `json:"value"`
	OriginalLength float64 `json:"original_length"`
	FromName       string  `json:"from_name"`
	ToName         string  `json:"to_name"`
	Type           string  `json:"type"`
	ID             string  `json:"id"`
}

// Value is the region payload: labels for label records, text for
// transcription records.
type Value struct {
	Start  float64  `json:"start"`
	End    float64  `json:"end"`
	Labels []string `json:"labels,omitempty"`
	Text   []string `json:"text,omitempty"`
}
