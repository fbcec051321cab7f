package merge

import (
	"strings"

	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// DefaultGraceTime is the largest gap, in seconds, bridged between two
// utterances of the same speaker.
const DefaultGraceTime = 3.0

const trimSet = "«»‘’'\" "

// CleanText strips surrounding quotes and spaces from recognised text
func CleanText(s string) string {
	return strings.Trim(s, trimSet)
}

// Merger coalesces consecutive same-speaker utterances into phrases.
type Merger struct {
	GraceTime float64
}

// New creates a merger; negative grace times are treated as zero.
func New(graceTime float64) *Merger {
	return &Merger{GraceTime: max(graceTime, 0)}
}

// Merge turns chronologically ordered, speaker-attributed utterances into
// phrases. A new phrase starts whenever the speaker changes or the next
// utterance begins more than GraceTime after the current phrase ends.
func (m *Merger) Merge(utterances []types.Utterance) []types.Phrase {
	if len(utterances) == 0 {
		return []types.Phrase{}
	}
	grace := max(m.GraceTime, 0)

	var (
		result []types.Phrase
		text   strings.Builder
	)
	first := utterances[0]
	acc := types.Phrase{Start: first.Start, End: first.End, Speaker: first.Speaker}
	text.WriteString(CleanText(first.Text))

	flush := func() {
		acc.Text = text.String()
		result = append(result, acc)
		text.Reset()
	}

	for _, u := range utterances[1:] {
		if u.Speaker != acc.Speaker || u.Start > acc.End+grace {
			flush()
			acc = types.Phrase{Start: u.Start, End: u.End, Speaker: u.Speaker}
			text.WriteString(CleanText(u.Text))
			continue
		}
		acc.End = u.End
		text.WriteByte(' ')
		text.WriteString(CleanText(u.Text))
	}
	flush()

	return result
}
