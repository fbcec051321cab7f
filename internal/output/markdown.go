package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// Markdown renders already merged phrases as a speaker-headed document.
// Phrases keep their order; nothing is merged here.
func Markdown(phrases []types.Phrase) string {
	var b strings.Builder
	for i, p := range phrases {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "# %s\n%s", p.Speaker, p.Text)
	}
	return b.String()
}

// Plain renders one timestamped line per phrase.
func Plain(phrases []types.Phrase) string {
	var b strings.Builder
	for _, p := range phrases {
		fmt.Fprintf(&b, "[%s-%s] %s: %s\n", secToTS(p.Start), secToTS(p.End), p.Speaker, strings.TrimSpace(p.Text))
	}
	return b.String()
}

func secToTS(sec float64) string {
	d := time.Duration(sec*1000) * time.Millisecond
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
