// Package rttm reads and writes diarization timelines in the RTTM layout:
//
//	SPEAKER <file> <channel> <start> <duration> <NA> <NA> <speaker> <NA> <NA>
package rttm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

const (
	fieldStart    = 3
	fieldDuration = 4
	fieldSpeaker  = 7
)

// ErrSyntax reports a malformed timeline line
var ErrSyntax = errors.New("malformed rttm line")

// Parse reads a timeline; blank lines and ';' comments are skipped. The
// intervals are returned ordered by start time.
func Parse(r io.Reader) ([]types.DiarizationInterval, error) {
	var intervals []types.DiarizationInterval
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, ";") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) <= fieldSpeaker {
			return nil, fmt.Errorf("%w %d: want at least %d fields, got %d", ErrSyntax, line, fieldSpeaker+1, len(fields))
		}
		start, err := strconv.ParseFloat(fields[fieldStart], 64)
		if err != nil {
			return nil, fmt.Errorf("%w %d: start %q: %v", ErrSyntax, line, fields[fieldStart], err)
		}
		duration, err := strconv.ParseFloat(fields[fieldDuration], 64)
		if err != nil {
			return nil, fmt.Errorf("%w %d: duration %q: %v", ErrSyntax, line, fields[fieldDuration], err)
		}
		if start < 0 || duration < 0 {
			return nil, fmt.Errorf("%w: line %d has start %.3f and duration %.3f", types.ErrTimestamp, line, start, duration)
		}
		intervals = append(intervals, types.DiarizationInterval{
			Start:     start,
			End:       start + duration,
			SpeakerID: fields[fieldSpeaker],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(intervals, func(i, j int) bool { return intervals[i].Start < intervals[j].Start })
	return intervals, nil
}

// ParseFile reads a timeline from disk.
func ParseFile(path string) ([]types.DiarizationInterval, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	intervals, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return intervals, nil
}

// Write emits one SPEAKER line per interval for the given file id.
func Write(w io.Writer, fileID string, intervals []types.DiarizationInterval) error {
	for _, iv := range intervals {
		if iv.End < iv.Start {
			return fmt.Errorf("%w: interval %.3f-%.3f", types.ErrTimestamp, iv.Start, iv.End)
		}
		_, err := fmt.Fprintf(w, "SPEAKER %s 1 %.3f %.3f <NA> <NA> %s <NA> <NA>\n",
			fileID, iv.Start, iv.End-iv.Start, iv.SpeakerID)
		if err != nil {
			return err
		}
	}
	return nil
}
