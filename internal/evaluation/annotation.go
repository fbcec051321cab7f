package evaluation

import (
	"slices"

	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// Segment is a labelled span of a timeline.
type Segment struct {
	Start, End float64
	Label      string
}

// Annotation is a speaker timeline; segments may overlap.
type Annotation []Segment

// FromPhrases builds the reference timeline of a transcript
func FromPhrases(phrases []types.Phrase) Annotation {
	a := make(Annotation, 0, len(phrases))
	for _, p := range phrases {
		a = append(a, Segment{Start: p.Start, End: p.End, Label: p.Speaker})
	}
	return a
}

// FromIntervals builds a timeline from diarizer output
func FromIntervals(intervals []types.DiarizationInterval) Annotation {
	a := make(Annotation, 0, len(intervals))
	for _, iv := range intervals {
		a = append(a, Segment{Start: iv.Start, End: iv.End, Label: iv.SpeakerID})
	}
	return a
}

// Labels returns the distinct labels in first-seen order.
func (a Annotation) Labels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range a {
		if !seen[s.Label] {
			seen[s.Label] = true
			out = append(out, s.Label)
		}
	}
	return out
}

// region is an elementary span where the set of active labels is constant.
type region struct {
	duration float64
	ref, hyp []int
}

// regions cuts the union of both timelines at every boundary and lists the
// label indices active in each piece.
func regions(ref, hyp Annotation, refIdx, hypIdx map[string]int) []region {
	var bounds []float64
	for _, s := range ref {
		bounds = append(bounds, s.Start, s.End)
	}
	for _, s := range hyp {
		bounds = append(bounds, s.Start, s.End)
	}
	slices.Sort(bounds)
	bounds = slices.Compact(bounds)

	active := func(a Annotation, idx map[string]int, t0, t1 float64) []int {
		var out []int
		for _, s := range a {
			if s.Start <= t0 && s.End >= t1 {
				i := idx[s.Label]
				if !slices.Contains(out, i) {
					out = append(out, i)
				}
			}
		}
		return out
	}

	var out []region
	for i := 0; i+1 < len(bounds); i++ {
		t0, t1 := bounds[i], bounds[i+1]
		r := region{duration: t1 - t0, ref: active(ref, refIdx, t0, t1), hyp: active(hyp, hypIdx, t0, t1)}
		if len(r.ref) == 0 && len(r.hyp) == 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}

func index(labels []string) map[string]int {
	idx := make(map[string]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}
	return idx
}
