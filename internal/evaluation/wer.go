package evaluation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Words are encoded as private-use runes so the character-level Levenshtein
// distance becomes a word-level one.
const (
	firstWordRune = 0xF0000
	lastWordRune  = 0x10FFFD
)

// Normalize prepares text for WER scoring: whitespace is collapsed,
// punctuation removed and the result lowercased and split into words.
func Normalize(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	text = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return r
	}, text)
	return strings.Fields(cases.Lower(language.Und).String(text))
}

// WordErrors returns the word-level edit distance between two texts and the
// number of reference words.
func WordErrors(ref, hyp string) (edits, words int, err error) {
	refWords, hypWords := Normalize(ref), Normalize(hyp)
	vocab := make(map[string]rune)
	encode := func(ws []string) (string, error) {
		var b strings.Builder
		for _, w := range ws {
			r, ok := vocab[w]
			if !ok {
				r = rune(firstWordRune + len(vocab))
				if r > lastWordRune {
					return "", fmt.Errorf("vocabulary exceeds %d distinct words", lastWordRune-firstWordRune+1)
				}
				vocab[w] = r
			}
			b.WriteRune(r)
		}
		return b.String(), nil
	}
	s, err := encode(refWords)
	if err != nil {
		return 0, 0, err
	}
	t, err := encode(hypWords)
	if err != nil {
		return 0, 0, err
	}
	return fuzzy.LevenshteinDistance(s, t), len(refWords), nil
}

// WER computes the corpus word error rate over paired texts: total edits
// divided by total reference words. An empty reference scores 0 against an
// empty hypothesis and 1 otherwise.
func WER(refs, hyps []string) (float64, error) {
	if len(refs) != len(hyps) {
		return 0, fmt.Errorf("wer: %d references but %d hypotheses", len(refs), len(hyps))
	}
	var edits, words int
	for i := range refs {
		e, w, err := WordErrors(refs[i], hyps[i])
		if err != nil {
			return 0, err
		}
		edits += e
		words += w
	}
	if words == 0 {
		if edits == 0 {
			return 0, nil
		}
		return 1, nil
	}
	return float64(edits) / float64(words), nil
}
