// Package eval implements exam answer evaluation: deterministic correctness
// checks for closed-form question kinds and concurrent LLM-backed grading
// for free-text kinds.
package eval

import (
	"slices"
	"strings"

	"github.com/pvidal/quizmark/internal/model"
)

// Correct computes the correctness verdict for a closed-form question.
// It is total: malformed or mismatched answer shapes yield false, never a
// panic. Free-text kinds and unknown kinds also yield false; they are not
// gradable here.
func Correct(q model.Question, a model.Answer) bool {
	switch q.Kind {
	case model.KindTrueFalse:
		return q.Key.Bool != nil && a.Bool != nil && *q.Key.Bool == *a.Bool
	case model.KindMultipleChoice:
		return q.Key.Choice != nil && a.Choice != nil && *q.Key.Choice == *a.Choice
	case model.KindSelectAllThatApply:
		return sameIndexSet(q.Key.Choices, a.Choices)
	case model.KindFillInTheBlank:
		return blanksMatch(q.Key.Blanks, a.Blanks)
	case model.KindMatching:
		return pairsMatch(q.Key.Pairs, a.Pairs)
	}
	return false
}

// sameIndexSet compares two index slices as sets: sorted copies must be
// equal element by element.
func sameIndexSet(key, submitted []int) bool {
	if len(key) != len(submitted) {
		return false
	}
	k := slices.Clone(key)
	s := slices.Clone(submitted)
	slices.Sort(k)
	slices.Sort(s)
	return slices.Equal(k, s)
}

// blanksMatch requires every keyed blank to match the submitted string at
// the same position, ignoring case and surrounding whitespace. Missing
// submitted positions count as empty strings.
func blanksMatch(key, submitted []string) bool {
	for i, want := range key {
		var got string
		if i < len(submitted) {
			got = submitted[i]
		}
		if strings.ToLower(strings.TrimSpace(got)) != strings.ToLower(want) {
			return false
		}
	}
	return true
}

// pairsMatch checks that the submitted pair set has the key's cardinality
// and that every submitted left value maps to exactly the submitted right
// value. A left value absent from the key is a mismatch.
func pairsMatch(key, submitted []model.Pair) bool {
	if len(key) != len(submitted) {
		return false
	}
	byLeft := make(map[string]string, len(key))
	for _, p := range key {
		byLeft[p.Left] = p.Right
	}
	for _, p := range submitted {
		want, ok := byLeft[p.Left]
		if !ok || want != p.Right {
			return false
		}
	}
	return true
}
