package model

import (
	"encoding/json"
	"fmt"
)

// questionWire is the on-disk quiz file shape. The answer field is decoded
// per kind, matching the format the quiz generator emits.
type questionWire struct {
	Kind    Kind            `json:"type"`
	Prompt  string          `json:"question"`
	Options []string        `json:"options,omitempty"`
	Answer  json.RawMessage `json:"answer"`
}

// DecodeAnswer decodes a raw JSON answer value into the shape required by
// the given question kind. The wire shapes are: bool, number, array of
// numbers, array of strings, array of {left,right} objects, and string.
func DecodeAnswer(kind Kind, raw json.RawMessage) (Answer, error) {
	switch kind {
	case KindTrueFalse:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return Answer{}, fmt.Errorf("decode truefalse answer: %w", err)
		}
		return BoolAnswer(v), nil
	case KindMultipleChoice:
		var v int
		if err := json.Unmarshal(raw, &v); err != nil {
			return Answer{}, fmt.Errorf("decode multiplechoice answer: %w", err)
		}
		return ChoiceAnswer(v), nil
	case KindSelectAllThatApply:
		var v []int
		if err := json.Unmarshal(raw, &v); err != nil {
			return Answer{}, fmt.Errorf("decode selectallthatapply answer: %w", err)
		}
		return Answer{Choices: v}, nil
	case KindFillInTheBlank:
		var v []string
		if err := json.Unmarshal(raw, &v); err != nil {
			return Answer{}, fmt.Errorf("decode fillintheblank answer: %w", err)
		}
		return Answer{Blanks: v}, nil
	case KindMatching:
		var v []Pair
		if err := json.Unmarshal(raw, &v); err != nil {
			return Answer{}, fmt.Errorf("decode matching answer: %w", err)
		}
		return Answer{Pairs: v}, nil
	case KindShortAnswer, KindLongAnswer:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return Answer{}, fmt.Errorf("decode free-text answer: %w", err)
		}
		return TextAnswer(v), nil
	}
	return Answer{}, fmt.Errorf("unknown question kind %q", kind)
}

// encodeAnswer renders an answer back to its kind-specific wire shape.
func encodeAnswer(kind Kind, a Answer) (json.RawMessage, error) {
	var v any
	switch kind {
	case KindTrueFalse:
		v = a.Bool
	case KindMultipleChoice:
		v = a.Choice
	case KindSelectAllThatApply:
		v = a.Choices
	case KindFillInTheBlank:
		v = a.Blanks
	case KindMatching:
		v = a.Pairs
	case KindShortAnswer, KindLongAnswer:
		v = a.Text
	default:
		return nil, fmt.Errorf("unknown question kind %q", kind)
	}
	return json.Marshal(v)
}

// UnmarshalJSON decodes a question from the quiz file format.
func (q *Question) UnmarshalJSON(data []byte) error {
	var w questionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Kind.Valid() {
		return fmt.Errorf("unknown question kind %q", w.Kind)
	}
	key, err := DecodeAnswer(w.Kind, w.Answer)
	if err != nil {
		return err
	}
	q.Kind = w.Kind
	q.Prompt = w.Prompt
	q.Options = w.Options
	q.Key = key
	return nil
}

// MarshalJSON renders a question in the quiz file format.
func (q Question) MarshalJSON() ([]byte, error) {
	raw, err := encodeAnswer(q.Kind, q.Key)
	if err != nil {
		return nil, err
	}
	return json.Marshal(questionWire{
		Kind:    q.Kind,
		Prompt:  q.Prompt,
		Options: q.Options,
		Answer:  raw,
	})
}

// DecodeQuestions parses a quiz file: a JSON array of questions.
func DecodeQuestions(data []byte) ([]Question, error) {
	var qs []Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	return qs, nil
}

// DecodeAnswers parses an answers file: a JSON object mapping question
// indices to raw answer values, decoded per the corresponding question's
// kind. Indices outside the question range are rejected.
func DecodeAnswers(questions []Question, data []byte) (map[int]Answer, error) {
	var raw map[int]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse answers: %w", err)
	}
	answers := make(map[int]Answer, len(raw))
	for idx, r := range raw {
		if idx < 0 || idx >= len(questions) {
			return nil, fmt.Errorf("answer index %d out of range", idx)
		}
		a, err := DecodeAnswer(questions[idx].Kind, r)
		if err != nil {
			return nil, fmt.Errorf("answer %d: %w", idx, err)
		}
		answers[idx] = a
	}
	return answers, nil
}
