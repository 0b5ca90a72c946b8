package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type AnswerKind uint8

const (
	KindText AnswerKind = iota
	KindChoices
	KindNumber
)

// Answer is the value given to one question. Text covers
// text/textarea/select/radio, Choices covers checkbox and Number covers
// rating/score when the client sends a JSON number.
type Answer struct {
	Kind    AnswerKind
	Text    string
	Choices []string
	Number  float64
}

func Text(s string) Answer {
	return Answer{Kind: KindText, Text: s}
}

func Choices(values ...string) Answer {
	return Answer{Kind: KindChoices, Choices: values}
}

func Number(n float64) Answer {
	return Answer{Kind: KindNumber, Number: n}
}

// String renders the answer the way conditions compare it: checkbox
// choices are joined with a comma, numbers use the shortest form.
func (a Answer) String() string {
	switch a.Kind {
	case KindChoices:
		return strings.Join(a.Choices, ",")
	case KindNumber:
		return strconv.FormatFloat(a.Number, 'f', -1, 64)
	default:
		return a.Text
	}
}

func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case KindChoices:
		if a.Choices == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.Choices)
	case KindNumber:
		if math.IsNaN(a.Number) || math.IsInf(a.Number, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(a.Number)
	default:
		return json.Marshal(a.Text)
	}
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Answer{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Text(s)
	case '[':
		var values []string
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("answer: checkbox values must be strings: %w", err)
		}
		*a = Choices(values...)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("answer: unsupported value %s", data)
		}
		*a = Number(n)
	}
	return nil
}

// Answers maps question ids to the respondent's answers.
type Answers map[string]Answer

// Clone returns a copy that shares no slices with the receiver.
func (answers Answers) Clone() Answers {
	if answers == nil {
		return Answers{}
	}
	out := make(Answers, len(answers))
	for id, a := range answers {
		if a.Choices != nil {
			a.Choices = append([]string(nil), a.Choices...)
		}
		out[id] = a
	}
	return out
}

// Policy selects between the two readings of ambiguous completeness rules.
// The zero value keeps the historical behavior.
type Policy struct {
	// EscalatedRequired makes section completeness honour "required" rules,
	// not only the question's own flag.
	EscalatedRequired bool `json:"escalatedRequired"`
	// ZeroIsAnswer counts a numeric 0 as answered. Off, a rating of 0 reads
	// as unanswered.
	ZeroIsAnswer bool `json:"zeroIsAnswer"`
}

// Answered reports whether question id holds a non-empty answer.
func (p Policy) Answered(answers Answers, id string) bool {
	a, ok := answers[id]
	if !ok {
		return false
	}
	switch a.Kind {
	case KindChoices:
		return len(a.Choices) > 0
	case KindNumber:
		if math.IsNaN(a.Number) {
			return false
		}
		return a.Number != 0 || p.ZeroIsAnswer
	default:
		return a.Text != ""
	}
}
