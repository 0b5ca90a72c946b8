// Package stats aggregates responses per question for the admin dashboard.
package stats

import (
	"math"
	"strconv"
	"strings"

	"github.com/mbolis/quick-forms/hierarchy"
	"github.com/mbolis/quick-forms/logic"
	"github.com/mbolis/quick-forms/model"
)

type OptionCount struct {
	Option string `json:"option"`
	Count  int    `json:"count"`
}

type QuestionStats struct {
	QuestionID string             `json:"questionId"`
	SectionID  string             `json:"sectionId"`
	Title      string             `json:"title"`
	Type       model.QuestionType `json:"type"`
	Seen       int                `json:"seen"`
	Answered   int                `json:"answered"`
	Skipped    int                `json:"skipped"`
	Options    []OptionCount      `json:"options,omitempty"`
	Min        *float64           `json:"min,omitempty"`
	Max        *float64           `json:"max,omitempty"`
	Average    *float64           `json:"average,omitempty"`
}

type Summary struct {
	Responses int             `json:"responses"`
	Questions []QuestionStats `json:"questions"`
}

// Summarize computes per question counts over responses, in form order.
// Seen counts the responses whose own answers left the question visible.
// Options answered that the form no longer lists are counted after the
// listed ones.
func Summarize(form model.Form, responses []model.Response, policy model.Policy) Summary {
	entries := hierarchy.Flatten(form.Sections)
	summary := Summary{
		Responses: len(responses),
		Questions: make([]QuestionStats, len(entries)),
	}

	answerMaps := make([]model.Answers, len(responses))
	for i, r := range responses {
		answerMaps[i] = r.AnswerMap()
	}

	for i, e := range entries {
		q := e.Question
		qs := QuestionStats{
			QuestionID: q.ID,
			SectionID:  e.SectionID,
			Title:      q.Title,
			Type:       q.Type,
		}

		counts := map[string]int{}
		var extra []string
		var sum float64
		var numbers int

		for _, answers := range answerMaps {
			if logic.IsSectionVisible(form.Sections[e.SectionIndex], answers) && logic.IsQuestionVisible(q, answers) {
				qs.Seen++
			}
			if !policy.Answered(answers, q.ID) {
				qs.Skipped++
				continue
			}
			qs.Answered++
			a := answers[q.ID]

			switch {
			case q.Type.HasOptions():
				values := a.Choices
				if a.Kind != model.KindChoices {
					values = []string{a.String()}
				}
				for _, v := range values {
					if _, seen := counts[v]; !seen && !contains(q.Options, v) {
						extra = append(extra, v)
					}
					counts[v]++
				}
			case q.Type.IsNumeric():
				n, ok := number(a)
				if !ok {
					continue
				}
				sum += n
				numbers++
				if qs.Min == nil || n < *qs.Min {
					qs.Min = ptr(n)
				}
				if qs.Max == nil || n > *qs.Max {
					qs.Max = ptr(n)
				}
			}
		}

		if q.Type.HasOptions() {
			for _, opt := range append(append([]string(nil), q.Options...), extra...) {
				qs.Options = append(qs.Options, OptionCount{Option: opt, Count: counts[opt]})
			}
		}
		if numbers > 0 {
			qs.Average = ptr(sum / float64(numbers))
		}
		summary.Questions[i] = qs
	}
	return summary
}

func number(a model.Answer) (float64, bool) {
	if a.Kind == model.KindNumber {
		return a.Number, true
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(a.String()), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func ptr(f float64) *float64 {
	return &f
}
