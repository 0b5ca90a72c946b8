// Package hierarchy addresses the questions of a form across its sections
// and answers the gating questions navigation asks about them.
package hierarchy

import (
	"github.com/mbolis/quick-forms/logic"
	"github.com/mbolis/quick-forms/model"
)

// Entry is one question in the flattened form.
type Entry struct {
	Question      model.Question
	SectionID     string
	SectionIndex  int
	QuestionIndex int
}

// Flatten lists the questions of all sections in form order, each tagged
// with its owning section.
func Flatten(sections []model.FormSection) []Entry {
	n := 0
	for _, s := range sections {
		n += len(s.Questions)
	}
	entries := make([]Entry, 0, n)
	for si, s := range sections {
		for qi, q := range s.Questions {
			entries = append(entries, Entry{
				Question:      q,
				SectionID:     s.ID,
				SectionIndex:  si,
				QuestionIndex: qi,
			})
		}
	}
	return entries
}

// Questions strips the section tags off entries.
func Questions(entries []Entry) []model.Question {
	questions := make([]model.Question, len(entries))
	for i, e := range entries {
		questions[i] = e.Question
	}
	return questions
}

type Group struct {
	SectionID string
	Questions []model.Question
}

// Regroup rebuilds per-section question lists from flattened entries, in
// order of first appearance.
func Regroup(entries []Entry) []Group {
	var groups []Group
	index := map[string]int{}
	for _, e := range entries {
		i, ok := index[e.SectionID]
		if !ok {
			i = len(groups)
			index[e.SectionID] = i
			groups = append(groups, Group{SectionID: e.SectionID})
		}
		groups[i].Questions = append(groups[i].Questions, e.Question)
	}
	return groups
}

// Locate finds the section and in-section position of a question.
func Locate(entries []Entry, questionID string) (section, question int, ok bool) {
	for _, e := range entries {
		if e.Question.ID == questionID {
			return e.SectionIndex, e.QuestionIndex, true
		}
	}
	return 0, 0, false
}

// IsSectionComplete reports whether every required question of section i
// has an answer. Only the question's own required flag counts unless the
// policy asks for rule escalation. Out of range sections are incomplete.
func IsSectionComplete(i int, sections []model.FormSection, answers model.Answers, policy model.Policy) bool {
	if i < 0 || i >= len(sections) {
		return false
	}
	for _, q := range sections[i].Questions {
		required := q.Required
		if policy.EscalatedRequired {
			required = logic.IsRequired(q, answers)
		}
		if required && !policy.Answered(answers, q.ID) {
			return false
		}
	}
	return true
}

// IsSectionAccessible reports whether the respondent may open section i
// while positioned on section current. Sections up to the current one are
// always open; a later one needs every section before it complete.
func IsSectionAccessible(i, current int, sections []model.FormSection, answers model.Answers, policy model.Policy) bool {
	if i < 0 || i >= len(sections) {
		return false
	}
	if i <= current {
		return true
	}
	for j := 0; j < i; j++ {
		if !IsSectionComplete(j, sections, answers, policy) {
			return false
		}
	}
	return true
}

// OverallProgress estimates completion in percent: questions of earlier
// sections plus the cursor position in the current one, over all questions.
func OverallProgress(section, question int, sections []model.FormSection, entries []Entry) float64 {
	total := len(entries)
	if total == 0 {
		return 0
	}
	done := 0
	for i := 0; i < section && i < len(sections); i++ {
		done += len(sections[i].Questions)
	}
	done += question

	progress := float64(done*100) / float64(total)
	switch {
	case progress < 0:
		return 0
	case progress > 100:
		return 100
	}
	return progress
}
