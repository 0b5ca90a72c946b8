// Package validation checks answers against the required flag of questions.
package validation

import "github.com/mbolis/quick-forms/model"

// ValidateOne fails only for a required question without an answer.
// Conditional visibility and rule escalation are not consulted.
func ValidateOne(q model.Question, answers model.Answers, policy model.Policy) bool {
	return !q.Required || policy.Answered(answers, q.ID)
}

type Result struct {
	ValidIDs   []string `json:"validIds"`
	InvalidIDs []string `json:"invalidIds"`
}

func (r Result) OK() bool {
	return len(r.InvalidIDs) == 0
}

// First returns the earliest offending question, the one to focus.
func (r Result) First() (string, bool) {
	if len(r.InvalidIDs) == 0 {
		return "", false
	}
	return r.InvalidIDs[0], true
}

// ValidateAll checks questions in order; InvalidIDs keeps that order.
// Hidden questions are checked like any other.
func ValidateAll(questions []model.Question, answers model.Answers, policy model.Policy) Result {
	var r Result
	for _, q := range questions {
		if ValidateOne(q, answers, policy) {
			r.ValidIDs = append(r.ValidIDs, q.ID)
		} else {
			r.InvalidIDs = append(r.InvalidIDs, q.ID)
		}
	}
	return r
}
