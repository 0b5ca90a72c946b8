// Package logic evaluates the conditional rules attached to questions and
// sections. Everything here is a pure function of the form and the answers.
package logic

import (
	"math"
	"strconv"
	"strings"

	"github.com/mbolis/quick-forms/model"
)

// Evaluate tests one rule condition against a stored answer. A missing
// answer compares as the empty string. Comparisons are case-insensitive;
// greater_than and less_than are false unless both sides parse as numbers.
// Unknown conditions never hold.
func Evaluate(condition model.Condition, actual model.Answer, present bool, target model.RuleValue) bool {
	value := ""
	if present {
		value = strings.ToLower(actual.String())
	}
	want := strings.ToLower(target.String())

	switch condition {
	case model.Equals:
		return value == want
	case model.NotEquals:
		return value != want
	case model.Contains:
		return strings.Contains(value, want)
	case model.NotContains:
		return !strings.Contains(value, want)
	case model.GreaterThan, model.LessThan:
		a, ok := parseNumber(value)
		if !ok {
			return false
		}
		b, ok := parseNumber(want)
		if !ok {
			return false
		}
		if condition == model.GreaterThan {
			return a > b
		}
		return a < b
	default:
		return false
	}
}

// Holds evaluates rule against the answer of its source question.
func Holds(rule model.Rule, answers model.Answers) bool {
	actual, ok := answers[rule.SourceQuestionID]
	return Evaluate(rule.Condition, actual, ok, rule.Value)
}

func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
