package logic

import "github.com/mbolis/quick-forms/model"

// IsVisible resolves show/hide rules in two phases: the first rule whose
// condition holds decides, and when none holds the owner stays visible.
//
// Watch out: under the visible default a "show" rule only matters when it
// sits before a "hide" rule that would also match. A lone "show if Q1 is
// yes" leaves the question visible while Q1 is unanswered. Rule order is
// part of the form design, so it is not reordered here.
func IsVisible(rules []model.Rule, answers model.Answers) bool {
	for _, rule := range rules {
		if rule.Action != model.ActionShow && rule.Action != model.ActionHide {
			continue
		}
		if Holds(rule, answers) {
			return rule.Action == model.ActionShow
		}
	}
	return true
}

func IsQuestionVisible(q model.Question, answers model.Answers) bool {
	return IsVisible(q.ConditionalLogic, answers)
}

// IsSectionVisible applies the show/hide rules of a section. Other actions
// on sections are ignored.
func IsSectionVisible(s model.FormSection, answers model.Answers) bool {
	return IsVisible(s.ConditionalLogic, answers)
}

// IsRequired reports whether q must be answered. Unlike visibility every
// "required" rule is checked: any matching one escalates the question.
func IsRequired(q model.Question, answers model.Answers) bool {
	if q.Required {
		return true
	}
	required := false
	for _, rule := range q.ConditionalLogic {
		if rule.Action == model.ActionRequired && Holds(rule, answers) {
			required = true
		}
	}
	return required
}

// JumpTarget returns the destination of the first jump_to rule of q whose
// condition holds. The caller decides whether the jump is taken.
func JumpTarget(q model.Question, answers model.Answers) (string, bool) {
	for _, rule := range q.ConditionalLogic {
		if rule.Action != model.ActionJumpTo || rule.TargetQuestionID == "" {
			continue
		}
		if Holds(rule, answers) {
			return rule.TargetQuestionID, true
		}
	}
	return "", false
}
