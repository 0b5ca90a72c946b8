// Package navigator drives a respondent through a form: the section and
// question cursor, forward gating and the submit flow.
//
// The machine is a pure function of state and command. Step never performs
// I/O; Dispatch adds the single side effect, handing a valid submission to
// the Submitter.
package navigator

import (
	"context"

	"github.com/mbolis/quick-forms/hierarchy"
	"github.com/mbolis/quick-forms/logic"
	"github.com/mbolis/quick-forms/model"
	"github.com/mbolis/quick-forms/validation"
)

type Machine struct {
	sections  []model.FormSection
	entries   []hierarchy.Entry
	policy    model.Policy
	submitter Submitter
}

func New(form model.Form, policy model.Policy, submitter Submitter) *Machine {
	return &Machine{
		sections:  form.Sections,
		entries:   hierarchy.Flatten(form.Sections),
		policy:    policy,
		submitter: submitter,
	}
}

// Step applies cmd to s and returns the resulting state and effects.
// A submit that passes validation yields EffectSubmitRequested and leaves
// the phase alone; Dispatch completes it.
func (m *Machine) Step(s State, cmd Command) (State, []Effect) {
	s = s.clone()

	switch cmd.Kind {
	case CmdReset:
		return NewState(), nil
	case CmdStart:
		if s.Phase == PhaseCover {
			s.Phase = PhaseAnswering
		}
		return s, nil
	}

	if s.Phase != PhaseAnswering {
		return s, nil
	}

	switch cmd.Kind {
	case CmdNext:
		return m.next(s)
	case CmdPrev:
		return m.prev(s), nil
	case CmdGoToQuestion:
		if cmd.Index >= 0 && cmd.Index < len(m.questions(s.Cursor.Section)) {
			s.Cursor.Question = cmd.Index
		}
		return s, nil
	case CmdGoToSection:
		return m.goToSection(s, cmd.Index)
	case CmdSetAnswer:
		if m.known(cmd.QuestionID) {
			s.Answers[cmd.QuestionID] = cmd.Answer
			s.Errors = without(s.Errors, cmd.QuestionID)
		}
		return s, nil
	case CmdClearAnswer:
		delete(s.Answers, cmd.QuestionID)
		return s, nil
	case CmdSetAttachment:
		if q, ok := m.question(cmd.QuestionID); ok && q.AllowAttachments {
			if cmd.Reference == "" {
				delete(s.Attachments, cmd.QuestionID)
			} else {
				s.Attachments[cmd.QuestionID] = cmd.Reference
			}
		}
		return s, nil
	case CmdSubmit:
		return m.submit(s)
	}
	return s, nil
}

// Dispatch runs Step and, when it requests a submission, persists the
// response. A failed write leaves the session answering so it can be
// submitted again; nothing is retried here.
func (m *Machine) Dispatch(ctx context.Context, s State, cmd Command) (State, []Effect) {
	next, effects := m.Step(s, cmd)
	if !hasEffect(effects, EffectSubmitRequested) {
		return next, effects
	}

	if m.submitter == nil {
		return next, append(effects, Effect{Kind: EffectPersistenceFailed, Message: MsgSubmissionFailed})
	}
	err := m.submitter.Submit(ctx, next.Answers.Clone(), copyMap(next.Attachments))
	if err != nil {
		return next, append(effects, Effect{Kind: EffectPersistenceFailed, Message: MsgSubmissionFailed})
	}

	next.Phase = PhaseSubmitted
	next.Errors = nil
	return next, append(effects, Effect{Kind: EffectSubmitted})
}

func (m *Machine) next(s State) (State, []Effect) {
	questions := m.questions(s.Cursor.Section)

	if s.Cursor.Question < len(questions) {
		q := questions[s.Cursor.Question]
		if !validation.ValidateOne(q, s.Answers, m.policy) {
			s.Errors = []string{q.ID}
			return s, []Effect{{Kind: EffectValidationFailed, QuestionIDs: []string{q.ID}, Message: MsgRequiredMissing}}
		}
		s.Errors = without(s.Errors, q.ID)

		if cursor, ok := m.jump(s, q); ok {
			s.Cursor = cursor
			return s, nil
		}
	}

	if s.Cursor.Question < len(questions)-1 {
		s.Cursor.Question++
		return s, nil
	}

	missing := m.missingRequired(s.Cursor.Section, s.Answers)
	if len(missing) > 0 {
		_, qi, _ := hierarchy.Locate(m.entries, missing[0])
		s.Cursor.Question = qi
		s.Errors = missing
		return s, []Effect{{Kind: EffectValidationFailed, QuestionIDs: missing, Message: MsgRequiredMissing}}
	}

	if s.Cursor.Section < len(m.sections)-1 {
		s.Cursor = Cursor{Section: s.Cursor.Section + 1}
	}
	return s, nil
}

// jump resolves a jump_to rule of q into a cursor. Only forward jumps to
// existing questions are taken, and leaving the section needs it complete.
func (m *Machine) jump(s State, q model.Question) (Cursor, bool) {
	target, ok := logic.JumpTarget(q, s.Answers)
	if !ok {
		return Cursor{}, false
	}
	si, qi, ok := hierarchy.Locate(m.entries, target)
	if !ok {
		return Cursor{}, false
	}
	to := Cursor{Section: si, Question: qi}
	if m.position(to) <= m.position(s.Cursor) {
		return Cursor{}, false
	}
	if si != s.Cursor.Section && !m.completeThrough(s.Cursor.Section, s.Answers) {
		return Cursor{}, false
	}
	return to, true
}

func (m *Machine) prev(s State) State {
	switch {
	case s.Cursor.Question > 0:
		s.Cursor.Question--
	case s.Cursor.Section > 0:
		section := s.Cursor.Section - 1
		last := len(m.questions(section)) - 1
		if last < 0 {
			last = 0
		}
		s.Cursor = Cursor{Section: section, Question: last}
	}
	return s
}

func (m *Machine) goToSection(s State, target int) (State, []Effect) {
	if target < 0 || target >= len(m.sections) {
		return s, nil
	}
	if target > s.Cursor.Section && !m.completeThrough(s.Cursor.Section, s.Answers) {
		return s, []Effect{{Kind: EffectNavigationRejected, Message: MsgCompleteSection}}
	}
	s.Cursor = Cursor{Section: target}
	return s, nil
}

func (m *Machine) submit(s State) (State, []Effect) {
	result := validation.ValidateAll(hierarchy.Questions(m.entries), s.Answers, m.policy)
	if first, ok := result.First(); ok {
		si, qi, _ := hierarchy.Locate(m.entries, first)
		s.Cursor = Cursor{Section: si, Question: qi}
		s.Errors = result.InvalidIDs
		return s, []Effect{{Kind: EffectValidationFailed, QuestionIDs: result.InvalidIDs, Message: MsgRequiredMissing}}
	}
	s.Errors = nil
	return s, []Effect{{Kind: EffectSubmitRequested}}
}

// completeThrough reports whether sections 0..last are all complete.
func (m *Machine) completeThrough(last int, answers model.Answers) bool {
	for i := 0; i <= last && i < len(m.sections); i++ {
		if !hierarchy.IsSectionComplete(i, m.sections, answers, m.policy) {
			return false
		}
	}
	return true
}

// missingRequired lists the unanswered required questions of a section
// using the same notion of "required" as section completeness.
func (m *Machine) missingRequired(section int, answers model.Answers) (ids []string) {
	for _, q := range m.questions(section) {
		required := q.Required
		if m.policy.EscalatedRequired {
			required = logic.IsRequired(q, answers)
		}
		if required && !m.policy.Answered(answers, q.ID) {
			ids = append(ids, q.ID)
		}
	}
	return
}

func (m *Machine) questions(section int) []model.Question {
	if section < 0 || section >= len(m.sections) {
		return nil
	}
	return m.sections[section].Questions
}

func (m *Machine) question(id string) (model.Question, bool) {
	for _, e := range m.entries {
		if e.Question.ID == id {
			return e.Question, true
		}
	}
	return model.Question{}, false
}

func (m *Machine) known(id string) bool {
	_, ok := m.question(id)
	return ok
}

func (m *Machine) position(c Cursor) int {
	pos := c.Question
	for i := 0; i < c.Section && i < len(m.sections); i++ {
		pos += len(m.sections[i].Questions)
	}
	return pos
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func hasEffect(effects []Effect, kind EffectKind) bool {
	for _, e := range effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
