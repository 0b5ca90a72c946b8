package logic

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/mbolis/quick-forms/model"
)

// Lint checks the rule graph of a form for dangling references, backward
// jumps and dependency cycles. Navigation never calls it: a broken rule
// just evaluates against a missing answer.
func Lint(form model.Form) error {
	var result *multierror.Error

	position := map[string]int{}
	n := 0
	for _, s := range form.Sections {
		for _, q := range s.Questions {
			if _, dup := position[q.ID]; dup {
				result = multierror.Append(result, fmt.Errorf("question %q: duplicate id", q.ID))
			}
			position[q.ID] = n
			n++
		}
	}

	deps := map[string][]string{}
	for _, s := range form.Sections {
		for _, rule := range s.ConditionalLogic {
			if _, ok := position[rule.SourceQuestionID]; !ok {
				result = multierror.Append(result, fmt.Errorf("section %q rule %q: unknown source question %q", s.ID, rule.ID, rule.SourceQuestionID))
			}
			if rule.Action != model.ActionShow && rule.Action != model.ActionHide {
				result = multierror.Append(result, fmt.Errorf("section %q rule %q: action %q has no effect on sections", s.ID, rule.ID, rule.Action))
			}
		}

		for _, q := range s.Questions {
			for _, rule := range q.ConditionalLogic {
				if rule.SourceQuestionID == q.ID {
					result = multierror.Append(result, fmt.Errorf("question %q rule %q: refers to itself", q.ID, rule.ID))
				} else if _, ok := position[rule.SourceQuestionID]; !ok {
					result = multierror.Append(result, fmt.Errorf("question %q rule %q: unknown source question %q", q.ID, rule.ID, rule.SourceQuestionID))
				}

				if rule.Action != model.ActionJumpTo {
					deps[q.ID] = append(deps[q.ID], rule.SourceQuestionID)
					continue
				}
				target, ok := position[rule.TargetQuestionID]
				switch {
				case rule.TargetQuestionID == "":
					result = multierror.Append(result, fmt.Errorf("question %q rule %q: jump_to without target", q.ID, rule.ID))
				case !ok:
					result = multierror.Append(result, fmt.Errorf("question %q rule %q: unknown jump target %q", q.ID, rule.ID, rule.TargetQuestionID))
				case target <= position[q.ID]:
					result = multierror.Append(result, fmt.Errorf("question %q rule %q: jumps backward to %q", q.ID, rule.ID, rule.TargetQuestionID))
				}
			}
		}
	}

	for _, cycle := range findCycles(form, deps) {
		result = multierror.Append(result, fmt.Errorf("rule cycle: %v", cycle))
	}

	return result.ErrorOrNil()
}

// Issues flattens a Lint error into one message per finding.
func Issues(err error) []string {
	if err == nil {
		return nil
	}
	merr, ok := err.(*multierror.Error)
	if !ok {
		return []string{err.Error()}
	}
	issues := make([]string, len(merr.Errors))
	for i, e := range merr.Errors {
		issues[i] = e.Error()
	}
	return issues
}

func findCycles(form model.Form, deps map[string][]string) (cycles [][]string) {
	const (
		unvisited = iota
		active
		done
	)
	state := map[string]int{}
	var stack []string

	var visit func(id string)
	visit = func(id string) {
		state[id] = active
		stack = append(stack, id)
		for _, dep := range deps[id] {
			if dep == id {
				continue // reported as self reference
			}
			switch state[dep] {
			case unvisited:
				visit(dep)
			case active:
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == dep {
						cycle := append([]string(nil), stack[i:]...)
						cycles = append(cycles, append(cycle, dep))
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
	}

	for _, s := range form.Sections {
		for _, q := range s.Questions {
			if state[q.ID] == unvisited {
				visit(q.ID)
			}
		}
	}
	return
}
