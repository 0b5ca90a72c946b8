package model

import "github.com/gofrs/uuid"

// NewID returns a fresh opaque identifier.
func NewID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// AssignIDs fills in missing ids on sections, questions and rules.
func (f *Form) AssignIDs() {
	for i := range f.Sections {
		s := &f.Sections[i]
		if s.ID == "" {
			s.ID = NewID()
		}
		assignRuleIDs(s.ConditionalLogic)
		for j := range s.Questions {
			q := &s.Questions[j]
			if q.ID == "" {
				q.ID = NewID()
			}
			assignRuleIDs(q.ConditionalLogic)
		}
	}
}

func assignRuleIDs(rules []Rule) {
	for i := range rules {
		if rules[i].ID == "" {
			rules[i].ID = NewID()
		}
	}
}
