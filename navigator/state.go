package navigator

import (
	"context"

	"github.com/mbolis/quick-forms/model"
)

type Phase string

const (
	PhaseCover     Phase = "cover"
	PhaseAnswering Phase = "answering"
	PhaseSubmitted Phase = "submitted"
)

type Cursor struct {
	Section  int `json:"section"`
	Question int `json:"question"`
}

// State is everything a filling session owns. Transitions never modify the
// State they are given.
type State struct {
	Phase       Phase             `json:"phase"`
	Cursor      Cursor            `json:"cursor"`
	Answers     model.Answers     `json:"answers"`
	Attachments map[string]string `json:"attachments"`
	Errors      []string          `json:"errors"`
}

func NewState() State {
	return State{
		Phase:       PhaseCover,
		Answers:     model.Answers{},
		Attachments: map[string]string{},
	}
}

func (s State) clone() State {
	out := s
	out.Answers = s.Answers.Clone()
	out.Attachments = make(map[string]string, len(s.Attachments))
	for k, v := range s.Attachments {
		out.Attachments[k] = v
	}
	if s.Errors != nil {
		out.Errors = append([]string(nil), s.Errors...)
	}
	if out.Phase == "" {
		out.Phase = PhaseCover
	}
	return out
}

func (s State) HasError(questionID string) bool {
	for _, id := range s.Errors {
		if id == questionID {
			return true
		}
	}
	return false
}

type CommandKind string

const (
	CmdStart         CommandKind = "start"
	CmdNext          CommandKind = "next"
	CmdPrev          CommandKind = "prev"
	CmdGoToQuestion  CommandKind = "go_to_question"
	CmdGoToSection   CommandKind = "go_to_section"
	CmdSetAnswer     CommandKind = "set_answer"
	CmdClearAnswer   CommandKind = "clear_answer"
	CmdSetAttachment CommandKind = "set_attachment"
	CmdSubmit        CommandKind = "submit"
	CmdReset         CommandKind = "reset"
)

type Command struct {
	Kind       CommandKind  `json:"kind" validate:"oneof=start next prev go_to_question go_to_section set_answer clear_answer set_attachment submit reset"`
	Index      int          `json:"index,omitempty"`
	QuestionID string       `json:"questionId,omitempty"`
	Answer     model.Answer `json:"answer"`
	Reference  string       `json:"reference,omitempty"`
}

type EffectKind string

const (
	EffectValidationFailed   EffectKind = "validation_failed"
	EffectNavigationRejected EffectKind = "navigation_rejected"
	EffectSubmitRequested    EffectKind = "submit_requested"
	EffectSubmitted          EffectKind = "submitted"
	EffectPersistenceFailed  EffectKind = "persistence_failed"
)

// Effect is something the caller should surface: a notice, highlighted
// questions or the outcome of a submission.
type Effect struct {
	Kind        EffectKind `json:"kind"`
	QuestionIDs []string   `json:"questionIds,omitempty"`
	Message     string     `json:"message,omitempty"`
}

const (
	MsgCompleteSection  = "Please complete the current section before moving on."
	MsgRequiredMissing  = "Please answer all required questions."
	MsgSubmissionFailed = "Your response could not be saved. Please try again."
)

//go:generate mockgen -destination=mock/submitter.go -package=mock . Submitter

// Submitter persists a finished response.
type Submitter interface {
	Submit(ctx context.Context, answers model.Answers, attachments map[string]string) error
}

type SubmitterFunc func(ctx context.Context, answers model.Answers, attachments map[string]string) error

func (f SubmitterFunc) Submit(ctx context.Context, answers model.Answers, attachments map[string]string) error {
	return f(ctx, answers, attachments)
}
