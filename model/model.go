package model

import "time"

type QuestionType string

const (
	TypeText     QuestionType = "text"
	TypeTextarea QuestionType = "textarea"
	TypeSelect   QuestionType = "select"
	TypeRadio    QuestionType = "radio"
	TypeCheckbox QuestionType = "checkbox"
	TypeRating   QuestionType = "rating"
	TypeScore    QuestionType = "score"
)

// HasOptions reports whether questions of this type carry an option list.
func (t QuestionType) HasOptions() bool {
	return t == TypeSelect || t == TypeRadio || t == TypeCheckbox
}

// IsNumeric reports whether answers to this type are stored as numbers.
func (t QuestionType) IsNumeric() bool {
	return t == TypeRating || t == TypeScore
}

type Condition string

const (
	Equals      Condition = "equals"
	NotEquals   Condition = "not_equals"
	Contains    Condition = "contains"
	NotContains Condition = "not_contains"
	GreaterThan Condition = "greater_than"
	LessThan    Condition = "less_than"
)

type Action string

const (
	ActionShow     Action = "show"
	ActionHide     Action = "hide"
	ActionJumpTo   Action = "jump_to"
	ActionRequired Action = "required"
)

type Form struct {
	ID          string        `json:"id,omitempty"`
	Version     int           `json:"version,omitempty"`
	Title       string        `json:"title" validate:"required"`
	Description string        `json:"description"`
	Cover       Cover         `json:"cover"`
	Sections    []FormSection `json:"sections" validate:"min=1,dive"`
	Published   bool          `json:"published"`
	Owner       string        `json:"owner,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type Cover struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ButtonText  string `json:"buttonText"`
	CoverImage  string `json:"coverImage,omitempty"`
	Alignment   string `json:"alignment,omitempty" validate:"omitempty,oneof=left center right"`
}

type FormSection struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Questions        []Question `json:"questions" validate:"dive"`
	IsOpen           bool       `json:"isOpen"`
	ConditionalLogic []Rule     `json:"conditionalLogic,omitempty" validate:"dive"`
}

type Question struct {
	ID               string       `json:"id"`
	Type             QuestionType `json:"type" validate:"oneof=text textarea select radio checkbox rating score"`
	Title            string       `json:"title"`
	Options          []string     `json:"options,omitempty"`
	Required         bool         `json:"required"`
	AllowAttachments bool         `json:"allowAttachments"`
	RatingScale      int          `json:"ratingScale,omitempty" validate:"gte=0"`
	RatingIcon       string       `json:"ratingIcon,omitempty"`
	ScoreConfig      *ScoreConfig `json:"scoreConfig,omitempty"`
	ConditionalLogic []Rule       `json:"conditionalLogic,omitempty" validate:"dive"`
}

type ScoreConfig struct {
	MinScore   int    `json:"minScore"`
	MaxScore   int    `json:"maxScore" validate:"gtefield=MinScore"`
	LeftLabel  string `json:"leftLabel"`
	RightLabel string `json:"rightLabel"`
}

// Rule is one if/then edge: when the answer to SourceQuestionID satisfies
// Condition against Value, Action applies to the rule's owner.
type Rule struct {
	ID               string    `json:"id"`
	SourceQuestionID string    `json:"sourceQuestionId" validate:"required"`
	Condition        Condition `json:"condition" validate:"oneof=equals not_equals contains not_contains greater_than less_than"`
	Value            RuleValue `json:"value"`
	Action           Action    `json:"action" validate:"oneof=show hide jump_to required"`
	TargetQuestionID string    `json:"targetQuestionId,omitempty"`
}

type Response struct {
	ID          string            `json:"id,omitempty"`
	FormID      string            `json:"formId,omitempty"`
	Answers     []ResponseAnswer  `json:"answers" validate:"dive"`
	Attachments map[string]string `json:"attachments,omitempty"`
	SubmittedAt time.Time         `json:"submittedAt"`
	IP          string            `json:"ip,omitempty"`
}

type ResponseAnswer struct {
	QuestionID string `json:"questionId" validate:"required"`
	Answer     Answer `json:"answer"`
}

// AnswerMap indexes the response answers by question id.
func (r Response) AnswerMap() Answers {
	answers := make(Answers, len(r.Answers))
	for _, a := range r.Answers {
		answers[a.QuestionID] = a.Answer
	}
	return answers
}
