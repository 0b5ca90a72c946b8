package navigator

import (
	"github.com/mbolis/quick-forms/hierarchy"
	"github.com/mbolis/quick-forms/logic"
	"github.com/mbolis/quick-forms/model"
)

// QuestionView is what a renderer needs to draw the current question.
type QuestionView struct {
	ID               string             `json:"id"`
	SectionID        string             `json:"sectionId"`
	Type             model.QuestionType `json:"type"`
	Title            string             `json:"title"`
	Options          []string           `json:"options,omitempty"`
	Visible          bool               `json:"visible"`
	Required         bool               `json:"required"`
	HasError         bool               `json:"hasError"`
	Value            *model.Answer      `json:"value,omitempty"`
	AllowAttachments bool               `json:"allowAttachments"`
	Attachment       string             `json:"attachment,omitempty"`
	RatingScale      int                `json:"ratingScale,omitempty"`
	RatingIcon       string             `json:"ratingIcon,omitempty"`
	ScoreConfig      *model.ScoreConfig `json:"scoreConfig,omitempty"`
}

type SectionView struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Questions  int    `json:"questions"`
	Visible    bool   `json:"visible"`
	Complete   bool   `json:"complete"`
	Accessible bool   `json:"accessible"`
}

type View struct {
	Phase          Phase         `json:"phase"`
	Cursor         Cursor        `json:"cursor"`
	Question       *QuestionView `json:"question,omitempty"`
	Sections       []SectionView `json:"sections"`
	Progress       float64       `json:"progress"`
	CanGoBack      bool          `json:"canGoBack"`
	IsLastQuestion bool          `json:"isLastQuestion"`
	Errors         []string      `json:"errors,omitempty"`
}

// View resolves the rendering contract for s.
func (m *Machine) View(s State) View {
	v := View{
		Phase:     s.Phase,
		Cursor:    s.Cursor,
		Progress:  hierarchy.OverallProgress(s.Cursor.Section, s.Cursor.Question, m.sections, m.entries),
		CanGoBack: s.Cursor.Section > 0 || s.Cursor.Question > 0,
		Errors:    s.Errors,
		Sections:  make([]SectionView, len(m.sections)),
	}
	if v.Phase == "" {
		v.Phase = PhaseCover
	}

	for i, sec := range m.sections {
		v.Sections[i] = SectionView{
			ID:         sec.ID,
			Title:      sec.Title,
			Questions:  len(sec.Questions),
			Visible:    logic.IsSectionVisible(sec, s.Answers),
			Complete:   hierarchy.IsSectionComplete(i, m.sections, s.Answers, m.policy),
			Accessible: hierarchy.IsSectionAccessible(i, s.Cursor.Section, m.sections, s.Answers, m.policy),
		}
	}

	questions := m.questions(s.Cursor.Section)
	v.IsLastQuestion = s.Cursor.Section == len(m.sections)-1 && s.Cursor.Question >= len(questions)-1
	if s.Cursor.Question < 0 || s.Cursor.Question >= len(questions) {
		return v
	}

	q := questions[s.Cursor.Question]
	qv := &QuestionView{
		ID:               q.ID,
		SectionID:        m.sections[s.Cursor.Section].ID,
		Type:             q.Type,
		Title:            q.Title,
		Visible:          logic.IsQuestionVisible(q, s.Answers),
		Required:         logic.IsRequired(q, s.Answers),
		HasError:         s.HasError(q.ID),
		AllowAttachments: q.AllowAttachments,
		Attachment:       s.Attachments[q.ID],
	}
	if q.Type.HasOptions() {
		qv.Options = q.Options
	}
	if q.Type == model.TypeRating {
		qv.RatingScale = q.RatingScale
		qv.RatingIcon = q.RatingIcon
	}
	if q.Type == model.TypeScore {
		qv.ScoreConfig = q.ScoreConfig
	}
	if a, ok := s.Answers[q.ID]; ok {
		qv.Value = &a
	}
	v.Question = qv
	return v
}
