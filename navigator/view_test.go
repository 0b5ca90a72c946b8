package navigator

import (
	"testing"

	"github.com/mbolis/quick-forms/model"
	"github.com/stretchr/testify/require"
)

func TestView(t *testing.T) {
	form := model.Form{Sections: []model.FormSection{
		{ID: "s1", Title: "About you", Questions: []model.Question{
			{ID: "q1", Type: model.TypeRadio, Title: "Student?", Options: []string{"yes", "no"}, Required: true},
			{ID: "q2", Type: model.TypeText, Title: "School", ConditionalLogic: []model.Rule{
				{SourceQuestionID: "q1", Condition: model.Equals, Value: model.StringValue("no"), Action: model.ActionHide},
				{SourceQuestionID: "q1", Condition: model.Equals, Value: model.StringValue("yes"), Action: model.ActionRequired},
			}},
		}},
		{ID: "s2", Title: "Rating", ConditionalLogic: []model.Rule{
			{SourceQuestionID: "q1", Condition: model.Equals, Value: model.StringValue("no"), Action: model.ActionHide},
		}, Questions: []model.Question{
			{ID: "q3", Type: model.TypeRating, RatingScale: 5, RatingIcon: "star", Options: []string{"ignored"}},
		}},
	}}
	m := New(form, model.Policy{}, nil)

	t.Run(`cover`, func(t *testing.T) {
		v := m.View(NewState())
		require.Equal(t, PhaseCover, v.Phase)
		require.False(t, v.CanGoBack)
		require.Equal(t, 0.0, v.Progress)
		require.Len(t, v.Sections, 2)
		require.True(t, v.Sections[0].Accessible)
		require.False(t, v.Sections[1].Accessible)
	})

	t.Run(`current question`, func(t *testing.T) {
		s := answering(m)
		s, _ = m.Step(s, Command{Kind: CmdNext})

		v := m.View(s)
		require.Equal(t, "q1", v.Question.ID)
		require.Equal(t, "s1", v.Question.SectionID)
		require.True(t, v.Question.Required)
		require.True(t, v.Question.HasError)
		require.Nil(t, v.Question.Value)
		require.Equal(t, []string{"yes", "no"}, v.Question.Options)
	})

	t.Run(`effective flags follow answers`, func(t *testing.T) {
		s := answering(m)
		s = set(t, m, s, "q1", model.Text("yes"))
		s, _ = m.Step(s, Command{Kind: CmdNext})

		v := m.View(s)
		require.Equal(t, "q2", v.Question.ID)
		require.True(t, v.Question.Visible)
		require.True(t, v.Question.Required)
		require.InDelta(t, 33.33, v.Progress, 0.01)
		require.True(t, v.CanGoBack)
		require.True(t, v.Sections[1].Accessible)
		require.True(t, v.Sections[1].Visible)

		s = set(t, m, s, "q1", model.Text("no"))
		v = m.View(s)
		require.False(t, v.Question.Visible)
		require.False(t, v.Question.Required)
		require.False(t, v.Sections[1].Visible)
	})

	t.Run(`rating fields only`, func(t *testing.T) {
		s := answering(m)
		s = set(t, m, s, "q1", model.Text("yes"))
		s = set(t, m, s, "q3", model.Number(4))
		s, _ = m.Step(s, Command{Kind: CmdGoToSection, Index: 1})

		v := m.View(s)
		require.Equal(t, "q3", v.Question.ID)
		require.Nil(t, v.Question.Options)
		require.Equal(t, 5, v.Question.RatingScale)
		require.Equal(t, "star", v.Question.RatingIcon)
		require.Equal(t, model.Number(4), *v.Question.Value)
		require.True(t, v.IsLastQuestion)
	})
}
