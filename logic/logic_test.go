package logic

import (
	"testing"

	"github.com/mbolis/quick-forms/model"
	"github.com/stretchr/testify/require"
)

func rule(source string, cond model.Condition, value string, action model.Action) model.Rule {
	return model.Rule{ID: source + "-" + string(action), SourceQuestionID: source, Condition: cond, Value: model.StringValue(value), Action: action}
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name      string
		condition model.Condition
		actual    model.Answer
		present   bool
		target    model.RuleValue
		want      bool
	}{
		{"equals ignores case", model.Equals, model.Text("Yes"), true, model.StringValue("yES"), true},
		{"equals mismatch", model.Equals, model.Text("no"), true, model.StringValue("yes"), false},
		{"not equals", model.NotEquals, model.Text("no"), true, model.StringValue("yes"), true},
		{"missing equals empty", model.Equals, model.Answer{}, false, model.StringValue(""), true},
		{"missing not equals", model.NotEquals, model.Answer{}, false, model.StringValue("yes"), true},
		{"contains", model.Contains, model.Text("Hello World"), true, model.StringValue("world"), true},
		{"contains in checkbox", model.Contains, model.Choices("red", "Blue"), true, model.StringValue("blue"), true},
		{"not contains", model.NotContains, model.Text("abc"), true, model.StringValue("z"), true},
		{"greater than", model.GreaterThan, model.Number(7), true, model.NumberValue(5), true},
		{"greater than text number", model.GreaterThan, model.Text(" 7.5 "), true, model.StringValue("7"), true},
		{"less than", model.LessThan, model.Number(3), true, model.NumberValue(5), true},
		{"less than equal values", model.LessThan, model.Number(5), true, model.NumberValue(5), false},
		{"greater than non numeric answer", model.GreaterThan, model.Text("abc"), true, model.NumberValue(1), false},
		{"less than non numeric target", model.LessThan, model.Number(1), true, model.StringValue("abc"), false},
		{"greater than missing", model.GreaterThan, model.Answer{}, false, model.NumberValue(-1), false},
		{"greater than number with unit", model.GreaterThan, model.Text("12 years"), true, model.NumberValue(10), false},
		{"less than number with unit target", model.LessThan, model.Number(1), true, model.StringValue("5kg"), false},
		{"greater than NaN", model.GreaterThan, model.Text("NaN"), true, model.NumberValue(1), false},
		{"less than infinity", model.LessThan, model.Number(1), true, model.StringValue("Inf"), false},
		{"greater than exponent", model.GreaterThan, model.Text("1e3"), true, model.NumberValue(999), true},
		{"unknown condition", model.Condition("matches"), model.Text("a"), true, model.StringValue("a"), false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, Evaluate(c.condition, c.actual, c.present, c.target))
		})
	}
}

func TestIsVisible(t *testing.T) {
	t.Run(`no rules means visible`, func(t *testing.T) {
		require.True(t, IsQuestionVisible(model.Question{ID: "q"}, model.Answers{"x": model.Text("y")}))
		require.True(t, IsQuestionVisible(model.Question{ID: "q"}, nil))
	})

	t.Run(`no matching rule means visible`, func(t *testing.T) {
		q := model.Question{ID: "q2", ConditionalLogic: []model.Rule{
			rule("q1", model.Equals, "yes", model.ActionHide),
			rule("q1", model.Equals, "maybe", model.ActionShow),
		}}
		require.True(t, IsQuestionVisible(q, model.Answers{"q1": model.Text("no")}))
	})

	t.Run(`first match wins`, func(t *testing.T) {
		q := model.Question{ID: "q2", ConditionalLogic: []model.Rule{
			rule("q1", model.Equals, "yes", model.ActionShow),
			rule("q1", model.Contains, "y", model.ActionHide),
		}}
		require.True(t, IsQuestionVisible(q, model.Answers{"q1": model.Text("yes")}))

		q.ConditionalLogic[0], q.ConditionalLogic[1] = q.ConditionalLogic[1], q.ConditionalLogic[0]
		require.False(t, IsQuestionVisible(q, model.Answers{"q1": model.Text("yes")}))
	})

	t.Run(`show rule on unanswered source stays visible`, func(t *testing.T) {
		q := model.Question{ID: "q2", ConditionalLogic: []model.Rule{rule("q1", model.Equals, "yes", model.ActionShow)}}
		require.True(t, IsQuestionVisible(q, model.Answers{}))
	})

	t.Run(`required and jump rules do not affect visibility`, func(t *testing.T) {
		q := model.Question{ID: "q2", ConditionalLogic: []model.Rule{
			rule("q1", model.Equals, "yes", model.ActionRequired),
			rule("q1", model.Equals, "yes", model.ActionJumpTo),
			rule("q1", model.Equals, "yes", model.ActionHide),
		}}
		require.False(t, IsQuestionVisible(q, model.Answers{"q1": model.Text("yes")}))
	})

	t.Run(`dangling source reads as empty`, func(t *testing.T) {
		q := model.Question{ID: "q2", ConditionalLogic: []model.Rule{rule("ghost", model.Equals, "", model.ActionHide)}}
		require.False(t, IsQuestionVisible(q, model.Answers{}))
	})

	t.Run(`sections`, func(t *testing.T) {
		s := model.FormSection{ID: "s2", ConditionalLogic: []model.Rule{rule("q1", model.Equals, "skip", model.ActionHide)}}
		require.False(t, IsSectionVisible(s, model.Answers{"q1": model.Text("SKIP")}))
		require.True(t, IsSectionVisible(s, model.Answers{"q1": model.Text("go")}))
	})
}

func TestIsRequired(t *testing.T) {
	t.Run(`base flag`, func(t *testing.T) {
		require.True(t, IsRequired(model.Question{ID: "q", Required: true}, nil))
		require.False(t, IsRequired(model.Question{ID: "q"}, nil))
	})

	t.Run(`any matching rule escalates`, func(t *testing.T) {
		q := model.Question{ID: "q3", ConditionalLogic: []model.Rule{
			rule("q1", model.Equals, "yes", model.ActionRequired),
			rule("q2", model.Equals, "yes", model.ActionRequired),
		}}
		require.True(t, IsRequired(q, model.Answers{"q1": model.Text("no"), "q2": model.Text("yes")}))
		require.False(t, IsRequired(q, model.Answers{"q1": model.Text("no"), "q2": model.Text("no")}))
	})

	t.Run(`show rules do not escalate`, func(t *testing.T) {
		q := model.Question{ID: "q3", ConditionalLogic: []model.Rule{rule("q1", model.Equals, "yes", model.ActionShow)}}
		require.False(t, IsRequired(q, model.Answers{"q1": model.Text("yes")}))
	})
}

func TestJumpTarget(t *testing.T) {
	q := model.Question{ID: "q1", ConditionalLogic: []model.Rule{
		{SourceQuestionID: "q1", Condition: model.Equals, Value: model.StringValue("a"), Action: model.ActionJumpTo, TargetQuestionID: "q4"},
		{SourceQuestionID: "q1", Condition: model.NotEquals, Value: model.StringValue("a"), Action: model.ActionJumpTo, TargetQuestionID: "q5"},
		{SourceQuestionID: "q1", Condition: model.Equals, Value: model.StringValue("a"), Action: model.ActionJumpTo, TargetQuestionID: "q6"},
	}}

	target, ok := JumpTarget(q, model.Answers{"q1": model.Text("A")})
	require.True(t, ok)
	require.Equal(t, "q4", target)

	target, ok = JumpTarget(q, model.Answers{"q1": model.Text("b")})
	require.True(t, ok)
	require.Equal(t, "q5", target)

	_, ok = JumpTarget(model.Question{ID: "q"}, nil)
	require.False(t, ok)
}

func TestLint(t *testing.T) {
	t.Run(`clean form`, func(t *testing.T) {
		form := model.Form{Sections: []model.FormSection{{
			ID: "s1",
			Questions: []model.Question{
				{ID: "q1"},
				{ID: "q2", ConditionalLogic: []model.Rule{rule("q1", model.Equals, "yes", model.ActionShow)}},
				{ID: "q3"},
			},
		}}}
		form.Sections[0].Questions[0].ConditionalLogic = []model.Rule{{
			ID: "j", SourceQuestionID: "q2", Condition: model.Equals, Action: model.ActionJumpTo, TargetQuestionID: "q3",
		}}
		require.NoError(t, Lint(form))
		require.Nil(t, Issues(nil))
	})

	t.Run(`reports every problem`, func(t *testing.T) {
		form := model.Form{Sections: []model.FormSection{
			{
				ID: "s1",
				Questions: []model.Question{
					{ID: "q1", ConditionalLogic: []model.Rule{rule("q2", model.Equals, "x", model.ActionHide)}},
					{ID: "q2", ConditionalLogic: []model.Rule{
						rule("q1", model.Equals, "x", model.ActionRequired),
						rule("q2", model.Equals, "x", model.ActionShow),
						{ID: "back", SourceQuestionID: "q1", Action: model.ActionJumpTo, TargetQuestionID: "q1"},
						{ID: "none", SourceQuestionID: "q1", Action: model.ActionJumpTo},
					}},
				},
			},
			{
				ID:               "s2",
				ConditionalLogic: []model.Rule{rule("ghost", model.Equals, "x", model.ActionRequired)},
				Questions: []model.Question{
					{ID: "q3", ConditionalLogic: []model.Rule{{ID: "far", SourceQuestionID: "q1", Action: model.ActionJumpTo, TargetQuestionID: "nowhere"}}},
				},
			},
		}}

		issues := Issues(Lint(form))
		require.Len(t, issues, 7)
		require.Contains(t, issues, `question "q2" rule "q2-show": refers to itself`)
		require.Contains(t, issues, `question "q2" rule "back": jumps backward to "q1"`)
		require.Contains(t, issues, `question "q2" rule "none": jump_to without target`)
		require.Contains(t, issues, `question "q3" rule "far": unknown jump target "nowhere"`)
		require.Contains(t, issues, `section "s2" rule "ghost-required": unknown source question "ghost"`)
		require.Contains(t, issues, `section "s2" rule "ghost-required": action "required" has no effect on sections`)
		require.Contains(t, issues, `rule cycle: [q1 q2 q1]`)
	})
}
