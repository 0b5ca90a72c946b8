package routes

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/hierarchy"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/metrics"
	"github.com/mbolis/quick-forms/model"
	"github.com/mbolis/quick-forms/navigator"
)

type sessionRequest struct {
	State   navigator.State   `json:"state"`
	Command navigator.Command `json:"command"`
}

type sessionResponse struct {
	State   navigator.State    `json:"state"`
	Effects []navigator.Effect `json:"effects"`
	View    navigator.View     `json:"view"`
}

func validCursor(form model.Form, c navigator.Cursor) bool {
	if c.Section < 0 || c.Section >= len(form.Sections) {
		return false
	}
	n := len(form.Sections[c.Section].Questions)
	return c.Question >= 0 && (c.Question < n || (n == 0 && c.Question == 0))
}

// knownAnswers drops answers to questions the form does not have.
func knownAnswers(form model.Form, answers model.Answers) model.Answers {
	known := model.Answers{}
	for _, q := range hierarchy.Questions(hierarchy.Flatten(form.Sections)) {
		if a, ok := answers[q.ID]; ok {
			known[q.ID] = a
		}
	}
	return known
}

// PublicSession applies one navigation command to a client-held session
// state. A submit command stores the response like PublicSubmitForm does.
// The state comes from the client, so it gets the same attachment checks.
func PublicSession(app app.App, guard inFlight) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, ok := publishedForm(w, r, app)
		if !ok {
			return
		}

		req := sessionRequest{}
		err := httpx.DecodeValid(r.Body, &req)
		if err != nil {
			httpx.LogBadRequest(w, r, "request.parse_body", err)
			return
		}
		if !validCursor(form, req.State.Cursor) {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "session.cursor", "cursor out of range")
			return
		}
		err = checkAttachments(form, req.State.Attachments)
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "session.attachment", "%s", err)
			return
		}
		req.State.Answers = knownAnswers(form, req.State.Answers)

		rw := responseWriter{app, guard, form, remoteIP(r)}
		machine := navigator.New(form, app.Policy(), navigator.SubmitterFunc(sessionSubmitter(rw)))

		state, effects := machine.Dispatch(r.Context(), req.State, req.Command)
		for _, e := range effects {
			metrics.NavigationEffect(string(e.Kind))
			switch e.Kind {
			case navigator.EffectSubmitted:
				metrics.Submission(metrics.ChannelSession, metrics.OutcomeStored)
			case navigator.EffectPersistenceFailed:
				metrics.Submission(metrics.ChannelSession, metrics.OutcomeFailed)
			}
		}
		if effects == nil {
			effects = []navigator.Effect{}
		}

		render.JSON(w, r, sessionResponse{
			State:   state,
			Effects: effects,
			View:    machine.View(state),
		})
	}
}
