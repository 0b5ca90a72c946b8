package routes

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/hierarchy"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/metrics"
	"github.com/mbolis/quick-forms/model"
	"github.com/mbolis/quick-forms/validation"
)

// publishedForm loads a form respondents may see. Drafts read as missing.
func publishedForm(w http.ResponseWriter, r *http.Request, app app.App) (model.Form, bool) {
	formId := chi.URLParam(r, "id")

	form, err := app.GetForm(r.Context(), formId)
	if err != nil {
		storeError(w, "get_form", formId, err)
		return form, false
	}
	if !form.Published {
		httpx.LogNotFound(w, "get_form.unpublished", formId)
		return form, false
	}
	return form, true
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func PublicGetFormById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, ok := publishedForm(w, r, app)
		if !ok {
			return
		}
		form.Owner = ""

		render.JSON(w, r, form)
	}
}

type submission struct {
	Answers     []model.ResponseAnswer `json:"answers" validate:"dive"`
	Attachments map[string]string      `json:"attachments"`
}

func PublicSubmitForm(app app.App, guard inFlight) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, ok := publishedForm(w, r, app)
		if !ok {
			return
		}

		sub := submission{}
		err := httpx.DecodeValid(r.Body, &sub)
		if err != nil {
			httpx.LogBadRequest(w, r, "request.parse_body", err)
			return
		}

		questions := hierarchy.Questions(hierarchy.Flatten(form.Sections))
		byID := make(map[string]model.Question, len(questions))
		for _, q := range questions {
			byID[q.ID] = q
		}

		answers := model.Answers{}
		for _, a := range sub.Answers {
			if _, known := byID[a.QuestionID]; known {
				answers[a.QuestionID] = a.Answer
			}
		}
		err = checkAttachments(form, sub.Attachments)
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "submit.attachment", "%s", err)
			return
		}

		result := validation.ValidateAll(questions, answers, app.Policy())
		if !result.OK() {
			metrics.Submission(metrics.ChannelDirect, metrics.OutcomeInvalid)
			first, _ := result.First()
			httpx.LogJSON(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "submit.validation", map[string]any{
				"invalidIds": result.InvalidIDs,
				"first":      first,
			})
			return
		}

		id, err := responseWriter{app, guard, form, remoteIP(r)}.write(r.Context(), answers, sub.Attachments)
		if err != nil {
			metrics.Submission(metrics.ChannelDirect, metrics.OutcomeFailed)
			switch {
			case errors.Is(err, errBadAttachment), errors.Is(err, errAttachmentNotAllowed):
				httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "submit.attachment", "%s", err)
				return
			case errors.Is(err, errInFlight):
				httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "submit.in_flight")
				return
			case errors.Is(err, errAlreadyAnswered):
				httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "submit.already_answered")
				return
			}
			httpx.LogInternalError(w, "db.insert_response", err)
			return
		}
		metrics.Submission(metrics.ChannelDirect, metrics.OutcomeStored)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": id,
		})
	}
}

// sessionSubmitter adapts the response writer to the navigator.
func sessionSubmitter(rw responseWriter) func(ctx context.Context, answers model.Answers, attachments map[string]string) error {
	return func(ctx context.Context, answers model.Answers, attachments map[string]string) error {
		id, err := rw.write(ctx, answers, attachments)
		if err != nil {
			log.WithFields(log.Fields{"form": rw.form.ID}).Warnf("session submit: %s", err)
			return err
		}
		log.WithFields(log.Fields{"form": rw.form.ID, "response": id}).Debug("session submitted")
		return nil
	}
}
