package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/model"
	"github.com/mbolis/quick-forms/stats"
)

func GetFormResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		responses, err := app.ListResponses(r.Context(), formId)
		if err != nil {
			storeError(w, "get_responses", formId, err)
			return
		}
		displayAttachments(app.Attachments, responses)

		render.JSON(w, r, map[string]any{
			"responses": responses,
		})
	}
}

func GetFormStats(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		form, err := app.GetForm(r.Context(), formId)
		if err != nil {
			storeError(w, "get_stats.form", formId, err)
			return
		}
		responses, err := app.ListResponses(r.Context(), formId)
		if err != nil {
			storeError(w, "get_stats.responses", formId, err)
			return
		}

		render.JSON(w, r, stats.Summarize(form, responses, app.Policy()))
	}
}

type responseUpdate struct {
	Answers     []model.ResponseAnswer `json:"answers" validate:"dive"`
	Attachments map[string]string      `json:"attachments"`
}

// ReplaceResponse overwrites every answer and attachment reference of a
// stored response.
func ReplaceResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseId := chi.URLParam(r, "id")

		update := responseUpdate{}
		err := httpx.DecodeValid(r.Body, &update)
		if err != nil {
			httpx.LogBadRequest(w, r, "request.parse_body", err)
			return
		}

		err = app.Store.ReplaceResponse(r.Context(), model.Response{
			ID:          responseId,
			Answers:     update.Answers,
			Attachments: update.Attachments,
		})
		if err != nil {
			storeError(w, "replace_response", responseId, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseId := chi.URLParam(r, "id")

		err := app.Store.DeleteResponse(r.Context(), responseId)
		if err != nil {
			storeError(w, "delete_response", responseId, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
