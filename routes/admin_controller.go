package routes

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/database"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/logic"
	"github.com/mbolis/quick-forms/model"
	"github.com/mbolis/quick-forms/routes/middlewares"
)

// storeError maps the store sentinels onto HTTP statuses.
func storeError(w http.ResponseWriter, code string, id string, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		httpx.LogNotFound(w, code, id)
	case errors.Is(err, database.ErrConflict):
		httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, code+".conflict")
	default:
		httpx.LogInternalError(w, "db."+code, err)
	}
}

// canDelete reports whether the caller may delete form.
func canDelete(p middlewares.Principal, form model.Form) bool {
	return p.Capabilities.IsMasterAdmin || (p.Capabilities.CanDeleteForms && form.Owner == p.Username)
}

func canPublish(p middlewares.Principal, form model.Form) bool {
	return p.Capabilities.IsMasterAdmin || form.Owner == p.Username
}

func lintIssues(form model.Form) []string {
	issues := logic.Issues(logic.Lint(form))
	if issues == nil {
		return []string{}
	}
	return issues
}

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := model.Form{}
		err := httpx.DecodeValid(r.Body, &form)
		if err != nil {
			httpx.LogBadRequest(w, r, "request.parse_body", err)
			return
		}

		form.ID = ""
		form.Published = false
		form.Owner = middlewares.PrincipalFrom(r.Context()).Username

		err = app.CreateForm(r.Context(), &form)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form", err)
			return
		}
		log.WithFields(log.Fields{"form": form.ID, "owner": form.Owner}).Info("form created")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id":       form.ID,
			"version":  form.Version,
			"warnings": lintIssues(form),
		})
	}
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		forms, err := app.ListForms(r.Context(), database.FormFilter{
			Owner:         r.URL.Query().Get("owner"),
			PublishedOnly: r.URL.Query().Get("published") == "true",
		})
		if err != nil {
			httpx.LogInternalError(w, "db.get_forms", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"forms": forms,
		})
	}
}

func GetFormById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		form, err := app.GetForm(r.Context(), formId)
		if err != nil {
			storeError(w, "get_form", formId, err)
			return
		}

		render.JSON(w, r, form)
	}
}

func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		form := model.Form{}
		err := httpx.DecodeValid(r.Body, &form)
		if err != nil {
			httpx.LogBadRequest(w, r, "request.parse_body", err)
			return
		}
		if form.Version < 1 {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.version", "missing form version")
			return
		}
		form.ID = formId

		err = app.UpdateForm(r.Context(), &form)
		if err != nil {
			storeError(w, "update_form", formId, err)
			return
		}

		render.JSON(w, r, map[string]any{
			"id":       form.ID,
			"version":  form.Version,
			"warnings": lintIssues(form),
		})
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		form, err := app.GetForm(r.Context(), formId)
		if err != nil {
			storeError(w, "delete_form", formId, err)
			return
		}
		if !canDelete(middlewares.PrincipalFrom(r.Context()), form) {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "delete_form.not_owner")
			return
		}

		err = app.DeleteForm(r.Context(), formId)
		if err != nil {
			storeError(w, "delete_form", formId, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type publishRequest struct {
	Published *bool `json:"published" validate:"required"`
}

func SetPublished(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		req := publishRequest{}
		err := httpx.DecodeValid(r.Body, &req)
		if err != nil {
			httpx.LogBadRequest(w, r, "request.parse_body", err)
			return
		}

		form, err := app.GetForm(r.Context(), formId)
		if err != nil {
			storeError(w, "publish_form", formId, err)
			return
		}
		if !canPublish(middlewares.PrincipalFrom(r.Context()), form) {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "publish_form.not_owner")
			return
		}

		err = app.SetPublished(r.Context(), formId, *req.Published)
		if err != nil {
			storeError(w, "publish_form", formId, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// LintForm checks a draft without storing it.
func LintForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := model.Form{}
		err := httpx.DecodeValid(r.Body, &form)
		if err != nil {
			httpx.LogBadRequest(w, r, "request.parse_body", err)
			return
		}
		form.AssignIDs()

		render.JSON(w, r, map[string]any{
			"issues": lintIssues(form),
		})
	}
}

func GetCapabilities(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := middlewares.PrincipalFrom(r.Context())
		render.JSON(w, r, map[string]any{
			"username":     p.Username,
			"capabilities": p.Capabilities,
		})
	}
}
