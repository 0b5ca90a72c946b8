package routes

import (
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/metrics"
	"github.com/mbolis/quick-forms/model"
	"github.com/mbolis/quick-forms/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))
	root.Method("GET", "/metrics", metrics.Handler())

	return root
}

func canCreate(c model.Capabilities) bool { return c.CanCreateForms }
func canEdit(c model.Capabilities) bool   { return c.CanEditForms }
func canView(c model.Capabilities) bool   { return c.CanViewResponses }

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()
	if app.Config.MaxUpload > 0 {
		api.Use(middlewares.LimitBody(app.Config.MaxUpload))
	}

	guard := newInFlight()
	api.Get(`/forms/{id}`, PublicGetFormById(app))
	api.Post(`/forms/{id}/responses`, PublicSubmitForm(app, guard))
	api.Post(`/forms/{id}/session`, PublicSession(app, guard))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.CookieAuth(app.BearerServer), middlewares.Authorize(app.Config.TokenSecret))

		r.Get("/me/capabilities", GetCapabilities(app))

		// CRUD form
		r.With(middlewares.Require("create_forms", canCreate)).Post("/forms", CreateForm(app))
		r.Get("/forms", ListForms(app))
		r.Post("/forms/lint", LintForm(app))
		r.Get(`/forms/{id}`, GetFormById(app))
		r.With(middlewares.Require("edit_forms", canEdit)).Put(`/forms/{id}`, UpdateForm(app))
		r.Delete(`/forms/{id}`, DeleteForm(app))
		r.Put(`/forms/{id}/published`, SetPublished(app))

		r.Group(func(r chi.Router) {
			r.Use(middlewares.Require("view_responses", canView))

			r.Get(`/forms/{id}/responses`, GetFormResponses(app))
			r.Get(`/forms/{id}/stats`, GetFormStats(app))
			r.With(middlewares.Require("edit_forms", canEdit)).Put(`/responses/{id}`, ReplaceResponse(app))
			r.With(middlewares.Require("edit_forms", canEdit)).Delete(`/responses/{id}`, DeleteResponse(app))
		})
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}
