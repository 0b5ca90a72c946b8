package app

import (
	"github.com/go-chi/oauth"
	"github.com/mbolis/quick-forms/attachments"
	"github.com/mbolis/quick-forms/config"
	"github.com/mbolis/quick-forms/database"
	"github.com/mbolis/quick-forms/model"
)

type App struct {
	*database.Store
	*oauth.BearerServer
	config.Config

	Attachments attachments.Store
}

// Policy is the completeness policy every handler evaluates forms with.
func (app App) Policy() model.Policy {
	return app.Config.Policy()
}
