package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/attachments"
	"github.com/mbolis/quick-forms/config"
	"github.com/mbolis/quick-forms/database"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/model"
	"github.com/mbolis/quick-forms/routes"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	store, err := database.Open(cfg.DBUrl)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer store.Close()

	if username, password, ok := cfg.Admin(); ok {
		err = store.CreateUser(context.Background(), username, password, model.RoleAdmin)
		if err != nil {
			log.Fatal("main.bootstrap_admin:", err)
		}
		log.Infof("main: admin %s ready", username)
	}

	files, err := attachmentStore(cfg)
	if err != nil {
		log.Fatal("main.attachments:", err)
	}

	app := app.App{
		Store:        store,
		BearerServer: httpx.NewBearerServer(store, cfg),
		Config:       cfg,
		Attachments:  files,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func attachmentStore(cfg config.Config) (attachments.Store, error) {
	if cfg.S3.Endpoint == "" {
		log.Info("attachments: storing inline")
		return attachments.InlineStore{}, nil
	}

	store, err := attachments.NewMinioStore(cfg.S3)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = store.EnsureBucket(ctx)
	if err != nil {
		return nil, err
	}
	log.Infof("attachments: bucket %s on %s", cfg.S3.Bucket, cfg.S3.Endpoint)
	return store, nil
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
