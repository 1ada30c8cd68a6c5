// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/nac-codes/blockbard/app/services/tracker/handlers/v1/trackgrp"
	"github.com/nac-codes/blockbard/business/tracker"
	"github.com/nac-codes/blockbard/foundation/client"
	"github.com/nac-codes/blockbard/foundation/web"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log      *zap.SugaredLogger
	Registry *tracker.Registry
	Client   *client.Client
}

// Routes binds all the version 1 routes. The wire paths live at the root so
// nodes written against the protocol find them without a version prefix.
func Routes(app *web.App, cfg Config) {
	tgh := trackgrp.Handlers{
		Log:      cfg.Log,
		Registry: cfg.Registry,
		Client:   cfg.Client,
	}

	app.Handle(http.MethodGet, "", "/", tgh.Info)
	app.Handle(http.MethodPost, "", "/register", tgh.Register)
	app.Handle(http.MethodPost, "", "/unregister", tgh.Unregister)
	app.Handle(http.MethodGet, "", "/peers", tgh.Peers)
}
