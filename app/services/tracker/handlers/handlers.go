// Package handlers manages the different versions of the API.
package handlers

import (
	"net/http"
	"os"

	v1 "github.com/nac-codes/blockbard/app/services/tracker/handlers/v1"
	"github.com/nac-codes/blockbard/business/tracker"
	"github.com/nac-codes/blockbard/business/web/v1/mid"
	"github.com/nac-codes/blockbard/foundation/client"
	"github.com/nac-codes/blockbard/foundation/web"
	"go.uber.org/zap"
)

// MuxConfig contains all the mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown chan os.Signal
	Log      *zap.SugaredLogger
	Registry *tracker.Registry
	Client   *client.Client
}

// APIMux constructs a http.Handler with all application routes defined.
func APIMux(cfg MuxConfig) http.Handler {

	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Cors("*"),
		mid.Panics(),
	)

	// Load the v1 routes.
	v1.Routes(app, v1.Config{
		Log:      cfg.Log,
		Registry: cfg.Registry,
		Client:   cfg.Client,
	})

	return app
}
