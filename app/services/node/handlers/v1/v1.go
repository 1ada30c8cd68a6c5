// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/nac-codes/blockbard/app/services/node/handlers/v1/nodegrp"
	"github.com/nac-codes/blockbard/foundation/blockchain/state"
	"github.com/nac-codes/blockbard/foundation/events"
	"github.com/nac-codes/blockbard/foundation/web"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes. The node to node wire
// paths live at the root so peers written against the protocol find them
// without a version prefix.
func PublicRoutes(app *web.App, cfg Config) {
	ng := nodegrp.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, "", "/get_chain", ng.Chain)
	app.Handle(http.MethodPost, "", "/add_block", ng.AddBlock)
	app.Handle(http.MethodPost, "", "/add_transaction", ng.AddContribution)
	app.Handle(http.MethodPost, "", "/mine", ng.Mine)
	app.Handle(http.MethodPost, "", "/discover", ng.Discover)
	app.Handle(http.MethodPost, "", "/update_peers", ng.UpdatePeers)
	app.Handle(http.MethodPost, "", "/auto_mine", ng.AutoMine)
	app.Handle(http.MethodGet, "", "/status", ng.Status)
	app.Handle(http.MethodGet, "", "/events", ng.Events)
}
