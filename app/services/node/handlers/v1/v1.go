// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/lattice/app/services/node/handlers/v1/private"
	"github.com/ardanlabs/lattice/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/lattice/business/web/mid"
	"github.com/ardanlabs/lattice/foundation/events"
	"github.com/ardanlabs/lattice/foundation/nameservice"
	"github.com/ardanlabs/lattice/foundation/node"
	"github.com/ardanlabs/lattice/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log  *zap.SugaredLogger
	Node *node.Node
	NS   *nameservice.NameService
	Evts *events.Events

	// ProcessRate bounds block submissions per second, zero for no bound.
	ProcessRate int
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:  cfg.Log,
		Node: cfg.Node,
		NS:   cfg.NS,
		Evts: cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/accounts/:account", pbl.Account)
	app.Handle(http.MethodGet, version, "/accounts/:account/receivable", pbl.Receivable)
	app.Handle(http.MethodGet, version, "/blocks/:hash", pbl.Block)
	app.Handle(http.MethodGet, version, "/representatives", pbl.Representatives)
	app.Handle(http.MethodGet, version, "/quorum", pbl.Quorum)
	app.Handle(http.MethodPost, version, "/blocks/process", pbl.ProcessBlocks, mid.Throttle(cfg.ProcessRate))
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:  cfg.Log,
		Node: cfg.Node,
	}

	app.Handle(http.MethodPost, version, "/blocks/rollback/:hash", prv.Rollback)
	app.Handle(http.MethodPost, version, "/blocks/confirm/:hash", prv.Confirm)
	app.Handle(http.MethodPost, version, "/blocks/prune/:hash", prv.Prune)
	app.Handle(http.MethodPost, version, "/votes", prv.Vote)
}
