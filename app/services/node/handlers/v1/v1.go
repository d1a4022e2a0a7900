// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"github.com/babymu5k/Zedovium/app/services/node/handlers/v1/mine"
	"github.com/babymu5k/Zedovium/app/services/node/handlers/v1/public"
	"github.com/babymu5k/Zedovium/foundation/blockchain/address"
	"github.com/babymu5k/Zedovium/foundation/blockchain/state"
	"github.com/babymu5k/Zedovium/foundation/events"
	"github.com/babymu5k/Zedovium/foundation/web"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	Book  *address.Book
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	public.Routes(app, public.Config{
		Log:   cfg.Log,
		State: cfg.State,
		Book:  cfg.Book,
		Evts:  cfg.Evts,
	})

	mine.Routes(app, mine.Config{
		Log:   cfg.Log,
		State: cfg.State,
	})
}
