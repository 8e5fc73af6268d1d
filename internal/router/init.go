package router

import (
	"github.com/oksasatya/go-account-service/internal/container"
	handlers "github.com/oksasatya/go-account-service/internal/interface/http"
	"github.com/oksasatya/go-account-service/internal/router/modules"
)

// InitModules builds the feature modules from the container and adds them to r.
// Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	var dir handlers.AccountSearcher
	if c.Directory.Enabled() {
		dir = c.Directory
	}
	h := handlers.NewAccountHandler(c.Service, dir, c.Logger, c.Config.CookieDomain, c.Config.CookieSecure)

	r.Add(modules.NewHealthModule(c.Config.AppName))
	r.Add(modules.NewAccountModule(h, c.JWT, c.Redis, c.Logger))
	if c.Config.MetricsEnabled {
		r.Add(modules.NewMetricsModule())
	}
}
