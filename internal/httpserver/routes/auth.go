package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
)

func init() { Register(registerAuth) }

func registerAuth(r chi.Router, d deps.Deps) {
	limited := r.With(mw.EnforceHost(d.AllowedHosts, d.Logger), mw.BrowserKey(d.CookieName, d.CookieSecure, d.Logger), mw.RateLimit(d.RateLimit, d.Logger))
	limited.Get("/auth/signin", handlers.SignIn(d))
	limited.Get("/auth/callback", handlers.Callback(d))
	limited.Post("/auth/signout", handlers.SignOut(d))
}
