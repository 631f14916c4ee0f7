package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
)

func init() { Register(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	limited := r.With(mw.EnforceHost(d.AllowedHosts, d.Logger), mw.BrowserKey(d.CookieName, d.CookieSecure, d.Logger), mw.RateLimit(d.RateLimit, d.Logger))
	limited.Post("/bookmarks", handlers.AddBookmark(d))
	limited.Post("/bookmarks/{id}/delete", handlers.DeleteBookmark(d))
}
