package handlers

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/errs"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/ui"
)

// maxFormBytes bounds the add-bookmark form.
const maxFormBytes = 64 << 10

// Page renders the bookmark page for the requesting browser.
func Page(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := controllerFor(w, r, d, nil)
		if !ok {
			return
		}

		ctx := r.Context()
		if err := c.Initialize(ctx); err == nil {
			_ = c.Fetch(ctx)
		}
		renderPage(w, d, c, http.StatusOK)
	}
}

// controllerFor builds a short-lived controller for the request's browser.
// It writes a 400 and returns false when the browser key is missing.
func controllerFor(w http.ResponseWriter, r *http.Request, d deps.Deps, notify func(ui.Event)) (*ui.Controller, bool) {
	key, ok := mw.BrowserKeyFromContext(r.Context())
	if !ok {
		http.Error(w, "missing browser key", http.StatusBadRequest)
		return nil, false
	}
	return newController(d, key, notify), true
}

func newController(d deps.Deps, key string, notify func(ui.Event)) *ui.Controller {
	return ui.NewController(ui.Options{
		Key:           key,
		Provider:      d.Provider,
		ProviderLabel: d.ProviderLabel,
		Identity:      d.Identity,
		Data:          d.Data,
		Realtime:      d.Realtime,
		Logger:        d.Logger,
		Notify:        notify,
	})
}

// renderFailure shows the page with the reported notice and the status
// matching err. The list is reloaded so the page stays usable.
func renderFailure(w http.ResponseWriter, r *http.Request, d deps.Deps, c *ui.Controller, err error) {
	status := statusFor(err)
	if status != http.StatusUnauthorized && c.Session() != nil {
		notice := c.Notice()
		_ = c.Fetch(r.Context())
		if c.Notice() != notice {
			status = http.StatusBadGateway
		}
	}
	renderPage(w, d, c, status)
}

func renderPage(w http.ResponseWriter, d deps.Deps, c *ui.Controller, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := ui.Render(w, c.View()); err != nil {
		d.Logger.Error("failed to render page", logger.Error(err))
	}
}

// statusFor maps controller and collaborator errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrNoSession), errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrStateMismatch),
		errors.Is(err, errs.ErrUnknownProvider),
		errors.Is(err, errs.ErrSignInDenied):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
