package handlers

import (
	"fmt"
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/errs"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
)

// SignIn redirects the browser to the configured OAuth provider.
func SignIn(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := controllerFor(w, r, d, nil)
		if !ok {
			return
		}

		url, err := c.SignIn(r.Context())
		if err != nil {
			renderFailure(w, r, d, c, err)
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
	}
}

// Callback completes the OAuth redirect and sends the browser home.
func Callback(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := controllerFor(w, r, d, nil)
		if !ok {
			return
		}
		key, _ := mw.BrowserKeyFromContext(r.Context())
		ctx := r.Context()
		q := r.URL.Query()

		var err error
		if reason := q.Get("error"); reason != "" {
			err = fmt.Errorf("sign in: provider returned %q: %w", reason, errs.ErrSignInDenied)
		} else if q.Get("code") == "" {
			err = fmt.Errorf("sign in: %w", errs.ErrSignInDenied)
		} else {
			_, cerr := d.SignIn.CompleteSignIn(ctx, key, q.Get("state"), q.Get("code"))
			if cerr == nil {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			err = fmt.Errorf("sign in: %w", cerr)
		}

		_ = c.Initialize(ctx)
		c.Report(err)
		renderFailure(w, r, d, c, err)
	}
}

// SignOut ends the browser's session.
func SignOut(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := controllerFor(w, r, d, nil)
		if !ok {
			return
		}

		if err := c.SignOut(r.Context()); err != nil {
			_ = c.Initialize(r.Context())
			renderFailure(w, r, d, c, err)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
