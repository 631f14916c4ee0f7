package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/errs"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
)

// AddBookmark stores the submitted form as a new bookmark. On failure the
// page is rendered again with the draft kept.
func AddBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := controllerFor(w, r, d, nil)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		if err := c.Initialize(ctx); err != nil {
			renderFailure(w, r, d, c, err)
			return
		}

		c.SetDraft(r.PostFormValue("title"), r.PostFormValue("url"))
		if err := c.Add(ctx); err != nil {
			renderFailure(w, r, d, c, err)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// DeleteBookmark removes the bookmark named in the path.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := controllerFor(w, r, d, nil)
		if !ok {
			return
		}

		ctx := r.Context()
		if err := c.Initialize(ctx); err != nil {
			renderFailure(w, r, d, c, err)
			return
		}

		raw := chi.URLParam(r, "id")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			err = fmt.Errorf("delete bookmark %q: %w", raw, errs.ErrNotFound)
			c.Report(err)
			renderFailure(w, r, d, c, err)
			return
		}

		if err := c.Delete(ctx, id); err != nil {
			renderFailure(w, r, d, c, err)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
