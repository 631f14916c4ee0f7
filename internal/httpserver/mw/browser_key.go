package mw

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/marks/internal/logger"
)

type browserKeyCtx struct{}

// browserKeyMaxAge keeps the cookie for a year; sessions expire on their own.
const browserKeyMaxAge = 365 * 24 * 60 * 60

// WithBrowserKey returns a new context containing the browser key.
func WithBrowserKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, browserKeyCtx{}, key)
}

// BrowserKeyFromContext extracts the browser key from the context.
func BrowserKeyFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(browserKeyCtx{}).(string)
	return v, ok && v != ""
}

// BrowserKey identifies the browser with a random HTTP-only cookie, issuing
// one when the request carries none or a malformed one.
func BrowserKey(name string, secure bool, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ""
			if c, err := r.Cookie(name); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					key = c.Value
				}
			}

			if key == "" {
				key = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     name,
					Value:    key,
					Path:     "/",
					MaxAge:   browserKeyMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
				log.Debug("issued browser key")
			}

			next.ServeHTTP(w, r.WithContext(WithBrowserKey(r.Context(), key)))
		})
	}
}
