package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
)

type componentStatus struct {
	OK            bool           `json:"ok"`
	Mode          string         `json:"mode,omitempty"`
	Impact        string         `json:"impact,omitempty"`
	Error         string         `json:"error,omitempty"`
	Sessions      *int64         `json:"sessions,omitempty"`
	Subscriptions map[string]int `json:"subscriptions,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the state of each backing component and the live
// realtime subscriptions.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		components := map[string]componentStatus{
			"postgres": checkPostgres(ctx, d),
			"redis":    checkRedis(ctx, d),
			"realtime": checkRealtime(d),
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	// No database means no bookmarks at all.
	if pg, ok := components["postgres"]; ok && !pg.OK {
		return "critical"
	}
	// Redis down means no sign-in and no live updates.
	if rd, ok := components["redis"]; ok && !rd.OK {
		return "degraded"
	}
	return "operational"
}

func checkPostgres(ctx context.Context, d deps.Deps) componentStatus {
	if status := probe(ctx, d.Database); status != "ok" {
		return componentStatus{OK: false, Impact: "bookmarks-unavailable", Error: status}
	}
	return componentStatus{OK: true}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if status := probe(ctx, d.Redis); status != "ok" {
		return componentStatus{OK: false, Impact: "sign-in-and-live-updates-disabled", Error: status}
	}

	st := componentStatus{OK: true}
	if d.Sessions != nil {
		n, err := d.Sessions.CountSessions(ctx)
		if err != nil {
			st.Error = err.Error()
		} else {
			st.Sessions = &n
		}
	}
	return st
}

func checkRealtime(d deps.Deps) componentStatus {
	if d.Channels == nil {
		return componentStatus{OK: false, Mode: "disabled", Impact: "live-updates-disabled"}
	}
	return componentStatus{OK: true, Mode: "redis-pubsub", Subscriptions: d.Channels.Stats()}
}
