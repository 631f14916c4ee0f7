package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/ui"
)

const defaultHeartbeat = 30 * time.Second

// sseEvent is the JSON body of every server-sent event.
type sseEvent struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// eventQueue keeps the latest snapshot per event kind so a slow client
// never blocks controller callbacks.
type eventQueue struct {
	mu      sync.Mutex
	pending map[ui.EventKind]ui.Event
	ready   chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		pending: make(map[ui.EventKind]ui.Event, 3),
		ready:   make(chan struct{}, 1),
	}
}

func (q *eventQueue) push(ev ui.Event) {
	q.mu.Lock()
	q.pending[ev.Kind] = ev
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// drain returns queued events, session changes first.
func (q *eventQueue) drain() []ui.Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]ui.Event, 0, len(q.pending))
	for _, kind := range []ui.EventKind{ui.EventSession, ui.EventBookmarks, ui.EventNotice} {
		if ev, ok := q.pending[kind]; ok {
			out = append(out, ev)
			delete(q.pending, kind)
		}
	}
	return out
}

// Events streams live view updates for the browser as server-sent events.
// The stream owns a long-lived controller watching auth and realtime
// changes; it is released when the client goes away.
func Events(d deps.Deps) http.HandlerFunc {
	heartbeat := d.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := mw.BrowserKeyFromContext(r.Context())
		if !ok {
			http.Error(w, "missing browser key", http.StatusBadRequest)
			return
		}

		rc := http.NewResponseController(w)
		// Streams outlive the server's write timeout.
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		log := d.Logger.With(logger.String("stream", "events"))
		queue := newEventQueue()
		c := newController(d, key, queue.push)
		defer func() {
			if err := c.Close(); err != nil {
				log.Warn("failed to release stream subscriptions", logger.Error(err))
			}
		}()

		if err := writeEvent(w, rc, sseEvent{Type: "connected"}); err != nil {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		if d.Draining != nil {
			defer context.AfterFunc(d.Draining, cancel)()
		}

		if err := c.Initialize(ctx); err == nil {
			_ = c.Watch(ctx)
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-queue.ready:
				for _, ev := range queue.drain() {
					if err := writeEvent(w, rc, toSSE(ev)); err != nil {
						log.Debug("client gone", logger.Error(err))
						return
					}
				}
			case <-ticker.C:
				if err := writeEvent(w, rc, sseEvent{Type: "heartbeat"}); err != nil {
					return
				}
			}
		}
	}
}

func toSSE(ev ui.Event) sseEvent {
	v := ev.View
	switch ev.Kind {
	case ui.EventSession:
		return sseEvent{
			Type: string(ev.Kind),
			Data: map[string]any{"signed_in": v.SignedIn, "user_id": v.User.ID},
		}
	case ui.EventBookmarks:
		html, err := ui.ListHTML(v)
		if err != nil {
			return sseEvent{Type: string(ui.EventNotice), Message: err.Error()}
		}
		return sseEvent{
			Type: string(ev.Kind),
			Data: map[string]any{"html": html, "count": len(v.Bookmarks)},
		}
	default:
		return sseEvent{Type: string(ev.Kind), Message: v.Notice}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, ev sseEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, b); err != nil {
		return err
	}
	return rc.Flush()
}
