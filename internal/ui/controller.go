// Package ui holds the per-browser bookmark controller and its HTML view.
//
// A Controller owns the session, the bookmark list and the add-form draft
// of one browser. Every mutation is followed by a full refresh from the
// data collaborator; realtime events trigger the same refresh.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/errs"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// BookmarksTable is the table watched by the realtime subscription.
const BookmarksTable = "bookmarks"

// EventKind tells a listener which part of the view changed.
type EventKind string

const (
	EventSession   EventKind = "session"
	EventBookmarks EventKind = "bookmarks"
	EventNotice    EventKind = "notice"
)

// Event is emitted after every state transition.
type Event struct {
	Kind EventKind
	View View
}

// Options configures a Controller.
type Options struct {
	Key           string // browser key
	Provider      string // fixed OAuth provider name
	ProviderLabel string // shown on the sign-in control
	Identity      backend.Identity
	Data          backend.Data
	Realtime      backend.Realtime
	Logger        logger.Logger
	Notify        func(Event) // optional
}

// Controller is the state of one browser view.
type Controller struct {
	key           string
	provider      string
	providerLabel string
	identity      backend.Identity
	data          backend.Data
	realtime      backend.Realtime
	log           logger.Logger
	notify        func(Event)

	mu         sync.Mutex
	session    *domain.Session
	bookmarks  []domain.Bookmark
	draft      domain.Draft
	notice     string
	watchCtx   context.Context
	authSub    backend.Subscription
	liveSub    backend.Subscription
	fetchSeq   uint64
	appliedSeq uint64
	closed     bool
}

// NewController builds a controller for one browser key.
func NewController(opts Options) *Controller {
	label := opts.ProviderLabel
	if label == "" {
		label = titleCase(opts.Provider)
	}
	return &Controller{
		key:           opts.Key,
		provider:      opts.Provider,
		providerLabel: label,
		identity:      opts.Identity,
		data:          opts.Data,
		realtime:      opts.Realtime,
		log:           opts.Logger.With(logger.String("browser", shortKey(opts.Key))),
		notify:        opts.Notify,
	}
}

// ─────────────────────────────────────────────────────────────────
// Session store
// ─────────────────────────────────────────────────────────────────

// Initialize loads the stored session, if any.
func (c *Controller) Initialize(ctx context.Context) error {
	session, err := c.identity.GetSession(ctx, c.key)
	if err != nil {
		err = fmt.Errorf("load session: %w", err)
		c.report(err)
		return err
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
	return nil
}

// Watch registers for auth-state changes and, while a session is present,
// for realtime changes of the user's rows. Handles are released by Close.
func (c *Controller) Watch(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.authSub != nil {
		c.mu.Unlock()
		return nil
	}
	c.watchCtx = ctx
	c.mu.Unlock()

	sub, err := c.identity.OnAuthStateChange(ctx, c.key, c.onAuthChange)
	if err != nil {
		err = fmt.Errorf("subscribe to auth changes: %w", err)
		c.report(err)
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return sub.Unsubscribe()
	}
	c.authSub = sub
	session := c.session
	c.mu.Unlock()

	if session != nil {
		c.subscribeRealtime(ctx, session)
		return c.Fetch(ctx)
	}
	return nil
}

// onAuthChange replaces the session unconditionally and rebuilds the
// realtime subscription for the new session.
func (c *Controller) onAuthChange(change domain.AuthChange) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	ctx := c.watchCtx
	previous := c.session.UserID()
	c.session = change.Session
	if change.Session == nil || change.Session.User.ID != previous {
		c.bookmarks = nil
	}
	old := c.liveSub
	c.liveSub = nil
	c.mu.Unlock()

	c.log.Debug("auth state changed", logger.String("event", string(change.Event)))
	c.release(old)
	c.emit(EventSession)

	if change.Session != nil {
		c.subscribeRealtime(ctx, change.Session)
		_ = c.Fetch(ctx)
	}
}

// SignIn starts the fixed-provider OAuth flow and returns the URL to
// redirect the browser to.
func (c *Controller) SignIn(ctx context.Context) (string, error) {
	url, err := c.identity.SignInWithOAuth(ctx, c.key, c.provider)
	if err != nil {
		err = fmt.Errorf("sign in: %w", err)
		c.report(err)
		return "", err
	}
	return url, nil
}

// SignOut asks the identity collaborator to end the session.
func (c *Controller) SignOut(ctx context.Context) error {
	if err := c.identity.SignOut(ctx, c.key); err != nil {
		err = fmt.Errorf("sign out: %w", err)
		c.report(err)
		return err
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────
// Bookmark list
// ─────────────────────────────────────────────────────────────────

// Fetch replaces the list with the user's bookmarks. Without a session it
// does nothing. A response is dropped when a newer fetch already landed or
// the session user changed while it was in flight.
func (c *Controller) Fetch(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.session == nil {
		c.mu.Unlock()
		return nil
	}
	c.fetchSeq++
	seq := c.fetchSeq
	user := c.session.User.ID
	c.mu.Unlock()

	list, err := c.data.ListBookmarks(ctx, user)
	if err != nil {
		err = fmt.Errorf("fetch bookmarks: %w", err)
		c.report(err)
		return err
	}
	if list == nil {
		list = []domain.Bookmark{}
	}

	c.mu.Lock()
	if seq <= c.appliedSeq || c.session.UserID() != user {
		c.mu.Unlock()
		c.log.Debug("dropping stale fetch", logger.Int64("seq", int64(seq)))
		return nil
	}
	c.bookmarks = list
	c.appliedSeq = seq
	c.mu.Unlock()

	c.emit(EventBookmarks)
	return nil
}

// SetDraft stores the add-form input.
func (c *Controller) SetDraft(title, url string) {
	c.mu.Lock()
	c.draft = domain.Draft{Title: title, URL: url}
	c.mu.Unlock()
}

// Add inserts the draft as a new bookmark. Blank fields are rejected
// before any remote call; the draft is cleared only on success.
func (c *Controller) Add(ctx context.Context) error {
	c.mu.Lock()
	draft := c.draft
	session := c.session
	c.mu.Unlock()

	if err := draft.Validate(); err != nil {
		c.report(err)
		return err
	}
	if session == nil {
		c.report(errs.ErrNoSession)
		return errs.ErrNoSession
	}

	userID := session.User.ID
	if _, err := c.data.InsertBookmark(ctx, userID, draft.Bookmark(userID)); err != nil {
		err = fmt.Errorf("add bookmark: %w", err)
		c.report(err)
		return err
	}

	c.mu.Lock()
	c.draft = domain.Draft{}
	c.mu.Unlock()

	return c.Fetch(ctx)
}

// Delete removes a bookmark by id. Ownership is left to the data
// collaborator.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		c.report(errs.ErrNoSession)
		return errs.ErrNoSession
	}

	if _, err := c.data.DeleteBookmark(ctx, session.User.ID, id); err != nil {
		err = fmt.Errorf("delete bookmark: %w", err)
		c.report(err)
		return err
	}

	return c.Fetch(ctx)
}

// ─────────────────────────────────────────────────────────────────
// Realtime
// ─────────────────────────────────────────────────────────────────

func (c *Controller) subscribeRealtime(ctx context.Context, session *domain.Session) {
	ch := backend.Channel{
		Table:  BookmarksTable,
		Filter: backend.UserFilter(session.User.ID),
		Event:  backend.ChangeAll,
	}

	// The payload is ignored: any change means a full refresh.
	sub, err := c.realtime.Subscribe(ctx, ch, func(backend.Change) {
		_ = c.Fetch(ctx)
	})
	if err != nil {
		c.report(fmt.Errorf("subscribe to bookmark changes: %w", err))
		return
	}

	c.mu.Lock()
	if c.closed || c.liveSub != nil || c.session.UserID() != session.User.ID {
		c.mu.Unlock()
		c.release(sub)
		return
	}
	c.liveSub = sub
	c.mu.Unlock()
}

// Close releases the auth and realtime subscriptions.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := []backend.Subscription{c.liveSub, c.authSub}
	c.liveSub, c.authSub = nil, nil
	c.mu.Unlock()

	var errList []error
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		if err := sub.Unsubscribe(); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

func (c *Controller) release(sub backend.Subscription) {
	if sub == nil {
		return
	}
	if err := sub.Unsubscribe(); err != nil {
		c.log.Warn("failed to release subscription", logger.Error(err))
	}
}

// ─────────────────────────────────────────────────────────────────
// State snapshots
// ─────────────────────────────────────────────────────────────────

// Session returns the current session (nil when signed out).
func (c *Controller) Session() *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Bookmarks returns a copy of the list. It is nil until the first fetch
// lands and empty, not nil, when the user has no bookmarks.
func (c *Controller) Bookmarks() []domain.Bookmark {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneList(c.bookmarks)
}

// Draft returns the add-form buffers.
func (c *Controller) Draft() domain.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Notice returns the last reported error message.
func (c *Controller) Notice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}

// View snapshots the state for rendering.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Draft:         c.draft,
		Notice:        c.notice,
		ProviderLabel: c.providerLabel,
	}
	if c.session != nil {
		v.SignedIn = true
		v.User = c.session.User
		v.Bookmarks = cloneList(c.bookmarks)
	}
	return v
}

// Report surfaces an error raised outside the controller's own calls,
// such as a failed OAuth redirect.
func (c *Controller) Report(err error) { c.report(err) }

// report surfaces err to the user and logs it. Nothing is retried.
func (c *Controller) report(err error) {
	msg := noticeText(err)

	c.mu.Lock()
	c.notice = msg
	c.mu.Unlock()

	if errors.Is(err, errs.ErrValidation) {
		c.log.Debug("validation failed", logger.Error(err))
	} else {
		c.log.Warn("remote call failed", logger.Error(err))
	}
	c.emit(EventNotice)
}

func (c *Controller) emit(kind EventKind) {
	if c.notify == nil {
		return
	}
	c.notify(Event{Kind: kind, View: c.View()})
}

func cloneList(list []domain.Bookmark) []domain.Bookmark {
	if list == nil {
		return nil
	}
	out := make([]domain.Bookmark, len(list))
	copy(out, list)
	return out
}

func noticeText(err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}

func titleCase(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
