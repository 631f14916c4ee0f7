// Package backend declares the collaborators the bookmark controller talks
// to: identity, data and realtime. Concrete implementations live in
// internal/auth, internal/store/postgres and internal/realtime.
package backend

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// Subscription is a registered callback that must be released.
type Subscription interface {
	Unsubscribe() error
}

// SubscriptionFunc adapts a release function to Subscription.
type SubscriptionFunc func() error

func (f SubscriptionFunc) Unsubscribe() error { return f() }

// Identity owns authentication sessions. key identifies the browser.
type Identity interface {
	// GetSession returns the stored session, or nil when signed out.
	GetSession(ctx context.Context, key string) (*domain.Session, error)

	// OnAuthStateChange registers fn for sign-in, sign-out and token refresh
	// events of the browser.
	OnAuthStateChange(ctx context.Context, key string, fn func(domain.AuthChange)) (Subscription, error)

	// SignInWithOAuth starts a federated sign-in and returns the provider
	// URL the browser must visit. The outcome arrives as a SIGNED_IN event.
	SignInWithOAuth(ctx context.Context, key, provider string) (string, error)

	// SignOut invalidates the session; observed as a SIGNED_OUT event.
	SignOut(ctx context.Context, key string) error
}

// Data is the bookmark table. actor is the authenticated user the call is
// made on behalf of; row-level security in the store decides what it may
// see or remove.
type Data interface {
	// ListBookmarks returns the rows owned by actor, newest first.
	ListBookmarks(ctx context.Context, actor string) ([]domain.Bookmark, error)

	// InsertBookmark stores a row and returns it with id and timestamp.
	InsertBookmark(ctx context.Context, actor string, nb domain.NewBookmark) (domain.Bookmark, error)

	// DeleteBookmark removes the row with id if actor may see it and
	// returns the removed rows (possibly none).
	DeleteBookmark(ctx context.Context, actor string, id int64) ([]domain.Bookmark, error)
}

// ChangeEvent is the kind of row change carried by the realtime feed.
type ChangeEvent string

const (
	ChangeInsert ChangeEvent = "INSERT"
	ChangeUpdate ChangeEvent = "UPDATE"
	ChangeDelete ChangeEvent = "DELETE"
	ChangeAll    ChangeEvent = "*"
)

// Change is one realtime notification.
type Change struct {
	Event     ChangeEvent      `json:"event"`
	Table     string           `json:"table"`
	New       *domain.Bookmark `json:"new,omitempty"`
	Old       *domain.Bookmark `json:"old,omitempty"`
	Timestamp time.Time        `json:"commit_timestamp"`
}

// Channel scopes a realtime subscription to a table and row filter.
type Channel struct {
	Table  string
	Filter string      // e.g. "user_id=eq.<id>"
	Event  ChangeEvent // ChangeAll for every kind
}

// UserFilter scopes a channel to the rows owned by userID.
func UserFilter(userID string) string { return "user_id=eq." + userID }

// Realtime delivers row changes matching a channel.
type Realtime interface {
	Subscribe(ctx context.Context, ch Channel, fn func(Change)) (Subscription, error)
}
