package domain

import (
	"time"

	"github.com/MrSnakeDoc/marks/internal/errs"
)

// Bookmark is a user-owned link record.
// ID and CreatedAt are assigned by the data store, never locally.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (assigned remotely)
	// ─────────────────────────────

	ID int64 `json:"id"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	Title string `json:"title"`
	URL   string `json:"url"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// CreatedAt orders the list (newest first).
	CreatedAt time.Time `json:"created_at"`

	// UserID is the owning user. Every bookmark held by a signed-in view
	// belongs to that view's session user.
	UserID string `json:"user_id"`
}

// NewBookmark is the insert payload.
type NewBookmark struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	UserID string `json:"user_id"`
}

// Draft holds the add-form input buffers.
type Draft struct {
	Title string
	URL   string
}

// Validate reports errs.ErrValidation when a field is empty. Whitespace
// counts as content.
func (d Draft) Validate() error {
	if d.Title == "" || d.URL == "" {
		return errs.ErrValidation
	}
	return nil
}

// IsEmpty reports whether both buffers are cleared.
func (d Draft) IsEmpty() bool {
	return d.Title == "" && d.URL == ""
}

// Bookmark builds the insert payload for the given owner. Fields are
// stored exactly as entered.
func (d Draft) Bookmark(userID string) NewBookmark {
	return NewBookmark{
		Title:  d.Title,
		URL:    d.URL,
		UserID: userID,
	}
}
