package domain

import "time"

// User is the authenticated principal as reported by the identity provider.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Session is the record of the currently authenticated user of a browser.
// It carries the provider token so it can be refreshed server side.
type Session struct {
	User     User   `json:"user"`
	Provider string `json:"provider"`

	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	TokenExpiry  time.Time `json:"token_expiry,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserID returns the session user id, or "" for an absent session.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}

// AuthEvent names an auth-state transition.
type AuthEvent string

const (
	AuthInitialSession AuthEvent = "INITIAL_SESSION"
	AuthSignedIn       AuthEvent = "SIGNED_IN"
	AuthSignedOut      AuthEvent = "SIGNED_OUT"
	AuthTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthChange is delivered to auth-state subscribers. Session is nil after
// sign-out.
type AuthChange struct {
	Event   AuthEvent `json:"event"`
	Session *Session  `json:"session,omitempty"`
}
