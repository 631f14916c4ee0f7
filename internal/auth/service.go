// Package auth is the identity collaborator: federated OAuth2 sign-in with
// PKCE, sessions stored in Redis per browser key, and auth-state events
// published over Redis pub/sub.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/errs"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/realtime"
	"github.com/MrSnakeDoc/marks/internal/sources/providers"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
)

// ErrNoRefreshToken is returned by Refresh for sessions that cannot be
// renewed without the user.
var ErrNoRefreshToken = errors.New("session has no refresh token")

// Options configures the identity service.
type Options struct {
	RedirectURL string        // absolute URL of the OAuth callback route
	SessionTTL  time.Duration // lifetime of a stored session
	StateTTL    time.Duration // lifetime of a pending sign-in
}

// Service implements backend.Identity.
type Service struct {
	store     *redisstore.Store
	broker    *realtime.Broker
	providers providers.Catalogue
	opts      Options
	log       logger.Logger
}

// NewService creates the identity service.
func NewService(store *redisstore.Store, broker *realtime.Broker, catalogue providers.Catalogue, opts Options, log logger.Logger) *Service {
	return &Service{
		store:     store,
		broker:    broker,
		providers: catalogue,
		opts:      opts,
		log:       log,
	}
}

// GetSession returns the browser's session or nil.
func (s *Service) GetSession(ctx context.Context, key string) (*domain.Session, error) {
	return s.store.GetSession(ctx, key)
}

// OnAuthStateChange calls fn for every auth event of the browser, from any
// process sharing the Redis instance.
func (s *Service) OnAuthStateChange(ctx context.Context, key string, fn func(domain.AuthChange)) (backend.Subscription, error) {
	return s.broker.Subscribe(ctx, redisstore.AuthChannel(key), func(_ string, payload []byte) {
		var change domain.AuthChange
		if err := json.Unmarshal(payload, &change); err != nil {
			s.log.Warn("dropping malformed auth event", logger.Error(err))
			return
		}
		fn(change)
	})
}

// SignInWithOAuth records a pending sign-in bound to the browser and
// returns the provider authorization URL.
func (s *Service) SignInWithOAuth(ctx context.Context, key, provider string) (string, error) {
	p, ok := s.providers.Get(provider)
	if !ok {
		return "", fmt.Errorf("%w: %s", errs.ErrUnknownProvider, provider)
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	pending := redisstore.PendingSignIn{
		BrowserKey: key,
		Provider:   provider,
		Verifier:   verifier,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.SaveState(ctx, state, pending, s.opts.StateTTL); err != nil {
		return "", err
	}

	return s.config(p).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	), nil
}

// CompleteSignIn finishes the redirect: it checks state, exchanges code,
// loads the user profile and stores the session. Subscribers receive
// SIGNED_IN.
func (s *Service) CompleteSignIn(ctx context.Context, key, state, code string) (*domain.Session, error) {
	pending, err := s.store.TakeState(ctx, state)
	if err != nil {
		return nil, err
	}
	if pending == nil || pending.BrowserKey != key {
		return nil, errs.ErrStateMismatch
	}

	p, ok := s.providers.Get(pending.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnknownProvider, pending.Provider)
	}
	cfg := s.config(p)

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(pending.Verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	user, err := fetchUser(ctx, cfg, p, tok)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.Session{
		User:      user,
		Provider:  pending.Provider,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.SessionTTL),
	}
	setToken(session, tok)

	if err := s.store.SaveSession(ctx, key, session, s.opts.SessionTTL); err != nil {
		return nil, err
	}
	s.publish(ctx, key, domain.AuthChange{Event: domain.AuthSignedIn, Session: session})

	s.log.Info("user signed in",
		logger.String("provider", pending.Provider),
		logger.String("user", user.ID))
	return session, nil
}

// SignOut drops the session. SIGNED_OUT is published even when none was
// stored so every view of the browser converges.
func (s *Service) SignOut(ctx context.Context, key string) error {
	existed, err := s.store.DeleteSession(ctx, key)
	if err != nil {
		return err
	}
	if existed {
		s.log.Info("user signed out")
	}
	s.publish(ctx, key, domain.AuthChange{Event: domain.AuthSignedOut})
	return nil
}

// Refresh renews the provider token of the browser's session and slides
// its expiry. Subscribers receive TOKEN_REFRESHED. A session signed out
// while the token endpoint answers stays signed out and ErrNoSession is
// returned.
func (s *Service) Refresh(ctx context.Context, key string) (*domain.Session, error) {
	session, err := s.store.GetSession(ctx, key)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errs.ErrNoSession
	}
	if session.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	p, ok := s.providers.Get(session.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnknownProvider, session.Provider)
	}

	// Without an access token the source always goes to the token endpoint.
	tok, err := s.config(p).TokenSource(ctx, &oauth2.Token{RefreshToken: session.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	setToken(session, tok)
	session.ExpiresAt = time.Now().UTC().Add(s.opts.SessionTTL)

	// A sign-out during the token round-trip wins over the refresh.
	replaced, err := s.store.ReplaceSession(ctx, key, session, s.opts.SessionTTL)
	if err != nil {
		return nil, err
	}
	if !replaced {
		return nil, errs.ErrNoSession
	}
	s.publish(ctx, key, domain.AuthChange{Event: domain.AuthTokenRefreshed, Session: session})
	return session, nil
}

// Providers returns the configured catalogue.
func (s *Service) Providers() providers.Catalogue { return s.providers }

func (s *Service) config(p providers.Provider) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.AuthURL,
			TokenURL: p.TokenURL,
		},
		RedirectURL: s.opts.RedirectURL,
		Scopes:      p.Scopes,
	}
}

func (s *Service) publish(ctx context.Context, key string, change domain.AuthChange) {
	if err := s.store.PublishAuthChange(ctx, key, change); err != nil {
		s.log.Warn("failed to publish auth event",
			logger.String("event", string(change.Event)),
			logger.Error(err))
	}
}

func setToken(session *domain.Session, tok *oauth2.Token) {
	session.AccessToken = tok.AccessToken
	session.TokenType = tok.Type()
	session.TokenExpiry = tok.Expiry
	if tok.RefreshToken != "" {
		session.RefreshToken = tok.RefreshToken
	}
}
