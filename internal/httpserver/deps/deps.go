package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// Pinger is a backing service that answers a liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SignInCompleter finishes the OAuth redirect for a browser.
type SignInCompleter interface {
	CompleteSignIn(ctx context.Context, key, state, code string) (*domain.Session, error)
}

// ChannelStats reports live realtime subscriptions per channel.
type ChannelStats interface {
	Stats() map[string]int
}

// SessionCounter reports how many sessions are stored.
type SessionCounter interface {
	CountSessions(ctx context.Context) (int64, error)
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time   // for testing, defaults to time.Now
	AllowedHosts   []string           // Host headers allowed to access the server
	AllowedCIDRS   []string           // IPs allowed to access healthz/readyz/infra endpoints
	TrustProxy     bool               // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RequestTimeout time.Duration      // per-request timeout, streams excluded
	CookieName     string             // browser key cookie
	CookieSecure   bool               // set Secure on the browser key cookie
	Provider       string             // fixed OAuth provider offered on the page
	ProviderLabel  string             // shown on the sign-in control
	Heartbeat      time.Duration      // SSE heartbeat interval
	RateLimit      mw.RateLimitConfig // auth and mutation routes
	Identity       backend.Identity   // session store and OAuth entry point
	SignIn         SignInCompleter    // OAuth redirect completion
	Data           backend.Data       // bookmark table
	Realtime       backend.Realtime   // bookmark change feed
	Channels       ChannelStats       // nil disables subscription stats
	Sessions       SessionCounter     // nil disables session count
	Redis          Pinger             // Redis connection
	Database       Pinger             // PostgreSQL pool
	RefreshTrigger chan struct{}      // Channel to trigger a manual session refresh pass
	Draining       context.Context    // done once shutdown starts; ends open streams
}

// Now returns the current time through TimeNow when set.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
