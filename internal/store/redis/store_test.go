package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), mr
}

func testSession(id string, expiry time.Time) *domain.Session {
	return &domain.Session{
		User:         domain.User{ID: id, Email: id + "@example.test"},
		Provider:     "google",
		AccessToken:  "at-" + id,
		RefreshToken: "rt-" + id,
		TokenExpiry:  expiry,
	}
}

func TestStore_SessionRoundTrip(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	got, err := s.GetSession(ctx, "browser-1")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, s.SaveSession(ctx, "browser-1", testSession("u1", time.Now().Add(time.Hour)), time.Hour))
	require.True(t, mr.Exists(SessionKey("browser-1")))
	require.Equal(t, time.Hour, mr.TTL(SessionKey("browser-1")))

	got, err = s.GetSession(ctx, "browser-1")
	require.NoError(t, err)
	require.Equal(t, "u1", got.UserID())

	existed, err := s.DeleteSession(ctx, "browser-1")
	require.NoError(t, err)
	require.True(t, existed)

	existed, err = s.DeleteSession(ctx, "browser-1")
	require.NoError(t, err)
	require.False(t, existed)

	n, err := s.CountSessions(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestStore_ReplaceSessionRequiresExisting(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	ok, err := s.ReplaceSession(ctx, "b", testSession("u1", time.Now().Add(time.Hour)), time.Hour)
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, mr.Exists(SessionKey("b")))
	n, err := s.CountSessions(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, s.SaveSession(ctx, "b", testSession("u1", time.Now().Add(time.Hour)), time.Minute))
	updated := testSession("u1", time.Now().Add(2*time.Hour))
	updated.AccessToken = "at-new"
	ok, err = s.ReplaceSession(ctx, "b", updated, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, time.Hour, mr.TTL(SessionKey("b")))

	got, err := s.GetSession(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, "at-new", got.AccessToken)
}

func TestStore_SessionExpires(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, "b", testSession("u1", time.Now()), time.Minute))
	mr.FastForward(2 * time.Minute)

	got, err := s.GetSession(ctx, "b")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStore_SessionsExpiringBefore(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.SaveSession(ctx, "soon", testSession("u1", now.Add(2*time.Minute)), time.Hour))
	require.NoError(t, s.SaveSession(ctx, "later", testSession("u2", now.Add(2*time.Hour)), time.Hour))
	require.NoError(t, s.SaveSession(ctx, "gone", testSession("u3", now.Add(time.Minute)), time.Hour))
	mr.Del(SessionKey("gone"))

	keys, err := s.SessionsExpiringBefore(ctx, now.Add(10*time.Minute))
	require.NoError(t, err)
	require.Equal(t, []string{"soon"}, keys)

	// Without a refresh token the session is due only when its key expires.
	stuck := testSession("u4", now)
	stuck.RefreshToken = ""
	require.NoError(t, s.SaveSession(ctx, "stuck", stuck, time.Hour))
	keys, err = s.SessionsExpiringBefore(ctx, now.Add(10*time.Minute))
	require.NoError(t, err)
	require.Equal(t, []string{"soon"}, keys)

	// The stale index entry was pruned.
	n, err := s.CountSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestStore_StateIsSingleUse(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	p := PendingSignIn{BrowserKey: "b", Provider: "google", Verifier: "v", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.SaveState(ctx, "st", p, time.Minute))

	got, err := s.TakeState(ctx, "st")
	require.NoError(t, err)
	require.Equal(t, "b", got.BrowserKey)
	require.Equal(t, "v", got.Verifier)

	again, err := s.TakeState(ctx, "st")
	require.NoError(t, err)
	require.Nil(t, again)
}

func TestStore_StateExpires(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveState(ctx, "st", PendingSignIn{BrowserKey: "b"}, time.Minute))
	mr.FastForward(time.Minute + time.Second)

	got, err := s.TakeState(ctx, "st")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStore_PublishAuthChange(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	sub := s.Client().Subscribe(ctx, AuthChannel("b"))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, s.PublishAuthChange(ctx, "b", domain.AuthChange{Event: domain.AuthSignedOut}))

	select {
	case msg := <-sub.Channel():
		require.Contains(t, msg.Payload, `"SIGNED_OUT"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no auth change received")
	}
}

func TestStore_PruneSessionIndex(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, "live", testSession("u1", time.Now()), time.Hour))
	require.NoError(t, s.SaveSession(ctx, "expired", testSession("u2", time.Now()), time.Minute))
	mr.FastForward(2 * time.Minute)

	removed, err := s.PruneSessionIndex(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	n, err := s.CountSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
