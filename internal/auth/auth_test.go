package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/Tricked-dev/SolidVerdant/internal/api"
	"github.com/Tricked-dev/SolidVerdant/internal/store"
)

func newTestProvider(t *testing.T, tokenHandler http.HandlerFunc) (*Provider, store.KV) {
	t.Helper()
	kv, err := store.OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	baseURL := "http://127.0.0.1:1"
	if tokenHandler != nil {
		mux := http.NewServeMux()
		mux.HandleFunc("/oauth/token", tokenHandler)
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)
		baseURL = srv.URL
	}

	p := NewProvider(kv, baseURL, "client-id", 52321)
	return p, kv
}

func TestNotLoggedInWithoutSession(t *testing.T) {
	p, _ := newTestProvider(t, nil)
	assert.False(t, p.IsLoggedIn())

	_, err := p.Token(context.Background())
	assert.ErrorIs(t, err, api.ErrAuthExpired)
}

func TestTokenReturnsStoredWhileFresh(t *testing.T) {
	p, _ := newTestProvider(t, nil)
	require.NoError(t, p.save(&oauth2.Token{
		AccessToken:  "a1",
		RefreshToken: "r1",
		Expiry:       time.Now().Add(time.Hour),
	}))

	assert.True(t, p.IsLoggedIn())
	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a1", tok)
}

func TestTokenRefreshesNearExpiry(t *testing.T) {
	var grants int
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		grants++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		assert.Equal(t, "r1", r.FormValue("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"a2","refresh_token":"r2","token_type":"Bearer","expires_in":3600}`)
	})
	require.NoError(t, p.save(&oauth2.Token{
		AccessToken:  "a1",
		RefreshToken: "r1",
		Expiry:       time.Now().Add(5 * time.Second),
	}))

	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a2", tok)
	assert.Equal(t, 1, grants)

	// The rotated refresh token is durable.
	stored, err := p.load()
	require.NoError(t, err)
	assert.Equal(t, "r2", stored.RefreshToken)
}

func TestRejectedRefreshEndsSession(t *testing.T) {
	p, kv := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	})
	require.NoError(t, p.save(&oauth2.Token{
		AccessToken:  "a1",
		RefreshToken: "r1",
		Expiry:       time.Now().Add(-time.Minute),
	}))

	_, err := p.Token(context.Background())
	require.ErrorIs(t, err, api.ErrAuthExpired)
	assert.False(t, p.IsLoggedIn())

	// The tracking state tied to the session goes with it.
	var dummy struct{}
	ok, err := kv.GetJSON(store.PartitionTileState, "optimistic", &dummy)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLogoutClearsSession(t *testing.T) {
	p, _ := newTestProvider(t, nil)
	require.NoError(t, p.save(&oauth2.Token{
		AccessToken:  "a1",
		RefreshToken: "r1",
		Expiry:       time.Now().Add(time.Hour),
	}))
	require.True(t, p.IsLoggedIn())

	require.NoError(t, p.Logout())
	assert.False(t, p.IsLoggedIn())
}

func TestAddrFromRedirect(t *testing.T) {
	assert.Equal(t, "127.0.0.1:52321", addrFromRedirect("http://127.0.0.1:52321/callback"))
}
