// Package auth implements the OAuth2/PKCE session against a Solidtime
// instance. The rest of the system only sees login state and bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Tricked-dev/SolidVerdant/internal/api"
	"github.com/Tricked-dev/SolidVerdant/internal/store"
	"github.com/atotto/clipboard"
	"github.com/brimstone/logger"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

var log = logger.New()

const keyToken = "token"

// expirySkew refreshes tokens slightly before they really expire so a call
// in flight does not race the deadline.
const expirySkew = 30 * time.Second

type storedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
}

// Provider owns the auth partition and satisfies api.TokenProvider.
type Provider struct {
	kv   store.KV
	conf *oauth2.Config
	now  func() time.Time
	mu   sync.Mutex
}

func NewProvider(kv store.KV, baseURL, clientID string, redirectPort int) *Provider {
	if baseURL == "" {
		baseURL = api.DefaultBaseURL
	}
	return &Provider{
		kv: kv,
		conf: &oauth2.Config{
			ClientID: clientID,
			Endpoint: oauth2.Endpoint{
				AuthURL:  baseURL + "/oauth/authorize",
				TokenURL: baseURL + "/oauth/token",
			},
			RedirectURL: fmt.Sprintf("http://127.0.0.1:%d/callback", redirectPort),
		},
		now: time.Now,
	}
}

func (p *Provider) IsLoggedIn() bool {
	var tok storedToken
	ok, err := p.kv.GetJSON(store.PartitionAuth, keyToken, &tok)
	return err == nil && ok && tok.RefreshToken != ""
}

// Login runs the PKCE authorization-code flow: the URL is printed and copied
// to the clipboard, and a loopback listener catches the redirect.
func (p *Provider) Login(ctx context.Context) error {
	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()
	authURL := p.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	if err := clipboard.WriteAll(authURL); err != nil {
		log.Debug("clipboard write failed",
			log.Field("err", err),
		)
	}
	fmt.Println("Open this URL in your browser (it is also on your clipboard):")
	fmt.Println(authURL)

	code, err := p.waitForCallback(ctx, state)
	if err != nil {
		return err
	}

	tok, err := p.conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}
	return p.save(tok)
}

// waitForCallback serves the loopback redirect endpoint until a code arrives
// or the context ends.
func (p *Provider) waitForCallback(ctx context.Context, state string) (string, error) {
	ln, err := net.Listen("tcp", addrFromRedirect(p.conf.RedirectURL))
	if err != nil {
		return "", fmt.Errorf("listen for callback: %w", err)
	}

	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			results <- result{err: errors.New("state mismatch in callback")}
			return
		}
		fmt.Fprintln(w, "Logged in. You can close this window.")
		results <- result{code: q.Get("code")}
	})}
	go srv.Serve(ln)
	defer srv.Close()

	select {
	case res := <-results:
		return res.code, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func addrFromRedirect(redirectURL string) string {
	// RedirectURL is always http://127.0.0.1:PORT/callback.
	var port int
	fmt.Sscanf(redirectURL, "http://127.0.0.1:%d/callback", &port)
	return fmt.Sprintf("127.0.0.1:%d", port)
}

// Token returns a valid access token, refreshing when the stored one is
// within the skew of expiring.
func (p *Provider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tok, err := p.load()
	if err != nil {
		return "", err
	}
	if tok.AccessToken != "" && p.now().Add(expirySkew).Before(tok.Expiry) {
		return tok.AccessToken, nil
	}
	return p.refreshLocked(ctx, tok)
}

// Refresh forces a new access token regardless of the stored expiry. A
// rejected refresh grant ends the session.
func (p *Provider) Refresh(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tok, err := p.load()
	if err != nil {
		return "", err
	}
	return p.refreshLocked(ctx, tok)
}

func (p *Provider) refreshLocked(ctx context.Context, tok storedToken) (string, error) {
	if tok.RefreshToken == "" {
		p.clearSession()
		return "", api.ErrAuthExpired
	}
	src := p.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken})
	fresh, err := src.Token()
	if err != nil {
		p.clearSession()
		return "", fmt.Errorf("%w: %v", api.ErrAuthExpired, err)
	}
	if err := p.save(fresh); err != nil {
		log.Debug("token save failed",
			log.Field("err", err),
		)
	}
	return fresh.AccessToken, nil
}

// Logout drops the session and the tracking state that belonged to it.
func (p *Provider) Logout() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearSession()
	return nil
}

func (p *Provider) load() (storedToken, error) {
	var tok storedToken
	ok, err := p.kv.GetJSON(store.PartitionAuth, keyToken, &tok)
	if err != nil {
		return tok, fmt.Errorf("%w: %v", api.ErrAuthExpired, err)
	}
	if !ok {
		return tok, api.ErrAuthExpired
	}
	return tok, nil
}

func (p *Provider) save(tok *oauth2.Token) error {
	return p.kv.SetJSON(store.PartitionAuth, keyToken, storedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	})
}

func (p *Provider) clearSession() {
	if err := p.kv.RemovePartition(store.PartitionAuth); err != nil {
		log.Debug("auth clear failed",
			log.Field("err", err),
		)
	}
	if err := p.kv.RemovePartition(store.PartitionTileState); err != nil {
		log.Debug("tilestate clear failed",
			log.Field("err", err),
		)
	}
}
