package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

var errMissingClientSecret = errors.New("OAuth client secret file not found")

// cachedToken is what gets written to the token file. Besides the token it
// keeps the client id/secret and token endpoint so an expired token can be
// refreshed without the client secret file.
type cachedToken struct {
	oauth2.Token
	ClientID     string   `json:"client_id,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty"`
	TokenURI     string   `json:"token_uri,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
}

func (c *cachedToken) config() *oauth2.Config {
	tokenURL := c.TokenURI
	if tokenURL == "" {
		tokenURL = google.Endpoint.TokenURL
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  google.Endpoint.AuthURL,
			TokenURL: tokenURL,
		},
		Scopes: c.Scopes,
	}
}

// consentFunc runs an interactive authorization for config and returns the
// minted token.
type consentFunc func(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error)

type credentialManager struct {
	*Common
	credentialsFile string
	tokenFile       string
	scopes          []string
	consent         consentFunc
}

func newCredentialManager(common *Common, credentialsFile, tokenFile string) *credentialManager {
	return &credentialManager{
		Common:          common,
		credentialsFile: credentialsFile,
		tokenFile:       tokenFile,
		scopes:          []string{calendar.CalendarScope},
		consent:         getTokenFromWeb,
	}
}

// client returns an HTTP client authorized for the calendar API. The token
// is reused while valid, refreshed when it has a refresh token, and minted
// through the browser consent flow otherwise.
func (m *credentialManager) client(ctx context.Context) (*http.Client, error) {
	tok, err := m.token(ctx)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, m.tokenSource(ctx, tok)), nil
}

// tokenSource refreshes through the cached token's endpoint and writes every
// token it hands out that differs from the cached one back to the token file.
func (m *credentialManager) tokenSource(ctx context.Context, cached *cachedToken) oauth2.TokenSource {
	initial := cached.Token
	return &savingTokenSource{
		Common: m.Common,
		base:   cached.config().TokenSource(ctx, &initial),
		cached: cached,
		path:   m.tokenFile,
	}
}

type savingTokenSource struct {
	*Common
	mu     sync.Mutex
	base   oauth2.TokenSource
	cached *cachedToken
	path   string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken == s.cached.AccessToken {
		return tok, nil
	}
	s.cached.Token = *tok
	if err := saveToken(s.path, s.cached); err != nil {
		// the request can still go through with the new token
		s.logger.Error("Could not save refreshed token", "path", s.path, "err", err)
		return tok, nil
	}
	s.logger.Info("Saved refreshed token", "path", s.path)
	return tok, nil
}

func (m *credentialManager) token(ctx context.Context) (*cachedToken, error) {
	cached, err := tokenFromFile(m.tokenFile)
	if err != nil {
		m.logger.Debug("No usable cached token", "path", m.tokenFile, "err", err)
	}

	switch {
	case cached != nil && cached.Valid():
		m.logger.Debug("Using cached token", "path", m.tokenFile, "expiry", cached.Expiry)
		return cached, nil

	case cached != nil && cached.RefreshToken != "":
		m.logger.Info("Refreshing expired token", "path", m.tokenFile)
		if err := m.refresh(ctx, cached); err != nil {
			return nil, err
		}

	default:
		cached, err = m.authorize(ctx)
		if err != nil {
			return nil, err
		}
	}

	if err := saveToken(m.tokenFile, cached); err != nil {
		return nil, err
	}
	m.logger.Info("Saved credential file", "path", m.tokenFile)
	return cached, nil
}

func (m *credentialManager) refresh(ctx context.Context, cached *cachedToken) error {
	tok, err := cached.config().TokenSource(ctx, &cached.Token).Token()
	if err != nil {
		return fmt.Errorf("Unable to refresh token: %w", err)
	}
	cached.Token = *tok
	return nil
}

// authorize runs the consent flow with the operator's client secret file.
func (m *credentialManager) authorize(ctx context.Context) (*cachedToken, error) {
	b, err := os.ReadFile(m.credentialsFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", errMissingClientSecret, m.credentialsFile)
	}
	if err != nil {
		return nil, fmt.Errorf("Unable to read client secret file: %w", err)
	}

	// If modifying these scopes, delete your previously saved token file.
	config, err := google.ConfigFromJSON(b, m.scopes...)
	if err != nil {
		return nil, fmt.Errorf("Unable to parse client secret file to config: %w", err)
	}

	tok, err := m.consent(ctx, config)
	if err != nil {
		return nil, err
	}
	return &cachedToken{
		Token:        *tok,
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURI:     config.Endpoint.TokenURL,
		Scopes:       config.Scopes,
	}, nil
}

// getTokenFromWeb serves a one-shot redirect endpoint on a loopback port,
// sends the user to the consent page and exchanges the returned code.
func getTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	ch := make(chan string, 1)
	randState := fmt.Sprintf("st%d", time.Now().UnixNano())
	verifier := oauth2.GenerateVerifier()

	ts := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/favicon.ico" {
			http.Error(rw, "", http.StatusNotFound)
			return
		}
		if req.FormValue("state") != randState {
			http.Error(rw, "state mismatch", http.StatusBadRequest)
			return
		}
		if code := req.FormValue("code"); code != "" {
			fmt.Fprintf(rw, "<h1>Success</h1>Authorized. You can close this window.")
			if f, ok := rw.(http.Flusher); ok {
				f.Flush()
			}
			select {
			case ch <- code:
			default:
			}
			return
		}
		http.Error(rw, "no code", http.StatusBadRequest)
	}))
	defer ts.Close()

	config.RedirectURL = ts.URL
	authURL := config.AuthCodeURL(randState, oauth2.AccessTypeOffline,
		oauth2.ApprovalForce, oauth2.S256ChallengeOption(verifier))
	go openURL(authURL)
	fmt.Printf("Authorize this app at: %s\n", authURL)

	var code string
	select {
	case code = <-ch:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for authorization: %w", ctx.Err())
	}

	token, err := config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("Token exchange error: %w", err)
	}
	return token, nil
}

func openURL(url string) {
	try := []string{"xdg-open", "google-chrome", "open"}
	for _, bin := range try {
		if err := exec.Command(bin, url).Run(); err == nil {
			return
		}
	}
}

// Retrieves token from local file.
func tokenFromFile(file string) (*cachedToken, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &cachedToken{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decoding %q: %w", file, err)
	}
	return tok, nil
}

func saveToken(path string, token *cachedToken) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("Unable to cache oauth token: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("Unable to cache oauth token: %w", err)
	}
	return nil
}
