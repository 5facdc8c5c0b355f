package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	oauth2api "google.golang.org/api/oauth2/v2"
)

const defaultRevokeURL = "https://oauth2.googleapis.com/revoke"

var googleScopes = []string{calendar.CalendarEventsReadonlyScope, oauth2api.UserinfoProfileScope}

type discoveryDocument struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	RevocationEndpoint    string `json:"revocation_endpoint"`
}

// GoogleProvider runs the authorization code flow against Google with PKCE.
// Its endpoints come from the OpenID discovery document, loaded once at
// startup; an empty discovery URL uses the built-in google.Endpoint.
type GoogleProvider struct {
	clientID     string
	clientSecret string
	redirectURL  string
	discoveryURL string
	timeout      time.Duration
	httpClient   *http.Client
	log          *zap.Logger

	ready    chan struct{}
	loadOnce sync.Once

	mu          sync.Mutex
	oauthConfig *oauth2.Config
	revokeURL   string
	loadErr     error
	verifiers   map[string]string
}

func NewGoogleProvider(config *Config, redirectURL string, log *zap.Logger) *GoogleProvider {
	return &GoogleProvider{
		clientID:     config.ClientID,
		clientSecret: config.ClientSecret,
		redirectURL:  redirectURL,
		discoveryURL: config.DiscoveryURL,
		timeout:      config.RequestTimeout.Duration,
		httpClient:   &http.Client{},
		log:          log.Named("auth"),
		ready:        make(chan struct{}),
		verifiers:    make(map[string]string),
	}
}

func (p *GoogleProvider) OnReady() <-chan struct{} {
	return p.ready
}

// Load resolves the provider endpoints. Only the first call does any work;
// OnReady is closed when it returns.
func (p *GoogleProvider) Load(ctx context.Context) error {
	p.loadOnce.Do(func() {
		defer close(p.ready)
		cfg, revokeURL, err := p.load(ctx)

		p.mu.Lock()
		defer p.mu.Unlock()
		p.oauthConfig, p.revokeURL, p.loadErr = cfg, revokeURL, err
		if err != nil {
			p.log.Error("auth provider failed to load", zap.Error(err))
			return
		}
		p.log.Info("auth provider ready", zap.String("auth_url", cfg.Endpoint.AuthURL))
	})
	return p.Err()
}

func (p *GoogleProvider) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadErr
}

func (p *GoogleProvider) load(ctx context.Context) (*oauth2.Config, string, error) {
	if p.clientID == "" {
		return nil, "", ErrMissingClientID
	}
	cfg := &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  p.redirectURL,
		Scopes:       googleScopes,
	}
	if p.discoveryURL == "" {
		return cfg, defaultRevokeURL, nil
	}

	doc, err := p.fetchDiscovery(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	cfg.Endpoint = oauth2.Endpoint{
		AuthURL:   doc.AuthorizationEndpoint,
		TokenURL:  doc.TokenEndpoint,
		AuthStyle: oauth2.AuthStyleInParams,
	}
	revokeURL := doc.RevocationEndpoint
	if revokeURL == "" {
		revokeURL = defaultRevokeURL
	}
	return cfg, revokeURL, nil
}

func (p *GoogleProvider) fetchDiscovery(ctx context.Context) (*discoveryDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.discoveryURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery returned status %d", resp.StatusCode)
	}

	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}
	if doc.AuthorizationEndpoint == "" || doc.TokenEndpoint == "" {
		return nil, errors.New("discovery document lacks authorization or token endpoint")
	}
	return &doc, nil
}

func (p *GoogleProvider) config() (*oauth2.Config, string, error) {
	if !isReady(p) {
		return nil, "", ErrProviderNotReady
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loadErr != nil {
		return nil, "", p.loadErr
	}
	return p.oauthConfig, p.revokeURL, nil
}

// Login starts a new attempt. Only one attempt is live at a time, so older
// verifiers are dropped.
func (p *GoogleProvider) Login(attempt string) (string, error) {
	cfg, _, err := p.config()
	if err != nil {
		return "", err
	}
	verifier := oauth2.GenerateVerifier()

	p.mu.Lock()
	p.verifiers = map[string]string{attempt: verifier}
	p.mu.Unlock()

	return cfg.AuthCodeURL(attempt, oauth2.S256ChallengeOption(verifier)), nil
}

func (p *GoogleProvider) takeVerifier(attempt string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.verifiers[attempt]
	delete(p.verifiers, attempt)
	return v
}

func (p *GoogleProvider) Redeem(ctx context.Context, callback url.Values) Consent {
	if code := callback.Get("error"); code != "" {
		p.takeVerifier(callback.Get("state"))
		return Consent{Error: code, Description: callback.Get("error_description")}
	}

	verifier := p.takeVerifier(callback.Get("state"))
	if verifier == "" {
		return Consent{Error: "invalid_state", Description: "unknown or already used login attempt"}
	}
	code := callback.Get("code")
	if code == "" {
		return Consent{}
	}

	cfg, _, err := p.config()
	if err != nil {
		return Consent{Error: "provider_unavailable", Description: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
			return Consent{Error: retrieveErr.ErrorCode, Description: retrieveErr.ErrorDescription}
		}
		return Consent{Error: "token_exchange_failed", Description: err.Error()}
	}
	return Consent{Token: token.AccessToken}
}

// Logout asks the provider to revoke token.
func (p *GoogleProvider) Logout(ctx context.Context, token string) error {
	_, revokeURL, err := p.config()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke returned status %d", resp.StatusCode)
	}
	return nil
}
