package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

var (
	ErrMissingClientID     = errors.New("client_id is not configured")
	ErrProviderNotReady    = errors.New("auth provider is still loading")
	ErrProviderUnavailable = errors.New("auth provider failed to load")
)

// Consent is what the provider reported back for one login attempt. Either
// Token or Error is set; a callback with neither is treated as an error.
type Consent struct {
	Token       string
	Error       string
	Description string
}

// ConsentError carries the provider's raw error code and description.
type ConsentError struct {
	Code        string
	Description string
}

func (e *ConsentError) Error() string {
	if e.Description == "" {
		return "consent failed: " + e.Code
	}
	return fmt.Sprintf("consent failed: %s: %s", e.Code, e.Description)
}

// AuthProvider is the identity provider as seen by the session.
type AuthProvider interface {
	// OnReady is closed once the provider has finished loading, whether or
	// not loading succeeded.
	OnReady() <-chan struct{}
	// Login returns the consent URL for a new attempt.
	Login(attempt string) (string, error)
	// Redeem turns the consent callback into a Consent.
	Redeem(ctx context.Context, callback url.Values) Consent
	// Logout revokes token on the provider side.
	Logout(ctx context.Context, token string) error
}

func isReady(p AuthProvider) bool {
	select {
	case <-p.OnReady():
		return true
	default:
		return false
	}
}
