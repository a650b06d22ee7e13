// Package auth provides the credential record and the request-header contract
// shared by every call against the catalog and delivery endpoints.
package auth

import "net/http"

// Authenticator defines the interface for applying authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request) error
	Type() Type
}

// HeaderAuth represents authentication via custom HTTP headers.
type HeaderAuth struct {
	Headers map[string]string
}

// BearerAuth represents Bearer token authentication.
type BearerAuth struct {
	Token string
}

// Chain applies several authenticators in order.
type Chain []Authenticator

// Type represents the type of authentication.
type Type string

// Authentication types.
const (
	// HeaderAuthType represents custom header-based authentication.
	HeaderAuthType Type = "header"
	// BearerAuthType represents Bearer token authentication.
	BearerAuthType Type = "bearer"
	// ChainAuthType represents a sequence of authenticators.
	ChainAuthType Type = "chain"
)

// Apply adds custom headers to the HTTP request.
// Empty values are sent as empty headers, not omitted.
func (h HeaderAuth) Apply(req *http.Request) error {
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}
	return nil
}

// Type returns the authentication type (HeaderAuthType).
func (h HeaderAuth) Type() Type { return HeaderAuthType }

// Apply adds a Bearer token to the Authorization header of the HTTP request.
func (b BearerAuth) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+b.Token)
	return nil
}

// Type returns the authentication type (BearerAuthType).
func (b BearerAuth) Type() Type { return BearerAuthType }

// Apply runs every authenticator; the first error stops the chain.
func (c Chain) Apply(req *http.Request) error {
	for _, a := range c {
		if a == nil {
			continue
		}
		if err := a.Apply(req); err != nil {
			return err
		}
	}
	return nil
}

// Type returns the authentication type (ChainAuthType).
func (c Chain) Type() Type { return ChainAuthType }
