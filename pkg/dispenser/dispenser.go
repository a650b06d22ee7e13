// Package dispenser exchanges a device profile for a fresh credential.
package dispenser

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/glorpus-work/apkfetch/pkg/auth"
	"github.com/glorpus-work/apkfetch/pkg/device"
	apkhttp "github.com/glorpus-work/apkfetch/pkg/http"
	"golang.org/x/time/rate"
)

// ErrIssuance wraps every issuance failure.
var ErrIssuance = fmt.Errorf("credential issuance failed")

// Client issues credentials. It does not retry; one call is one request.
type Client struct {
	url     string
	http    apkhttp.Doer
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit throttles issuance calls across every caller of the client.
// A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates an issuance client for the endpoint url.
func NewClient(url string, doer apkhttp.Doer, opts ...Option) *Client {
	c := &Client{url: url, http: doer}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue POSTs the profile's property mapping and parses the credential.
func (c *Client) Issue(ctx context.Context, profile device.Profile) (*auth.Credential, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIssuance, err)
		}
	}

	payload, err := profile.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: encode profile: %w", ErrIssuance, err)
	}

	resp, err := c.http.Do(ctx, http.MethodPost, c.url, bytes.NewReader(payload),
		auth.HeaderAuth{Headers: map[string]string{"Content-Type": "application/json"}})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIssuance, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: status %d", ErrIssuance, resp.StatusCode)
	}

	cred, err := auth.ParseCredential(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIssuance, err)
	}
	return cred, nil
}
