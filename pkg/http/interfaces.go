package http

import (
	"context"
	"io"

	"github.com/glorpus-work/apkfetch/pkg/auth"
)

// Doer performs a single authenticated request and buffers the response.
type Doer interface {
	Do(ctx context.Context, method, rawURL string, body io.Reader, authn auth.Authenticator) (*Response, error)
}

// Streamer copies a response body to a writer.
type Streamer interface {
	Stream(ctx context.Context, rawURL string, headers map[string]string, w io.Writer) (int64, error)
}
