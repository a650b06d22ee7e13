package download

import (
	"context"
	"net/url"
)

// Manager defines the interface for downloading plan artifacts.
// It supports batching, de-duplication and integrity verification.
type Manager interface {
	// FetchAll downloads all items, respecting Options (e.g., concurrency and target dir).
	// It returns a map from Item.ID to absolute local file path.
	FetchAll(ctx context.Context, items []Item, opts Options) (map[string]string, error)

	// Fetch downloads a single item to a deterministic location (within opts.Dir).
	// It returns the absolute local file path.
	Fetch(ctx context.Context, item Item, opts Options) (string, error)
}

// Item represents one remote resource to download.
type Item struct {
	ID       string            // stable identifier (e.g., artifact name). Must be unique within a batch.
	URL      *url.URL          // source URL to download
	Headers  map[string]string // extra request headers, e.g. the session Cookie
	Checksum string            // optional hex-encoded SHA-256 checksum; if provided, will be verified
	Filename string            // optional preferred filename; if empty, a name will be derived
}

// Options control the behavior of the download manager.
type Options struct {
	Dir         string // destination directory. Must be absolute.
	Concurrency int    // number of parallel downloads; if <=0, a sane default is used
	// OnItemDone is called after each distinct URL finished, with the number of
	// finished URLs so far and the total. Calls are serialized.
	OnItemDone func(done, total int, id string)
}
