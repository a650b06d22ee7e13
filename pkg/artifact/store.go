// Package artifact keeps finished artifacts in memory until a client picks
// them up. Entries are single use and expire.
package artifact

import (
	"fmt"
	"sync"
	"time"

	"github.com/glorpus-work/apkfetch/pkg/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults for NewStore.
const (
	DefaultCapacity = 32
	DefaultTTL      = 15 * time.Minute
)

// ErrStoreClosed is returned by Put after Close.
var ErrStoreClosed = fmt.Errorf("artifact store is closed")

// Artifact is an assembled package waiting to be served.
type Artifact struct {
	ID        string
	Filename  string
	Data      []byte
	CreatedAt time.Time
}

// Size returns the artifact length in bytes.
func (a *Artifact) Size() int64 { return int64(len(a.Data)) }

// Store is a bounded table of artifacts. The oldest entry is evicted when
// capacity is reached and entries older than the TTL are dropped.
type Store struct {
	mu      sync.Mutex
	entries *expirable.LRU[string, *Artifact]
	closed  bool
}

// NewStore creates a store. Non-positive arguments select the defaults.
func NewStore(capacity int, ttl time.Duration) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		entries: expirable.NewLRU[string, *Artifact](capacity, nil, ttl),
	}
}

// Put stores data and returns its download id.
func (s *Store) Put(filename string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrStoreClosed
	}

	id := uuid.NewString()
	s.entries.Add(id, &Artifact{
		ID:        id,
		Filename:  filename,
		Data:      data,
		CreatedAt: time.Now(),
	})
	return id, nil
}

// Take returns the artifact for id and removes it.
func (s *Store) Take(id string) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.entries.Get(id)
	if !ok {
		return nil, errors.Wrapf(errors.ErrArtifactNotFound, "%s", id)
	}
	s.entries.Remove(id)
	return a, nil
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Len()
}

// Close drops every entry. Later Puts fail.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries.Purge()
}
