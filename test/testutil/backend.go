// Package testutil provides a scripted fake of the issuance, catalog and
// artifact endpoints for end-to-end tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/glorpus-work/apkfetch/pkg/archive"
	"github.com/glorpus-work/apkfetch/pkg/wire"
	"github.com/stretchr/testify/require"
)

// Cookie every delivery response carries and every artifact request must send.
const (
	CookieName  = "DRM"
	CookieValue = "test-session"
)

// App is an application known to the fake catalog.
type App struct {
	Package       string
	Title         string
	VersionCode   int64
	VersionString string
	Primary       []byte
	Secondaries   []Split
}

// Split is a named secondary artifact.
type Split struct {
	Name string
	Data []byte
}

// Counts reports how often each endpoint was hit.
type Counts struct {
	Issued     int
	Details    int
	Purchases  int
	Deliveries int
	Artifacts  int
}

// Backend is an httptest server playing dispenser, catalog and CDN.
type Backend struct {
	Server *httptest.Server
	URL    string

	mu           sync.Mutex
	apps         map[string]App
	counts       Counts
	failIssuance int
	acceptFrom   int
	pinned       map[string]bool
}

// NewBackend starts a backend that is closed with the test.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		apps:       map[string]App{},
		acceptFrom: 1,
		pinned:     map[string]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/dispense", b.handleDispense)
	mux.HandleFunc("/fdfe/details", b.handleDetails)
	mux.HandleFunc("/fdfe/purchase", b.handlePurchase)
	mux.HandleFunc("/fdfe/delivery", b.handleDelivery)
	mux.HandleFunc("/cdn/", b.handleArtifact)

	b.Server = httptest.NewServer(mux)
	b.URL = b.Server.URL
	t.Cleanup(b.Server.Close)
	return b
}

// DispenserURL is the issuance endpoint.
func (b *Backend) DispenserURL() string { return b.URL + "/dispense" }

// APIBaseURL is the catalog root.
func (b *Backend) APIBaseURL() string { return b.URL + "/fdfe" }

// AddApp registers an application.
func (b *Backend) AddApp(app App) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.apps[app.Package] = app
}

// FailIssuance makes the next n issuance calls fail with 503.
func (b *Backend) FailIssuance(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failIssuance = n
}

// AcceptTokensFrom makes the catalog reject every token issued before the
// n-th one with a zero version code.
func (b *Backend) AcceptTokensFrom(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.acceptFrom = n
}

// AcceptToken marks an externally supplied token as valid.
func (b *Backend) AcceptToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pinned[token] = true
}

// Counts returns a snapshot of the endpoint counters.
func (b *Backend) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Credential returns the JSON record the dispenser would issue as token n.
func Credential(n int) string {
	return fmt.Sprintf(`{"authToken":"token-%d","gsfId":"%x","deviceInfoProvider":{"userAgentString":"Android-Finsky/test"}}`, n, 0x3f1a0000+n)
}

func (b *Backend) handleDispense(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var profile map[string]string
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	if b.failIssuance > 0 {
		b.failIssuance--
		b.mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	b.counts.Issued++
	n := b.counts.Issued
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(Credential(n)))
}

// accepted reports whether the bearer token may see real documents.
func (b *Backend) accepted(r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pinned[token] {
		return true
	}
	n, err := strconv.Atoi(strings.TrimPrefix(token, "token-"))
	return err == nil && n >= b.acceptFrom
}

func (b *Backend) lookup(r *http.Request) (App, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	app, ok := b.apps[r.URL.Query().Get("doc")]
	return app, ok
}

func (b *Backend) handleDetails(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.counts.Details++
	b.mu.Unlock()

	app, ok := b.lookup(r)
	if !ok {
		_, _ = w.Write(wire.EncodeDetails(wire.Details{ServerMessage: "Item not found."}))
		return
	}

	d := wire.Details{DocID: app.Package, Title: app.Title, VersionString: app.VersionString}
	if b.accepted(r) {
		d.VersionCode = app.VersionCode
	}
	_, _ = w.Write(wire.EncodeDetails(d))
}

func (b *Backend) handlePurchase(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	b.counts.Purchases++
	b.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) handleDelivery(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.counts.Deliveries++
	b.mu.Unlock()

	app, ok := b.lookup(r)
	if !ok || !b.accepted(r) {
		_, _ = w.Write(wire.EncodeDelivery(wire.Delivery{Status: 2}))
		return
	}

	d := wire.Delivery{
		DownloadURL:  b.artifactURL(app.Package, "base"),
		DownloadSize: int64(len(app.Primary)),
		Cookies:      []wire.Cookie{{Name: CookieName, Value: CookieValue}},
	}
	for _, s := range app.Secondaries {
		d.Splits = append(d.Splits, wire.Split{Name: s.Name, DownloadURL: b.artifactURL(app.Package, s.Name), DownloadSize: int64(len(s.Data))})
	}
	_, _ = w.Write(wire.EncodeDelivery(d))
}

func (b *Backend) artifactURL(pkg, name string) string {
	return fmt.Sprintf("%s/cdn/%s/%s", b.URL, pkg, name)
}

func (b *Backend) handleArtifact(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Cookie") != CookieName+"="+CookieValue {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/cdn/"), "/")
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	b.mu.Lock()
	b.counts.Artifacts++
	app, ok := b.apps[parts[0]]
	b.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	data := app.Primary
	if parts[1] != "base" {
		data = nil
		for _, s := range app.Secondaries {
			if s.Name == parts[1] {
				data = s.Data
			}
		}
	}
	if data == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// BuildAPK returns a zip archive with the given files.
func BuildAPK(t *testing.T, files map[string]string) []byte {
	t.Helper()
	entries := make([]archive.Entry, 0, len(files))
	for name, content := range files {
		entries = append(entries, archive.Entry{Name: name, Data: []byte(content)})
	}
	var buf bytes.Buffer
	require.NoError(t, archive.WriteEntries(context.Background(), &buf, entries))
	return buf.Bytes()
}

// ReadAPK returns the files of a zip archive by name.
func ReadAPK(t *testing.T, data []byte) map[string]string {
	t.Helper()
	entries, err := archive.ReadEntries(context.Background(), data)
	require.NoError(t, err)
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Name] = string(e.Data)
	}
	return out
}
