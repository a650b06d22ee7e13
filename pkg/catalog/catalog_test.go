package catalog

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glorpus-work/apkfetch/pkg/auth"
	"github.com/glorpus-work/apkfetch/pkg/device"
	apkhttp "github.com/glorpus-work/apkfetch/pkg/http"
	"github.com/glorpus-work/apkfetch/pkg/model"
	"github.com/glorpus-work/apkfetch/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCred = &auth.Credential{AuthToken: "tok", GSFID: "3f1a", DFECookie: "ck"}

type fakeCatalog struct {
	details   func(w http.ResponseWriter, r *http.Request)
	delivery  func(w http.ResponseWriter, r *http.Request)
	purchases atomic.Int32

	mu        sync.Mutex
	purchase  url.Values
	purchaseC string
	deliveryQ url.Values
}

func newFakeCatalog(t *testing.T, f *fakeCatalog) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/fdfe/details", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "3f1a", r.Header.Get("X-DFE-Device-Id"))
		assert.Equal(t, "he-IL", r.Header.Get("Accept-Language"))
		assert.Equal(t, auth.ContentTypeProtobuf, r.Header.Get("Accept"))
		f.details(w, r)
	})
	mux.HandleFunc("/fdfe/purchase", func(w http.ResponseWriter, r *http.Request) {
		f.purchases.Add(1)
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.purchase, _ = url.ParseQuery(string(body))
		f.purchaseC = r.Header.Get("Content-Type")
		f.mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/fdfe/delivery", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deliveryQ = r.URL.Query()
		f.mu.Unlock()
		f.delivery(w, r)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL+"/fdfe/", apkhttp.NewClient(5*time.Second))
}

func writeBytes(b []byte) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write(b) }
}

func writeStatus(status int) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(status) }
}

var okDetails = wire.EncodeDetails(wire.Details{DocID: "com.example.app", Title: "Example", VersionCode: 42, VersionString: "1.4.2"})

func TestClient_Resolve(t *testing.T) {
	f := &fakeCatalog{
		details: writeBytes(okDetails),
		delivery: writeBytes(wire.EncodeDelivery(wire.Delivery{
			DownloadURL:  "https://cdn.example/base",
			DownloadSize: 2048,
			Cookies:      []wire.Cookie{{Name: "DRM", Value: "abc"}},
			Splits: []wire.Split{
				{Name: "config.arm64_v8a", DownloadURL: "https://cdn.example/arm64"},
				{DownloadURL: "https://cdn.example/unnamed"},
				{Name: "config.empty"},
			},
		})),
	}
	c := newFakeCatalog(t, f)

	plan, err := c.Resolve(context.Background(), "com.example.app", testCred, device.LookupRegion("il"))
	require.NoError(t, err)

	assert.Equal(t, "com.example.app", plan.Package)
	assert.Equal(t, "Example", plan.Title)
	assert.Equal(t, int64(42), plan.VersionCode)
	assert.Equal(t, "1.4.2", plan.VersionString)
	assert.Equal(t, model.ArtifactDescriptor{Name: "base", URL: "https://cdn.example/base", Size: 2048}, plan.Primary)
	assert.Equal(t, []model.ArtifactDescriptor{
		{Name: "config.arm64_v8a", URL: "https://cdn.example/arm64"},
		{Name: "split1", URL: "https://cdn.example/unnamed"},
	}, plan.Secondaries)
	assert.Equal(t, []model.Cookie{{Name: "DRM", Value: "abc"}}, plan.Cookies)
	require.NoError(t, plan.Validate())

	// The purchase call is made but its failure is ignored.
	assert.Equal(t, int32(1), f.purchases.Load())
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, auth.ContentTypeForm, f.purchaseC)
	assert.Equal(t, "com.example.app", f.purchase.Get("doc"))
	assert.Equal(t, "1", f.purchase.Get("ot"))
	assert.Equal(t, "42", f.purchase.Get("vc"))
	assert.Equal(t, "42", f.deliveryQ.Get("vc"))
}

func TestClient_ResolveFailures(t *testing.T) {
	tests := []struct {
		name     string
		details  func(http.ResponseWriter, *http.Request)
		delivery func(http.ResponseWriter, *http.Request)
		kind     model.Kind
		detail   string
	}{
		{
			name:    "no document",
			details: writeBytes(wire.EncodeDetails(wire.Details{})),
			kind:    model.KindNotFound,
			detail:  "no document (check region)",
		},
		{
			name:    "no document with server message",
			details: writeBytes(wire.EncodeDetails(wire.Details{ServerMessage: "Item not found."})),
			kind:    model.KindNotFound,
			detail:  "Item not found.",
		},
		{
			name:    "zero version code",
			details: writeBytes(wire.EncodeDetails(wire.Details{DocID: "com.example.app"})),
			kind:    model.KindRegionRestricted,
		},
		{
			name:     "no download url",
			details:  writeBytes(okDetails),
			delivery: writeBytes(wire.EncodeDelivery(wire.Delivery{Status: 2})),
			kind:     model.KindProtocol,
		},
		{name: "malformed details", details: writeBytes([]byte{0xff, 0xff}), kind: model.KindProtocol},
		{name: "details 404", details: writeStatus(http.StatusNotFound), kind: model.KindNotFound},
		{name: "details 500", details: writeStatus(http.StatusInternalServerError), kind: model.KindNetwork},
		{name: "details 429", details: writeStatus(http.StatusTooManyRequests), kind: model.KindNetwork},
		{name: "details 408", details: writeStatus(http.StatusRequestTimeout), kind: model.KindNetwork},
		{name: "details 401", details: writeStatus(http.StatusUnauthorized), kind: model.KindProtocol},
		{name: "delivery 503", details: writeBytes(okDetails), delivery: writeStatus(http.StatusServiceUnavailable), kind: model.KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var deliveries atomic.Int32
			f := &fakeCatalog{details: tt.details, delivery: func(w http.ResponseWriter, r *http.Request) {
				deliveries.Add(1)
				if tt.delivery == nil {
					t.Error("unexpected delivery call")
					return
				}
				tt.delivery(w, r)
			}}
			c := newFakeCatalog(t, f)

			plan, err := c.Resolve(context.Background(), "com.example.app", testCred, device.LookupRegion("il"))
			require.Error(t, err)
			assert.Nil(t, plan)

			var failure *model.Failure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, tt.kind, failure.Kind)
			if tt.detail != "" {
				assert.Equal(t, tt.detail, failure.Detail)
			}
			if tt.delivery == nil {
				assert.Zero(t, deliveries.Load())
			}
		})
	}
}

func TestClient_ResolveTransportErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := ts.URL
	ts.Close()

	c := NewClient(base, apkhttp.NewClient(time.Second))
	_, err := c.Resolve(context.Background(), "com.example.app", testCred, device.LookupRegion("us"))
	assert.Equal(t, model.KindNetwork, model.KindOf(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Resolve(ctx, "com.example.app", testCred, device.LookupRegion("us"))
	assert.ErrorIs(t, err, model.ErrCancelled)
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	c := NewClient("", apkhttp.NewClient(time.Second))
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}
