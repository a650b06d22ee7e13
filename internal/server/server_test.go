package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glorpus-work/apkfetch/pkg/artifact"
	"github.com/glorpus-work/apkfetch/pkg/model"
	"github.com/glorpus-work/apkfetch/pkg/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	mu       sync.Mutex
	events   []orchestrator.Event
	requests []orchestrator.Request
	fetches  []orchestrator.FetchOptions
}

func (f *fakeEngine) replay(req orchestrator.Request) <-chan orchestrator.Event {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	ch := make(chan orchestrator.Event, len(f.events))
	for _, e := range f.events {
		ch <- e
	}
	close(ch)
	return ch
}

func (f *fakeEngine) Stream(_ context.Context, req orchestrator.Request, _ int) <-chan orchestrator.Event {
	return f.replay(req)
}

func (f *fakeEngine) StreamFetch(_ context.Context, req orchestrator.Request, opts orchestrator.FetchOptions, _ int) <-chan orchestrator.Event {
	f.mu.Lock()
	f.fetches = append(f.fetches, opts)
	f.mu.Unlock()
	return f.replay(req)
}

func readEvents(t *testing.T, body io.Reader) []orchestrator.Event {
	t.Helper()
	var events []orchestrator.Event
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		require.True(t, strings.HasPrefix(line, "data: "), "unexpected line %q", line)
		var e orchestrator.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e))
		events = append(events, e)
	}
	require.NoError(t, scanner.Err())
	return events
}

func newTestServer(t *testing.T, engine Engine, store ArtifactSource) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(engine, store, Options{EventBuffer: 4, Concurrency: 2}).Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestInfoStream(t *testing.T) {
	plan := &model.DownloadPlan{Package: "com.example.app", VersionCode: 12, Primary: model.ArtifactDescriptor{Name: "base", URL: "https://cdn/base"}}
	engine := &fakeEngine{events: []orchestrator.Event{
		{Type: orchestrator.EventProgress, Phase: orchestrator.PhaseCached, Message: "Trying cached token (il)..."},
		{Type: orchestrator.EventSuccess, Plan: plan},
	}}
	ts := newTestServer(t, engine, artifact.NewStore(1, time.Minute))

	resp, err := http.Get(ts.URL + "/api/download-info-stream/com.example.app?arch=armeabi-v7a&region=us&version=%3E%3D1.0")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))

	events := readEvents(t, resp.Body)
	require.Len(t, events, 2)
	assert.Equal(t, orchestrator.EventProgress, events[0].Type)
	assert.Equal(t, orchestrator.PhaseCached, events[0].Phase)
	assert.Equal(t, orchestrator.EventSuccess, events[1].Type)
	require.NotNil(t, events[1].Plan)
	assert.Equal(t, int64(12), events[1].Plan.VersionCode)

	require.Len(t, engine.requests, 1)
	assert.Equal(t, orchestrator.Request{Package: "com.example.app", Device: "armeabi-v7a", Region: "us", Version: ">=1.0"}, engine.requests[0])
}

func TestInfoStream_ErrorEvent(t *testing.T) {
	engine := &fakeEngine{events: []orchestrator.Event{
		{Type: orchestrator.EventError, Kind: model.KindNotFound, Message: "Error: not found"},
	}}
	ts := newTestServer(t, engine, artifact.NewStore(1, time.Minute))

	resp, err := http.Get(ts.URL + "/api/download-info-stream/com.missing")
	require.NoError(t, err)
	defer resp.Body.Close()

	events := readEvents(t, resp.Body)
	require.Len(t, events, 1)
	assert.Equal(t, orchestrator.EventError, events[0].Type)
	assert.Equal(t, model.KindNotFound, events[0].Kind)
	assert.Equal(t, orchestrator.Request{Package: "com.missing"}, engine.requests[0])
}

func TestMergedStream(t *testing.T) {
	engine := &fakeEngine{events: []orchestrator.Event{
		{Type: orchestrator.EventProgress, Phase: orchestrator.PhaseDownload, Current: 1, Total: 2},
		{Type: orchestrator.EventSuccess, DownloadID: "abc", Filename: "com.example.app-5-merged.apk", Size: 42},
	}}
	ts := newTestServer(t, engine, artifact.NewStore(1, time.Minute))

	resp, err := http.Get(ts.URL + "/api/download-merged-stream/com.example.app")
	require.NoError(t, err)
	defer resp.Body.Close()

	events := readEvents(t, resp.Body)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Current)
	assert.Equal(t, 2, events[0].Total)
	assert.Equal(t, "abc", events[1].DownloadID)
	assert.Equal(t, int64(42), events[1].Size)

	require.Len(t, engine.fetches, 1)
	assert.Equal(t, 2, engine.fetches[0].Concurrency)
}

func TestDownloadTemp(t *testing.T) {
	store := artifact.NewStore(2, time.Minute)
	id, err := store.Put("com.example.app-5.apk", []byte("PK\x03\x04apk"))
	require.NoError(t, err)
	ts := newTestServer(t, &fakeEngine{}, store)

	resp, err := http.Get(ts.URL + "/api/download-temp/" + id)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contentTypeAPK, resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="com.example.app-5.apk"`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "PK\x03\x04apk", string(body))

	// One-shot
	resp, err = http.Get(ts.URL + "/api/download-temp/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var errResp errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "Expired", errResp.Error)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, &fakeEngine{}, artifact.NewStore(1, time.Minute))

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "apkfetch_http_requests_total")
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	srv := New(&fakeEngine{}, artifact.NewStore(1, time.Minute), Options{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
