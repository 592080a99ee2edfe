package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloz-systems/gateway/internal/broadcaster"
	"github.com/veloz-systems/gateway/internal/gatewayhttp"
)

func newTestRequestContext(t *testing.T, req *http.Request) (*gatewayhttp.RequestContext, *httptest.ResponseRecorder, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(req.Context())
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return gatewayhttp.NewRequestContext(rec, req, nil), rec, cancel
}

func TestHandleRejectsOverMaxStreams(t *testing.T) {
	b := broadcaster.New(10, nil)
	h := NewHandler(b, WithMaxStreams(1))
	h.active.Add(1)

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil)
	ctx, rec, cancel := newTestRequestContext(t, req)
	defer cancel()

	h.Handle(ctx)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleReplaysHistoryThenStreamsLiveEvents(t *testing.T) {
	b := broadcaster.New(10, nil)
	b.Publish(broadcaster.Event{Type: broadcaster.EventSystem, Data: "past"})

	h := NewHandler(b, WithKeepAlive(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil)
	ctx, rec, cancel := newTestRequestContext(t, req)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Handle(ctx)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(rec.Body.String(), "past")
	}, time.Second, time.Millisecond)

	b.Publish(broadcaster.Event{Type: broadcaster.EventSystem, Data: "live"})
	require.Eventually(t, func() bool {
		return strings.Contains(rec.Body.String(), "live")
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not exit after context cancellation")
	}
}

func TestHandleHonorsLastEventID(t *testing.T) {
	b := broadcaster.New(10, nil)
	b.Publish(broadcaster.Event{Type: broadcaster.EventSystem, Data: "first"})
	b.Publish(broadcaster.Event{Type: broadcaster.EventSystem, Data: "second"})

	h := NewHandler(b, WithKeepAlive(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil)
	req.Header.Set("Last-Event-ID", "1")
	ctx, rec, cancel := newTestRequestContext(t, req)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Handle(ctx)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(rec.Body.String(), "second")
	}, time.Second, time.Millisecond)
	assert.NotContains(t, rec.Body.String(), "first")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not exit after context cancellation")
	}
}

func TestParseLastEventIDDefaultsToZero(t *testing.T) {
	assert.Equal(t, uint64(0), parseLastEventID(""))
	assert.Equal(t, uint64(0), parseLastEventID("garbage"))
	assert.Equal(t, uint64(42), parseLastEventID("42"))
}
