// Package sse implements the GET /api/stream handler from spec 4.11:
// SSE framing, Last-Event-ID replay, and a keep-alive timer raced against
// the subscription's next event. Grounded on the flusher-based single-event
// write and `: keepalive\n\n` comment pattern used by the retrieved
// strongdm-cxdb gateway's SSE proxy.
package sse

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/veloz-systems/gateway/infrastructure/logging"
	"github.com/veloz-systems/gateway/infrastructure/metrics"
	"github.com/veloz-systems/gateway/internal/broadcaster"
	"github.com/veloz-systems/gateway/internal/gatewayhttp"
)

const defaultKeepAlive = 10 * time.Second

// Handler serves GET /api/stream.
type Handler struct {
	broadcaster *broadcaster.Broadcaster
	maxStreams  int64
	keepAlive   time.Duration
	metrics     *metrics.Metrics
	logger      *logging.Logger

	active atomic.Int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithMaxStreams caps the number of concurrently open SSE connections;
// beyond the cap new connections get 503. 0 means unlimited.
func WithMaxStreams(n int64) Option {
	return func(h *Handler) { h.maxStreams = n }
}

// WithKeepAlive overrides the default 10s keep-alive interval.
func WithKeepAlive(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.keepAlive = d
		}
	}
}

// WithMetrics attaches a metrics collector for the active-stream gauge.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithLogger attaches a logger for connection lifecycle events.
func WithLogger(l *logging.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// NewHandler builds an SSE handler over b.
func NewHandler(b *broadcaster.Broadcaster, opts ...Option) *Handler {
	h := &Handler{broadcaster: b, keepAlive: defaultKeepAlive}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ActiveStreams returns the current number of open SSE connections.
func (h *Handler) ActiveStreams() int64 {
	return h.active.Load()
}

// Handle serves a single SSE connection: replay-then-stream.
func (h *Handler) Handle(ctx *gatewayhttp.RequestContext) {
	if h.maxStreams > 0 && h.active.Load() >= h.maxStreams {
		ctx.SendError(http.StatusServiceUnavailable, "engine_unavailable", "too many active streams")
		return
	}

	flusher, ok := ctx.Writer.(http.Flusher)
	if !ok {
		ctx.SendError(http.StatusInternalServerError, "internal", "streaming unsupported by response writer")
		return
	}

	lastSeenID := parseLastEventID(ctx.Request.Header.Get("Last-Event-ID"))

	h.active.Add(1)
	h.setActiveGauge()
	defer func() {
		h.active.Add(-1)
		h.setActiveGauge()
	}()

	header := ctx.Writer.Header()
	header.Set("Content-Type", "text/event-stream; charset=utf-8")
	header.Set("Cache-Control", "no-cache, no-transform")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	ctx.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub, backlog := h.broadcaster.SubscribeWithReplay(lastSeenID)
	defer sub.Close()

	for _, event := range backlog {
		if !writeFrame(ctx.Writer, event) {
			return
		}
		flusher.Flush()
	}

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Request.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if !writeFrame(ctx.Writer, event) {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(ctx.Writer, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) setActiveGauge() {
	if h.metrics != nil {
		h.metrics.SetSSEActiveStreams(int(h.active.Load()))
	}
}

// writeFrame writes a single SSE frame. data must already be a single-line
// UTF-8 JSON string; the broadcaster's publishers are responsible for that.
func writeFrame(w http.ResponseWriter, event broadcaster.Event) bool {
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.ID, event.Type, event.Data)
	return err == nil
}

func parseLastEventID(raw string) uint64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
