package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	svcerrors "github.com/veloz-systems/gateway/infrastructure/errors"
	"github.com/veloz-systems/gateway/infrastructure/logging"
	"github.com/veloz-systems/gateway/infrastructure/metrics"
	"github.com/veloz-systems/gateway/internal/broadcaster"
)

const defaultOutboundBuffer = 256

// connState is the bridge's own connection-state enum, kept distinct from
// metrics.BridgeState (which documents why it mirrors this one without
// importing this package) to avoid a dependency cycle.
type connState int32

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

func (s connState) toMetrics() metrics.BridgeState {
	switch s {
	case stateConnecting:
		return metrics.BridgeConnecting
	case stateConnected:
		return metrics.BridgeConnected
	default:
		return metrics.BridgeDisconnected
	}
}

// BackoffConfig configures the supervisor's reconnect backoff: exponential
// with jitter, capped. Adapted from the teacher's resilience.RetryConfig,
// generalized from a bounded retry count to an indefinite reconnect loop
// (the bridge keeps trying until Close, per spec 4.9's "optionally restarts
// the child after a backoff").
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// DefaultBackoffConfig returns sensible defaults for the engine subprocess.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    200 * time.Millisecond,
		Max:        30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.2,
	}
}

func nextDelay(current time.Duration, cfg BackoffConfig) time.Duration {
	next := time.Duration(float64(current) * cfg.Multiplier)
	if next > cfg.Max {
		return cfg.Max
	}
	return next
}

func addJitter(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return d
	}
	delta := float64(d) * jitter
	return d + time.Duration(rand.Float64()*delta*2-delta)
}

type pendingRequest struct {
	done chan pendingResult
}

type pendingResult struct {
	raw json.RawMessage
	err error
}

// Bridge supervises the engine subprocess and mediates all command/event
// traffic with it, per spec 4.9.
type Bridge struct {
	path string
	args []string

	backoff        BackoffConfig
	outboundBuffer int

	broadcaster *broadcaster.Broadcaster
	state       *StateMirror
	metrics     *metrics.Metrics
	logger      *logging.Logger

	mu        sync.Mutex
	sp        *subprocess
	connState connState
	outbound  chan []byte

	pendingMu sync.Mutex
	pending   map[uint64]*pendingRequest

	nextCorr atomic.Uint64

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithBackoff overrides the default reconnect backoff schedule.
func WithBackoff(cfg BackoffConfig) Option {
	return func(b *Bridge) { b.backoff = cfg }
}

// WithOutboundBuffer overrides the default outbound command queue depth.
func WithOutboundBuffer(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.outboundBuffer = n
		}
	}
}

// WithMetrics attaches a metrics collector for the connection-state gauge.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// WithLogger attaches a logger for engine events and state transitions.
func WithLogger(l *logging.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// New builds a Bridge that will spawn path/args and publish engine events
// onto bc. Call Start to begin supervision.
func New(path string, args []string, bc *broadcaster.Broadcaster, opts ...Option) *Bridge {
	b := &Bridge{
		path:           path,
		args:           args,
		backoff:        DefaultBackoffConfig(),
		outboundBuffer: defaultOutboundBuffer,
		broadcaster:    bc,
		state:          NewStateMirror(),
		pending:        make(map[uint64]*pendingRequest),
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start launches the supervision loop in the background.
func (b *Bridge) Start() {
	go b.run()
}

// Close stops supervision, kills any running child, and fails all pending
// requests. Safe to call more than once.
func (b *Bridge) Close() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		b.mu.Lock()
		sp := b.sp
		b.mu.Unlock()
		if sp != nil {
			sp.kill()
		}
	})
	<-b.doneCh
}

// Connected reports whether the engine subprocess is currently connected.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connState == stateConnected
}

// Mirror returns the bridge's state mirror (positions/orders/account).
func (b *Bridge) Mirror() *StateMirror {
	return b.state
}

func (b *Bridge) run() {
	defer close(b.doneCh)

	delay := b.backoff.Initial
	for {
		select {
		case <-b.stopCh:
			return
		default:
		}

		b.setState(stateConnecting)
		sp, err := startSubprocess(b.path, b.args)
		if err != nil {
			if b.logger != nil {
				b.logger.LogBridgeState(context.Background(), stateConnecting.String(), stateDisconnected.String(), err)
			}
			b.setState(stateDisconnected)
			if !b.sleep(delay) {
				return
			}
			delay = nextDelay(delay, b.backoff)
			continue
		}

		delay = b.backoff.Initial

		outboundCh := make(chan []byte, b.outboundBuffer)
		b.mu.Lock()
		b.sp = sp
		b.outbound = outboundCh
		b.mu.Unlock()

		b.state.BumpGeneration()
		b.setState(stateConnected)

		connDone := make(chan struct{})
		go b.writerLoop(sp, outboundCh, connDone)

		b.readerLoop(sp)
		close(connDone)

		sp.kill()
		<-sp.Exited()

		b.mu.Lock()
		b.sp = nil
		b.outbound = nil
		b.mu.Unlock()

		b.setState(stateDisconnected)
		b.failAllPending()

		select {
		case <-b.stopCh:
			return
		default:
		}

		if !b.sleep(delay) {
			return
		}
		delay = nextDelay(delay, b.backoff)
	}
}

func (b *Bridge) sleep(d time.Duration) bool {
	select {
	case <-time.After(addJitter(d, b.backoff.Jitter)):
		return true
	case <-b.stopCh:
		return false
	}
}

func (b *Bridge) setState(next connState) {
	b.mu.Lock()
	prev := b.connState
	b.connState = next
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.SetBridgeConnectionState(next.toMetrics())
	}
	if b.logger != nil && prev != next {
		b.logger.LogBridgeState(context.Background(), prev.String(), next.String(), nil)
	}
}

func (b *Bridge) writerLoop(sp *subprocess, jobs <-chan []byte, connDone <-chan struct{}) {
	for {
		select {
		case <-connDone:
			return
		case line, ok := <-jobs:
			if !ok {
				return
			}
			if err := sp.writeLine(line); err != nil {
				return
			}
		}
	}
}

func (b *Bridge) readerLoop(sp *subprocess) {
	for sp.scan() {
		line := append([]byte(nil), sp.bytes()...)
		msg, err := decodeInbound(line)
		if err != nil {
			continue
		}
		if msg.Corr != nil {
			b.resolvePending(*msg.Corr, msg.Raw, nil)
			continue
		}
		b.handleEvent(msg)
	}
}

func (b *Bridge) resolvePending(corr uint64, raw json.RawMessage, err error) {
	b.pendingMu.Lock()
	req, ok := b.pending[corr]
	if ok {
		delete(b.pending, corr)
	}
	b.pendingMu.Unlock()

	if ok {
		req.done <- pendingResult{raw: raw, err: err}
	}
}

func (b *Bridge) failAllPending() {
	b.pendingMu.Lock()
	pending := b.pending
	b.pending = make(map[uint64]*pendingRequest)
	b.pendingMu.Unlock()

	for _, req := range pending {
		req.done <- pendingResult{err: svcerrors.EngineUnavailable(errors.New("engine disconnected"))}
	}
}

func (b *Bridge) handleEvent(msg inboundMessage) {
	var evType broadcaster.EventType
	switch msg.Type {
	case "market-data", "market_data":
		evType = broadcaster.EventMarketData
	case "order-update", "order_update":
		evType = broadcaster.EventOrderUpdate
		b.applyOrderUpdate(msg.Raw)
	case "position":
		evType = broadcaster.EventAccount
		b.applyPositionUpdate(msg.Raw)
	case "account":
		evType = broadcaster.EventAccount
		b.applyAccountUpdate(msg.Raw)
	case "error":
		evType = broadcaster.EventError
	default:
		evType = broadcaster.EventSystem
	}

	if b.broadcaster != nil {
		b.broadcaster.Publish(broadcaster.Event{Type: evType, Data: string(msg.Raw)})
	}
	if b.logger != nil {
		b.logger.LogEngineEvent(context.Background(), msg.Type, 0)
	}
}

func (b *Bridge) applyOrderUpdate(raw json.RawMessage) {
	var o OrderState
	if err := json.Unmarshal(raw, &o); err != nil {
		return
	}
	if o.UpdatedAtNs == 0 {
		o.UpdatedAtNs = time.Now().UnixNano()
	}
	b.state.UpdateOrder(o)
}

func (b *Bridge) applyPositionUpdate(raw json.RawMessage) {
	var p Position
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	if p.UpdatedAtNs == 0 {
		p.UpdatedAtNs = time.Now().UnixNano()
	}
	b.state.UpdatePosition(p)
}

func (b *Bridge) applyAccountUpdate(raw json.RawMessage) {
	var a AccountState
	if err := json.Unmarshal(raw, &a); err != nil {
		return
	}
	if a.LastUpdateNs == 0 {
		a.LastUpdateNs = time.Now().UnixNano()
	}
	b.state.UpdateAccount(a)
}

// enqueue attempts a non-blocking send onto the live connection's outbound
// queue. Returns false (without blocking the caller) if disconnected or if
// the queue is momentarily full.
func (b *Bridge) enqueue(line []byte) bool {
	b.mu.Lock()
	ch := b.outbound
	state := b.connState
	b.mu.Unlock()

	if state != stateConnected || ch == nil {
		return false
	}

	select {
	case ch <- line:
		return true
	default:
		return false
	}
}

// doRequest sends op/params to the engine with a fresh correlation id and
// awaits the matching reply or ctx's deadline, whichever comes first. A
// fired timeout removes the pending entry atomically so any late reply is
// dropped per spec 5's cancellation policy.
func (b *Bridge) doRequest(ctx context.Context, op string, params map[string]interface{}) (json.RawMessage, error) {
	corr := b.nextCorr.Add(1)
	req := &pendingRequest{done: make(chan pendingResult, 1)}

	b.pendingMu.Lock()
	b.pending[corr] = req
	b.pendingMu.Unlock()

	line, err := encodeOutbound(op, corr, params)
	if err != nil {
		b.pendingMu.Lock()
		delete(b.pending, corr)
		b.pendingMu.Unlock()
		return nil, svcerrors.Internal("failed to encode engine command", err)
	}

	if !b.enqueue(line) {
		b.pendingMu.Lock()
		delete(b.pending, corr)
		b.pendingMu.Unlock()
		return nil, svcerrors.EngineUnavailable(errors.New("engine bridge not connected"))
	}

	select {
	case res := <-req.done:
		return res.raw, res.err
	case <-ctx.Done():
		b.pendingMu.Lock()
		delete(b.pending, corr)
		b.pendingMu.Unlock()
		return nil, svcerrors.EngineUnavailable(fmt.Errorf("engine request %q timed out: %w", op, ctx.Err()))
	}
}

// Place submits an order, generating a client_order_id if the caller did
// not supply one.
func (b *Bridge) Place(ctx context.Context, params map[string]interface{}) (json.RawMessage, error) {
	if id, ok := params["client_order_id"].(string); !ok || id == "" {
		params["client_order_id"] = uuid.NewString()
	}
	return b.doRequest(ctx, "place", params)
}

// Cancel cancels one or more orders.
func (b *Bridge) Cancel(ctx context.Context, params map[string]interface{}) (json.RawMessage, error) {
	return b.doRequest(ctx, "cancel", params)
}

// Query issues an arbitrary read-only engine operation (account, market,
// positions, …) and awaits its reply.
func (b *Bridge) Query(ctx context.Context, op string, params map[string]interface{}) (json.RawMessage, error) {
	return b.doRequest(ctx, op, params)
}
