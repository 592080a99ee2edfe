// Package audit implements the non-blocking audit logger from spec 4.12:
// handlers enqueue records and return immediately, a background task
// drains the queue in batches, and a full queue drops the oldest record
// rather than ever blocking a request. The queue is a bounded,
// mutex-guarded slice; the teacher's infrastructure/logging Logger is the
// durable sink.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/veloz-systems/gateway/infrastructure/logging"
	"github.com/veloz-systems/gateway/infrastructure/metrics"
)

const (
	defaultQueueSize    = 4096
	defaultBatchSize    = 64
	defaultFlushPeriod  = 2 * time.Second
	defaultDrainTimeout = 5 * time.Second
)

// Record is a single audit entry: spec 4.12's (type, action, user_id, ip,
// details) tuple plus a server-stamped timestamp.
type Record struct {
	EventType   string
	Action      string
	UserID      string
	IP          string
	Details     map[string]interface{}
	TimestampNs int64
}

// Logger is the audit logger. It satisfies gatewayhttp.AuditLogger.
type Logger struct {
	queueSize   int
	batchSize   int
	flushPeriod time.Duration

	logger  *logging.Logger
	metrics *metrics.Metrics

	recordsMu sync.Mutex
	queue     []Record

	notify chan struct{}

	recentMu sync.Mutex
	recent   []Record
	recentN  int

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Option configures a Logger.
type Option func(*Logger)

// WithQueueSize overrides the default bounded queue capacity (4096).
func WithQueueSize(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.queueSize = n
		}
	}
}

// WithBatchSize overrides the default flush batch size (64).
func WithBatchSize(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

// WithFlushPeriod overrides the default 2s flush interval.
func WithFlushPeriod(d time.Duration) Option {
	return func(l *Logger) {
		if d > 0 {
			l.flushPeriod = d
		}
	}
}

// WithRecentBufferSize overrides how many flushed records the additive
// read path (GET /api/audit) keeps in memory. 0 disables the read buffer.
func WithRecentBufferSize(n int) Option {
	return func(l *Logger) {
		l.recentN = n
	}
}

// NewLogger builds an audit logger writing through sink and starts its
// background flusher. Call Close to drain and stop it.
func NewLogger(sink *logging.Logger, m *metrics.Metrics, opts ...Option) *Logger {
	l := &Logger{
		queueSize:   defaultQueueSize,
		batchSize:   defaultBatchSize,
		flushPeriod: defaultFlushPeriod,
		logger:      sink,
		metrics:     m,
		notify:      make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		recentN:     500,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.recent = make([]Record, 0, l.recentN)
	go l.run()
	return l
}

// Log enqueues a record without blocking. If the queue is full, the oldest
// queued record is dropped and the drop is counted in metrics.
func (l *Logger) Log(eventType, action, userID, ip string, details map[string]interface{}) {
	rec := Record{
		EventType:   eventType,
		Action:      action,
		UserID:      userID,
		IP:          ip,
		Details:     details,
		TimestampNs: time.Now().UnixNano(),
	}

	l.recordsMu.Lock()
	if len(l.queue) >= l.queueSize {
		l.queue = l.queue[1:]
		if l.metrics != nil {
			l.metrics.RecordAuditQueueDropped()
		}
	}
	l.queue = append(l.queue, rec)
	l.recordsMu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Recent returns up to the configured recent-buffer size of the most
// recently flushed records, newest last. Additive read path for spec 4.13's
// GET /api/audit; not part of spec 4.12's write contract.
func (l *Logger) Recent() []Record {
	l.recentMu.Lock()
	defer l.recentMu.Unlock()
	out := make([]Record, len(l.recent))
	copy(out, l.recent)
	return out
}

// QueueLen reports the number of records currently queued, for diagnostics.
func (l *Logger) QueueLen() int {
	l.recordsMu.Lock()
	defer l.recordsMu.Unlock()
	return len(l.queue)
}

func (l *Logger) run() {
	defer close(l.doneCh)
	ticker := time.NewTicker(l.flushPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-l.notify:
			l.flushBatch()
		case <-ticker.C:
			l.flushBatch()
		case <-l.stopCh:
			for l.flushBatch() {
			}
			return
		}
	}
}

// flushBatch drains up to batchSize queued records to the sink, returning
// true if it flushed a full batch (more may remain).
func (l *Logger) flushBatch() bool {
	l.recordsMu.Lock()
	n := len(l.queue)
	if n > l.batchSize {
		n = l.batchSize
	}
	batch := l.queue[:n]
	l.queue = l.queue[n:]
	l.recordsMu.Unlock()

	if n == 0 {
		return false
	}

	ctx := context.Background()
	for _, rec := range batch {
		if l.logger != nil {
			l.logger.LogAudit(ctx, rec.Action, rec.EventType, rec.UserID, "recorded")
		}
	}

	if l.recentN > 0 {
		l.recentMu.Lock()
		l.recent = append(l.recent, batch...)
		if len(l.recent) > l.recentN {
			l.recent = l.recent[len(l.recent)-l.recentN:]
		}
		l.recentMu.Unlock()
	}

	return n == l.batchSize
}

// Close stops the background flusher after draining the queue, waiting up
// to defaultDrainTimeout. Matches spec 4.12's shutdown-drains-the-queue
// requirement.
func (l *Logger) Close() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
	select {
	case <-l.doneCh:
	case <-time.After(defaultDrainTimeout):
	}
}
