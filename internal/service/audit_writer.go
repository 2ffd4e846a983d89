package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"mme/config"
	"mme/internal/core"
	fluentdRepo "mme/internal/database/fluentd/repository"
	"mme/internal/database/mongodb/model"
	mongoRepo "mme/internal/database/mongodb/repository"
	"mme/internal/telemetry"

	"go.uber.org/zap"
)

// RequestLogStore is the system of record for audit entries.
type RequestLogStore interface {
	Insert(ctx context.Context, requestLog *model.ApiRequestLog) error
}

// RequestLogMirror receives a best-effort copy of every stored entry.
type RequestLogMirror interface {
	LogExchange(ctx context.Context, requestLog model.ApiRequestLog) error
}

// AuditLogWriter persists audit entries from one background worker fed by a
// bounded queue. The queue carries request ids; the entry itself sits in
// pending until the worker takes it, so a later Enqueue for the same id
// replaces an entry that has not been written yet.
type AuditLogWriter struct {
	logger         *zap.Logger
	trace          *telemetry.Trace
	metric         *telemetry.Metric
	store          RequestLogStore
	mirror         RequestLogMirror
	enqueueTimeout time.Duration
	writeTimeout   time.Duration

	queue   chan string
	pending sync.Map // requestId -> *model.ApiRequestLog
	dropped atomic.Int64

	// closed is guarded by mu; Enqueue holds the read lock across its send
	// so nothing reaches the queue once Close has taken the write lock.
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewAuditLogWriter(
	conf *config.Configuration,
	logger *zap.Logger,
	trace *telemetry.Trace,
	metric *telemetry.Metric,
	requestLogRepo *mongoRepo.ApiRequestLogRepository,
	logRepo *fluentdRepo.LogRepository,
) (*AuditLogWriter, func()) {
	writer := newAuditLogWriter(conf.Audit, logger, trace, metric, requestLogRepo, logRepo)
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Audit.WriteTimeout())
		defer cancel()
		if err := writer.Close(ctx); err != nil {
			logger.Warn("audit writer did not drain before shutdown", zap.Error(err))
		}
	}
	return writer, cleanup
}

func newAuditLogWriter(
	audit config.Audit,
	logger *zap.Logger,
	trace *telemetry.Trace,
	metric *telemetry.Metric,
	store RequestLogStore,
	mirror RequestLogMirror,
) *AuditLogWriter {
	writer := &AuditLogWriter{
		logger:         logger.With(zap.String("component", "audit.writer")),
		trace:          trace,
		metric:         metric,
		store:          store,
		mirror:         mirror,
		enqueueTimeout: audit.EnqueueTimeout(),
		writeTimeout:   audit.WriteTimeout(),
		queue:          make(chan string, audit.QueueSize),
		done:           make(chan struct{}),
	}
	writer.wg.Add(1)
	go writer.worker()

	writer.logger.Info("audit writer started",
		zap.Int("queueSize", audit.QueueSize),
		zap.Duration("enqueueTimeout", writer.enqueueTimeout),
		zap.Duration("writeTimeout", writer.writeTimeout),
	)
	return writer
}

// Enqueue schedules requestLog for persistence and returns without waiting
// for the write. If the queue stays full past the enqueue timeout the entry
// is dropped.
func (writer *AuditLogWriter) Enqueue(requestLog *model.ApiRequestLog) {
	if requestLog == nil || requestLog.RequestID == "" {
		return
	}
	writer.mu.RLock()
	defer writer.mu.RUnlock()
	if writer.closed {
		writer.drop(requestLog, "closed")
		return
	}

	if _, queued := writer.pending.Swap(requestLog.RequestID, requestLog); queued {
		writer.logger.Debug("audit entry superseded", zap.String("requestId", requestLog.RequestID))
		return
	}

	timer := time.NewTimer(writer.enqueueTimeout)
	defer timer.Stop()
	select {
	case writer.queue <- requestLog.RequestID:
		writer.metric.AuditEnqueued(len(writer.queue))
	case <-timer.C:
		// a later Enqueue may have replaced the entry while this one waited;
		// whatever is pending for the id has no queue slot and goes with it
		if value, ok := writer.pending.LoadAndDelete(requestLog.RequestID); ok {
			writer.drop(value.(*model.ApiRequestLog), "queue_full")
		}
	}
}

// Dropped reports how many entries were discarded without being written.
func (writer *AuditLogWriter) Dropped() int64 {
	return writer.dropped.Load()
}

// Close stops accepting entries and waits for the queue to drain or ctx to end.
func (writer *AuditLogWriter) Close(ctx context.Context) error {
	writer.mu.Lock()
	if !writer.closed {
		writer.closed = true
		close(writer.done)
	}
	writer.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		writer.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		writer.logger.Info("audit writer drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (writer *AuditLogWriter) worker() {
	defer writer.wg.Done()
	for {
		select {
		case requestID := <-writer.queue:
			writer.persist(requestID)
		case <-writer.done:
			for {
				select {
				case requestID := <-writer.queue:
					writer.persist(requestID)
				default:
					return
				}
			}
		}
	}
}

func (writer *AuditLogWriter) persist(requestID string) {
	writer.metric.AuditDequeued(len(writer.queue))
	value, ok := writer.pending.LoadAndDelete(requestID)
	if !ok {
		return
	}
	requestLog := value.(*model.ApiRequestLog)

	ctx, cancel := context.WithTimeout(context.Background(), writer.writeTimeout)
	defer cancel()
	ctx, span, end := writer.trace.WithSpan(ctx, string(core.SpanAuditPersist))
	meta := core.TraceAuditMeta{
		RequestID:  requestLog.RequestID,
		StatusCode: requestLog.ResponseStatusCode,
		Streaming:  requestLog.Streaming,
	}

	err := writer.store.Insert(ctx, requestLog)
	if err != nil {
		writer.metric.AuditFailed("mongodb")
		writer.logger.Error("audit log persist failed",
			zap.String("requestId", requestLog.RequestID),
			zap.Error(err),
		)
	}

	if writer.mirror != nil {
		if mirrorErr := writer.mirror.LogExchange(ctx, *requestLog); mirrorErr != nil {
			writer.metric.AuditFailed("fluentd")
			writer.logger.Warn("audit log mirror failed",
				zap.String("requestId", requestLog.RequestID),
				zap.Error(mirrorErr),
			)
		} else {
			meta.Mirrored = true
		}
	}
	writer.trace.ApplyTraceAttributes(span, meta)
	end(err)
}

func (writer *AuditLogWriter) drop(requestLog *model.ApiRequestLog, reason string) {
	writer.dropped.Add(1)
	writer.metric.AuditDropped(reason)
	writer.logger.Warn("audit log dropped",
		zap.String("requestId", requestLog.RequestID),
		zap.String("reason", reason),
	)
}
