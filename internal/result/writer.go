package result

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	writesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quizhall_sink_writes_total",
		Help: "Durable result writes by outcome.",
	}, []string{"outcome"})
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quizhall_sink_queue_depth",
		Help: "Submissions waiting for a durable write.",
	})
)

// ErrQueueFull means the writer's buffer is saturated and the submission was
// not enqueued. The live tally and broadcast are unaffected.
var ErrQueueFull = errors.New("result writer queue full")

const defaultQueueSize = 1024

// Writer decouples the in-memory submission path from durable-write latency.
// Record enqueues without blocking; a single worker drains the queue, retrying
// each failed write once before dropping it with a logged error.
type Writer struct {
	sink         Sink
	queue        chan Submission
	writeTimeout time.Duration
	logger       zerolog.Logger
}

var _ Sink = (*Writer)(nil)

// NewWriter wraps a sink with an asynchronous write queue.
func NewWriter(sink Sink, queueSize int, writeTimeout time.Duration, logger zerolog.Logger) *Writer {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Writer{
		sink:         sink,
		queue:        make(chan Submission, queueSize),
		writeTimeout: writeTimeout,
		logger:       logger.With().Str("component", "result_writer").Logger(),
	}
}

// RecordAnswer enqueues a submission for durable write. It never blocks the
// caller; a full queue is surfaced as an error and counted.
func (w *Writer) RecordAnswer(_ context.Context, sub Submission) error {
	select {
	case w.queue <- sub:
		queueDepth.Inc()
		return nil
	default:
		writesTotal.WithLabelValues("rejected").Inc()
		w.logger.Error().
			Str("session_id", sub.SessionID).
			Str("participant_id", sub.ParticipantID).
			Int("question_index", sub.QuestionIndex).
			Msg("sink queue full, submission not persisted")
		return ErrQueueFull
	}
}

// Run drains the queue until the context is cancelled. Remaining queued
// submissions are flushed on shutdown so accepted answers are not lost to a
// normal restart.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return ctx.Err()
		case sub := <-w.queue:
			queueDepth.Dec()
			w.write(ctx, sub)
		}
	}
}

func (w *Writer) write(ctx context.Context, sub Submission) {
	if err := w.attempt(ctx, sub); err == nil {
		writesTotal.WithLabelValues("ok").Inc()
		return
	}

	// one retry before giving up
	if err := w.attempt(ctx, sub); err != nil {
		writesTotal.WithLabelValues("failed").Inc()
		w.logger.Error().Err(err).
			Str("session_id", sub.SessionID).
			Str("participant_id", sub.ParticipantID).
			Int("question_index", sub.QuestionIndex).
			Msg("durable write failed after retry")
		return
	}
	writesTotal.WithLabelValues("retried").Inc()
}

func (w *Writer) attempt(ctx context.Context, sub Submission) error {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.writeTimeout)
	defer cancel()
	return w.sink.RecordAnswer(writeCtx, sub)
}

func (w *Writer) flush() {
	for {
		select {
		case sub := <-w.queue:
			queueDepth.Dec()
			w.write(context.Background(), sub)
		default:
			return
		}
	}
}
