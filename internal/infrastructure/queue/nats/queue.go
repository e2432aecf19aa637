package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/strataworks/geoassist/internal/core/domain"
	"github.com/strataworks/geoassist/internal/infrastructure/resilience"
)

const (
	defaultConnectTimeout = 2 * time.Second
	defaultReconnectWait  = 2 * time.Second
	defaultMaxReconnects  = 60
	drainFlushTimeout     = 5 * time.Second

	workerGroup = "workers"
)

// Queue moves answer records between the api process and the audit worker.
// Delivery is at least once; consumers must tolerate redelivery.
type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

// Options tunes the connection; zero values fall back to defaults.
type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func (o Options) connectOptions() []nats.Option {
	timeout := o.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	wait := o.ReconnectWait
	if wait <= 0 {
		wait = defaultReconnectWait
	}
	reconnects := o.MaxReconnects
	if reconnects <= 0 {
		reconnects = defaultMaxReconnects
	}
	retryOnFailedConnect := o.RetryOnFailedConnect == nil || *o.RetryOnFailedConnect

	return []nats.Option{
		nats.Name("geoassist"),
		nats.Timeout(timeout),
		nats.ReconnectWait(wait),
		nats.MaxReconnects(reconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	}
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	conn, err := nats.Connect(url, options.connectOptions()...)
	if err != nil {
		return nil, fmt.Errorf("dial nats: %w", err)
	}
	return &Queue{conn: conn, subject: subject, executor: options.ResilienceExecutor}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// run sends a call through the resilience executor when one is wired.
func (q *Queue) run(ctx context.Context, operation string, call func(context.Context) error) error {
	if q.executor == nil {
		return call(ctx)
	}
	return q.executor.Execute(ctx, operation, call, classifyNATSError)
}

func (q *Queue) PublishAnswerRecorded(ctx context.Context, record domain.AnswerRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal answer record: %w", err)
	}

	err = q.run(ctx, "nats.publish", func(context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	})
	if err != nil {
		return resilience.WrapTemporary("nats publish", err, classifyNATSError)
	}
	return nil
}

// SubscribeAnswerRecorded consumes records in the shared worker group and
// blocks until ctx is done, then drains the subscription.
func (q *Queue) SubscribeAnswerRecorded(ctx context.Context, handler func(context.Context, domain.AnswerRecord) error) error {
	deliver := func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		var record domain.AnswerRecord
		if err := json.Unmarshal(msg.Data, &record); err != nil {
			slog.Warn("answer_record_decode_failed", "error", err)
			return
		}

		msgCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(msgCtx, record); err != nil {
			slog.Error("answer_record_handler_failed", "trace_id", record.TraceID, "error", err)
		}
	}

	sub, err := q.conn.QueueSubscribe(q.subject, workerGroup, deliver)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", q.subject, err)
	}
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("flush subscription: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(drainFlushTimeout); err != nil {
		return fmt.Errorf("flush after drain: %w", err)
	}
	return nil
}
