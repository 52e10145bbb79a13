package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"FinEvent/pkg/logger"
)

// ConsumerHook runs around every handler attempt. A BeforeHandle error skips
// the handler and sends the message down the failure path (retry, DLQ).
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, error)
	AfterHandle(ctx context.Context, km kafka.Message, err error)
}

type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, _ kafka.Message) (context.Context, error) {
	return ctx, nil
}

func (NoopHook) AfterHandle(context.Context, kafka.Message, error) {}

type ctxKey string

const (
	ctxStartTime ctxKey = "kafka_start_time"
	ctxTraceID   ctxKey = "kafka_trace_id"
)

// TraceID returns the trace id that LoggingHook copied from the headers.
func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(ctxTraceID).(string)
	return v
}

// HeaderValue returns the first header with key, or "".
func HeaderValue(km kafka.Message, key string) string {
	for _, h := range km.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// LoggingHook logs slow or failed handler runs and threads the trace_id
// header into the context.
type LoggingHook struct {
	Log  *logger.Logger
	Slow time.Duration
}

func (h LoggingHook) BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, error) {
	if len(km.Value) == 0 {
		return ctx, fmt.Errorf("empty payload at %s/%d@%d", km.Topic, km.Partition, km.Offset)
	}
	ctx = context.WithValue(ctx, ctxStartTime, time.Now())
	if id := HeaderValue(km, "trace_id"); id != "" {
		ctx = context.WithValue(ctx, ctxTraceID, id)
	}
	return ctx, nil
}

func (h LoggingHook) AfterHandle(ctx context.Context, km kafka.Message, err error) {
	if h.Log == nil {
		return
	}
	var elapsed time.Duration
	if start, ok := ctx.Value(ctxStartTime).(time.Time); ok {
		elapsed = time.Since(start)
	}
	fields := []logger.Field{
		logger.String("topic", km.Topic),
		logger.Int("partition", km.Partition),
		logger.Int64("offset", km.Offset),
		logger.Duration("elapsed_ms", elapsed),
	}
	if id := TraceID(ctx); id != "" {
		fields = append(fields, logger.String("trace_id", id))
	}
	switch {
	case err != nil:
		h.Log.Warn("kafka handler failed", append(fields, logger.Error(err))...)
	case h.Slow > 0 && elapsed > h.Slow:
		h.Log.Warn("kafka handler slow", fields...)
	}
}
