package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FinEvent/internal/domain/models"
	domrepo "FinEvent/internal/domain/repository"
	"FinEvent/internal/repository"
	pkgkafka "FinEvent/pkg/kafka"
)

// KafkaBarsHandler consumes the bars topic and writes to storage. Messages
// are a single bar or an array of bars.
type KafkaBarsHandler struct {
	topic   string
	store   domrepo.BarStore
	metrics domrepo.Metrics
}

func NewKafkaBarsHandler(topic string, store domrepo.BarStore, metrics domrepo.Metrics) *KafkaBarsHandler {
	return &KafkaBarsHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaBarsHandler) Topic() string { return h.topic }

func (h *KafkaBarsHandler) Handle(ctx context.Context, b []byte) error {
	msgs, err := decodeOneOrMany[repository.BarMessage](b)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	bars := make([]models.Bar, 0, len(msgs))
	for _, m := range msgs {
		bar := m.Bar()
		if !bar.Valid() || bar.Symbol == "" || !bar.Interval.IsValid() {
			h.metrics.RecordError("consumer_invalid_bar")
			continue
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil
	}

	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(bars[len(bars)-1].Timestamp).Seconds())

	start := time.Now()
	err = h.store.StoreBars(ctx, bars)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	for _, bar := range bars {
		h.metrics.RecordBarsIngested("kafka", bar.Symbol, 1)
	}
	return nil
}

// EventMessage is the wire form of a calendar entry on the events topic.
type EventMessage struct {
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name"`
	Source    string    `json:"source,omitempty"`
}

// KafkaEventsHandler stores calendar entries through the events use case.
type KafkaEventsHandler struct {
	topic   string
	events  *EventsUseCase
	metrics domrepo.Metrics
}

func NewKafkaEventsHandler(topic string, events *EventsUseCase, metrics domrepo.Metrics) *KafkaEventsHandler {
	return &KafkaEventsHandler{topic: topic, events: events, metrics: metrics}
}

func (h *KafkaEventsHandler) Topic() string { return h.topic }

func (h *KafkaEventsHandler) Handle(ctx context.Context, b []byte) error {
	msgs, err := decodeOneOrMany[EventMessage](b)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	bySource := map[string][]models.RawEvent{}
	for _, m := range msgs {
		if m.Name == "" || m.Timestamp.IsZero() {
			continue
		}
		src := m.Source
		if src == "" {
			src = "kafka"
		}
		bySource[src] = append(bySource[src], models.RawEvent{Timestamp: m.Timestamp, Name: m.Name})
	}
	for src, events := range bySource {
		if _, err := h.events.Store(ctx, events, src); err != nil {
			h.metrics.RecordError("consumer_store_events")
			return err
		}
	}
	return nil
}

func decodeOneOrMany[T any](b []byte) ([]T, error) {
	if trimmed := bytes.TrimLeft(b, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == '[' {
		var many []T
		if err := json.Unmarshal(b, &many); err != nil {
			return nil, fmt.Errorf("decode batch: %w", err)
		}
		return many, nil
	}
	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return []T{one}, nil
}

var (
	_ pkgkafka.MessageHandler = (*KafkaBarsHandler)(nil)
	_ pkgkafka.MessageHandler = (*KafkaEventsHandler)(nil)
)
