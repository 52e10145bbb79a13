package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"FinEvent/internal/domain/models"
	pkgkafka "FinEvent/pkg/kafka"
)

// BarMessage is the wire form of a bar on the bars topic.
type BarMessage struct {
	Symbol    string    `json:"symbol"`
	Interval  string    `json:"interval"`
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	AdjClose  float64   `json:"ac,omitempty"`
	Volume    float64   `json:"v"`
}

func NewBarMessage(b models.Bar) BarMessage {
	return BarMessage{
		Symbol: b.Symbol, Interval: string(b.Interval), Timestamp: b.Timestamp.UTC(),
		Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, AdjClose: b.AdjClose, Volume: b.Volume,
	}
}

func (m BarMessage) Bar() models.Bar {
	return models.Bar{
		Symbol: m.Symbol, Interval: models.Interval(m.Interval), Timestamp: m.Timestamp,
		Open: m.Open, High: m.High, Low: m.Low, Close: m.Close, AdjClose: m.AdjClose, Volume: m.Volume,
	}
}

// KafkaBarPublisher implements BarPublisher. Bars are keyed by symbol so one
// symbol always lands on one partition.
type KafkaBarPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaBarPublisher(producer *pkgkafka.Producer, topic string) *KafkaBarPublisher {
	return &KafkaBarPublisher{producer: producer, topic: topic}
}

func (p *KafkaBarPublisher) PublishBars(ctx context.Context, bars []models.Bar) error {
	msgs := make([]pkgkafka.Message, 0, len(bars))
	for _, b := range bars {
		msgs = append(msgs, pkgkafka.Message{Key: []byte(b.Symbol), Value: NewBarMessage(b)})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close is a no-op. The producer is shared and closed by its owner.
func (p *KafkaBarPublisher) Close() error { return nil }

// ReportEnvelope wraps a report on the reports topic.
type ReportEnvelope struct {
	ID         string      `json:"id"`
	Kind       string      `json:"kind"`
	Key        string      `json:"key"`
	ComputedAt time.Time   `json:"computed_at"`
	Report     interface{} `json:"report"`
}

type KafkaReportPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaReportPublisher(producer *pkgkafka.Producer, topic string) *KafkaReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

func (p *KafkaReportPublisher) PublishReport(ctx context.Context, kind, key string, report interface{}) error {
	return p.producer.Publish(ctx, p.topic, []byte(key), ReportEnvelope{
		ID:         uuid.NewString(),
		Kind:       kind,
		Key:        key,
		ComputedAt: time.Now().UTC(),
		Report:     report,
	})
}
