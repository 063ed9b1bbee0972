package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaSink forwards bus events to a Kafka topic keyed by session id.
type KafkaSink struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
			Async:    true,
		},
		logger: logger,
	}
}

// Attach subscribes the sink to every topic on bus.
func (s *KafkaSink) Attach(bus *Bus) func() {
	return bus.SubscribeAll(s.Handle)
}

func (s *KafkaSink) Handle(ctx context.Context, ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("failed to encode event", zap.String("topic", string(ev.Topic)), zap.Error(err))
		return
	}
	err = s.writer.WriteMessages(context.WithoutCancel(ctx), kafka.Message{
		Key:   []byte(ev.SessionID),
		Value: b,
		Time:  ev.Time,
		Headers: []kafka.Header{
			{Key: "topic", Value: []byte(ev.Topic)},
		},
	})
	if err != nil {
		s.logger.Warn("failed to forward event to kafka", zap.String("topic", string(ev.Topic)), zap.Error(err))
	}
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
