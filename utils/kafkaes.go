package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// LogMessage is one request log as written by the logkafka middleware.
type LogMessage struct {
	Level     string            `json:"level"`
	Module    string            `json:"module"`
	Message   string            `json:"message"`
	TraceID   string            `json:"trace_id"`
	Env       string            `json:"env"`
	Timestamp time.Time         `json:"timestamp"`
	Extra     map[string]string `json:"extra"`
}

type ShipperConfig struct {
	Brokers      []string
	Topic        string
	GroupID      string
	Index        string
	BatchSize    int
	BatchTimeout time.Duration
	// RetryBackoff is the first pause after a failed read. It doubles on
	// each consecutive failure up to maxRetryBackoff.
	RetryBackoff time.Duration
}

const maxRetryBackoff = 30 * time.Second

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// LogShipper moves request logs from a Kafka topic into an Elasticsearch
// index in bulk batches.
type LogShipper struct {
	cfg    ShipperConfig
	es     *elasticsearch.Client
	logger *zap.Logger

	newReader func(kafka.ReaderConfig) messageReader
}

func NewLogShipper(cfg ShipperConfig, es *elasticsearch.Client, logger *zap.Logger) *LogShipper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 5 * time.Second
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "es-pusher"
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	return &LogShipper{
		cfg:    cfg,
		es:     es,
		logger: logger,
		newReader: func(rc kafka.ReaderConfig) messageReader {
			return kafka.NewReader(rc)
		},
	}
}

// Run consumes until ctx is cancelled, flushing whatever is buffered on the
// way out.
func (s *LogShipper) Run(ctx context.Context) error {
	reader := s.newReader(kafka.ReaderConfig{
		Brokers: s.cfg.Brokers,
		Topic:   s.cfg.Topic,
		GroupID: s.cfg.GroupID,
	})
	defer reader.Close()

	msgs := make(chan kafka.Message)
	go func() {
		defer close(msgs)
		backoff := s.cfg.RetryBackoff
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return
				}
				s.logger.Warn("kafka read error", zap.Duration("retry_in", backoff), zap.Error(err))
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return
				}
				backoff = min(backoff*2, maxRetryBackoff)
				continue
			}
			backoff = s.cfg.RetryBackoff
			select {
			case msgs <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	s.logger.Info("starting kafka to elasticsearch shipper",
		zap.String("topic", s.cfg.Topic),
		zap.String("index", s.cfg.Index))

	batch := make([]LogMessage, 0, s.cfg.BatchSize)
	ticker := time.NewTicker(s.cfg.BatchTimeout)
	defer ticker.Stop()

	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := s.Flush(ctx, batch); err != nil {
			s.logger.Error("bulk index failed", zap.Int("batch", len(batch)), zap.Error(err))
		} else {
			s.logger.Debug("batch pushed to elasticsearch", zap.Int("batch", len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ticker.C:
			flush(ctx)
		case m, ok := <-msgs:
			if !ok {
				flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				flush(flushCtx)
				cancel()
				return ctx.Err()
			}
			var msg LogMessage
			if err := json.Unmarshal(m.Value, &msg); err != nil {
				s.logger.Warn("skipping undecodable log message", zap.Error(err))
				continue
			}
			if msg.Timestamp.IsZero() {
				msg.Timestamp = m.Time
			}
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}
			batch = append(batch, msg)
			if len(batch) >= s.cfg.BatchSize {
				flush(ctx)
			}
		}
	}
}

// Flush writes batch with one bulk request.
func (s *LogShipper) Flush(ctx context.Context, batch []LogMessage) error {
	body, err := BulkBody(batch)
	if err != nil {
		return err
	}
	res, err := s.es.Bulk(bytes.NewReader(body),
		s.es.Bulk.WithContext(ctx),
		s.es.Bulk.WithIndex(s.cfg.Index))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk index: %s", res.Status())
	}
	return nil
}

// BulkBody renders batch in the newline-delimited bulk format.
func BulkBody(batch []LogMessage) ([]byte, error) {
	var buf bytes.Buffer
	for _, m := range batch {
		doc, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		buf.WriteString("{\"index\":{}}\n")
		buf.Write(doc)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
