// Command logshipper copies storefront request logs from Kafka into
// Elasticsearch.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"

	"mrsmoothy/config"
	"mrsmoothy/logger"
	"mrsmoothy/utils"
)

func main() {
	cfg, err := config.Read()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	if !cfg.KafkaEnabled() || len(cfg.Elastic.Addresses) == 0 {
		zl.Fatal("the shipper needs kafka brokers and elasticsearch addresses")
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: cfg.Elastic.Addresses})
	if err != nil {
		zl.Fatal("error creating the elasticsearch client", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shipper := utils.NewLogShipper(utils.ShipperConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.LogTopic,
		Index:   cfg.Elastic.Index,
	}, es, zl)
	if err := shipper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zl.Fatal("shipper stopped", zap.Error(err))
	}
	zl.Info("shipper stopped")
}
