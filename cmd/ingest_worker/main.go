package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/hetulpatel/trackledger/internal/kafka"
	"github.com/hetulpatel/trackledger/internal/logging"
	"github.com/hetulpatel/trackledger/internal/storage/sqlite"
	"github.com/hetulpatel/trackledger/internal/workers"
)

func main() {
	godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	logging.InitFromEnv()

	brokers := kafka.Brokers()
	chainTopic := kafka.TopicFromEnv("CHAIN_KAFKA_TOPIC", kafka.DefaultChainTopic)
	exchangeTopic := kafka.TopicFromEnv("EXCHANGE_KAFKA_TOPIC", kafka.DefaultExchangeTopic)
	group := envString("INGEST_GROUP", "ingest-workers")
	workerCount := envInt("INGEST_WORKERS", 2)

	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	if err := kafka.WaitForBroker(waitCtx, brokers); err != nil {
		logging.Fatalf("[ingest] wait for broker: %v", err)
	}
	cancel()

	for _, topic := range []string{chainTopic, exchangeTopic} {
		ensureCtx, cancelEnsure := context.WithTimeout(ctx, 30*time.Second)
		if err := kafka.EnsureTopic(ensureCtx, brokers, topic); err != nil {
			logging.Errorf("[ingest] ensure topic %s warning: %v", topic, err)
		}
		cancelEnsure()
	}

	store, err := sqlite.Open(os.Getenv("SQLITE_PATH"))
	if err != nil {
		logging.Fatalf("[ingest] open sqlite: %v", err)
	}
	defer store.Close()

	ingestor := workers.NewIngestor(store)

	logging.Infof("[ingest] consuming %s and %s with group %s (%d workers each)",
		chainTopic, exchangeTopic, group, workerCount)

	var wg sync.WaitGroup
	for _, topic := range []string{chainTopic, exchangeTopic} {
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			workers.Run(ctx, brokers, topic, group, workerCount, ingestor.Handle)
		}(topic)
	}
	wg.Wait()
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
