package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hetulpatel/trackledger/internal/ledger"
)

// PublishRawEvents hands venue adapter output to the raw-event topic. The
// envelope's ReceivedAt is stamped here if the adapter left it zero. Re-publishing
// the same events is harmless: the ingest worker's upsert is idempotent.
func PublishRawEvents(ctx context.Context, writer *kafka.Writer, envs []ledger.RawEnvelope) error {
	if writer == nil || len(envs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	msgs := make([]kafka.Message, 0, len(envs))
	for _, env := range envs {
		if env.ReceivedAt.IsZero() {
			env.ReceivedAt = now
		}
		payload, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshal raw event %s: %w", env.Key(), err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(env.Key()), Value: payload})
	}
	return writer.WriteMessages(ctx, msgs...)
}
