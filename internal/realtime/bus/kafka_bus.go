package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/yungbote/papaya-ledger/internal/platform/logger"
	"github.com/yungbote/papaya-ledger/internal/realtime"
)

type kafkaBus struct {
	log     *logger.Logger
	brokers []string
	topic   string
	// group is unique per process so every instance sees every event.
	group  string
	writer *kafka.Writer
}

func NewKafkaBus(log *logger.Logger, brokers []string, topic string) (realtime.Relay, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	var clean []string
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			clean = append(clean, b)
		}
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("missing KAFKA_BROKERS")
	}
	// Kafka topic names cannot contain ':'.
	topic = strings.ReplaceAll(strings.TrimSpace(topic), ":", ".")

	return &kafkaBus{
		log:     log.With("service", "KafkaRelay", "topic", topic),
		brokers: clean,
		topic:   topic,
		group:   "papaya-sse-" + uuid.NewString(),
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(clean...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

func (b *kafkaBus) Publish(ctx context.Context, env realtime.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.Origin),
		Value: raw,
	})
}

func (b *kafkaBus) Listen(ctx context.Context, fn func(realtime.Envelope)) error {
	if fn == nil {
		return fmt.Errorf("listener callback required")
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		Topic:       b.topic,
		GroupID:     b.group,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    1 << 20,
		MaxWait:     500 * time.Millisecond,
	})
	defer r.Close()
	b.log.Info("relay reader started", "group", b.group)

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			return fmt.Errorf("kafka read: %w", err)
		}
		var env realtime.Envelope
		if err := json.Unmarshal(m.Value, &env); err != nil {
			b.log.Warn("bad relay payload", "offset", m.Offset, "error", err)
			continue
		}
		fn(env)
	}
}

func (b *kafkaBus) Close() error {
	return b.writer.Close()
}
