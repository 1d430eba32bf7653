package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/hashicorp/go-version"
	"github.com/rs/zerolog"

	"github.com/goriiin/skyportal-consumer/internal/config"
)

// Минимальная версия librdkafka, в которой SCRAM-SHA-512 работает стабильно.
var minLibrdkafka = version.Must(version.NewVersion("1.0.0"))

type confluentConsumer struct {
	consumer *kafka.Consumer
	logger   zerolog.Logger
}

func confluentConfig(s config.Settings, groupID, clientID string) *kafka.ConfigMap {
	conf := kafka.ConfigMap{
		"bootstrap.servers":    s.ServerURL,
		"group.id":             groupID,
		"client.id":            clientID,
		"auto.offset.reset":    "earliest",
		"enable.partition.eof": false,
		"log_level":            2,
	}
	if s.Plaintext {
		conf["security.protocol"] = "PLAINTEXT"
	} else {
		conf["security.protocol"] = "SASL_SSL"
		conf["sasl.mechanisms"] = "SCRAM-SHA-512"
		conf["sasl.username"] = s.Username
		conf["sasl.password"] = s.Password
	}
	return &conf
}

func newConfluentConsumer(s config.Settings, groupID, clientID string, logger zerolog.Logger) (*confluentConsumer, error) {
	checkLibrdkafka(logger)

	c, err := kafka.NewConsumer(confluentConfig(s, groupID, clientID))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	return &confluentConsumer{consumer: c, logger: logger}, nil
}

func checkLibrdkafka(logger zerolog.Logger) {
	_, raw := kafka.LibraryVersion()
	v, err := version.NewVersion(raw)
	if err != nil {
		logger.Warn().Str("librdkafka", raw).Msg("cannot parse librdkafka version")
		return
	}
	if v.LessThan(minLibrdkafka) {
		logger.Warn().Str("librdkafka", raw).Str("min", minLibrdkafka.String()).Msg("librdkafka is older than supported")
		return
	}
	logger.Debug().Str("librdkafka", raw).Msg("librdkafka version")
}

func (c *confluentConsumer) Metadata(_ context.Context, topic string, timeout time.Duration) ([]TopicMetadata, error) {
	md, err := c.consumer.GetMetadata(&topic, false, int(timeout.Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for %s: %w", topic, err)
	}

	out := make([]TopicMetadata, 0, len(md.Topics))
	for _, t := range md.Topics {
		out = append(out, TopicMetadata{Name: t.Topic, Partitions: len(t.Partitions)})
	}
	return out, nil
}

func (c *confluentConsumer) Subscribe(topic string) error {
	if err := c.consumer.SubscribeTopics([]string{topic}, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}
	return nil
}

func (c *confluentConsumer) Poll(ctx context.Context, timeout time.Duration) *Message {
	if ctx.Err() != nil {
		return nil
	}

	switch e := c.consumer.Poll(int(timeout.Milliseconds())).(type) {
	case *kafka.Message:
		return fromConfluentMessage(e)
	case kafka.Error:
		return &Message{Err: e, Fatal: e.IsFatal()}
	case nil:
		return nil
	default:
		// Rebalance и прочие служебные события нас не интересуют.
		c.logger.Debug().Str("event", e.String()).Msg("ignored kafka event")
		return nil
	}
}

func (c *confluentConsumer) Close() error {
	return c.consumer.Close()
}

func fromConfluentMessage(m *kafka.Message) *Message {
	msg := &Message{
		Partition: m.TopicPartition.Partition,
		Offset:    int64(m.TopicPartition.Offset),
		Value:     m.Value,
		Err:       m.TopicPartition.Error,
	}
	if m.TopicPartition.Topic != nil {
		msg.Topic = *m.TopicPartition.Topic
	}
	if m.TimestampType != kafka.TimestampNotAvailable && !m.Timestamp.IsZero() {
		msg.TimestampMillis = m.Timestamp.UnixMilli()
	}

	var kerr kafka.Error
	if errors.As(msg.Err, &kerr) {
		msg.Fatal = kerr.IsFatal()
	}
	return msg
}
