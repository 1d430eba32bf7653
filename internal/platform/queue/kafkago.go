package queue

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/goriiin/skyportal-consumer/internal/config"
)

type kafkaGoConsumer struct {
	brokers []string
	groupID string
	dialer  *kafka.Dialer
	reader  *kafka.Reader
	logger  zerolog.Logger
}

// newDialer returns a dialer set up for SASL/SCRAM-SHA-512 over TLS, or a
// plain dialer when s.Plaintext is set.
func newDialer(s config.Settings, clientID string) (*kafka.Dialer, error) {
	dialer := &kafka.Dialer{
		ClientID:  clientID,
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	if s.Plaintext {
		return dialer, nil
	}

	mechanism, err := scram.Mechanism(scram.SHA512, s.Username, s.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to create scram mechanism: %w", err)
	}
	dialer.SASLMechanism = mechanism
	dialer.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	return dialer, nil
}

func newKafkaGoConsumer(s config.Settings, groupID, clientID string, logger zerolog.Logger) (*kafkaGoConsumer, error) {
	dialer, err := newDialer(s, clientID)
	if err != nil {
		return nil, err
	}
	return &kafkaGoConsumer{
		brokers: brokerList(s.ServerURL),
		groupID: groupID,
		dialer:  dialer,
		logger:  logger,
	}, nil
}

func (c *kafkaGoConsumer) Metadata(ctx context.Context, topic string, timeout time.Duration) ([]TopicMetadata, error) {
	if len(c.brokers) == 0 {
		return nil, errors.New("no brokers configured")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", c.brokers[0])
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", c.brokers[0], err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	partitions, err := conn.ReadPartitions(topic)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for %s: %w", topic, err)
	}

	counts := make(map[string]int)
	var order []string
	for _, p := range partitions {
		if _, ok := counts[p.Topic]; !ok {
			order = append(order, p.Topic)
		}
		counts[p.Topic]++
	}

	out := make([]TopicMetadata, 0, len(order))
	for _, name := range order {
		out = append(out, TopicMetadata{Name: name, Partitions: counts[name]})
	}
	return out, nil
}

func (c *kafkaGoConsumer) Subscribe(topic string) error {
	if c.reader != nil {
		return fmt.Errorf("already subscribed to %s", c.reader.Config().Topic)
	}
	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.brokers,
		GroupID:     c.groupID,
		Topic:       topic,
		Dialer:      c.dialer,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			c.logger.Error().Msgf(msg, args...)
		}),
	})
	return nil
}

func (c *kafkaGoConsumer) Poll(ctx context.Context, timeout time.Duration) *Message {
	if c.reader == nil || ctx.Err() != nil {
		return nil
	}

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	m, err := c.reader.ReadMessage(pollCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil
		}
		// io.EOF означает, что reader уже закрыт.
		return &Message{Err: err, Fatal: errors.Is(err, io.EOF)}
	}

	msg := &Message{
		Topic:     m.Topic,
		Partition: int32(m.Partition),
		Offset:    m.Offset,
		Value:     m.Value,
	}
	if !m.Time.IsZero() {
		msg.TimestampMillis = m.Time.UnixMilli()
	}
	return msg
}

func (c *kafkaGoConsumer) Close() error {
	if c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
