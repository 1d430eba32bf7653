package queue

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/goriiin/skyportal-consumer/internal/config"
)

// Producer пишет сообщения в один топик. Используется тестовым паблишером.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(s config.Settings, clientID string) (*Producer, error) {
	transport := &kafka.Transport{ClientID: clientID}
	if !s.Plaintext {
		dialer, err := newDialer(s, clientID)
		if err != nil {
			return nil, err
		}
		transport.SASL = dialer.SASLMechanism
		transport.TLS = dialer.TLS
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokerList(s.ServerURL)...),
		Topic:                  s.Topic,
		Balancer:               &kafka.LeastBytes{},
		Transport:              transport,
		AllowAutoTopicCreation: s.Plaintext,
	}
	return &Producer{writer: w}, nil
}

func (p *Producer) Publish(ctx context.Context, key, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
