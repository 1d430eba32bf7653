package queue

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goriiin/skyportal-consumer/internal/config"
)

const defaultBrokerPort = "9092"

var ErrUnknownDriver = errors.New("unknown consumer driver")

// Message - одно сообщение (или ошибка транспорта), полученное из Poll.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	// TimestampMillis is zero or negative when the broker did not provide one.
	TimestampMillis int64
	Value           []byte

	Err error
	// Fatal marks errors after which the client can no longer be used.
	Fatal bool
}

type TopicMetadata struct {
	Name       string
	Partitions int
}

// Consumer is the broker client the listener drives. Implementations are not
// safe for concurrent use.
type Consumer interface {
	// Metadata fetches topic metadata, bounded by timeout.
	Metadata(ctx context.Context, topic string, timeout time.Duration) ([]TopicMetadata, error)
	Subscribe(topic string) error
	// Poll waits up to timeout for the next message and returns nil if none arrived.
	Poll(ctx context.Context, timeout time.Duration) *Message
	// Close commits pending offsets and releases the client.
	Close() error
}

// GroupID derives the consumer group for the given settings. A from-start run
// gets a timestamp suffix so every such run starts with no committed offsets.
func GroupID(s config.Settings, now time.Time) string {
	id := fmt.Sprintf("%s-%s2", s.Username, s.Topic)
	if s.FromStart {
		id += fmt.Sprintf("-%d", now.Unix())
	}
	return id
}

// NewConsumer builds the client selected by s.Driver. No network traffic is
// required until the first call on the returned Consumer.
func NewConsumer(s config.Settings, logger zerolog.Logger) (Consumer, error) {
	groupID := GroupID(s, time.Now())
	clientID := "skyportal-consumer-" + uuid.NewString()

	logger = logger.With().Str("component", "queue").Logger()
	logger.Debug().
		Str("driver", s.Driver).
		Str("group_id", groupID).
		Str("client_id", clientID).
		Msg("building consumer")

	switch s.Driver {
	case "", config.DriverConfluent:
		return newConfluentConsumer(s, groupID, clientID, logger)
	case config.DriverKafkaGo:
		return newKafkaGoConsumer(s, groupID, clientID, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, s.Driver)
	}
}

// brokerList splits a comma-separated server list and adds the default port
// where it is missing.
func brokerList(serverURL string) []string {
	var brokers []string
	for _, b := range strings.Split(serverURL, ",") {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(b); err != nil {
			b = net.JoinHostPort(b, defaultBrokerPort)
		}
		brokers = append(brokers, b)
	}
	return brokers
}
