package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goriiin/skyportal-consumer/internal/config"
	"github.com/goriiin/skyportal-consumer/internal/platform/queue"
)

// fakeConsumer serves msgs one per poll and then calls onDrained.
type fakeConsumer struct {
	msgs         []*queue.Message
	onDrained    func()
	subscribeErr error
	closed       int
}

func (c *fakeConsumer) Metadata(_ context.Context, topic string, _ time.Duration) ([]queue.TopicMetadata, error) {
	return []queue.TopicMetadata{{Name: topic, Partitions: 1}}, nil
}

func (c *fakeConsumer) Subscribe(string) error { return c.subscribeErr }

func (c *fakeConsumer) Poll(_ context.Context, _ time.Duration) *queue.Message {
	if len(c.msgs) == 0 {
		if c.onDrained != nil {
			c.onDrained()
		}
		return nil
	}
	m := c.msgs[0]
	c.msgs = c.msgs[1:]
	return m
}

func (c *fakeConsumer) Close() error {
	c.closed++
	return nil
}

func factoryFor(c *fakeConsumer) consumerFactory {
	return func(config.Settings, zerolog.Logger) (queue.Consumer, error) {
		return c, nil
	}
}

func TestRun_Help(t *testing.T) {
	assert.NoError(t, run(context.Background(), []string{"--help"}, zerolog.Nop(), queue.NewConsumer))
}

func TestRun_StartupFaults(t *testing.T) {
	ctx := context.Background()

	err := run(ctx, []string{"--log-level", "loud"}, zerolog.Nop(), queue.NewConsumer)
	require.Error(t, err)

	err = run(ctx, []string{"--driver", "carrier-pigeon"}, zerolog.Nop(), queue.NewConsumer)
	require.ErrorIs(t, err, queue.ErrUnknownDriver)

	err = run(ctx, []string{"--bogus"}, zerolog.Nop(), queue.NewConsumer)
	require.Error(t, err)
}

func TestRun_ClosesConsumerOnInterrupt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &fakeConsumer{
		msgs:      []*queue.Message{{Offset: 1, Value: []byte(`{"submitter":"alice"}`)}},
		onDrained: cancel,
	}

	require.NoError(t, run(ctx, []string{"--log-level", "error"}, zerolog.Nop(), factoryFor(c)))
	assert.Equal(t, 1, c.closed)
}

func TestRun_ClosesConsumerOnFatalError(t *testing.T) {
	fatal := errors.New("broker gone")
	c := &fakeConsumer{
		msgs: []*queue.Message{{Err: fatal, Fatal: true}},
	}

	err := run(context.Background(), []string{"--log-level", "error"}, zerolog.Nop(), factoryFor(c))
	require.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, c.closed)
}

func TestRun_ClosesConsumerOnSubscribeError(t *testing.T) {
	denied := errors.New("topic authorization failed")
	c := &fakeConsumer{subscribeErr: denied}

	err := run(context.Background(), []string{"--log-level", "error"}, zerolog.Nop(), factoryFor(c))
	require.ErrorIs(t, err, denied)
	assert.Equal(t, 1, c.closed)
}
