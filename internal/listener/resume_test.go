package listener

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goriiin/skyportal-consumer/internal/config"
	"github.com/goriiin/skyportal-consumer/internal/platform/queue"
)

// memBroker is a single-partition topic with per-group committed offsets.
type memBroker struct {
	log       [][]byte
	committed map[string]int64
}

func newMemBroker() *memBroker {
	return &memBroker{committed: make(map[string]int64)}
}

func (b *memBroker) publish(n int) {
	for i := 0; i < n; i++ {
		b.log = append(b.log, []byte(fmt.Sprintf(`{"submitter":"s%d"}`, len(b.log))))
	}
}

// memConsumer auto-commits what it has delivered on Close and cancels the run
// when it reaches the end of the log.
type memConsumer struct {
	broker *memBroker
	group  string
	next   int64
	cancel context.CancelFunc
	subbed bool
}

func (c *memConsumer) Metadata(context.Context, string, time.Duration) ([]queue.TopicMetadata, error) {
	return []queue.TopicMetadata{{Name: config.DefaultTopic, Partitions: 1}}, nil
}

func (c *memConsumer) Subscribe(string) error {
	c.next = c.broker.committed[c.group]
	c.subbed = true
	return nil
}

func (c *memConsumer) Poll(context.Context, time.Duration) *queue.Message {
	if !c.subbed {
		return nil
	}
	if c.next >= int64(len(c.broker.log)) {
		c.cancel()
		return nil
	}
	m := &queue.Message{Offset: c.next, Value: c.broker.log[c.next]}
	c.next++
	return m
}

func (c *memConsumer) Close() error {
	c.broker.committed[c.group] = c.next
	return nil
}

func consumeOnce(t *testing.T, b *memBroker, s config.Settings, now time.Time) []string {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &memConsumer{broker: b, group: queue.GroupID(s, now), cancel: cancel}
	defer func() { require.NoError(t, c.Close()) }()

	var buf bytes.Buffer
	require.NoError(t, New(c, OptionsFrom(s), zerolog.New(&buf), nil).Run(ctx))

	var offsets []string
	for _, l := range parseLog(t, &buf) {
		if strings.HasPrefix(l.Message, "Offset ") {
			offsets = append(offsets, l.Message)
		}
	}
	return offsets
}

func TestResumeFromCommittedOffset(t *testing.T) {
	b := newMemBroker()
	b.publish(3)

	s := config.Resolve(config.Defaults(), config.Overrides{Username: "alice"})
	now := time.Unix(1700000000, 0)

	first := consumeOnce(t, b, s, now)
	assert.Equal(t, []string{"Offset 0", "Offset 1", "Offset 2"}, first)

	b.publish(2)

	second := consumeOnce(t, b, s, now.Add(time.Minute))
	assert.Equal(t, []string{"Offset 3", "Offset 4"}, second)

	third := consumeOnce(t, b, s, now.Add(2*time.Minute))
	assert.Empty(t, third)
}

func TestFromStartRereadsEverything(t *testing.T) {
	b := newMemBroker()
	b.publish(3)

	s := config.Resolve(config.Defaults(), config.Overrides{Username: "alice"})
	now := time.Unix(1700000000, 0)
	_ = consumeOnce(t, b, s, now)

	fresh := config.Resolve(s, config.Overrides{FromStart: true})
	assert.Len(t, consumeOnce(t, b, fresh, now.Add(time.Second)), 3)
	assert.Len(t, consumeOnce(t, b, fresh, now.Add(2*time.Second)), 3)
}
