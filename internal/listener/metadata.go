package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/goriiin/skyportal-consumer/internal/platform/queue"
)

const MetadataTimeout = 2 * time.Second

// ReportMetadata logs the partition count of every topic entry the broker
// returns for topic. Errors are returned to the caller unchanged in meaning.
func ReportMetadata(ctx context.Context, c queue.Consumer, topic string, logger zerolog.Logger) error {
	topics, err := c.Metadata(ctx, topic, MetadataTimeout)
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	for _, t := range topics {
		logger.Info().Msgf("Topic: %s (partitions=%d)", t.Name, t.Partitions)
	}
	return nil
}
