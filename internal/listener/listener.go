// Package listener drives a queue.Consumer: it polls, drops stale messages,
// decodes SkyPortal payloads and logs the interesting fields.
package listener

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/goriiin/skyportal-consumer/internal/config"
	"github.com/goriiin/skyportal-consumer/internal/platform/queue"
	"github.com/goriiin/skyportal-consumer/pkg/skyportal"
)

const DefaultPollTimeout = 100 * time.Millisecond

type Options struct {
	Topic string

	// MaxAge is applied only when FilterByAge is set.
	MaxAge      time.Duration
	FilterByAge bool

	PollTimeout time.Duration
	Now         func() time.Time
}

// OptionsFrom builds listener options from resolved settings.
func OptionsFrom(s config.Settings) Options {
	o := Options{
		Topic:       s.Topic,
		PollTimeout: DefaultPollTimeout,
		Now:         time.Now,
	}
	if s.MaxAgeDays != nil {
		o.FilterByAge = true
		o.MaxAge = daysToDuration(*s.MaxAgeDays)
	}
	return o
}

// daysToDuration clamps to the time.Duration range instead of wrapping.
func daysToDuration(days float64) time.Duration {
	ns := days * 24 * float64(time.Hour)
	switch {
	case ns >= math.MaxInt64:
		return time.Duration(math.MaxInt64)
	case ns <= math.MinInt64:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(ns)
}

type Listener struct {
	consumer queue.Consumer
	opts     Options
	logger   zerolog.Logger
	metrics  *Metrics
}

func New(c queue.Consumer, opts Options, logger zerolog.Logger, metrics *Metrics) *Listener {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Listener{
		consumer: c,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run subscribes to the topic and polls until ctx is cancelled (returns nil)
// or the client reports a fatal error. Closing the consumer is left to the caller.
func (l *Listener) Run(ctx context.Context) error {
	if err := l.consumer.Subscribe(l.opts.Topic); err != nil {
		return err
	}
	l.logger.Info().Msgf("Subscribed to %s", l.opts.Topic)

	for {
		select {
		case <-ctx.Done():
			// Отмена по другой причине (например, упал HTTP-сервер) - не прерывание пользователем.
			if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
				l.logger.Warn().Err(cause).Msg("Stopping")
				return nil
			}
			l.logger.Info().Msg("Interrupted by user")
			return nil
		default:
		}

		msg := l.consumer.Poll(ctx, l.opts.PollTimeout)
		if msg == nil {
			continue
		}
		if err := l.handle(msg); err != nil {
			return err
		}
	}
}

func (l *Listener) handle(msg *queue.Message) error {
	if msg.Err != nil {
		l.metrics.observe(outcomeTransportError)
		l.logger.Error().Msgf("---\nKafka error: %v", msg.Err)
		if msg.Fatal {
			return fmt.Errorf("fatal consumer error: %w", msg.Err)
		}
		return nil
	}

	if l.tooOld(msg.TimestampMillis) {
		l.metrics.observe(outcomeTooOld)
		return nil
	}

	l.metrics.lastOffset.Set(float64(msg.Offset))
	l.logger.Info().Msg("---")
	l.logger.Info().Msgf("Offset %d", msg.Offset)

	if len(msg.Value) == 0 {
		l.metrics.observe(outcomeEmpty)
		l.logger.Warn().Msg("Empty payload")
		return nil
	}

	payload, err := skyportal.Decode(msg.Value)
	if err != nil {
		l.metrics.observe(outcomeDecodeError)
		l.logger.Error().Msgf("JSON parse error: %v", err)
		return nil
	}

	l.logger.Info().Msgf("Submitter(s): %s | Author(s): %s",
		skyportal.Display(payload.Submitter()), skyportal.Display(payload.Authors()))

	targets := payload.Targets()
	for _, tgt := range targets {
		l.logger.Info().Msgf("Target name: %s", skyportal.Display(tgt.Name()))
	}

	l.metrics.targets.Add(float64(len(targets)))
	l.metrics.observe(outcomeProcessed)
	return nil
}

// tooOld reports whether a message with the given timestamp should be skipped.
// Messages without a valid timestamp are never too old.
func (l *Listener) tooOld(tsMillis int64) bool {
	if !l.opts.FilterByAge || tsMillis <= 0 {
		return false
	}
	return l.opts.Now().Sub(time.UnixMilli(tsMillis)) > l.opts.MaxAge
}
