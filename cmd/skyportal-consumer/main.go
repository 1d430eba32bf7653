package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/goriiin/skyportal-consumer/internal/config"
	"github.com/goriiin/skyportal-consumer/internal/delivery"
	"github.com/goriiin/skyportal-consumer/internal/listener"
	"github.com/goriiin/skyportal-consumer/internal/observe"
	"github.com/goriiin/skyportal-consumer/internal/platform/queue"
)

func main() {
	fallback, _ := observe.New(os.Stderr, "info")

	if err := run(context.Background(), os.Args[1:], fallback, queue.NewConsumer); err != nil {
		// Fatal exits 1; run has already closed the consumer.
		fallback.Fatal().Err(err).Msg("consumer stopped")
	}
}

type consumerFactory func(config.Settings, zerolog.Logger) (queue.Consumer, error)

// run returns once the listener stops. The consumer is closed on every path
// after it was created.
func run(parent context.Context, args []string, fallback zerolog.Logger, newConsumer consumerFactory) error {
	overrides, err := config.ParseFlags("skyportal-consumer", args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := config.LoadEnv(); err != nil {
		fallback.Warn().Err(err).Msg("ignoring .env file")
	}
	settings := config.Resolve(config.FromEnv(config.Defaults()), overrides)

	logger, err := observe.New(os.Stderr, settings.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer, err := newConsumer(settings, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close consumer")
		}
	}()

	// Метаданные нужны только для диагностики, поэтому ошибка не фатальна.
	if err := listener.ReportMetadata(ctx, consumer, settings.Topic, logger); err != nil {
		logger.Warn().Err(err).Msg("could not fetch topic metadata")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := listener.NewMetrics(reg)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer cancel()
		l := listener.New(consumer, listener.OptionsFrom(settings), logger, metrics)
		if err := l.Run(gctx); err != nil {
			return fmt.Errorf("listener: %w", err)
		}
		return nil
	})

	if settings.MetricsAddr != "" {
		g.Go(func() error {
			return delivery.Serve(gctx, settings.MetricsAddr, delivery.NewRouter(reg), observe.C(logger, "http"))
		})
	}

	return g.Wait()
}
