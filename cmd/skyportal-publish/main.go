// skyportal-publish writes JSON documents (one per line) to the SkyPortal
// topic. It is meant for feeding a local broker while working on the consumer.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/goriiin/skyportal-consumer/internal/config"
	"github.com/goriiin/skyportal-consumer/internal/observe"
	"github.com/goriiin/skyportal-consumer/internal/platform/queue"
	"github.com/goriiin/skyportal-consumer/pkg/skyportal"
)

type publishFlags struct {
	overrides config.Overrides
	file      string
	key       string
	raw       bool
}

func parseFlags(args []string) (publishFlags, error) {
	var f publishFlags

	fs := pflag.NewFlagSet("skyportal-publish", pflag.ContinueOnError)
	fs.StringVar(&f.overrides.ServerURL, "server", "", "Bootstrap server")
	fs.StringVar(&f.overrides.Topic, "topic", "", "Topic to write to")
	fs.StringVar(&f.overrides.Username, "username", "", "SCiMMA username")
	fs.StringVar(&f.overrides.Password, "password", "", "SCiMMA password")
	fs.BoolVar(&f.overrides.Plaintext, "plaintext", false, "Connect without TLS and SASL")
	fs.StringVar(&f.file, "file", "-", "Input file with one JSON document per line, - for stdin")
	fs.StringVar(&f.key, "key", "", "Message key for every document")
	fs.BoolVar(&f.raw, "raw", false, "Publish lines as-is without checking they are JSON objects")

	if err := fs.Parse(args); err != nil {
		return publishFlags{}, err
	}
	return f, nil
}

func main() {
	logger, _ := observe.New(os.Stderr, "info")

	if err := run(os.Args[1:], logger); err != nil {
		logger.Fatal().Err(err).Msg("publish failed")
	}
}

func run(args []string, logger zerolog.Logger) error {
	f, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := config.LoadEnv(); err != nil {
		logger.Warn().Err(err).Msg("ignoring .env file")
	}
	settings := config.Resolve(config.FromEnv(config.Defaults()), f.overrides)

	in := io.Reader(os.Stdin)
	if f.file != "-" {
		file, err := os.Open(f.file)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer file.Close()
		in = file
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	producer, err := queue.NewProducer(settings, "skyportal-publish-"+uuid.NewString())
	if err != nil {
		return err
	}
	defer producer.Close()

	n, err := publishLines(ctx, in, producer, []byte(f.key), f.raw, logger)
	logger.Info().Int("published", n).Str("topic", settings.Topic).Msg("done")
	return err
}

type publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// publishLines sends every non-blank line of in. Lines that are not JSON
// objects are skipped with a warning unless raw is set.
func publishLines(ctx context.Context, in io.Reader, p publisher, key []byte, raw bool, logger zerolog.Logger) (int, error) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	published, lineNo := 0, 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !raw {
			if _, err := skyportal.Decode([]byte(line)); err != nil {
				logger.Warn().Int("line", lineNo).Err(err).Msg("skipping invalid document")
				continue
			}
		}
		if err := p.Publish(ctx, key, []byte(line)); err != nil {
			return published, fmt.Errorf("line %d: %w", lineNo, err)
		}
		published++
	}
	if err := sc.Err(); err != nil {
		return published, fmt.Errorf("read input: %w", err)
	}
	return published, nil
}
