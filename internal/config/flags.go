package config

import (
	"github.com/spf13/pflag"
)

// ParseFlags parses consumer command-line arguments (without the program name).
func ParseFlags(name string, args []string) (Overrides, error) {
	var o Overrides

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVar(&o.Username, "username", "", "SCiMMA username")
	fs.StringVar(&o.Password, "password", "", "SCiMMA password")
	fs.BoolVar(&o.FromStart, "from-start", false,
		"If true, start reading the topic from the beginning (use a unique consumer group). "+
			"If false, resume reading from the last committed offset for this consumer group.")
	fs.Float64Var(&o.MaxAgeDays, "max-age-days", 0,
		"Skip messages older than this number of days (default: no limit)")
	fs.StringVar(&o.ServerURL, "server", "", "Bootstrap server (default "+DefaultServerURL+")")
	fs.StringVar(&o.Topic, "topic", "", "Topic to consume (default "+DefaultTopic+")")
	fs.StringVar(&o.Driver, "driver", "", "Client backend: confluent or kafka-go (default confluent)")
	fs.BoolVar(&o.Plaintext, "plaintext", false, "Connect without TLS and SASL (local brokers only)")
	fs.StringVar(&o.MetricsAddr, "metrics-addr", "", "Address for /health and /metrics, e.g. :9102 (disabled when empty)")
	fs.StringVar(&o.LogLevel, "log-level", "", "Log level: debug, info, warn, error (default info)")

	if err := fs.Parse(args); err != nil {
		return Overrides{}, err
	}
	return o, nil
}
