package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultServerURL = "kafka.scimma.org"
	DefaultTopic     = "skyportal.skyportal"

	// Credentials from https://scimma.org/hopauth/
	DefaultUsername = "your_scimma_username"
	DefaultPassword = "your_scimma_password"

	DriverConfluent = "confluent"
	DriverKafkaGo   = "kafka-go"
)

// Settings содержит итоговую конфигурацию консьюмера.
// Значение строится один раз при старте и дальше не меняется.
type Settings struct {
	ServerURL string
	Topic     string
	Username  string
	Password  string

	// FromStart forces a fresh consumer group, so the topic is re-read from the earliest offset.
	FromStart bool

	// MaxAgeDays - nil означает отсутствие ограничения по возрасту сообщений.
	MaxAgeDays *float64

	Driver      string
	Plaintext   bool
	MetricsAddr string
	LogLevel    string
}

// Overrides holds values taken from the command line. Zero values mean "not given".
type Overrides struct {
	ServerURL   string
	Topic       string
	Username    string
	Password    string
	FromStart   bool
	MaxAgeDays  float64
	Driver      string
	Plaintext   bool
	MetricsAddr string
	LogLevel    string
}

// Defaults возвращает встроенные значения по умолчанию.
func Defaults() Settings {
	return Settings{
		ServerURL: DefaultServerURL,
		Topic:     DefaultTopic,
		Username:  DefaultUsername,
		Password:  DefaultPassword,
		Driver:    DriverConfluent,
		LogLevel:  "info",
	}
}

// LoadEnv loads a .env file from the working directory if there is one.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// FromEnv накладывает переменные окружения SCIMMA_* поверх base.
func FromEnv(base Settings) Settings {
	base.ServerURL = getEnv("SCIMMA_SERVER_URL", base.ServerURL)
	base.Topic = getEnv("SCIMMA_TOPIC", base.Topic)
	base.Username = getEnv("SCIMMA_USERNAME", base.Username)
	base.Password = getEnv("SCIMMA_PASSWORD", base.Password)
	return base
}

// Resolve overlays command-line values on base. A value replaces the base one
// only when it is present and truthy; nothing is validated here.
func Resolve(base Settings, o Overrides) Settings {
	s := base
	if o.ServerURL != "" {
		s.ServerURL = o.ServerURL
	}
	if o.Topic != "" {
		s.Topic = o.Topic
	}
	if o.Username != "" {
		s.Username = o.Username
	}
	if o.Password != "" {
		s.Password = o.Password
	}
	if o.FromStart {
		s.FromStart = true
	}
	if o.MaxAgeDays != 0 {
		days := o.MaxAgeDays
		s.MaxAgeDays = &days
	}
	if o.Driver != "" {
		s.Driver = strings.ToLower(o.Driver)
	}
	if o.Plaintext {
		s.Plaintext = true
	}
	if o.MetricsAddr != "" {
		s.MetricsAddr = o.MetricsAddr
	}
	if o.LogLevel != "" {
		s.LogLevel = o.LogLevel
	}
	return s
}

// getEnv - чтение переменной окружения с fallback-значением.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
