package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds the client settings. Environment variables use the CHAT_ prefix.
type Config struct {
	ServerURL string `envconfig:"SERVER_URL" default:"ws://127.0.0.1:8091/ws"`
	DataPath  string `envconfig:"DATA_PATH"`
	Port      int    `envconfig:"HTTP_PORT" default:"-1"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile   string `envconfig:"LOG_FILE"`
	Plain     bool   `envconfig:"PLAIN" default:"false"`

	// Relays are portal relay URLs publishing the transcript; empty disables it.
	Relays    []string `envconfig:"RELAY"`
	RelayName string   `envconfig:"RELAY_NAME" default:"portal-chat"`
	CredKey   string   `envconfig:"CRED_KEY"`
}

// Load reads an optional .env file, then the CHAT_* environment.
func Load(envFiles ...string) (Config, error) {
	// A missing .env is normal; variables may come from the shell.
	_ = godotenv.Load(envFiles...)
	var cfg Config
	if err := envconfig.Process("CHAT", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	return cfg, nil
}

// Validate checks values that flags or environment may have set badly.
func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("%w: server url: %v", ErrInvalid, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: server url scheme %q, want ws or wss", ErrInvalid, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: server url has no host", ErrInvalid)
	}
	if c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Port)
	}
	if len(c.Relays) > 0 && c.RelayName == "" {
		return fmt.Errorf("%w: relay name is empty", ErrInvalid)
	}
	return nil
}
