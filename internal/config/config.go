package config

import (
	"errors"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the lobby server base URL baked in at build time:
//
//	go build -ldflags "-X quiz-session-client/internal/config.DefaultEndpoint=wss://quiz.example.com"
var DefaultEndpoint = "ws://localhost:8080"

const (
	DefaultPath           = "/ws"
	DefaultConnectTimeout = 10 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
	DefaultReadLimit      = 64 << 10
	DefaultInboundBuffer  = 16
)

type Config struct {
	Server struct {
		Endpoint string `yaml:"endpoint"`
		Path     string `yaml:"path"`
	} `yaml:"server"`
	Client struct {
		ConnectTimeout string `yaml:"connect_timeout"`
		WriteTimeout   string `yaml:"write_timeout"`
		ReadLimit      int64  `yaml:"read_limit"`
		InboundBuffer  int    `yaml:"inbound_buffer"`
	} `yaml:"client"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{}
	cfg.Server.Endpoint = DefaultEndpoint
	cfg.Server.Path = DefaultPath
	return cfg
}

// Load reads YAML config from path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Server.Endpoint == "" {
		cfg.Server.Endpoint = DefaultEndpoint
	}
	if cfg.Server.Path == "" {
		cfg.Server.Path = DefaultPath
	}
	return cfg, nil
}

// URL joins the endpoint and path into the websocket URL to dial.
func (c Config) URL() (string, error) {
	u, err := url.Parse(c.Server.Endpoint)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("endpoint scheme must be ws, wss, http or https")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(c.Server.Path, "/")
	return u.String(), nil
}

func (c Config) ConnectTimeout() time.Duration {
	return Duration(c.Client.ConnectTimeout, DefaultConnectTimeout)
}

func (c Config) WriteTimeout() time.Duration {
	return Duration(c.Client.WriteTimeout, DefaultWriteTimeout)
}

func (c Config) ReadLimit() int64 {
	if c.Client.ReadLimit <= 0 {
		return DefaultReadLimit
	}
	return c.Client.ReadLimit
}

func (c Config) InboundBuffer() int {
	if c.Client.InboundBuffer <= 0 {
		return DefaultInboundBuffer
	}
	return c.Client.InboundBuffer
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}
