package server

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-layout/pkg/validation"
)

// Config holds the daemon configuration. Fields left zero in the YAML file
// pick up defaults via ApplyDefaults.
type Config struct {
	// ListenAddr is the rep socket address (tcp://, ipc://, inproc://).
	ListenAddr string `yaml:"listen_addr"`

	// Transport selects the messaging backend: "mangos" (default) or "zmq".
	Transport string `yaml:"transport"`

	// Workers is the number of concurrent request loops. Backends without
	// context multiplexing are capped to one loop regardless.
	Workers int `yaml:"workers"`

	// AdminAddr is the HTTP address for health and metrics. Empty disables
	// the admin listener.
	AdminAddr string `yaml:"admin_addr"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Session limits, forwarded to the engine.
	MaxSessions        int `yaml:"max_sessions"`
	MaxNodesPerSession int `yaml:"max_nodes_per_session"`
	MaxEdgesPerSession int `yaml:"max_edges_per_session"`

	// SessionTTL evicts sessions idle longer than this. Zero disables
	// eviction. Create and compute refresh a session's clock.
	SessionTTL time.Duration `yaml:"session_ttl"`

	// SweepInterval is how often the janitor runs eviction and refreshes
	// system metrics.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// RecvTimeout bounds how long a request loop blocks before rechecking
	// for shutdown. SendTimeout bounds response delivery.
	RecvTimeout time.Duration `yaml:"recv_timeout"`
	SendTimeout time.Duration `yaml:"send_timeout"`

	// ShutdownTimeout bounds the graceful drain before in-flight computes
	// are cancelled.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		ListenAddr:         "tcp://127.0.0.1:9800",
		Transport:          "mangos",
		Workers:            4,
		AdminAddr:          "127.0.0.1:9801",
		LogLevel:           "info",
		MaxSessions:        256,
		MaxNodesPerSession: 100_000,
		MaxEdgesPerSession: 1_000_000,
		SessionTTL:         10 * time.Minute,
		SweepInterval:      30 * time.Second,
		RecvTimeout:        1 * time.Second,
		SendTimeout:        5 * time.Second,
		ShutdownTimeout:    30 * time.Second,
	}
}

// LoadConfig reads a YAML config file, fills defaults, and validates.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued fields from DefaultConfig. SessionTTL is
// left alone: zero there is meaningful (eviction off).
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	c.ListenAddr = validation.DefaultOr(c.ListenAddr, defaults.ListenAddr)
	c.Transport = validation.DefaultOr(c.Transport, defaults.Transport)
	c.Workers = validation.DefaultOrInt(c.Workers, defaults.Workers)
	c.LogLevel = validation.DefaultOr(c.LogLevel, defaults.LogLevel)
	c.MaxSessions = validation.DefaultOrInt(c.MaxSessions, defaults.MaxSessions)
	c.MaxNodesPerSession = validation.DefaultOrInt(c.MaxNodesPerSession, defaults.MaxNodesPerSession)
	c.MaxEdgesPerSession = validation.DefaultOrInt(c.MaxEdgesPerSession, defaults.MaxEdgesPerSession)
	c.SweepInterval = validation.DefaultOrDuration(c.SweepInterval, defaults.SweepInterval)
	c.RecvTimeout = validation.DefaultOrDuration(c.RecvTimeout, defaults.RecvTimeout)
	c.SendTimeout = validation.DefaultOrDuration(c.SendTimeout, defaults.SendTimeout)
	c.ShutdownTimeout = validation.DefaultOrDuration(c.ShutdownTimeout, defaults.ShutdownTimeout)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	v := validation.NewConfigValidator("ServerConfig")

	v.Required("ListenAddr", c.ListenAddr).
		OneOf("Transport", c.Transport, []string{"mangos", "zmq"}).
		RangeInt("Workers", c.Workers, 1, 64).
		MinDuration("SweepInterval", c.SweepInterval, time.Second).
		MinDuration("RecvTimeout", c.RecvTimeout, 10*time.Millisecond).
		MinDuration("SendTimeout", c.SendTimeout, 10*time.Millisecond).
		MinDuration("ShutdownTimeout", c.ShutdownTimeout, time.Second).
		Positive("MaxSessions", c.MaxSessions).
		Positive("MaxNodesPerSession", c.MaxNodesPerSession).
		Positive("MaxEdgesPerSession", c.MaxEdgesPerSession)

	v.When(c.SessionTTL != 0, func(cv *validation.ConfigValidator) {
		cv.MinDuration("SessionTTL", c.SessionTTL, time.Second)
	})

	v.OneOf("LogLevel", c.LogLevel, []string{"debug", "info", "warn", "error"})

	return v.Validate()
}
