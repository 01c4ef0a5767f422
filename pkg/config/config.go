// Package config loads the threatgraph configuration from YAML with
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dd0wney/cluso-threatgraph/pkg/api"
	"github.com/dd0wney/cluso-threatgraph/pkg/api/middleware"
	"github.com/dd0wney/cluso-threatgraph/pkg/engine"
	"github.com/dd0wney/cluso-threatgraph/pkg/graphql"
	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
	tlsconfig "github.com/dd0wney/cluso-threatgraph/pkg/tls"
	"github.com/dd0wney/cluso-threatgraph/pkg/validation"
	"github.com/dd0wney/cluso-threatgraph/pkg/visualization"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values
const (
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
	EnvAddr      = "THREATGRAPH_ADDR"
	EnvNNGAddr   = "THREATGRAPH_NNG_ADDR"
	EnvGraph     = "THREATGRAPH_GRAPH"

	// EnvCORSOrigins is a comma separated origin list
	EnvCORSOrigins = "THREATGRAPH_CORS_ORIGINS"
)

// DefaultNNGAddr is where frames are published when the transport is enabled
const DefaultNNGAddr = "tcp://127.0.0.1:40899"

// Server defaults used when a field is left unset
const (
	DefaultShutdownTimeout = 10 * time.Second
	DefaultStreamBuffer    = 4
	MaxStreamBuffer        = 1024
)

// Config is the full process configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    engine.Config   `yaml:"engine"`
	Transport TransportConfig `yaml:"transport"`
	Logging   LoggingConfig   `yaml:"logging"`
	Graph     GraphConfig     `yaml:"graph"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// RateLimit is pointer events per second per client; zero disables limiting
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
	// CORSOrigins lists browser origins allowed to call the API; "*" allows any
	CORSOrigins []string `yaml:"cors_origins"`
	// TrustedProxies are CIDRs whose X-Forwarded-For is believed for rate limiting
	TrustedProxies  []string `yaml:"trusted_proxies"`
	GraphQLMaxDepth int      `yaml:"graphql_max_depth"`
	// StreamBuffer is how many frames a stream subscriber may lag before
	// older ones are conflated
	StreamBuffer int `yaml:"stream_buffer"`

	TLS tlsconfig.Config `yaml:"tls"`
}

// Shutdown returns the graceful shutdown budget
func (s ServerConfig) Shutdown() time.Duration {
	return validation.DefaultOrDuration(s.ShutdownTimeout, DefaultShutdownTimeout)
}

// StreamBufferSize returns the per-subscriber frame buffer
func (s ServerConfig) StreamBufferSize() int {
	return validation.DefaultOr(s.StreamBuffer, DefaultStreamBuffer)
}

// TransportConfig configures the NNG frame publisher
type TransportConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Compress bool   `yaml:"compress"`
}

// LoggingConfig configures the default logger
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GraphConfig points at the node/edge fixture loaded at startup
type GraphConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: DefaultShutdownTimeout,
			RateLimit:       240,
			RateBurst:       60,
			GraphQLMaxDepth: graphql.DefaultMaxDepth,
			StreamBuffer:    DefaultStreamBuffer,
			TLS:             tlsconfig.DefaultConfig(),
		},
		Engine: engine.DefaultConfig(),
		Transport: TransportConfig{
			Addr:     DefaultNNGAddr,
			Compress: true,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path yields the defaults plus overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.decode(bytes.NewReader(data)); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without consulting the environment
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	if err := cfg.decode(r); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from the environment
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.Logging.Format = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvNNGAddr); ok && v != "" {
		c.Transport.Addr = v
		c.Transport.Enabled = true
	}
	if v, ok := lookup(EnvGraph); ok && v != "" {
		c.Graph.Path = v
	}
	if v, ok := lookup(EnvCORSOrigins); ok && v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// API converts the server section into HTTP API settings
func (c Config) API() api.Config {
	return api.Config{
		RateLimit:       c.Server.RateLimit,
		RateBurst:       c.Server.RateBurst,
		CORSOrigins:     c.Server.CORSOrigins,
		TrustedProxies:  c.Server.TrustedProxies,
		GraphQLMaxDepth: c.Server.GraphQLMaxDepth,
	}
}

// Validate checks every section and reports all problems at once
func (c Config) Validate() error {
	force := c.Engine.Force.WithDefaults()

	cv := validation.NewConfigValidator("config")
	cv.Required("server.addr", c.Server.Addr).
		MinDuration("server.shutdown_timeout", c.Server.Shutdown(), 100*time.Millisecond).
		RangeInt("server.stream_buffer", c.Server.StreamBufferSize(), 1, MaxStreamBuffer).
		NonNegativeFloat("server.rate_limit", c.Server.RateLimit).
		When(c.Server.RateLimit > 0, func(v *validation.ConfigValidator) {
			v.MinInt("server.rate_burst", c.Server.RateBurst, 1)
		}).
		RangeInt("server.graphql_max_depth", validation.DefaultOr(c.Server.GraphQLMaxDepth, graphql.DefaultMaxDepth), 1, 64).
		Custom("server.trusted_proxies", func() error {
			_, err := middleware.ParseTrustedProxies(c.Server.TrustedProxies)
			return err
		}).
		When(c.Server.TLS.Enabled, func(v *validation.ConfigValidator) {
			v.OneOf("server.tls.min_version", validation.DefaultOr(c.Server.TLS.MinVersion, tlsconfig.Version12),
				[]string{tlsconfig.Version12, tlsconfig.Version13})
			if !c.Server.TLS.SelfSigned {
				v.Required("server.tls.cert_file", c.Server.TLS.CertFile).
					Required("server.tls.key_file", c.Server.TLS.KeyFile)
			}
		}).
		RangeInt("engine.fps", validation.DefaultOr(c.Engine.FPS, engine.DefaultFPS), 1, 240).
		NonNegative("engine.force.workers", c.Engine.Force.Workers).
		OneOf("engine.seeding", validation.DefaultOr(c.Engine.Seeding, visualization.SeederRandom),
			[]string{visualization.SeederRandom, visualization.SeederCircular, visualization.SeederLayered}).
		PositiveFloat("engine.force.min_distance_sq", force.MinDistanceSq).
		PositiveFloat("engine.force.max_velocity", force.MaxVelocity).
		RangeFloat("engine.force.damping", force.Damping, 0, 1).
		Finite("engine.force.repulsion_strength", force.RepulsionStrength).
		Finite("engine.force.spring_constant", force.SpringConstant).
		NonNegativeFloat("engine.node_radius", c.Engine.NodeRadius).
		Custom("engine", c.Engine.Validate).
		When(c.Transport.Enabled, func(v *validation.ConfigValidator) {
			v.Required("transport.addr", c.Transport.Addr)
		}).
		OneOf("logging.level", c.Logging.Level, []string{"debug", "info", "warn", "warning", "error"}).
		OneOf("logging.format", c.Logging.Format, []string{"json", "text"})

	return cv.Validate()
}

// Logger builds the process logger described by the logging section
func (c Config) Logger(w io.Writer) logging.Logger {
	return logging.NewLogger(w, logging.ParseLevel(c.Logging.Level), logging.ParseFormat(c.Logging.Format))
}
