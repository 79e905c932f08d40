// Package config loads the YAML configuration shared by the Noesis
// console and the mock pipeline daemon.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JuanCS-Dev/Noesis/internal/stream"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Stream   StreamConfig   `yaml:"stream"`
	Producer ProducerConfig `yaml:"producer"`
}

// ServerConfig is the bind address of the mock pipeline daemon.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// StreamConfig describes the pipeline endpoint the console talks to and
// the coherence-target parameters both sides agree on.
type StreamConfig struct {
	// BaseURL of the pipeline producer.
	BaseURL string `yaml:"base_url"`
	// Namespace prefixes the well-known paths: /{namespace}/stream/process
	// and /{namespace}/journal.
	Namespace string `yaml:"namespace"`
	// Baseline and Increment of the coherence target formula
	// baseline + depth*increment.
	Baseline  float64 `yaml:"baseline"`
	Increment float64 `yaml:"increment"`
	// Depth used when the caller does not pass one explicitly.
	Depth int `yaml:"depth"`
}

// ProducerConfig paces the mock daemon's emitted stream.
type ProducerConfig struct {
	// PhaseDwell is how long the pipeline lingers in each phase.
	PhaseDwell Duration `yaml:"phase_dwell"`
	// TokenInterval is the gap between emitted token fragments.
	TokenInterval Duration `yaml:"token_interval"`
	// Heartbeat is the idle interval after which a heartbeat record is
	// pushed to keep the connection warm.
	Heartbeat Duration `yaml:"heartbeat"`
}

// Duration is a time.Duration that unmarshals YAML scalars in either
// time.ParseDuration form ("500ms") or integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return perr
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := node.Decode(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8090,
			Host: "127.0.0.1",
		},
		Stream: StreamConfig{
			BaseURL:   "http://127.0.0.1:8090",
			Namespace: stream.DefaultNamespace,
			Baseline:  stream.DefaultBaseline,
			Increment: stream.DefaultIncrement,
			Depth:     stream.DefaultDepth,
		},
		Producer: ProducerConfig{
			PhaseDwell:    Duration(1200 * time.Millisecond),
			TokenInterval: Duration(80 * time.Millisecond),
			Heartbeat:     Duration(15 * time.Second),
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// Load reads the config at path, applying defaults for unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the defaults
// instead of an error. Other failures (unreadable file, invalid YAML)
// still surface.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	return cfg, err
}
