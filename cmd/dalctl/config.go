package main

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/creasty/defaults"
	"github.com/sirupsen/logrus"
)

// Config is the dalctl configuration file. Keys missing from the file keep
// their defaults.
type Config struct {
	LogLevel  string `toml:"log_level" default:"warn"`
	LogFormat string `toml:"log_format" default:"text"`
	// Color is one of auto, always and never.
	Color string `toml:"color" default:"auto"`

	// ChunkLength is the chunk length along the first axis used by
	// create when a skeleton array gives no chunk shape.
	ChunkLength uint64 `toml:"chunk_length" default:"1024"`
	Deflate     int    `toml:"deflate" default:"0"`
	JSONIndent  string `toml:"json_indent" default:"  "`
}

// LoadConfig reads the configuration at path. An empty path gives the
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if path == "" {
		return cfg, cfg.validate()
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown keys %v", path, undecoded)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: log_format %q is not text or json", c.LogFormat)
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("config: color %q is not auto, always or never", c.Color)
	}
	if c.ChunkLength == 0 {
		return fmt.Errorf("config: chunk_length must be positive")
	}
	if c.Deflate < 0 || c.Deflate > 9 {
		return fmt.Errorf("config: deflate level %d out of range 0-9", c.Deflate)
	}
	return nil
}

func newLogger(c *Config, w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	if c.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return l, nil
}
