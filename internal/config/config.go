// Package config holds the YAML configuration shared by the genomemap commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sanonone/genomemap/pkg/core/distance"
	"github.com/sanonone/genomemap/pkg/persistence"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the top-level configuration file.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Data     DataConfig     `yaml:"data"`
	Training TrainingConfig `yaml:"training"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP query API.
type ServerConfig struct {
	HTTPAddr       string        `yaml:"http_addr"`
	AuthToken      string        `yaml:"auth_token"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`
	RateLimit      int           `yaml:"rate_limit"` // requests per minute per IP, 0 disables
}

// DataConfig points to the dataset files served by the query API.
type DataConfig struct {
	Map     string `yaml:"map"`
	Tags    string `yaml:"tags"`
	Movies  string `yaml:"movies"`
	Links   string `yaml:"links"` // optional
	Vectors string `yaml:"vectors"`
}

// TrainingConfig configures `genomemap train`.
type TrainingConfig struct {
	Width              int     `yaml:"width"`
	Height             int     `yaml:"height"`
	Epochs             int     `yaml:"epochs"`
	NeighbourhoodScale float64 `yaml:"neighbourhood_scale"`
	DecayFraction      float64 `yaml:"decay_fraction"`
	Metric             string  `yaml:"metric"`
	Seed               int64   `yaml:"seed"` // 0 seeds from the clock
	Workers            int     `yaml:"workers"`
	Format             string  `yaml:"format"`
	Precision          string  `yaml:"precision"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// DefaultConfig returns a configuration that serves a local dataset on :8000.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr:       ":8000",
			AllowedOrigins: []string{"*"},
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   30 * time.Second,
			QueryTimeout:   15 * time.Second,
		},
		Data: DataConfig{
			Map:     "map.csv",
			Tags:    "genome-tags.csv",
			Movies:  "movies.csv",
			Vectors: "genome-matrix.csv",
		},
		Training: TrainingConfig{
			Width:              40,
			Height:             40,
			Epochs:             10000,
			NeighbourhoodScale: 1,
			DecayFraction:      0.8,
			Metric:             string(distance.Hexagonal),
			Format:             string(persistence.FormatText),
			Precision:          string(persistence.Float32),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML configuration file using strict parsing. Environment
// variables in the file are expanded. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := Decode(bytes.NewReader(raw), &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Decode strictly decodes YAML onto cfg, keeping values the document omits.
func Decode(r io.Reader, cfg *Config) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	decoder := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(raw))))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("YAML syntax error: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	t := c.Training
	switch {
	case t.Width <= 0 || t.Height <= 0:
		return fmt.Errorf("%w: training map size %dx%d must be positive", ErrInvalidConfig, t.Width, t.Height)
	case t.Epochs <= 0:
		return fmt.Errorf("%w: training.epochs must be positive", ErrInvalidConfig)
	case t.NeighbourhoodScale <= 0:
		return fmt.Errorf("%w: training.neighbourhood_scale must be positive", ErrInvalidConfig)
	case t.DecayFraction <= 0 || t.DecayFraction > 1:
		return fmt.Errorf("%w: training.decay_fraction must be in (0, 1]", ErrInvalidConfig)
	case t.Workers < 0:
		return fmt.Errorf("%w: training.workers must not be negative", ErrInvalidConfig)
	case c.Server.RateLimit < 0:
		return fmt.Errorf("%w: server.rate_limit must not be negative", ErrInvalidConfig)
	case c.Server.QueryTimeout < 0:
		return fmt.Errorf("%w: server.query_timeout must not be negative", ErrInvalidConfig)
	}
	if _, err := distance.ParseMetric(t.Metric); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := persistence.ParsePrecision(t.Precision); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch persistence.Format(t.Format) {
	case "", persistence.FormatText, persistence.FormatSnapshot:
	default:
		return fmt.Errorf("%w: unknown training.format '%s'", ErrInvalidConfig, t.Format)
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown logging.format '%s'", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// SlogLevel parses the configured level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, fmt.Errorf("%w: logging.level: %w", ErrInvalidConfig, err)
	}
	return level, nil
}

// NewLogger builds the slog logger described by the configuration.
func (l LoggingConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
