package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("GENOMEMAP_TEST_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "genomemap.yaml")
	doc := `
server:
  http_addr: ":9000"
  auth_token: "${GENOMEMAP_TEST_TOKEN}"
  query_timeout: 2s
  rate_limit: 120
data:
  map: /data/map.bin
training:
  width: 20
  height: 10
  metric: manhattan
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.HTTPAddr != ":9000" || cfg.Server.AuthToken != "s3cret" {
		t.Errorf("server section not applied: %+v", cfg.Server)
	}
	if cfg.Server.QueryTimeout != 2*time.Second || cfg.Server.RateLimit != 120 {
		t.Errorf("durations or limits not applied: %+v", cfg.Server)
	}
	// Omitted values keep their defaults.
	if cfg.Server.ReadTimeout != 10*time.Second || cfg.Data.Tags != "genome-tags.csv" || cfg.Training.Epochs != 10000 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Data.Map != "/data/map.bin" || cfg.Training.Width != 20 || cfg.Training.Metric != "manhattan" {
		t.Errorf("data/training not applied: %+v %+v", cfg.Data, cfg.Training)
	}
	if level, _ := cfg.Logging.SlogLevel(); level != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", level)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.HTTPAddr != DefaultConfig().Server.HTTPAddr {
		t.Errorf("expected defaults, got %+v", cfg.Server)
	}
}

func TestDecodeStrict(t *testing.T) {
	cfg := DefaultConfig()
	err := Decode(strings.NewReader("server:\n  http_adr: \":1\"\n"), &cfg)
	if err == nil || !strings.Contains(err.Error(), "http_adr") {
		t.Errorf("expected unknown field error, got %v", err)
	}

	cfg = DefaultConfig()
	if err := Decode(strings.NewReader(""), &cfg); err != nil {
		t.Errorf("empty document: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"ZeroWidth":       func(c *Config) { c.Training.Width = 0 },
		"ZeroEpochs":      func(c *Config) { c.Training.Epochs = 0 },
		"ZeroScale":       func(c *Config) { c.Training.NeighbourhoodScale = 0 },
		"DecayAboveOne":   func(c *Config) { c.Training.DecayFraction = 1.1 },
		"NegativeWorkers": func(c *Config) { c.Training.Workers = -1 },
		"UnknownMetric":   func(c *Config) { c.Training.Metric = "chebyshev" },
		"BadPrecision":    func(c *Config) { c.Training.Precision = "int8" },
		"BadFormat":       func(c *Config) { c.Training.Format = "parquet" },
		"BadLevel":        func(c *Config) { c.Logging.Level = "loud" },
		"BadLogFormat":    func(c *Config) { c.Logging.Format = "xml" },
		"NegativeLimit":   func(c *Config) { c.Server.RateLimit = -5 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LoggingConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("unexpected log output %q", out)
	}
}
