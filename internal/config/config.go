package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"moneyrank-service/internal/scoring"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Challenge struct {
		TTL string `yaml:"ttl"`
	} `yaml:"challenge"`
	Scoring struct {
		GreatAt int `yaml:"great_at"`
		GoodAt  int `yaml:"good_at"`
	} `yaml:"scoring"`
	Aggregation struct {
		SymmetricReplacement bool `yaml:"symmetric_replacement"`
	} `yaml:"aggregation"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Thresholds returns the configured grade cutoffs, falling back to the
// product defaults when unset. One configuration object feeds both scoring
// and any reporting surface so the tier literals never diverge.
func (c Config) Thresholds() scoring.Thresholds {
	t := scoring.DefaultThresholds()
	if c.Scoring.GreatAt > 0 {
		t.Great = c.Scoring.GreatAt
	}
	if c.Scoring.GoodAt > 0 {
		t.Good = c.Scoring.GoodAt
	}
	return t
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
