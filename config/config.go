package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/tailscale/hujson"

	"castlepatch/castle"
	"castlepatch/corpus"
)

const FileName = ".castlepatch.json"

type Config struct {
	SiteName      string   `json:"site_name"`
	Patterns      []string `json:"patterns"`
	CatalogPath   string   `json:"catalog"`
	ImagesDir     string   `json:"images_dir"`
	ImagePrefix   string   `json:"image_prefix"`
	PageThreshold *float64 `json:"page_threshold"`
	CardThreshold *float64 `json:"card_threshold"`
	StopWords     []string `json:"stop_words"`
	Rules         []string `json:"rules"`
	Fetch         Fetch    `json:"fetch"`
}

type Fetch struct {
	RatePerSecond float64  `json:"rate_per_second"`
	Timeout       Duration `json:"timeout"`
	UserAgent     string   `json:"user_agent"`
	MaxBytes      int64    `json:"max_bytes"`
}

// Duration decodes from a Go duration string such as "15s".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// DefaultPatterns are the castle pages plus the overview pages and the shared
// assets. Province pages come from the catalog and are added at run time.
var DefaultPatterns = append(slices.Clone(castle.PagePatterns),
	"index.html", "provinces.html", "css/style.css", "js/main.js")

// LoadConfig reads .castlepatch.json from configDir, or configJSON when it
// is non-empty. Both accept JSON with comments and trailing commas.
func LoadConfig(configDir string, configJSON string) (*Config, error) {
	config := &Config{}

	if configJSON != "" {
		if err := parse([]byte(configJSON), config); err != nil {
			return nil, fmt.Errorf("error parsing config JSON: %w", err)
		}
		return finish(config)
	}

	configPath := filepath.Join(configDir, FileName)
	if data, err := os.ReadFile(configPath); err == nil {
		if err := parse(data, config); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", FileName, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("error reading %s: %w", FileName, err)
	}

	return finish(config)
}

func finish(config *Config) (*Config, error) {
	config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func parse(data []byte, config *Config) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("invalid JSONC: %w", err)
	}
	return json.Unmarshal(standardized, config)
}

func (c *Config) withDefaults() *Config {
	if c.SiteName == "" {
		c.SiteName = "kastelenbelgie.be"
	}
	if len(c.Patterns) == 0 {
		c.Patterns = DefaultPatterns
	}
	if c.CatalogPath == "" {
		c.CatalogPath = "catalog.yaml"
	}
	if c.ImagesDir == "" {
		c.ImagesDir = "chateaux_images"
	}
	if c.ImagePrefix == "" {
		c.ImagePrefix = "./" + filepath.ToSlash(c.ImagesDir) + "/"
	}
	if c.PageThreshold == nil {
		c.PageThreshold = ptr(0.3)
	}
	if c.CardThreshold == nil {
		c.CardThreshold = ptr(0.4)
	}
	if c.Fetch.RatePerSecond == 0 {
		c.Fetch.RatePerSecond = 1
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = Duration(15 * time.Second)
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "castlepatch/1.0 (+https://kastelenbelgie.be)"
	}
	if c.Fetch.MaxBytes == 0 {
		c.Fetch.MaxBytes = 10 << 20
	}
	return c
}

func ptr(v float64) *float64 { return &v }

// Validate checks thresholds and pattern syntax.
func (c *Config) Validate() error {
	thresholds := []struct {
		name  string
		value *float64
	}{{"page_threshold", c.PageThreshold}, {"card_threshold", c.CardThreshold}}
	for _, th := range thresholds {
		if th.value != nil && (*th.value < 0 || *th.value >= 1) {
			return fmt.Errorf("%s must be in [0, 1), got %v", th.name, *th.value)
		}
	}
	if c.Fetch.RatePerSecond < 0 {
		return fmt.Errorf("fetch.rate_per_second must not be negative")
	}
	return corpus.Validate(c.Patterns)
}

// Resolve makes a path from the config relative to the site root.
func Resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
