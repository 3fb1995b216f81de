package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultSourceURL    = "https://docs.pyansys.com/version/dev/_sources/index.rst.txt"
	DefaultOutputPath   = "globalsitemap.xml"
	DefaultFetchTimeout = 10 * time.Second
	DefaultProbeTimeout = 10 * time.Second
	DefaultInterval     = 24 * time.Hour
)

type Config struct {
	Source struct {
		URL     string
		Format  string
		Timeout string
	}
	Probe struct {
		Timeout string
		Workers int
		Policy  string
	}
	Crawler struct {
		UserAgent string
	}
	Output struct {
		Path string
	}
	Database struct {
		URL string
	}
	Server struct {
		Enabled bool
		Port    int
	}
	Generator struct {
		Interval string
	}
	Logging struct {
		Dir string
	}
}

// LoadConfig reads config.yaml from . or ./config when present, then applies
// AGGREGATOR_* environment overrides (a .env file is loaded first). Every key
// has a default, so running without any config file is valid.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("aggregator")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Default values
	v.SetDefault("source.url", DefaultSourceURL)
	v.SetDefault("source.format", "auto")
	v.SetDefault("source.timeout", DefaultFetchTimeout.String())
	v.SetDefault("probe.timeout", DefaultProbeTimeout.String())
	v.SetDefault("probe.workers", 4)
	v.SetDefault("probe.policy", "not-found")
	v.SetDefault("crawler.useragent", "Sitemap Aggregator Bot v1.0")
	v.SetDefault("output.path", DefaultOutputPath)
	v.SetDefault("database.url", "")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("generator.interval", DefaultInterval.String())
	v.SetDefault("logging.dir", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Probe.Workers < 1 {
		config.Probe.Workers = 1
	}

	return &config, nil
}

func (c *Config) GetFetchTimeout() time.Duration {
	return parseDuration(c.Source.Timeout, DefaultFetchTimeout)
}

func (c *Config) GetProbeTimeout() time.Duration {
	return parseDuration(c.Probe.Timeout, DefaultProbeTimeout)
}

func (c *Config) GetGenerateInterval() time.Duration {
	return parseDuration(c.Generator.Interval, DefaultInterval)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil || duration <= 0 {
		return fallback
	}
	return duration
}
