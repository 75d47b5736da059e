package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to run a triage report or the serve loop.
type Config struct {
	Jenkins JenkinsConfig     `yaml:"jenkins"`
	Catalog CatalogConfig     `yaml:"catalog"`
	Report  ReportConfig      `yaml:"report"`
	Serve   ServeConfig       `yaml:"serve"`
	Logging LoggingConfig     `yaml:"logging"`
	Aliases map[string]string `yaml:"aliases"`
}

// JenkinsConfig configures access to the Jenkins REST API.
type JenkinsConfig struct {
	URL      string        `yaml:"url"`
	Username string        `yaml:"username"`
	APIToken string        `yaml:"apiToken"`
	Timeout  time.Duration `yaml:"timeout"`
}

// CatalogConfig controls failure-signature catalog loading.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// ReportConfig holds the default report parameters.
type ReportConfig struct {
	Job            string `yaml:"job"`
	HoursAgo       int    `yaml:"hoursAgo"`
	IncludeSuccess bool   `yaml:"includeSuccess"`
	Parallelism    int    `yaml:"parallelism"`
}

// ServeConfig controls HTTP listener behaviour in serve mode.
type ServeConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
	ConsoleCacheTTL time.Duration `yaml:"consoleCacheTTL"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// SettingsError reports settings that cannot produce a working Jenkins connection.
type SettingsError struct {
	Reason string
}

func (e *SettingsError) Error() string {
	return fmt.Sprintf("invalid settings: %s", e.Reason)
}

const exampleSettings = `jenkins:
  url: https://jenkins.example.com
  username: ci-bot
  apiToken: "<token from /user/ci-bot/configure>"
catalog:
  path: configs/causes.yaml
report:
  job: nightly-deploy
  hoursAgo: 30`

// Guidance returns an example settings file for the operator.
func (e *SettingsError) Guidance() string {
	return "expected a settings file like:\n\n" + exampleSettings
}

// Load initialises Config from a YAML file and optional environment overrides.
// An empty path falls back to BUILDTRIAGE_CONFIG, then to ~/.buildtriage.yaml;
// only the home-directory fallback tolerates a missing file.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		if v := os.Getenv("BUILDTRIAGE_CONFIG"); v != "" {
			path = v
			explicit = true
		}
	}
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".buildtriage.yaml")
		}
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
			// Defaults plus environment overrides carry the run.
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("config file %s not found: %w", path, err)
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Validate checks that the settings describe a reachable Jenkins instance.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Jenkins.URL) == "" {
		return &SettingsError{Reason: "jenkins.url is not set"}
	}
	return nil
}

// ResolveJob expands a job alias to its full Jenkins job name.
func (c *Config) ResolveJob(name string) string {
	if full, ok := c.Aliases[name]; ok {
		return full
	}
	return name
}

func defaultConfig() Config {
	return Config{
		Jenkins: JenkinsConfig{Timeout: 15 * time.Second},
		Catalog: CatalogConfig{Path: "configs/causes.yaml"},
		Report: ReportConfig{
			HoursAgo:    30,
			Parallelism: 4,
		},
		Serve: ServeConfig{
			Address:         ":8081",
			MetricsAddress:  ":2112",
			RefreshInterval: 5 * time.Minute,
			ConsoleCacheTTL: 10 * time.Minute,
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BUILDTRIAGE_JENKINS_URL"); v != "" {
		cfg.Jenkins.URL = v
	}
	if v := os.Getenv("BUILDTRIAGE_JENKINS_USERNAME"); v != "" {
		cfg.Jenkins.Username = v
	}
	if v := os.Getenv("BUILDTRIAGE_JENKINS_API_TOKEN"); v != "" {
		cfg.Jenkins.APIToken = v
	}
	if v := os.Getenv("BUILDTRIAGE_JENKINS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Jenkins.Timeout = d
		}
	}
	if v := os.Getenv("BUILDTRIAGE_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}
	if v := os.Getenv("BUILDTRIAGE_REPORT_JOB"); v != "" {
		cfg.Report.Job = v
	}
	if v := os.Getenv("BUILDTRIAGE_REPORT_HOURS_AGO"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			cfg.Report.HoursAgo = hours
		}
	}
	if v := os.Getenv("BUILDTRIAGE_REPORT_INCLUDE_SUCCESS"); v != "" {
		cfg.Report.IncludeSuccess = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("BUILDTRIAGE_REPORT_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Report.Parallelism = n
		}
	}
	if v := os.Getenv("BUILDTRIAGE_SERVE_ADDRESS"); v != "" {
		cfg.Serve.Address = v
	}
	if v := os.Getenv("BUILDTRIAGE_METRICS_ADDRESS"); v != "" {
		cfg.Serve.MetricsAddress = v
	}
	if v := os.Getenv("BUILDTRIAGE_SERVE_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Serve.RefreshInterval = d
		}
	}
	if v := os.Getenv("BUILDTRIAGE_SERVE_CONSOLE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Serve.ConsoleCacheTTL = d
		}
	}
	if v := os.Getenv("BUILDTRIAGE_SERVE_GRACEFUL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Serve.GracefulTimeout = d
		}
	}
	if v := os.Getenv("BUILDTRIAGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BUILDTRIAGE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}
