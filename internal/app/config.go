package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// File is a build file or a directory of build files. When empty the
	// build file is discovered in WorkDir.
	File    string
	WorkDir string
	Targets []string
	// Vars override variables declared in the build file.
	Vars map[string]string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	Color           bool

	// ReportPath is a local path or s3://bucket/key for the run report.
	ReportPath string

	NotifyURL       string
	NotifyNamespace string
	NotifyTimeout   time.Duration
}

// DefaultTask runs when no target is given and the build file declares it.
const DefaultTask = "default"

// DefaultConfig fills every field a caller leaves empty.
var DefaultConfig = Config{
	WorkDir:         ".",
	LogFormat:       "text",
	LogLevel:        "info",
	NotifyNamespace: "/",
	NotifyTimeout:   15 * time.Second,
}

// NewConfig merges cfg over DefaultConfig and validates the result.
func NewConfig(cfg Config) (*Config, error) {
	if err := mergo.Merge(&cfg, DefaultConfig); err != nil {
		return nil, fmt.Errorf("applying configuration defaults: %w", err)
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, errors.New("invalid log-format: must be 'text' or 'json'")
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck-port %d: must be between 0 and 65535", cfg.HealthcheckPort)
	}
	if cfg.NotifyTimeout < 0 {
		return nil, errors.New("invalid notify timeout: must not be negative")
	}
	return &cfg, nil
}
