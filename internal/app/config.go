package app

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/specialistvlad/avgboot/internal/hcl"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// BaseDir is the well-known directory holding env.avd and data/.
	BaseDir string
	// ConfigPath is the shell.hcl file; defaults to BaseDir/shell.hcl.
	ConfigPath string
	// Route is the URL the shell was opened with, e.g. "/main?assets_root=x".
	Route string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	IPCPort         int
	PlaygroundURL   string
	HistoryDB       string
	// WorkerCount overrides preload_options.workers when positive.
	WorkerCount int
	Headless    bool
	Lang        string
	// ExitAfterBoot stops the shell once the bootstrap finished instead of
	// serving until interrupted.
	ExitAfterBoot bool
}

// NewConfig validates cfg and fills in derived defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.BaseDir == "" {
		return nil, errors.New("BaseDir is a required configuration field and cannot be empty")
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = filepath.Join(cfg.BaseDir, hcl.FileName)
	}
	if cfg.Route == "" {
		cfg.Route = "/main"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}

	for name, port := range map[string]int{"healthcheck-port": cfg.HealthcheckPort, "ipc-port": cfg.IPCPort} {
		if port < 0 || port > 65535 {
			return nil, fmt.Errorf("invalid %s %d: must be between 0 and 65535", name, port)
		}
	}
	if cfg.HealthcheckPort != 0 && cfg.HealthcheckPort == cfg.IPCPort {
		return nil, fmt.Errorf("healthcheck-port and ipc-port must differ, both are %d", cfg.IPCPort)
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("invalid workers %d: must not be negative", cfg.WorkerCount)
	}
	return &cfg, nil
}
