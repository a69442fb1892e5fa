package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the orchestrator's effective configuration.
// Precedence: defaults, then deerun.yaml, then environment variables.
type Config struct {
	Home           string   `yaml:"home"`
	AgentBin       string   `yaml:"agent_bin"`
	MainRepoPath   string   `yaml:"main_repo_path"`
	WorktreeDir    string   `yaml:"worktree_dir"`
	DBPath         string   `yaml:"db_path"`
	LogDir         string   `yaml:"log_dir"`
	Tracker        string   `yaml:"tracker" validate:"omitempty,oneof=none mock"`
	StderrLevel    string   `yaml:"stderr_level" validate:"omitempty,oneof=debug info warn error"`
	GracePeriodSec int      `yaml:"grace_period_sec" validate:"gte=0"`
	ExtraPaths     []string `yaml:"extra_paths"`
}

// GracePeriod returns the terminate-to-kill delay as a duration
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodSec) * time.Second
}

// Load builds the effective configuration. configPath may be empty, in
// which case <home>/deerun.yaml is tried; a missing file is not an error.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		AgentBin:       "claude",
		Tracker:        "none",
		StderrLevel:    "info",
		GracePeriodSec: 5,
	}

	home := os.Getenv("DEERUN_HOME")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		home = filepath.Join(userHome, ".deerun")
	}
	cfg.Home = home

	if configPath == "" {
		configPath = filepath.Join(cfg.Home, "deerun.yaml")
	}
	if raw, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", configPath, err)
	}

	applyEnv(cfg)
	applyDerivedDefaults(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnv lets DEERUN_* variables override file values
func applyEnv(cfg *Config) {
	set := func(target *string, key string) {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
	set(&cfg.Home, "DEERUN_HOME")
	set(&cfg.AgentBin, "DEERUN_AGENT_BIN")
	set(&cfg.MainRepoPath, "DEERUN_MAIN_REPO_PATH")
	set(&cfg.WorktreeDir, "DEERUN_WORKTREE_DIR")
	set(&cfg.DBPath, "DEERUN_DB_PATH")
	set(&cfg.LogDir, "DEERUN_LOG_DIR")
	set(&cfg.Tracker, "DEERUN_TRACKER")
	set(&cfg.StderrLevel, "DEERUN_STDERR_LEVEL")
}

// applyDerivedDefaults fills path settings that hang off Home
func applyDerivedDefaults(cfg *Config) {
	if cfg.WorktreeDir == "" {
		cfg.WorktreeDir = filepath.Join(cfg.Home, "worktrees")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.Home, "deerun.db")
	}
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.Home, "logs")
	}
}
