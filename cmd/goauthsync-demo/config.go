package main

import (
	"fmt"
	"os"
	"time"

	goAuthSync "github.com/MrEthical07/goAuthSync"
	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML overlay. Absent fields keep the values
// loaded from the environment.
type fileConfig struct {
	API struct {
		BaseURL *string `yaml:"base_url"`
		Timeout *string `yaml:"timeout"`
	} `yaml:"api"`
	Storage struct {
		TokenKey *string `yaml:"token_key"`
		UserKey  *string `yaml:"user_key"`
	} `yaml:"storage"`
	Navigation struct {
		DefaultPath      *string `yaml:"default_path"`
		ConfirmEmailPath *string `yaml:"confirm_email_path"`
	} `yaml:"navigation"`
	Session struct {
		RejectExpiredTokens *bool   `yaml:"reject_expired_tokens"`
		ExpiryLeeway        *string `yaml:"expiry_leeway"`
	} `yaml:"session"`
	Metrics struct {
		Enabled           *bool `yaml:"enabled"`
		LatencyHistograms *bool `yaml:"latency_histograms"`
	} `yaml:"metrics"`
}

// loadConfig reads GOAUTHSYNC_* variables and then applies path, if set.
func loadConfig(path string) (goAuthSync.Config, error) {
	cfg, err := goAuthSync.LoadConfigFromEnv()
	if err != nil {
		return goAuthSync.Config{}, err
	}
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return goAuthSync.Config{}, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return goAuthSync.Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := fc.apply(&cfg); err != nil {
		return goAuthSync.Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return goAuthSync.Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (fc fileConfig) apply(cfg *goAuthSync.Config) error {
	setString(&cfg.API.BaseURL, fc.API.BaseURL)
	if err := setDuration(&cfg.API.Timeout, fc.API.Timeout); err != nil {
		return fmt.Errorf("api.timeout: %w", err)
	}
	setString(&cfg.Storage.TokenKey, fc.Storage.TokenKey)
	setString(&cfg.Storage.UserKey, fc.Storage.UserKey)
	setString(&cfg.Navigation.DefaultPath, fc.Navigation.DefaultPath)
	setString(&cfg.Navigation.ConfirmEmailPath, fc.Navigation.ConfirmEmailPath)
	if fc.Session.RejectExpiredTokens != nil {
		cfg.Session.RejectExpiredTokens = *fc.Session.RejectExpiredTokens
	}
	if err := setDuration(&cfg.Session.ExpiryLeeway, fc.Session.ExpiryLeeway); err != nil {
		return fmt.Errorf("session.expiry_leeway: %w", err)
	}
	if fc.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *fc.Metrics.Enabled
	}
	if fc.Metrics.LatencyHistograms != nil {
		cfg.Metrics.EnableLatencyHistograms = *fc.Metrics.LatencyHistograms
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
