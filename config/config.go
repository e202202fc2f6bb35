// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

// Package config loads the configuration of the mock trace agent from an
// optional YAML file and DD_MOCK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/DataDog/viper"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"
)

const (
	// EnvPrefix is the prefix of the environment variables overriding the
	// configuration, e.g. DD_MOCK_RECEIVER_PORT
	EnvPrefix = "DD_MOCK"

	defaultConfigName = "mocktraceagent"
)

// Config is the configuration of the mock trace agent
type Config struct {
	ReceiverHost    string        `yaml:"receiver_host"`
	ReceiverPort    int           `yaml:"receiver_port"`
	BindRetries     int           `yaml:"bind_retries"`
	DecodeTraces    bool          `yaml:"decode_traces"`
	ReceiverTimeout time.Duration `yaml:"receiver_timeout"`
	MaxRequestBytes int64         `yaml:"max_request_bytes"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	WaitTimeout     time.Duration `yaml:"wait_timeout"`
	Language        string        `yaml:"language"`
	LogLevel        string        `yaml:"log_level"`
	MetricsAddr     string        `yaml:"metrics_addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("receiver_host", "localhost")
	v.SetDefault("receiver_port", 8126)
	v.SetDefault("bind_retries", 5)
	v.SetDefault("decode_traces", true)
	v.SetDefault("receiver_timeout", 5*time.Second)
	v.SetDefault("max_request_bytes", int64(10*1024*1024))
	v.SetDefault("poll_interval", 500*time.Millisecond)
	v.SetDefault("wait_timeout", 20*time.Second)
	v.SetDefault("language", "go")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", "")
}

// Load reads the configuration. With an empty path, mocktraceagent.yaml is
// looked up in the working directory and may be missing; an explicit path
// must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultConfigName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s does not exist: %w", path, err)
			}
			return nil, fmt.Errorf("unable to load config file: %w", err)
		}
	}

	cfg := &Config{
		ReceiverHost:    v.GetString("receiver_host"),
		ReceiverPort:    v.GetInt("receiver_port"),
		BindRetries:     v.GetInt("bind_retries"),
		DecodeTraces:    v.GetBool("decode_traces"),
		ReceiverTimeout: v.GetDuration("receiver_timeout"),
		MaxRequestBytes: v.GetInt64("max_request_bytes"),
		PollInterval:    v.GetDuration("poll_interval"),
		WaitTimeout:     v.GetDuration("wait_timeout"),
		Language:        v.GetString("language"),
		LogLevel:        v.GetString("log_level"),
		MetricsAddr:     v.GetString("metrics_addr"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting
func (c *Config) Validate() error {
	var err error
	if c.ReceiverHost == "" {
		err = multierr.Append(err, errors.New("receiver_host must not be empty"))
	}
	if c.ReceiverPort < 0 || c.ReceiverPort > 65535 {
		err = multierr.Append(err, fmt.Errorf("receiver_port %d is out of range", c.ReceiverPort))
	}
	if c.BindRetries < 0 {
		err = multierr.Append(err, fmt.Errorf("bind_retries must be positive, got %d", c.BindRetries))
	}
	if c.MaxRequestBytes <= 0 {
		err = multierr.Append(err, fmt.Errorf("max_request_bytes must be positive, got %d", c.MaxRequestBytes))
	}
	if c.PollInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if c.WaitTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("wait_timeout must not be negative, got %s", c.WaitTimeout))
	}
	return err
}

// YAML returns the configuration as a YAML document
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
