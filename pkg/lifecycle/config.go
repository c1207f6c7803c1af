package lifecycle

import (
	"fmt"
	"os"
	"time"

	"github.com/slate-tools/slate-shell-go/pkg/errors"
	"github.com/slate-tools/slate-shell-go/pkg/process"

	"gopkg.in/yaml.v3"
)

// Config holds the supervisor's effective constants. Every timing has a
// default matching the documented startup sequence; a config file only
// needs to name the sidecar executable.
type Config struct {
	// Sidecar is the server child process launch configuration.
	Sidecar process.ExecutionConfig `yaml:"sidecar"`

	// Port the sidecar listens on; the health URL and raw TCP address are
	// derived from it unless overridden.
	Port      int    `yaml:"port,omitempty"`
	HealthURL string `yaml:"health_url,omitempty"`

	// Identity fingerprint: what the health endpoint must echo back for a
	// port occupant to count as our own prior instance.
	App   string `yaml:"app,omitempty"`
	Owner string `yaml:"owner,omitempty"`
	Env   string `yaml:"env,omitempty"`

	ProbeTimeout      time.Duration `yaml:"probe_timeout,omitempty"`
	RawConnectTimeout time.Duration `yaml:"raw_connect_timeout,omitempty"`
	PortFreeTimeout   time.Duration `yaml:"port_free_timeout,omitempty"`
	ReadyTimeout      time.Duration `yaml:"ready_timeout,omitempty"`
	PollInterval      time.Duration `yaml:"poll_interval,omitempty"`
}

// LoadConfigFromFile loads supervisor configuration from a YAML file
func LoadConfigFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.NewValidationError("failed to parse YAML configuration", err).WithContext("filename", filename)
	}

	setConfigDefaults(&config)

	return &config, nil
}

// NewDefaultConfig returns a config with all defaults applied for the given
// sidecar executable.
func NewDefaultConfig(executablePath string) *Config {
	config := &Config{
		Sidecar: process.ExecutionConfig{
			ExecutablePath: executablePath,
		},
	}
	setConfigDefaults(config)
	return config
}

func setConfigDefaults(config *Config) {
	if config.Port == 0 {
		config.Port = 8000
	}
	if config.HealthURL == "" {
		config.HealthURL = fmt.Sprintf("http://127.0.0.1:%d/health", config.Port)
	}
	if config.App == "" {
		config.App = "slate-server"
	}
	if config.Owner == "" {
		config.Owner = "tauri"
	}
	if config.Env == "" {
		config.Env = "prod"
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = 500 * time.Millisecond
	}
	if config.RawConnectTimeout == 0 {
		config.RawConnectTimeout = 100 * time.Millisecond
	}
	if config.PortFreeTimeout == 0 {
		config.PortFreeTimeout = 2 * time.Second
	}
	if config.ReadyTimeout == 0 {
		config.ReadyTimeout = 10 * time.Second
	}
	if config.PollInterval == 0 {
		config.PollInterval = 200 * time.Millisecond
	}
}

// RawAddress is the host:port used for the bare TCP disambiguation check.
func (c *Config) RawAddress() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}

// ValidateConfig validates the configuration structure
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}

	if config.Sidecar.ExecutablePath == "" {
		return errors.NewValidationError("sidecar executable path is required", nil)
	}

	if config.Port <= 0 || config.Port > 65535 {
		return errors.NewValidationError("port must be between 1 and 65535", nil)
	}

	if config.App == "" || config.Owner == "" || config.Env == "" {
		return errors.NewValidationError("identity tags (app, owner, env) cannot be empty", nil)
	}

	for name, d := range map[string]time.Duration{
		"probe_timeout":       config.ProbeTimeout,
		"raw_connect_timeout": config.RawConnectTimeout,
		"port_free_timeout":   config.PortFreeTimeout,
		"ready_timeout":       config.ReadyTimeout,
		"poll_interval":       config.PollInterval,
	} {
		if d <= 0 {
			return errors.NewValidationError(name+" must be positive", nil)
		}
	}

	return nil
}
