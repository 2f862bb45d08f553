package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-conditions/internal/logger"
)

// Config holds the settings shared by the condition server and its clients.
type Config struct {
	// ServerAddress is the gRPC server address for condition service connections.
	ServerAddress string `yaml:"server_addr"`
	// StateFile is the path to the JSON file storing retained conditions.
	StateFile string `yaml:"state_file"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// SweepInterval is the period between two sweeps over every registered alarm.
	SweepInterval time.Duration `yaml:"sweep_interval"`
	// LogLevel is the minimum zap level, for example "info" or "debug".
	LogLevel string `yaml:"log_level,omitempty"`
	// LogFormat is "console" or "json".
	LogFormat string `yaml:"log_format,omitempty"`
	// Alarms are the alarm definitions registered by the server at startup.
	Alarms []AlarmConfig `yaml:"alarms,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "alarm-conditions-settings.yaml"

	// DefaultStateFilename is the default filename for retained condition JSON.
	DefaultStateFilename = "alarm-conditions-state.json"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultSweepInterval is the default period between sweeps.
	DefaultSweepInterval = time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errUnknownLogLevel is returned for log levels zap does not know.
	errUnknownLogLevel = errors.New("unknown log level")
	// errUnknownLogFormat is returned for log formats other than console and json.
	errUnknownLogFormat = errors.New("unknown log format")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes Settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting.
// Alarm definitions are checked at registration so that one bad entry does not stop the rest.
func Validate(settings *Config) error {
	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	// Set default timeout if not specified
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.SweepInterval <= 0 {
		settings.SweepInterval = DefaultSweepInterval
	}

	// Set default state file if not specified
	if settings.StateFile == "" {
		settings.StateFile = DefaultStateFilename
	}

	if settings.LogLevel != "" {
		if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
			return fmt.Errorf("%w: %q", errUnknownLogLevel, settings.LogLevel)
		}
	}

	if _, ok := logger.ParseFormat(settings.LogFormat); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogFormat, settings.LogFormat)
	}

	return nil
}
