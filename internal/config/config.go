package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Fixed serving constants handed to the MII serve entry point.
const (
	DefaultDeploymentName   = "default"
	DefaultEnableRESTfulAPI = true
	DefaultRESTfulAPIPort   = 8080
	DefaultRESTfulAPIHost   = "0.0.0.0"
	DefaultGRPCPort         = 50051
)

// EnvPrefix is the prefix for environment overrides, e.g. MII_SERVE_LOG_LEVEL.
const EnvPrefix = "MII_SERVE"

// Config holds the launcher configuration.
type Config struct {
	DeploymentName   string `mapstructure:"deployment_name"`
	EnableRESTfulAPI bool   `mapstructure:"enable_restful_api"`
	RESTfulAPIPort   int    `mapstructure:"restful_api_port"`
	RESTfulAPIHost   string `mapstructure:"restful_api_host"`
	GRPCPort         int    `mapstructure:"grpc_port"` // probed when the REST API is off

	Python         string        `mapstructure:"python"`
	DataDir        string        `mapstructure:"data_dir"`
	StartupTimeout time.Duration `mapstructure:"startup_timeout"`
	StopTimeout    time.Duration `mapstructure:"stop_timeout"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // "text" or "json"

	StatusAddr string `mapstructure:"status_addr"` // empty disables the status endpoint
}

// DefaultConfig returns a Config carrying the fixed serving constants.
func DefaultConfig() *Config {
	return &Config{
		DeploymentName:   DefaultDeploymentName,
		EnableRESTfulAPI: DefaultEnableRESTfulAPI,
		RESTfulAPIPort:   DefaultRESTfulAPIPort,
		RESTfulAPIHost:   DefaultRESTfulAPIHost,
		GRPCPort:         DefaultGRPCPort,
		Python:           "python3",
		DataDir:          DataDir(),
		StartupTimeout:   30 * time.Minute,
		StopTimeout:      30 * time.Second,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load builds a Config from defaults, an optional config file and
// MII_SERVE_* environment variables, in increasing precedence.
func Load(configFile string) (*Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetDefault("deployment_name", def.DeploymentName)
	v.SetDefault("enable_restful_api", def.EnableRESTfulAPI)
	v.SetDefault("restful_api_port", def.RESTfulAPIPort)
	v.SetDefault("restful_api_host", def.RESTfulAPIHost)
	v.SetDefault("grpc_port", def.GRPCPort)
	v.SetDefault("python", def.Python)
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("startup_timeout", def.StartupTimeout)
	v.SetDefault("stop_timeout", def.StopTimeout)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)
	v.SetDefault("status_addr", def.StatusAddr)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.DeploymentName == "" {
		return errors.New("deployment_name is required")
	}
	if c.RESTfulAPIPort <= 0 || c.RESTfulAPIPort > 65535 {
		return fmt.Errorf("restful_api_port %d out of range", c.RESTfulAPIPort)
	}
	if c.RESTfulAPIHost == "" {
		return errors.New("restful_api_host is required")
	}
	if c.GRPCPort <= 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("grpc_port %d out of range", c.GRPCPort)
	}
	if c.Python == "" {
		return errors.New("python is required")
	}
	if c.StartupTimeout <= 0 {
		return errors.New("startup_timeout must be positive")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q (available: text, json)", c.LogFormat)
	}
	return nil
}
