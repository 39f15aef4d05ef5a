// Package config loads and validates the TC client's configuration:
// transport/server binding, lease/pool tuning, and logging. Configuration
// sources are layered (highest precedence first):
//
//  1. Environment variables (TC4_*)
//  2. Configuration file (YAML or TOML)
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/tc4client/internal/bytesize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full TC client configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server is the NFSv4 server this client talks to.
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Transport tunes the RPC transport (C1) and call-context pool (C2).
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`

	// Lease tunes the client-id/lease keeper (C3).
	Lease LeaseConfig `mapstructure:"lease" yaml:"lease"`

	// Planner tunes the TC batch planner (C7).
	Planner PlannerConfig `mapstructure:"planner" yaml:"planner"`

	// Metrics contains Prometheus metrics registration configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ServerConfig identifies the NFSv4 server and RPC program/version to call.
type ServerConfig struct {
	// Address is the server hostname or IP.
	Address string `mapstructure:"address" validate:"required" yaml:"address"`

	// Port is the server's NFS port. Default: 2049.
	Port int `mapstructure:"port" validate:"min=1,max=65535" yaml:"port"`

	// UsePrivilegedPort binds the client's local socket to a port below 1024,
	// as servers that enforce AUTH_SYS trust typically require.
	UsePrivilegedPort bool `mapstructure:"use_privileged_port" yaml:"use_privileged_port"`

	// RPCProgramNumber is the ONC-RPC program number for NFS (100003).
	RPCProgramNumber uint32 `mapstructure:"rpc_program_number" yaml:"rpc_program_number"`

	// RPCProgramVersion is the NFS program version (4).
	RPCProgramVersion uint32 `mapstructure:"rpc_program_version" yaml:"rpc_program_version"`
}

// TransportConfig tunes connection and retry behavior for C1/C2.
type TransportConfig struct {
	// DialTimeout bounds the initial TCP connect.
	DialTimeout time.Duration `mapstructure:"dial_timeout" validate:"gt=0" yaml:"dial_timeout"`

	// CallTimeout bounds how long a single compound call waits for a reply
	// before the transport treats it as timed out.
	CallTimeout time.Duration `mapstructure:"call_timeout" validate:"gt=0" yaml:"call_timeout"`

	// RetrySleep is the backoff between reconnect attempts.
	RetrySleep time.Duration `mapstructure:"retry_sleep" validate:"gt=0" yaml:"retry_sleep"`

	// ContextPoolSize bounds the number of concurrent in-flight compounds
	// (C2). Calls beyond this block until a slot frees up.
	ContextPoolSize int `mapstructure:"context_pool_size" validate:"gt=0" yaml:"context_pool_size"`

	// SendBufferSize/ReceiveBufferSize size the per-call XDR scratch buffers.
	SendBufferSize    bytesize.ByteSize `mapstructure:"send_buffer_size" yaml:"send_buffer_size"`
	ReceiveBufferSize bytesize.ByteSize `mapstructure:"receive_buffer_size" yaml:"receive_buffer_size"`
}

// LeaseConfig tunes the client-id/lease keeper (C3).
type LeaseConfig struct {
	// OwnerTag is embedded in the open-owner and client-id strings sent to
	// the server, e.g. "tc4client: pid=1234 7".
	OwnerTag string `mapstructure:"owner_tag" yaml:"owner_tag"`

	// RenewSkew is how much earlier than the server's lease expiry the
	// renewer fires, to absorb network/scheduling jitter.
	RenewSkew time.Duration `mapstructure:"renew_skew" validate:"gt=0" yaml:"renew_skew"`
}

// PlannerConfig tunes the TC batch planner (C7).
type PlannerConfig struct {
	// MaxDirDepth is validated but not read by the client: batch sizing
	// uses the planner's fixed MaxDirDepth constant, and LOOKUP chain
	// length is not limited.
	MaxDirDepth int `mapstructure:"max_dir_depth" validate:"gt=0" yaml:"max_dir_depth"`

	// MaxCompoundOps caps the estimated operations of a transaction (txn)
	// call, which fails with ErrBatchTooLarge when over it. Non-txn calls
	// are not checked, and no batch is ever split across COMPOUNDs.
	MaxCompoundOps int `mapstructure:"max_compound_ops" validate:"gt=0" yaml:"max_compound_ops"`

	// MaxReadSize is the server's advertised maximum single-READ size
	// (NFSv4 FATTR4_MAXREAD). This client doesn't fetch it dynamically via
	// GETATTR, so it's configured statically; a requested read length above
	// it is silently clamped down rather than sent to the server as-is.
	MaxReadSize bytesize.ByteSize `mapstructure:"max_read_size" validate:"gt=0" yaml:"max_read_size"`
}

// LoggingConfig controls logging behavior, mirrored from the logger package.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures Prometheus metrics registration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Load reads configuration from file, environment, and defaults, then
// validates it.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if !found {
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("default configuration validation failed: %w", err)
		}
		return cfg, nil
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes cfg to path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("TC4")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	v.AddConfigPath(configDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tc4client")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "tc4client")
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}
