package config

import "time"

// DefaultConfig returns a Config populated with sane client defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stderr",
		},
		Server: ServerConfig{
			Address:           "localhost",
			Port:              2049,
			UsePrivilegedPort: false,
			RPCProgramNumber:  100003,
			RPCProgramVersion: 4,
		},
		Transport: TransportConfig{
			DialTimeout:       10 * time.Second,
			CallTimeout:       30 * time.Second,
			RetrySleep:        2 * time.Second,
			ContextPoolSize:   16,
			SendBufferSize:    1 << 20, // 1 MiB
			ReceiveBufferSize: 1 << 20,
		},
		Lease: LeaseConfig{
			OwnerTag:  "tc4client",
			RenewSkew: 10 * time.Second,
		},
		Planner: PlannerConfig{
			MaxDirDepth:    32,
			MaxCompoundOps: 128,
			MaxReadSize:    1 << 20, // 1 MiB
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
