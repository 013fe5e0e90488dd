package config

import (
	"log/slog"
	"os"
)

// Environment variable names for overrides.
const (
	EnvConfig  = "SDCORE_CONFIG"
	EnvDataDir = "SDCORE_DATA_DIR"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // SDCORE_CONFIG: override config file path
	DataDir    string // SDCORE_DATA_DIR: data directory override
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides(logger *slog.Logger) EnvOverrides {
	env := EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		DataDir:    os.Getenv(EnvDataDir),
	}

	if logger != nil {
		logger.Debug("read env overrides", "config", env.ConfigPath, "data_dir", env.DataDir)
	}

	return env
}
