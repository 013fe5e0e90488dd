package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// CLIOverrides holds values supplied on the command line, the highest
// priority layer in the override chain.
type CLIOverrides struct {
	ConfigPath string
	DataDir    string
	LogLevel   string
}

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config.
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger.Debug("loading config file", "path", path)

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %q", path, undecoded[0].String())
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger.Debug("config file parsed successfully",
		"path", path,
		"library_count", len(cfg.Libraries),
	)

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values. This supports the zero-config
// first-run experience.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("config file not found, using defaults", "path", path)

		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// Resolved is the fully-resolved configuration after applying the
// four-layer override chain: defaults -> config file -> environment
// variables -> CLI flags.
type Resolved struct {
	*Config
	DataDir    string
	ConfigPath string
}

// Resolve loads configuration and applies env/CLI overrides on top of it.
func Resolve(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) (*Resolved, error) {
	cfgPath := ResolveConfigPath(env, cli, logger)

	cfg, err := LoadOrDefault(cfgPath, logger)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	dataDir := DefaultDataDir()
	if env.DataDir != "" {
		dataDir = env.DataDir
	}

	if cli.DataDir != "" {
		dataDir = cli.DataDir
	}

	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}

	resolved := &Resolved{Config: cfg, DataDir: dataDir, ConfigPath: cfgPath}

	if err := ValidateResolved(resolved); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	logger.Debug("config resolved",
		"data_dir", resolved.DataDir,
		"config_path", resolved.ConfigPath,
	)

	return resolved, nil
}

// Save encodes cfg as TOML and writes it to path atomically (write-to-temp
// + rename), the same pattern the engine uses for its other small on-disk
// state files. Used after commands that mutate cfg.Libraries (library
// create/rename) so the change survives the next invocation.
func Save(path string, cfg *Config) error {
	var buf bytes.Buffer

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming: %w", err)
	}

	success = true

	return nil
}

// ResolveConfigPath determines the config file path using the three-layer
// priority: CLI flag > environment variable > platform default.
func ResolveConfigPath(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) string {
	cfgPath := DefaultConfigPath()
	source := "default"

	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
		source = "env"
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
		source = "cli"
	}

	logger.Debug("config path resolved", "path", cfgPath, "source", source)

	return cfgPath
}
