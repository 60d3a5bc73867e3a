package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix scopes environment-variable overrides to this engine.
const envPrefix = "MIGRATEKIT_"

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct .env file path (optional)
	Environ    func() []string
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnviron sets the environment snapshot used for overrides.
func WithEnviron(environ func() []string) LoaderOption {
	return func(lc *LoaderConfig) { lc.Environ = environ }
}

// Load reads the engine configuration. File values come first, then .env,
// then process environment variables with the MIGRATEKIT_ prefix; defaults
// fill the rest. The returned config is validated.
func Load(opts ...LoaderOption) (*Config, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}
	if lc.Environ == nil {
		lc.Environ = os.Environ
	}

	if lc.ConfigFile == "" {
		lc.ConfigFile = findConfigFile(lc.FileSystem)
	}
	if lc.EnvFile == "" {
		lc.EnvFile = findEnvFile(lc.FileSystem)
	}

	v := viper.New()

	if lc.ConfigFile != "" && lc.FileSystem.Exists(lc.ConfigFile) {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", lc.ConfigFile, err)
		}
	}

	if lc.EnvFile != "" && lc.FileSystem.Exists(lc.EnvFile) {
		if err := lc.FileSystem.LoadEnv(lc.EnvFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", lc.EnvFile, err)
		}
	}

	bindEnvOverrides(v, lc.Environ())

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile searches for migratekit.yml in standard locations.
func findConfigFile(fs FileSystem) string {
	searchPaths := []string{
		"./migratekit.yml",
		"./config/migratekit.yml",
		"../config/migratekit.yml",
	}
	for _, path := range searchPaths {
		if fs.Exists(path) {
			return path
		}
	}
	return ""
}

// findEnvFile searches for a .env file in standard locations.
func findEnvFile(fs FileSystem) string {
	searchPaths := []string{
		"./.env",
		"./config/.env",
	}
	for _, path := range searchPaths {
		if fs.Exists(path) {
			return path
		}
	}
	return ""
}

// bindEnvOverrides sets prefixed environment variables on the viper
// instance. Because config keys mix nesting and multi-word leaves
// (retry.max_attempts), every plausible dot/underscore split of the
// variable name is bound; only splits matching real keys take effect.
func bindEnvOverrides(v *viper.Viper, environ []string) {
	for _, env := range environ {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], envPrefix) {
			continue
		}

		key := strings.TrimPrefix(pair[0], envPrefix)
		for _, variant := range envKeyVariants(key) {
			v.Set(variant, pair[1])
		}
	}
}

// envKeyVariants lists the candidate config keys for one environment
// variable name.
// Example: RETRY_MAX_ATTEMPTS -> [retry_max_attempts, retry.max.attempts,
// retry.max_attempts].
func envKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")
	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{
		lowerKey,
		strings.ReplaceAll(lowerKey, "_", "."),
	}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}

	seen := make(map[string]bool, len(variants))
	out := make([]string, 0, len(variants))
	for _, variant := range variants {
		if !seen[variant] {
			seen[variant] = true
			out = append(out, variant)
		}
	}
	return out
}
