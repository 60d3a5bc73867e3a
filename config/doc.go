// Package config loads and validates engine configuration.
//
// Configuration comes from a YAML file with environment-variable overrides
// (MIGRATEKIT_ prefix, underscore-separated paths, e.g.
// MIGRATEKIT_RETRY_MAX_ATTEMPTS), optionally seeded from a .env file.
//
// # Usage
//
//	cfg, err := config.Load(config.WithConfigFile("migratekit.yml"))
//	exec := executor.New(cfg.ExecutorConfig(), cfg.Registry())
//
// All sections have working defaults; an empty file is a valid config.
package config
